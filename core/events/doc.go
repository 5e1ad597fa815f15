// Package events defines the session related events emitted on the event bus.
//
// Available event types:
//   - SessionStarted: a charge request was admitted
//   - AdmissionRejected: a charge request was refused, with its reason
//   - SessionStopped: an active session was released
package events
