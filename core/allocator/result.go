package allocator

import (
	"fmt"

	"github.com/kilianp07/chargeguard/core/model"
)

// Reason classifies why a charge request was refused.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidIdentity
	ReasonStationNotFound
	ReasonStationBusy
	ReasonIdentityConflict
)

// String returns the reject code used in logs, metrics and audit records.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInvalidIdentity:
		return "invalid_identity"
	case ReasonStationNotFound:
		return "station_not_found"
	case ReasonStationBusy:
		return "station_busy"
	case ReasonIdentityConflict:
		return "identity_conflict"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// ParseReason is the inverse of Reason.String.
func ParseReason(s string) (Reason, error) {
	switch s {
	case "none", "":
		return ReasonNone, nil
	case "invalid_identity":
		return ReasonInvalidIdentity, nil
	case "station_not_found":
		return ReasonStationNotFound, nil
	case "station_busy":
		return ReasonStationBusy, nil
	case "identity_conflict":
		return ReasonIdentityConflict, nil
	}
	return ReasonNone, fmt.Errorf("unknown reason %q", s)
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonInvalidIdentity:
		return ErrInvalidIdentity
	case ReasonStationNotFound:
		return ErrStationNotFound
	case ReasonStationBusy:
		return ErrStationBusy
	case ReasonIdentityConflict:
		return ErrIdentityConflict
	}
	return nil
}

// AdmissionResult describes the outcome of RequestCharge.
type AdmissionResult struct {
	Success bool
	Reason  Reason
	Message string
	// Session is set on success.
	Session *model.Session
	// Conflict is the session already held by the identity when Reason is
	// ReasonIdentityConflict.
	Conflict *model.Session
}

// Err returns nil on success, otherwise an error wrapping the sentinel for
// the reject reason so callers can use errors.Is.
func (r AdmissionResult) Err() error {
	if r.Success {
		return nil
	}
	if s := r.Reason.sentinel(); s != nil {
		return fmt.Errorf("%w: %s", s, r.Message)
	}
	return fmt.Errorf("charge request rejected: %s", r.Message)
}

func rejected(reason Reason, format string, args ...any) AdmissionResult {
	return AdmissionResult{Reason: reason, Message: fmt.Sprintf(format, args...)}
}
