package allocator

import "errors"

var (
	// ErrInvalidIdentity is returned for a blank user identity.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrStationNotFound is returned when the station id is not configured.
	ErrStationNotFound = errors.New("station not found")
	// ErrStationBusy is returned when the station already has an active session.
	ErrStationBusy = errors.New("station busy")
	// ErrIdentityConflict is returned when the identity already charges elsewhere.
	ErrIdentityConflict = errors.New("identity conflict")
)
