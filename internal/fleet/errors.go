package fleet

import "errors"

// Domain errors for the fleet package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, fleet.ErrPanelNotFound) {
//	    // handle not found case
//	}
var (
	// ErrPanelNotFound is returned when a panel ID does not exist.
	ErrPanelNotFound = errors.New("fleet: panel not found")

	// ErrGroupNotFound is returned when a group ID does not exist.
	ErrGroupNotFound = errors.New("fleet: group not found")

	// ErrGroupExists is returned when creating a group with an ID that already exists.
	ErrGroupExists = errors.New("fleet: group already exists")

	// ErrInvalidLevel is returned when a tint level is outside 0-100.
	ErrInvalidLevel = errors.New("fleet: invalid tint level")

	// ErrInvalidName is returned when a panel or group name is empty.
	ErrInvalidName = errors.New("fleet: invalid name")

	// ErrDuplicateMember is returned when a group member list contains
	// the same panel id twice.
	ErrDuplicateMember = errors.New("fleet: duplicate group member")

	// ErrUnknownMember is returned when a group is created or updated
	// with a panel id that is not part of the configured fleet.
	ErrUnknownMember = errors.New("fleet: unknown group member")
)
