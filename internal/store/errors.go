package store

import (
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

// ErrNothingToSave rejects a save with no result or no owning user, before
// touching the database.
var ErrNothingToSave = errors.New("nothing to save")

// ErrNotFound is returned for lookups of missing rows.
var ErrNotFound = errors.New("not found")

// ErrKind classifies persistence failures. The classification is produced by
// the storage boundary from driver error codes, never inferred from message
// text.
type ErrKind int

const (
	KindUnknown ErrKind = iota
	KindPermission
	KindNetwork
	KindQuota
	KindConflict
)

// Error is a classified persistence failure.
type Error struct {
	Kind  ErrKind
	cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindPermission:
		return fmt.Sprintf("permission denied: %v", e.cause)
	case KindNetwork:
		return fmt.Sprintf("store unreachable: %v", e.cause)
	case KindQuota:
		return fmt.Sprintf("storage quota exceeded: %v", e.cause)
	case KindConflict:
		return fmt.Sprintf("conflict: %v", e.cause)
	default:
		return fmt.Sprintf("store error: %v", e.cause)
	}
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the classification from err, KindUnknown for anything that
// is not a store error.
func KindOf(err error) ErrKind {
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Kind
	}
	return KindUnknown
}

// Classify wraps a driver error with its failure kind.
//
// PostgreSQL error classes: 28 = invalid authorization, 42501 = insufficient
// privilege, 53/54 = resource/program limits, 08 = connection exception,
// 23505 = unique violation.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "42501" || pqErr.Code.Class() == "28":
			return &Error{Kind: KindPermission, cause: err}
		case pqErr.Code.Class() == "53" || pqErr.Code.Class() == "54":
			return &Error{Kind: KindQuota, cause: err}
		case pqErr.Code.Class() == "08":
			return &Error{Kind: KindNetwork, cause: err}
		case pqErr.Code == "23505":
			return &Error{Kind: KindConflict, cause: err}
		}
		return &Error{Kind: KindUnknown, cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindNetwork, cause: err}
	}

	return &Error{Kind: KindUnknown, cause: err}
}
