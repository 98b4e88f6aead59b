package models

import "errors"

// Failure taxonomy for the reconciliation pipelines. Services wrap
// these sentinels with context; the HTTP boundary maps them to status
// codes via ErrorCode.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrReverted          = errors.New("transaction reverted")
	ErrNoEvent           = errors.New("expected event absent")
	ErrMismatch          = errors.New("claim does not match ledger event")
	ErrPersistence       = errors.New("persistence error")

	// ErrCompensationFailed marks a failed best-effort compensating
	// delete. It is always joined with the error that triggered the
	// compensation, never returned alone, so operators can tell the
	// two failures apart.
	ErrCompensationFailed = errors.New("compensating delete failed")
)

// Stable wire codes for the taxonomy above.
const (
	CodeNotFound          = "NotFound"
	CodeInvalidState      = "InvalidState"
	CodeLedgerUnavailable = "LedgerUnavailable"
	CodeReverted          = "Reverted"
	CodeNoEvent           = "NoEvent"
	CodeMismatch          = "Mismatch"
	CodePersistence       = "PersistenceError"
	CodeInternal          = "Internal"
)

// ErrorCode returns the stable wire code for an error from the
// taxonomy, or "Internal" for anything else.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrLedgerUnavailable):
		return CodeLedgerUnavailable
	case errors.Is(err, ErrReverted):
		return CodeReverted
	case errors.Is(err, ErrNoEvent):
		return CodeNoEvent
	case errors.Is(err, ErrMismatch):
		return CodeMismatch
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	default:
		return CodeInternal
	}
}
