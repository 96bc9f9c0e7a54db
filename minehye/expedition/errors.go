package expedition

import (
	"errors"
	"fmt"
)

// Dispatch validation categories, checked in this order.
const (
	CategoryUnknownTier       = "unknown_tier"
	CategoryPartyBusy         = "party_busy"
	CategoryPartyIncomplete   = "party_incomplete"
	CategoryDeadHero          = "dead_hero"
	CategoryInsufficientFunds = "insufficient_funds"
)

// ErrNothingToCollect is returned by Collect when no active expedition has
// reached its end time.
var ErrNothingToCollect = errors.New("no completed expeditions to collect")

// ErrDebugDisabled is returned by debug-only operations when the debug tools
// flag is off.
var ErrDebugDisabled = errors.New("debug tools are disabled")

// ValidationError is a rejected dispatch precondition. The category is stable
// and machine-readable; the message is for the player.
type ValidationError struct {
	Category string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dispatch rejected (%s): %s", e.Category, e.Message)
}

// IsValidation reports whether err is a ValidationError with the given
// category.
func IsValidation(err error, category string) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Category == category
}

// PersistenceError wraps a storage failure after which the operation's local
// state has been rolled back. The caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DataIntegrityError means an expedition record is missing the provenance
// needed to produce its outcome. This is never recovered silently; the record
// stays active so the corruption is visible.
type DataIntegrityError struct {
	ExpeditionID int64
	Message      string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("expedition %d: %s", e.ExpeditionID, e.Message)
}
