package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrMarketNotFound       = errors.New("market not found")
	ErrConflictOfInterest   = errors.New("participant is restricted from this market")
	ErrDuplicateWager       = errors.New("participant already has an open wager on this market")
	ErrMarketLocked         = errors.New("market is not open for wagers")
	ErrMarketNotLocked      = errors.New("market must be locked before resolution")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidOutcome       = errors.New("outcome index out of range")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrWagerCancelled       = errors.New("wager cancelled")
	ErrConfirmationTimedOut = errors.New("confirmation timed out")
	ErrSelfTransfer         = errors.New("cannot transfer to yourself")
	ErrDailyAlreadyClaimed  = errors.New("daily reward already claimed")
	ErrLockHeld             = errors.New("lock already held")
)

// InvalidProbabilityError reports a probability outside the open interval
// (0, 1), naming the offending outcome.
type InvalidProbabilityError struct {
	Outcome     string
	Probability float64
}

func (e *InvalidProbabilityError) Error() string {
	return fmt.Sprintf("invalid probability %g for %q: must be between 0 and 1 exclusive", e.Probability, e.Outcome)
}

// InvalidTimestampError reports an unparsable lock-time string.
type InvalidTimestampError struct {
	Input string
	Err   error
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: use MM/DD/YYYY HH:MM (24-hour): %v", e.Input, e.Err)
}

func (e *InvalidTimestampError) Unwrap() error { return e.Err }

// InconsistentRecordError flags a participant record that could not be
// settled during resolution. Resolution logs it and continues with the
// remaining participants.
type InconsistentRecordError struct {
	ParticipantID string
	MarketID      int64
	Err           error
}

func (e *InconsistentRecordError) Error() string {
	return fmt.Sprintf("inconsistent record for participant %s on market %d: %v", e.ParticipantID, e.MarketID, e.Err)
}

func (e *InconsistentRecordError) Unwrap() error { return e.Err }
