package engine

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Sentinel errors for conditions with no associated data.
var (
	ErrPendingAttemptExists = errors.New("engine: a settlement ticket is already pending")
	ErrNoPendingAttempt     = errors.New("engine: no settlement ticket is pending")
	ErrTooSoonToSettle      = errors.New("engine: settlement is not yet allowed for this ticket")
	ErrStaleBlockhash       = errors.New("engine: required blockhash is outside the chain's window")
	ErrMaxParticipantsReached = errors.New("engine: round has reached its participant cap")
	ErrNotCreator           = errors.New("engine: sender is not the current creator")
	ErrZeroCreator          = errors.New("engine: new creator address must not be zero")
	ErrMessageTooLong       = errors.New("engine: sponsor message exceeds the maximum length")
	ErrReentrancyDetected   = errors.New("engine: reentrant call detected")
)

// InvalidAmount is returned when an attached value does not meet the
// required minimum for the operation being attempted.
type InvalidAmount struct {
	Provided *uint256.Int
	Expected *uint256.Int
}

func (e *InvalidAmount) Error() string {
	return fmt.Sprintf("engine: invalid amount: provided %s, expected at least %s", e.Provided, e.Expected)
}

// AlreadyPlayedThisRound is returned when sender has already taken the
// potato in the current round.
type AlreadyPlayedThisRound struct {
	RoundID uint64
}

func (e *AlreadyPlayedThisRound) Error() string {
	return fmt.Sprintf("engine: sender already played round %d", e.RoundID)
}
