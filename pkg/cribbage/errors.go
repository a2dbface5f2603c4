package cribbage

import (
	"errors"
	"fmt"
)

// ErrInvalidPhase is an error when an action is attempted in the wrong phase
var ErrInvalidPhase = errors.New("action is not valid in the current phase")

// ErrIsNotPlayersTurn is returned when it's not the player's turn
var ErrIsNotPlayersTurn = errors.New("not player's turn")

// ErrNotInGame is an error when the player is not part of this game
var ErrNotInGame = errors.New("player is not in this game")

// ErrIllegalIndex is an error when a card or cut reference is out of range
var ErrIllegalIndex = errors.New("index is out of range")

// ErrDiscardCount is an error when a discard is not exactly two distinct cards
var ErrDiscardCount = errors.New("must discard exactly two distinct cards")

// ErrAlreadyDiscarded happens when a player who already sent cards to the crib discards again
var ErrAlreadyDiscarded = errors.New("player has already discarded to the crib")

// ErrExceedsThirtyOne is an error when a play would push the running sum past 31
var ErrExceedsThirtyOne = errors.New("play would exceed 31")

// ErrMustPlay happens when a player declares go while holding a playable card
var ErrMustPlay = errors.New("player has a playable card")

// ErrHandNotScored happens if the dealer counts the crib before their hand
var ErrHandNotScored = errors.New("hand must be counted before the crib")

// ErrAlreadyScored happens when a hand or crib is counted twice
var ErrAlreadyScored = errors.New("already counted")

// ErrGameIsOver is an error when an action is attempted on a finished game
var ErrGameIsOver = errors.New("game is over")

// InvariantError is a fatal engine fault such as a card-count mismatch.
// Unlike the sentinel errors above, an InvariantError means the session
// can no longer be trusted and must be halted.
type InvariantError struct {
	Details string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Details)
}

// IsInvariantError returns true if err is a fatal invariant violation
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
