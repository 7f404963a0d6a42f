package engine

import "github.com/holiman/uint256"

// Enter records a participation attempt from sender, paying value. It is
// the Entry Controller of spec.md §4.2.
func (e *Engine) Enter(sender Address, value *uint256.Int) error {
	if err := e.guardReentrancy(); err != nil {
		return err
	}
	defer e.releaseReentrancy()

	if value == nil {
		value = ZeroAmount()
	}

	if e.pending != nil {
		return ErrPendingAttemptExists
	}

	round := e.currentRound()
	if len(round.participants) >= MaxParticipants {
		return ErrMaxParticipantsReached
	}

	isFiftieth := len(round.participants) == MaxParticipants-1
	required := cloneAmount(e.currentEntryPrice)
	if isFiftieth {
		required = ZeroAmount()
	}
	if value.Cmp(required) < 0 {
		return &InvalidAmount{Provided: cloneAmount(value), Expected: required}
	}

	if round.hasPlayed[sender] {
		return &AlreadyPlayedThisRound{RoundID: e.currentRoundID}
	}

	round.hasPlayed[sender] = true
	round.participants = append(round.participants, sender)

	if !value.IsZero() {
		e.creditPot(value)
	}

	takeBlock := e.host.BlockNumber()
	e.pending = &PendingTicket{
		Player:          sender,
		AmountPaid:      cloneAmount(value),
		TakeBlockNumber: takeBlock,
		CreatedInRound:  e.currentRoundID,
	}

	e.emit(Event{
		Kind:        KindTake,
		Player:      sender,
		PricePaid:   cloneAmount(value),
		TargetBlock: takeBlock,
		RoundID:     e.currentRoundID,
	})

	return nil
}
