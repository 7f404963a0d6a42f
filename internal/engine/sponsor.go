package engine

import "github.com/holiman/uint256"

// Sponsor attaches a promotional message to the current round by posting
// a refundable deposit that strictly outbids the incumbent, if any. It is
// the Sponsor Sub-protocol of spec.md §4.6.
func (e *Engine) Sponsor(sender Address, value *uint256.Int, message []byte) error {
	if err := e.guardReentrancy(); err != nil {
		return err
	}
	defer e.releaseReentrancy()

	if value == nil {
		value = ZeroAmount()
	}

	if value.Cmp(SponsorMinimum) < 0 {
		return &InvalidAmount{Provided: cloneAmount(value), Expected: cloneAmount(SponsorMinimum)}
	}
	if len(message) > MaxMessageLen {
		return ErrMessageTooLong
	}

	round := e.currentRound()

	if round.sponsor == nil {
		e.creditPot(value)
		e.sponsorReserved = new(uint256.Int).Add(e.sponsorReserved, value)

		round.sponsor = &SponsorSlot{Sponsor: sender, Amount: cloneAmount(value), Message: cloneMessage(message)}

		e.emit(Event{
			Kind:    KindSponsorUpdated,
			Sponsor: sender,
			Amount:  cloneAmount(value),
			Message: cloneMessage(message),
			RoundID: e.currentRoundID,
		})
		return nil
	}

	prev := *round.sponsor
	minNext := CeilMulDiv(prev.Amount, AmountFromUint64(SponsorOutbidBps), AmountFromUint64(BpsDenominator))
	if value.Cmp(minNext) < 0 {
		return &InvalidAmount{Provided: cloneAmount(value), Expected: minNext}
	}

	// Credit the new funds before attempting any refund, so an
	// ill-behaved incumbent cannot trap liquidity (spec.md §4.6 ordering
	// note).
	e.creditPot(value)
	e.sponsorReserved = new(uint256.Int).Add(e.sponsorReserved, value)

	// Release the incumbent's reservation before attempting the refund,
	// so a failing recipient cannot permanently lock it as reserved.
	e.sponsorReserved = satSub(e.sponsorReserved, prev.Amount)

	if e.transferOnly(prev.Sponsor, prev.Amount) {
		e.potBalance = satSub(e.potBalance, prev.Amount)
	} else {
		e.emit(Event{Kind: KindSponsorRefundFailed, PrevSponsor: prev.Sponsor, RefundAmount: cloneAmount(prev.Amount), RoundID: e.currentRoundID})
	}

	e.emit(Event{Kind: KindSponsorReplaced, PrevSponsor: prev.Sponsor, RefundAmount: cloneAmount(prev.Amount), RoundID: e.currentRoundID})

	round.sponsor = &SponsorSlot{Sponsor: sender, Amount: cloneAmount(value), Message: cloneMessage(message)}

	e.emit(Event{
		Kind:    KindSponsorUpdated,
		Sponsor: sender,
		Amount:  cloneAmount(value),
		Message: cloneMessage(message),
		RoundID: e.currentRoundID,
	})

	return nil
}

func cloneMessage(m []byte) []byte {
	if m == nil {
		return nil
	}
	out := make([]byte, len(m))
	copy(out, m)
	return out
}
