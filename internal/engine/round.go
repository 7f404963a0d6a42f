package engine

import "github.com/holiman/uint256"

// winPath promotes ticket.Player to holder and escalates the entry price.
// No transfers occur and the round does not advance (spec.md §4.4).
func (e *Engine) winPath(ticket PendingTicket) {
	e.currentHolder = ticket.Player
	e.currentEntryPrice = CeilMulDiv(e.currentEntryPrice, AmountFromUint64(e.cfg.PriceMultiplierBps), AmountFromUint64(BpsDenominator))

	e.emit(Event{
		Kind:     KindNewHolder,
		Holder:   ticket.Player,
		RoundID:  e.currentRoundID,
		NewPrice: cloneAmount(e.currentEntryPrice),
	})
	e.emit(Event{Kind: KindPotUpdated, NewPot: cloneAmount(e.potBalance)})
}

// losePath finalises round r: pays the creator fee, distributes the
// residual contract balance among that round's participants, clears any
// sponsor reservation, and advances to a new round (spec.md §4.5).
func (e *Engine) losePath(r uint64) {
	round := e.roundFor(r)
	participants := round.participants
	n := len(participants)

	// 1. Creator fee (non-blocking): min(creator_fee, available_pot).
	e.tryPay(e.cfg.CreatorAddress, cloneAmount(e.cfg.CreatorFee))

	// 2. Participant distribution, using the real contract balance —
	// not pot_balance — so stray deposits and prior partial-payout drift
	// eventually flow back to players (spec.md §4.5, §9 open question;
	// preserved exactly, see DESIGN.md).
	balanceAfterFees := e.host.ContractBalance()

	paidTotal := ZeroAmount()
	var perShare *uint256.Int
	if n == 0 || balanceAfterFees.IsZero() {
		perShare = ZeroAmount()
	} else {
		perShare = new(uint256.Int).Div(balanceAfterFees, AmountFromUint64(uint64(n)))
	}

	if !perShare.IsZero() {
		for _, p := range participants {
			if e.transferOnly(p, perShare) {
				paidTotal = new(uint256.Int).Add(paidTotal, perShare)
			} else {
				e.emit(Event{Kind: KindParticipantPayoutFailed, Participant: p, Amount: cloneAmount(perShare), RoundID: r})
			}
		}
	}

	e.potBalance = satSub(e.potBalance, paidTotal)

	e.emit(Event{
		Kind:         KindRoundEnded,
		RoundID:      r,
		PayoutAmount: paidTotal,
		NumEligible:  n,
		PotAfter:     cloneAmount(e.potBalance),
	})
	e.emit(Event{Kind: KindPotUpdated, NewPot: cloneAmount(e.potBalance)})

	// 4. Clear sponsor.
	if !e.sponsorReserved.IsZero() || round.sponsor != nil {
		e.sponsorReserved = ZeroAmount()
		round.sponsor = nil
		e.emit(Event{Kind: KindSponsorCleared, RoundID: r})
	}

	// 5. Advance.
	e.currentRoundID = r + 1
	e.currentHolder = ZeroAddress
	e.currentEntryPrice = cloneAmount(e.cfg.BaseEntryPrice)
}
