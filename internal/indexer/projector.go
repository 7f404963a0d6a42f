package indexer

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/DenhamPreen/hot-potato/internal/engine"
)

// inProgress accumulates the events belonging to one not-yet-finalised
// round, keyed by round id, until a RoundEnded event finalises it.
type inProgress struct {
	participants   []string
	keeper         string
	failures       int
	sponsorAddress string
	sponsorAmount  string
	sponsorMessage string
}

// Projector is the stateless-from-the-engine's-perspective analytics
// projection described in spec.md §1: it reacts only to the documented
// event stream and materialises a RoundRecord per settled round. It
// implements engine.Sink so cmd/server can fan a single settlement
// operation's events out to it alongside metrics and the WebSocket hub.
//
// Grounded on the teacher codebase's trade.Service (validate/mutate/
// persist shape) generalised from "one HTTP request, one ledger entry" to
// "one accumulated round, one settled-round record".
type Projector struct {
	store Store

	mu      sync.Mutex
	accum   map[uint64]*inProgress
	timeout time.Duration
}

// NewProjector constructs a Projector persisting to store. Each SaveRound
// call is given writeTimeout to complete. The write runs synchronously
// inside Publish, so a store that honours context cancellation delays the
// caller by at most writeTimeout; a failed or timed-out write is logged
// and the record discarded.
func NewProjector(store Store, writeTimeout time.Duration) *Projector {
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Second
	}
	return &Projector{store: store, accum: make(map[uint64]*inProgress), timeout: writeTimeout}
}

func (p *Projector) roundFor(id uint64) *inProgress {
	r, ok := p.accum[id]
	if !ok {
		r = &inProgress{}
		p.accum[id] = r
	}
	return r
}

// Publish implements engine.Sink.
func (p *Projector) Publish(e engine.Event) {
	p.mu.Lock()

	switch e.Kind {
	case engine.KindTake:
		r := p.roundFor(e.RoundID)
		r.participants = append(r.participants, e.Player.Hex())

	case engine.KindSettle:
		if _, open := p.accum[e.RoundID]; !open {
			// The engine emits Settle after the RoundEnded it triggered, so
			// this round's record is already persisted: stamp its keeper.
			p.mu.Unlock()
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			defer cancel()
			if rec, err := p.store.GetRound(ctx, e.RoundID); err == nil {
				rec.Keeper = e.Keeper.Hex()
				p.persist(rec)
			}
			return
		}
		r := p.roundFor(e.RoundID)
		r.keeper = e.Keeper.Hex()

	case engine.KindParticipantPayoutFailed:
		r := p.roundFor(e.RoundID)
		r.failures++

	case engine.KindSponsorUpdated:
		r := p.roundFor(e.RoundID)
		r.sponsorAddress = e.Sponsor.Hex()
		if e.Amount != nil {
			r.sponsorAmount = e.Amount.String()
		}
		r.sponsorMessage = string(e.Message)

	case engine.KindRoundEnded:
		acc := p.roundFor(e.RoundID)
		record := p.buildRecord(e, acc)
		delete(p.accum, e.RoundID)
		p.mu.Unlock()
		p.persist(record)
		return
	}

	p.mu.Unlock()
}

func (p *Projector) buildRecord(e engine.Event, acc *inProgress) *RoundRecord {
	successes := e.NumEligible - acc.failures
	perShare := "0"
	if successes > 0 && e.PayoutAmount != nil {
		perShare = averageWei(e.PayoutAmount.String(), successes)
	}

	payoutTotal := "0"
	if e.PayoutAmount != nil {
		payoutTotal = e.PayoutAmount.String()
	}
	potAfter := "0"
	if e.PotAfter != nil {
		potAfter = e.PotAfter.String()
	}

	r := &RoundRecord{
		RoundID:                   e.RoundID,
		Participants:              acc.participants,
		Keeper:                    acc.keeper,
		PerShareWei:               perShare,
		PayoutTotalWei:            payoutTotal,
		NumEligible:               e.NumEligible,
		PotAfterWei:               potAfter,
		SponsorAddress:            acc.sponsorAddress,
		SponsorAmount:             acc.sponsorAmount,
		SponsorMessage:            acc.sponsorMessage,
		ParticipantPayoutFailures: acc.failures,
		EndedAt:                   time.Now().UTC(),
	}
	r.deriveEtherFields()
	return r
}

func (p *Projector) persist(r *RoundRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.store.SaveRound(ctx, r); err != nil {
		slog.Error("indexer: failed to persist round record", "round_id", r.RoundID, "err", err)
	}
}

// averageWei performs the one piece of arithmetic this package needs on a
// wei-denominated decimal string: integer division for a display-only
// average payout. It uses math/big rather than uint256.Int deliberately —
// this package treats amounts as opaque strings everywhere else and never
// participates in the engine's own accounting, so there is no reason to
// pull the 256-bit fixed-width type in just for one display figure.
func averageWei(weiDecimalString string, n int) string {
	amt, ok := new(big.Int).SetString(weiDecimalString, 10)
	if !ok || n <= 0 {
		return "0"
	}
	amt.Div(amt, big.NewInt(int64(n)))
	return amt.String()
}
