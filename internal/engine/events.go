package engine

import "github.com/holiman/uint256"

// Kind identifies one of the domain events listed in spec.md §6. Event
// names and payloads are part of the compatibility surface: downstream
// indexers depend on them verbatim.
type Kind string

const (
	KindTake                   Kind = "Take"
	KindSettle                 Kind = "Settle"
	KindNewHolder               Kind = "NewHolder"
	KindRoundEnded              Kind = "RoundEnded"
	KindPotUpdated              Kind = "PotUpdated"
	KindSponsorUpdated          Kind = "SponsorUpdated"
	KindSponsorReplaced         Kind = "SponsorReplaced"
	KindSponsorCleared          Kind = "SponsorCleared"
	KindParticipantPayoutFailed Kind = "ParticipantPayoutFailed"
	KindSponsorRefundFailed     Kind = "SponsorRefundFailed"
)

// Event is a single emitted domain event. Only the fields relevant to Kind
// are populated; the rest are left at their zero value.
type Event struct {
	Kind Kind

	// Take
	Player         Address
	PricePaid      *uint256.Int
	TargetBlock    uint64
	RoundID        uint64

	// Settle
	Win        bool
	Randomness *uint256.Int
	Keeper     Address // sender of Settle; additive to the documented payload

	// NewHolder
	Holder   Address
	NewPrice *uint256.Int

	// RoundEnded
	PayoutAmount *uint256.Int
	NumEligible  int
	PotAfter     *uint256.Int

	// PotUpdated
	NewPot *uint256.Int

	// SponsorUpdated / SponsorReplaced / SponsorRefundFailed
	Sponsor      Address
	Amount       *uint256.Int
	Message      []byte
	PrevSponsor  Address
	RefundAmount *uint256.Int

	// ParticipantPayoutFailed
	Participant Address
}

// Sink receives engine events. Implementations must not block the caller
// for long and must never panic — a misbehaving sink must not be able to
// fail a settlement.
type Sink interface {
	Publish(Event)
}

// MultiSink fans a single event out to every wrapped sink, in order.
type MultiSink []Sink

func (m MultiSink) Publish(e Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(e)
		}
	}
}

// NopSink discards every event. Useful as a default when no observer is
// wired up (tests, one-shot scripts).
type NopSink struct{}

func (NopSink) Publish(Event) {}
