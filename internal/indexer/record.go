// Package indexer is the off-chain analytics projection described in
// spec.md §1 as an out-of-scope-but-downstream collaborator: it reacts to
// emitted domain events and materialises analytics records, imposing no
// constraints on the settlement engine beyond consuming the documented
// event stream. It is directly grounded on the teacher codebase's
// internal/model + internal/store split: the same Store interface shape,
// the same Postgres NUMERIC-as-TEXT round-trip, the same Redis
// read-through cache.
package indexer

import (
	"time"

	"github.com/shopspring/decimal"
)

// weiPerEther is the scale factor between wei and the ether-equivalent
// decimal amounts this package reports for dashboards. Wei is exact for
// accounting; decimal ether is what a human reads.
var weiPerEther = decimal.New(1, 18)

// weiToEther converts a decimal-string wei amount to an ether-equivalent
// decimal.Decimal, for reporting only. It never feeds back into engine
// state.
func weiToEther(weiDecimalString string) decimal.Decimal {
	wei, err := decimal.NewFromString(weiDecimalString)
	if err != nil {
		return decimal.Zero
	}
	return wei.Div(weiPerEther)
}

// RoundRecord is the materialised analytics record for one settled round:
// the ordered participant list, the keeper who triggered the settlement
// that finalised it, the realised per-share payout, and the sponsor slot
// in effect when the round ended, if any (spec.md SPEC_FULL.md §3
// "Read-model records"). Schema: {round_id, participants, keeper, payout}.
type RoundRecord struct {
	RoundID uint64 `json:"round_id" db:"round_id"`

	Participants []string `json:"participants" db:"participants"`

	// Keeper is the address that called settle() on the attempt that
	// finalised this round (the Lose path). Empty if the round was never
	// observed to settle through this projection.
	Keeper string `json:"keeper" db:"keeper"`

	PerShareWei   string          `json:"per_share_wei" db:"per_share_wei"`
	PerShareEther decimal.Decimal `json:"per_share_ether" db:"per_share_ether"`

	PayoutTotalWei   string          `json:"payout_total_wei" db:"payout_total_wei"`
	PayoutTotalEther decimal.Decimal `json:"payout_total_ether" db:"payout_total_ether"`

	NumEligible int    `json:"num_eligible" db:"num_eligible"`
	PotAfterWei string `json:"pot_after_wei" db:"pot_after_wei"`

	SponsorAddress string `json:"sponsor_address,omitempty" db:"sponsor_address"`
	SponsorAmount  string `json:"sponsor_amount_wei,omitempty" db:"sponsor_amount_wei"`
	SponsorMessage string `json:"sponsor_message,omitempty" db:"sponsor_message"`

	ParticipantPayoutFailures int `json:"participant_payout_failures" db:"participant_payout_failures"`

	EndedAt time.Time `json:"ended_at" db:"ended_at"`
}

// deriveEtherFields fills PerShareEther and PayoutTotalEther from their
// wei fields once the record is finalised, so callers that construct a RoundRecord directly (tests,
// the projector) don't need to hand-compute the decimal mirror of every
// wei field.
func (r *RoundRecord) deriveEtherFields() {
	r.PerShareEther = weiToEther(r.PerShareWei)
	r.PayoutTotalEther = weiToEther(r.PayoutTotalWei)
}
