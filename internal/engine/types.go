// Package engine implements the Hot Potato settlement engine: the game
// state machine (take -> settle -> win/lose -> distribute), the economic
// bookkeeping (pot, sponsor reservation, per-participant share), and the
// sponsor replacement protocol. All monetary values use uint256.Int —
// never float64 or a fixed-size machine integer for wei.
package engine

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/DenhamPreen/hot-potato/internal/chainhost"
)

// Address identifies an account. It is the same identifier the host
// ledger uses for senders, recipients, and the contract itself.
type Address = chainhost.Address

// ZeroAddress is the sentinel "no holder" / "no creator" value.
var ZeroAddress = chainhost.ZeroAddress

// ZeroAmount returns a fresh zero-valued wei amount.
func ZeroAmount() *uint256.Int { return new(uint256.Int) }

// AmountFromUint64 constructs a wei amount from a machine integer.
func AmountFromUint64(v uint64) *uint256.Int { return uint256.NewInt(v) }

// Config holds the engine's immutable configuration, fixed at construction.
type Config struct {
	BaseEntryPrice     *uint256.Int // base_entry_price, wei
	PriceMultiplierBps uint64       // price_multiplier_bps, >= 10000
	KeeperReward       *uint256.Int // keeper_reward, wei (may be 0)
	CreatorFee         *uint256.Int // creator_fee, wei (may be 0)
	CreatorAddress     Address
}

// MaxParticipants is the hard per-round participation ceiling (spec §4.2).
const MaxParticipants = 50

// BpsDenominator is 1.0x in basis points (10000 = 1.0x).
const BpsDenominator = 10000

// SponsorOutbidBps is the ratio (in bps) the next sponsor must at least
// reach relative to the incumbent's deposit (120% = 12000 bps).
const SponsorOutbidBps = 12000

// MaxMessageLen is the maximum sponsor message length, in bytes.
const MaxMessageLen = 256

// SponsorMinimum is the minimum deposit to become sponsor with no
// incumbent (1e18 wei, spec §4.6).
var SponsorMinimum = mustUint256FromDecimalString("1000000000000000000")

func mustUint256FromDecimalString(s string) *uint256.Int {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		panic(fmt.Sprintf("engine: bad constant %q: %v", s, err))
	}
	return v
}

// reentrancyState is the gate described in spec.md §4.1.
type reentrancyState uint8

const (
	notEntered reentrancyState = iota
	entered
)

// PendingTicket is the single outstanding take awaiting settlement.
type PendingTicket struct {
	Player          Address
	AmountPaid      *uint256.Int
	TakeBlockNumber uint64
	CreatedInRound  uint64
}

// SponsorSlot is the incumbent sponsor for the current round, if any.
type SponsorSlot struct {
	Sponsor Address
	Amount  *uint256.Int
	Message []byte
}

// roundState is the mutable per-round bookkeeping keyed by round id.
type roundState struct {
	participants []Address
	hasPlayed    map[Address]bool
	sponsor      *SponsorSlot
}

func newRoundState() *roundState {
	return &roundState{hasPlayed: make(map[Address]bool)}
}
