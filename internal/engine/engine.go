package engine

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/DenhamPreen/hot-potato/internal/chainhost"
)

// Engine is a single logical object holding immutable configuration and
// mutable round state (spec.md §2). It executes single-threaded: callers
// serialize access with Lock/Unlock (the HTTP layer holds the same mutex
// for the duration of one operation, mirroring the teacher service's
// single-instance trade lock).
type Engine struct {
	mu sync.Mutex

	host chainhost.Host
	sink Sink

	cfg Config

	currentEntryPrice *uint256.Int
	currentHolder     Address
	currentRoundID    uint64
	potBalance        *uint256.Int
	sponsorReserved   *uint256.Int
	pending           *PendingTicket
	reentrancy        reentrancyState

	rounds map[uint64]*roundState
}

// New constructs an Engine with the given immutable configuration, wired
// to host for chain primitives and sink for event delivery. Pass
// NopSink{} if no observer is needed.
func New(cfg Config, host chainhost.Host, sink Sink) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	e := &Engine{
		host:              host,
		sink:              sink,
		cfg:               cfg,
		currentEntryPrice: cloneAmount(cfg.BaseEntryPrice),
		currentHolder:     ZeroAddress,
		currentRoundID:    1,
		potBalance:        ZeroAmount(),
		sponsorReserved:   ZeroAmount(),
		rounds:            make(map[uint64]*roundState),
	}
	return e
}

// roundFor returns (creating if necessary) the per-round state for id.
func (e *Engine) roundFor(id uint64) *roundState {
	r, ok := e.rounds[id]
	if !ok {
		r = newRoundState()
		e.rounds[id] = r
	}
	return r
}

func (e *Engine) currentRound() *roundState {
	return e.roundFor(e.currentRoundID)
}

func (e *Engine) emit(ev Event) {
	e.sink.Publish(ev)
}

func cloneAmount(a *uint256.Int) *uint256.Int {
	if a == nil {
		return ZeroAmount()
	}
	return new(uint256.Int).Set(a)
}

// --- Read views (spec.md §6) ---

// Lock/Unlock let callers (e.g. the HTTP layer) serialize a whole
// operation, including reads that must be consistent with it.
func (e *Engine) Lock()   { e.mu.Lock() }
func (e *Engine) Unlock() { e.mu.Unlock() }

// HasPending reports whether a settlement ticket is outstanding.
func (e *Engine) HasPending() bool { return e.pending != nil }

// PendingTargetBlock returns the take block recorded on the pending
// ticket (the Take event's target block), and whether one exists. The
// ticket becomes settleable settleBlockDelay blocks after it.
func (e *Engine) PendingTargetBlock() (uint64, bool) {
	if e.pending == nil {
		return 0, false
	}
	return e.pending.TakeBlockNumber, true
}

// AvailablePot returns pot_balance - sponsor_reserved, saturating at 0.
func (e *Engine) AvailablePot() *uint256.Int { return e.availablePot() }

// CurrentSponsor returns the incumbent sponsor of the current round, if
// any.
func (e *Engine) CurrentSponsor() (SponsorSlot, bool) {
	s := e.currentRound().sponsor
	if s == nil {
		return SponsorSlot{}, false
	}
	return *s, true
}

// BaseEntryPrice returns the immutable base entry price.
func (e *Engine) BaseEntryPrice() *uint256.Int { return cloneAmount(e.cfg.BaseEntryPrice) }

// PriceMultiplierBps returns the immutable price escalation multiplier.
func (e *Engine) PriceMultiplierBps() uint64 { return e.cfg.PriceMultiplierBps }

// CurrentEntryPrice returns the current cost to enter.
func (e *Engine) CurrentEntryPrice() *uint256.Int { return cloneAmount(e.currentEntryPrice) }

// CurrentRoundID returns the active round id.
func (e *Engine) CurrentRoundID() uint64 { return e.currentRoundID }

// CurrentHolder returns the current potato holder, or ZeroAddress.
func (e *Engine) CurrentHolder() Address { return e.currentHolder }

// CreatorAddress returns the current creator.
func (e *Engine) CreatorAddress() Address { return e.cfg.CreatorAddress }

// KeeperReward returns the immutable keeper reward.
func (e *Engine) KeeperReward() *uint256.Int { return cloneAmount(e.cfg.KeeperReward) }

// CreatorFee returns the immutable creator fee.
func (e *Engine) CreatorFee() *uint256.Int { return cloneAmount(e.cfg.CreatorFee) }

// PotBalance returns the accounted pot balance.
func (e *Engine) PotBalance() *uint256.Int { return cloneAmount(e.potBalance) }

// SponsorReserved returns the portion of the pot reserved for the
// incumbent sponsor's refund.
func (e *Engine) SponsorReserved() *uint256.Int { return cloneAmount(e.sponsorReserved) }

// Participants returns a copy of the participant list for round id.
func (e *Engine) Participants(id uint64) []Address {
	r, ok := e.rounds[id]
	if !ok {
		return nil
	}
	out := make([]Address, len(r.participants))
	copy(out, r.participants)
	return out
}

// --- update_creator (spec.md §6) ---

// UpdateCreator replaces the creator address. Only the current creator
// may call this; the new address must be non-zero.
func (e *Engine) UpdateCreator(sender, newCreator Address) error {
	if err := e.guardReentrancy(); err != nil {
		return err
	}
	defer e.releaseReentrancy()

	if sender != e.cfg.CreatorAddress {
		return ErrNotCreator
	}
	if newCreator.IsZero() {
		return ErrZeroCreator
	}
	e.cfg.CreatorAddress = newCreator
	return nil
}

// --- Passive deposit path (spec.md §6) ---

// Deposit credits the pot with value received outside of any explicit
// operation (enter/settle/sponsor).
func (e *Engine) Deposit(value *uint256.Int) error {
	if err := e.guardReentrancy(); err != nil {
		return err
	}
	defer e.releaseReentrancy()

	if value != nil && !value.IsZero() {
		e.creditPot(value)
	}
	return nil
}

func (e *Engine) guardReentrancy() error {
	if e.reentrancy == entered {
		return ErrReentrancyDetected
	}
	e.reentrancy = entered
	return nil
}

func (e *Engine) releaseReentrancy() {
	e.reentrancy = notEntered
}
