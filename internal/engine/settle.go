package engine

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/DenhamPreen/hot-potato/internal/chainhost"
)

// settleBlockDelay is the minimum number of blocks that must pass after
// a take before it can be settled, so the entropy block's hash is not
// knowable to the player at take time (spec.md §4.3).
const settleBlockDelay = 2

// Settle consumes the pending ticket, derives an outcome from deferred
// chain entropy, pays the keeper, and dispatches to the Win or Lose
// path. It is the Settlement Engine of spec.md §4.3.
func (e *Engine) Settle(sender Address) error {
	if err := e.guardReentrancy(); err != nil {
		return err
	}
	defer e.releaseReentrancy()

	if e.pending == nil {
		return ErrNoPendingAttempt
	}
	ticket := *e.pending

	currentBlock := e.host.BlockNumber()
	if currentBlock < ticket.TakeBlockNumber+settleBlockDelay {
		return ErrTooSoonToSettle
	}

	prevHash := e.host.BlockHash(currentBlock - 1)
	if isZeroHash(prevHash) {
		return ErrStaleBlockhash
	}

	// 1. Pay keeper (non-blocking, swallowed on failure).
	e.tryPay(sender, cloneAmount(e.cfg.KeeperReward))

	// 2. Compute randomness from deferred entropy.
	r := deriveRandomness(e.host, prevHash, ticket.Player, ticket.CreatedInRound)

	// 3. Decide outcome.
	round := e.roundFor(ticket.CreatedInRound)
	forced := len(round.participants) >= MaxParticipants
	var win bool
	if forced {
		win = false
	} else {
		mod := new(uint256.Int).Mod(r, uint256.NewInt(10))
		win = mod.Cmp(uint256.NewInt(8)) < 0
	}

	// 4. Clear pending before any further external call.
	e.pending = nil

	// 5. Dispatch.
	if win {
		e.winPath(ticket)
		if len(e.roundFor(ticket.CreatedInRound).participants) >= MaxParticipants {
			e.losePath(ticket.CreatedInRound)
		}
	} else {
		e.losePath(ticket.CreatedInRound)
	}

	// 6. Emit Settle after any Win/Lose path events (spec.md §4.3 ordering note).
	e.emit(Event{
		Kind:       KindSettle,
		Player:     ticket.Player,
		Win:        win,
		Randomness: cloneAmount(r),
		Keeper:     sender,
		RoundID:    ticket.CreatedInRound,
	})

	return nil
}

func isZeroHash(h [32]byte) bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// deriveRandomness computes keccak256(prevHash || player || createdInRound)
// interpreted as a uint256 (spec.md §4.3 step 2).
func deriveRandomness(host chainhost.Host, prevHash [32]byte, player Address, createdInRound uint64) *uint256.Int {
	var roundBytes [8]byte
	binary.BigEndian.PutUint64(roundBytes[:], createdInRound)

	hash := host.Keccak256(prevHash[:], player[:], roundBytes[:])
	return new(uint256.Int).SetBytes(hash[:])
}
