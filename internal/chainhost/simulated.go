package chainhost

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// blockHashWindow mirrors the EVM's 256-block sliding window: BlockHash
// returns the zero hash for any block older than this many blocks behind
// the current one, or for the current/future block itself.
const blockHashWindow = 256

// SimulatedHost is an in-memory, mutex-guarded stand-in for the real host
// ledger: a synthetic block clock, a deterministic (but overridable)
// source of block hashes, and per-address balances. It exists so the
// engine, its tests, and the demo server have something concrete to
// settle against without depending on a real chain client — RPC
// plumbing and deployment are explicit Non-goals of this module.
type SimulatedHost struct {
	mu sync.Mutex

	blockNumber   uint64
	seed          [32]byte
	hashOverrides map[uint64][32]byte

	contract  Address
	balances  map[Address]*uint256.Int
	rejecting map[Address]bool
}

// NewSimulatedHost creates a host whose contract balance accrues at
// contractAddr, starting at block 1.
func NewSimulatedHost(contractAddr Address) *SimulatedHost {
	var seed [32]byte
	_, _ = rand.Read(seed[:]) // best-effort; a zero seed is still deterministic.

	return &SimulatedHost{
		blockNumber:   1,
		seed:          seed,
		hashOverrides: make(map[uint64][32]byte),
		contract:      contractAddr,
		balances:      make(map[Address]*uint256.Int),
		rejecting:     make(map[Address]bool),
	}
}

// BlockNumber returns the current synthetic block height.
func (h *SimulatedHost) BlockNumber() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.blockNumber
}

// AdvanceBlocks moves the synthetic chain forward by n blocks.
func (h *SimulatedHost) AdvanceBlocks(n uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.blockNumber += n
}

// SetBlockHash overrides the hash reported for block n, for deterministic
// test scenarios that need a specific randomness outcome.
func (h *SimulatedHost) SetBlockHash(n uint64, hash [32]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hashOverrides[n] = hash
}

// BlockHash returns the hash of block n, or the zero hash if n is the
// current/a future block, or older than the 256-block window.
func (h *SimulatedHost) BlockHash(n uint64) [32]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n >= h.blockNumber {
		return [32]byte{}
	}
	if h.blockNumber-n > blockHashWindow {
		return [32]byte{}
	}
	if override, ok := h.hashOverrides[n]; ok {
		return override
	}
	return h.pseudoHashLocked(n)
}

// pseudoHashLocked derives a deterministic per-block hash from the host's
// seed. Callers must hold h.mu.
func (h *SimulatedHost) pseudoHashLocked(n uint64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	d := sha3.NewLegacyKeccak256()
	d.Write(h.seed[:])
	d.Write(buf[:])
	var out [32]byte
	copy(out[:], d.Sum(nil))
	return out
}

// ContractBalance returns the real balance held at the contract address,
// which may exceed any accounting layer's tracked pot if value arrived
// outside a tracked operation.
func (h *SimulatedHost) ContractBalance() *uint256.Int {
	return h.BalanceOf(h.contract)
}

// BalanceOf returns addr's current balance (zero if never credited).
func (h *SimulatedHost) BalanceOf(addr Address) *uint256.Int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.balanceLocked(addr).Clone()
}

func (h *SimulatedHost) balanceLocked(addr Address) *uint256.Int {
	b, ok := h.balances[addr]
	if !ok {
		b = new(uint256.Int)
		h.balances[addr] = b
	}
	return b
}

// CreditContract simulates value attached to an incoming call landing in
// the contract's balance atomically, before the call body runs — the
// same way msg.value behaves on a real chain.
func (h *SimulatedHost) CreditContract(amount *uint256.Int) {
	h.Credit(h.contract, amount)
}

// Credit adds amount to addr's balance. Used to fund accounts in tests
// and to land deposits/sponsor stakes on the contract.
func (h *SimulatedHost) Credit(addr Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.balanceLocked(addr)
	b.Add(b, amount)
}

// DebitContract reverses a CreditContract, saturating at 0. Callers use
// this to undo the value landed by a call whose body then failed a
// precondition — on a real chain the value transfer and the reverted
// call are one atomic unit; the simulated host has no such atomicity, so
// the caller must unwind it explicitly.
func (h *SimulatedHost) DebitContract(amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.balanceLocked(h.contract)
	if b.Cmp(amount) < 0 {
		b.Clear()
		return
	}
	b.Sub(b, amount)
}

// SetRejecting marks addr as a recipient whose Transfer always fails,
// simulating a contract that reverts on receive (used to exercise
// ParticipantPayoutFailed / SponsorRefundFailed).
func (h *SimulatedHost) SetRejecting(addr Address, reject bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if reject {
		h.rejecting[addr] = true
	} else {
		delete(h.rejecting, addr)
	}
}

// Transfer moves amount from the contract's balance to to. It reports
// false without mutating any balance if the contract is underfunded or
// to is marked rejecting.
func (h *SimulatedHost) Transfer(to Address, amount *uint256.Int) bool {
	if amount == nil || amount.IsZero() {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rejecting[to] {
		return false
	}
	from := h.balanceLocked(h.contract)
	if from.Cmp(amount) < 0 {
		return false
	}
	from.Sub(from, amount)
	dst := h.balanceLocked(to)
	dst.Add(dst, amount)
	return true
}

// Keccak256 hashes the concatenation of data.
func (h *SimulatedHost) Keccak256(data ...[]byte) [32]byte {
	d := sha3.NewLegacyKeccak256()
	for _, chunk := range data {
		d.Write(chunk)
	}
	var out [32]byte
	copy(out[:], d.Sum(nil))
	return out
}
