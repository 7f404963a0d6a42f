// Package chainhost defines the narrow interface the settlement engine
// uses to reach the out-of-scope host ledger/runtime: block height,
// recent block hashes, contract balance, value transfers and keccak256.
// A call's sender and attached value are passed to the engine's
// operations as arguments, not read through this interface. The engine never talks to a real chain client
// directly — deployment, key management, and RPC plumbing are explicit
// Non-goals of this module; SimulatedHost is the only implementation
// shipped here, standing in for that collaborator in tests and the demo
// server.
package chainhost

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Address identifies an account on the host ledger. It is opaque to the
// engine beyond equality comparison.
type Address [20]byte

// ZeroAddress is the sentinel "no holder" / "no creator" value.
var ZeroAddress Address

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == ZeroAddress }

// Hex renders the address as a 0x-prefixed lowercase hex string.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// ParseAddress parses a 0x-prefixed (or bare) 40-hex-character address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("chainhost: invalid address %q: %w", s, err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("chainhost: invalid address %q: want %d bytes, got %d", s, len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Host is the environment-supplied primitive set a settlement engine
// needs: block_number(), block_hash(n), contract_balance(), a
// transactional value transfer, and keccak256 (spec.md §6).
type Host interface {
	// BlockNumber returns the current block height.
	BlockNumber() uint64

	// BlockHash returns the hash of block n, or the zero hash if n is
	// outside the 256-block sliding window.
	BlockHash(n uint64) [32]byte

	// ContractBalance returns the engine's own real on-chain balance —
	// which may exceed its accounted pot_balance if value was sent to it
	// outside of any tracked operation.
	ContractBalance() *uint256.Int

	// Transfer attempts to send amount to to. It reports whether the
	// transfer succeeded; callers must tolerate and account for failure,
	// never panic or block indefinitely.
	Transfer(to Address, amount *uint256.Int) bool

	// Keccak256 hashes the concatenation of data.
	Keccak256(data ...[]byte) [32]byte
}
