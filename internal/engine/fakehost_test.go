package engine

import (
	"sync"

	"github.com/holiman/uint256"
)

// fakeHost is a minimal, fully test-controlled chainhost.Host. Unlike
// chainhost.SimulatedHost it lets a test dictate the exact Keccak256
// result a Settle call will see, which is the only practical way to
// force a specific win/lose outcome deterministically.
type fakeHost struct {
	mu sync.Mutex

	blockNumber uint64
	hashes      map[uint64][32]byte
	balances    map[Address]*uint256.Int
	rejecting   map[Address]bool
	keccak      [32]byte
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		blockNumber: 1,
		hashes:      make(map[uint64][32]byte),
		balances:    make(map[Address]*uint256.Int),
		rejecting:   make(map[Address]bool),
	}
}

func (f *fakeHost) advance(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockNumber += n
}

func (f *fakeHost) setHash(n uint64, h [32]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashes[n] = h
}

// setOutcome installs a Keccak256 result whose low byte, taken mod 10,
// decides the next Settle's win/lose roll.
func (f *fakeHost) setOutcome(mod10 byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var h [32]byte
	h[31] = mod10
	f.keccak = h
}

func (f *fakeHost) credit(addr Address, amount *uint256.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.balanceLocked(addr)
	b.Add(b, amount)
}

func (f *fakeHost) setRejecting(addr Address, reject bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejecting[addr] = reject
}

func (f *fakeHost) balanceLocked(addr Address) *uint256.Int {
	b, ok := f.balances[addr]
	if !ok {
		b = new(uint256.Int)
		f.balances[addr] = b
	}
	return b
}

func (f *fakeHost) BlockNumber() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockNumber
}

func (f *fakeHost) BlockHash(n uint64) [32]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hashes[n]
}

func (f *fakeHost) ContractBalance() *uint256.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceLocked(contractAddr).Clone()
}

func (f *fakeHost) Transfer(to Address, amount *uint256.Int) bool {
	if amount == nil || amount.IsZero() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rejecting[to] {
		return false
	}
	from := f.balanceLocked(contractAddr)
	if from.Cmp(amount) < 0 {
		return false
	}
	from.Sub(from, amount)
	dst := f.balanceLocked(to)
	dst.Add(dst, amount)
	return true
}

func (f *fakeHost) Keccak256(data ...[]byte) [32]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keccak
}

// contractAddr is the fixed "pot" address fakeHost accounts transfers
// against.
var contractAddr = Address{0xFF}

// recordingSink captures every published event for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) kinds() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Kind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

func (s *recordingSink) last(k Kind) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Kind == k {
			return s.events[i], true
		}
	}
	return Event{}, false
}

func testAddr(b byte) Address {
	var a Address
	a[19] = b
	return a
}

func testConfig() Config {
	return Config{
		BaseEntryPrice:     AmountFromUint64(1000),
		PriceMultiplierBps: 12000,
		KeeperReward:       AmountFromUint64(5),
		CreatorFee:         AmountFromUint64(10),
		CreatorAddress:     testAddr(0xC0),
	}
}

// armSettle advances host past the settle delay and arms a win/lose
// outcome for the very next Settle call.
func armSettle(host *fakeHost, mod10 byte) {
	host.advance(settleBlockDelay)
	host.setHash(host.BlockNumber()-1, [32]byte{0x01})
	host.setOutcome(mod10)
}
