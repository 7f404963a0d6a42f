package engine

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/DenhamPreen/hot-potato/internal/chainhost"
)

// availablePot returns pot_balance - sponsor_reserved, saturating at 0
// (spec.md §4.1, I2).
func (e *Engine) availablePot() *uint256.Int {
	return satSub(e.potBalance, e.sponsorReserved)
}

// creditPot adds amount to pot_balance and emits PotUpdated.
func (e *Engine) creditPot(amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	e.potBalance = new(uint256.Int).Add(e.potBalance, amount)
	e.emit(Event{Kind: KindPotUpdated, NewPot: cloneAmount(e.potBalance)})
}

// tryPay clamps amount to the available pot, invokes the host transfer,
// and on success decrements pot_balance by the amount actually paid. It
// never returns an error: failure is communicated via the ok flag so
// that callers can treat it as a best-effort payment (spec.md §4.1, §7).
func (e *Engine) tryPay(recipient Address, amount *uint256.Int) (ok bool, paid *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return false, ZeroAmount()
	}
	clamped := amount
	if avail := e.availablePot(); amount.Cmp(avail) > 0 {
		clamped = avail
	}
	if clamped.IsZero() {
		return false, ZeroAmount()
	}
	if !e.host.Transfer(toHostAddr(recipient), clamped) {
		return false, ZeroAmount()
	}
	e.potBalance = new(uint256.Int).Sub(e.potBalance, clamped)
	return true, clamped
}

func toHostAddr(a Address) chainhost.Address { return a }

// transferOnly attempts a raw host transfer without touching pot_balance
// or clamping to availablePot. Used by the Lose path, which distributes
// against the real contract balance and reconciles pot_balance once, in
// bulk, after the whole payout loop (spec.md §4.5).
func (e *Engine) transferOnly(recipient Address, amount *uint256.Int) bool {
	if amount == nil || amount.IsZero() {
		return false
	}
	return e.host.Transfer(toHostAddr(recipient), amount)
}

// satSub returns a-b, saturating at 0 instead of underflowing.
func satSub(a, b *uint256.Int) *uint256.Int {
	if a.Cmp(b) < 0 {
		return ZeroAmount()
	}
	return new(uint256.Int).Sub(a, b)
}

var maxUint256Big = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// maxUint256 returns the largest representable 256-bit unsigned value.
func maxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// CeilMulDiv computes ceil(x*n/d), saturating at the 256-bit maximum if
// the raw product x*n would overflow (spec.md §4.1, §9). It returns 0 if
// x or n is 0. d is assumed non-zero by every caller in this package
// (basis-point denominators and outbid ratios are compile-time
// constants).
//
// The overflow check on the intermediate product x*n — as opposed to the
// final quotient — requires arbitrary-precision arithmetic; uint256.Int's
// own overflow-checked operations report overflow of the stored 256-bit
// result, not of a pre-division intermediate, so this helper is the one
// place in the engine that reaches for math/big.
func CeilMulDiv(x, n, d *uint256.Int) *uint256.Int {
	if x == nil || n == nil || x.IsZero() || n.IsZero() {
		return ZeroAmount()
	}

	prod := new(big.Int).Mul(x.ToBig(), n.ToBig())
	if prod.Cmp(maxUint256Big) > 0 {
		return maxUint256()
	}

	db := d.ToBig()
	num := new(big.Int).Add(prod, new(big.Int).Sub(db, big.NewInt(1)))
	q := new(big.Int).Div(num, db)
	if q.Cmp(maxUint256Big) > 0 {
		return maxUint256()
	}

	result, overflow := uint256.FromBig(q)
	if overflow {
		return maxUint256()
	}
	return result
}
