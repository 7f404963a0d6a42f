package engine

import (
	"testing"

	"github.com/holiman/uint256"
)

func u64(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestCeilMulDiv_ExactDivision(t *testing.T) {
	got := CeilMulDiv(u64(100), u64(3), u64(10))
	if got.Uint64() != 30 {
		t.Errorf("CeilMulDiv(100,3,10) = %s, want 30", got)
	}
}

func TestCeilMulDiv_RoundsUp(t *testing.T) {
	// 100*3/9 = 33.33... -> ceil = 34
	got := CeilMulDiv(u64(100), u64(3), u64(9))
	if got.Uint64() != 34 {
		t.Errorf("CeilMulDiv(100,3,9) = %s, want 34", got)
	}
}

func TestCeilMulDiv_ZeroInputsAreZero(t *testing.T) {
	if got := CeilMulDiv(ZeroAmount(), u64(5), u64(3)); !got.IsZero() {
		t.Errorf("CeilMulDiv(0,5,3) = %s, want 0", got)
	}
	if got := CeilMulDiv(u64(5), ZeroAmount(), u64(3)); !got.IsZero() {
		t.Errorf("CeilMulDiv(5,0,3) = %s, want 0", got)
	}
}

func TestCeilMulDiv_SaturatesOnProductOverflow(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	got := CeilMulDiv(max, u64(2), u64(1))
	if got.Cmp(max) != 0 {
		t.Errorf("CeilMulDiv should saturate at the 256-bit max, got %s", got)
	}
}

func TestCeilMulDiv_PriceEscalationBps(t *testing.T) {
	// A 1000-wei price escalated by 12000bps (1.2x) should ceil to 1200.
	price := u64(1000)
	got := CeilMulDiv(price, u64(12000), u64(BpsDenominator))
	if got.Uint64() != 1200 {
		t.Errorf("escalated price = %s, want 1200", got)
	}
}

func TestSatSub_SaturatesAtZero(t *testing.T) {
	got := satSub(u64(5), u64(10))
	if !got.IsZero() {
		t.Errorf("satSub(5,10) = %s, want 0", got)
	}
	got = satSub(u64(10), u64(4))
	if got.Uint64() != 6 {
		t.Errorf("satSub(10,4) = %s, want 6", got)
	}
}
