package wsbus

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/DenhamPreen/hot-potato/internal/engine"
)

func TestHub_PublishDoesNotBlockWhenBufferFull(t *testing.T) {
	h := NewHub()

	// Fill the broadcast buffer without a reader draining it; Publish must
	// never block the caller even once it's full.
	for i := 0; i < cap(h.broadcast)+10; i++ {
		h.Publish(engine.Event{Kind: engine.KindPotUpdated, NewPot: uint256.NewInt(uint64(i))})
	}

	if len(h.broadcast) != cap(h.broadcast) {
		t.Errorf("broadcast buffer = %d, want full at %d", len(h.broadcast), cap(h.broadcast))
	}
}

func TestHub_ClientCountStartsZero(t *testing.T) {
	h := NewHub()
	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}
}

func TestToWire_AmountsRenderAsDecimalStrings(t *testing.T) {
	var player engine.Address
	player[19] = 0x01

	w := toWire(engine.Event{
		Kind:      engine.KindTake,
		Player:    player,
		PricePaid: uint256.NewInt(1000),
		RoundID:   1,
	})
	if w.Player == "" {
		t.Errorf("expected non-empty player hex")
	}
	if w.PricePaid != "1000" {
		t.Errorf("PricePaid = %q, want %q", w.PricePaid, "1000")
	}
}
