package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/DenhamPreen/hot-potato/internal/engine"
)

func addr(b byte) engine.Address {
	var a engine.Address
	a[19] = b
	return a
}

func TestProjector_PersistsRoundOnRoundEnded(t *testing.T) {
	store := NewMemoryStore()
	p := NewProjector(store, time.Second)

	p.Publish(engine.Event{Kind: engine.KindTake, Player: addr(1), RoundID: 1})
	p.Publish(engine.Event{Kind: engine.KindTake, Player: addr(2), RoundID: 1})
	p.Publish(engine.Event{Kind: engine.KindSponsorUpdated, Sponsor: addr(9), Amount: uint256.NewInt(1e18), Message: []byte("gm"), RoundID: 1})
	p.Publish(engine.Event{Kind: engine.KindSettle, Keeper: addr(0xEE), Win: false, RoundID: 1})
	p.Publish(engine.Event{
		Kind:         engine.KindRoundEnded,
		RoundID:      1,
		PayoutAmount: uint256.NewInt(1000),
		NumEligible:  2,
		PotAfter:     uint256.NewInt(0),
	})

	rec, err := store.GetRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetRound: %v", err)
	}
	if len(rec.Participants) != 2 {
		t.Errorf("Participants = %v, want 2 entries", rec.Participants)
	}
	if rec.Keeper == "" {
		t.Errorf("expected keeper to be recorded")
	}
	if rec.PerShareWei != "500" {
		t.Errorf("PerShareWei = %q, want 500", rec.PerShareWei)
	}
	if rec.SponsorAddress == "" {
		t.Errorf("expected sponsor info to be recorded")
	}
}

func TestProjector_AccountsForPayoutFailuresInPerShare(t *testing.T) {
	store := NewMemoryStore()
	p := NewProjector(store, time.Second)

	p.Publish(engine.Event{Kind: engine.KindTake, Player: addr(1), RoundID: 5})
	p.Publish(engine.Event{Kind: engine.KindTake, Player: addr(2), RoundID: 5})
	p.Publish(engine.Event{Kind: engine.KindParticipantPayoutFailed, Participant: addr(2), RoundID: 5})
	p.Publish(engine.Event{
		Kind:         engine.KindRoundEnded,
		RoundID:      5,
		PayoutAmount: uint256.NewInt(300),
		NumEligible:  2,
		PotAfter:     uint256.NewInt(0),
	})

	rec, err := store.GetRound(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetRound: %v", err)
	}
	if rec.ParticipantPayoutFailures != 1 {
		t.Errorf("ParticipantPayoutFailures = %d, want 1", rec.ParticipantPayoutFailures)
	}
	if rec.PerShareWei != "300" {
		t.Errorf("PerShareWei = %q, want 300 (one successful payout of the total)", rec.PerShareWei)
	}
}

func TestProjector_RoundsDoNotLeakStateAcrossIds(t *testing.T) {
	store := NewMemoryStore()
	p := NewProjector(store, time.Second)

	p.Publish(engine.Event{Kind: engine.KindTake, Player: addr(1), RoundID: 1})
	p.Publish(engine.Event{Kind: engine.KindRoundEnded, RoundID: 1, PayoutAmount: uint256.NewInt(0), NumEligible: 1, PotAfter: uint256.NewInt(0)})

	// Round 2 must start with an empty participant list.
	p.Publish(engine.Event{Kind: engine.KindTake, Player: addr(3), RoundID: 2})
	p.Publish(engine.Event{Kind: engine.KindRoundEnded, RoundID: 2, PayoutAmount: uint256.NewInt(0), NumEligible: 1, PotAfter: uint256.NewInt(0)})

	rec2, err := store.GetRound(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetRound: %v", err)
	}
	if len(rec2.Participants) != 1 {
		t.Errorf("round 2 participants = %v, want exactly 1 (no leakage from round 1)", rec2.Participants)
	}
}
