package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/DenhamPreen/hot-potato/internal/api"
	"github.com/DenhamPreen/hot-potato/internal/chainhost"
	"github.com/DenhamPreen/hot-potato/internal/engine"
	"github.com/DenhamPreen/hot-potato/internal/indexer"
)

func testAddr(b byte) chainhost.Address {
	var a chainhost.Address
	a[19] = b
	return a
}

func newTestEnv(t *testing.T) (chi.Router, *chainhost.SimulatedHost, *engine.Engine) {
	t.Helper()

	contract := testAddr(0xFF)
	host := chainhost.NewSimulatedHost(contract)

	cfg := engine.Config{
		BaseEntryPrice:     uint256.NewInt(1000),
		PriceMultiplierBps: 11000,
		KeeperReward:       uint256.NewInt(10),
		CreatorFee:         uint256.NewInt(5),
		CreatorAddress:     testAddr(0x01),
	}

	eng := engine.New(cfg, host, nil)
	svc := api.NewService(eng, host, indexer.NewMemoryStore())

	r := chi.NewRouter()
	r.Post("/api/v1/enter", svc.Enter)
	r.Post("/api/v1/settle", svc.Settle)
	r.Post("/api/v1/sponsor", svc.Sponsor)
	r.Get("/api/v1/sponsor", svc.GetSponsor)
	r.Post("/api/v1/creator", svc.UpdateCreator)
	r.Post("/api/v1/deposit", svc.Deposit)
	r.Get("/api/v1/state", svc.State)
	r.Get("/api/v1/rounds/{id}", svc.GetRound)

	return r, host, eng
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEnter_Succeeds(t *testing.T) {
	router, _, _ := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/enter", api.EnterRequest{
		Sender: testAddr(0x02).Hex(),
		Amount: "1000",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp api.StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.HasPending {
		t.Errorf("expected a pending ticket after a successful enter")
	}
	if resp.PotBalance != "1000" {
		t.Errorf("PotBalance = %q, want 1000", resp.PotBalance)
	}
}

func TestEnter_RejectsUnderpayment(t *testing.T) {
	router, host, _ := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/enter", api.EnterRequest{
		Sender: testAddr(0x02).Hex(),
		Amount: "1",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// The rejected value must not remain landed on the contract balance.
	if bal := host.ContractBalance(); !bal.IsZero() {
		t.Errorf("contract balance after rejected enter = %s, want 0", bal)
	}
}

func TestEnter_RejectsSecondPendingTicket(t *testing.T) {
	router, _, _ := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/enter", api.EnterRequest{Sender: testAddr(0x02).Hex(), Amount: "1000"})
	if w.Code != http.StatusOK {
		t.Fatalf("first enter: expected 200, got %d", w.Code)
	}

	w = doJSON(t, router, "POST", "/api/v1/enter", api.EnterRequest{Sender: testAddr(0x03).Hex(), Amount: "1000"})
	if w.Code != http.StatusConflict {
		t.Fatalf("second enter: expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSettle_TooSoonIsConflict(t *testing.T) {
	router, _, _ := newTestEnv(t)

	doJSON(t, router, "POST", "/api/v1/enter", api.EnterRequest{Sender: testAddr(0x02).Hex(), Amount: "1000"})

	w := doJSON(t, router, "POST", "/api/v1/settle", api.SettleRequest{Sender: testAddr(0x02).Hex()})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSettle_SucceedsAfterDelayAndClearsPending(t *testing.T) {
	router, host, eng := newTestEnv(t)

	doJSON(t, router, "POST", "/api/v1/enter", api.EnterRequest{Sender: testAddr(0x02).Hex(), Amount: "1000"})
	host.AdvanceBlocks(3)

	w := doJSON(t, router, "POST", "/api/v1/settle", api.SettleRequest{Sender: testAddr(0x09).Hex()})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if eng.HasPending() {
		t.Errorf("expected pending ticket to be cleared after settlement")
	}
}

func TestSponsor_RejectsBelowMinimum(t *testing.T) {
	router, host, _ := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/sponsor", api.SponsorRequest{
		Sender:  testAddr(0x05).Hex(),
		Amount:  "1",
		Message: "gm",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if bal := host.ContractBalance(); !bal.IsZero() {
		t.Errorf("contract balance after rejected sponsor = %s, want 0", bal)
	}
}

func TestSponsor_FirstBidIsAccepted(t *testing.T) {
	router, _, _ := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/sponsor", api.SponsorRequest{
		Sender:  testAddr(0x05).Hex(),
		Amount:  "1000000000000000000",
		Message: "gm hot potato",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, "GET", "/api/v1/sponsor", nil)
	var resp api.SponsorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Present {
		t.Errorf("expected a sponsor to be present")
	}
	if resp.Message != "gm hot potato" {
		t.Errorf("Message = %q, want %q", resp.Message, "gm hot potato")
	}
}

func TestUpdateCreator_RejectsNonCreator(t *testing.T) {
	router, _, _ := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/creator", api.UpdateCreatorRequest{
		Sender:     testAddr(0x99).Hex(),
		NewCreator: testAddr(0x77).Hex(),
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateCreator_SucceedsForCurrentCreator(t *testing.T) {
	router, _, eng := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/creator", api.UpdateCreatorRequest{
		Sender:     testAddr(0x01).Hex(),
		NewCreator: testAddr(0x77).Hex(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if eng.CreatorAddress() != testAddr(0x77) {
		t.Errorf("creator not updated")
	}
}

func TestGetRound_NotFoundWhenUnknown(t *testing.T) {
	router, _, _ := newTestEnv(t)

	w := doJSON(t, router, "GET", "/api/v1/rounds/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}
