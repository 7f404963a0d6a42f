// Package api provides the HTTP handlers exposing the settlement engine's
// operations and read views over chi (spec.md §6, SPEC_FULL.md "HTTP
// surface"). Grounded on the teacher codebase's internal/trade.Service:
// decode request -> validate -> serialize with a mutex -> mutate ->
// respond, in that order, with the same writeError JSON envelope.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"github.com/DenhamPreen/hot-potato/internal/chainhost"
	"github.com/DenhamPreen/hot-potato/internal/engine"
	"github.com/DenhamPreen/hot-potato/internal/indexer"
)

// valueReceiver lands a call's attached value on the contract balance
// before the operation's body runs, the same way msg.value behaves on a
// real chain, and can unwind that credit if the body then reverts.
// SimulatedHost is the only implementation.
type valueReceiver interface {
	CreditContract(amount *uint256.Int)
	DebitContract(amount *uint256.Int)
}

// Service exposes the engine's operations and read views over HTTP.
// Enter/Settle/Sponsor/Deposit/UpdateCreator serialize on the engine's own
// mutex, mirroring the teacher service's single-instance trade lock —
// there is exactly one *engine.Engine per process (spec.md §5).
type Service struct {
	eng  *engine.Engine
	host valueReceiver
	idx  indexer.Store
}

// NewService creates a new API service. host lands each request's
// attached value on the simulated contract balance before the matching
// engine operation runs. Pass nil for idx if historical round lookups
// should always 404 (e.g. in tests that don't care about the indexer).
func NewService(eng *engine.Engine, host valueReceiver, idx indexer.Store) *Service {
	return &Service{eng: eng, host: host, idx: idx}
}

// --- Request/response types ---

// EnterRequest is the JSON body for POST /api/v1/enter.
type EnterRequest struct {
	Sender string `json:"sender"`
	Amount string `json:"amount"` // decimal-string wei
}

// SettleRequest is the JSON body for POST /api/v1/settle.
type SettleRequest struct {
	Sender string `json:"sender"`
}

// SponsorRequest is the JSON body for POST /api/v1/sponsor.
type SponsorRequest struct {
	Sender  string `json:"sender"`
	Amount  string `json:"amount"`
	Message string `json:"message"`
}

// UpdateCreatorRequest is the JSON body for POST /api/v1/creator.
type UpdateCreatorRequest struct {
	Sender     string `json:"sender"`
	NewCreator string `json:"new_creator"`
}

// DepositRequest is the JSON body for POST /api/v1/deposit.
type DepositRequest struct {
	Sender string `json:"sender"`
	Amount string `json:"amount"`
}

// StateResponse is the JSON body returned from GET /api/v1/state.
type StateResponse struct {
	BaseEntryPrice     string `json:"base_entry_price"`
	PriceMultiplierBps uint64 `json:"price_multiplier_bps"`
	CurrentEntryPrice  string `json:"current_entry_price"`
	CurrentRoundID     uint64 `json:"current_round_id"`
	CurrentHolder      string `json:"current_holder"`
	CreatorAddress     string `json:"creator_address"`
	KeeperReward       string `json:"keeper_reward"`
	CreatorFee         string `json:"creator_fee"`
	PotBalance         string `json:"pot_balance"`
	SponsorReserved    string `json:"sponsor_reserved"`
	AvailablePot       string `json:"available_pot"`
	HasPending         bool   `json:"has_pending"`
	PendingTargetBlock uint64 `json:"pending_target_block,omitempty"`
}

// SponsorResponse is the JSON body returned from GET /api/v1/sponsor.
type SponsorResponse struct {
	Present bool   `json:"present"`
	Sponsor string `json:"sponsor,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Message string `json:"message,omitempty"`
}

// --- HTTP Handlers ---

// Enter handles POST /api/v1/enter.
func (s *Service) Enter(w http.ResponseWriter, r *http.Request) {
	var req EnterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sender, err := chainhost.ParseAddress(req.Sender)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	value, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, "invalid value: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.eng.Lock()
	defer s.eng.Unlock()

	s.host.CreditContract(value)
	if err := s.eng.Enter(sender, value); err != nil {
		s.host.DebitContract(value)
		writeEngineError(w, err)
		return
	}

	slog.Info("potato taken", "sender", sender.Hex(), "value", value.String(), "round", s.eng.CurrentRoundID())
	writeState(w, s.eng)
}

// Settle handles POST /api/v1/settle.
func (s *Service) Settle(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sender, err := chainhost.ParseAddress(req.Sender)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.eng.Lock()
	defer s.eng.Unlock()

	if err := s.eng.Settle(sender); err != nil {
		writeEngineError(w, err)
		return
	}

	slog.Info("settlement executed", "keeper", sender.Hex(), "round", s.eng.CurrentRoundID())
	writeState(w, s.eng)
}

// Sponsor handles POST /api/v1/sponsor.
func (s *Service) Sponsor(w http.ResponseWriter, r *http.Request) {
	var req SponsorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sender, err := chainhost.ParseAddress(req.Sender)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	value, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, "invalid value: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.eng.Lock()
	defer s.eng.Unlock()

	s.host.CreditContract(value)
	if err := s.eng.Sponsor(sender, value, []byte(req.Message)); err != nil {
		s.host.DebitContract(value)
		writeEngineError(w, err)
		return
	}

	slog.Info("sponsor slot updated", "sponsor", sender.Hex(), "value", value.String())
	writeState(w, s.eng)
}

// UpdateCreator handles POST /api/v1/creator.
func (s *Service) UpdateCreator(w http.ResponseWriter, r *http.Request) {
	var req UpdateCreatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sender, err := chainhost.ParseAddress(req.Sender)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	newCreator, err := chainhost.ParseAddress(req.NewCreator)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.eng.Lock()
	defer s.eng.Unlock()

	if err := s.eng.UpdateCreator(sender, newCreator); err != nil {
		writeEngineError(w, err)
		return
	}

	writeState(w, s.eng)
}

// Deposit handles POST /api/v1/deposit — the passive deposit path for
// value attached to a call that isn't one of the explicit operations
// above (spec.md §6).
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	value, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, "invalid value: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.eng.Lock()
	defer s.eng.Unlock()

	s.host.CreditContract(value)
	if err := s.eng.Deposit(value); err != nil {
		s.host.DebitContract(value)
		writeEngineError(w, err)
		return
	}

	writeState(w, s.eng)
}

// State handles GET /api/v1/state.
func (s *Service) State(w http.ResponseWriter, r *http.Request) {
	s.eng.Lock()
	defer s.eng.Unlock()
	writeState(w, s.eng)
}

// GetSponsor handles GET /api/v1/sponsor.
func (s *Service) GetSponsor(w http.ResponseWriter, r *http.Request) {
	s.eng.Lock()
	defer s.eng.Unlock()

	resp := SponsorResponse{}
	if slot, ok := s.eng.CurrentSponsor(); ok {
		resp.Present = true
		resp.Sponsor = slot.Sponsor.Hex()
		resp.Amount = slot.Amount.String()
		resp.Message = string(slot.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetRound handles GET /api/v1/rounds/{id} — the indexer-backed
// historical round record.
func (s *Service) GetRound(w http.ResponseWriter, r *http.Request) {
	if s.idx == nil {
		writeError(w, "round history is not available", http.StatusNotFound)
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		writeError(w, "invalid round id", http.StatusBadRequest)
		return
	}

	rec, err := s.idx.GetRound(r.Context(), id)
	if err != nil {
		writeError(w, "round not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// --- helpers ---

func writeState(w http.ResponseWriter, e *engine.Engine) {
	targetBlock, hasPending := e.PendingTargetBlock()
	resp := StateResponse{
		BaseEntryPrice:     e.BaseEntryPrice().String(),
		PriceMultiplierBps: e.PriceMultiplierBps(),
		CurrentEntryPrice:  e.CurrentEntryPrice().String(),
		CurrentRoundID:     e.CurrentRoundID(),
		CurrentHolder:      e.CurrentHolder().Hex(),
		CreatorAddress:     e.CreatorAddress().Hex(),
		KeeperReward:       e.KeeperReward().String(),
		CreatorFee:         e.CreatorFee().String(),
		PotBalance:         e.PotBalance().String(),
		SponsorReserved:    e.SponsorReserved().String(),
		AvailablePot:       e.AvailablePot().String(),
		HasPending:         e.HasPending(),
	}
	if hasPending {
		resp.PendingTargetBlock = targetBlock
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return engine.ZeroAmount(), nil
	}
	return uint256.FromDecimal(s)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeEngineError maps a typed engine precondition error to an HTTP
// status code (spec.md §7): mandatory validation failures revert with a
// structured error body instead of a generic 500.
func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	var invalidAmount *engine.InvalidAmount
	var alreadyPlayed *engine.AlreadyPlayedThisRound
	switch {
	case errors.As(err, &invalidAmount), errors.As(err, &alreadyPlayed):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrPendingAttemptExists),
		errors.Is(err, engine.ErrNoPendingAttempt),
		errors.Is(err, engine.ErrTooSoonToSettle),
		errors.Is(err, engine.ErrStaleBlockhash),
		errors.Is(err, engine.ErrMaxParticipantsReached):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNotCreator):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrReentrancyDetected):
		status = http.StatusInternalServerError
	}

	writeError(w, err.Error(), status)
}
