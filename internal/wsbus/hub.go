// Package wsbus broadcasts engine.Event to connected WebSocket clients in
// real time. It implements engine.Sink so a settlement operation's events
// can be fanned out to dashboards alongside metrics and the indexer,
// without any of those consumers being able to block or fail the
// operation itself (spec.md §1, §4.3 "Ordering note").
package wsbus

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DenhamPreen/hot-potato/internal/engine"
)

// wireEvent is the JSON shape broadcast to clients. Amounts travel as
// decimal-string wei, the same convention the HTTP API uses, since JSON
// numbers cannot represent 256-bit integers losslessly.
type wireEvent struct {
	Kind         engine.Kind `json:"kind"`
	Player       string      `json:"player,omitempty"`
	PricePaid    string      `json:"price_paid,omitempty"`
	TargetBlock  uint64      `json:"target_block,omitempty"`
	RoundID      uint64      `json:"round_id"`
	Win          bool        `json:"win,omitempty"`
	Randomness   string      `json:"randomness,omitempty"`
	Keeper       string      `json:"keeper,omitempty"`
	Holder       string      `json:"holder,omitempty"`
	NewPrice     string      `json:"new_price,omitempty"`
	PayoutAmount string      `json:"payout_amount,omitempty"`
	NumEligible  int         `json:"num_eligible,omitempty"`
	PotAfter     string      `json:"pot_after,omitempty"`
	NewPot       string      `json:"new_pot,omitempty"`
	Sponsor      string      `json:"sponsor,omitempty"`
	Amount       string      `json:"amount,omitempty"`
	Message      string      `json:"message,omitempty"`
	PrevSponsor  string      `json:"prev_sponsor,omitempty"`
	RefundAmount string      `json:"refund_amount,omitempty"`
	Participant  string      `json:"participant,omitempty"`
}

func toWire(e engine.Event) wireEvent {
	w := wireEvent{Kind: e.Kind, RoundID: e.RoundID, Win: e.Win, TargetBlock: e.TargetBlock, NumEligible: e.NumEligible}
	if !e.Player.IsZero() {
		w.Player = e.Player.Hex()
	}
	if e.PricePaid != nil {
		w.PricePaid = e.PricePaid.String()
	}
	if e.Randomness != nil {
		w.Randomness = e.Randomness.String()
	}
	if !e.Keeper.IsZero() {
		w.Keeper = e.Keeper.Hex()
	}
	if !e.Holder.IsZero() {
		w.Holder = e.Holder.Hex()
	}
	if e.NewPrice != nil {
		w.NewPrice = e.NewPrice.String()
	}
	if e.PayoutAmount != nil {
		w.PayoutAmount = e.PayoutAmount.String()
	}
	if e.PotAfter != nil {
		w.PotAfter = e.PotAfter.String()
	}
	if e.NewPot != nil {
		w.NewPot = e.NewPot.String()
	}
	if !e.Sponsor.IsZero() {
		w.Sponsor = e.Sponsor.Hex()
	}
	if e.Amount != nil {
		w.Amount = e.Amount.String()
	}
	if e.Message != nil {
		w.Message = string(e.Message)
	}
	if !e.PrevSponsor.IsZero() {
		w.PrevSponsor = e.PrevSponsor.Hex()
	}
	if e.RefundAmount != nil {
		w.RefundAmount = e.RefundAmount.String()
	}
	if !e.Participant.IsZero() {
		w.Participant = e.Participant.Hex()
	}
	return w
}

// Hub manages WebSocket connections and broadcasts engine events to all
// connected clients. Structurally a line-for-line adaptation of the
// teacher codebase's WSHub: the same register/unregister/broadcast select
// loop, now fed by engine.Event instead of price ticks.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			slog.Info("ws client connected", "total", len(h.clients))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish implements engine.Sink. It never blocks the settlement
// operation: a full broadcast buffer drops the message rather than
// stalling the caller.
func (h *Hub) Publish(e engine.Event) {
	data, err := json.Marshal(toWire(e))
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if buffer full to avoid blocking settlement.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- conn

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			_, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()
}
