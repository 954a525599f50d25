package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"momentum-signal-engine/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Stream pacing. Each tick evaluates every subscribed symbol through the
// technical path, which rides the provider queue, so the interval stays
// well above the queue's per-request spacing.
const (
	streamInterval = 60 * time.Second
	writeWait      = 10 * time.Second
	pongWait       = 90 * time.Second
)

// streamUpdate is one pushed message per symbol per tick
type streamUpdate struct {
	Symbol     string    `json:"symbol"`
	Confidence float64   `json:"confidence"`
	Action     string    `json:"action"`
	Strength   string    `json:"strength"`
	Timestamp  time.Time `json:"timestamp"`
}

// streamClient is one WebSocket subscriber with its symbol set
type streamClient struct {
	conn    *websocket.Conn
	send    chan []byte
	symbols map[string]bool
}

// StreamHub pushes periodic technical-confidence updates to subscribers
type StreamHub struct {
	pipe       *pipeline.Pipeline
	clients    map[*streamClient]bool
	register   chan *streamClient
	unregister chan *streamClient
	mu         sync.RWMutex
	logger     zerolog.Logger
}

func NewStreamHub(pipe *pipeline.Pipeline, logger zerolog.Logger) *StreamHub {
	return &StreamHub{
		pipe:       pipe,
		clients:    make(map[*streamClient]bool),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		logger:     logger.With().Str("component", "stream_hub").Logger(),
	}
}

// Run owns the client set and the evaluation ticker until ctx is cancelled
func (h *StreamHub) Run(ctx context.Context) {
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug().Int("clients", h.ClientCount()).Msg("Stream client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug().Int("clients", h.ClientCount()).Msg("Stream client disconnected")

		case <-ticker.C:
			h.pushUpdates(ctx)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// pushUpdates evaluates the union of subscribed symbols once and fans the
// per-symbol updates out to the clients watching them.
func (h *StreamHub) pushUpdates(ctx context.Context) {
	symbols := h.subscribedSymbols()
	for _, symbol := range symbols {
		confidence, sig := h.pipe.TechnicalConfidence(ctx, symbol)
		update := streamUpdate{
			Symbol:     symbol,
			Confidence: confidence,
			Action:     string(sig.Action),
			Strength:   string(sig.Strength),
			Timestamp:  time.Now(),
		}
		data, err := json.Marshal(update)
		if err != nil {
			h.logger.Error().Err(err).Msg("Could not marshal stream update")
			continue
		}
		h.fanOut(symbol, data)
	}
}

func (h *StreamHub) subscribedSymbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	var symbols []string
	for client := range h.clients {
		for symbol := range client.symbols {
			if !seen[symbol] {
				seen[symbol] = true
				symbols = append(symbols, symbol)
			}
		}
	}
	return symbols
}

func (h *StreamHub) fanOut(symbol string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.symbols[symbol] {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Slow consumer; drop the frame rather than block the hub
		}
	}
}

func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConnection upgrades the request and runs the read/write pumps.
// Symbols come from the comma-separated "symbols" query parameter.
func (h *StreamHub) HandleConnection(c *gin.Context) {
	raw := c.Query("symbols")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols query parameter is required"})
		return
	}
	symbols := make(map[string]bool)
	for _, sym := range strings.Split(raw, ",") {
		if trimmed := normalizeSymbol(sym); trimmed != "" {
			symbols[trimmed] = true
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &streamClient{
		conn:    conn,
		send:    make(chan []byte, 64),
		symbols: symbols,
	}
	h.register <- client

	go h.writePump(client)
	go h.readPump(client)
}

func (h *StreamHub) writePump(client *streamClient) {
	defer client.conn.Close()
	for data := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	client.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards inbound frames; it exists to detect disconnects
func (h *StreamHub) readPump(client *streamClient) {
	defer func() {
		h.unregister <- client
		client.conn.Close()
	}()
	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
