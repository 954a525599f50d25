package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/optimizer"
	"momentum-signal-engine/internal/scoring"
)

// Request size limits. Bulk evaluation is sequential behind the provider
// queue, so a large batch holds its HTTP request open for a long time.
const maxBulkSymbols = 20

type signalRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

type bulkSignalRequest struct {
	Symbols []string `json:"symbols" binding:"required"`
}

type trackEntryRequest struct {
	Symbol           string                       `json:"symbol" binding:"required"`
	EntryPrice       float64                      `json:"entry_price" binding:"required"`
	SignalConfidence float64                      `json:"signal_confidence"`
	BreakoutType     string                       `json:"breakout_type"`
	EntryQuality     *scoring.EntryQualityMetrics `json:"entry_quality,omitempty"`
}

type closeTradeRequest struct {
	ExitPrice float64 `json:"exit_price" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"time":           time.Now().UTC(),
		"queue_depth":    s.requestQ.GetStats().CurrentQueueDepth,
		"stream_clients": s.hub.ClientCount(),
	})
}

// handleSignal evaluates one symbol through the full pipeline
func (s *Server) handleSignal(c *gin.Context) {
	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	symbol := normalizeSymbol(req.Symbol)

	eval := s.pipe.Evaluate(c.Request.Context(), symbol)
	c.JSON(http.StatusOK, eval)
}

// handleSignalsBulk evaluates up to maxBulkSymbols sequentially
func (s *Server) handleSignalsBulk(c *gin.Context) {
	var req bulkSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols list is required"})
		return
	}
	if len(req.Symbols) > maxBulkSymbols {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "too many symbols",
			"max":   maxBulkSymbols,
		})
		return
	}

	symbols := make([]string, 0, len(req.Symbols))
	for _, sym := range req.Symbols {
		symbols = append(symbols, normalizeSymbol(sym))
	}

	evals := s.pipe.EvaluateBulk(c.Request.Context(), symbols)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(evals),
		"signals": evals,
	})
}

// handleStats reports queue and cache statistics
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"queue": s.requestQ.GetStats(),
		"cache": s.tiered.GetStats(),
	})
}

// handlePerformance reports the optimizer's latest aggregate view
func (s *Server) handlePerformance(c *gin.Context) {
	c.JSON(http.StatusOK, s.optim.LatestReport())
}

// handleThresholds reports the current adaptive threshold generation
func (s *Server) handleThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, s.thresholds.Snapshot())
}

func (s *Server) handleTrades(c *gin.Context) {
	open, closed := s.optim.Trades()
	c.JSON(http.StatusOK, gin.H{
		"open":   open,
		"closed": closed,
	})
}

// handleTrackEntry registers an externally executed trade for feedback
func (s *Server) handleTrackEntry(c *gin.Context) {
	var req trackEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and entry_price are required"})
		return
	}

	id := s.optim.TrackEntry(normalizeSymbol(req.Symbol), req.EntryPrice, optimizer.EntryMetadata{
		Confidence:   req.SignalConfidence,
		BreakoutType: analysis.BreakoutType(req.BreakoutType),
		Metrics:      req.EntryQuality,
	})
	c.JSON(http.StatusCreated, gin.H{"trade_id": id})
}

// handleCloseTrade records a trade exit and returns the closed record
func (s *Server) handleCloseTrade(c *gin.Context) {
	var req closeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exit_price is required"})
		return
	}

	rec, err := s.optim.TrackExit(c.Request.Context(), c.Param("id"), req.ExitPrice)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
