package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"binance-trading-bot/internal/coretypes"
)

// ==================== PROFIT SCRAPING ENDPOINTS ====================
// Control surface for the level-discovery / hybrid trailing-stop engine

// handleScrapingStatus returns the engine's current status snapshot.
// GET /api/profit-scraping/status
func (s *Server) handleScrapingStatus(c *gin.Context) {
	if s.scrapingEngine == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Profit scraping engine not configured")
		return
	}

	status := s.scrapingEngine.Status()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  status,
	})
}

// handleScrapingStart begins monitoring the given symbols.
// POST /api/profit-scraping/start  body: {"symbols": ["BTCUSDT", "ETHUSDT"]}
func (s *Server) handleScrapingStart(c *gin.Context) {
	if s.scrapingEngine == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Profit scraping engine not configured")
		return
	}

	var req struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Symbols) == 0 {
		errorResponse(c, http.StatusBadRequest, "At least one symbol is required")
		return
	}

	symbols := make([]string, 0, len(req.Symbols))
	for _, raw := range req.Symbols {
		symbol, err := validateSymbol(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "Invalid symbol "+raw+": "+err.Error())
			return
		}
		symbols = append(symbols, symbol)
	}

	started := s.scrapingEngine.StartScraping(symbols)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"started": started,
		"symbols": symbols,
	})
}

// handleScrapingStop halts monitoring and closes every open trade with
// the manual-stop exit reason.
// POST /api/profit-scraping/stop
func (s *Server) handleScrapingStop(c *gin.Context) {
	if s.scrapingEngine == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Profit scraping engine not configured")
		return
	}

	s.scrapingEngine.StopScraping()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleScrapingOpportunities returns the top-ranked opportunities per
// monitored symbol.
// GET /api/profit-scraping/opportunities
func (s *Server) handleScrapingOpportunities(c *gin.Context) {
	if s.scrapingEngine == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Profit scraping engine not configured")
		return
	}

	opportunities := s.scrapingEngine.Opportunities()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"opportunities": opportunities,
	})
}

// handleScrapingSignals returns trade signals that have cleared the
// entry gate and are ready for execution.
// GET /api/profit-scraping/signals
func (s *Server) handleScrapingSignals(c *gin.Context) {
	if s.scrapingEngine == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Profit scraping engine not configured")
		return
	}

	signals := s.scrapingEngine.ReadyToTradeSignals(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"signals": signals,
		"count":   len(signals),
	})
}

// handleScrapingLevels returns the currently identified price levels
// and magnet levels for one symbol.
// GET /api/profit-scraping/levels/:symbol
func (s *Server) handleScrapingLevels(c *gin.Context) {
	if s.scrapingEngine == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Profit scraping engine not configured")
		return
	}

	symbol, err := validateSymbol(strings.ToUpper(c.Param("symbol")))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid symbol: "+err.Error())
		return
	}

	priceLevels, magnetLevels := s.scrapingEngine.IdentifiedLevels(symbol)
	resp := gin.H{
		"success":       true,
		"symbol":        symbol,
		"price_levels":  priceLevels,
		"magnet_levels": magnetLevels,
	}
	if tol, ok := s.scrapingEngine.Tolerance(symbol); ok {
		resp["tolerance"] = tol
	}
	c.JSON(http.StatusOK, resp)
}

// handleScrapingResumeTrade re-admits a trade that was still open when
// the process last stopped, restoring its mirrored trailing state from
// the Redis cache if one was saved before shutdown.
// POST /api/profit-scraping/resume
func (s *Server) handleScrapingResumeTrade(c *gin.Context) {
	if s.scrapingEngine == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Profit scraping engine not configured")
		return
	}

	var req struct {
		TradeID      string  `json:"trade_id"`
		Symbol       string  `json:"symbol"`
		Side         string  `json:"side"`
		EntryPrice   float64 `json:"entry_price"`
		Quantity     float64 `json:"quantity"`
		Leverage     float64 `json:"leverage"`
		ProfitTarget float64 `json:"profit_target"`
		StopLoss     float64 `json:"stop_loss"`
		EntryTime    string  `json:"entry_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.TradeID == "" || req.Symbol == "" {
		errorResponse(c, http.StatusBadRequest, "trade_id and symbol are required")
		return
	}

	entryTime := time.Now()
	if req.EntryTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.EntryTime)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "Invalid entry_time: "+err.Error())
			return
		}
		entryTime = parsed
	}

	trade := &coretypes.ActiveTrade{
		TradeID:      req.TradeID,
		Symbol:       req.Symbol,
		Side:         coretypes.Side(strings.ToUpper(req.Side)),
		EntryPrice:   req.EntryPrice,
		Quantity:     req.Quantity,
		Leverage:     req.Leverage,
		ProfitTarget: req.ProfitTarget,
		StopLoss:     req.StopLoss,
		EntryTime:    entryTime,
	}

	if err := s.scrapingEngine.ResumeTrade(c.Request.Context(), trade); err != nil {
		errorResponse(c, http.StatusBadRequest, "Failed to resume trade: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "trade_id": req.TradeID})
}
