package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"binance-trading-bot/internal/ai/ml"
	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

// scrapingExecutor is a dry-run coretypes.Executor: it logs the trade
// the core would place and derives P&L off live market data on close,
// but it never books a fill or holds virtual balance, unlike the
// autopilot Controller's own DryRun path (internal/autopilot/
// controller.go executeDecision). It exists only to make the
// profit-scraping core reachable end-to-end from main() until a real
// execution backend is plugged in behind the same coretypes.Executor
// trait.
type scrapingExecutor struct {
	log             *logging.Logger
	md              coretypes.MarketData
	positionSizeUSD float64

	mu     sync.Mutex
	trades map[string]*dryRunTrade
}

type dryRunTrade struct {
	symbol     string
	side       coretypes.Side
	entryPrice float64
	quantity   float64
	entryTime  time.Time
}

func newScrapingExecutor(md coretypes.MarketData, positionSizeUSD float64, log *logging.Logger) *scrapingExecutor {
	return &scrapingExecutor{
		log:             log.WithComponent("scraping.dryrun_executor"),
		md:              md,
		positionSizeUSD: positionSizeUSD,
		trades:          make(map[string]*dryRunTrade),
	}
}

func (e *scrapingExecutor) Execute(ctx context.Context, signal coretypes.TradeSignal) (string, error) {
	tradeID := uuid.New().String()
	leverage := signal.OptimalLeverage
	if leverage <= 0 {
		leverage = 1
	}
	quantity := (e.positionSizeUSD * leverage) / signal.EntryPrice

	e.mu.Lock()
	e.trades[tradeID] = &dryRunTrade{
		symbol:     signal.Symbol,
		side:       signal.Side,
		entryPrice: signal.EntryPrice,
		quantity:   quantity,
		entryTime:  time.Now(),
	}
	e.mu.Unlock()

	e.log.Info("dry run entry", "trade_id", tradeID, "symbol", signal.Symbol, "side", signal.Side,
		"entry_price", signal.EntryPrice, "stop_loss", signal.StopLoss, "profit_target", signal.ProfitTarget,
		"strategy", signal.StrategyTag)
	return tradeID, nil
}

func (e *scrapingExecutor) Close(ctx context.Context, tradeID string, reason coretypes.ExitReason) (coretypes.TradeCloseResult, error) {
	e.mu.Lock()
	trade, ok := e.trades[tradeID]
	if ok {
		delete(e.trades, tradeID)
	}
	e.mu.Unlock()
	if !ok {
		return coretypes.TradeCloseResult{}, fmt.Errorf("dry run executor: unknown trade %s", tradeID)
	}

	exitPrice, err := e.md.LastPrice(ctx, trade.symbol)
	if err != nil {
		e.log.Warn("dry run exit: falling back to entry price, last price unavailable", "trade_id", tradeID, "error", err)
		exitPrice = trade.entryPrice
	}

	pnlPct := (exitPrice - trade.entryPrice) / trade.entryPrice
	if trade.side == coretypes.Short {
		pnlPct = -pnlPct
	}
	pnlUSD := pnlPct * trade.entryPrice * trade.quantity

	e.log.Info("dry run exit", "trade_id", tradeID, "symbol", trade.symbol, "exit_price", exitPrice,
		"reason", reason, "pnl_usd", pnlUSD, "pnl_pct", pnlPct)

	return coretypes.TradeCloseResult{
		EntryPrice: trade.entryPrice,
		ExitPrice:  exitPrice,
		PnLUSD:     pnlUSD,
		PnLPct:     pnlPct,
		Duration:   time.Since(trade.entryTime),
		ExitReason: reason,
	}, nil
}

func (e *scrapingExecutor) IsReal() bool { return false }

// mlSinkAdapter forwards profit-scraping trade outcomes into the
// shared ML predictor's feedback loop (internal/ai/ml.Predictor),
// completing the Predict/RecordOutcome cycle the scanner and autopilot
// analyzers already drive for the same symbols. Nil-safe: with AI
// disabled the predictor is nil and RecordTradeOutcome is a no-op.
type mlSinkAdapter struct {
	predictor *ml.Predictor
}

func (a *mlSinkAdapter) RecordTradeOutcome(ctx context.Context, outcome coretypes.TradeOutcome) {
	if a.predictor == nil {
		return
	}
	a.predictor.RecordOutcome(outcome.Symbol, ml.Timeframe60s, outcome.PnLPct)
}
