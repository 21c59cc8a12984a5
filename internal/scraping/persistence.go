package scraping

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/database"
)

// levelsStore is the narrow persistence trait the engine uses to
// survive restarts without re-running a synchronous 30-day backfill
// before the first monitoring tick (spec §6). Satisfied implicitly by
// *database.DB.
type levelsStore interface {
	UpsertProfitScrapingLevels(ctx context.Context, row database.ProfitScrapingLevelsRow) error
	GetProfitScrapingLevels(ctx context.Context, symbol string) (database.ProfitScrapingLevelsRow, bool, error)
	ListProfitScrapingSymbols(ctx context.Context) ([]string, error)
}

// SetPersistence wires optional durable level storage and trailing
// state mirroring. Both are nil-safe: an Engine built without either
// behaves exactly as before, it just loses restart recovery.
func (e *Engine) SetPersistence(repo levelsStore, trailingCache *RedisStateCache) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repo = repo
	e.trailingCache = trailingCache
}

// persistLevels mirrors a freshly computed level/magnet set to the
// durable store. Fire-and-forget: a write failure is logged but never
// blocks analysis, matching the mlSink fire-and-forget contract.
func (e *Engine) persistLevels(ctx context.Context, symbol string, priceLevels []coretypes.PriceLevel, magnetLevels []coretypes.MagnetLevel) {
	if e.repo == nil {
		return
	}
	priceJSON, err := json.Marshal(priceLevels)
	if err != nil {
		e.log.Error("failed to marshal price levels", "symbol", symbol, "error", err)
		return
	}
	magnetJSON, err := json.Marshal(magnetLevels)
	if err != nil {
		e.log.Error("failed to marshal magnet levels", "symbol", symbol, "error", err)
		return
	}
	row := database.ProfitScrapingLevelsRow{
		Symbol:       symbol,
		PriceLevels:  priceJSON,
		MagnetLevels: magnetJSON,
		ComputedAt:   time.Now(),
	}
	if err := e.repo.UpsertProfitScrapingLevels(ctx, row); err != nil {
		e.log.Error("failed to persist profit scraping levels", "symbol", symbol, "error", err)
	}
}

// preloadLevels restores the last persisted level snapshot for each
// symbol so Status()/Opportunities() are non-empty before the first
// runInitialAnalysis pass completes.
func (e *Engine) preloadLevels(ctx context.Context, symbols []string) {
	if e.repo == nil {
		return
	}
	for _, symbol := range symbols {
		row, ok, err := e.repo.GetProfitScrapingLevels(ctx, symbol)
		if err != nil {
			e.log.Warn("failed to preload profit scraping levels", "symbol", symbol, "error", err)
			continue
		}
		if !ok {
			continue
		}
		var priceLevels []coretypes.PriceLevel
		var magnetLevels []coretypes.MagnetLevel
		if err := json.Unmarshal(row.PriceLevels, &priceLevels); err != nil {
			e.log.Warn("failed to decode preloaded price levels", "symbol", symbol, "error", err)
			continue
		}
		if err := json.Unmarshal(row.MagnetLevels, &magnetLevels); err != nil {
			e.log.Warn("failed to decode preloaded magnet levels", "symbol", symbol, "error", err)
			continue
		}

		e.mu.Lock()
		st, ok := e.states[symbol]
		if !ok {
			st = &symbolState{}
			e.states[symbol] = st
		}
		st.priceLevels = priceLevels
		st.magnetLevels = magnetLevels
		if e.trailingCache != nil {
			if tol, ok := e.trailingCache.LoadTolerance(ctx, symbol); ok {
				st.tolerance = tol
			}
		}
		e.mu.Unlock()

		e.log.Info("preloaded profit scraping levels from last snapshot", "symbol", symbol, "computed_at", row.ComputedAt)
	}
}

// ResumeTrade re-admits a trade that was active when the process last
// stopped, restoring its mirrored trailing state from Redis if one is
// cached. Exposed for an operator recovery path; the engine never
// calls this on its own.
func (e *Engine) ResumeTrade(ctx context.Context, trade *coretypes.ActiveTrade) error {
	if trade == nil || trade.TradeID == "" {
		return fmt.Errorf("resume trade: missing trade id")
	}
	if e.trailingCache != nil {
		if state, ok := e.trailingCache.LoadTrailing(ctx, trade.TradeID); ok {
			trade.Trailing = state
		}
	}
	e.lifecycleMgr.Add(trade)
	e.log.Info("resumed trade", "trade_id", trade.TradeID, "symbol", trade.Symbol)
	return nil
}
