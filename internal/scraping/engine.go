// Package scraping wires the level/magnet/opportunity/lifecycle
// building blocks into the running profit-scraping engine: one
// goroutine per long-running concern, per-symbol keyed locking, and
// the control surface consumed by the API layer (spec §5, §6).
package scraping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/levels"
	"binance-trading-bot/internal/lifecycle"
	"binance-trading-bot/internal/logging"
	"binance-trading-bot/internal/magnets"
	"binance-trading-bot/internal/opportunity"
	"binance-trading-bot/internal/volatility"
)

const (
	monitorInterval    = 5 * time.Second
	reanalysisInterval = 10 * time.Minute
	reanalysisBatch    = 5
	reanalysisPause    = 500 * time.Millisecond

	monitorMaxRestarts = 3
	monitorBackoff     = 15 * time.Second

	defaultMaxTradesPerSymbol = 2
	quarantineThreshold       = 5
)

// EngineConfig is the immutable configuration an Engine is built with.
// TargetsMode is fixed for the engine's lifetime (spec §9): it is never
// mixed mid-run.
type EngineConfig struct {
	TargetsMode        coretypes.TargetsMode
	Execution          opportunity.ExecutionConfig
	MaxTradesPerSymbol int
	EngineType         string // surfaced as EngineStatus.TradingEngineType
}

// DefaultEngineConfig returns the §6 defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TargetsMode:        coretypes.TargetsRuleBased,
		Execution:          opportunity.DefaultExecutionConfig(),
		MaxTradesPerSymbol: defaultMaxTradesPerSymbol,
		EngineType:         "profit_scraping",
	}
}

type symbolState struct {
	priceLevels  []coretypes.PriceLevel
	magnetLevels []coretypes.MagnetLevel
	opportunities []coretypes.Opportunity
	trend        opportunity.TrendResult
	tolerance    coretypes.ToleranceProfile
	failures     int // per-symbol fatal quarantine counter (spec §7)
	quarantined  bool
}

// Engine is the running profit-scraping core: the Control Surface
// (§6) consumed by the API layer, plus the background goroutines that
// keep it fed.
type Engine struct {
	cfg EngineConfig
	log *logging.Logger

	md       coretypes.MarketData
	executor coretypes.Executor
	mlSink   coretypes.MLSink

	volModel       *volatility.Model
	levelAnalyzer  *levels.Analyzer
	magnetDetector *magnets.Detector
	lifecycleMgr   *lifecycle.Manager

	repo          levelsStore
	trailingCache *RedisStateCache

	mu      sync.RWMutex
	active  bool
	symbols []string
	states  map[string]*symbolState

	symbolLocksMu sync.Mutex
	symbolLocks   map[string]*sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time

	statsMu       sync.Mutex
	totalTrades   int
	winningTrades int
	totalProfit   float64
}

// NewEngine builds an Engine. md/executor/mlSink are the narrow
// collaborators (spec §6); the engine never holds execution-owned
// state directly.
func NewEngine(cfg EngineConfig, md coretypes.MarketData, executor coretypes.Executor, mlSink coretypes.MLSink, log *logging.Logger) *Engine {
	if cfg.MaxTradesPerSymbol <= 0 {
		cfg.MaxTradesPerSymbol = defaultMaxTradesPerSymbol
	}
	scoped := log.WithComponent("scraping")
	return &Engine{
		cfg:            cfg,
		log:            scoped,
		md:             md,
		executor:       executor,
		mlSink:         mlSink,
		volModel:       volatility.NewModel(md, scoped),
		levelAnalyzer:  levels.NewAnalyzer(md, scoped),
		magnetDetector: magnets.NewDetector(scoped),
		lifecycleMgr:   lifecycle.NewManager(scoped),
		states:         make(map[string]*symbolState),
		symbolLocks:    make(map[string]*sync.Mutex),
	}
}

func (e *Engine) symbolLock(symbol string) *sync.Mutex {
	e.symbolLocksMu.Lock()
	defer e.symbolLocksMu.Unlock()
	l, ok := e.symbolLocks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.symbolLocks[symbol] = l
	}
	return l
}

// StartScraping starts all background loops over symbols. Idempotent:
// calling it again while already active is a no-op that returns true.
func (e *Engine) StartScraping(symbols []string) bool {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return true
	}
	e.active = true
	e.symbols = append([]string(nil), symbols...)
	e.startTime = time.Now()
	for _, s := range e.symbols {
		e.states[s] = &symbolState{}
	}
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.preloadLevels(ctx, e.symbols)

	e.wg.Add(1)
	go e.runInitialAnalysis(ctx)

	e.wg.Add(1)
	go e.runMonitoringLoop(ctx)

	e.wg.Add(1)
	go e.runReanalysisLoop(ctx)

	e.wg.Add(1)
	go e.runLifecycleLoop(ctx)

	e.log.Info("profit scraping started", "symbols", len(e.symbols))
	return true
}

// StopScraping cancels every background task and closes all active
// trades with MANUAL_STOP.
func (e *Engine) StopScraping() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()

	ctx := context.Background()
	for _, trade := range e.lifecycleMgr.Snapshot() {
		result, err := e.executor.Close(ctx, trade.TradeID, coretypes.ExitManualStop)
		if err != nil {
			e.log.Error("manual stop close failed", "trade_id", trade.TradeID, "error", err)
			continue
		}
		e.recordOutcome(ctx, trade, result, coretypes.ExitManualStop)
		e.lifecycleMgr.MarkClosed(trade.TradeID)
		if e.trailingCache != nil {
			e.trailingCache.ForgetTrailing(ctx, trade.TradeID)
		}
	}
	e.log.Info("profit scraping stopped")
}

// Status returns the read-model EngineStatus snapshot (spec §3, §6).
func (e *Engine) Status() coretypes.EngineStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	levelCount, oppCount := 0, 0
	for _, st := range e.states {
		levelCount += len(st.priceLevels)
		oppCount += len(st.opportunities)
	}

	e.statsMu.Lock()
	totalTrades, winningTrades, totalProfit := e.totalTrades, e.winningTrades, e.totalProfit
	e.statsMu.Unlock()

	winRate := 0.0
	if totalTrades > 0 {
		winRate = float64(winningTrades) / float64(totalTrades)
	}

	uptime := 0.0
	if !e.startTime.IsZero() {
		uptime = time.Since(e.startTime).Minutes()
	}

	return coretypes.EngineStatus{
		Active:            e.active,
		MonitoredSymbols:  append([]string(nil), e.symbols...),
		ActiveTradeCount:  len(e.lifecycleMgr.Snapshot()),
		LevelCount:        levelCount,
		OpportunityCount:  oppCount,
		TotalTrades:       totalTrades,
		WinningTrades:     winningTrades,
		WinRate:           winRate,
		TotalProfit:       totalProfit,
		StartTime:         e.startTime,
		UptimeMinutes:     uptime,
		TradingEngineType: e.cfg.EngineType,
	}
}

// Opportunities returns the current per-symbol opportunity sets.
func (e *Engine) Opportunities() map[string][]coretypes.Opportunity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]coretypes.Opportunity, len(e.states))
	for sym, st := range e.states {
		out[sym] = append([]coretypes.Opportunity(nil), st.opportunities...)
	}
	return out
}

// IdentifiedLevels returns the price/magnet levels currently held for
// symbol.
func (e *Engine) IdentifiedLevels(symbol string) ([]coretypes.PriceLevel, []coretypes.MagnetLevel) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.states[symbol]
	if !ok {
		return nil, nil
	}
	return append([]coretypes.PriceLevel(nil), st.priceLevels...), append([]coretypes.MagnetLevel(nil), st.magnetLevels...)
}

// Tolerance returns the most recently known volatility tolerance
// profile for symbol, either from the last live analysis pass or,
// before that pass has run, from the Redis-mirrored snapshot restored
// at startup.
func (e *Engine) Tolerance(symbol string) (coretypes.ToleranceProfile, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.states[symbol]
	if !ok {
		return coretypes.ToleranceProfile{}, false
	}
	return st.tolerance, st.tolerance.Symbol != ""
}

// ReadyToTradeSignals evaluates the entry gate right now for every
// current opportunity and returns the signals that currently pass
// (spec §6: idempotent, read-only).
func (e *Engine) ReadyToTradeSignals(ctx context.Context) []coretypes.TradeSignal {
	var out []coretypes.TradeSignal
	for _, symbol := range e.symbolSnapshot() {
		price, err := e.md.LastPrice(ctx, symbol)
		if err != nil {
			continue
		}
		st := e.stateFor(symbol)
		if st == nil || st.quarantined {
			continue
		}
		tol := e.volModel.ToleranceProfile(ctx, symbol)
		for _, opp := range st.opportunities {
			side := opportunity.SideForLevel(opp.Level.Kind)
			in := opportunity.GateInput{
				Symbol:        symbol,
				Side:          side,
				Level:         opp.Level,
				CurrentPrice:  price,
				Now:           time.Now(),
				RecentCandles: e.recentCandles(ctx, symbol),
				Tolerance:     tol,
				Trend:         st.trend,
			}
			if rej := opportunity.EvaluateGate(in); rej != nil {
				continue
			}
			out = append(out, coretypes.TradeSignal{
				Symbol:          symbol,
				Side:            side,
				EntryPrice:      opp.Targets.EntryPrice,
				StopLoss:        opp.Targets.StopLoss,
				ProfitTarget:    opp.Targets.ProfitTarget,
				OptimalLeverage: e.cfg.Execution.Leverage,
				Confidence:      opp.Targets.Confidence,
				StrategyTag:     "profit_scraping",
				TPNetUSD:        opp.Targets.TPNetUSD,
				SLNetUSD:        opp.Targets.SLNetUSD,
				FloorNetUSD:     opp.Targets.FloorNetUSD,
			})
		}
	}
	return out
}

func (e *Engine) symbolSnapshot() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.symbols...)
}

func (e *Engine) stateFor(symbol string) *symbolState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.states[symbol]
}

func (e *Engine) recentCandles(ctx context.Context, symbol string) []coretypes.Candle {
	candles, err := e.md.Klines(ctx, symbol, "1h", 20)
	if err != nil {
		return nil
	}
	return candles
}

func (e *Engine) recordOutcome(ctx context.Context, trade *coretypes.ActiveTrade, result coretypes.TradeCloseResult, reason coretypes.ExitReason) {
	e.statsMu.Lock()
	e.totalTrades++
	if result.PnLUSD > 0 {
		e.winningTrades++
	}
	e.totalProfit += result.PnLUSD
	e.statsMu.Unlock()

	success := result.PnLUSD > 0
	systemType := coretypes.SystemPaper
	if e.executor.IsReal() {
		systemType = coretypes.SystemReal
	}
	e.mlSink.RecordTradeOutcome(ctx, coretypes.TradeOutcome{
		TradeID:         trade.TradeID,
		Symbol:          trade.Symbol,
		StrategyType:    "profit_scraping",
		SystemType:      systemType,
		ConfidenceScore: trade.Confidence,
		EntryPrice:      result.EntryPrice,
		ExitPrice:       result.ExitPrice,
		PnLPct:          result.PnLPct,
		DurationMinutes: int(result.Duration.Minutes()),
		ExitReason:      reason,
		Success:         success,
		EntryTime:       trade.EntryTime,
		ExitTime:        time.Now(),
	})
}

// targetsFor dispatches to the configured calculator, never mixing
// modes mid-run (spec §9).
func (e *Engine) targetsFor(level coretypes.PriceLevel, atrPct float64, regime coretypes.Regime, candles []coretypes.Candle, tol float64, magnet *coretypes.MagnetLevel) coretypes.TradingTargets {
	switch e.cfg.TargetsMode {
	case coretypes.TargetsATRAware:
		return opportunity.CalculateATRAwareTargets(level, atrPct, regime, e.cfg.Execution)
	case coretypes.TargetsStatistical:
		calc := opportunity.NewStatisticalCalculator(e.log)
		if t, ok := calc.CalculateTargets(level, candles, tol, magnet); ok {
			return t
		}
		return opportunity.CalculateRuleBasedTargets(level, e.cfg.Execution)
	default:
		return opportunity.CalculateRuleBasedTargets(level, e.cfg.Execution)
	}
}

// runInitialAnalysis runs once at startup over all symbols (spec §5).
func (e *Engine) runInitialAnalysis(ctx context.Context) {
	defer e.wg.Done()
	for _, symbol := range e.symbolSnapshot() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		e.analyzeSymbol(ctx, symbol)
	}
}

// analyzeSymbol runs the levels/magnets/opportunity pipeline for one
// symbol. Per-symbol keyed lock guarantees at most one analysis runs
// per symbol at a time (spec §5).
func (e *Engine) analyzeSymbol(ctx context.Context, symbol string) {
	lock := e.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.quarantine(symbol, fmt.Errorf("panic: %v", r))
		}
	}()

	tol := e.volModel.ToleranceProfile(ctx, symbol)
	if e.trailingCache != nil {
		e.trailingCache.SaveTolerance(ctx, tol)
	}

	priceLevels, err := e.levelAnalyzer.AnalyzeSymbol(ctx, symbol, tol)
	if err != nil {
		e.quarantine(symbol, err)
		return
	}

	price, err := e.md.LastPrice(ctx, symbol)
	if err != nil {
		e.quarantine(symbol, err)
		return
	}

	candles, err := e.md.Klines(ctx, symbol, "1h", 21*24)
	if err != nil {
		e.quarantine(symbol, err)
		return
	}

	magnetLevels := e.magnetDetector.DetectMagnetLevels(price, priceLevels, candles)
	trend := opportunity.DetectTrend(candles)

	opps := opportunity.BuildOpportunities(symbol, price, priceLevels, magnetLevels, func(level coretypes.PriceLevel) coretypes.TradingTargets {
		magnet := nearestMagnetFor(level, magnetLevels)
		return e.targetsFor(level, tol.AtrPct, tol.Regime, candles, tol.ValidationPct, magnet)
	}, time.Now())

	e.mu.Lock()
	st, ok := e.states[symbol]
	if !ok {
		st = &symbolState{}
		e.states[symbol] = st
	}
	st.priceLevels = priceLevels
	st.magnetLevels = magnetLevels
	st.opportunities = opps
	st.trend = trend
	st.tolerance = tol
	st.failures = 0
	st.quarantined = false
	e.mu.Unlock()

	e.persistLevels(ctx, symbol, priceLevels, magnetLevels)
}

func nearestMagnetFor(level coretypes.PriceLevel, magnetLevels []coretypes.MagnetLevel) *coretypes.MagnetLevel {
	return magnets.NearestMagnet(magnetLevels, level.Price)
}

// quarantine records a fatal failure for symbol; after
// quarantineThreshold consecutive failures the symbol is excluded from
// monitoring until the next reanalysis cycle resets the counter
// (spec §7, adapted from the teacher's internal/circuit bookkeeping
// style, scoped to one symbol instead of the whole account).
func (e *Engine) quarantine(symbol string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[symbol]
	if !ok {
		st = &symbolState{}
		e.states[symbol] = st
	}
	st.failures++
	if st.failures >= quarantineThreshold {
		st.quarantined = true
	}
	e.log.Warn("symbol analysis failed", "symbol", symbol, "error", err, "failures", st.failures)
}

// runMonitoringLoop ticks every monitorInterval, refreshing
// opportunities/signals for all symbols. It self-restarts up to
// monitorMaxRestarts times on unexpected panics, with a fixed backoff
// (spec §5 restart policy).
func (e *Engine) runMonitoringLoop(ctx context.Context) {
	defer e.wg.Done()
	restarts := 0
	for {
		err := e.monitoringBody(ctx)
		if err == nil {
			return // context cancelled, clean exit
		}
		restarts++
		e.log.Error("monitoring loop crashed, restarting", "error", err, "attempt", restarts)
		if restarts > monitorMaxRestarts {
			e.log.Error("monitoring loop exceeded restart budget, giving up")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(monitorBackoff):
		}
	}
}

func (e *Engine) monitoringBody(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, symbol := range e.symbolSnapshot() {
				st := e.stateFor(symbol)
				if st == nil || st.quarantined {
					continue
				}
				e.evaluateEntries(ctx, symbol)
			}
		}
	}
}

// evaluateEntries runs the entry gate for symbol's current
// opportunities and, when one passes and the per-symbol trade cap
// allows it, requests execution (spec §4.5.3, §5 backpressure).
func (e *Engine) evaluateEntries(ctx context.Context, symbol string) {
	price, err := e.md.LastPrice(ctx, symbol)
	if err != nil {
		return
	}
	st := e.stateFor(symbol)
	if st == nil {
		return
	}

	if e.openTradesForSymbol(symbol) >= e.cfg.MaxTradesPerSymbol {
		return
	}

	tol := e.volModel.ToleranceProfile(ctx, symbol)
	candles := e.recentCandles(ctx, symbol)

	for _, opp := range st.opportunities {
		side := opportunity.SideForLevel(opp.Level.Kind)
		in := opportunity.GateInput{
			Symbol:        symbol,
			Side:          side,
			Level:         opp.Level,
			CurrentPrice:  price,
			Now:           time.Now(),
			RecentCandles: candles,
			Tolerance:     tol,
			Trend:         st.trend,
		}
		rej := opportunity.EvaluateGate(in)
		if rej != nil {
			e.log.Debug("entry gate rejection", "symbol", symbol, "stage", rej.Stage, "reason", rej.Reason)
			continue
		}

		signal := coretypes.TradeSignal{
			Symbol:          symbol,
			Side:            side,
			EntryPrice:      opp.Targets.EntryPrice,
			StopLoss:        opp.Targets.StopLoss,
			ProfitTarget:    opp.Targets.ProfitTarget,
			OptimalLeverage: e.cfg.Execution.Leverage,
			Confidence:      opp.Targets.Confidence,
			StrategyTag:     "profit_scraping",
			TPNetUSD:        opp.Targets.TPNetUSD,
			SLNetUSD:        opp.Targets.SLNetUSD,
			FloorNetUSD:     opp.Targets.FloorNetUSD,
		}
		tradeID, err := e.executor.Execute(ctx, signal)
		if err != nil {
			e.log.Error("execute failed", "symbol", symbol, "error", err)
			continue
		}
		e.lifecycleMgr.Add(&coretypes.ActiveTrade{
			TradeID:      tradeID,
			Symbol:       symbol,
			Side:         side,
			EntryPrice:   opp.Targets.EntryPrice,
			Quantity:     (e.cfg.Execution.PositionSizeUSD * e.cfg.Execution.Leverage) / opp.Targets.EntryPrice,
			Leverage:     e.cfg.Execution.Leverage,
			ProfitTarget: opp.Targets.ProfitTarget,
			StopLoss:     opp.Targets.StopLoss,
			EntryTime:    time.Now(),
			LevelKind:    opp.Level.Kind,
			Confidence:   opp.Targets.Confidence,
		})
		return // one new trade per symbol per tick is enough; next tick re-evaluates
	}
}

func (e *Engine) openTradesForSymbol(symbol string) int {
	count := 0
	for _, t := range e.lifecycleMgr.Snapshot() {
		if t.Symbol == symbol {
			count++
		}
	}
	return count
}

// runReanalysisLoop rebuilds levels/magnets every reanalysisInterval,
// in batches of reanalysisBatch with short pauses to avoid venue rate
// limits (spec §5).
func (e *Engine) runReanalysisLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(reanalysisInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			symbols := e.symbolSnapshot()
			for i := 0; i < len(symbols); i += reanalysisBatch {
				end := i + reanalysisBatch
				if end > len(symbols) {
					end = len(symbols)
				}
				for _, symbol := range symbols[i:end] {
					e.analyzeSymbol(ctx, symbol)
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(reanalysisPause):
				}
			}
		}
	}
}

// runLifecycleLoop ticks the position lifecycle manager over all
// active trades every monitorInterval (spec §4.6, §5).
func (e *Engine) runLifecycleLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, trade := range e.lifecycleMgr.Snapshot() {
				e.tickTrade(ctx, trade)
			}
		}
	}
}

func (e *Engine) tickTrade(ctx context.Context, trade *coretypes.ActiveTrade) {
	price, err := e.md.LastPrice(ctx, trade.Symbol)
	if err != nil {
		return // price fetch failure: skip the tick (spec §4.6.3)
	}

	st := e.stateFor(trade.Symbol)
	atrPct := e.volModel.AtrPct(ctx, trade.Symbol)
	regime := volatility.Classify(atrPct)

	alignment := lifecycle.Neutral
	if st != nil {
		if opportunity.IsAligned(trade.Side, st.trend) {
			alignment = lifecycle.Aligned
		} else if opportunity.IsCounterTrend(trade.Side, st.trend) {
			alignment = lifecycle.CounterTrend
		}
	}

	outcome, ok := e.lifecycleMgr.Tick(trade.TradeID, lifecycle.TickInput{
		Price:     price,
		AtrPct:    atrPct,
		Regime:    regime,
		Alignment: alignment,
		Now:       time.Now(),
	})
	if !ok {
		return
	}
	if e.trailingCache != nil {
		e.trailingCache.SaveTrailing(ctx, trade.TradeID, trade.Trailing)
	}
	if !outcome.Closed {
		return
	}

	result, err := e.executor.Close(ctx, trade.TradeID, outcome.ExitReason)
	if err != nil {
		e.log.Error("close failed, will retry", "trade_id", trade.TradeID, "error", err)
		if e.lifecycleMgr.RecordCloseFailure(trade.TradeID) {
			e.recordOutcome(ctx, trade, coretypes.TradeCloseResult{ExitReason: coretypes.ExitCloseFailed}, coretypes.ExitCloseFailed)
			if e.trailingCache != nil {
				e.trailingCache.ForgetTrailing(ctx, trade.TradeID)
			}
		}
		return
	}
	e.recordOutcome(ctx, trade, result, outcome.ExitReason)
	e.lifecycleMgr.MarkClosed(trade.TradeID)
	if e.trailingCache != nil {
		e.trailingCache.ForgetTrailing(ctx, trade.TradeID)
	}
}
