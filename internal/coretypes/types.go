// Package coretypes holds the data model shared across the profit
// scraping core: candles, discovered levels, tolerances, targets,
// opportunities, active trades and the collaborator-facing shapes.
package coretypes

import "time"

// Candle is an immutable OHLCV record. Sequences passed between
// components are always in chronological order.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// LevelKind distinguishes a support level from a resistance level.
type LevelKind string

const (
	Support    LevelKind = "support"
	Resistance LevelKind = "resistance"
)

// PriceLevel is a discovered horizontal support/resistance level.
// Instances are replaced wholesale per symbol on each reanalysis; they
// are never mutated incrementally.
type PriceLevel struct {
	Price             float64
	Kind              LevelKind
	Strength          int // 0-100
	TouchCount        int
	BounceCount       int // 0 <= BounceCount <= TouchCount
	AvgBouncePct      float64
	MaxBouncePct      float64
	LastTestedAt      time.Time
	FirstIdentifiedAt time.Time
	AvgVolumeAtLevel  float64
}

// MagnetKind enumerates the psychological/liquidity magnet families.
type MagnetKind string

const (
	MagnetRoundNumber  MagnetKind = "round_number"
	MagnetFibonacci    MagnetKind = "fibonacci"
	MagnetPreviousHigh MagnetKind = "previous_high"
	MagnetPreviousLow  MagnetKind = "previous_low"
	MagnetPsychological MagnetKind = "psychological"
)

// MagnetLevel is a psychological/liquidity attractor near the current
// price, recomputed on each reanalysis and enhanced from PriceLevel
// touch/bounce history.
type MagnetLevel struct {
	Price                float64
	Kind                 MagnetKind
	Strength             int // 0-100
	AttractionRadius     float64
	HistoricalReactions  int
	LastReactionAt       *time.Time
}

// Regime is the discrete volatility classification derived from ATR%.
type Regime string

const (
	RegimeCalm     Regime = "CALM"
	RegimeNormal   Regime = "NORMAL"
	RegimeElevated Regime = "ELEVATED"
	RegimeHigh     Regime = "HIGH"
)

// ToleranceProfile is the single source of truth for ATR-driven
// tolerances for one symbol. All fields are deterministic functions of
// AtrPct (see internal/volatility).
type ToleranceProfile struct {
	Symbol          string
	AtrPct          float64
	Regime          Regime
	ClusteringPct   float64
	ValidationPct   float64
	EntryPct        float64
	ProximityPct    float64
	CloseBufferPct  float64
	BuiltAt         time.Time
}

// TargetsMode selects which target calculator an Engine uses for the
// lifetime of its run. The choice is never mixed within one trade's
// lifecycle (see spec §9).
type TargetsMode string

const (
	TargetsRuleBased   TargetsMode = "rule_based"
	TargetsATRAware    TargetsMode = "atr_aware"
	TargetsStatistical TargetsMode = "statistical"
)

// TradingTargets are the precomputed exits for an opportunity.
type TradingTargets struct {
	EntryPrice               float64
	ProfitTarget             float64
	StopLoss                 float64
	ProfitProbability        float64
	RiskRewardRatio          float64
	ExpectedDurationMinutes  int
	Confidence               float64 // 0-100
	TPNetUSD                 float64
	SLNetUSD                 float64
	FloorNetUSD              float64
}

// Opportunity is a transient per-symbol candidate; only the top 3 per
// symbol per scan cycle are retained.
type Opportunity struct {
	Symbol       string
	Level        PriceLevel
	Magnet       *MagnetLevel
	Targets      TradingTargets
	CurrentPrice float64
	DistancePct  float64
	Score        float64 // 0-100
	CreatedAt    time.Time
}

// Side is the direction of an active trade.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// TradeState is the ActiveTrade lifecycle state.
type TradeState string

const (
	TradeOpen    TradeState = "OPEN"
	TradeClosing TradeState = "CLOSING"
	TradeClosed  TradeState = "CLOSED"
)

// TrailingState is the mutable trailing-stop bookkeeping block carried
// by every ActiveTrade (spec §4.6).
type TrailingState struct {
	LockedProfitUSD    float64
	LastStepUSD        float64
	MaxTrailCapUSD     float64
	StepIncrementUSD   float64
	StepModePercent    bool
	StepIncrementPct   float64
	StepCooldownSec    float64
	HysteresisPct      float64
	TrailStartNetUSD   float64
	FeeBufferUSD       float64
	CapHandoffTightATR bool
	CapTrailMult       float64
	LastStepTime       time.Time // monotonic-clock capable; zero means never stepped
}

// DefaultTrailingState returns the §4.6 defaults.
func DefaultTrailingState() TrailingState {
	return TrailingState{
		MaxTrailCapUSD:     60,
		StepIncrementUSD:   15,
		StepModePercent:    false,
		StepIncrementPct:   0.002,
		StepCooldownSec:    40,
		HysteresisPct:      0.0012,
		TrailStartNetUSD:   20,
		FeeBufferUSD:       0.40,
		CapHandoffTightATR: true,
		CapTrailMult:       0.40,
	}
}

// ActiveTrade is the only mutable lifecycle entity in the core. After
// creation, StopLoss is the only field the lifecycle manager mutates,
// and only in the favourable direction.
type ActiveTrade struct {
	TradeID      string
	Symbol       string
	Side         Side
	EntryPrice   float64
	Quantity     float64
	Leverage     float64
	ProfitTarget float64
	StopLoss     float64
	EntryTime    time.Time
	LevelKind    LevelKind
	Confidence   float64
	State        TradeState
	Trailing     TrailingState
	CloseFailures int
}

// EngineStatus is the read-model snapshot exposed by the control
// surface.
type EngineStatus struct {
	Active               bool
	MonitoredSymbols     []string
	ActiveTradeCount      int
	LevelCount            int
	OpportunityCount      int
	TotalTrades           int
	WinningTrades         int
	WinRate               float64
	TotalProfit           float64
	StartTime             time.Time
	UptimeMinutes         float64
	TradingEngineType     string
}

// ExitReason enumerates the exit-reason taxonomy emitted on the
// boundary (spec §6).
type ExitReason string

const (
	ExitProfitTarget   ExitReason = "PROFIT_TARGET"
	ExitStopLoss       ExitReason = "STOP_LOSS"
	ExitTimeMax        ExitReason = "TIME_EXIT_MAX"
	ExitTimeFlat       ExitReason = "TIME_EXIT_FLAT"
	ExitSafetyTime     ExitReason = "SAFETY_TIME_EXIT"
	ExitManualStop     ExitReason = "MANUAL_STOP"
	ExitCloseFailed    ExitReason = "CLOSE_FAILED"
)

// SystemType distinguishes paper vs. real execution in a TradeOutcome.
type SystemType string

const (
	SystemPaper SystemType = "paper"
	SystemReal  SystemType = "real"
)

// TradeOutcome is the fire-and-forget record forwarded to the ML
// collaborator on close.
type TradeOutcome struct {
	TradeID            string
	Symbol             string
	StrategyType       string
	SystemType         SystemType
	ConfidenceScore    float64
	MLScore            *float64
	EntryPrice         float64
	ExitPrice          float64
	PnLPct             float64
	DurationMinutes    int
	MarketRegime       string
	VolatilityRegime   string
	ExitReason         ExitReason
	Success            bool
	Features           map[string]interface{}
	EntryTime          time.Time
	ExitTime           time.Time
}

// TradeSignal carries everything the execution collaborator needs to
// open a position (spec §6).
type TradeSignal struct {
	Symbol          string
	Side            Side
	EntryPrice      float64
	StopLoss        float64
	ProfitTarget    float64
	OptimalLeverage float64
	Confidence      float64
	StrategyTag     string
	TPNetUSD        float64
	SLNetUSD        float64
	FloorNetUSD     float64
}

// TradeCloseResult is the outcome of a close request against the
// execution collaborator.
type TradeCloseResult struct {
	EntryPrice float64
	ExitPrice  float64
	PnLUSD     float64
	PnLPct     float64
	Duration   time.Duration
	ExitReason ExitReason
}
