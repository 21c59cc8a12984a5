package coretypes

import "context"

// MarketData is the narrow trait the core consumes for price/candle
// data. Implementations must return candles in chronological order and
// must not silently substitute synthetic data for a configured venue;
// missing history surfaces as MarketDataError{Kind: InsufficientHistory}.
type MarketData interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// Executor is the narrow trait for the paper/real execution
// collaborator. The core never holds execution-owned state directly;
// it only ever references a trade by TradeID.
type Executor interface {
	Execute(ctx context.Context, signal TradeSignal) (tradeID string, err error)
	Close(ctx context.Context, tradeID string, reason ExitReason) (TradeCloseResult, error)
	IsReal() bool
}

// MLSink is the fire-and-forget ML learning collaborator. Failures
// here must never block the lifecycle loop.
type MLSink interface {
	RecordTradeOutcome(ctx context.Context, outcome TradeOutcome)
}
