// Package marketdata adapts the teacher's internal/binance clients to
// the core's narrow coretypes.MarketData trait (spec §6).
package marketdata

import (
	"context"
	"time"

	"binance-trading-bot/internal/binance"
	"binance-trading-bot/internal/coretypes"
)

// supportedIntervals mirrors spec §6's enumerated interval set.
var supportedIntervals = map[string]bool{
	"1m": true, "5m": true, "15m": true, "1h": true, "4h": true, "1d": true,
}

const maxKlineLimit = 1500

// FuturesAdapter implements coretypes.MarketData over the teacher's
// binance.FuturesClient, for live price/candle data against USD-M
// futures symbols.
type FuturesAdapter struct {
	client binance.FuturesClient
}

// NewFuturesAdapter builds a FuturesAdapter.
func NewFuturesAdapter(client binance.FuturesClient) *FuturesAdapter {
	return &FuturesAdapter{client: client}
}

// LastPrice returns the current mark price for symbol.
func (a *FuturesAdapter) LastPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := a.client.GetFuturesCurrentPrice(symbol)
	if err != nil {
		return 0, &coretypes.MarketDataError{Symbol: symbol, Kind: coretypes.Unavailable, Err: err}
	}
	return price, nil
}

// Klines returns up to limit chronologically-ordered candles for
// symbol at interval.
func (a *FuturesAdapter) Klines(ctx context.Context, symbol, interval string, limit int) ([]coretypes.Candle, error) {
	if !supportedIntervals[interval] {
		return nil, &coretypes.MarketDataError{Symbol: symbol, Kind: coretypes.Malformed, Err: errUnsupportedInterval(interval)}
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	klines, err := a.client.GetFuturesKlines(symbol, interval, limit)
	if err != nil {
		return nil, &coretypes.MarketDataError{Symbol: symbol, Kind: coretypes.Unavailable, Err: err}
	}
	if len(klines) == 0 {
		return nil, &coretypes.MarketDataError{Symbol: symbol, Kind: coretypes.InsufficientHistory}
	}
	return toCandles(klines), nil
}

func toCandles(klines []binance.Kline) []coretypes.Candle {
	out := make([]coretypes.Candle, len(klines))
	for i, k := range klines {
		out[i] = coretypes.Candle{
			Timestamp: time.UnixMilli(k.OpenTime),
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
		}
	}
	return out
}

type unsupportedIntervalError string

func (e unsupportedIntervalError) Error() string { return "unsupported kline interval: " + string(e) }

func errUnsupportedInterval(interval string) error { return unsupportedIntervalError(interval) }

// MockAdapter implements coretypes.MarketData over the teacher's
// binance.MockClient, for tests and paper-mode backfills that don't
// require live venue access.
type MockAdapter struct {
	client binance.BinanceClient
}

// NewMockAdapter builds a MockAdapter over any binance.BinanceClient
// (normally *binance.MockClient).
func NewMockAdapter(client binance.BinanceClient) *MockAdapter {
	return &MockAdapter{client: client}
}

func (a *MockAdapter) LastPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := a.client.GetCurrentPrice(symbol)
	if err != nil {
		return 0, &coretypes.MarketDataError{Symbol: symbol, Kind: coretypes.Unavailable, Err: err}
	}
	return price, nil
}

func (a *MockAdapter) Klines(ctx context.Context, symbol, interval string, limit int) ([]coretypes.Candle, error) {
	if !supportedIntervals[interval] {
		return nil, &coretypes.MarketDataError{Symbol: symbol, Kind: coretypes.Malformed, Err: errUnsupportedInterval(interval)}
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	klines, err := a.client.GetKlines(symbol, interval, limit)
	if err != nil {
		return nil, &coretypes.MarketDataError{Symbol: symbol, Kind: coretypes.Unavailable, Err: err}
	}
	if len(klines) == 0 {
		return nil, &coretypes.MarketDataError{Symbol: symbol, Kind: coretypes.InsufficientHistory}
	}
	return toCandles(klines), nil
}
