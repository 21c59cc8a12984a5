package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"binance-trading-bot/internal/binance"
	"binance-trading-bot/internal/coretypes"
)

// fakeFuturesClient embeds the teacher's FuturesMockClient so it gets a
// full binance.FuturesClient implementation for free, overriding only
// the two methods FuturesAdapter actually calls.
type fakeFuturesClient struct {
	*binance.FuturesMockClient
	klines        []binance.Kline
	klinesErr     error
	capturedLimit int
	price         float64
	priceErr      error
}

func newFakeFuturesClient() *fakeFuturesClient {
	return &fakeFuturesClient{FuturesMockClient: binance.NewFuturesMockClient(10000, nil)}
}

func (f *fakeFuturesClient) GetFuturesKlines(symbol, interval string, limit int) ([]binance.Kline, error) {
	f.capturedLimit = limit
	if f.klinesErr != nil {
		return nil, f.klinesErr
	}
	return f.klines, nil
}

func (f *fakeFuturesClient) GetFuturesCurrentPrice(symbol string) (float64, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.price, nil
}

func TestFuturesAdapter_LastPrice_Success(t *testing.T) {
	client := newFakeFuturesClient()
	client.price = 45123.5
	a := NewFuturesAdapter(client)

	got, err := a.LastPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 45123.5 {
		t.Errorf("LastPrice() = %v, want 45123.5", got)
	}
}

func TestFuturesAdapter_LastPrice_WrapsClientError(t *testing.T) {
	client := newFakeFuturesClient()
	client.priceErr = errors.New("venue unreachable")
	a := NewFuturesAdapter(client)

	_, err := a.LastPrice(context.Background(), "BTCUSDT")
	var mdErr *coretypes.MarketDataError
	if !errors.As(err, &mdErr) || mdErr.Kind != coretypes.Unavailable {
		t.Fatalf("expected a wrapped Unavailable MarketDataError, got %v", err)
	}
}

func TestFuturesAdapter_Klines_RejectsUnsupportedInterval(t *testing.T) {
	a := NewFuturesAdapter(newFakeFuturesClient())

	_, err := a.Klines(context.Background(), "BTCUSDT", "3m", 100)
	var mdErr *coretypes.MarketDataError
	if !errors.As(err, &mdErr) || mdErr.Kind != coretypes.Malformed {
		t.Fatalf("expected a wrapped Malformed MarketDataError, got %v", err)
	}
}

func TestFuturesAdapter_Klines_ClampsLimitAboveMax(t *testing.T) {
	client := newFakeFuturesClient()
	a := NewFuturesAdapter(client)

	a.Klines(context.Background(), "BTCUSDT", "1h", 5000)

	if client.capturedLimit != maxKlineLimit {
		t.Errorf("limit passed to client = %d, want clamped %d", client.capturedLimit, maxKlineLimit)
	}
}

func TestFuturesAdapter_Klines_WrapsClientError(t *testing.T) {
	client := newFakeFuturesClient()
	client.klinesErr = errors.New("venue unreachable")
	a := NewFuturesAdapter(client)

	_, err := a.Klines(context.Background(), "BTCUSDT", "1h", 100)
	var mdErr *coretypes.MarketDataError
	if !errors.As(err, &mdErr) || mdErr.Kind != coretypes.Unavailable {
		t.Fatalf("expected a wrapped Unavailable MarketDataError, got %v", err)
	}
}

func TestFuturesAdapter_Klines_EmptyResultWrapsInsufficientHistory(t *testing.T) {
	client := newFakeFuturesClient()
	client.klines = nil
	a := NewFuturesAdapter(client)

	_, err := a.Klines(context.Background(), "BTCUSDT", "1h", 100)
	var mdErr *coretypes.MarketDataError
	if !errors.As(err, &mdErr) || mdErr.Kind != coretypes.InsufficientHistory {
		t.Fatalf("expected a wrapped InsufficientHistory MarketDataError, got %v", err)
	}
}

func TestFuturesAdapter_Klines_ConvertsFields(t *testing.T) {
	client := newFakeFuturesClient()
	client.klines = []binance.Kline{
		{OpenTime: 1700000000000, Open: 100, High: 105, Low: 99, Close: 102, Volume: 50},
	}
	a := NewFuturesAdapter(client)

	candles, err := a.Klines(context.Background(), "BTCUSDT", "1h", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}
	c := candles[0]
	want := time.UnixMilli(1700000000000)
	if !c.Timestamp.Equal(want) || c.Open != 100 || c.High != 105 || c.Low != 99 || c.Close != 102 || c.Volume != 50 {
		t.Errorf("candle = %+v, want Timestamp=%v Open=100 High=105 Low=99 Close=102 Volume=50", c, want)
	}
}

// fakeBinanceClient embeds the teacher's MockClient for the same reason.
type fakeBinanceClient struct {
	*binance.MockClient
	klines    []binance.Kline
	klinesErr error
	price     float64
	priceErr  error
}

func newFakeBinanceClient() *fakeBinanceClient {
	return &fakeBinanceClient{MockClient: binance.NewMockClient()}
}

func (f *fakeBinanceClient) GetKlines(symbol, interval string, limit int) ([]binance.Kline, error) {
	if f.klinesErr != nil {
		return nil, f.klinesErr
	}
	return f.klines, nil
}

func (f *fakeBinanceClient) GetCurrentPrice(symbol string) (float64, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.price, nil
}

func TestMockAdapter_LastPrice_Success(t *testing.T) {
	client := newFakeBinanceClient()
	client.price = 2500.25
	a := NewMockAdapter(client)

	got, err := a.LastPrice(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2500.25 {
		t.Errorf("LastPrice() = %v, want 2500.25", got)
	}
}

func TestMockAdapter_LastPrice_WrapsClientError(t *testing.T) {
	client := newFakeBinanceClient()
	client.priceErr = errors.New("down")
	a := NewMockAdapter(client)

	_, err := a.LastPrice(context.Background(), "ETHUSDT")
	var mdErr *coretypes.MarketDataError
	if !errors.As(err, &mdErr) || mdErr.Kind != coretypes.Unavailable {
		t.Fatalf("expected a wrapped Unavailable MarketDataError, got %v", err)
	}
}

func TestMockAdapter_Klines_RejectsUnsupportedInterval(t *testing.T) {
	a := NewMockAdapter(newFakeBinanceClient())

	_, err := a.Klines(context.Background(), "ETHUSDT", "2h", 100)
	var mdErr *coretypes.MarketDataError
	if !errors.As(err, &mdErr) || mdErr.Kind != coretypes.Malformed {
		t.Fatalf("expected a wrapped Malformed MarketDataError, got %v", err)
	}
}

func TestMockAdapter_Klines_EmptyResultWrapsInsufficientHistory(t *testing.T) {
	a := NewMockAdapter(newFakeBinanceClient())

	_, err := a.Klines(context.Background(), "ETHUSDT", "1h", 100)
	var mdErr *coretypes.MarketDataError
	if !errors.As(err, &mdErr) || mdErr.Kind != coretypes.InsufficientHistory {
		t.Fatalf("expected a wrapped InsufficientHistory MarketDataError, got %v", err)
	}
}
