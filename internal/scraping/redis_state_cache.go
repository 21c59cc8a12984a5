package scraping

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"binance-trading-bot/internal/coretypes"
	"binance-trading-bot/internal/logging"
)

// Redis key prefixes for the profit-scraping state mirror.
const (
	toleranceKeyPrefix = "scraping:tolerance"
	trailingKeyPrefix  = "scraping:trailing"
	stateTTL           = 30 * time.Minute
)

// persistedTolerance is the JSON wire shape for a mirrored
// ToleranceProfile.
type persistedTolerance struct {
	Symbol         string           `json:"symbol"`
	AtrPct         float64          `json:"atr_pct"`
	Regime         coretypes.Regime `json:"regime"`
	ClusteringPct  float64          `json:"clustering_pct"`
	ValidationPct  float64          `json:"validation_pct"`
	EntryPct       float64          `json:"entry_pct"`
	ProximityPct   float64          `json:"proximity_pct"`
	CloseBufferPct float64          `json:"close_buffer_pct"`
	BuiltAt        time.Time        `json:"built_at"`
}

func toPersisted(p coretypes.ToleranceProfile) persistedTolerance {
	return persistedTolerance{
		Symbol: p.Symbol, AtrPct: p.AtrPct, Regime: p.Regime,
		ClusteringPct: p.ClusteringPct, ValidationPct: p.ValidationPct,
		EntryPct: p.EntryPct, ProximityPct: p.ProximityPct,
		CloseBufferPct: p.CloseBufferPct, BuiltAt: p.BuiltAt,
	}
}

func (p persistedTolerance) toProfile() coretypes.ToleranceProfile {
	return coretypes.ToleranceProfile{
		Symbol: p.Symbol, AtrPct: p.AtrPct, Regime: p.Regime,
		ClusteringPct: p.ClusteringPct, ValidationPct: p.ValidationPct,
		EntryPct: p.EntryPct, ProximityPct: p.ProximityPct,
		CloseBufferPct: p.CloseBufferPct, BuiltAt: p.BuiltAt,
	}
}

// RedisStateCache mirrors the per-symbol ATR/tolerance cache and
// per-trade trailing state to Redis, falling back to an in-process map
// when Redis is unavailable — adapted from the teacher's
// internal/database.RedisPositionStateRepository, scoped to symbols
// and trades instead of per-user positions.
type RedisStateCache struct {
	client *redis.Client
	log    *logging.Logger

	mu            sync.RWMutex
	toleranceMem  map[string]persistedTolerance
	trailingMem   map[string]coretypes.TrailingState
	redisAvailable atomic.Bool
}

// NewRedisStateCache builds a RedisStateCache. A nil client runs in
// memory-only mode.
func NewRedisStateCache(client *redis.Client, log *logging.Logger) *RedisStateCache {
	c := &RedisStateCache{
		client:       client,
		log:          log.WithComponent("scraping.redis_state"),
		toleranceMem: make(map[string]persistedTolerance),
		trailingMem:  make(map[string]coretypes.TrailingState),
	}
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			c.log.Warn("redis unavailable at startup, using in-memory cache", "error", err)
		} else {
			c.redisAvailable.Store(true)
		}
	}
	return c
}

func toleranceKey(symbol string) string { return fmt.Sprintf("%s:%s", toleranceKeyPrefix, symbol) }
func trailingKey(tradeID string) string { return fmt.Sprintf("%s:%s", trailingKeyPrefix, tradeID) }

// SaveTolerance mirrors a freshly-built ToleranceProfile.
func (c *RedisStateCache) SaveTolerance(ctx context.Context, profile coretypes.ToleranceProfile) {
	persisted := toPersisted(profile)

	c.mu.Lock()
	c.toleranceMem[profile.Symbol] = persisted
	c.mu.Unlock()

	if c.client == nil || !c.redisAvailable.Load() {
		return
	}
	data, err := json.Marshal(persisted)
	if err != nil {
		c.log.Error("failed to marshal tolerance profile", "symbol", profile.Symbol, "error", err)
		return
	}
	if err := c.client.Set(ctx, toleranceKey(profile.Symbol), data, stateTTL).Err(); err != nil {
		c.log.Warn("redis write failed, falling back to memory", "error", err)
		c.redisAvailable.Store(false)
	}
}

// LoadTolerance returns a mirrored ToleranceProfile, or false if none
// is cached (the caller should recompute it).
func (c *RedisStateCache) LoadTolerance(ctx context.Context, symbol string) (coretypes.ToleranceProfile, bool) {
	if c.client != nil && c.redisAvailable.Load() {
		data, err := c.client.Get(ctx, toleranceKey(symbol)).Result()
		if err == nil {
			var persisted persistedTolerance
			if jsonErr := json.Unmarshal([]byte(data), &persisted); jsonErr == nil {
				return persisted.toProfile(), true
			}
		} else if err != redis.Nil {
			c.log.Warn("redis read failed, falling back to memory", "error", err)
			c.redisAvailable.Store(false)
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	persisted, ok := c.toleranceMem[symbol]
	if !ok {
		return coretypes.ToleranceProfile{}, false
	}
	return persisted.toProfile(), true
}

// SaveTrailing mirrors a trade's current TrailingState.
func (c *RedisStateCache) SaveTrailing(ctx context.Context, tradeID string, state coretypes.TrailingState) {
	c.mu.Lock()
	c.trailingMem[tradeID] = state
	c.mu.Unlock()

	if c.client == nil || !c.redisAvailable.Load() {
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		c.log.Error("failed to marshal trailing state", "trade_id", tradeID, "error", err)
		return
	}
	if err := c.client.Set(ctx, trailingKey(tradeID), data, stateTTL).Err(); err != nil {
		c.log.Warn("redis write failed, falling back to memory", "error", err)
		c.redisAvailable.Store(false)
	}
}

// LoadTrailing returns a mirrored TrailingState for tradeID, or false
// if none is cached.
func (c *RedisStateCache) LoadTrailing(ctx context.Context, tradeID string) (coretypes.TrailingState, bool) {
	if c.client != nil && c.redisAvailable.Load() {
		data, err := c.client.Get(ctx, trailingKey(tradeID)).Result()
		if err == nil {
			var state coretypes.TrailingState
			if jsonErr := json.Unmarshal([]byte(data), &state); jsonErr == nil {
				return state, true
			}
		} else if err != redis.Nil {
			c.log.Warn("redis read failed, falling back to memory", "error", err)
			c.redisAvailable.Store(false)
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.trailingMem[tradeID]
	return state, ok
}

// ForgetTrailing removes a trade's mirrored trailing state once the
// trade closes.
func (c *RedisStateCache) ForgetTrailing(ctx context.Context, tradeID string) {
	c.mu.Lock()
	delete(c.trailingMem, tradeID)
	c.mu.Unlock()

	if c.client != nil && c.redisAvailable.Load() {
		if err := c.client.Del(ctx, trailingKey(tradeID)).Err(); err != nil {
			c.log.Warn("redis delete failed", "trade_id", tradeID, "error", err)
		}
	}
}
