package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ==================== PROFIT SCRAPING LEVELS ====================

// ProfitScrapingLevelsRow is the upserted last-computed level/magnet
// snapshot for one symbol, letting a restart reload instead of
// re-running a 30-day backfill synchronously before the first
// monitoring tick.
type ProfitScrapingLevelsRow struct {
	Symbol       string
	PriceLevels  json.RawMessage
	MagnetLevels json.RawMessage
	ComputedAt   time.Time
}

// UpsertProfitScrapingLevels stores the current PriceLevel/MagnetLevel
// sets for a symbol, replacing whatever was previously stored.
func (db *DB) UpsertProfitScrapingLevels(ctx context.Context, row ProfitScrapingLevelsRow) error {
	query := `
		INSERT INTO profit_scraping_levels (symbol, price_levels, magnet_levels, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol) DO UPDATE SET
			price_levels = EXCLUDED.price_levels,
			magnet_levels = EXCLUDED.magnet_levels,
			computed_at = EXCLUDED.computed_at`

	_, err := db.Pool.Exec(ctx, query, row.Symbol, row.PriceLevels, row.MagnetLevels, row.ComputedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profit scraping levels for %s: %w", row.Symbol, err)
	}
	return nil
}

// GetProfitScrapingLevels loads the last-computed level snapshot for
// symbol, or (ProfitScrapingLevelsRow{}, false, nil) if none exists.
func (db *DB) GetProfitScrapingLevels(ctx context.Context, symbol string) (ProfitScrapingLevelsRow, bool, error) {
	query := `
		SELECT symbol, price_levels, magnet_levels, computed_at
		FROM profit_scraping_levels
		WHERE symbol = $1`

	var row ProfitScrapingLevelsRow
	err := db.Pool.QueryRow(ctx, query, symbol).Scan(&row.Symbol, &row.PriceLevels, &row.MagnetLevels, &row.ComputedAt)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return ProfitScrapingLevelsRow{}, false, nil
		}
		return ProfitScrapingLevelsRow{}, false, fmt.Errorf("failed to load profit scraping levels for %s: %w", symbol, err)
	}
	return row, true, nil
}

// ListProfitScrapingSymbols returns every symbol with a stored level
// snapshot, for reloading at startup.
func (db *DB) ListProfitScrapingSymbols(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT symbol FROM profit_scraping_levels ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profit scraping symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan profit scraping symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}
