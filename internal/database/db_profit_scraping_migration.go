package database

import (
	"context"
	"log"
)

// RunProfitScrapingMigrations runs profit-scraping related database
// migrations.
func (db *DB) RunProfitScrapingMigrations(ctx context.Context) error {
	log.Println("Running profit scraping database migrations...")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profit_scraping_levels (
			symbol VARCHAR(20) PRIMARY KEY,
			price_levels JSONB NOT NULL,
			magnet_levels JSONB NOT NULL,
			computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return err
		}
	}

	log.Println("Profit scraping database migrations completed")
	return nil
}
