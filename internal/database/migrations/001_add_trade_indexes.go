package migrations

import "gorm.io/gorm"

// AddTradeIndexes creates the indexes used by the per-user trade queries
func AddTradeIndexes(db *gorm.DB) error {
	indexes := []string{
		// Listing and date-range filtering for a single user
		`CREATE INDEX IF NOT EXISTS idx_trades_user_date
		 ON trades(user_id, date)`,

		// Pending cleanup jobs are polled by status
		`CREATE INDEX IF NOT EXISTS idx_screenshot_deletions_status
		 ON screenshot_deletions(status)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
