package trades

import (
	"errors"

	"github.com/ksred/klear-journal/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateTrade(trade *types.Trade) error {
	return d.db.Create(trade).Error
}

// GetTradeByIDAndUserID returns nil, nil when the trade does not exist or
// belongs to another user
func (d *Database) GetTradeByIDAndUserID(tradeID, userID string) (*types.Trade, error) {
	var trade types.Trade
	if err := d.db.Where("id = ? AND user_id = ?", tradeID, userID).First(&trade).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trade, nil
}

// ListTradesByUserID returns the user's trades in the range, newest first
func (d *Database) ListTradesByUserID(userID string, r DateRange) ([]types.Trade, error) {
	query := d.db.Where("user_id = ?", userID)
	if r.From != nil {
		query = query.Where("date >= ?", *r.From)
	}
	if r.To != nil {
		query = query.Where("date <= ?", *r.To)
	}

	trades := make([]types.Trade, 0)
	if err := query.Order("date DESC").Order("created_at DESC").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

func (d *Database) UpdateTrade(trade *types.Trade) error {
	return d.db.Save(trade).Error
}

// DeleteTrade reports whether a row was removed
func (d *Database) DeleteTrade(tradeID, userID string) (bool, error) {
	result := d.db.Where("id = ? AND user_id = ?", tradeID, userID).Delete(&types.Trade{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
