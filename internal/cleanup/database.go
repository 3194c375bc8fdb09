package cleanup

import (
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateDeletion(job *ScreenshotDeletion) error {
	return d.db.Create(job).Error
}

func (d *Database) UpdateDeletion(job *ScreenshotDeletion) error {
	return d.db.Save(job).Error
}

// GetPendingDeletions returns up to limit pending jobs, oldest first
func (d *Database) GetPendingDeletions(limit int) ([]ScreenshotDeletion, error) {
	var jobs []ScreenshotDeletion
	if err := d.db.Where("status = ?", StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
