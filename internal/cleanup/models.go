package cleanup

import "time"

const (
	StatusPending = "PENDING"
	StatusDeleted = "DELETED"
	StatusFailed  = "FAILED"
)

// ScreenshotDeletion is a screenshot whose removal from storage still has to happen
type ScreenshotDeletion struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Key       string    `gorm:"column:object_key;not null" json:"key"`
	Status    string    `gorm:"type:varchar(10);not null" json:"status"` // PENDING, DELETED, FAILED
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
