package users

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetBySubject returns nil, nil when no user has the subject
func (d *Database) GetBySubject(subject string) (*User, error) {
	var user User
	if err := d.db.Where("subject = ?", subject).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateIfAbsent inserts the user unless the subject is already taken
func (d *Database) CreateIfAbsent(user *User) error {
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject"}},
		DoNothing: true,
	}).Create(user).Error
}
