package users

import "time"

// User is a journal owner, provisioned the first time its token subject is seen
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Subject   string    `gorm:"uniqueIndex;not null" json:"-"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
