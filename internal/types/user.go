package types

import (
	"time"
)

// User mirrors the identity provider's view of a subject. ID is the
// provider-issued subject id, not a locally generated key; it never changes
// after the row is created.
type User struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Name      *string   `gorm:"column:name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}
