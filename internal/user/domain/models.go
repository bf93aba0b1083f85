// Package domain contains the local user record mirrored from the
// identity provider.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// User is a login known to the service. Sub is the identity provider's
// subject GUID used for group-sync calls.
type User struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Sub         string       `gorm:"type:text;not null;uniqueIndex:ux_users_sub" json:"sub"`
	Username    string       `gorm:"type:text;not null" json:"username"`
	FirstName   string       `gorm:"type:text" json:"first_name"`
	LastName    string       `gorm:"type:text" json:"last_name"`
	Email       string       `gorm:"type:text" json:"email"`
	LoginSource string       `gorm:"type:text" json:"login_source"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindBySub(ctx context.Context, sub string) (*User, error)
}
