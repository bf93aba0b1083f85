// Package domain contains persistence models for organizations.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Org status codes.
const (
	StatusActive       = "ACTIVE"
	StatusSuspended    = "SUSPENDED"
	StatusNSFSuspended = "NSF_SUSPENDED"
)

// Org type codes. The staff-tier types are configured, not hardcoded;
// these are the defaults shipped with the service.
const (
	TypePremium      = "PREMIUM"
	TypeBasic        = "BASIC"
	TypeMaximusStaff = "MAXIMUS_STAFF"
	TypeCCStaff      = "CC_STAFF"
	TypeSBCStaff     = "SBC_STAFF"
)

// Organization is an account that holds affiliations and memberships.
type Organization struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	Slug       string       `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	TypeCode   string       `gorm:"type:text;not null;index" json:"type_code"`
	StatusCode string       `gorm:"type:text;not null" json:"status_code"`
	AccessType string       `gorm:"type:text" json:"access_type"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org Organization) error
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	// ListByIDsAndTypes returns the orgs among ids whose type is in types.
	ListByIDsAndTypes(ctx context.Context, ids []snowflake.ID, types []string) ([]Organization, error)
}
