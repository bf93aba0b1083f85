// Package domain contains the membership model and state machine surface.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Membership statuses.
const (
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusActive          = "ACTIVE"
	StatusInactive        = "INACTIVE"
	StatusRejected        = "REJECTED"
)

// Membership roles. Admin is the owner-equivalent role; every org must
// retain at least one active admin.
const (
	RoleAdmin       = "ADMIN"
	RoleCoordinator = "COORDINATOR"
	RoleUser        = "USER"
)

// Membership links a user to an org with a role and status.
type Membership struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID              snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_org_user,priority:1" json:"org_id"`
	UserID             snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_org_user,priority:2" json:"user_id"`
	MembershipTypeCode string       `gorm:"type:text;not null" json:"membership_type_code"`
	Status             string       `gorm:"type:text;not null" json:"status"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "memberships" }

// MemberDetail is a membership joined with its user for listing.
type MemberDetail struct {
	Membership
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	LoginSource string `json:"login_source"`
}

// UpdateRequest carries the fields of a membership update. Nil fields are
// left unchanged.
type UpdateRequest struct {
	MembershipType *string
	Status         *string
}

// Service validates and applies membership transitions and drives their
// side effects.
type Service interface {
	Update(ctx context.Context, membershipID snowflake.ID, req UpdateRequest) (*Membership, error)
	Deactivate(ctx context.Context, membershipID snowflake.ID) (*Membership, error)
	MembersForOrg(ctx context.Context, orgID snowflake.ID, status string, roles []string) ([]MemberDetail, error)
	PendingCount(ctx context.Context, orgID snowflake.ID) (int64, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, membership Membership) error
	Save(ctx context.Context, membership Membership) error
	FindByID(ctx context.Context, id snowflake.ID) (*Membership, error)
	// FindByUserAndOrg returns the user's non-terminated membership in the
	// org, or nil.
	FindByUserAndOrg(ctx context.Context, userID, orgID snowflake.ID) (*Membership, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID, statuses []string, roles []string) ([]MemberDetail, error)
	ListActiveByUser(ctx context.Context, userID snowflake.ID) ([]Membership, error)
	// ActiveOwnerCount counts ACTIVE admin memberships in the org.
	ActiveOwnerCount(ctx context.Context, orgID snowflake.ID) (int64, error)
	PendingCountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error)
	// ActiveAdminEmails returns contact emails of the org's active admins.
	ActiveAdminEmails(ctx context.Context, orgID snowflake.ID) ([]string, error)
}
