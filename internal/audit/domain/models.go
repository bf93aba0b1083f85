// Package domain contains the activity-log model and service surface.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/pkg/db/pagination"
)

// Activity actions recorded against an org.
const (
	ActionCreateAffiliation = "CREATE_AFFILIATION"
	ActionRemoveAffiliation = "REMOVE_AFFILIATION"
	ActionApproveTeamMember = "APPROVE_TEAM_MEMBER"
	ActionRemoveTeamMember  = "REMOVE_TEAM_MEMBER"
)

// Activity is one auditable action.
type Activity struct {
	OrgID  snowflake.ID
	Action string
	// Name describes the subject (entity name or member name).
	Name string
	// ItemID identifies the subject (business identifier or user id).
	ItemID string
	// Value carries an optional detail, e.g. the membership role applied.
	Value string
}

// ActivityLog is the persisted form of an Activity.
type ActivityLog struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	Action    string       `gorm:"type:text;not null" json:"action"`
	ItemName  string       `gorm:"type:text" json:"item_name"`
	ItemID    string       `gorm:"type:text" json:"item_id"`
	ItemValue string       `gorm:"type:text" json:"item_value"`
	ActorID   string       `gorm:"type:text" json:"actor_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ActivityLog) TableName() string { return "activity_logs" }

// Service records activities. Recording is best-effort: failures are
// logged, never surfaced to the calling flow.
type Service interface {
	Publish(ctx context.Context, activity Activity)
}

type Repository interface {
	Insert(ctx context.Context, entry ActivityLog) error
	// ListByOrg returns one page of the org's log, newest first,
	// resuming after the cursor when one is given.
	ListByOrg(ctx context.Context, orgID snowflake.ID, cursor *pagination.Cursor, limit int) ([]ActivityLog, pagination.PageInfo, error)
}
