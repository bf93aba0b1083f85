// Package events publishes domain events through a transactional outbox.
package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types emitted by the affiliation and membership services.
const (
	TypeBusinessAffiliated   = "business.affiliated"
	TypeBusinessUnaffiliated = "business.unaffiliated"
	TypeTeamMemberRemoved    = "team.member.removed"
)

// AuthEvent is one outbox row awaiting relay to the message broker.
type AuthEvent struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID      `gorm:"not null;index" json:"org_id"`
	EventType string            `gorm:"type:text;not null" json:"event_type"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	Published bool              `gorm:"not null;default:false" json:"published"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AuthEvent) TableName() string { return "auth_events" }

// Publisher records domain events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, eventType string, orgID snowflake.ID, payload map[string]any) error
}

type outboxPublisher struct {
	db    *gorm.DB
	genID *snowflake.Node
}

// NewOutboxPublisher returns the DB-backed outbox publisher.
func NewOutboxPublisher(db *gorm.DB, genID *snowflake.Node) Publisher {
	return &outboxPublisher{db: db, genID: genID}
}

func (p *outboxPublisher) Publish(ctx context.Context, eventType string, orgID snowflake.ID, payload map[string]any) error {
	row := AuthEvent{
		ID:        p.genID.Generate(),
		OrgID:     orgID,
		EventType: eventType,
		Payload:   datatypes.JSONMap(payload),
		CreatedAt: time.Now().UTC(),
	}
	return p.db.WithContext(ctx).Create(&row).Error
}

// Module wires the outbox publisher and the stream relay.
var Module = fx.Module("events.outbox",
	fx.Provide(NewOutboxPublisher),
	fx.Provide(NewRelay),
	fx.Invoke(registerRelay),
)

func registerRelay(lc fx.Lifecycle, relay *Relay) {
	lc.Append(fx.Hook{
		OnStart: relay.Start,
		OnStop:  relay.Stop,
	})
}
