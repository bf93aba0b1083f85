package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entity Entity) error
	Save(ctx context.Context, entity Entity) error
	FindByID(ctx context.Context, id snowflake.ID) (*Entity, error)
	FindByBusinessIdentifier(ctx context.Context, businessIdentifier string) (*Entity, error)
	SetPassCodeClaimed(ctx context.Context, id snowflake.ID, claimed bool) error
	UpdatePassCode(ctx context.Context, id snowflake.ID, hashed string) error
}
