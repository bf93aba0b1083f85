// Package seed creates the rows the service expects on first start.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/registra/internal/config"
	orgdomain "github.com/smallbiznis/registra/internal/organization/domain"
	"gorm.io/gorm"
)

// EnsureStaffOrgs seeds one org per configured staff-tier org type so
// staff memberships have a home before any user signs up.
func EnsureStaffOrgs(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, typeCode := range cfg.StaffOrgTypes() {
			if err := ensureStaffOrgTx(ctx, tx, node, typeCode); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureStaffOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, typeCode string) error {
	var existing orgdomain.Organization
	err := tx.WithContext(ctx).
		Where("type_code = ?", typeCode).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	org := orgdomain.Organization{
		ID:         node.Generate(),
		Name:       typeCode,
		Slug:       slug.Make(typeCode),
		TypeCode:   typeCode,
		StatusCode: orgdomain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return tx.WithContext(ctx).Create(&org).Error
}
