package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/audit/domain"
	"github.com/smallbiznis/registra/pkg/db/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, entry domain.ActivityLog) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID, cursor *pagination.Cursor, limit int) ([]domain.ActivityLog, pagination.PageInfo, error) {
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}

	query := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []domain.ActivityLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, pagination.PageInfo{}, err
	}

	entries, pageInfo := pagination.Trim(entries, limit, func(entry domain.ActivityLog) pagination.Cursor {
		return pagination.Cursor{ID: entry.ID, CreatedAt: entry.CreatedAt}
	})
	return entries, pageInfo, nil
}
