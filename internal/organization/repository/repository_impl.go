package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/organization/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Create(&org).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) ListByIDsAndTypes(ctx context.Context, ids []snowflake.ID, types []string) ([]domain.Organization, error) {
	if len(ids) == 0 || len(types) == 0 {
		return nil, nil
	}
	var orgs []domain.Organization
	err := r.db.WithContext(ctx).
		Where("id IN ? AND type_code IN ?", ids, types).
		Find(&orgs).Error
	if err != nil {
		return nil, err
	}
	return orgs, nil
}
