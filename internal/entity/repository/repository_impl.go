package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/entity/domain"
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

func (r *repository) Create(ctx context.Context, entity domain.Entity) error {
	return r.db.WithContext(ctx).Create(&entity).Error
}

func (r *repository) Save(ctx context.Context, entity domain.Entity) error {
	entity.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(&entity).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Entity, error) {
	var entity domain.Entity
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *repository) FindByBusinessIdentifier(ctx context.Context, businessIdentifier string) (*domain.Entity, error) {
	var entity domain.Entity
	err := r.db.WithContext(ctx).First(&entity, "business_identifier = ?", businessIdentifier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *repository) SetPassCodeClaimed(ctx context.Context, id snowflake.ID, claimed bool) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE entities SET pass_code_claimed = ?, updated_at = ? WHERE id = ?`,
		claimed, time.Now().UTC(), id,
	).Error
}

func (r *repository) UpdatePassCode(ctx context.Context, id snowflake.ID, hashed string) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE entities SET pass_code = ?, pass_code_claimed = false, updated_at = ? WHERE id = ?`,
		hashed, time.Now().UTC(), id,
	).Error
}
