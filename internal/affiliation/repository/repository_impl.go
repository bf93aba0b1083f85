package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/affiliation/domain"
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

func (r *repository) Create(ctx context.Context, affiliation domain.Affiliation) error {
	return r.db.WithContext(ctx).Create(&affiliation).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&domain.Affiliation{}, "id = ?", id).Error
}

func (r *repository) FindByOrgAndEntity(ctx context.Context, orgID, entityID snowflake.ID) (*domain.Affiliation, error) {
	var affiliation domain.Affiliation
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND entity_id = ?", orgID, entityID).
		First(&affiliation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &affiliation, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.OrgAffiliation, error) {
	var affiliations []domain.OrgAffiliation
	err := r.db.WithContext(ctx).
		Table("affiliations").
		Select("affiliations.*, entities.business_identifier, entities.name AS entity_name, entities.corp_type_code").
		Joins("JOIN entities ON entities.id = affiliations.entity_id").
		Where("affiliations.org_id = ?", orgID).
		Order("affiliations.created_at DESC").
		Scan(&affiliations).Error
	if err != nil {
		return nil, err
	}
	return affiliations, nil
}

func (r *repository) ListByEntity(ctx context.Context, entityID snowflake.ID) ([]domain.Affiliation, error) {
	var affiliations []domain.Affiliation
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Find(&affiliations).Error
	if err != nil {
		return nil, err
	}
	return affiliations, nil
}

func (r *repository) Repoint(ctx context.Context, fromEntityID, toEntityID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Exec(`UPDATE affiliations SET entity_id = ?
		      WHERE entity_id = ?
		        AND org_id NOT IN (SELECT org_id FROM affiliations WHERE entity_id = ?)`,
			toEntityID, fromEntityID, toEntityID).Error
}

func (r *repository) DeleteInvitations(ctx context.Context, orgID, entityID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Delete(&domain.AffiliationInvitation{}, "org_id = ? AND entity_id = ?", orgID, entityID).Error
}
