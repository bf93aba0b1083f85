package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/membership/domain"
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

func (r *repository) Create(ctx context.Context, membership domain.Membership) error {
	return r.db.WithContext(ctx).Create(&membership).Error
}

func (r *repository) Save(ctx context.Context, membership domain.Membership) error {
	return r.db.WithContext(ctx).Save(&membership).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) FindByUserAndOrg(ctx context.Context, userID, orgID snowflake.ID) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND org_id = ? AND status IN ?", userID, orgID,
			[]string{domain.StatusActive, domain.StatusPendingApproval}).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID, statuses []string, roles []string) ([]domain.MemberDetail, error) {
	q := r.db.WithContext(ctx).
		Table("memberships").
		Select("memberships.*, users.username, users.first_name, users.last_name, users.email, users.login_source").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.org_id = ?", orgID)
	if len(statuses) > 0 {
		q = q.Where("memberships.status IN ?", statuses)
	}
	if len(roles) > 0 {
		q = q.Where("memberships.membership_type_code IN ?", roles)
	}
	var members []domain.MemberDetail
	if err := q.Order("memberships.created_at ASC").Scan(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) ListActiveByUser(ctx context.Context, userID snowflake.ID) ([]domain.Membership, error) {
	var memberships []domain.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.StatusActive).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *repository) ActiveOwnerCount(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("org_id = ? AND membership_type_code = ? AND status = ?",
			orgID, domain.RoleAdmin, domain.StatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) PendingCountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("org_id = ? AND status = ?", orgID, domain.StatusPendingApproval).
		Count(&count).Error
	return count, err
}

func (r *repository) ActiveAdminEmails(ctx context.Context, orgID snowflake.ID) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).
		Table("memberships").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.org_id = ? AND memberships.membership_type_code = ? AND memberships.status = ?",
			orgID, domain.RoleAdmin, domain.StatusActive).
		Where("users.email <> ''").
		Pluck("users.email", &emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}
