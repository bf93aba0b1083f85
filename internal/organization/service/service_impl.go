package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	shared "github.com/smallbiznis/registra/internal/domain"
	"github.com/smallbiznis/registra/internal/organization/domain"
	"go.uber.org/zap"
)

type service struct {
	repo  domain.Repository
	genID *snowflake.Node
	log   *zap.Logger
}

func NewService(repo domain.Repository, genID *snowflake.Node, log *zap.Logger) domain.Service {
	return &service{
		repo:  repo,
		genID: genID,
		log:   log.Named("organization.service"),
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, shared.ErrInvalidState
	}

	typeCode := strings.TrimSpace(req.TypeCode)
	if typeCode == "" {
		typeCode = domain.TypeBasic
	}

	now := time.Now().UTC()
	org := domain.Organization{
		ID:         s.genID.Generate(),
		Name:       name,
		Slug:       slug.Make(name),
		TypeCode:   typeCode,
		StatusCode: domain.StatusActive,
		AccessType: req.AccessType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, shared.ErrNotFound
	}
	org, err := s.repo.FindByID(ctx, parsed)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, shared.ErrNotFound
	}
	return org, nil
}
