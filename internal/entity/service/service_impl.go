package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/bwmarrin/snowflake"
	shared "github.com/smallbiznis/registra/internal/domain"
	"github.com/smallbiznis/registra/internal/entity/domain"
	"github.com/smallbiznis/registra/internal/notify"
	"github.com/smallbiznis/registra/internal/passcode"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const generatedPasscodeLength = 9

type Params struct {
	fx.In

	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Mailer notify.Mailer
}

type Service struct {
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	mailer notify.Mailer
}

func NewService(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("entity.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		mailer: p.Mailer,
	}
}

func (s *Service) FindByBusinessIdentifier(ctx context.Context, businessIdentifier string) (*domain.Entity, error) {
	entity, err := s.repo.FindByBusinessIdentifier(ctx, strings.TrimSpace(businessIdentifier))
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("%w: entity %s", shared.ErrNotFound, businessIdentifier)
	}
	return entity, nil
}

func (s *Service) Save(ctx context.Context, req domain.SaveEntityRequest) (*domain.Entity, error) {
	identifier := strings.TrimSpace(req.BusinessIdentifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: business identifier is required", shared.ErrInvalidState)
	}

	existing, err := s.repo.FindByBusinessIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		entity := domain.Entity{
			ID:                 s.genID.Generate(),
			BusinessIdentifier: identifier,
			Name:               req.Name,
			CorpTypeCode:       req.CorpTypeCode,
			Status:             req.Status,
		}
		if req.PassCodeClaimed != nil {
			entity.PassCodeClaimed = *req.PassCodeClaimed
		}
		if err := s.repo.Create(ctx, entity); err != nil {
			return nil, err
		}
		return &entity, nil
	}

	existing.Name = req.Name
	existing.CorpTypeCode = req.CorpTypeCode
	existing.Status = req.Status
	if req.PassCodeClaimed != nil {
		existing.PassCodeClaimed = *req.PassCodeClaimed
	}
	if err := s.repo.Save(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) ResetPasscode(ctx context.Context, businessIdentifier string, emails []string) error {
	entity, err := s.FindByBusinessIdentifier(ctx, businessIdentifier)
	if err != nil {
		return err
	}

	plain, err := generatePasscode()
	if err != nil {
		return fmt.Errorf("generate passcode: %w", err)
	}
	hashed, err := passcode.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash passcode: %w", err)
	}

	if err := s.repo.UpdatePassCode(ctx, entity.ID, hashed); err != nil {
		return err
	}
	if err := s.repo.SetPassCodeClaimed(ctx, entity.ID, false); err != nil {
		return err
	}

	if err := s.mailer.SendPasscodeReset(ctx, entity.BusinessIdentifier, plain, emails); err != nil {
		s.log.Warn("failed to send passcode reset notification",
			zap.String("business_identifier", entity.BusinessIdentifier),
			zap.Error(err))
	}
	return nil
}

func generatePasscode() (string, error) {
	var sb strings.Builder
	for i := 0; i < generatedPasscodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}
