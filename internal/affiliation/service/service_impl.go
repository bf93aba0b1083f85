package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/affiliation/domain"
	auditdomain "github.com/smallbiznis/registra/internal/audit/domain"
	shared "github.com/smallbiznis/registra/internal/domain"
	entitydomain "github.com/smallbiznis/registra/internal/entity/domain"
	"github.com/smallbiznis/registra/internal/events"
	membershipdomain "github.com/smallbiznis/registra/internal/membership/domain"
	orgdomain "github.com/smallbiznis/registra/internal/organization/domain"
	"github.com/smallbiznis/registra/internal/payment"
	"github.com/smallbiznis/registra/internal/registry"
	"github.com/smallbiznis/registra/internal/usercontext"
	"github.com/smallbiznis/registra/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Entities    entitydomain.Repository
	EntitySvc   entitydomain.Service
	Orgs        orgdomain.Repository
	Memberships membershipdomain.Repository
	Gateway     registry.Gateway
	Payments    payment.Client
	Reconciler  *Reconciler
	Authorizer  *Authorizer
	Audit       auditdomain.Service
	Publisher   events.Publisher
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	entities    entitydomain.Repository
	entitySvc   entitydomain.Service
	orgs        orgdomain.Repository
	memberships membershipdomain.Repository
	gateway     registry.Gateway
	payments    payment.Client
	reconciler  *Reconciler
	authorizer  *Authorizer
	audit       auditdomain.Service
	publisher   events.Publisher
}

func NewService(p Params) domain.Service {
	return &Service{
		log:         p.Log.Named("affiliation.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		entities:    p.Entities,
		entitySvc:   p.EntitySvc,
		orgs:        p.Orgs,
		memberships: p.Memberships,
		gateway:     p.Gateway,
		payments:    p.Payments,
		reconciler:  p.Reconciler,
		authorizer:  p.Authorizer,
		audit:       p.Audit,
		publisher:   p.Publisher,
	}
}

func (s *Service) FindVisibleByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.OrgAffiliation, error) {
	if err := s.requireOrgAccess(ctx, orgID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	// A draft entity carries its name-request number as its name until
	// registration, so draft names index into the affiliated NRs and
	// vice versa.
	nrNames := make(map[string]string)
	draftNames := make(map[string]bool)
	for _, row := range rows {
		switch {
		case row.CorpTypeCode == entitydomain.CorpTypeNR:
			nrNames[row.BusinessIdentifier] = row.EntityName
		case entitydomain.IsTempCorpType(row.CorpTypeCode):
			draftNames[row.EntityName] = true
		}
	}

	visible := make([]domain.OrgAffiliation, 0, len(rows))
	for _, row := range rows {
		// The draft supersedes its name request in the listing.
		if row.CorpTypeCode == entitydomain.CorpTypeNR && draftNames[row.BusinessIdentifier] {
			continue
		}
		if entitydomain.IsTempCorpType(row.CorpTypeCode) {
			nrName, hasNR := nrNames[row.EntityName]
			// Keep named-company drafts (backed by an affiliated NR)
			// and numbered-company drafts (named after themselves).
			if !hasNR && row.EntityName != row.BusinessIdentifier {
				continue
			}
			if hasNR {
				row.NrNumber = row.EntityName
				row.EntityName = nrName
			}
		}
		visible = append(visible, row)
	}
	return visible, nil
}

func (s *Service) Details(ctx context.Context, orgID snowflake.ID, filter registry.SearchFilter, removeStaleDrafts bool) (*domain.DetailsResult, error) {
	if err := s.requireOrgAccess(ctx, orgID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	bases := make([]domain.Base, 0, len(rows))
	for _, row := range rows {
		bases = append(bases, domain.Base{
			Identifier: row.BusinessIdentifier,
			Created:    row.CreatedAt,
		})
	}
	return s.reconciler.Reconcile(ctx, bases, filter, removeStaleDrafts)
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Affiliation, error) {
	caller, ok := usercontext.FromContext(ctx)
	if !ok {
		return nil, shared.ErrForbidden
	}
	if err := s.requireOrgAccess(ctx, req.OrgID); err != nil {
		return nil, err
	}

	org, err := s.orgs.FindByID(ctx, req.OrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("%w: org %d", shared.ErrNotFound, req.OrgID)
	}

	identifier := strings.TrimSpace(req.BusinessIdentifier)
	entity, err := s.entities.FindByBusinessIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("%w: entity %s", shared.ErrNotFound, identifier)
	}

	existing, err := s.repo.FindByOrgAndEntity(ctx, org.ID, entity.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: affiliation to %s", shared.ErrAlreadyExists, identifier)
	}

	if err := s.authorizer.Authorize(ctx, caller, org.TypeCode, entity, req.Passcode); err != nil {
		return nil, err
	}

	affiliation := domain.Affiliation{
		ID:              s.genID.Generate(),
		OrgID:           org.ID,
		EntityID:        entity.ID,
		CertifiedByName: req.CertifiedByName,
	}
	if err := s.repo.Create(ctx, affiliation); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w: affiliation to %s", shared.ErrAlreadyExists, identifier)
		}
		return nil, err
	}

	if req.Passcode != "" && entity.PassCode != "" {
		if err := s.entities.SetPassCodeClaimed(ctx, entity.ID, true); err != nil {
			s.log.Warn("failed to claim passcode",
				zap.String("business_identifier", entity.BusinessIdentifier),
				zap.Error(err))
		}
	}

	s.recordAffiliationChange(ctx, auditdomain.ActionCreateAffiliation, org.ID, entity)
	s.publishAffiliationEvent(ctx, events.TypeBusinessAffiliated, org.ID, entity.BusinessIdentifier)
	return &affiliation, nil
}

func (s *Service) CreateNewBusiness(ctx context.Context, req domain.NewBusinessRequest) (*domain.Affiliation, error) {
	caller, ok := usercontext.FromContext(ctx)
	if !ok {
		return nil, shared.ErrForbidden
	}
	if err := s.requireOrgAccess(ctx, req.OrgID); err != nil {
		return nil, err
	}

	org, err := s.orgs.FindByID(ctx, req.OrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("%w: org %d", shared.ErrNotFound, req.OrgID)
	}

	nrNumber := strings.TrimSpace(req.NrNumber)
	req.NrNumber = nrNumber
	nr, err := s.validateNewBusiness(ctx, caller, req)
	if err != nil {
		return nil, err
	}

	claimed := true
	entity, err := s.entitySvc.Save(ctx, entitydomain.SaveEntityRequest{
		BusinessIdentifier: nrNumber,
		Name:               nrDisplayName(nr, nrNumber),
		CorpTypeCode:       entitydomain.CorpTypeNR,
		Status:             nr.Status(),
		PassCodeClaimed:    &claimed,
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByOrgAndEntity(ctx, org.ID, entity.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: affiliation to %s", shared.ErrAlreadyExists, nrNumber)
	}

	affiliation := domain.Affiliation{
		ID:              s.genID.Generate(),
		OrgID:           org.ID,
		EntityID:        entity.ID,
		CertifiedByName: req.CertifiedByName,
	}
	if err := s.repo.Create(ctx, affiliation); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("%w: affiliation to %s", shared.ErrAlreadyExists, nrNumber)
		}
		return nil, err
	}

	s.recordAffiliationChange(ctx, auditdomain.ActionCreateAffiliation, org.ID, entity)
	s.publishAffiliationEvent(ctx, events.TypeBusinessAffiliated, org.ID, entity.BusinessIdentifier)
	return &affiliation, nil
}

func (s *Service) FindAffiliation(ctx context.Context, orgID snowflake.ID, businessIdentifier string) (*domain.OrgAffiliation, error) {
	if err := s.requireOrgAccess(ctx, orgID); err != nil {
		return nil, err
	}
	entity, err := s.entities.FindByBusinessIdentifier(ctx, strings.TrimSpace(businessIdentifier))
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("%w: entity %s", shared.ErrNotFound, businessIdentifier)
	}
	affiliation, err := s.repo.FindByOrgAndEntity(ctx, orgID, entity.ID)
	if err != nil {
		return nil, err
	}
	if affiliation == nil {
		return nil, fmt.Errorf("%w: affiliation to %s", shared.ErrNotFound, businessIdentifier)
	}
	return &domain.OrgAffiliation{
		Affiliation:        *affiliation,
		BusinessIdentifier: entity.BusinessIdentifier,
		EntityName:         entity.Name,
		CorpTypeCode:       entity.CorpTypeCode,
	}, nil
}

func (s *Service) Delete(ctx context.Context, orgID snowflake.ID, businessIdentifier string, resetPasscode bool, email string) error {
	caller, ok := usercontext.FromContext(ctx)
	if !ok {
		return shared.ErrForbidden
	}
	if !caller.IsStaff() && !caller.IsSystem() {
		if err := s.requireOrgRole(ctx, caller, orgID,
			membershipdomain.RoleCoordinator, membershipdomain.RoleAdmin); err != nil {
			return err
		}
	}

	entity, err := s.entities.FindByBusinessIdentifier(ctx, strings.TrimSpace(businessIdentifier))
	if err != nil {
		return err
	}
	if entity == nil {
		return fmt.Errorf("%w: entity %s", shared.ErrNotFound, businessIdentifier)
	}
	affiliation, err := s.repo.FindByOrgAndEntity(ctx, orgID, entity.ID)
	if err != nil {
		return err
	}
	if affiliation == nil {
		return fmt.Errorf("%w: affiliation to %s", shared.ErrNotFound, businessIdentifier)
	}

	if err := s.repo.DeleteInvitations(ctx, orgID, entity.ID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, affiliation.ID); err != nil {
		return err
	}

	if err := s.entities.SetPassCodeClaimed(ctx, entity.ID, false); err != nil {
		s.log.Warn("failed to release passcode claim",
			zap.String("business_identifier", entity.BusinessIdentifier),
			zap.Error(err))
	}
	if resetPasscode {
		var recipients []string
		if email != "" {
			recipients = []string{email}
		}
		if err := s.entitySvc.ResetPasscode(ctx, entity.BusinessIdentifier, recipients); err != nil {
			s.log.Warn("failed to reset passcode on unaffiliation",
				zap.String("business_identifier", entity.BusinessIdentifier),
				zap.Error(err))
		}
	}

	s.recordAffiliationChange(ctx, auditdomain.ActionRemoveAffiliation, orgID, entity)
	s.publishAffiliationEvent(ctx, events.TypeBusinessUnaffiliated, orgID, entity.BusinessIdentifier)
	return nil
}

func (s *Service) FixStale(ctx context.Context, nrNumber, businessIdentifier string) error {
	caller, ok := usercontext.FromContext(ctx)
	if !ok || !caller.IsSystem() {
		return shared.ErrForbidden
	}

	from, err := s.entities.FindByBusinessIdentifier(ctx, strings.TrimSpace(nrNumber))
	if err != nil {
		return err
	}
	if from == nil {
		return fmt.Errorf("%w: entity %s", shared.ErrNotFound, nrNumber)
	}
	to, err := s.entities.FindByBusinessIdentifier(ctx, strings.TrimSpace(businessIdentifier))
	if err != nil {
		return err
	}
	if to == nil {
		return fmt.Errorf("%w: entity %s", shared.ErrNotFound, businessIdentifier)
	}

	if err := s.repo.Repoint(ctx, from.ID, to.ID); err != nil {
		return err
	}
	s.log.Info("repointed stale affiliations",
		zap.String("from", from.BusinessIdentifier),
		zap.String("to", to.BusinessIdentifier))
	return nil
}

// requireOrgAccess admits staff, system accounts, external staff viewers,
// and active members of the org.
func (s *Service) requireOrgAccess(ctx context.Context, orgID snowflake.ID) error {
	caller, ok := usercontext.FromContext(ctx)
	if !ok {
		return shared.ErrForbidden
	}
	if caller.IsStaff() || caller.IsSystem() || caller.IsExternalStaff() {
		return nil
	}
	membership, err := s.memberships.FindByUserAndOrg(ctx, caller.UserID, orgID)
	if err != nil {
		return err
	}
	if membership == nil || membership.Status != membershipdomain.StatusActive {
		return shared.ErrForbidden
	}
	return nil
}

func (s *Service) requireOrgRole(ctx context.Context, caller usercontext.UserContext, orgID snowflake.ID, roles ...string) error {
	membership, err := s.memberships.FindByUserAndOrg(ctx, caller.UserID, orgID)
	if err != nil {
		return err
	}
	if membership == nil || membership.Status != membershipdomain.StatusActive {
		return shared.ErrForbidden
	}
	for _, role := range roles {
		if membership.MembershipTypeCode == role {
			return nil
		}
	}
	return shared.ErrForbidden
}

// recordAffiliationChange logs the activity unless the entity is an
// in-flight draft; draft churn is registry noise, not user action.
func (s *Service) recordAffiliationChange(ctx context.Context, action string, orgID snowflake.ID, entity *entitydomain.Entity) {
	if entitydomain.IsTempCorpType(entity.CorpTypeCode) {
		return
	}
	s.audit.Publish(ctx, auditdomain.Activity{
		OrgID:  orgID,
		Action: action,
		Name:   entity.DisplayName(),
		ItemID: entity.BusinessIdentifier,
	})
}

func (s *Service) publishAffiliationEvent(ctx context.Context, eventType string, orgID snowflake.ID, businessIdentifier string) {
	err := s.publisher.Publish(ctx, eventType, orgID, map[string]any{
		"businessIdentifier": businessIdentifier,
	})
	if err != nil {
		s.log.Warn("failed to publish affiliation event",
			zap.String("event_type", eventType),
			zap.String("business_identifier", businessIdentifier),
			zap.Error(err))
	}
}
