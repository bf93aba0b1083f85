package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/registra/internal/audit/domain"
	"github.com/smallbiznis/registra/internal/config"
	shared "github.com/smallbiznis/registra/internal/domain"
	"github.com/smallbiznis/registra/internal/events"
	"github.com/smallbiznis/registra/internal/idp"
	"github.com/smallbiznis/registra/internal/membership/domain"
	"github.com/smallbiznis/registra/internal/notify"
	orgdomain "github.com/smallbiznis/registra/internal/organization/domain"
	userdomain "github.com/smallbiznis/registra/internal/user/domain"
	"github.com/smallbiznis/registra/internal/usercontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Config    config.Config
	Repo      domain.Repository
	Users     userdomain.Repository
	Orgs      orgdomain.Repository
	IDP       idp.Client
	Mailer    notify.Mailer
	Audit     auditdomain.Service
	Publisher events.Publisher
}

type Service struct {
	log       *zap.Logger
	cfg       config.Config
	repo      domain.Repository
	users     userdomain.Repository
	orgs      orgdomain.Repository
	idp       idp.Client
	mailer    notify.Mailer
	audit     auditdomain.Service
	publisher events.Publisher
}

func NewService(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("membership.service"),
		cfg:       p.Config,
		repo:      p.Repo,
		users:     p.Users,
		orgs:      p.Orgs,
		idp:       p.IDP,
		mailer:    p.Mailer,
		audit:     p.Audit,
		publisher: p.Publisher,
	}
}

// Update applies a role or status change after running every transition
// guard. Guards run before any write so a rejected transition leaves no
// trace.
func (s *Service) Update(ctx context.Context, membershipID snowflake.ID, req domain.UpdateRequest) (*domain.Membership, error) {
	membership, err := s.repo.FindByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, fmt.Errorf("%w: membership %d", shared.ErrNotFound, membershipID)
	}

	caller, ok := usercontext.FromContext(ctx)
	if !ok {
		return nil, shared.ErrForbidden
	}

	newRole := membership.MembershipTypeCode
	if req.MembershipType != nil {
		newRole = strings.ToUpper(*req.MembershipType)
	}
	newStatus := membership.Status
	if req.Status != nil {
		newStatus = strings.ToUpper(*req.Status)
	}
	if !validRole(newRole) || !validStatus(newStatus) {
		return nil, fmt.Errorf("%w: invalid membership update", shared.ErrInvalidState)
	}

	if caller.UserID != membership.UserID {
		if err := s.requireOrgRole(ctx, caller, membership.OrgID, domain.RoleCoordinator, domain.RoleAdmin); err != nil {
			return nil, err
		}
	}

	target, err := s.users.FindByID(ctx, membership.UserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, membership.UserID)
	}

	if newStatus == domain.StatusActive {
		if err := s.checkStaffOrgUniqueness(ctx, membership, target); err != nil {
			return nil, err
		}
	}

	if newRole == domain.RoleAdmin && target.LoginSource == usercontext.LoginSourceBCeID {
		return nil, fmt.Errorf("%w: BCeID users cannot hold the owner role", shared.ErrBusinessRuleViolation)
	}

	if newRole == domain.RoleAdmin && membership.MembershipTypeCode != domain.RoleAdmin {
		if !caller.IsStaff() {
			callerMembership, err := s.repo.FindByUserAndOrg(ctx, caller.UserID, membership.OrgID)
			if err != nil {
				return nil, err
			}
			if callerMembership == nil || callerMembership.Status != domain.StatusActive ||
				callerMembership.MembershipTypeCode != domain.RoleAdmin {
				return nil, fmt.Errorf("%w: only an owner may grant the owner role", shared.ErrForbidden)
			}
		}
	}

	demotesOwner := membership.MembershipTypeCode == domain.RoleAdmin && membership.Status == domain.StatusActive &&
		(newRole != domain.RoleAdmin || newStatus == domain.StatusInactive)
	if demotesOwner {
		owners, err := s.repo.ActiveOwnerCount(ctx, membership.OrgID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, fmt.Errorf("%w: org must retain at least one owner", shared.ErrBusinessRuleViolation)
		}
	}

	changed := newRole != membership.MembershipTypeCode || newStatus != membership.Status
	statusBefore := membership.Status
	membership.MembershipTypeCode = newRole
	membership.Status = newStatus
	if changed {
		if err := s.repo.Save(ctx, *membership); err != nil {
			return nil, err
		}
	}

	if changed {
		s.recordTransition(ctx, membership, target, statusBefore)
		s.syncGroups(ctx, target)
		s.notifyStaffChange(ctx, caller, membership, target, statusBefore)
	}
	return membership, nil
}

// Deactivate retires a membership. Members may leave on their own; removing
// someone else requires coordinator rights, and removing an owner requires
// owner rights.
func (s *Service) Deactivate(ctx context.Context, membershipID snowflake.ID) (*domain.Membership, error) {
	membership, err := s.repo.FindByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, fmt.Errorf("%w: membership %d", shared.ErrNotFound, membershipID)
	}
	if membership.Status == domain.StatusInactive {
		return membership, nil
	}

	caller, ok := usercontext.FromContext(ctx)
	if !ok {
		return nil, shared.ErrForbidden
	}

	if caller.UserID != membership.UserID {
		if err := s.requireOrgRole(ctx, caller, membership.OrgID, domain.RoleCoordinator, domain.RoleAdmin); err != nil {
			return nil, err
		}
		if membership.MembershipTypeCode == domain.RoleAdmin {
			if err := s.requireOrgRole(ctx, caller, membership.OrgID, domain.RoleAdmin); err != nil {
				return nil, err
			}
		}
	}

	if membership.MembershipTypeCode == domain.RoleAdmin && membership.Status == domain.StatusActive {
		owners, err := s.repo.ActiveOwnerCount(ctx, membership.OrgID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, fmt.Errorf("%w: org must retain at least one owner", shared.ErrBusinessRuleViolation)
		}
	}

	target, err := s.users.FindByID(ctx, membership.UserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, membership.UserID)
	}

	statusBefore := membership.Status
	membership.Status = domain.StatusInactive
	if err := s.repo.Save(ctx, *membership); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, membership, target, statusBefore)
	s.syncGroups(ctx, target)
	return membership, nil
}

func (s *Service) MembersForOrg(ctx context.Context, orgID snowflake.ID, status string, roles []string) ([]domain.MemberDetail, error) {
	caller, ok := usercontext.FromContext(ctx)
	if !ok {
		return nil, shared.ErrForbidden
	}

	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		status = domain.StatusActive
	}
	if status == "PENDING" {
		status = domain.StatusPendingApproval
	}
	if !validStatus(status) {
		return nil, fmt.Errorf("%w: unknown membership status %q", shared.ErrInvalidState, status)
	}

	if !caller.IsStaff() && !caller.IsExternalStaff() {
		own, err := s.repo.FindByUserAndOrg(ctx, caller.UserID, orgID)
		if err != nil {
			return nil, err
		}
		if own == nil || own.Status != domain.StatusActive {
			return nil, shared.ErrForbidden
		}
		// Regular members see only the active roster.
		if own.MembershipTypeCode == domain.RoleUser && status != domain.StatusActive {
			return nil, shared.ErrForbidden
		}
	}

	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		if !validRole(role) {
			return nil, fmt.Errorf("%w: unknown membership role %q", shared.ErrInvalidState, role)
		}
		normalized = append(normalized, role)
	}

	return s.repo.ListByOrg(ctx, orgID, []string{status}, normalized)
}

func (s *Service) PendingCount(ctx context.Context, orgID snowflake.ID) (int64, error) {
	caller, ok := usercontext.FromContext(ctx)
	if !ok {
		return 0, shared.ErrForbidden
	}
	if !caller.IsStaff() {
		if err := s.requireOrgRole(ctx, caller, orgID, domain.RoleCoordinator, domain.RoleAdmin); err != nil {
			return 0, err
		}
	}
	return s.repo.PendingCountByOrg(ctx, orgID)
}

// checkStaffOrgUniqueness rejects an activation that would make the user
// active in two staff-tier orgs at once.
func (s *Service) checkStaffOrgUniqueness(ctx context.Context, membership *domain.Membership, target *userdomain.User) error {
	staffTypes := s.cfg.StaffOrgTypes()
	if len(staffTypes) == 0 {
		return nil
	}

	targetOrg, err := s.orgs.FindByID(ctx, membership.OrgID)
	if err != nil {
		return err
	}
	if targetOrg == nil || !contains(staffTypes, targetOrg.TypeCode) {
		return nil
	}

	active, err := s.repo.ListActiveByUser(ctx, target.ID)
	if err != nil {
		return err
	}
	otherOrgIDs := make([]snowflake.ID, 0, len(active))
	for _, m := range active {
		if m.OrgID != membership.OrgID {
			otherOrgIDs = append(otherOrgIDs, m.OrgID)
		}
	}
	staffOrgs, err := s.orgs.ListByIDsAndTypes(ctx, otherOrgIDs, staffTypes)
	if err != nil {
		return err
	}
	if len(staffOrgs) > 0 {
		return fmt.Errorf("%w: user already belongs to the staff org %q", shared.ErrBusinessRuleViolation, staffOrgs[0].Name)
	}
	return nil
}

func (s *Service) requireOrgRole(ctx context.Context, caller usercontext.UserContext, orgID snowflake.ID, roles ...string) error {
	if caller.IsStaff() || caller.IsSystem() {
		return nil
	}
	membership, err := s.repo.FindByUserAndOrg(ctx, caller.UserID, orgID)
	if err != nil {
		return err
	}
	if membership == nil || membership.Status != domain.StatusActive {
		return shared.ErrForbidden
	}
	if !contains(roles, membership.MembershipTypeCode) {
		return shared.ErrForbidden
	}
	return nil
}

func (s *Service) recordTransition(ctx context.Context, membership *domain.Membership, target *userdomain.User, statusBefore string) {
	name := strings.TrimSpace(target.FirstName + " " + target.LastName)
	if name == "" {
		name = target.Username
	}

	switch {
	case membership.Status == domain.StatusActive && statusBefore != domain.StatusActive:
		s.audit.Publish(ctx, auditdomain.Activity{
			OrgID:  membership.OrgID,
			Action: auditdomain.ActionApproveTeamMember,
			Name:   name,
			ItemID: membership.UserID.String(),
			Value:  membership.MembershipTypeCode,
		})
	case membership.Status == domain.StatusInactive && statusBefore != domain.StatusInactive:
		s.audit.Publish(ctx, auditdomain.Activity{
			OrgID:  membership.OrgID,
			Action: auditdomain.ActionRemoveTeamMember,
			Name:   name,
			ItemID: membership.UserID.String(),
			Value:  membership.MembershipTypeCode,
		})
		err := s.publisher.Publish(ctx, events.TypeTeamMemberRemoved, membership.OrgID, map[string]any{
			"userId": target.Sub,
		})
		if err != nil {
			s.log.Warn("failed to publish member removal event",
				zap.Int64("org_id", int64(membership.OrgID)),
				zap.Error(err))
		}
	}
}

// syncGroups reconciles the user's identity-provider groups with their
// memberships. Sync failures are logged and never fail the transition;
// the next transition retries from the full desired state.
func (s *Service) syncGroups(ctx context.Context, target *userdomain.User) {
	current, err := s.idp.UserGroups(ctx, target.Sub)
	if err != nil {
		s.log.Warn("failed to read idp groups", zap.String("sub", target.Sub), zap.Error(err))
		return
	}
	inGroup := make(map[string]bool, len(current))
	for _, g := range current {
		inGroup[g] = true
	}

	active, err := s.repo.ListActiveByUser(ctx, target.ID)
	if err != nil {
		s.log.Warn("failed to list active memberships", zap.String("sub", target.Sub), zap.Error(err))
		return
	}

	desired := map[string]bool{
		idp.GroupAccountHolders: len(active) > 0,
	}

	staffTypes := s.cfg.StaffOrgTypes()
	if len(staffTypes) > 0 {
		activeOrgIDs := make([]snowflake.ID, 0, len(active))
		for _, m := range active {
			activeOrgIDs = append(activeOrgIDs, m.OrgID)
		}
		staffOrgs, err := s.orgs.ListByIDsAndTypes(ctx, activeOrgIDs, staffTypes)
		if err != nil {
			s.log.Warn("failed to resolve staff orgs", zap.String("sub", target.Sub), zap.Error(err))
			return
		}
		activeStaffTypes := make(map[string]bool, len(staffOrgs))
		for _, org := range staffOrgs {
			activeStaffTypes[org.TypeCode] = true
		}
		for typeCode, group := range s.cfg.StaffOrgGroups {
			desired[group] = activeStaffTypes[typeCode]
		}
	}

	for group, want := range desired {
		switch {
		case want && !inGroup[group]:
			if err := s.idp.AddToGroup(ctx, target.Sub, group); err != nil {
				s.log.Warn("failed to add idp group",
					zap.String("sub", target.Sub),
					zap.String("group", group),
					zap.Error(err))
			}
		case !want && inGroup[group]:
			if err := s.idp.RemoveFromGroup(ctx, target.Sub, group); err != nil {
				s.log.Warn("failed to remove idp group",
					zap.String("sub", target.Sub),
					zap.String("group", group),
					zap.Error(err))
			}
		}
	}
}

// notifyStaffChange emails the account when internal staff alter its team.
func (s *Service) notifyStaffChange(ctx context.Context, caller usercontext.UserContext, membership *domain.Membership, target *userdomain.User, statusBefore string) {
	if !caller.IsStaff() || target.LoginSource == usercontext.LoginSourceBCROS {
		return
	}

	recipients, err := s.repo.ActiveAdminEmails(ctx, membership.OrgID)
	if err != nil {
		s.log.Warn("failed to resolve admin recipients",
			zap.Int64("org_id", int64(membership.OrgID)),
			zap.Error(err))
	} else if err := s.mailer.SendTeamModified(ctx, membership.OrgID, recipients); err != nil {
		s.log.Warn("failed to send team modified notification",
			zap.Int64("org_id", int64(membership.OrgID)),
			zap.Error(err))
	}

	removedOwner := membership.Status == domain.StatusInactive && statusBefore == domain.StatusActive &&
		membership.MembershipTypeCode == domain.RoleAdmin
	if removedOwner && target.Email != "" {
		if err := s.mailer.SendAdminRemoved(ctx, membership.OrgID, target.Email); err != nil {
			s.log.Warn("failed to send admin removed notification",
				zap.Int64("org_id", int64(membership.OrgID)),
				zap.Error(err))
		}
	}
}

func validRole(role string) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleCoordinator, domain.RoleUser:
		return true
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case domain.StatusPendingApproval, domain.StatusActive, domain.StatusInactive, domain.StatusRejected:
		return true
	}
	return false
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
