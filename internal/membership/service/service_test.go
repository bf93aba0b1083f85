package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/registra/internal/audit/domain"
	"github.com/smallbiznis/registra/internal/config"
	shared "github.com/smallbiznis/registra/internal/domain"
	"github.com/smallbiznis/registra/internal/events"
	"github.com/smallbiznis/registra/internal/idp"
	"github.com/smallbiznis/registra/internal/membership/domain"
	membershiprepo "github.com/smallbiznis/registra/internal/membership/repository"
	orgdomain "github.com/smallbiznis/registra/internal/organization/domain"
	orgrepo "github.com/smallbiznis/registra/internal/organization/repository"
	userdomain "github.com/smallbiznis/registra/internal/user/domain"
	userrepo "github.com/smallbiznis/registra/internal/user/repository"
	"github.com/smallbiznis/registra/internal/usercontext"
	"github.com/smallbiznis/registra/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeIDP struct {
	groups  map[string][]string
	added   []string
	removed []string
}

func (f *fakeIDP) UserGroups(_ context.Context, sub string) ([]string, error) {
	return f.groups[sub], nil
}

func (f *fakeIDP) AddToGroup(_ context.Context, sub, group string) error {
	f.added = append(f.added, group)
	return nil
}

func (f *fakeIDP) RemoveFromGroup(_ context.Context, sub, group string) error {
	f.removed = append(f.removed, group)
	return nil
}

type fakeMailer struct {
	teamModified int
	adminRemoved []string
}

func (f *fakeMailer) SendTeamModified(context.Context, snowflake.ID, []string) error {
	f.teamModified++
	return nil
}

func (f *fakeMailer) SendAdminRemoved(_ context.Context, _ snowflake.ID, recipient string) error {
	f.adminRemoved = append(f.adminRemoved, recipient)
	return nil
}

func (f *fakeMailer) SendPasscodeReset(context.Context, string, string, []string) error {
	return nil
}

type fakeAudit struct {
	activities []auditdomain.Activity
}

func (f *fakeAudit) Publish(_ context.Context, activity auditdomain.Activity) {
	f.activities = append(f.activities, activity)
}

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) Publish(_ context.Context, eventType string, _ snowflake.ID, _ map[string]any) error {
	f.published = append(f.published, eventType)
	return nil
}

type fixture struct {
	svc       domain.Service
	conn      *gorm.DB
	node      *snowflake.Node
	idp       *fakeIDP
	mailer    *fakeMailer
	audit     *fakeAudit
	publisher *fakePublisher
	cfg       config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := db.NewTest(t, &orgdomain.Organization{}, &userdomain.User{}, &domain.Membership{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		conn:      conn,
		node:      node,
		idp:       &fakeIDP{groups: map[string][]string{}},
		mailer:    &fakeMailer{},
		audit:     &fakeAudit{},
		publisher: &fakePublisher{},
		cfg: config.Config{
			StaffOrgGroups: map[string]string{
				"MAXIMUS_STAFF": "maximus_staff",
				"CC_STAFF":      "contact_centre_staff",
			},
		},
	}

	f.svc = NewService(Params{
		Log:       zap.NewNop(),
		Config:    f.cfg,
		Repo:      membershiprepo.NewRepository(conn),
		Users:     userrepo.NewRepository(conn),
		Orgs:      orgrepo.NewRepository(conn),
		IDP:       f.idp,
		Mailer:    f.mailer,
		Audit:     f.audit,
		Publisher: f.publisher,
	})
	return f
}

func (f *fixture) seedOrg(t *testing.T, typeCode string) orgdomain.Organization {
	t.Helper()
	org := orgdomain.Organization{
		ID:         f.node.Generate(),
		Name:       "Test Org " + f.node.Generate().String(),
		Slug:       "test-org-" + f.node.Generate().String(),
		TypeCode:   typeCode,
		StatusCode: orgdomain.StatusActive,
	}
	require.NoError(t, f.conn.Create(&org).Error)
	return org
}

func (f *fixture) seedUser(t *testing.T, loginSource string) userdomain.User {
	t.Helper()
	id := f.node.Generate()
	user := userdomain.User{
		ID:          id,
		Sub:         "sub-" + id.String(),
		Username:    "user-" + id.String(),
		Email:       "user-" + id.String() + "@example.com",
		LoginSource: loginSource,
	}
	require.NoError(t, f.conn.Create(&user).Error)
	return user
}

func (f *fixture) seedMembership(t *testing.T, org orgdomain.Organization, user userdomain.User, role, status string) domain.Membership {
	t.Helper()
	membership := domain.Membership{
		ID:                 f.node.Generate(),
		OrgID:              org.ID,
		UserID:             user.ID,
		MembershipTypeCode: role,
		Status:             status,
	}
	require.NoError(t, f.conn.Create(&membership).Error)
	return membership
}

func callerCtx(user userdomain.User, roles ...string) context.Context {
	return usercontext.WithUser(context.Background(), usercontext.UserContext{
		UserID:      user.ID,
		Sub:         user.Sub,
		LoginSource: user.LoginSource,
		Roles:       roles,
	})
}

func strptr(s string) *string { return &s }

func TestUpdateLastOwnerCannotBeDemoted(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	owner := f.seedUser(t, usercontext.LoginSourceBCSC)
	membership := f.seedMembership(t, org, owner, domain.RoleAdmin, domain.StatusActive)

	_, err := f.svc.Update(callerCtx(owner), membership.ID, domain.UpdateRequest{
		MembershipType: strptr(domain.RoleUser),
	})
	require.ErrorIs(t, err, shared.ErrBusinessRuleViolation)
}

func TestUpdateDemoteWithSecondOwner(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	first := f.seedUser(t, usercontext.LoginSourceBCSC)
	second := f.seedUser(t, usercontext.LoginSourceBCSC)
	membership := f.seedMembership(t, org, first, domain.RoleAdmin, domain.StatusActive)
	f.seedMembership(t, org, second, domain.RoleAdmin, domain.StatusActive)

	updated, err := f.svc.Update(callerCtx(first), membership.ID, domain.UpdateRequest{
		MembershipType: strptr(domain.RoleUser),
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, updated.MembershipTypeCode)

	var stored domain.Membership
	require.NoError(t, f.conn.First(&stored, "id = ?", membership.ID).Error)
	require.Equal(t, domain.RoleUser, stored.MembershipTypeCode)
}

func TestDeactivateLastOwnerBlocked(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	owner := f.seedUser(t, usercontext.LoginSourceBCSC)
	membership := f.seedMembership(t, org, owner, domain.RoleAdmin, domain.StatusActive)

	_, err := f.svc.Deactivate(callerCtx(owner), membership.ID)
	require.ErrorIs(t, err, shared.ErrBusinessRuleViolation)
}

func TestDeactivateSelfLeavesGroup(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	member := f.seedUser(t, usercontext.LoginSourceBCSC)
	membership := f.seedMembership(t, org, member, domain.RoleUser, domain.StatusActive)
	f.idp.groups[member.Sub] = []string{idp.GroupAccountHolders}

	updated, err := f.svc.Deactivate(callerCtx(member), membership.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInactive, updated.Status)

	// The last active membership is gone, so the base group is removed.
	require.Contains(t, f.removedGroups(), idp.GroupAccountHolders)
	require.Contains(t, f.publisher.published, events.TypeTeamMemberRemoved)
}

func (f *fixture) removedGroups() []string { return f.idp.removed }

func TestDeactivateIdempotent(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	member := f.seedUser(t, usercontext.LoginSourceBCSC)
	membership := f.seedMembership(t, org, member, domain.RoleUser, domain.StatusInactive)

	updated, err := f.svc.Deactivate(callerCtx(member), membership.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInactive, updated.Status)
	require.Empty(t, f.publisher.published)
}

func TestUpdateBCeIDCannotHoldOwnerRole(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	owner := f.seedUser(t, usercontext.LoginSourceBCSC)
	member := f.seedUser(t, usercontext.LoginSourceBCeID)
	f.seedMembership(t, org, owner, domain.RoleAdmin, domain.StatusActive)
	membership := f.seedMembership(t, org, member, domain.RoleUser, domain.StatusActive)

	_, err := f.svc.Update(callerCtx(owner), membership.ID, domain.UpdateRequest{
		MembershipType: strptr(domain.RoleAdmin),
	})
	require.ErrorIs(t, err, shared.ErrBusinessRuleViolation)
}

func TestUpdateCoordinatorCannotGrantOwner(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	owner := f.seedUser(t, usercontext.LoginSourceBCSC)
	coordinator := f.seedUser(t, usercontext.LoginSourceBCSC)
	member := f.seedUser(t, usercontext.LoginSourceBCSC)
	f.seedMembership(t, org, owner, domain.RoleAdmin, domain.StatusActive)
	f.seedMembership(t, org, coordinator, domain.RoleCoordinator, domain.StatusActive)
	membership := f.seedMembership(t, org, member, domain.RoleUser, domain.StatusActive)

	_, err := f.svc.Update(callerCtx(coordinator), membership.ID, domain.UpdateRequest{
		MembershipType: strptr(domain.RoleAdmin),
	})
	require.ErrorIs(t, err, shared.ErrForbidden)

	updated, err := f.svc.Update(callerCtx(owner), membership.ID, domain.UpdateRequest{
		MembershipType: strptr(domain.RoleAdmin),
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, updated.MembershipTypeCode)
}

func TestUpdateStrangerForbidden(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	owner := f.seedUser(t, usercontext.LoginSourceBCSC)
	stranger := f.seedUser(t, usercontext.LoginSourceBCSC)
	other := f.seedUser(t, usercontext.LoginSourceBCSC)
	f.seedMembership(t, org, owner, domain.RoleAdmin, domain.StatusActive)
	membership := f.seedMembership(t, org, other, domain.RoleUser, domain.StatusActive)

	_, err := f.svc.Update(callerCtx(stranger), membership.ID, domain.UpdateRequest{
		Status: strptr(domain.StatusInactive),
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateStaffOrgUniqueness(t *testing.T) {
	f := newFixture(t)
	maximus := f.seedOrg(t, "MAXIMUS_STAFF")
	contactCentre := f.seedOrg(t, "CC_STAFF")
	user := f.seedUser(t, usercontext.LoginSourceIDIR)
	staff := f.seedUser(t, usercontext.LoginSourceIDIR)

	f.seedMembership(t, maximus, user, domain.RoleUser, domain.StatusActive)
	pending := f.seedMembership(t, contactCentre, user, domain.RoleUser, domain.StatusPendingApproval)

	_, err := f.svc.Update(callerCtx(staff, usercontext.RoleStaff), pending.ID, domain.UpdateRequest{
		Status: strptr(domain.StatusActive),
	})
	require.ErrorIs(t, err, shared.ErrBusinessRuleViolation)
}

func TestUpdateActivationIntoRegularOrg(t *testing.T) {
	f := newFixture(t)
	staffOrg := f.seedOrg(t, "MAXIMUS_STAFF")
	regular := f.seedOrg(t, orgdomain.TypePremium)
	user := f.seedUser(t, usercontext.LoginSourceBCSC)
	staff := f.seedUser(t, usercontext.LoginSourceIDIR)

	f.seedMembership(t, staffOrg, user, domain.RoleUser, domain.StatusActive)
	pending := f.seedMembership(t, regular, user, domain.RoleUser, domain.StatusPendingApproval)

	// Uniqueness binds staff-tier orgs only.
	updated, err := f.svc.Update(callerCtx(staff, usercontext.RoleStaff), pending.ID, domain.UpdateRequest{
		Status: strptr(domain.StatusActive),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, updated.Status)
}

func TestStaffUpdateNotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	first := f.seedUser(t, usercontext.LoginSourceBCSC)
	second := f.seedUser(t, usercontext.LoginSourceBCSC)
	staff := f.seedUser(t, usercontext.LoginSourceIDIR)
	membership := f.seedMembership(t, org, first, domain.RoleAdmin, domain.StatusActive)
	f.seedMembership(t, org, second, domain.RoleAdmin, domain.StatusActive)

	_, err := f.svc.Update(callerCtx(staff, usercontext.RoleStaff), membership.ID, domain.UpdateRequest{
		Status: strptr(domain.StatusInactive),
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.mailer.teamModified)
	require.Equal(t, []string{first.Email}, f.mailer.adminRemoved)
}

func TestSelfUpdateDoesNotNotify(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	first := f.seedUser(t, usercontext.LoginSourceBCSC)
	second := f.seedUser(t, usercontext.LoginSourceBCSC)
	membership := f.seedMembership(t, org, first, domain.RoleAdmin, domain.StatusActive)
	f.seedMembership(t, org, second, domain.RoleAdmin, domain.StatusActive)

	_, err := f.svc.Update(callerCtx(first), membership.ID, domain.UpdateRequest{
		Status: strptr(domain.StatusInactive),
	})
	require.NoError(t, err)
	require.Zero(t, f.mailer.teamModified)
	require.Empty(t, f.mailer.adminRemoved)
}

func TestDeactivateSendsNoMail(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	first := f.seedUser(t, usercontext.LoginSourceBCSC)
	second := f.seedUser(t, usercontext.LoginSourceBCSC)
	staff := f.seedUser(t, usercontext.LoginSourceIDIR)
	membership := f.seedMembership(t, org, first, domain.RoleAdmin, domain.StatusActive)
	f.seedMembership(t, org, second, domain.RoleAdmin, domain.StatusActive)

	updated, err := f.svc.Deactivate(callerCtx(staff, usercontext.RoleStaff), membership.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInactive, updated.Status)

	// Removal events and group sync still run; mail belongs to Update.
	require.Contains(t, f.publisher.published, events.TypeTeamMemberRemoved)
	require.Zero(t, f.mailer.teamModified)
	require.Empty(t, f.mailer.adminRemoved)
}

func TestMembersForOrgVisibility(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	owner := f.seedUser(t, usercontext.LoginSourceBCSC)
	member := f.seedUser(t, usercontext.LoginSourceBCSC)
	applicant := f.seedUser(t, usercontext.LoginSourceBCSC)
	f.seedMembership(t, org, owner, domain.RoleAdmin, domain.StatusActive)
	f.seedMembership(t, org, member, domain.RoleUser, domain.StatusActive)
	f.seedMembership(t, org, applicant, domain.RoleUser, domain.StatusPendingApproval)

	// "PENDING" is accepted as an alias.
	pending, err := f.svc.MembersForOrg(callerCtx(owner), org.ID, "pending", nil)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, applicant.ID, pending[0].UserID)

	// Regular members may only view the active roster.
	_, err = f.svc.MembersForOrg(callerCtx(member), org.ID, "PENDING", nil)
	require.ErrorIs(t, err, shared.ErrForbidden)

	active, err := f.svc.MembersForOrg(callerCtx(member), org.ID, "", nil)
	require.NoError(t, err)
	require.Len(t, active, 2)

	// Outsiders see nothing.
	outsider := f.seedUser(t, usercontext.LoginSourceBCSC)
	_, err = f.svc.MembersForOrg(callerCtx(outsider), org.ID, "", nil)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestPendingCount(t *testing.T) {
	f := newFixture(t)
	org := f.seedOrg(t, orgdomain.TypePremium)
	owner := f.seedUser(t, usercontext.LoginSourceBCSC)
	applicant := f.seedUser(t, usercontext.LoginSourceBCSC)
	f.seedMembership(t, org, owner, domain.RoleAdmin, domain.StatusActive)
	f.seedMembership(t, org, applicant, domain.RoleUser, domain.StatusPendingApproval)

	count, err := f.svc.PendingCount(callerCtx(owner), org.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
