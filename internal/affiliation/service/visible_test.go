package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/affiliation/domain"
	affiliationrepo "github.com/smallbiznis/registra/internal/affiliation/repository"
	entitydomain "github.com/smallbiznis/registra/internal/entity/domain"
	"github.com/smallbiznis/registra/internal/usercontext"
	"github.com/smallbiznis/registra/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type visibleFixture struct {
	svc   domain.Service
	conn  *gorm.DB
	node  *snowflake.Node
	orgID snowflake.ID
}

func newVisibleFixture(t *testing.T) *visibleFixture {
	t.Helper()

	conn := db.NewTest(t, &entitydomain.Entity{}, &domain.Affiliation{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  affiliationrepo.NewRepository(conn),
	})
	return &visibleFixture{svc: svc, conn: conn, node: node, orgID: node.Generate()}
}

func (f *visibleFixture) affiliate(t *testing.T, identifier, name, corpType string) {
	t.Helper()
	entity := entitydomain.Entity{
		ID:                 f.node.Generate(),
		BusinessIdentifier: identifier,
		Name:               name,
		CorpTypeCode:       corpType,
	}
	require.NoError(t, f.conn.Create(&entity).Error)
	require.NoError(t, f.conn.Create(&domain.Affiliation{
		ID:       f.node.Generate(),
		OrgID:    f.orgID,
		EntityID: entity.ID,
	}).Error)
}

func staffCtx() context.Context {
	return usercontext.WithUser(context.Background(), usercontext.UserContext{
		Roles: []string{usercontext.RoleStaff},
	})
}

func identifiersOf(rows []domain.OrgAffiliation) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.BusinessIdentifier)
	}
	return out
}

func TestFindVisibleDraftSupersedesNameRequest(t *testing.T) {
	f := newVisibleFixture(t)
	f.affiliate(t, "NR 1111111", "ACME VENTURES LTD", entitydomain.CorpTypeNR)
	f.affiliate(t, "TAbc123", "NR 1111111", entitydomain.CorpTypeTMP)

	rows, err := f.svc.FindVisibleByOrg(staffCtx(), f.orgID)
	require.NoError(t, err)
	require.Equal(t, []string{"TAbc123"}, identifiersOf(rows))

	// The draft surfaces under the name request's name and number.
	require.Equal(t, "ACME VENTURES LTD", rows[0].EntityName)
	require.Equal(t, "NR 1111111", rows[0].NrNumber)
}

func TestFindVisibleNumberedCompanyDraftKept(t *testing.T) {
	f := newVisibleFixture(t)
	f.affiliate(t, "TNum456", "TNum456", entitydomain.CorpTypeTMP)

	rows, err := f.svc.FindVisibleByOrg(staffCtx(), f.orgID)
	require.NoError(t, err)
	require.Equal(t, []string{"TNum456"}, identifiersOf(rows))
	require.Empty(t, rows[0].NrNumber)
}

func TestFindVisibleOrphanDraftHidden(t *testing.T) {
	f := newVisibleFixture(t)
	f.affiliate(t, "TOrphan1", "NR 9999999", entitydomain.CorpTypeTMP)
	f.affiliate(t, "BC0001234", "EXAMPLE HOLDINGS INC", "BC")

	rows, err := f.svc.FindVisibleByOrg(staffCtx(), f.orgID)
	require.NoError(t, err)
	require.Equal(t, []string{"BC0001234"}, identifiersOf(rows))
}

func TestFindVisibleStandaloneNameRequestKept(t *testing.T) {
	f := newVisibleFixture(t)
	f.affiliate(t, "NR 2222222", "FRESH START BAKERY", entitydomain.CorpTypeNR)

	rows, err := f.svc.FindVisibleByOrg(staffCtx(), f.orgID)
	require.NoError(t, err)
	require.Equal(t, []string{"NR 2222222"}, identifiersOf(rows))
	require.Equal(t, "FRESH START BAKERY", rows[0].EntityName)
}
