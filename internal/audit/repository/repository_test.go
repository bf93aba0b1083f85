package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/audit/domain"
	"github.com/smallbiznis/registra/pkg/db"
	"github.com/smallbiznis/registra/pkg/db/pagination"
	"github.com/stretchr/testify/require"
)

func TestListByOrgPagesThroughLog(t *testing.T) {
	conn := db.NewTest(t, &domain.ActivityLog{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := NewRepository(conn)
	ctx := context.Background()
	orgID := node.Generate()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Insert(ctx, domain.ActivityLog{
			ID:        node.Generate(),
			OrgID:     orgID,
			Action:    domain.ActionApproveTeamMember,
			ItemID:    "user-" + string(rune('a'+i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Another org's rows never leak into the page.
	require.NoError(t, repo.Insert(ctx, domain.ActivityLog{
		ID:        node.Generate(),
		OrgID:     node.Generate(),
		Action:    domain.ActionRemoveTeamMember,
		CreatedAt: base,
	}))

	first, pageInfo, err := repo.ListByOrg(ctx, orgID, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.True(t, pageInfo.HasMore)
	require.NotEmpty(t, pageInfo.NextPageToken)
	require.Equal(t, "user-e", first[0].ItemID)
	require.Equal(t, "user-d", first[1].ItemID)

	cursor, err := pagination.Decode(pageInfo.NextPageToken)
	require.NoError(t, err)
	second, pageInfo, err := repo.ListByOrg(ctx, orgID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.True(t, pageInfo.HasMore)
	require.Equal(t, "user-c", second[0].ItemID)
	require.Equal(t, "user-b", second[1].ItemID)

	cursor, err = pagination.Decode(pageInfo.NextPageToken)
	require.NoError(t, err)
	last, pageInfo, err := repo.ListByOrg(ctx, orgID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, last, 1)
	require.False(t, pageInfo.HasMore)
	require.Empty(t, pageInfo.NextPageToken)
	require.Equal(t, "user-a", last[0].ItemID)
}

func TestListByOrgEmpty(t *testing.T) {
	conn := db.NewTest(t, &domain.ActivityLog{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := NewRepository(conn)
	rows, pageInfo, err := repo.ListByOrg(context.Background(), node.Generate(), nil, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
	require.False(t, pageInfo.HasMore)
}
