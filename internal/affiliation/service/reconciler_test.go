package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/registra/internal/affiliation/domain"
	"github.com/smallbiznis/registra/internal/config"
	entitydomain "github.com/smallbiznis/registra/internal/entity/domain"
	"github.com/smallbiznis/registra/internal/registry"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct {
	responses map[string]*registry.BatchResponse
	filters   map[string]registry.SearchFilter
	batches   map[string][]string
	err       error
}

func (g *stubGateway) FetchBatch(_ context.Context, source config.RegistrySource, identifiers []string, filter registry.SearchFilter) (*registry.BatchResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.filters == nil {
		g.filters = map[string]registry.SearchFilter{}
	}
	if g.batches == nil {
		g.batches = map[string][]string{}
	}
	g.filters[source.Name] = filter
	g.batches[source.Name] = identifiers
	resp, ok := g.responses[source.Name]
	if !ok {
		return &registry.BatchResponse{}, nil
	}
	return resp, nil
}

func (g *stubGateway) FetchPartyNames(context.Context, string) ([]string, error) {
	return nil, nil
}

func (g *stubGateway) FetchNameRequest(context.Context, string) (*registry.NameRequest, error) {
	return nil, nil
}

func testRouting() *config.RoutingConfigHolder {
	return config.NewStaticRoutingConfigHolder(config.RoutingConfig{
		Sources: []config.RegistrySource{
			{Name: "names", URL: "http://names", Prefixes: []string{"NR"}},
			{Name: "businesses", URL: "http://businesses"},
		},
	})
}

func newTestReconciler(gateway registry.Gateway) *Reconciler {
	return NewReconciler(config.Config{}, testRouting(), gateway, zap.NewNop())
}

func basesAt(identifiers ...string) []domain.Base {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bases := make([]domain.Base, 0, len(identifiers))
	for i, id := range identifiers {
		bases = append(bases, domain.Base{Identifier: id, Created: created.Add(time.Duration(i) * time.Hour)})
	}
	return bases
}

func TestReconcileEmptyInput(t *testing.T) {
	r := newTestReconciler(&stubGateway{})
	result, err := r.Reconcile(context.Background(), nil, registry.SearchFilter{}, false)
	require.NoError(t, err)
	require.Empty(t, result.Entities)
	require.False(t, result.HasMore)
}

func TestReconcilePartitionsByPrefix(t *testing.T) {
	gateway := &stubGateway{responses: map[string]*registry.BatchResponse{}}
	r := newTestReconciler(gateway)

	_, err := r.Reconcile(context.Background(), basesAt("NR 1234567", "BC0001234", "FM0004321"), registry.SearchFilter{}, false)
	require.NoError(t, err)
	require.Equal(t, []string{"NR 1234567"}, gateway.batches["names"])
	require.Equal(t, []string{"BC0001234", "FM0004321"}, gateway.batches["businesses"])
}

func TestReconcileForcesFirstPageWithoutCriteria(t *testing.T) {
	gateway := &stubGateway{responses: map[string]*registry.BatchResponse{}}
	r := newTestReconciler(gateway)

	_, err := r.Reconcile(context.Background(), basesAt("BC0001234"), registry.SearchFilter{Page: 7}, false)
	require.NoError(t, err)
	require.Equal(t, 1, gateway.filters["businesses"].Page)

	_, err = r.Reconcile(context.Background(), basesAt("BC0001234"), registry.SearchFilter{Name: "acme", Page: 7}, false)
	require.NoError(t, err)
	require.Equal(t, 7, gateway.filters["businesses"].Page)
}

func TestReconcileLinksNameRequests(t *testing.T) {
	gateway := &stubGateway{responses: map[string]*registry.BatchResponse{
		"names": {
			NameRequests: []registry.NameRequest{
				{NrNum: "NR 1111111", StateCd: registry.NRStatusApproved},
				{NrNum: "NR 2222222", StateCd: registry.NRStatusApproved},
			},
		},
		"businesses": {
			Drafts: []registry.EntityRecord{
				{Identifier: "TAbc123", NrNumber: "NR 1111111", DraftType: entitydomain.CorpTypeTMP},
			},
			Businesses: []registry.EntityRecord{
				{Identifier: "BC0001234", NrNumber: "NR 2222222"},
			},
		},
	}}
	r := newTestReconciler(gateway)

	result, err := r.Reconcile(context.Background(), basesAt("NR 1111111", "NR 2222222", "TAbc123", "BC0001234"), registry.SearchFilter{}, false)
	require.NoError(t, err)

	byKey := map[string]registry.EntityRecord{}
	for _, record := range result.Entities {
		byKey[record.Identifier] = record
	}

	// Linked name requests are folded into their records, not listed alone.
	require.Len(t, result.Entities, 2)
	require.NotNil(t, byKey["TAbc123"].NameRequest)
	require.Equal(t, "NR 1111111", byKey["TAbc123"].NameRequest.NrNum)
	require.NotNil(t, byKey["BC0001234"].NameRequest)
	require.Equal(t, "NR 2222222", byKey["BC0001234"].NameRequest.NrNum)
}

func TestReconcileDropsConsumedDraftKeepsBusiness(t *testing.T) {
	gateway := &stubGateway{responses: map[string]*registry.BatchResponse{
		"names": {
			NameRequests: []registry.NameRequest{
				{NrNum: "NR 1111111", StateCd: registry.NRStatusConsumed},
			},
		},
		"businesses": {
			Drafts: []registry.EntityRecord{
				{Identifier: "TAbc123", NrNumber: "NR 1111111"},
			},
			Businesses: []registry.EntityRecord{
				{Identifier: "BC0001234", NrNumber: "NR 1111111"},
			},
		},
	}}
	r := newTestReconciler(gateway)

	result, err := r.Reconcile(context.Background(), basesAt("NR 1111111", "TAbc123", "BC0001234"), registry.SearchFilter{}, false)
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	require.Equal(t, "BC0001234", result.Entities[0].Identifier)
	require.NotNil(t, result.Entities[0].NameRequest)
}

func TestReconcileStaleDrafts(t *testing.T) {
	responses := map[string]*registry.BatchResponse{
		"businesses": {
			Drafts: []registry.EntityRecord{
				{Identifier: "TAbc123", NrNumber: "NR 9999999"},
			},
		},
	}
	r := newTestReconciler(&stubGateway{responses: responses})

	result, err := r.Reconcile(context.Background(), basesAt("TAbc123"), registry.SearchFilter{}, false)
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)

	result, err = r.Reconcile(context.Background(), basesAt("TAbc123"), registry.SearchFilter{}, true)
	require.NoError(t, err)
	require.Empty(t, result.Entities)
}

func TestReconcileAmalgamationDraftType(t *testing.T) {
	gateway := &stubGateway{responses: map[string]*registry.BatchResponse{
		"names": {
			NameRequests: []registry.NameRequest{
				{NrNum: "NR 1111111", StateCd: registry.NRStatusApproved, RequestActionCd: registry.NRActionAmalgamate},
			},
		},
		"businesses": {
			Drafts: []registry.EntityRecord{
				{Identifier: "TAbc123", NrNumber: "NR 1111111", DraftType: entitydomain.CorpTypeTMP},
			},
		},
	}}
	r := newTestReconciler(gateway)

	result, err := r.Reconcile(context.Background(), basesAt("NR 1111111", "TAbc123"), registry.SearchFilter{}, false)
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	require.Equal(t, entitydomain.CorpTypeATMP, result.Entities[0].DraftType)
}

func TestReconcileOrdersByAffiliationCreated(t *testing.T) {
	gateway := &stubGateway{responses: map[string]*registry.BatchResponse{
		"businesses": {
			Businesses: []registry.EntityRecord{
				{Identifier: "BC0000001"},
				{Identifier: "BC0000002"},
				{Identifier: "BC0000003"},
			},
		},
	}}
	r := newTestReconciler(gateway)

	// basesAt assigns increasing timestamps, so the last is newest.
	result, err := r.Reconcile(context.Background(), basesAt("BC0000001", "BC0000002", "BC0000003"), registry.SearchFilter{}, false)
	require.NoError(t, err)

	var got []string
	for _, record := range result.Entities {
		got = append(got, record.Identifier)
	}
	require.Equal(t, []string{"BC0000003", "BC0000002", "BC0000001"}, got)
}

func TestReconcileHasMoreAcrossSources(t *testing.T) {
	gateway := &stubGateway{responses: map[string]*registry.BatchResponse{
		"names":      {HasMore: true},
		"businesses": {},
	}}
	r := newTestReconciler(gateway)

	result, err := r.Reconcile(context.Background(), basesAt("NR 1111111", "BC0001234"), registry.SearchFilter{}, false)
	require.NoError(t, err)
	require.True(t, result.HasMore)
}

func TestReconcileSourceFailureFailsCall(t *testing.T) {
	wantErr := errors.New("names registry down")
	r := newTestReconciler(&stubGateway{err: wantErr})

	_, err := r.Reconcile(context.Background(), basesAt("NR 1111111"), registry.SearchFilter{}, false)
	require.ErrorIs(t, err, wantErr)
}

func TestReconcileDeterministicReruns(t *testing.T) {
	gateway := &stubGateway{responses: map[string]*registry.BatchResponse{
		"names": {
			NameRequests: []registry.NameRequest{
				{NrNum: "NR 1111111", StateCd: registry.NRStatusApproved},
			},
		},
		"businesses": {
			Businesses: []registry.EntityRecord{
				{Identifier: "BC0001234"},
			},
		},
	}}
	r := newTestReconciler(gateway)

	bases := basesAt("NR 1111111", "BC0001234")
	first, err := r.Reconcile(context.Background(), bases, registry.SearchFilter{}, false)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), bases, registry.SearchFilter{}, false)
	require.NoError(t, err)
	require.Equal(t, first.Entities, second.Entities)
}
