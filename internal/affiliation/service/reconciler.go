package service

import (
	"context"
	"sort"
	"time"

	"github.com/smallbiznis/registra/internal/affiliation/domain"
	"github.com/smallbiznis/registra/internal/config"
	entitydomain "github.com/smallbiznis/registra/internal/entity/domain"
	"github.com/smallbiznis/registra/internal/registry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reconciler merges the per-source registry payloads for an org's
// affiliations into one deduplicated, ordered detail set. Every call is
// computed from its inputs alone; nothing is cached between requests.
type Reconciler struct {
	gateway registry.Gateway
	routing *config.RoutingConfigHolder
	log     *zap.Logger
	debug   bool
}

func NewReconciler(cfg config.Config, routing *config.RoutingConfigHolder, gateway registry.Gateway, log *zap.Logger) *Reconciler {
	return &Reconciler{
		gateway: gateway,
		routing: routing,
		log:     log.Named("affiliation.reconciler"),
		debug:   cfg.AffiliationDebug,
	}
}

type sourceBucket struct {
	source      config.RegistrySource
	identifiers []string
}

// Reconcile partitions the identifiers across the configured registry
// sources, fetches each bucket in parallel, then links drafts and
// businesses to their name requests. A failure from any source fails the
// whole call; partial results are never returned.
func (r *Reconciler) Reconcile(ctx context.Context, bases []domain.Base, filter registry.SearchFilter, removeStaleDrafts bool) (*domain.DetailsResult, error) {
	if len(bases) == 0 {
		return &domain.DetailsResult{Entities: []registry.EntityRecord{}}, nil
	}

	routing := r.routing.Current()
	var order []string
	buckets := make(map[string]*sourceBucket)
	for _, base := range bases {
		source, ok := routing.Resolve(base.Identifier)
		if !ok {
			continue
		}
		bucket := buckets[source.Name]
		if bucket == nil {
			bucket = &sourceBucket{source: source}
			buckets[source.Name] = bucket
			order = append(order, source.Name)
		}
		bucket.identifiers = append(bucket.identifiers, base.Identifier)
	}

	// Without search criteria pagination is ours, not the source's.
	if filter.IsEmpty() {
		filter.Page = 1
	}

	responses := make([]*registry.BatchResponse, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range order {
		bucket := buckets[name]
		g.Go(func() error {
			resp, err := r.gateway.FetchBatch(gctx, bucket.source, bucket.identifiers, filter)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Grouping: index name requests by number, flatten the rest. Bucket
	// order is the partition order, so merging stays deterministic.
	nrByNum := make(map[string]registry.NameRequest)
	var nrOrder []string
	var businesses, drafts []registry.EntityRecord
	hasMore := false
	for _, resp := range responses {
		hasMore = hasMore || resp.HasMore
		for _, nr := range resp.NameRequests {
			if nr.NrNum == "" {
				continue
			}
			if _, seen := nrByNum[nr.NrNum]; !seen {
				nrOrder = append(nrOrder, nr.NrNum)
			}
			nrByNum[nr.NrNum] = nr
		}
		businesses = append(businesses, resp.Businesses...)
		drafts = append(drafts, resp.Drafts...)
	}

	// Linking. Kept records are rebuilt into fresh slices; membership in
	// the result is decided per record, never by mutating a list mid-walk.
	linked := make(map[string]bool)

	keptDrafts := make([]registry.EntityRecord, 0, len(drafts))
	for _, draft := range drafts {
		nr, resolved := nrByNum[draft.NrNumber]
		if draft.NrNumber == "" || !resolved {
			if !removeStaleDrafts {
				keptDrafts = append(keptDrafts, draft)
			}
			continue
		}
		linked[draft.NrNumber] = true
		if nr.Status() == registry.NRStatusConsumed {
			// The registered business supersedes this draft.
			continue
		}
		attached := nr
		draft.NameRequest = &attached
		if nr.RequestActionCd == registry.NRActionAmalgamate {
			draft.DraftType = entitydomain.CorpTypeATMP
		}
		keptDrafts = append(keptDrafts, draft)
	}

	keptBusinesses := make([]registry.EntityRecord, 0, len(businesses))
	for _, business := range businesses {
		if nr, resolved := nrByNum[business.NrNumber]; resolved && business.NrNumber != "" {
			linked[business.NrNumber] = true
			attached := nr
			business.NameRequest = &attached
		}
		keptBusinesses = append(keptBusinesses, business)
	}

	combined := make([]registry.EntityRecord, 0, len(nrOrder)+len(keptDrafts)+len(keptBusinesses))
	for _, num := range nrOrder {
		if linked[num] {
			continue
		}
		attached := nrByNum[num]
		combined = append(combined, registry.EntityRecord{
			Identifier:  num,
			LegalType:   entitydomain.CorpTypeNR,
			NameRequest: &attached,
		})
	}
	combined = append(combined, keptDrafts...)
	combined = append(combined, keptBusinesses...)

	created := make(map[string]time.Time, len(bases))
	for _, base := range bases {
		created[base.Identifier] = base.Created
	}
	sort.SliceStable(combined, func(i, j int) bool {
		return created[recordKey(combined[i])].After(created[recordKey(combined[j])])
	})

	if r.debug {
		r.reportMissing(bases, combined)
	}
	return &domain.DetailsResult{Entities: combined, HasMore: hasMore}, nil
}

// recordKey is the identifier a record was requested under. Standalone
// name requests are keyed by their number.
func recordKey(record registry.EntityRecord) string {
	if record.Identifier != "" {
		return record.Identifier
	}
	return record.NrNumber
}

// reportMissing logs identifiers that were requested but fell out of the
// combined result. Diagnostic only; silent upstream drops are worth
// noticing but never worth failing over.
func (r *Reconciler) reportMissing(bases []domain.Base, combined []registry.EntityRecord) {
	present := make(map[string]bool, len(combined))
	for _, record := range combined {
		present[recordKey(record)] = true
		if record.NrNumber != "" {
			present[record.NrNumber] = true
		}
	}
	var missing []string
	for _, base := range bases {
		if !present[base.Identifier] {
			missing = append(missing, base.Identifier)
		}
	}
	if len(missing) > 0 {
		r.log.Warn("identifiers missing from reconciled details",
			zap.Strings("identifiers", missing),
			zap.Int("requested", len(bases)))
	}
}
