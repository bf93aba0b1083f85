package events

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/registra/internal/config"
	"github.com/smallbiznis/registra/pkg/telemetry"
	"github.com/smallbiznis/registra/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Relay drains the outbox and publishes events onto the redis stream.
type Relay struct {
	db      *gorm.DB
	redis   *redis.Client
	log     *zap.Logger
	metrics *telemetry.Metrics

	stream    string
	interval  time.Duration
	batchSize int

	done chan struct{}
}

// RelayParams collects the relay dependencies.
type RelayParams struct {
	fx.In

	DB      *gorm.DB
	Redis   *redis.Client `optional:"true"`
	Log     *zap.Logger
	Config  config.Config
	Metrics *telemetry.Metrics
}

// NewRelay builds the outbox relay.
func NewRelay(p RelayParams) *Relay {
	interval := time.Duration(p.Config.EventRelayIntervalSec) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	batchSize := p.Config.EventRelayBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Relay{
		db:        p.DB,
		redis:     p.Redis,
		log:       p.Log.Named("events.relay"),
		metrics:   p.Metrics,
		stream:    p.Config.EventStream,
		interval:  interval,
		batchSize: batchSize,
		done:      make(chan struct{}),
	}
}

// Start begins the background relay loop.
func (r *Relay) Start(ctx context.Context) error {
	_ = ctx
	if r.redis == nil {
		r.log.Warn("redis not configured, outbox relay disabled")
		return nil
	}
	go r.run()
	return nil
}

// Stop terminates the relay loop.
func (r *Relay) Stop(ctx context.Context) error {
	_ = ctx
	close(r.done)
	return nil
}

func (r *Relay) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			ctx, _ = correlation.EnsureCorrelationID(ctx)
			if err := r.DispatchOnce(ctx); err != nil {
				r.log.Warn("outbox dispatch failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// DispatchOnce publishes one batch of unpublished events and marks them sent.
// Events are delivered at least once; consumers must dedupe on event id.
func (r *Relay) DispatchOnce(ctx context.Context) error {
	start := time.Now()

	var rows []AuthEvent
	err := r.db.WithContext(ctx).
		Where("published = ?", false).
		Order("created_at ASC").
		Limit(r.batchSize).
		Find(&rows).Error
	if err != nil {
		r.metrics.RecordOutboxBatch("error", time.Since(start))
		return err
	}
	if len(rows) == 0 {
		r.refreshBacklog(ctx)
		return nil
	}

	dispatched := make([]int64, 0, len(rows))
	for i := range rows {
		if err := r.publishToStream(ctx, &rows[i]); err != nil {
			r.log.Warn("event publish failed",
				zap.Int64("event_id", rows[i].ID.Int64()),
				zap.String("event_type", rows[i].EventType),
				zap.Error(err))
			break
		}
		dispatched = append(dispatched, rows[i].ID.Int64())
	}

	if len(dispatched) > 0 {
		err = r.db.WithContext(ctx).
			Model(&AuthEvent{}).
			Where("id IN ?", dispatched).
			Update("published", true).Error
		if err != nil {
			r.metrics.RecordOutboxBatch("error", time.Since(start))
			return err
		}
	}

	status := "ok"
	if len(dispatched) < len(rows) {
		status = "partial"
	}
	r.metrics.RecordOutboxBatch(status, time.Since(start))
	r.refreshBacklog(ctx)

	r.log.Info("outbox batch dispatched",
		zap.Int("fetched", len(rows)),
		zap.Int("published", len(dispatched)))
	return nil
}

func (r *Relay) publishToStream(ctx context.Context, row *AuthEvent) error {
	payload, err := json.Marshal(row.Payload)
	if err != nil {
		return err
	}

	return r.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"event_id":       row.ID.String(),
			"event_type":     row.EventType,
			"org_id":         row.OrgID.String(),
			"payload":        string(payload),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339),
			"correlation_id": correlation.ExtractCorrelationID(ctx),
		},
	}).Err()
}

func (r *Relay) refreshBacklog(ctx context.Context) {
	var backlog int64
	err := r.db.WithContext(ctx).
		Model(&AuthEvent{}).
		Where("published = ?", false).
		Count(&backlog).Error
	if err != nil {
		return
	}
	r.metrics.SetOutboxBacklog(float64(backlog))
}
