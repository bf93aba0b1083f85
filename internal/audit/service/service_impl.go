package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/registra/internal/audit/domain"
	"github.com/smallbiznis/registra/internal/usercontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Publish(ctx context.Context, activity auditdomain.Activity) {
	actorID := ""
	if user, ok := usercontext.FromContext(ctx); ok {
		actorID = user.Sub
	}

	entry := auditdomain.ActivityLog{
		ID:        s.genID.Generate(),
		OrgID:     activity.OrgID,
		Action:    activity.Action,
		ItemName:  activity.Name,
		ItemID:    activity.ItemID,
		ItemValue: activity.Value,
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		s.log.Warn("failed to record activity",
			zap.String("action", activity.Action),
			zap.String("item_id", activity.ItemID),
			zap.Error(err))
	}
}
