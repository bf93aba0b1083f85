package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	affiliationdomain "github.com/smallbiznis/registra/internal/affiliation/domain"
	auditdomain "github.com/smallbiznis/registra/internal/audit/domain"
	"github.com/smallbiznis/registra/internal/config"
	entitydomain "github.com/smallbiznis/registra/internal/entity/domain"
	membershipdomain "github.com/smallbiznis/registra/internal/membership/domain"
	"github.com/smallbiznis/registra/internal/observability"
	obsmiddleware "github.com/smallbiznis/registra/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/registra/internal/observability/metrics"
	obstracing "github.com/smallbiznis/registra/internal/observability/tracing"
	organizationdomain "github.com/smallbiznis/registra/internal/organization/domain"
	userdomain "github.com/smallbiznis/registra/internal/user/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	genID  *snowflake.Node

	affiliationSvc  affiliationdomain.Service
	membershipSvc   membershipdomain.Service
	organizationSvc organizationdomain.Service
	entitySvc       entitydomain.Service
	auditRepo       auditdomain.Repository
	users           userdomain.Repository
	memberships     membershipdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	GenID *snowflake.Node

	AffiliationSvc  affiliationdomain.Service
	MembershipSvc   membershipdomain.Service
	OrganizationSvc organizationdomain.Service
	EntitySvc       entitydomain.Service
	AuditRepo       auditdomain.Repository
	Users           userdomain.Repository
	Memberships     membershipdomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		genID:           p.GenID,
		affiliationSvc:  p.AffiliationSvc,
		membershipSvc:   p.MembershipSvc,
		organizationSvc: p.OrganizationSvc,
		entitySvc:       p.EntitySvc,
		auditRepo:       p.AuditRepo,
		users:           p.Users,
		memberships:     p.Memberships,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.AuthRequired())

	// -------- Organizations --------
	api.POST("/orgs", s.CreateOrganization)
	api.GET("/orgs/:orgId", s.GetOrganization)
	api.GET("/orgs/:orgId/activity-logs", s.ListActivityLogs)

	// -------- Affiliations --------
	api.GET("/orgs/:orgId/affiliations", s.ListAffiliations)
	api.POST("/orgs/:orgId/affiliations", s.CreateAffiliation)
	api.GET("/orgs/:orgId/affiliations/:businessIdentifier", s.GetAffiliation)
	api.DELETE("/orgs/:orgId/affiliations/:businessIdentifier", s.DeleteAffiliation)
	api.POST("/affiliations/:nrNumber/fix", SystemOnly(), s.FixStaleAffiliation)

	// -------- Memberships --------
	api.GET("/orgs/:orgId/members", s.ListMembers)
	api.GET("/orgs/:orgId/members/pending-count", s.PendingMemberCount)
	api.PATCH("/orgs/:orgId/members/:membershipId", s.UpdateMembership)
	api.DELETE("/orgs/:orgId/members/:membershipId", s.DeactivateMembership)

	// -------- Entities --------
	api.GET("/entities/:businessIdentifier", s.GetEntity)
	api.POST("/entities/:businessIdentifier/passcode-reset", s.ResetEntityPasscode)
}
