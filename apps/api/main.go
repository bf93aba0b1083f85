package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/registra/internal/affiliation"
	"github.com/smallbiznis/registra/internal/audit"
	"github.com/smallbiznis/registra/internal/cache"
	"github.com/smallbiznis/registra/internal/config"
	"github.com/smallbiznis/registra/internal/entity"
	"github.com/smallbiznis/registra/internal/events"
	"github.com/smallbiznis/registra/internal/idp"
	"github.com/smallbiznis/registra/internal/membership"
	"github.com/smallbiznis/registra/internal/migration"
	"github.com/smallbiznis/registra/internal/notify"
	"github.com/smallbiznis/registra/internal/observability"
	"github.com/smallbiznis/registra/internal/organization"
	"github.com/smallbiznis/registra/internal/payment"
	"github.com/smallbiznis/registra/internal/registry"
	"github.com/smallbiznis/registra/internal/server"
	"github.com/smallbiznis/registra/internal/user"
	"github.com/smallbiznis/registra/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		cache.Module,

		registry.Module,
		payment.Module,
		idp.Module,
		notify.Module,
		events.Module,
		audit.Module,

		user.Module,
		organization.Module,
		entity.Module,
		membership.Module,
		affiliation.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
