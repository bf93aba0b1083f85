package audit

import (
	"github.com/smallbiznis/registra/internal/audit/repository"
	"github.com/smallbiznis/registra/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
