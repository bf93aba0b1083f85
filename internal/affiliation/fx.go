package affiliation

import (
	"github.com/smallbiznis/registra/internal/affiliation/repository"
	"github.com/smallbiznis/registra/internal/affiliation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("affiliation.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewReconciler),
	fx.Provide(service.NewAuthorizer),
	fx.Provide(service.NewService),
)
