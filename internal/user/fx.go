package user

import (
	"github.com/smallbiznis/registra/internal/user/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("user.store",
	fx.Provide(repository.NewRepository),
)
