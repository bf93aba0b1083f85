package notify

import (
	"github.com/smallbiznis/registra/internal/config"
	"go.uber.org/fx"
)

// Module wires the notification provider and mailer.
var Module = fx.Module("notify",
	fx.Provide(NewFromConfig),
	fx.Provide(NewMailer),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.Email.SMTPHost == "" {
		return NoOpProvider{}
	}
	return NewSMTP(cfg)
}
