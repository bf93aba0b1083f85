package payment

import "go.uber.org/fx"

// Module wires the payments client.
var Module = fx.Module("payment.client",
	fx.Provide(NewClient),
)
