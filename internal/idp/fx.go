package idp

import "go.uber.org/fx"

// Module wires the identity-provider admin client.
var Module = fx.Module("idp.client",
	fx.Provide(NewClient),
)
