package registry

import "go.uber.org/fx"

// Module wires the registry gateway and its token source.
var Module = fx.Module("registry.gateway",
	fx.Provide(NewTokenProvider),
	fx.Provide(NewGateway),
)
