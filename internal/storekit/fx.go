package storekit

import "go.uber.org/fx"

var Module = fx.Module("storekit",
	fx.Provide(NewCatalog),
	fx.Provide(
		fx.Annotate(NewRemoteClient, fx.As(new(Client))),
	),
)
