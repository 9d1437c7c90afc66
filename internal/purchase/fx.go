package purchase

import (
	"github.com/siderealabs/astroledger/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase.service",
	fx.Provide(service.New),
	fx.Provide(service.NewGateway),
	fx.Provide(service.NewListener),
	fx.Invoke(service.Register),
)
