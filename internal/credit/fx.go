package credit

import (
	"github.com/siderealabs/astroledger/internal/credit/repository"
	"github.com/siderealabs/astroledger/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
