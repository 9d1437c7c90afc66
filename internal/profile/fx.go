package profile

import (
	"github.com/siderealabs/astroledger/internal/profile/repository"
	"github.com/siderealabs/astroledger/internal/profile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
