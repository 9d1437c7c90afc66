package chart

import (
	"github.com/siderealabs/astroledger/internal/chart/domain"
	"github.com/siderealabs/astroledger/internal/chart/ephemeris"
	"github.com/siderealabs/astroledger/internal/chart/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chart.service",
	fx.Provide(
		fx.Annotate(ephemeris.NewClient, fx.As(new(domain.Ephemeris))),
		service.New,
	),
)
