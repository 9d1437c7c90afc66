package report

import (
	"github.com/siderealabs/astroledger/internal/report/domain"
	"github.com/siderealabs/astroledger/internal/report/generator"
	"github.com/siderealabs/astroledger/internal/report/repository"
	"github.com/siderealabs/astroledger/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(
		repository.Provide,
		fx.Annotate(generator.NewClient, fx.As(new(domain.Generator))),
		service.New,
	),
)
