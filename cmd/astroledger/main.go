package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/siderealabs/astroledger/internal/chart"
	"github.com/siderealabs/astroledger/internal/clock"
	"github.com/siderealabs/astroledger/internal/config"
	"github.com/siderealabs/astroledger/internal/credit"
	"github.com/siderealabs/astroledger/internal/migration"
	"github.com/siderealabs/astroledger/internal/observability"
	"github.com/siderealabs/astroledger/internal/profile"
	"github.com/siderealabs/astroledger/internal/purchase"
	"github.com/siderealabs/astroledger/internal/ratelimit"
	"github.com/siderealabs/astroledger/internal/report"
	"github.com/siderealabs/astroledger/internal/server"
	"github.com/siderealabs/astroledger/internal/storekit"
	"github.com/siderealabs/astroledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		// Functional domains
		profile.Module,
		credit.Module,
		storekit.Module,
		chart.Module,
		report.Module,
		purchase.Module,

		server.Module,
	)

	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
