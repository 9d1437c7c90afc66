package migration

import (
	"github.com/siderealabs/astroledger/internal/config"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
	profiledomain "github.com/siderealabs/astroledger/internal/profile/domain"
	reportdomain "github.com/siderealabs/astroledger/internal/report/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// sqlite and mysql run from the model definitions; versioned SQL
			// migrations are kept postgres-only.
			return conn.AutoMigrate(
				&profiledomain.Profile{},
				&creditdomain.PurchaseRecord{},
				&creditdomain.PurchaseCredit{},
				&reportdomain.Report{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
