package migration

import (
	"github.com/kekeligroup/backoffice/internal/config"
	"github.com/kekeligroup/backoffice/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.Environment == "development" {
			return seed.EnsureDevData(conn)
		}
		return nil
	}),
)
