package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/kekeligroup/backoffice/internal/billing"
	"github.com/kekeligroup/backoffice/internal/clock"
	"github.com/kekeligroup/backoffice/internal/config"
	"github.com/kekeligroup/backoffice/internal/delinquency"
	"github.com/kekeligroup/backoffice/internal/migration"
	"github.com/kekeligroup/backoffice/internal/notification"
	"github.com/kekeligroup/backoffice/internal/observability"
	"github.com/kekeligroup/backoffice/internal/providers/email"
	"github.com/kekeligroup/backoffice/internal/scheduler"
	"github.com/kekeligroup/backoffice/internal/subscription"
	"github.com/kekeligroup/backoffice/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by the jobs
		scheduler.Module,
		billing.Module,
		subscription.Module,
		notification.Module,
		delinquency.Module,
		email.Module,

		migration.Module,
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
