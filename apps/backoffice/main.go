package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/kekeligroup/backoffice/internal/clock"
	"github.com/kekeligroup/backoffice/internal/migration"
	"github.com/kekeligroup/backoffice/internal/observability"
	"github.com/kekeligroup/backoffice/internal/scheduler"
	"github.com/kekeligroup/backoffice/internal/server"
	"github.com/kekeligroup/backoffice/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		server.Module,

		// Background jobs and schema
		scheduler.Module,
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
