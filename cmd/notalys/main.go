package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/notalys/notalys/internal/clock"
	"github.com/notalys/notalys/internal/config"
	"github.com/notalys/notalys/internal/migration"
	"github.com/notalys/notalys/internal/observability"
	"github.com/notalys/notalys/internal/server"
	"github.com/notalys/notalys/pkg/db"
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

		// Schema and reference data
		migration.Module,

		// Domain modules are pulled in by the HTTP server
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
