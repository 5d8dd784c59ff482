package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pawsentry/pawsentry/internal/clock"
	"github.com/pawsentry/pawsentry/internal/config"
	"github.com/pawsentry/pawsentry/internal/migration"
	"github.com/pawsentry/pawsentry/internal/observability"
	"github.com/pawsentry/pawsentry/internal/server"
	"github.com/pawsentry/pawsentry/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
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
