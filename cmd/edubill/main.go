package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/edubill/internal/clock"
	"github.com/smallbiznis/edubill/internal/config"
	"github.com/smallbiznis/edubill/internal/migration"
	"github.com/smallbiznis/edubill/internal/observability"
	"github.com/smallbiznis/edubill/internal/ratelimit"
	"github.com/smallbiznis/edubill/internal/server"
	"github.com/smallbiznis/edubill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,

		// Schema first, then the HTTP API
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
