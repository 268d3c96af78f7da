package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/edubill/internal/clock"
	"github.com/smallbiznis/edubill/internal/config"
	"github.com/smallbiznis/edubill/internal/observability"
	"github.com/smallbiznis/edubill/internal/ratelimit"
	"github.com/smallbiznis/edubill/internal/server"
	"github.com/smallbiznis/edubill/pkg/db"
	"go.uber.org/fx"
)

// The API binary expects the schema to exist; cmd/edubill applies migrations.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module, // Redis locks and the validate limiter
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
