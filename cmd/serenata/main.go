package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/serenatalabs/serenata/internal/checkout"
	"github.com/serenatalabs/serenata/internal/clock"
	"github.com/serenatalabs/serenata/internal/config"
	"github.com/serenatalabs/serenata/internal/lyrics"
	"github.com/serenatalabs/serenata/internal/migration"
	"github.com/serenatalabs/serenata/internal/notification"
	"github.com/serenatalabs/serenata/internal/observability"
	"github.com/serenatalabs/serenata/internal/order"
	"github.com/serenatalabs/serenata/internal/providers/email"
	"github.com/serenatalabs/serenata/internal/ratelimit"
	"github.com/serenatalabs/serenata/internal/server"
	"github.com/serenatalabs/serenata/internal/webhook"
	"github.com/serenatalabs/serenata/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		order.Module,
		checkout.Module,
		webhook.Module,
		notification.Module,
		email.Module,
		lyrics.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		nodeID = parsed
	}
	return snowflake.NewNode(nodeID)
}
