package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/dmitrijs2005/registadb/internal/server"
	"github.com/dmitrijs2005/registadb/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stdout, cfg.Verbose)

	app, err := server.NewApp(cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
