// Package server wires the storage engine, the request executor and every
// network channel into one process, and shuts them down together on
// SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/dmitrijs2005/registadb/internal/server/backup"
	"github.com/dmitrijs2005/registadb/internal/server/config"
	"github.com/dmitrijs2005/registadb/internal/server/ingest"
	"github.com/dmitrijs2005/registadb/internal/server/metrics"
	"github.com/dmitrijs2005/registadb/internal/server/repositories/entries"
	"github.com/dmitrijs2005/registadb/internal/server/rest"
	"github.com/dmitrijs2005/registadb/internal/server/services"
	"github.com/dmitrijs2005/registadb/internal/server/storage"

	gs "github.com/dmitrijs2005/registadb/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	engine   *storage.Engine
	executor *services.Executor
}

// NewApp opens the storage directory. Failing to open it is fatal to
// startup, so the error is returned to main.
func NewApp(c *config.Config, logger logging.Logger) (*App, error) {

	engine, err := storage.Open(c.DataDir, storage.Options{Statistics: c.EnableStatistics})
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	repo := entries.NewBoltRepository(engine)
	executor := services.NewExecutor(repo, engine.IDs(), services.WithLogger(logger.With("module", "executor")))

	logger.Info(context.Background(), "Storage opened", "dir", engine.Dir(), "last_id", engine.IDs().Last())

	return &App{config: c, logger: logger, engine: engine, executor: executor}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

type runner interface {
	Run(ctx context.Context) error
}

func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, wg *sync.WaitGroup, name string, r runner) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.Run(ctx); err != nil {
			app.logger.Error(ctx, "component failed", "component", name, "error", err)
			cancelFunc()
		}
	}()
}

// Run serves until ctx is cancelled, a signal arrives or a component fails,
// then closes the engine.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	c := app.config
	ingestServer := ingest.NewIngestServer(c.EndpointAddrIngest, app.logger, app.executor, c.SecretKey)

	app.start(ctx, cancelFunc, &wg, "grpc", gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger, app.executor, c.SecretKey))
	app.start(ctx, cancelFunc, &wg, "ingest", ingestServer)
	app.start(ctx, cancelFunc, &wg, "rest", rest.NewRESTServer(c.EndpointAddrHTTP, app.logger, app.executor, c.SecretKey))

	if app.engine.StatisticsEnabled() {
		collector := metrics.NewCollector(app.engine, app.engine.IDs(), ingestServer, app.logger)
		ms, err := metrics.NewMetricsServer(c.MetricsAddr, app.logger, collector)
		if err != nil {
			app.logger.Error(ctx, "metrics init error", "error", err)
		} else {
			app.start(ctx, cancelFunc, &wg, "metrics", ms)
		}
	}

	if c.BackupInterval > 0 {
		client, err := backup.NewS3Client(ctx, c)
		if err != nil {
			app.logger.Error(ctx, "backup init error", "error", err)
		} else {
			uploader := backup.NewUploader(app.engine, client, c.S3Bucket, app.logger)
			app.start(ctx, cancelFunc, &wg, "backup", runFunc(func(ctx context.Context) error {
				return uploader.Run(ctx, c.BackupInterval)
			}))
		}
	}

	wg.Wait()

	if err := app.engine.Close(); err != nil {
		app.logger.Error(context.Background(), "storage close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}

type runFunc func(ctx context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }
