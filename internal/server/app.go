// Package server wires configuration, storage backends and services into the
// HTTP and gRPC servers and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/blobstore"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdrive/internal/server/rest"
	"github.com/dmitrijs2005/gophdrive/internal/server/scanner"
	"github.com/dmitrijs2005/gophdrive/internal/server/services"
	"github.com/dmitrijs2005/gophdrive/internal/server/sessions"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophdrive/internal/server/grpc"
)

// shutdownTimeout bounds how long Run waits for the sweeper to stop.
const shutdownTimeout = 10 * time.Second

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }

type App struct {
	config  *config.Config
	logger  logging.Logger
	http    *rest.Server
	grpc    *gs.GRPCServer
	sweeper *services.Sweeper
	closers []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	ok := false
	defer func() {
		if !ok {
			app.close(ctx)
		}
	}()

	rm, err := app.initRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := app.initBlobStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	store, err := app.initSessionStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("session store init error: %w", err)
	}

	var sc scanner.Scanner = scanner.Noop{}
	if c.Scanner == "clamd" {
		sc = scanner.NewClamd(c.ClamdAddr)
	}

	quota := services.NewQuotaLedger(rm, c, logger)
	files := services.NewFileRegistry(rm, blobs, c, logger)
	uploads := services.NewUploadManager(rm, store, blobs, quota, files, c, logger)
	redeem := services.NewRedemptionEngine(rm, c, logger)
	gate := services.NewShareGate(files, blobs, sc, c, logger)

	app.sweeper = services.NewSweeper(uploads, c.SweepInterval, logger)
	app.http = rest.NewServer(c, logger, rest.Services{
		Quota:   quota,
		Files:   files,
		Uploads: uploads,
		Redeem:  redeem,
		Share:   gate,
	})
	app.grpc, err = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, quota, redeem, c.CollaboratorToken, c.SecretKey)
	if err != nil {
		return nil, err
	}

	ok = true
	return app, nil
}

func (app *App) initRepositories(ctx context.Context) (repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database configured, catalog is kept in memory")
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := openDB(app.config.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, db)

	pctx, cancel := context.WithTimeout(ctx, app.config.OpTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		return nil, err
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, err
	}
	if err := rm.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return rm, nil
}

func (app *App) initBlobStore(ctx context.Context) (*blobstore.Guard, error) {
	var (
		store blobstore.Store
		err   error
	)
	switch app.config.BlobBackend {
	case "s3":
		store, err = blobstore.NewS3Store(ctx, blobstore.S3Config{
			AccessKey:    app.config.S3RootUser,
			SecretKey:    app.config.S3RootPassword,
			Bucket:       app.config.S3Bucket,
			Region:       app.config.S3Region,
			BaseEndpoint: app.config.S3BaseEndpoint,
		})
	default:
		store, err = blobstore.NewFSStore(app.config.FSRoot)
	}
	if err != nil {
		return nil, err
	}
	return blobstore.NewGuard(store, app.config.OpTimeout, app.logger), nil
}

func (app *App) initSessionStore(ctx context.Context) (sessions.Store, error) {
	if app.config.SessionBackend != "redis" {
		return sessions.NewMemoryStore(), nil
	}

	rctx, cancel := context.WithTimeout(ctx, app.config.OpTimeout)
	defer cancel()
	rs, err := sessions.NewRedisStore(rctx, app.config.RedisAddr, app.config.SessionTTL)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, rs)
	return rs, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP and gRPC and sweeps abandoned uploads until ctx is
// cancelled, a signal arrives or one of the servers fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.http.Run(gctx)
	})

	g.Go(func() error {
		return app.grpc.Run(gctx)
	})

	app.sweeper.Start()

	err := g.Wait()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if serr := app.sweeper.Stop(sctx); serr != nil {
		app.logger.Warn(sctx, "sweeper did not stop", "error", serr)
	}

	app.close(sctx)
	app.logger.Info(sctx, "App stopped")
	return err
}

func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(ctx, "close failed", "error", err)
		}
	}
	app.closers = nil
}
