// Package server wires configuration, storage, services and the HTTP API
// into a runnable application and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/logging"
	"github.com/dmitrijs2005/gallerist/internal/server/assets"
	"github.com/dmitrijs2005/gallerist/internal/server/config"
	"github.com/dmitrijs2005/gallerist/internal/server/httpapi"
	"github.com/dmitrijs2005/gallerist/internal/server/objstore"
	"github.com/dmitrijs2005/gallerist/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gallerist/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      *logging.SlogLogger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	janitor     *assets.Janitor
	server      *httpapi.HTTPServer
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewJSON(os.Stdout, "gallerist", level)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, objects, err := newObjectStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	am := assets.NewManager(store, assetOptions(c), logger)
	janitor := assets.NewJanitor(am, logger)

	rm := repomanager.NewPostgresRepositoryManager()
	svc := httpapi.Services{
		Uploads:     services.NewUploadService(am, logger),
		Posts:       services.NewPostService(db, rm, am, janitor, logger),
		Collections: services.NewCollectionService(db, rm, am, janitor, logger),
		Profiles:    services.NewProfileService(db, rm, am, janitor, logger),
		Follows:     services.NewFollowService(db, rm, logger),
	}

	handler := httpapi.NewHandler(svc, logger, c.SecretKey, objects)
	routes := handler.Routes(httpapi.RequestLogger(logger.Slog()))

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		janitor:     janitor,
		server:      httpapi.NewHTTPServer(c.EndpointAddrHTTP, routes, logger, c.ShutdownTimeout),
	}, nil
}

func assetOptions(c *config.Config) assets.Options {
	return assets.Options{
		PublicBaseURL:   c.PublicBaseURL(),
		UploadTTL:       c.UploadURLTTL,
		ViewTTL:         c.ViewURLTTL,
		OpTimeout:       c.ObjectStoreTimeout,
		SignConcurrency: c.SignConcurrency,
		SignCacheSize:   c.SignCacheSize,
	}
}

// newObjectStore builds the configured backend. The memory backend also
// returns the handler that serves its presigned URLs.
func newObjectStore(ctx context.Context, c *config.Config) (assets.ObjectStore, http.Handler, error) {
	switch c.StorageBackend {
	case config.StorageMemory:
		secret, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, nil, err
		}
		m := objstore.NewMemory(c.PublicBaseURL(), []byte(secret))
		return m, m.Handler(""), nil
	case config.StorageS3, "":
		s, err := objstore.NewS3Store(ctx, objstore.S3Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Endpoint:     c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
			UsePathStyle: c.S3UsePathStyle,
		})
		return s, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema, serves until a signal arrives and then drains
// pending asset cleanups.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	serveErr := app.server.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := app.janitor.Wait(drainCtx); err != nil {
		app.logger.Warn(ctx, "asset cleanups still pending at shutdown", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
	return serveErr
}
