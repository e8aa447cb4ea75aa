// Package server wires the gateway together: downstream clients, the
// orphan ledger, the services, and the HTTP and gRPC servers. It also owns
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/auth"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/directory"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/httpx"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/identity"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/objectstore"
	"github.com/dmitrijs2005/drivegate/internal/server/config"
	"github.com/dmitrijs2005/drivegate/internal/server/httpapi"
	"github.com/dmitrijs2005/drivegate/internal/server/repositories/orphans"
	"github.com/dmitrijs2005/drivegate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/drivegate/internal/server/saga"
	"github.com/dmitrijs2005/drivegate/internal/server/services"

	gs "github.com/dmitrijs2005/drivegate/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	handler http.Handler
	ledger  orphans.Repository
	closers []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger}

	hc := &http.Client{Transport: httpx.NewTransport(c.DownstreamTimeout)}

	dirHTTP, err := httpx.NewClient(c.DirectoryServiceURL, hc, c.DownstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("directory client: %w", err)
	}
	dir := directory.NewClient(dirHTTP)

	idHTTP, err := httpx.NewClient(c.IdentityServiceURL, hc, c.DownstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("identity client: %w", err)
	}
	users := identity.NewClient(idHTTP)

	store, err := newStore(ctx, c, hc)
	if err != nil {
		return nil, err
	}

	ledger, err := app.openLedger(ctx)
	if err != nil {
		return nil, err
	}
	app.ledger = ledger

	signer, err := auth.NewSigner([]byte(c.LinkSecret))
	if err != nil {
		app.Close()
		return nil, err
	}

	sagaOpts := saga.Options{Logger: logger, Recorder: ledger, Timeout: c.DownstreamTimeout}

	deps := httpapi.Deps{
		Uploads:    services.NewUploadService(dir, store, sagaOpts, c.ClientName),
		Duplicates: services.NewDuplicateService(dir, store, sagaOpts, c.ClientName),
		Archives: services.NewArchiveService(dir, store, services.ArchiveOptions{
			Concurrency: c.ArchiveConcurrency,
			MaxDepth:    c.ArchiveMaxDepth,
			FlatListing: c.ArchiveFlatListing,
		}, logger),
		Shares:  services.NewShareService(auth.NewCodec(signer), dir, c.BulkConcurrency, logger),
		Files:   services.NewFileService(dir, store, ledger, c.BulkConcurrency, logger),
		Users:   users,
		Orphans: ledger,
	}
	app.handler = httpapi.NewHandler(deps, httpapi.Options{
		UserHeader:  c.UserHeader,
		MaxFileSize: c.MaxFileSize,
	}, logger)

	return app, nil
}

func newStore(ctx context.Context, c *config.Config, hc *http.Client) (objectstore.Store, error) {
	switch c.StoreBackend {
	case "s3":
		s, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		}, c.DownstreamTimeout, c.TransferTimeout)
		if err != nil {
			return nil, fmt.Errorf("s3 store: %w", err)
		}
		return s, nil
	default:
		storageHTTP, err := httpx.NewClient(c.StorageServiceURL, hc, c.DownstreamTimeout)
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		return objectstore.NewHTTPStore(storageHTTP, c.TransferTimeout), nil
	}
}

// openLedger opens the configured orphan ledger and registers its cleanup.
func (app *App) openLedger(ctx context.Context) (orphans.Repository, error) {
	c := app.config
	switch c.LedgerBackend {
	case "postgres":
		db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		rm := repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		return rm.Orphans(db), nil
	case "badger":
		r, err := orphans.OpenBadger(c.BadgerDir, app.logger.With("module", "ledger"))
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, r.Close)
		return r, nil
	default:
		app.logger.Warn(ctx, "orphan ledger is in memory; records are lost on restart")
		return orphans.NewMemoryRepository(), nil
	}
}

// Close releases the ledger.
func (app *App) Close() {
	for _, c := range app.closers {
		if err := c(); err != nil {
			app.logger.Error(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
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

// Run serves until a signal arrives or one of the servers fails, then shuts
// both down and closes the ledger.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	health := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger)
	api := httpapi.NewServer(app.config.EndpointAddrHTTP, app.handler, app.logger, app.config.ShutdownTimeout)

	var wg sync.WaitGroup

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := health.Run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := api.Run(ctx, func() { health.SetServing(true) })
		health.SetServing(false)
		if err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
}
