// Package server wires configuration, storage, services and transports
// together and runs the HTTP and gRPC servers until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/credgate/internal/cryptox"
	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/audit"
	"github.com/dmitrijs2005/credgate/internal/server/config"
	"github.com/dmitrijs2005/credgate/internal/server/httpserver"
	"github.com/dmitrijs2005/credgate/internal/server/mail"
	"github.com/dmitrijs2005/credgate/internal/server/metrics"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credgate/internal/server/services"
	"github.com/dmitrijs2005/credgate/internal/timex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/credgate/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	accounts     *services.AccountService
	confirmation *services.ConfirmationTokenService
	sessions     *services.SessionTokenService
	apiKeys      *services.ApiKeyService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	mailer, err := newMailer(c, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	sink, err := newAuditSink(ctx, c, db, repos)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit sink init error: %w", err)
	}
	auditLog := audit.NewLog(sink, timex.SystemClock, logger)

	deps := services.Deps{DB: db, Repos: repos, Logger: logger, Metrics: m, Now: timex.SystemClock}

	confirmation := services.NewConfirmationTokenService(deps, mailer, c)

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		registry:     reg,
		metrics:      m,
		accounts:     services.NewAccountService(deps, cryptox.NewArgon2(), confirmation, auditLog),
		confirmation: confirmation,
		sessions:     services.NewSessionTokenService(deps, auditLog, c),
		apiKeys:      services.NewApiKeyService(deps, auditLog),
	}, nil
}

// newMailer picks SMTP delivery when an SMTP address is configured and the
// logging transport otherwise.
func newMailer(c *config.Config, l logging.Logger) (services.Mailer, error) {
	if c.SMTPAddr == "" {
		return mail.NewLogSender(l), nil
	}
	return mail.NewSMTPSender(c.SMTPAddr, c.SMTPUser, c.SMTPPassword)
}

func newAuditSink(ctx context.Context, c *config.Config, db *sql.DB, repos audit.RepositoryFactory) (audit.Sink, error) {
	switch c.AuditSink {
	case config.AuditSinkPostgres, "":
		return audit.NewPostgresSink(db, repos), nil
	case config.AuditSinkS3:
		return audit.NewS3Sink(ctx, audit.S3Options{
			AccessKey: c.S3RootUser,
			SecretKey: c.S3RootPassword,
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown audit sink %q", c.AuditSink)
	}
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

func (app *App) purgeConsumedTokens(ctx context.Context) {
	n, err := app.sessions.PurgeConsumed(ctx)
	if err != nil {
		app.logger.Error(ctx, "purge consumed refresh tokens", "error", err)
		return
	}
	app.logger.Info(ctx, "purged consumed refresh tokens", "count", n)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpserver.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, httpserver.Services{
		Accounts:      app.accounts,
		Confirmations: app.confirmation,
		Sessions:      app.sessions,
		ApiKeys:       app.apiKeys,
	}, app.metrics, app.registry, app.config.AuthRequestsPerMinute, app.config.RequestTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.apiKeys, app.config.IntrospectionKey)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.purgeConsumedTokens(ctx)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
