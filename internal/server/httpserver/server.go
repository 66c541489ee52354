// Package httpserver exposes the public credgate API over HTTP using Fiber.
package httpserver

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/metrics"
	"github.com/dmitrijs2005/credgate/internal/server/models"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Accounts is the account capability the HTTP layer needs.
type Accounts interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	ChangePassword(ctx context.Context, uid, oldPassword, newPassword string) error
}

type Confirmations interface {
	RequestEmail(ctx context.Context, uid string) error
	Confirm(ctx context.Context, uid, key string) error
}

type Sessions interface {
	Issue(ctx context.Context, uid string) (*models.TokenPair, error)
	VerifyAccess(token string) (string, error)
	Refresh(ctx context.Context, token string) (*models.TokenPair, error)
}

type ApiKeys interface {
	Create(ctx context.Context, uid string, perm models.Permission) (string, error)
	GetPermission(ctx context.Context, token string) (models.Permission, error)
	List(ctx context.Context, uid string) ([]*models.ApiKey, error)
	Get(ctx context.Context, uid, id string) (*models.ApiKey, error)
	Revoke(ctx context.Context, uid, id string) error
}

// Services bundles what the routes call into.
type Services struct {
	Accounts      Accounts
	Confirmations Confirmations
	Sessions      Sessions
	ApiKeys       ApiKeys
}

type HTTPServer struct {
	address  string
	logger   logging.Logger
	svc      Services
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	limiters *LimiterRegistry
	timeout  time.Duration
	app      *fiber.App
}

// NewHTTPServer builds the server and its routes. authPerMinute is the
// per-IP budget for register, login and refresh; zero disables the limit.
// requestTimeout bounds the context every handler runs with; zero leaves it
// unbounded.
func NewHTTPServer(addr string, l logging.Logger, svc Services, m *metrics.Metrics, g prometheus.Gatherer, authPerMinute int, requestTimeout time.Duration) *HTTPServer {
	s := &HTTPServer{
		address:  addr,
		logger:   l.With("module", "http_server"),
		svc:      svc,
		metrics:  m,
		gatherer: g,
		limiters: NewLimiterRegistry(authPerMinute),
		timeout:  requestTimeout,
	}
	s.app = fiber.New(fiber.Config{
		AppName:      "credgate",
		ErrorHandler: s.errorHandler,
	})
	s.routes()
	return s
}

// App returns the underlying Fiber application.
func (s *HTTPServer) App() *fiber.App { return s.app }

func (s *HTTPServer) routes() {
	s.app.Use(s.requestMeta)

	if s.gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.app.Group("/v1")

	a := v1.Group("/auth")
	a.Post("/register", s.throttle("register"), s.register)
	a.Post("/login", s.throttle("login"), s.login)
	a.Get("/refresh", s.throttle("refresh"), s.refresh)
	a.Post("/verification/request", s.requireAccess, s.requestConfirmation)
	a.Get("/verification/confirm", s.confirm)
	a.Post("/password/change", s.requireAccess, s.changePassword)

	t := v1.Group("/tokens")
	// registered ahead of /:id so "permission" is not taken for an id
	t.Get("/permission", s.tokenPermission)
	t.Get("/", s.requireAccess, s.listTokens)
	t.Post("/", s.requireAccess, s.createToken)
	t.Get("/:id", s.requireAccess, s.getToken)
	t.Delete("/:id", s.requireAccess, s.deleteToken)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.Shutdown(); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	return s.app.Listener(listen, fiber.ListenConfig{DisableStartupMessage: true})
}
