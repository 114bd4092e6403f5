// Package api implements app.Runner for the API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	accountservice "github.com/hatchlabs/devbox-middleware/pkg/account/service"
	"github.com/hatchlabs/devbox-middleware/pkg/accountstore"
	apphttp "github.com/hatchlabs/devbox-middleware/pkg/app/http"
	"github.com/hatchlabs/devbox-middleware/pkg/auth"
	"github.com/hatchlabs/devbox-middleware/pkg/config"
	"github.com/hatchlabs/devbox-middleware/pkg/keys"
	paymentservice "github.com/hatchlabs/devbox-middleware/pkg/payment/service"
	"github.com/hatchlabs/devbox-middleware/pkg/paymentstore"
	"github.com/hatchlabs/devbox-middleware/pkg/pgutil"
	projectservice "github.com/hatchlabs/devbox-middleware/pkg/project/service"
	"github.com/hatchlabs/devbox-middleware/pkg/projectstore"
	"github.com/hatchlabs/devbox-middleware/pkg/sandbox"
	"github.com/hatchlabs/devbox-middleware/pkg/solana"
)

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	masterKey, err := s.getMasterKey()
	if err != nil {
		return err
	}
	cipher := keys.NewMasterKeyCipher(masterKey)

	accountStore := accountstore.NewStore(db)
	projectStore := projectstore.NewStore(db)
	paymentStore := paymentstore.NewStore(db)

	sandboxClient, err := sandbox.NewClient(
		&cfg.Sandbox,
		os.Getenv(cfg.Sandbox.APIKeyEnv),
		sandbox.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create sandbox client: %w", err)
	}
	solanaClient := solana.NewClient(&cfg.Solana, logger)

	accountService := accountservice.NewService(accountStore, cipher, logger)
	projectService := projectservice.NewService(projectStore, sandboxClient, &cfg.Sandbox, logger)
	paymentService, err := paymentservice.NewService(paymentStore, accountStore, &cfg.Payments, logger)
	if err != nil {
		return fmt.Errorf("create payment service: %w", err)
	}

	poller := paymentservice.NewPoller(
		pollerStore{paymentStore, accountStore},
		paymentService, solanaClient, &cfg.Payments, logger)
	poller.Start()
	// Stop is idempotent; the defer covers early error returns, the explicit
	// call below runs before the deferred DB close.
	defer poller.Stop()

	validator := auth.NewJWTValidator(cfg.Identity.JWKSURL, cfg.Identity.Issuer, cfg.Identity.Audience)
	authMiddleware := auth.NewMiddleware(validator, accountService.Resolve, logger)

	router := s.setupRouter(authMiddleware, accountService, projectService, paymentService, logger)

	err = apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)

	// Stop background work before deferred DB close kicks in.
	poller.Stop()

	return err
}

func (s *Server) getMasterKey() ([]byte, error) {
	masterKeyStr := os.Getenv(s.cfg.Keys.MasterKeyEnv)
	if masterKeyStr == "" {
		return nil, fmt.Errorf(
			"deposit master key not set: env=%s (hint: openssl rand -base64 32)",
			s.cfg.Keys.MasterKeyEnv,
		)
	}

	masterKey, err := keys.MasterKeyFromBase64(masterKeyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid deposit master key: %w", err)
	}
	return masterKey, nil
}

func (s *Server) setupRouter(
	authMiddleware *auth.Middleware,
	accountService accountservice.Service,
	projectService projectservice.Service,
	paymentService paymentservice.Service,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	r.Use(apphttp.Metrics)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	// The transfer webhook authenticates by payload content, not bearer token.
	paymentservice.RegisterWebhookRoutes(r, paymentService, logger)

	// Authenticated API
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		accountservice.RegisterRoutes(r, accountService, logger)
		projectservice.RegisterRoutes(r, projectService, logger)
		paymentservice.RegisterRoutes(r, paymentService, logger)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAdmin)
			projectservice.RegisterAdminRoutes(r, projectService, logger)
		})
	})

	return r
}

// pollerStore joins payment persistence with the account store's deposit
// wallet listing, the two halves the poller needs. The aliases give the two
// embedded Store interfaces distinct field names.
type (
	paymentStore = paymentstore.Store
	accountStore = accountstore.Store
)

type pollerStore struct {
	paymentStore
	accountStore
}
