package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/webserv/sessionauth/config"
	"github.com/webserv/sessionauth/internal/db"
	"github.com/webserv/sessionauth/internal/handlers"
	"github.com/webserv/sessionauth/internal/logging"
	"github.com/webserv/sessionauth/internal/mq"
	"github.com/webserv/sessionauth/internal/services"
	"github.com/webserv/sessionauth/internal/store"
	"github.com/webserv/sessionauth/internal/views"
	"golang.org/x/crypto/bcrypt"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *mq.MQ
	logger     *slog.Logger
}

// New connects the credential store and event bus and builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	renderer, err := views.New()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg); err != nil {
			return nil, err
		}
	}

	dialect, err := db.DialectFor(cfg)
	if err != nil {
		return nil, err
	}
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", dialect, err)
	}
	if err := db.VerifySchema(ctx, dbConn); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	bus, err := mq.Open(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var events services.EventPublisher = services.NopPublisher{}
	if bus != nil {
		events = services.NewMQPublisher(bus, cfg.Events.Channel, logger)
	}

	userRepo := store.NewUserRepository(dbConn, dialect)
	credentials := services.NewCredentialStore(userRepo, services.NewBcryptHasher(bcrypt.DefaultCost), events)
	sessions := services.NewSessionManager(credentials, events)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)
	router.Get("/healthz", handlers.Healthz(dbConn))
	handlers.AuthRouter(router, handlers.NewAuthHandler(credentials, sessions, renderer, logger, cfg.CookieSecure))

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.InfoContext(ctx, "server configured",
		"store", string(dialect),
		"events", cfg.Events.Backend,
		"addr", httpServer.Addr,
	)

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done, then releases the event bus and store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.bus.Close(); closeErr != nil {
		s.logger.Warn("close event bus", "error", closeErr)
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
