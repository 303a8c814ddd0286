package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"msgbox/service/config"
	"msgbox/service/dispatch"
	"msgbox/service/pipeline"
	"msgbox/service/rule"
	"msgbox/service/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

type Server struct {
	cfg        *config.Config
	store      *rule.Store
	pipeline   *pipeline.Pipeline
	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server
	startTime  time.Time
}

func New(cfg *config.Config) (*Server, error) {
	logger := util.NewLogger(cfg.VerboseLogging)

	store, err := rule.NewStore(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	httpOut := dispatch.NewHTTPDispatcher(cfg.DispatchTimeout, logger)
	mqttOut := dispatch.NewMQTTDispatcher(cfg.DispatchTimeout, logger)
	pipe := pipeline.New(store, httpOut, mqttOut, cfg.MQTTWorkers, cfg.MQTTQueueSize, logger)

	s := &Server{
		cfg:       cfg,
		store:     store,
		pipeline:  pipe,
		logger:    logger,
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.logger))
	r.Use(securityHeadersMiddleware())
	r.Use(middleware.Compress(5))
	r.Use(middleware.StripSlashes)
	r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))

	r.Get("/health", s.handleHealth)

	r.With(authMiddleware(s.cfg.APIKey)).Post("/notify", s.handleNotify)

	r.Route("/api/rules", func(r chi.Router) {
		r.Use(authMiddleware(s.cfg.APIKey))
		r.Get("/", s.handleListRules)
		r.Post("/", s.handleCreateRule)
		r.Get("/{id}", s.handleGetRule)
		r.Put("/{id}", s.handleUpdateRule)
		r.Delete("/{id}", s.handleDeleteRule)
	})

	s.router = r
}

func (s *Server) Start(ctx context.Context) error {
	s.pipeline.Start(ctx)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	msg := fmt.Sprintf("Msgbox running on:\n  Local: http://localhost:%d", s.cfg.Port)
	if lanIP := util.GetLANIP(); lanIP != "" {
		msg += fmt.Sprintf("\n  Network: http://%s:%d", lanIP, s.cfg.Port)
	}
	s.logger.Info(msg)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	return nil
}
