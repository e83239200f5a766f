package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bustravel/payrelay/internal/approval"
	"github.com/bustravel/payrelay/internal/events"
	"github.com/bustravel/payrelay/internal/notify"
	"github.com/bustravel/payrelay/internal/server/handlers"
	"github.com/bustravel/payrelay/internal/server/middleware"
	"github.com/bustravel/payrelay/pkg/config"
)

type Server struct {
	ApprovalSvc *approval.Service
	Hub         *events.Hub
	Telegram    *notify.Telegram
	Cfg         *config.Config
	Logger      zerolog.Logger
	Router      *gin.Engine
	httpServer  *http.Server
}

// New builds the HTTP surface. telegram may be nil when the relay runs
// without a bot; the webhook endpoint then answers but discards updates.
func New(cfg *config.Config, approvalSvc *approval.Service, hub *events.Hub, telegram *notify.Telegram, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		Cfg:         cfg,
		ApprovalSvc: approvalSvc,
		Hub:         hub,
		Telegram:    telegram,
		Logger:      logger,
		Router:      router,
	}
}

func (s *Server) SetupRouter() {
	middleware.NewMiddleware(s.Logger).SetupMiddleware(s.Router)

	handler := handlers.New(
		s.ApprovalSvc,
		s.Hub,
		s.Telegram,
		s.Logger,
		s.Cfg,
	)
	handler.SetupHandlers(s.Router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:    s.Cfg.Server.Addr(),
		Handler: s.Router,
		// No WriteTimeout: SSE streams stay open for the life of a
		// payment session.
		ReadTimeout: 20 * time.Second,
	}

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.Logger.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
