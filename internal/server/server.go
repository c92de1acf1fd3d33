// Package server собирает HTTP API: маршруты, middleware и жизненный цикл http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/otpauth/internal/server/handlers"
	"github.com/iudanet/otpauth/internal/server/middleware"
)

// Config - параметры http.Server
type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultConfig возвращает таймауты по умолчанию
func DefaultConfig(addr string) Config {
	return Config{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// NewRouter регистрирует маршруты API.
// Цепочка: recovery -> logging -> mux, /me дополнительно за AuthMiddleware
func NewRouter(logger *slog.Logger, authHandler *handlers.AuthHandler, healthHandler *handlers.HealthHandler, tokens middleware.TokenParser) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/v1/auth/signin", authHandler.SignIn)
	mux.HandleFunc("POST /api/v1/auth/verify-otp", authHandler.VerifyOTP)
	mux.HandleFunc("GET /api/v1/auth/oauth/login", authHandler.OAuthLogin)
	mux.HandleFunc("GET /api/v1/auth/oauth/callback", authHandler.OAuthCallback)
	mux.Handle("GET /api/v1/auth/me", middleware.AuthMiddleware(logger, tokens)(http.HandlerFunc(authHandler.Me)))
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	var handler http.Handler = mux
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return handler
}

// ListenAndServe запускает сервер и останавливает его при отмене ctx.
// Активные запросы дорабатывают в пределах ShutdownTimeout
func ListenAndServe(ctx context.Context, logger *slog.Logger, handler http.Handler, cfg Config) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	sock, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(ctx, "listening", slog.String("addr", sock.Addr().String()))
		if err := srv.Serve(sock); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		logger.InfoContext(shutdownCtx, "shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
