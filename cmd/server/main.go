package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/otpauth/internal/crypto"
	"github.com/iudanet/otpauth/internal/otp"
	"github.com/iudanet/otpauth/internal/server"
	"github.com/iudanet/otpauth/internal/server/auth"
	"github.com/iudanet/otpauth/internal/server/config"
	"github.com/iudanet/otpauth/internal/server/delivery"
	"github.com/iudanet/otpauth/internal/server/handlers"
	"github.com/iudanet/otpauth/internal/server/jwt"
	"github.com/iudanet/otpauth/internal/server/oauth"
	"github.com/iudanet/otpauth/internal/server/storage"
	"github.com/iudanet/otpauth/internal/server/storage/memory"
	"github.com/iudanet/otpauth/internal/server/storage/postgres"
	"github.com/iudanet/otpauth/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// credentialStore - хранилище пользователей с health check
type credentialStore interface {
	storage.UserStorage
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-version" || os.Args[1] == "--version") {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.LoadFromOS()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped with error", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.InfoContext(ctx, "OTPAuth Server starting",
		slog.String("version", Version),
		slog.String("addr", cfg.Addr),
		slog.String("driver", cfg.DatabaseDriver))

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	issuer, err := jwt.NewIssuer([]byte(cfg.SigningKey), cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	var provider oauth.Provider
	if cfg.OAuthEnabled() {
		provider = oauth.NewGoogleProvider(cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthRedirectURL)
	}

	policy := auth.ProvisionAuto
	if !cfg.ProvisionFederated {
		policy = auth.ProvisionReject
	}

	service, err := auth.NewService(auth.Deps{
		Logger:     logger,
		Users:      store,
		Hasher:     crypto.NewHasher(cfg.BcryptCost),
		OTP:        otp.NewEngine(),
		Sender:     newSender(logger, cfg),
		Tokens:     issuer,
		Provider:   provider,
		Reconciler: auth.NewReconciler(logger, store, policy),
	})
	if err != nil {
		return err
	}

	router := server.NewRouter(logger,
		handlers.NewAuthHandler(logger, service, provider, cfg.SecureCookies),
		handlers.NewHealthHandler(logger, store, Version),
		issuer)

	return server.ListenAndServe(ctx, logger, router, server.DefaultConfig(cfg.Addr))
}

func openStore(ctx context.Context, cfg *config.Config) (credentialStore, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		return sqlite.New(ctx, cfg.DatabaseDSN)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseDSN)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.DatabaseDriver)
	}
}

// newSender выбирает Postmark при наличии токена, иначе коды пишутся в лог
func newSender(logger *slog.Logger, cfg *config.Config) delivery.Sender {
	if cfg.PostmarkToken == "" {
		logger.Warn("POSTMARK_API_TOKEN is not set, OTP codes will be written to the log")
		return delivery.NewLogSender(logger)
	}
	return delivery.NewPostmarkSender(delivery.PostmarkConfig{
		ServerToken: cfg.PostmarkToken,
		From:        cfg.MailFrom,
	}, nil)
}

func printVersion() {
	fmt.Printf("OTPAuth Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
