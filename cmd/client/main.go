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

	"github.com/iudanet/otpauth/internal/client/api"
	"github.com/iudanet/otpauth/internal/client/auth"
	"github.com/iudanet/otpauth/internal/client/cli"
	"github.com/iudanet/otpauth/internal/client/iocli"
	"github.com/iudanet/otpauth/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "otpauth-client.db", "Path to local session database")
	password := flag.String("password", "", "Account password (not recommended)")
	passwordFile := flag.String("password-file", "", "Path to file containing the account password")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() { cli.PrintUsage(os.Stderr) }
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(os.Stderr)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	apiClient := api.NewClient(*serverURL)
	authService := auth.NewService(apiClient, boltStorage, *serverURL, logger)

	app := cli.New(iocli.NewStdio(), authService, cli.Passwords{
		FromFile: *passwordFile,
		FromArgs: *password,
	})

	runErr := app.Run(ctx, args[0], args[1:])

	if err := boltStorage.Close(); err != nil {
		logger.Error("failed to close database", slog.Any("error", err))
	}

	if runErr != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		if errors.Is(runErr, cli.ErrUnknownCommand) {
			cli.PrintUsage(os.Stderr)
		}
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("OTPAuth Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
