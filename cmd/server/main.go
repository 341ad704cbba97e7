package main

import (
	"babble/contract"
	"babble/repositories"
	"babble/runtime"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/pflag"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Babble terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run loads the configuration, opens the optional archive, and serves until SIGINT or SIGTERM.
func run(args []string) (int, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if code, err := parseFlags(args, &config); code != exitOK || err != nil {
		return code, err
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	var archive contract.IPublicationArchive
	if config.BadgerFilepath != "" {
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		archive = repositories.NewPublicationRepository(db, log)

		if log.Enabled(context.Background(), slog.LevelDebug) {
			startInspector(log, db, config.DebugPort)
		}
	}

	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := runtime.NewOrchestrator(log, listener, archive, runtime.RealClock(), runtime.Options{
		CommunicationWorkers: config.CommunicationWorkers,
		ExecutorWorkers:      config.ExecutorWorkers,
		BufferSize:           config.BufferSize,
		RestartInterval:      config.RestartInterval,
		MetricInterval:       config.MetricInterval,
		SinkTimeout:          config.SinkTimeout,
		Limits:               config.Limits(),
	})
	orchestrator.Start(ctx)

	log.Info("Program stopped cleanly", slog.String("addr", config.Address()))
	return exitOK, nil
}

// startInspector serves the archive as an HTML table for the life of the process.
func startInspector(log *slog.Logger, db *badger.DB, port int) {
	endpoint := "/inspect"
	url := fmt.Sprintf("http://localhost:%d%s?prefix=%s", port, endpoint, repositories.PublicationPrefix)
	log.Info("Debug Badger inspector available", "url", url)
	database.StartDebugServer(db, port, endpoint, repositories.PublicationMapper)
}

// parseFlags applies command line overrides on top of the environment.
// Help, unknown flags and positional arguments all print the usage and exit with exitConfig.
func parseFlags(args []string, config *Config) (int, error) {
	flagSet := pflag.NewFlagSet("babble", pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	port := flagSet.IntP("port", "p", config.Port, "TCP port to listen on")
	help := flagSet.BoolP("help", "h", false, "show help")
	flagSet.Usage = func() { printUsage(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitConfig, nil
		}
		return exitConfig, err
	}
	if *help {
		printUsage(flagSet)
		return exitConfig, nil
	}
	if flagSet.NArg() > 0 {
		printUsage(flagSet)
		return exitConfig, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	config.Port = *port
	return exitOK, nil
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Babble server: a small publish/follow message service over TCP.

Usage:
  babble [flags]

Every setting is also read from the environment (BABBLE_*), see .env.example.

Flags:
%s`, flagSet.FlagUsages())
}
