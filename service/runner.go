package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/viant/devops-mcp/config"
	"github.com/viant/devops-mcp/internal/logging"
)

// Run parses args, loads configuration and serves until SIGINT or SIGTERM.
func Run(args []string) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}
	if options.Version {
		fmt.Println(Name, Version)
		return nil
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := &slog.LevelVar{}
	level.Set(logging.ParseLevel(os.Getenv(config.EnvLogLevel)))
	logger := logging.New(logging.Config{Level: level, Format: logging.ParseFormat(options.LogFormat)})
	cfg := config.Load(ctx, options.EnvFile, lookup(options.overrides()), logger)
	level.Set(logging.ParseLevel(cfg.LogLevel))
	cfg.LogSummary(logger)

	srv, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

func lookup(overrides map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		if value, ok := overrides[key]; ok {
			return value, true
		}
		return os.LookupEnv(key)
	}
}
