// Command smorty is Smorty's single entrypoint: a thin cobra dispatcher
// wiring config into each of the six verbs (spec.md §6), the way the
// teacher's main.go wires config.LoadConfig into routes.SetupMainRouter.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smorty/internal/apperr"
	"smorty/internal/config"
	"smorty/internal/logging"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "smorty",
		Short:         "Generate, migrate, index, and serve indexed EVM event data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to config.toml or config.yaml")

	root.AddCommand(
		genSpecCmd(),
		genEndpointCmd(),
		genMigrationCmd(),
		migrateCmd(),
		indexCmd(),
		serveCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(apperr.CLIExitCode(err))
	}
}

func defaultConfigPath() string {
	if _, err := os.Stat("config.toml"); err == nil {
		return "config.toml"
	}
	return "config.yaml"
}

// loadConfig loads and validates config.toml/config.yaml at --config,
// and builds the logger every verb shares.
func loadConfig() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if level == "" {
		level = logging.LevelFromEnv()
	}
	return cfg, logging.New(level), nil
}

// rootContext cancels on SIGINT/SIGTERM, for the two long-running verbs
// (index, serve) that otherwise run until killed.
func rootContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

// baseDir is the directory holding ir/ and migrations/ — always the
// config file's own directory, not the process cwd, per spec.md §9's
// cwd-independent file I/O rule.
func baseDir() string {
	dir := filepath.Dir(configPath)
	if dir == "" {
		return "."
	}
	return dir
}
