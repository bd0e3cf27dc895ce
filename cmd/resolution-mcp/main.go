package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oncp/resolution-mcp/pkg/logger"
	"github.com/oncp/resolution-mcp/pkg/service"
	"github.com/oncp/resolution-mcp/pkg/service/config"
	"github.com/oncp/resolution-mcp/pkg/service/lifecycle"
)

// Build-time variables set via ldflags
var (
	// Version is the semantic version of the application
	Version = "dev"
	// GitCommit is the git commit SHA at build time
	GitCommit = "unknown"
	// BuildTime is the time of the build
	BuildTime = "unknown"
)

type flagConfig struct {
	envFile  string
	logLevel string
	host     string
	port     int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &flagConfig{}

	rootCmd := &cobra.Command{
		Use:           "resolution-mcp",
		Short:         "MCP server for triggering and inspecting application resolution jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				log.Error().Err(err).Msg("Failed to configure server")
				return err
			}
			setupLogging(cfg.LogLevel, cfg.LogFormat)

			if err := run(cmd.Context(), cfg); err != nil {
				log.Error().Err(err).Msg("Server failed")
				return err
			}
			return nil
		},
	}

	rootCmd.Flags().StringVar(&flags.envFile, "env-file", "", "Path to a .env file (defaults to ./.env when present)")
	rootCmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.Flags().StringVar(&flags.host, "host", "", "Listen host; overrides MCP_SSE_HOST")
	rootCmd.Flags().IntVar(&flags.port, "port", 0, "Listen port; overrides MCP_SSE_PORT")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), getVersion())
		},
	})

	return rootCmd
}

// loadConfig loads the environment and applies flag overrides, then re-validates.
func loadConfig(flags *flagConfig) (config.Config, error) {
	setupLogging("info", logger.FormatConsole)

	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return cfg, err
	}

	applyFlagOverrides(&cfg, flags)
	cfg.ServiceVersion = Version

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFlagOverrides(cfg *config.Config, flags *flagConfig) {
	if flags.logLevel != "" {
		cfg.LogLevel = strings.ToLower(flags.logLevel)
	}
	if flags.host != "" {
		cfg.SSEHost = flags.host
	}
	if flags.port > 0 {
		cfg.SSEPort = flags.port
	}
}

// run serves until SIGINT/SIGTERM or a fatal server error.
func run(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := service.NewServerFactory(log.Logger, cfg).CreateServer(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()
	g.Go(func() error {
		defer stopServing()
		return srv.Start(serveCtx)
	})
	g.Go(func() error {
		<-serveCtx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during server shutdown")
			return err
		}
		return nil
	})

	return g.Wait()
}

func setupLogging(level, format string) {
	log.Logger = logger.New(logger.Options{Level: level, Format: format})
	zerolog.SetGlobalLevel(log.Logger.GetLevel())
}

// getVersion returns the version information
func getVersion() string {
	if Version == "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
	}
	return fmt.Sprintf("v%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}
