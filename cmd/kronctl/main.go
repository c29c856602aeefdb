package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pbnkron/kron/internal/bootstrap"
	"github.com/pbnkron/kron/internal/infrastructure/config"
	"github.com/pbnkron/kron/pkg/logger"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	logLevel string

	// now is the wall clock used by the countdown commands.
	now = time.Now
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kronctl",
	Short: "kron operator CLI",
	Long: `kronctl is the operator tool for a kron deployment.

Store commands (reconcile, rename) read the same environment as kron-api
(STORE_BACKEND, MONGO_URI, FIREBASE_PROJECT_ID, ...). The countdown command
needs no configuration.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Level:   logLevel,
			Pretty:  true,
			Service: "kronctl",
			Output:  cmd.ErrOrStderr(),
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kronctl version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(countdownCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(versionCmd)
}

// openBackends loads the environment configuration and connects the store.
func openBackends(ctx context.Context) (*bootstrap.Backends, *config.Config, zerolog.Logger, error) {
	log := logger.Get()
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, log, err
	}
	b, err := bootstrap.Open(ctx, cfg, logger.Component("bootstrap"))
	if err != nil {
		return nil, nil, log, err
	}
	return b, cfg, log, nil
}
