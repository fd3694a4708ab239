package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-messenger-store/internal/config"
	"github.com/tbourn/go-messenger-store/internal/observability"
	"github.com/tbourn/go-messenger-store/internal/sysutil"
)

// Version is stamped at build time with -ldflags "-X ...commands.Version=...".
var Version = "dev"

var (
	envFile   string
	driver    string
	logLevel  string
	logPretty bool

	cfg           config.Config
	traceShutdown observability.Shutdown
)

var rootCmd = &cobra.Command{
	Use:   "messenger",
	Short: "Direct-messaging store over Cassandra or embedded SQLite",
	Long: `messenger runs the data-access layer of a one-to-one messaging system.
Messages and conversation summaries are written to several denormalized
views; reads are paginated per view.

Configuration comes from the environment (optionally a .env file).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if traceShutdown == nil {
			return nil
		}
		return traceShutdown(context.Background())
	},
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// AddCommand registers a subcommand.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")
	pf.StringVar(&driver, "driver", "", "store driver override: cassandra or sqlite (default: STORE_DRIVER)")
	pf.StringVar(&logLevel, "log-level", "", "log level override (default: LOG_LEVEL)")
	pf.BoolVar(&logPretty, "pretty", false, "human-readable logs on stderr")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}
	if driver != "" {
		if err := os.Setenv("STORE_DRIVER", driver); err != nil {
			return err
		}
	}
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg = c

	sysutil.SetupLogging(sysutil.FirstNonEmpty(logLevel, cfg.LogLevel), logPretty || cfg.LogPretty)

	shutdown, err := observability.Setup(cmd.Context(), cfg, Version)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
		return nil
	}
	traceShutdown = shutdown
	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
