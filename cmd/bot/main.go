// Package main runs the daylog Telegram bot and its maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/daylog-bot/internal/bot"
	"github.com/xaenox/daylog-bot/pkg/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Daily habit tracker bot",
	Long: `bot turns narrated days ("worked 9 to 5, then read for an hour") into
per-day timelines and keeps streaks and stats over them.

Without a subcommand it runs the Telegram bot. Configuration comes from the
file given with --config plus environment variables (TELEGRAM_TOKEN,
OPENAI_API_KEY, DATABASE_URL, REDIS_URL, DAYLOG_*).`,
	SilenceUsage: true,
	RunE:         runBot,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml)")
	rootCmd.AddCommand(newLogCommand(), newStatsCommand())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	defer logger.Sync()

	if cfg.Telegram.Token == "" {
		logger.Fatal("Telegram token is not set", zap.String("env", "TELEGRAM_TOKEN"))
	}

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer app.Close()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, logger)
		defer srv.Shutdown(context.Background())
	}

	b, err := bot.New(cfg.Telegram.Token, app.service, cfg.Telegram.RequestTimeout, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Bot started", zap.String("storage", cfg.Database.Driver))
	if err := b.Start(ctx); err != nil {
		logger.Error("Bot error", zap.Error(err))
		return err
	}
	logger.Info("Bot stopped")
	return nil
}
