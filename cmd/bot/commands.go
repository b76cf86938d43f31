package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/daylog-bot/pkg/config"
)

var (
	userID int64
	atTime string
	voice  string
	window string
)

func newLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [narration...]",
		Short: "Record a narration for a user without Telegram",
		Long: `Record a narration for a user without going through Telegram.

The narration is taken from the arguments, or from stdin when there are none.
With --voice the given audio file is transcribed first.

Examples:
  bot log --user 42 "worked 9 to 5, then read for an hour"
  echo "went for a run at 7" | bot log --user 42
  bot log --user 42 --voice note.ogg`,
		RunE: runLog,
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID (required)")
	cmd.Flags().StringVar(&atTime, "at", "", "narration time, RFC 3339 (default now)")
	cmd.Flags().StringVar(&voice, "voice", "", "audio file to transcribe instead of text")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a user's streaks and aggregates as JSON",
		RunE:  runStats,
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID (required)")
	cmd.Flags().StringVar(&window, "window", "week", "window: today, week, month, year, all, or Nd")
	cmd.Flags().StringVar(&atTime, "at", "", "reference time, RFC 3339 (default now)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	now, err := parseAt(atTime)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var out any
	if voice != "" {
		f, err := os.Open(voice)
		if err != nil {
			return err
		}
		defer f.Close()
		out, err = a.service.LogVoice(cmd.Context(), userID, f, voice, now)
		if err != nil {
			return err
		}
	} else {
		text := strings.Join(args, " ")
		if text == "" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			text = string(b)
		}
		out, err = a.service.LogTranscript(cmd.Context(), userID, text, now)
		if err != nil {
			return err
		}
	}
	return printResult(cmd, out)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	now, err := parseAt(atTime)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.service.Stats(cmd.Context(), userID, window, now)
	if err != nil {
		return err
	}
	return printResult(cmd, st)
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, newLogger(cfg.Logging), nil
}

func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: %w", err)
	}
	return t, nil
}

func printResult(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
