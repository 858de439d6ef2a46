package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"plant-advisor/pkg/config"
)

// cfg is loaded once before any subcommand runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Plant Advisor - plant health prediction and care recommendations",
	Long: `Plant Advisor trains a sequence model on historical plant readings and
searches for the moisture, humidity and watering levels that maximize the
predicted plant health score.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Env parse warnings from Load go through tint at info level
		setupLogger(slog.LevelInfo)
		cfg = config.Load()
		setupLogger(cfg.SlogLevel())
	},
}

// logOutput receives structured logs; stdout carries only results
var logOutput io.Writer = os.Stderr

func setupLogger(level slog.Level) {
	slog.SetDefault(slog.New(tint.NewHandler(logOutput, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
