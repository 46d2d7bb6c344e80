package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tchung1970/record/cmd/config"
	"github.com/tchung1970/record/cmd/record/app"
	"github.com/tchung1970/record/lib/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}
	var logOut io.Writer = os.Stderr
	if term.IsTerminal(int(os.Stderr.Fd())) {
		// the session puts the terminal in raw mode while recording
		logOut = logger.NewCRLFWriter(os.Stderr)
	}
	slogger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slogger.Debug("recorder configuration", "config", cfg)

	// context cancellation on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.AddToContext(ctx, slogger)

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		if !app.Reported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return app.ExitCode(err)
	}
	return 0
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "record",
		Short: "Record an application window or the whole screen",
		Long: "record lists the applications with open windows, lets you pick one, and records it " +
			"with ffmpeg for RECORD_DURATION seconds. Press ESC to stop early.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.New(cfg, os.Stdin, os.Stdout)
			a.ClearScreen = term.IsTerminal(int(os.Stdout.Fd()))
			return a.Run(cmd.Context())
		},
	}
	rootCmd.Version = version

	rootCmd.AddCommand(newDoctorCmd(cfg))
	return rootCmd
}

func newDoctorCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.New(cfg, os.Stdin, os.Stdout)
			if !a.Doctor(cmd.Context()) {
				return errPrerequisites
			}
			return nil
		},
	}
}
