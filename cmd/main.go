package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "branchmap",
		Short: "Bank branch and nearby ATM locator",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	serveCmd := newServeCommand()
	rootCmd.RunE = serveCmd.RunE
	rootCmd.AddCommand(serveCmd, newSearchCommand(), newNearbyCommand())

	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the locator HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, os.Stdout)
			if err != nil {
				return err
			}
			defer a.close()

			srv, err := a.server(ctx)
			if err != nil {
				return err
			}

			// Log that the application has started.
			a.log.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

			go a.locator.Run(ctx)

			if err = srv.Start(ctx, a.cfg.Port); err != nil {
				a.log.ErrorContext(ctx, "API server failed", "error", err)
				return err
			}

			// Log graceful shutdown completion.
			a.log.InfoContext(ctx, "Application stopped gracefully.")
			return nil
		},
	}
}

func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Print branches matching a name, city or address",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			var text string
			if len(args) > 0 {
				text = args[0]
			}
			result := a.locator.Search(ctx, text)
			if result.Err != nil {
				return fmt.Errorf("%s: %w", result.Message, result.Err)
			}

			return printJSON(cmd, result)
		},
	}
}

func newNearbyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nearby <branch-id>",
		Short: "Print the ATMs near a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			view, err := a.locator.Nearby(ctx, args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd, view)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setupLogger initializes and returns a logger based on the environment provided.
// CLI commands pass stderr so their output on stdout stays parseable.
func setupLogger(env string, w io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level:       slog.LevelError,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
