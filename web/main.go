package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/df07/go-spectral-film/pkg/core"
	"github.com/df07/go-spectral-film/web/server"
	"github.com/spf13/cobra"
)

func main() {
	var (
		port      int
		scenesDir string
		staticDir string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:          "spectral-film-web",
		Short:        "Serve progressive spectral renders over Server-Sent Events",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			logger := core.NewDefaultLogger(os.Stderr, level)

			logger.Info("spectral film web server", "url", fmt.Sprintf("http://localhost:%d", port))
			return server.NewServer(port, scenesDir, staticDir, logger).Start(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "port to serve on")
	cmd.Flags().StringVar(&scenesDir, "scenes", "scenes", "directory of settings files")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory of static files served at /")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
