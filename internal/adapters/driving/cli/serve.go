package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/htp-rag/internal/adapters/driving/rest"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Endpoints:
  POST /llm/analyze   {"question": "...", "category": "HOME"} -> {"answer": "..."}
  GET  /health        liveness probe
  GET  /metrics       Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr or :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, err := resolveServeAddr()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := requireAnalysis(ctx)
	if err != nil {
		return err
	}

	server, err := rest.NewServer(svc, rest.Config{
		Addr:     addr,
		Gatherer: metricsGatherer,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "HTTP API listening on %s\n", server.Addr())
	return server.Run(ctx)
}

func resolveServeAddr() (string, error) {
	if serveAddr != "" {
		return serveAddr, nil
	}
	svc, err := requireSettings()
	if err != nil {
		return "", err
	}
	settings, err := svc.Get()
	if err != nil {
		return "", fmt.Errorf("failed to get settings: %w", err)
	}
	return settings.Server.Addr, nil
}
