package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/constants"
	"github.com/kozaktomas/faceid/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the faceid HTTP API.
The server exposes enrollment, identification, confidence-gated
auto-enrollment and detection under /api/v1/faces.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", constants.DefaultWebPort, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", constants.DefaultWebHost, "Host to bind to (overrides WEB_HOST)")
}

// resolveServeHostPort takes explicitly set flags over environment configuration.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) (int, string) {
	port, host := cfg.Web.Port, cfg.Web.Host
	if cmd.Flags().Changed("port") {
		port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		host = mustGetString(cmd, "host")
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, closeStore := newService(ctx, cfg)
	defer closeStore()

	port, host := resolveServeHostPort(cmd, cfg)
	server := web.NewServer(cfg, service, port, host)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting faceid API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
