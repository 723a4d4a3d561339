package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/facelens/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the facelens web server.
The web server provides the browser UI and the JSON API for live analysis,
photo analysis and face comparison. Frames are streamed over SSE and WebSocket.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("autostart", false, "Start live analysis as soon as the models are ready")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Load models in the background so the UI can show their status
	a.controller.Models()

	if mustGetBool(cmd, "autostart") {
		go func() {
			if err := a.controller.Start(ctx); err != nil {
				fmt.Printf("Warning: live analysis did not start: %v\n", err)
			}
		}()
	}

	server := web.NewServer(cfg, a.controller)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Printf("Starting facelens on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	return serveUntilSignal(server, sigChan, func() { a.controller.Stop() }, 30*time.Second)
}

type httpServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serveUntilSignal runs server until a signal arrives, then stops analysis and
// returns once the graceful shutdown has finished.
func serveUntilSignal(server httpServer, sig <-chan os.Signal, stop func(), timeout time.Duration) error {
	quit := make(chan struct{})
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-sig:
		case <-quit:
			return
		}
		fmt.Println("\nShutting down...")
		stop()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	if err := server.Start(); err != nil {
		close(quit)
		<-shutdownDone
		return fmt.Errorf("starting server: %w", err)
	}
	// Start returns as soon as Shutdown begins.
	<-shutdownDone
	return nil
}
