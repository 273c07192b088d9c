package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/embermesh/ember/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a connector with the configured SSL settings",
	Long:  `Starts a server on the configured connector. Applications embed the server package directly; this command runs a bare status handler, useful for smoke-testing SSL settings against real clients.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok\n"))
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte("ember\n"))
		})

		srv, err := server.New(cfg, mux, nil)
		if err != nil {
			return err
		}

		if err := srv.Start(); err != nil {
			return err
		}

		waitForShutdown(srv)
		return nil
	},
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func waitForShutdown(srv *server.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("shutdown signal received, gracefully shutting down...")

	if err := srv.Shutdown(); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
}
