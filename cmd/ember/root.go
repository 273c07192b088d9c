package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/embermesh/ember/pkg/conf"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "ember",
	Short:         "Ember - embedded HTTPS server with Java keystore support",
	Long:          `Ember is an embeddable HTTPS server whose TLS connectors are configured from declarative SSL settings compatible with Java keystore artifacts (JKS, PKCS12) and PKCS11 hardware providers.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
}

// loadConfig loads, validates and applies the logging settings of the
// configuration file.
func loadConfig() (*conf.Config, error) {
	cfg, err := conf.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	initLogger(cfg.Log.Level)
	return cfg, nil
}

func initLogger(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
