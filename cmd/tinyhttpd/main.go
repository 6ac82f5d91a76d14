// Tinyhttpd serves a small demo application on the tinyhttp engine.
//
// Usage:
//
//	tinyhttpd serve [flags]
//
// See 'tinyhttpd serve --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/searchktools/tinyhttp/app"
	"github.com/searchktools/tinyhttp/config"
	"github.com/searchktools/tinyhttp/logging"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tinyhttpd",
	Short: "Minimal HTTP/1.1 server",
	Long: `A minimal HTTP/1.1 server answering exactly one request per connection.

Connections are sniffed before parsing; anything that is not HTTP/1
(including the HTTP/2 client preface) is closed without a response.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var (
	configPath     string
	host           string
	port           int
	maxRequestSize int
	staticDir      string
	logLevel       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Long: `Start the server with the demo routes.

Settings are read from the defaults, then the YAML file given with --config,
then environment variables (HOST, PORT, MAX_REQUEST_SIZE, ENV, LOG_LEVEL,
READ_TIMEOUT, STATIC_DIR, METRICS_PATH), then any flags set explicitly.`,
	Example: `  # Serve on the default address
  tinyhttpd serve

  # Serve a static directory on all interfaces
  tinyhttpd serve --host 0.0.0.0 --port 8080 --static ./public

  # Load settings from a file with debug logging
  tinyhttpd serve --config tinyhttp.yaml --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen host")
	serveCmd.Flags().IntVar(&port, "port", 0, "Listen port")
	serveCmd.Flags().IntVar(&maxRequestSize, "max-request-size", 0, "Maximum bytes buffered for one request")
	serveCmd.Flags().StringVar(&staticDir, "static", "", "Directory served for the static routes")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	application := app.New(cfg, logger)
	registerRoutes(application.Engine(), cfg.StaticDir != "")

	return application.Run(context.Background())
}

// loadConfig layers explicitly set flags over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.FromEnv(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("max-request-size") {
		cfg.MaxRequestSize = maxRequestSize
	}
	if flags.Changed("static") {
		cfg.StaticDir = staticDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tinyhttpd %s\n", Version)
	},
}
