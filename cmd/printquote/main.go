package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/printquote/internal/config"
	"github.com/philipparndt/printquote/internal/logging"
	"github.com/philipparndt/printquote/version"
)

var (
	configPath string
	verbose    bool
	logFormat  string
	apiURL     string
	apiToken   string

	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "printquote",
	Short: "Instant quotes for 3D print jobs",
	Long: `printquote prices 3D print jobs from STL and OpenSCAD files.
It analyses model geometry, estimates material and print time, applies the
shop's catalog, and talks to the print shop backend for slicing, orders,
and printer control.`,
	Version:           version.GetFullVersion(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath(), "Path to the YAML config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&logFormat, "log-format", string(logging.FormatConsole), "Log format: console or json")
	flags.StringVar(&apiURL, "api-url", "", "Backend base URL (overrides config)")
	flags.StringVar(&apiToken, "api-token", "", "Backend bearer token (overrides config)")
}

// setup loads configuration and the logger; flags override config and env
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	logger, err = logging.NewLogger(logging.Format(logFormat), verbose)
	if err != nil {
		return err
	}

	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api-url") {
		cfg.API.BaseURL = apiURL
	}
	if cmd.Flags().Changed("api-token") {
		cfg.API.Token = apiToken
	}
	logger.Debug("configuration loaded",
		zap.String("path", configPath),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Bool("api_configured", cfg.API.BaseURL != ""))
	return nil
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
