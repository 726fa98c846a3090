package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"greenroom/internal/config"
	"greenroom/internal/logging"
	"greenroom/internal/telemetry"
	"greenroom/internal/version"
)

var (
	cfgFile          string
	telemetryService *telemetry.TelemetryService
	rootCmd          = &cobra.Command{
		Use:   "greenroom",
		Short: "Greenroom - video production research and idea backend",
		Long: `Greenroom is the backend for a video-production assistant: research tools
for finding outlier videos, transcript and thumbnail pipelines, and idea
management with generated production briefs.`,
		Version: version.GetVersionString(),
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	cobra.OnInitialize(initLogging)
	cobra.OnInitialize(initTelemetry)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/greenroom/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsInspectCmd)
	jobsCmd.AddCommand(jobsWatchCmd)

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsRunCmd)

	// Serve command flags
	serveCmd.Flags().Int("api-port", 8585, "API server port")
	serveCmd.Flags().String("database", "greenroom.db", "Database file path")
	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
	serveCmd.Flags().Bool("local", true, "Run in local mode (single user, no authentication)")
	serveCmd.Flags().Bool("workers", true, "Run the worker pools in-process")

	// Worker command flags
	workerCmd.Flags().String("pool", "", "Worker pool to run: search or generic (required)")
	workerCmd.Flags().Int("workers", 0, "Worker count (default from config)")
	workerCmd.MarkFlagRequired("pool")

	// Jobs command flags
	jobsListCmd.Flags().Int("limit", 20, "Maximum number of jobs to display")
	jobsWatchCmd.Flags().Duration("interval", 0, "Refresh interval (default: poll_interval from config)")

	// Tools run flags
	toolsRunCmd.Flags().String("input", "{}", "Tool input as a JSON object")

	// Bind flags to viper
	viper.BindPFlag("api_port", serveCmd.Flags().Lookup("api-port"))
	viper.BindPFlag("database_url", serveCmd.Flags().Lookup("database"))
	viper.BindPFlag("debug", serveCmd.Flags().Lookup("debug"))
	viper.BindPFlag("local_mode", serveCmd.Flags().Lookup("local"))

	config.SetDefaults()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(getConfigDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("GREENROOM")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Printf("Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func initLogging() {
	cfg, err := config.Load()
	if err != nil {
		logging.Initialize(false)
		return
	}
	logging.Initialize(cfg.Debug)
}

func initTelemetry() {
	cfg, err := config.Load()
	if err != nil {
		telemetryService = telemetry.NewTelemetryService(false)
		return
	}
	telemetryService = telemetry.NewTelemetryService(cfg.TelemetryEnabled)
}

func getConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, _ := os.UserHomeDir()
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "greenroom")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("Error: %v\n", err)
		if telemetryService != nil {
			telemetryService.TrackError("cli_execution", err.Error())
		}
		telemetryService.Close()
		os.Exit(1)
	}

	telemetryService.Close()
}
