package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cpuload-view/internal/config"
)

var (
	configPath string
	schemaPath string
	originFlag string
	logLevel   string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "cpuload-view",
	Short: "Live CPU load viewer",
	Long:  "cpuload-view polls or streams per-core CPU load from a monitoring server and renders it as percentage bars.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to viewer configuration YAML")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "schemas/view.cue", "Path to CUE schema file")
	rootCmd.PersistentFlags().StringVar(&originFlag, "origin", "", "Page origin the endpoints are resolved against (e.g. https://host/)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of STDERR")
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(dumpCmd)
}

// loadConfig layers the config file, CPULOAD_* env vars and explicit flags.
func loadConfig(cmd *cobra.Command) (*config.ViewConfig, error) {
	path := configPath
	schema := schemaPath
	if path == "" {
		schema = ""
	}
	cfg, err := config.Load(path, schema)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("origin") {
		cfg.Origin = originFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	return cfg, nil
}

func durationFlag(cmd *cobra.Command, name string, v time.Duration, dst *time.Duration) {
	if cmd.Flags().Changed(name) {
		*dst = v
	}
}
