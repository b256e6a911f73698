package cmd

import (
	"fmt"
	"os"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/pkg/logger"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "safety-hazards",
	Short: "Safety Hazards",
	Long:  `Reporting, triage and resolution of safety hazards on work sites.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads config.yml under path, or the plain environment when
// running in a container.
func loadConfig(path string) (*internal.Config, error) {
	var cfg *internal.Config
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg = internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
	} else {
		var err error
		if cfg, err = internal.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	logger.Configure(os.Stdout, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory containing config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}
