package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dbbackup/internal/backup"
	"dbbackup/internal/connector"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and scaffold configuration",
}

// configShowCmd prints the effective configuration after merging file,
// environment and flags. Secrets are redacted.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := buildConfig()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		redactConfig(config)

		data, err := yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

// configInitCmd writes a commented starter configuration to stdout.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Print a sample configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		sample := backup.NewDefaultConfig()
		sample.Databases = []connector.Database{
			{
				Name:     "orders",
				Engine:   string(connector.EngineMySQL),
				Host:     "db.internal",
				Port:     3306,
				User:     "backup",
				Password: "change-me",
			},
		}
		sample.Compress = true
		sample.Clean = true

		data, err := yaml.Marshal(sample)
		if err != nil {
			return fmt.Errorf("failed to render sample configuration: %w", err)
		}
		fmt.Fprintln(os.Stdout, "# dbbackup configuration; save as ~/.dbbackup.yaml or pass via --config")
		fmt.Print(string(data))
		return nil
	},
}

func redactConfig(config *backup.Config) {
	for i := range config.Databases {
		if config.Databases[i].Password != "" {
			config.Databases[i].Password = "[redacted]"
		}
	}
	if config.Storage.S3.SecretKey != "" {
		config.Storage.S3.SecretKey = "[redacted]"
	}
	if config.Storage.Azure.AccountKey != "" {
		config.Storage.Azure.AccountKey = "[redacted]"
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
