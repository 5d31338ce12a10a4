package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dbbackup/internal/backup"
	"dbbackup/internal/display"
	"dbbackup/internal/logging"
)

var cfgFile string

// timePrecision rounds durations in status output.
const timePrecision = 10 * time.Millisecond

// CLI flag variables
var (
	databaseNames  []string
	servername     string
	compress       bool
	compressAlg    string
	encrypt        bool
	clean          bool
	keep           int
	outputFilename string
	outputPath     string
	verbose        bool
	quiet          bool
	logFile        string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dbbackup",
	Short: "Back up configured databases to local or cloud storage",
	Long: `dbbackup dumps every configured database with its native dump tool,
optionally compresses and encrypts the dump, and stores the result in
local, S3, GCS or Azure Blob storage. Filenames embed a timestamp so a
retention policy can later prune old backups while always keeping
first-of-month archives.

Examples:
  # Back up every database from the config file
  dbbackup --config=dbbackup.yaml

  # Back up one database, compressed and encrypted, and prune old backups
  dbbackup --config=dbbackup.yaml -d orders -z -e --clean --keep=14

  # Write the artifact to a local directory instead of configured storage
  dbbackup --config=dbbackup.yaml -d orders -O /mnt/backups

  # Quiet run for cron
  dbbackup --config=dbbackup.yaml -q`,
	RunE: runBackup,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dbbackup.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file in addition to stderr")

	rootCmd.Flags().StringSliceVarP(&databaseNames, "database", "d", nil, "back up only the named databases (default: all configured)")
	rootCmd.Flags().StringVarP(&servername, "servername", "s", "", "server name embedded in backup filenames")
	rootCmd.Flags().BoolVarP(&compress, "compress", "z", false, "compress the dump before storing")
	rootCmd.Flags().StringVar(&compressAlg, "compress-algorithm", string(backup.CompressionTypeGzip), "compression algorithm (gzip, zstd, lz4)")
	rootCmd.Flags().BoolVarP(&encrypt, "encrypt", "e", false, "encrypt the artifact before storing")
	rootCmd.Flags().BoolVarP(&clean, "clean", "c", false, "prune old backups after a successful run")
	rootCmd.Flags().IntVar(&keep, "keep", backup.DefaultKeep, "number of recent backups to keep when cleaning")
	rootCmd.Flags().StringVarP(&outputFilename, "output-filename", "o", "", "override the derived backup filename (single database only)")
	rootCmd.Flags().StringVarP(&outputPath, "output-path", "O", "", "write the artifact to a local directory instead of configured storage")

	viper.BindPFlag("servername", rootCmd.Flags().Lookup("servername"))
	viper.BindPFlag("compress", rootCmd.Flags().Lookup("compress"))
	viper.BindPFlag("compression_algorithm", rootCmd.Flags().Lookup("compress-algorithm"))
	viper.BindPFlag("encrypt", rootCmd.Flags().Lookup("encrypt"))
	viper.BindPFlag("clean", rootCmd.Flags().Lookup("clean"))
	viper.BindPFlag("keep", rootCmd.Flags().Lookup("keep"))
	viper.BindPFlag("output_filename", rootCmd.Flags().Lookup("output-filename"))
	viper.BindPFlag("output_path", rootCmd.Flags().Lookup("output-path"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dbbackup")
	}

	viper.SetEnvPrefix("DBBACKUP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// buildConfig overlays file, environment and flag values on the
// defaults and filters the database list down to -d selections.
func buildConfig() (*backup.Config, error) {
	config := backup.NewDefaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if config.DateFormat == "" {
		config.DateFormat = backup.DefaultDateFormat
	}

	if len(databaseNames) > 0 {
		selected := config.Databases[:0:0]
		for _, db := range config.Databases {
			for _, name := range databaseNames {
				if db.Name == name {
					selected = append(selected, db)
					break
				}
			}
		}
		if len(selected) != len(databaseNames) {
			configured := make([]string, 0, len(config.Databases))
			for _, db := range config.Databases {
				configured = append(configured, db.Name)
			}
			return nil, fmt.Errorf("unknown database in selection %v; configured: %v", databaseNames, configured)
		}
		config.Databases = selected
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newLogger(config *backup.Config) (*logging.Logger, error) {
	level := logging.LogLevelNormal
	if config.Verbose {
		level = logging.LogLevelVerbose
	}
	if config.Quiet {
		level = logging.LogLevelQuiet
	}
	return logging.NewLogger(logging.Config{
		Level:   level,
		Output:  os.Stderr,
		Format:  "text",
		LogFile: config.LogFile,
	})
}

// runBackup is the main execution function for the CLI.
func runBackup(cmd *cobra.Command, args []string) error {
	config, err := buildConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	orchestrator, err := backup.NewOrchestrator(config, logger)
	if err != nil {
		return err
	}

	out := display.NewService(config.Quiet)
	result, err := orchestrator.Run(cmd.Context())
	if err != nil {
		out.Error("backup run failed: %v", err)
		return err
	}

	for _, db := range result.Databases {
		if !db.Success {
			out.Error("%s: %s", db.Database, db.Error)
			continue
		}
		out.Success("%s: stored %s (%d bytes, %s)", db.Database, db.Filename, db.Size, db.Duration.Round(timePrecision))
		if db.Cleanup != nil {
			reportCleanup(out, *db.Cleanup)
		}
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d backups failed", result.Failed, len(result.Databases))
	}
	out.Info("backup run %s complete: %d databases", result.RunID, result.Succeeded)
	return nil
}

func reportCleanup(out *display.Service, cleanup backup.CleanupResult) {
	out.Info("%s: cleanup kept %d, deleted %d", cleanup.Database, cleanup.Kept, cleanup.Deleted)
	for _, entry := range cleanup.Entries {
		switch entry.Status {
		case backup.CleanupStatusParseFailed:
			out.Warning("%s: skipped unrecognized file %s", cleanup.Database, entry.Filename)
		case backup.CleanupStatusDeleteFailed:
			out.Warning("%s: failed to delete %s: %s", cleanup.Database, entry.Filename, entry.Error)
		case backup.CleanupStatusListFailed:
			out.Warning("%s: failed to list stored backups: %s", cleanup.Database, entry.Error)
		}
	}
}
