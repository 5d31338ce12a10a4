package backup

import (
	"fmt"
	"strings"

	"dbbackup/internal/connector"
)

// DefaultKeep is the number of most recent backups cleanup retains per
// database when no keep count is configured.
const DefaultKeep = 10

// normalizeUpper canonicalizes user-supplied enum values.
func normalizeUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Config is the full configuration of a backup run. It is assembled
// once from flags, environment and config file, validated, and treated
// as immutable afterwards.
type Config struct {
	// Databases lists the databases to back up, processed in order.
	Databases []connector.Database `yaml:"databases" mapstructure:"databases"`

	// Servername optionally distinguishes backups of same-named
	// databases on different hosts inside the filename.
	Servername string `yaml:"servername" mapstructure:"servername"`

	Compress             bool   `yaml:"compress" mapstructure:"compress"`
	CompressionAlgorithm string `yaml:"compression_algorithm" mapstructure:"compression_algorithm"`
	CompressionLevel     int    `yaml:"compression_level" mapstructure:"compression_level"`

	Encrypt    bool             `yaml:"encrypt" mapstructure:"encrypt"`
	Encryption EncryptionConfig `yaml:"encryption" mapstructure:"encryption"`

	// Clean runs retention cleanup after each successful backup.
	Clean bool `yaml:"clean" mapstructure:"clean"`
	// Keep is the retention keep count used when Clean is set.
	Keep int `yaml:"keep" mapstructure:"keep"`

	// DateFormat is the Go time layout embedded in filenames.
	DateFormat string `yaml:"date_format" mapstructure:"date_format"`

	// OutputFilename overrides the derived filename. Only valid with a
	// single database; retention cannot parse overridden names.
	OutputFilename string `yaml:"output_filename" mapstructure:"output_filename"`
	// OutputPath writes the artifact to a local directory instead of
	// the configured storage backend.
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`

	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	Quiet   bool   `yaml:"quiet" mapstructure:"quiet"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	LogFile string `yaml:"log_file" mapstructure:"log_file"`
}

// NewDefaultConfig returns a config with library defaults; callers
// overlay file, environment and flag values on top.
func NewDefaultConfig() *Config {
	return &Config{
		CompressionAlgorithm: string(CompressionTypeGzip),
		CompressionLevel:     6,
		Encryption: EncryptionConfig{
			KeySource: KeySourceEnv,
			KeyEnvVar: "DBBACKUP_ENCRYPTION_KEY",
		},
		Keep:       DefaultKeep,
		DateFormat: DefaultDateFormat,
		Storage: StorageConfig{
			Provider: StorageProviderLocal,
			Local:    LocalStorageConfig{Directory: "backups"},
		},
	}
}

// Validate checks the whole run configuration. It runs before any
// connector, pipeline or storage work so a bad config never produces a
// partial run.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if len(c.Databases) == 0 {
		errs.Add("databases", "at least one database must be configured", nil)
	}
	for i, db := range c.Databases {
		field := fmt.Sprintf("databases[%d]", i)
		if db.Name == "" {
			errs.Add(field+".name", "database name is required", nil)
		}
		if _, err := connector.ParseEngine(db.Engine); err != nil {
			errs.Add(field+".engine", err.Error(), db.Engine)
		}
		if db.Host == "" {
			errs.Add(field+".host", "database host is required", nil)
		}
		if db.Port < 1 || db.Port > 65535 {
			errs.Add(field+".port", "port must be between 1 and 65535", db.Port)
		}
	}

	if c.Compress {
		if _, err := ParseCompressionType(c.CompressionAlgorithm); err != nil {
			errs.Add("compression_algorithm", err.Error(), c.CompressionAlgorithm)
		}
		if c.CompressionLevel < 1 || c.CompressionLevel > 9 {
			errs.Add("compression_level", "compression level must be between 1 and 9", c.CompressionLevel)
		}
	}

	if c.Encrypt {
		if err := c.Encryption.Validate(); err != nil {
			if verrs, ok := err.(ValidationErrors); ok {
				for _, ve := range verrs {
					errs.Add("encryption."+ve.Field, ve.Message, ve.Value)
				}
			} else {
				errs.Add("encryption", err.Error(), nil)
			}
		}
	}

	if c.Clean && c.Keep < 1 {
		errs.Add("keep", fmt.Sprintf("keep count must be at least 1, got %d", c.Keep), c.Keep)
	}

	if _, err := NewNamingPolicy(c.DateFormat); err != nil {
		errs.Add("date_format", err.Error(), c.DateFormat)
	}

	if c.OutputFilename != "" {
		if len(c.Databases) > 1 {
			errs.Add("output_filename", "filename override requires exactly one configured database", c.OutputFilename)
		}
		if c.Clean {
			errs.Add("output_filename", "filename override cannot be combined with cleanup; overridden names carry no parseable timestamp", c.OutputFilename)
		}
	}

	if c.OutputPath == "" {
		if err := c.Storage.Validate(); err != nil {
			if verrs, ok := err.(ValidationErrors); ok {
				for _, ve := range verrs {
					errs.Add("storage."+ve.Field, ve.Message, ve.Value)
				}
			} else {
				errs.Add("storage", err.Error(), nil)
			}
		}
	}

	if c.Quiet && c.Verbose {
		errs.Add("quiet", "quiet and verbose are mutually exclusive", nil)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
