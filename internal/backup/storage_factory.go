package backup

import (
	"context"
	"fmt"
	"strings"
)

// Storage provider names accepted in configuration.
const (
	StorageProviderLocal = "local"
	StorageProviderS3    = "s3"
	StorageProviderGCS   = "gcs"
	StorageProviderAzure = "azure"
)

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Provider string             `yaml:"provider" mapstructure:"provider"`
	Local    LocalStorageConfig `yaml:"local" mapstructure:"local"`
	S3       S3StorageConfig    `yaml:"s3" mapstructure:"s3"`
	GCS      GCSStorageConfig   `yaml:"gcs" mapstructure:"gcs"`
	Azure    AzureStorageConfig `yaml:"azure" mapstructure:"azure"`
}

// LocalStorageConfig configures filesystem storage.
type LocalStorageConfig struct {
	Directory string `yaml:"directory" mapstructure:"directory"`
}

// S3StorageConfig configures Amazon S3 storage. AccessKey and SecretKey
// may be left empty to use the SDK's default credential chain.
type S3StorageConfig struct {
	Region    string `yaml:"region" mapstructure:"region"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	// Endpoint points at an S3-compatible service such as MinIO.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// GCSStorageConfig configures Google Cloud Storage.
type GCSStorageConfig struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// AzureStorageConfig configures Azure Blob Storage.
type AzureStorageConfig struct {
	AccountName string `yaml:"account_name" mapstructure:"account_name"`
	AccountKey  string `yaml:"account_key" mapstructure:"account_key"`
	Container   string `yaml:"container" mapstructure:"container"`
	Prefix      string `yaml:"prefix" mapstructure:"prefix"`
}

// Validate checks that the selected provider's section is complete.
func (sc *StorageConfig) Validate() error {
	var errs ValidationErrors

	switch strings.ToLower(strings.TrimSpace(sc.Provider)) {
	case StorageProviderLocal:
		if sc.Local.Directory == "" {
			errs.Add("local.directory", "storage directory is required", nil)
		}
	case StorageProviderS3:
		if sc.S3.Region == "" {
			errs.Add("s3.region", "AWS region is required", nil)
		}
		if sc.S3.Bucket == "" {
			errs.Add("s3.bucket", "S3 bucket name is required", nil)
		}
		if (sc.S3.AccessKey == "") != (sc.S3.SecretKey == "") {
			errs.Add("s3.access_key", "access key and secret key must be set together", nil)
		}
	case StorageProviderGCS:
		if sc.GCS.Bucket == "" {
			errs.Add("gcs.bucket", "GCS bucket name is required", nil)
		}
	case StorageProviderAzure:
		if sc.Azure.AccountName == "" {
			errs.Add("azure.account_name", "Azure account name is required", nil)
		}
		if sc.Azure.AccountKey == "" {
			errs.Add("azure.account_key", "Azure account key is required", nil)
		}
		if sc.Azure.Container == "" {
			errs.Add("azure.container", "Azure container name is required", nil)
		}
	default:
		errs.Add("provider", fmt.Sprintf("unsupported storage provider: %s", sc.Provider), sc.Provider)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewStorageAdapter builds the adapter the configuration selects.
func NewStorageAdapter(ctx context.Context, config StorageConfig) (StorageAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid storage configuration", err)
	}

	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case StorageProviderLocal:
		return NewLocalStorage(config.Local.Directory)
	case StorageProviderS3:
		return NewS3Storage(config.S3)
	case StorageProviderGCS:
		return NewGCSStorage(ctx, config.GCS)
	case StorageProviderAzure:
		return NewAzureStorage(config.Azure)
	default:
		return nil, NewConfigurationError(
			fmt.Sprintf("unsupported storage provider: %s", config.Provider), nil)
	}
}
