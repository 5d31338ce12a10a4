package backup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  StorageConfig
		wantErr bool
	}{
		{
			name: "valid local",
			config: StorageConfig{
				Provider: StorageProviderLocal,
				Local:    LocalStorageConfig{Directory: "backups"},
			},
		},
		{
			name:    "local without directory",
			config:  StorageConfig{Provider: StorageProviderLocal},
			wantErr: true,
		},
		{
			name: "valid s3",
			config: StorageConfig{
				Provider: StorageProviderS3,
				S3:       S3StorageConfig{Region: "eu-west-1", Bucket: "backups"},
			},
		},
		{
			name: "s3 with only access key",
			config: StorageConfig{
				Provider: StorageProviderS3,
				S3:       S3StorageConfig{Region: "eu-west-1", Bucket: "backups", AccessKey: "AKIA..."},
			},
			wantErr: true,
		},
		{
			name: "valid gcs",
			config: StorageConfig{
				Provider: StorageProviderGCS,
				GCS:      GCSStorageConfig{Bucket: "backups"},
			},
		},
		{
			name:    "gcs without bucket",
			config:  StorageConfig{Provider: StorageProviderGCS},
			wantErr: true,
		},
		{
			name: "valid azure",
			config: StorageConfig{
				Provider: StorageProviderAzure,
				Azure: AzureStorageConfig{
					AccountName: "account", AccountKey: "key", Container: "backups",
				},
			},
		},
		{
			name: "azure without container",
			config: StorageConfig{
				Provider: StorageProviderAzure,
				Azure:    AzureStorageConfig{AccountName: "account", AccountKey: "key"},
			},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			config:  StorageConfig{Provider: "ftp"},
			wantErr: true,
		},
		{
			name: "provider name is case insensitive",
			config: StorageConfig{
				Provider: "Local",
				Local:    LocalStorageConfig{Directory: "backups"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewStorageAdapterLocal(t *testing.T) {
	dir := t.TempDir()
	adapter, err := NewStorageAdapter(context.Background(), StorageConfig{
		Provider: StorageProviderLocal,
		Local:    LocalStorageConfig{Directory: dir},
	})
	require.NoError(t, err)
	assert.Equal(t, "local", adapter.Name())
	assert.Equal(t, dir, adapter.Root())
}

func TestNewStorageAdapterRejectsInvalidConfig(t *testing.T) {
	_, err := NewStorageAdapter(context.Background(), StorageConfig{Provider: "ftp"})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, BackupErrorTypeConfiguration))
}

func TestObjectKeyHelpers(t *testing.T) {
	assert.Equal(t, "orders.sql", objectKey("", "orders.sql"))
	assert.Equal(t, "nightly/orders.sql", objectKey("nightly", "orders.sql"))

	name, ok := trimKeyPrefix("nightly", "nightly/orders.sql")
	require.True(t, ok)
	assert.Equal(t, "orders.sql", name)

	_, ok = trimKeyPrefix("nightly", "nightly/sub/orders.sql")
	assert.False(t, ok, "nested keys are not backup artifacts")

	name, ok = trimKeyPrefix("", "orders.sql")
	require.True(t, ok)
	assert.Equal(t, "orders.sql", name)
}
