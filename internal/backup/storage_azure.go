package backup

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStorage stores backup artifacts as block blobs in an Azure Blob
// Storage container.
type AzureStorage struct {
	containerURL azblob.ContainerURL
	account      string
	container    string
	prefix       string
}

// NewAzureStorage creates an Azure Blob adapter using shared key
// credentials.
func NewAzureStorage(config AzureStorageConfig) (*AzureStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	serviceURL, err := url.Parse(
		fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to build Azure service URL", err)
	}

	container := azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.Container)
	return &AzureStorage{
		containerURL: container,
		account:      config.AccountName,
		container:    config.Container,
		prefix:       config.Prefix,
	}, nil
}

func (s *AzureStorage) Name() string { return "azure" }

func (s *AzureStorage) Root() string {
	root := fmt.Sprintf("https://%s.blob.core.windows.net/%s", s.account, s.container)
	if s.prefix != "" {
		root += "/" + s.prefix
	}
	return root
}

func (s *AzureStorage) Write(ctx context.Context, r io.ReadSeeker, filename string) error {
	blobURL := s.containerURL.NewBlockBlobURL(objectKey(s.prefix, filename))
	_, err := azblob.UploadStreamToBlockBlob(ctx, r, blobURL, azblob.UploadStreamToBlockBlobOptions{
		BufferSize: copyBufferSize,
		MaxBuffers: 4,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/octet-stream",
		},
	})
	if err != nil {
		return NewStorageError(
			fmt.Sprintf("failed to upload %s to container %s", filename, s.container), err)
	}
	return nil
}

func (s *AzureStorage) List(ctx context.Context) ([]string, error) {
	options := azblob.ListBlobsSegmentOptions{}
	if s.prefix != "" {
		options.Prefix = s.prefix + "/"
	}

	var names []string
	for marker := (azblob.Marker{}); marker.NotDone(); {
		resp, err := s.containerURL.ListBlobsFlatSegment(ctx, marker, options)
		if err != nil {
			return nil, NewStorageError(
				fmt.Sprintf("failed to list container %s", s.container), err)
		}
		for _, item := range resp.Segment.BlobItems {
			if name, ok := trimKeyPrefix(s.prefix, item.Name); ok {
				names = append(names, name)
			}
		}
		marker = resp.NextMarker
	}
	return names, nil
}

func (s *AzureStorage) Delete(ctx context.Context, filename string) error {
	blobURL := s.containerURL.NewBlockBlobURL(objectKey(s.prefix, filename))
	_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil {
		return NewStorageError(
			fmt.Sprintf("failed to delete %s from container %s", filename, s.container), err)
	}
	return nil
}
