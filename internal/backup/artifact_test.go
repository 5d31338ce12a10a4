package backup

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactReadWriteRewind(t *testing.T) {
	artifact, err := NewArtifact("orders-2024-03-15-103045.sql")
	require.NoError(t, err)
	defer artifact.Close()

	payload := []byte("CREATE TABLE orders (id INT);\n")
	n, err := artifact.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	size, err := artifact.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), size)

	require.NoError(t, artifact.Rewind())
	got, err := io.ReadAll(artifact)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestArtifactCloseRemovesTempFile(t *testing.T) {
	artifact, err := NewArtifact("orders.sql")
	require.NoError(t, err)

	path := artifact.Path()
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, artifact.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "temp file must be removed on close")

	// Close is idempotent.
	assert.NoError(t, artifact.Close())
}
