package backup

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDumpArtifact(t *testing.T, filename string, payload []byte) *Artifact {
	t.Helper()
	artifact, err := NewArtifact(filename)
	require.NoError(t, err)
	_, err = artifact.Write(payload)
	require.NoError(t, err)
	return artifact
}

func TestPipelineNoStagesPassesArtifactThrough(t *testing.T) {
	pipeline, err := NewPipeline(PipelineOptions{})
	require.NoError(t, err)
	assert.Empty(t, pipeline.StageNames())

	payload := []byte("raw dump")
	in := newDumpArtifact(t, "orders-2024-03-15-103045.sql", payload)
	defer in.Close()

	out, err := pipeline.Run(in)
	require.NoError(t, err)

	assert.Same(t, in, out, "empty pipeline must not touch the artifact")
	assert.Equal(t, "orders-2024-03-15-103045.sql", out.Filename)

	require.NoError(t, out.Rewind())
	got, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestPipelineCompressOnly(t *testing.T) {
	pipeline, err := NewPipeline(PipelineOptions{
		Compress:             true,
		CompressionAlgorithm: CompressionTypeGzip,
		CompressionLevel:     6,
	})
	require.NoError(t, err)

	in := newDumpArtifact(t, "orders-2024-03-15-103045.sql", []byte("raw dump"))
	out, err := pipeline.Run(in)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, "orders-2024-03-15-103045.sql.gz", out.Filename)
}

func TestPipelineSuffixOrderCompressThenEncrypt(t *testing.T) {
	pipeline, err := NewPipeline(PipelineOptions{
		Compress:             true,
		CompressionAlgorithm: CompressionTypeZstd,
		CompressionLevel:     3,
		Encrypt:              true,
		Encryption: EncryptionConfig{
			Enabled:      true,
			KeyRetriever: testKeyRetriever(t),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"compress/ZSTD", "encrypt/AES-256-GCM"}, pipeline.StageNames())

	in := newDumpArtifact(t, "orders-2024-03-15-103045.sql", []byte("raw dump"))
	out, err := pipeline.Run(in)
	require.NoError(t, err)
	defer out.Close()

	// Compression runs before encryption; suffixes read inner to outer.
	assert.Equal(t, "orders-2024-03-15-103045.sql.zst.enc", out.Filename)
}

func TestPipelineEncryptedOutputDecryptsToOriginal(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	retriever := func() ([]byte, error) { return key, nil }

	pipeline, err := NewPipeline(PipelineOptions{
		Compress:             true,
		CompressionAlgorithm: CompressionTypeGzip,
		CompressionLevel:     6,
		Encrypt:              true,
		Encryption:           EncryptionConfig{Enabled: true, KeyRetriever: retriever},
	})
	require.NoError(t, err)

	payload := []byte("CREATE TABLE t (id INT);")
	in := newDumpArtifact(t, "orders-2024-03-15-103045.sql", payload)
	out, err := pipeline.Run(in)
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, out.Rewind())

	decryptor := NewEncryptor(EncryptionConfig{Enabled: true, KeyRetriever: retriever})
	decrypted, err := NewArtifact("decrypted")
	require.NoError(t, err)
	defer decrypted.Close()
	require.NoError(t, decryptor.Decrypt(out, decrypted))

	require.NoError(t, decrypted.Rewind())
	compressor, err := NewCompressor(CompressionTypeGzip, 6)
	require.NoError(t, err)
	r, err := compressor.NewReader(decrypted)
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestPipelineMissingKeyFailsTransform(t *testing.T) {
	pipeline, err := NewPipeline(PipelineOptions{
		Encrypt: true,
		Encryption: EncryptionConfig{
			Enabled:   true,
			KeySource: KeySourceEnv,
			KeyEnvVar: "DBBACKUP_TEST_NO_SUCH_KEY",
		},
	})
	require.NoError(t, err)

	in := newDumpArtifact(t, "orders-2024-03-15-103045.sql", []byte("raw dump"))
	_, err = pipeline.Run(in)
	require.Error(t, err)
	assert.True(t, IsTransformError(err))
}

func TestPipelineCompressNoneIsNoStage(t *testing.T) {
	pipeline, err := NewPipeline(PipelineOptions{
		Compress:             true,
		CompressionAlgorithm: CompressionTypeNone,
	})
	require.NoError(t, err)
	assert.Empty(t, pipeline.StageNames())
}
