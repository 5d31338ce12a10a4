package backup

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    CompressionType
		wantErr bool
	}{
		{name: "gzip lowercase", input: "gzip", want: CompressionTypeGzip},
		{name: "zstd mixed case", input: "ZsTd", want: CompressionTypeZstd},
		{name: "lz4 with whitespace", input: " lz4 ", want: CompressionTypeLZ4},
		{name: "none", input: "none", want: CompressionTypeNone},
		{name: "empty means none", input: "", want: CompressionTypeNone},
		{name: "unknown algorithm", input: "brotli", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCompressionType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompressorRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("INSERT INTO orders VALUES (1, 'widget');\n", 2000))

	algorithms := []CompressionType{CompressionTypeGzip, CompressionTypeZstd, CompressionTypeLZ4}
	for _, algorithm := range algorithms {
		t.Run(string(algorithm), func(t *testing.T) {
			compressor, err := NewCompressor(algorithm, 6)
			require.NoError(t, err)

			var compressed bytes.Buffer
			w, err := compressor.NewWriter(&compressed)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			assert.Less(t, compressed.Len(), len(payload), "repetitive payload must shrink")

			r, err := compressor.NewReader(bytes.NewReader(compressed.Bytes()))
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestNewCompressorUnsupported(t *testing.T) {
	_, err := NewCompressor(CompressionType("SNAPPY"), 6)
	assert.Error(t, err)
}

func TestCompressStageAppendsSuffix(t *testing.T) {
	in, err := NewArtifact("orders-2024-03-15-103045.sql")
	require.NoError(t, err)
	_, err = in.Write([]byte(strings.Repeat("data", 1000)))
	require.NoError(t, err)

	compressor, err := NewCompressor(CompressionTypeGzip, 6)
	require.NoError(t, err)

	stage := &compressStage{compressor: compressor}
	out, err := stage.Apply(in)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, "orders-2024-03-15-103045.sql.gz", out.Filename)

	size, err := out.Size()
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}
