package backup

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType identifies a compression algorithm
type CompressionType string

const (
	CompressionTypeNone CompressionType = "NONE"
	CompressionTypeGzip CompressionType = "GZIP"
	CompressionTypeZstd CompressionType = "ZSTD"
	CompressionTypeLZ4  CompressionType = "LZ4"
)

// ParseCompressionType converts a configuration string to a CompressionType.
func ParseCompressionType(s string) (CompressionType, error) {
	switch CompressionType(normalizeUpper(s)) {
	case CompressionTypeNone, "":
		return CompressionTypeNone, nil
	case CompressionTypeGzip:
		return CompressionTypeGzip, nil
	case CompressionTypeZstd:
		return CompressionTypeZstd, nil
	case CompressionTypeLZ4:
		return CompressionTypeLZ4, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unsupported compression algorithm: %s", s), nil)
	}
}

// Compressor is a streaming compression stage. NewWriter wraps the stage
// output so dump data flows through a bounded copy loop; the whole
// plaintext never has to reside in memory.
type Compressor interface {
	// Suffix is the filename extension the stage appends, without the dot.
	Suffix() string
	// NewWriter wraps w with the compressing encoder.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader wraps r with the matching decoder, for compatible readers
	// of previously produced artifacts.
	NewReader(r io.Reader) (io.ReadCloser, error)
	// Algorithm identifies the stage.
	Algorithm() CompressionType
}

// NewCompressor returns the Compressor for the given algorithm and level.
// Levels outside the algorithm's range fall back to its default.
func NewCompressor(algorithm CompressionType, level int) (Compressor, error) {
	switch algorithm {
	case CompressionTypeGzip:
		if level < gzip.BestSpeed || level > gzip.BestCompression {
			level = gzip.DefaultCompression
		}
		return &gzipCompressor{level: level}, nil
	case CompressionTypeZstd:
		return &zstdCompressor{level: zstdLevel(level)}, nil
	case CompressionTypeLZ4:
		return &lz4Compressor{level: lz4Level(level)}, nil
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
}

// gzipCompressor implements gzip compression
type gzipCompressor struct {
	level int
}

func (c *gzipCompressor) Suffix() string { return "gz" }

func (c *gzipCompressor) Algorithm() CompressionType { return CompressionTypeGzip }

func (c *gzipCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	writer, err := gzip.NewWriterLevel(w, c.level)
	if err != nil {
		return nil, NewTransformError("failed to create gzip writer", err)
	}
	return writer, nil
}

func (c *gzipCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	reader, err := gzip.NewReader(r)
	if err != nil {
		return nil, NewTransformError("failed to create gzip reader", err)
	}
	return reader, nil
}

// zstdCompressor implements Zstandard compression
type zstdCompressor struct {
	level zstd.EncoderLevel
}

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 3:
		return zstd.SpeedDefault
	case level <= 6:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func (c *zstdCompressor) Suffix() string { return "zst" }

func (c *zstdCompressor) Algorithm() CompressionType { return CompressionTypeZstd }

func (c *zstdCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(c.level))
	if err != nil {
		return nil, NewTransformError("failed to create zstd encoder", err)
	}
	return encoder, nil
}

func (c *zstdCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, NewTransformError("failed to create zstd decoder", err)
	}
	return decoder.IOReadCloser(), nil
}

// lz4Compressor implements LZ4 compression
type lz4Compressor struct {
	level lz4.CompressionLevel
}

func lz4Level(level int) lz4.CompressionLevel {
	if level > 6 {
		return lz4.Level9
	}
	return lz4.Fast
}

func (c *lz4Compressor) Suffix() string { return "lz4" }

func (c *lz4Compressor) Algorithm() CompressionType { return CompressionTypeLZ4 }

func (c *lz4Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	writer := lz4.NewWriter(w)
	if err := writer.Apply(lz4.CompressionLevelOption(c.level)); err != nil {
		return nil, NewTransformError("failed to configure LZ4 writer", err)
	}
	return writer, nil
}

func (c *lz4Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

// compressStage adapts a Compressor to the transform pipeline: it drains
// the input artifact through the encoder into a fresh artifact and
// appends the algorithm suffix to the filename.
type compressStage struct {
	compressor Compressor
}

func (s *compressStage) Name() string {
	return "compress/" + string(s.compressor.Algorithm())
}

func (s *compressStage) Apply(in *Artifact) (*Artifact, error) {
	defer in.Close()

	if err := in.Rewind(); err != nil {
		return nil, err
	}

	out, err := NewArtifact(in.Filename + "." + s.compressor.Suffix())
	if err != nil {
		return nil, err
	}

	writer, err := s.compressor.NewWriter(out)
	if err != nil {
		out.Close()
		return nil, err
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(writer, in, buf); err != nil {
		writer.Close()
		out.Close()
		return nil, NewTransformError("failed to compress backup artifact", err)
	}
	if err := writer.Close(); err != nil {
		out.Close()
		return nil, NewTransformError("failed to finalize compressed artifact", err)
	}

	return out, nil
}
