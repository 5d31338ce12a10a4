package backup

// Stage is one transform applied to a backup artifact. Apply consumes
// its input artifact (closing it) and returns a new one carrying the
// stage's filename suffix.
type Stage interface {
	Name() string
	Apply(in *Artifact) (*Artifact, error)
}

// Pipeline applies transform stages to a dumped artifact in a fixed
// order: compression first, then encryption. The order is part of the
// filename contract; retention and restore tooling rely on suffixes
// reading inner-to-outer, e.g. db-2024-01-02-030405.sql.gz.enc.
type Pipeline struct {
	stages []Stage
}

// PipelineOptions selects which transform stages a pipeline runs.
type PipelineOptions struct {
	Compress             bool
	CompressionAlgorithm CompressionType
	CompressionLevel     int

	Encrypt    bool
	Encryption EncryptionConfig
}

// NewPipeline builds a pipeline for the given options. With neither
// compression nor encryption enabled the pipeline has no stages and
// Run returns its input artifact untouched.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	var stages []Stage

	if opts.Compress && opts.CompressionAlgorithm != CompressionTypeNone {
		compressor, err := NewCompressor(opts.CompressionAlgorithm, opts.CompressionLevel)
		if err != nil {
			return nil, err
		}
		stages = append(stages, &compressStage{compressor: compressor})
	}

	if opts.Encrypt {
		stages = append(stages, &encryptStage{encryptor: NewEncryptor(opts.Encryption)})
	}

	return &Pipeline{stages: stages}, nil
}

// StageNames reports the configured stages for logging.
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	return names
}

// Run threads the artifact through every stage. Each stage owns and
// closes its input; on failure the last produced artifact has already
// been closed by the failing stage's contract, so callers only handle
// the returned error.
func (p *Pipeline) Run(in *Artifact) (*Artifact, error) {
	current := in
	for _, stage := range p.stages {
		next, err := stage.Apply(current)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}
