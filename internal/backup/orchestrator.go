package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dbbackup/internal/connector"
	"dbbackup/internal/logging"
)

// Cleanup entry outcomes reported per stored filename.
const (
	CleanupStatusDeleted      = "deleted"
	CleanupStatusKept         = "kept"
	CleanupStatusParseFailed  = "parse-failed"
	CleanupStatusDeleteFailed = "delete-failed"
	CleanupStatusListFailed   = "list-failed"
)

// CleanupEntry records the cleanup outcome for one stored filename.
type CleanupEntry struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// CleanupResult summarizes retention cleanup for one database.
type CleanupResult struct {
	Database string         `json:"database"`
	Entries  []CleanupEntry `json:"entries"`
	Deleted  int            `json:"deleted"`
	Kept     int            `json:"kept"`
	Failed   int            `json:"failed"`
}

// DatabaseResult records the outcome of backing up one database.
type DatabaseResult struct {
	Database  string         `json:"database"`
	Engine    string         `json:"engine"`
	Filename  string         `json:"filename,omitempty"`
	Size      int64          `json:"size_bytes,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Cleanup   *CleanupResult `json:"cleanup,omitempty"`
	timestamp time.Time
	err       error
}

// Err returns the failure that ended this database's backup, nil on
// success.
func (r *DatabaseResult) Err() error {
	return r.err
}

// RunResult aggregates one orchestrator run over all configured
// databases.
type RunResult struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Databases  []DatabaseResult `json:"databases"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
}

// Orchestrator drives a backup run: for every configured database it
// dumps, transforms and stores an artifact, then optionally applies
// retention cleanup. A failure for one database never aborts the loop;
// the remaining databases are still processed.
type Orchestrator struct {
	config    *Config
	logger    *logging.Logger
	naming    NamingPolicy
	pipeline  *Pipeline
	retention *RetentionPolicy

	// storage overrides adapter construction when set, for tests.
	storage StorageAdapter
	// connectorFor resolves the connector per engine, swappable in tests.
	connectorFor func(engine string) (connector.Connector, error)
	// now supplies filename timestamps, swappable in tests.
	now func() time.Time
}

// OrchestratorOption customizes orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithStorageAdapter injects a pre-built storage adapter instead of
// constructing one from configuration.
func WithStorageAdapter(adapter StorageAdapter) OrchestratorOption {
	return func(o *Orchestrator) { o.storage = adapter }
}

// WithConnectorResolver replaces engine-to-connector resolution.
func WithConnectorResolver(resolve func(engine string) (connector.Connector, error)) OrchestratorOption {
	return func(o *Orchestrator) { o.connectorFor = resolve }
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator validates the configuration and prepares the naming
// policy, transform pipeline and retention policy. All configuration
// errors surface here, before any connector or storage call.
func NewOrchestrator(config *Config, logger *logging.Logger, opts ...OrchestratorOption) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid backup configuration", err)
	}

	naming, err := NewNamingPolicy(config.DateFormat)
	if err != nil {
		return nil, err
	}

	algorithm, err := ParseCompressionType(config.CompressionAlgorithm)
	if err != nil {
		return nil, err
	}
	pipeline, err := NewPipeline(PipelineOptions{
		Compress:             config.Compress,
		CompressionAlgorithm: algorithm,
		CompressionLevel:     config.CompressionLevel,
		Encrypt:              config.Encrypt,
		Encryption:           config.Encryption,
	})
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		config:       config,
		logger:       logger,
		naming:       naming,
		pipeline:     pipeline,
		connectorFor: connector.ForEngine,
		now:          time.Now,
	}

	if config.Clean {
		o.retention, err = NewRetentionPolicy(config.Keep, naming)
		if err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run backs up every configured database in order.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}

	storage, err := o.resolveStorage(ctx)
	if err != nil {
		return nil, err
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"databases": len(o.config.Databases),
		"storage":   storage.Name(),
		"root":      storage.Root(),
		"stages":    o.pipeline.StageNames(),
	}).Info("Starting backup run")

	for _, db := range o.config.Databases {
		dbResult := o.backupDatabase(ctx, storage, db)
		if dbResult.Success {
			result.Succeeded++
		} else {
			result.Failed++
			o.logger.WithFields(map[string]interface{}{
				"database": db.Name,
				"error":    dbResult.Error,
			}).Error("Backup failed, continuing with remaining databases")
		}
		result.Databases = append(result.Databases, dbResult)
	}

	result.FinishedAt = time.Now()
	o.logger.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"duration":  result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Backup run finished")

	return result, nil
}

// resolveStorage picks the storage adapter: an injected one, the local
// output path override, or the configured backend.
func (o *Orchestrator) resolveStorage(ctx context.Context) (StorageAdapter, error) {
	if o.storage != nil {
		return o.storage, nil
	}
	if o.config.OutputPath != "" {
		return NewLocalStorage(o.config.OutputPath)
	}
	return NewStorageAdapter(ctx, o.config.Storage)
}

func (o *Orchestrator) backupDatabase(ctx context.Context, storage StorageAdapter, db connector.Database) DatabaseResult {
	start := time.Now()
	result := DatabaseResult{
		Database:  db.Name,
		Engine:    db.Engine,
		timestamp: o.now(),
	}

	fail := func(err error) DatabaseResult {
		result.Duration = time.Since(start)
		result.err = err
		result.Error = err.Error()
		return result
	}

	conn, err := o.connectorFor(db.Engine)
	if err != nil {
		return fail(NewDumpError(
			fmt.Sprintf("no connector for database %s", db.Name), err))
	}

	filename := o.naming.Filename(db.Name, o.config.Servername, conn.BaseExtension(), result.timestamp)

	artifact, err := NewArtifact(filename)
	if err != nil {
		return fail(err)
	}

	dumpStart := time.Now()
	dumpErr := conn.CreateDump(ctx, db, artifact)
	dumpSize, _ := artifact.Size()
	o.logger.LogDump(db.Name, db.Engine, dumpSize, time.Since(dumpStart), dumpErr)
	if dumpErr != nil {
		artifact.Close()
		if errors.Is(dumpErr, connector.ErrDumpToolNotFound) {
			dumpErr = errors.Join(ErrMissingTool, dumpErr)
		}
		return fail(NewDumpError(
			fmt.Sprintf("failed to dump database %s", db.Name), dumpErr))
	}

	stored, err := o.transformAndStore(ctx, storage, artifact, dumpSize)
	if err != nil {
		return fail(err)
	}

	result.Filename = stored.filename
	result.Size = stored.size
	result.Success = true

	if o.retention != nil {
		cleanup := o.cleanupDatabase(ctx, storage, db.Name, conn.BaseExtension())
		result.Cleanup = &cleanup
	}

	result.Duration = time.Since(start)
	return result
}

type storedArtifact struct {
	filename string
	size     int64
}

// transformAndStore runs the pipeline over the dumped artifact and
// writes the final artifact to storage. The pipeline owns and closes
// intermediate artifacts; this closes the final one.
func (o *Orchestrator) transformAndStore(ctx context.Context, storage StorageAdapter, artifact *Artifact, rawSize int64) (storedArtifact, error) {
	out, err := o.pipeline.Run(artifact)
	if err != nil {
		return storedArtifact{}, err
	}
	defer out.Close()

	size, err := out.Size()
	if err != nil {
		return storedArtifact{}, err
	}
	if len(o.pipeline.StageNames()) > 0 {
		o.logger.LogTransform("pipeline", out.Filename, rawSize, size, nil)
	}

	// An explicit output filename replaces the pipeline-derived name
	// entirely, suffixes included.
	stored := out.Filename
	if o.config.OutputFilename != "" {
		stored = o.config.OutputFilename
	}

	if err := out.Rewind(); err != nil {
		return storedArtifact{}, err
	}
	storeErr := storage.Write(ctx, out, stored)
	o.logger.LogStore(storage.Name(), storage.Root(), stored, size, storeErr)
	if storeErr != nil {
		return storedArtifact{}, storeErr
	}

	return storedArtifact{filename: stored, size: size}, nil
}

// cleanupDatabase applies the retention policy to the stored backups of
// one database. Entries whose name cannot be parsed are reported and
// left alone; a failed delete is reported and does not stop the rest.
func (o *Orchestrator) cleanupDatabase(ctx context.Context, storage StorageAdapter, database, baseExt string) CleanupResult {
	result := CleanupResult{Database: database}

	names, err := storage.List(ctx)
	if err != nil {
		result.Failed++
		result.Entries = append(result.Entries, CleanupEntry{
			Status: CleanupStatusListFailed,
			Error:  err.Error(),
		})
		o.logger.LogCleanupEntry(database, "", CleanupStatusListFailed, err)
		return result
	}

	decision := o.retention.Apply(database, o.config.Servername, baseExt, names)

	for name, parseErr := range decision.Malformed {
		result.Entries = append(result.Entries, CleanupEntry{
			Filename: name,
			Status:   CleanupStatusParseFailed,
			Error:    parseErr.Error(),
		})
		o.logger.LogCleanupEntry(database, name, CleanupStatusParseFailed, parseErr)
	}

	for _, name := range decision.Kept {
		result.Kept++
		o.logger.LogCleanupEntry(database, name, CleanupStatusKept, nil)
	}

	for _, name := range decision.Delete {
		if err := storage.Delete(ctx, name); err != nil {
			result.Failed++
			result.Entries = append(result.Entries, CleanupEntry{
				Filename: name,
				Status:   CleanupStatusDeleteFailed,
				Error:    err.Error(),
			})
			o.logger.LogCleanupEntry(database, name, CleanupStatusDeleteFailed, err)
			continue
		}
		result.Deleted++
		result.Entries = append(result.Entries, CleanupEntry{
			Filename: name,
			Status:   CleanupStatusDeleted,
		})
		o.logger.LogCleanupEntry(database, name, CleanupStatusDeleted, nil)
	}

	return result
}

// Cleanup runs retention cleanup only, across every configured
// database. When dryRun is set nothing is deleted; the result reports
// what would have been deleted.
func (o *Orchestrator) Cleanup(ctx context.Context, dryRun bool) ([]CleanupResult, error) {
	retention := o.retention
	if retention == nil {
		var err error
		retention, err = NewRetentionPolicy(o.config.Keep, o.naming)
		if err != nil {
			return nil, err
		}
	}

	storage, err := o.resolveStorage(ctx)
	if err != nil {
		return nil, err
	}

	names, err := storage.List(ctx)
	if err != nil {
		return nil, err
	}

	var results []CleanupResult
	for _, db := range o.config.Databases {
		conn, err := o.connectorFor(db.Engine)
		if err != nil {
			return nil, NewConfigurationError(
				fmt.Sprintf("no connector for database %s", db.Name), err)
		}

		decision := retention.Apply(db.Name, o.config.Servername, conn.BaseExtension(), names)
		result := CleanupResult{Database: db.Name}

		for name, parseErr := range decision.Malformed {
			result.Entries = append(result.Entries, CleanupEntry{
				Filename: name,
				Status:   CleanupStatusParseFailed,
				Error:    parseErr.Error(),
			})
			o.logger.LogCleanupEntry(db.Name, name, CleanupStatusParseFailed, parseErr)
		}
		result.Kept = len(decision.Kept)

		for _, name := range decision.Delete {
			if dryRun {
				result.Deleted++
				result.Entries = append(result.Entries, CleanupEntry{
					Filename: name,
					Status:   CleanupStatusDeleted,
				})
				continue
			}
			if err := storage.Delete(ctx, name); err != nil {
				result.Failed++
				result.Entries = append(result.Entries, CleanupEntry{
					Filename: name,
					Status:   CleanupStatusDeleteFailed,
					Error:    err.Error(),
				})
				o.logger.LogCleanupEntry(db.Name, name, CleanupStatusDeleteFailed, err)
				continue
			}
			result.Deleted++
			result.Entries = append(result.Entries, CleanupEntry{
				Filename: name,
				Status:   CleanupStatusDeleted,
			})
			o.logger.LogCleanupEntry(db.Name, name, CleanupStatusDeleted, nil)
		}

		results = append(results, result)
	}

	return results, nil
}
