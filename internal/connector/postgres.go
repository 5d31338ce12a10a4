package connector

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// PostgresConnector dumps PostgreSQL databases via pg_dump in custom
// format, which pg_restore can selectively restore from.
type PostgresConnector struct{}

// NewPostgresConnector creates a PostgreSQL connector.
func NewPostgresConnector() *PostgresConnector {
	return &PostgresConnector{}
}

func (c *PostgresConnector) Engine() Engine { return EnginePostgres }

func (c *PostgresConnector) BaseExtension() string { return "dump" }

func (c *PostgresConnector) CreateDump(ctx context.Context, db Database, out io.Writer) error {
	args := []string{
		"--host=" + db.Host,
		"--port=" + strconv.Itoa(db.Port),
		"--username=" + db.User,
		"--format=custom",
		"--no-password",
		db.Name,
	}

	cmd := exec.CommandContext(ctx, "pg_dump", args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+db.Password)
	cmd.Stdout = out

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return dumpError("pg_dump", db.Name, err, stderr.Bytes())
	}
	return nil
}
