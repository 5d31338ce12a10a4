package connector

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// ErrDumpToolNotFound reports that the engine's dump client is not
// installed on PATH.
var ErrDumpToolNotFound = errors.New("dump tool not found")

const preflightTimeout = 10 * time.Second

// MySQLConnector dumps MySQL and MariaDB databases via mysqldump.
type MySQLConnector struct {
	// open is swappable so tests can inject a mocked *sql.DB.
	open func(driver, dsn string) (*sql.DB, error)
}

// NewMySQLConnector creates a MySQL connector.
func NewMySQLConnector() *MySQLConnector {
	return &MySQLConnector{open: sql.Open}
}

func (c *MySQLConnector) Engine() Engine { return EngineMySQL }

func (c *MySQLConnector) BaseExtension() string { return "sql" }

// Preflight verifies the server is reachable and the credentials work
// before mysqldump is launched, so misconfiguration surfaces as a clear
// connection error rather than a tool exit code.
func (c *MySQLConnector) Preflight(ctx context.Context, db Database) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%s",
		db.User, db.Password, db.Host, db.Port, db.Name, preflightTimeout)
	conn, err := c.open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open connection to %s:%d: %w", db.Host, db.Port, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach mysql server %s:%d: %w", db.Host, db.Port, err)
	}
	return nil
}

func (c *MySQLConnector) CreateDump(ctx context.Context, db Database, out io.Writer) error {
	if err := c.Preflight(ctx, db); err != nil {
		return err
	}

	args := []string{
		"--host=" + db.Host,
		"--port=" + strconv.Itoa(db.Port),
		"--user=" + db.User,
		"--single-transaction",
		"--routines",
		"--triggers",
		db.Name,
	}

	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+db.Password)
	cmd.Stdout = out

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return dumpError("mysqldump", db.Name, err, stderr.Bytes())
	}
	return nil
}

// dumpError classifies a dump client failure, distinguishing a missing
// tool from a failed run.
func dumpError(tool, database string, err error, stderr []byte) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%s: %w", tool, ErrDumpToolNotFound)
	}
	msg := bytes.TrimSpace(stderr)
	if len(msg) > 0 {
		return fmt.Errorf("%s failed for %s: %w: %s", tool, database, err, msg)
	}
	return fmt.Errorf("%s failed for %s: %w", tool, database, err)
}
