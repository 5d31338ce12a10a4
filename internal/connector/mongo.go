package connector

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
)

// MongoConnector dumps MongoDB databases via mongodump's archive mode,
// which emits a single stream instead of a dump directory.
type MongoConnector struct{}

// NewMongoConnector creates a MongoDB connector.
func NewMongoConnector() *MongoConnector {
	return &MongoConnector{}
}

func (c *MongoConnector) Engine() Engine { return EngineMongo }

func (c *MongoConnector) BaseExtension() string { return "archive" }

func (c *MongoConnector) CreateDump(ctx context.Context, db Database, out io.Writer) error {
	args := []string{
		"--host=" + db.Host,
		"--port=" + strconv.Itoa(db.Port),
		"--db=" + db.Name,
		"--archive",
	}
	if db.User != "" {
		args = append(args,
			"--username="+db.User,
			"--password="+db.Password,
			"--authenticationDatabase=admin",
		)
	}

	cmd := exec.CommandContext(ctx, "mongodump", args...)
	cmd.Stdout = out

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return dumpError("mongodump", db.Name, err, stderr.Bytes())
	}
	return nil
}
