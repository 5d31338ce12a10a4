// Package connector shells out to the native dump client of each
// supported database engine and streams the resulting dump.
package connector

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Engine identifies a supported database engine.
type Engine string

const (
	EngineMySQL    Engine = "mysql"
	EnginePostgres Engine = "postgres"
	EngineMongo    Engine = "mongodb"
)

// ParseEngine normalizes a configured engine name, accepting the common
// aliases seen in connection URLs.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql", "mariadb":
		return EngineMySQL, nil
	case "postgres", "postgresql", "pgsql":
		return EnginePostgres, nil
	case "mongodb", "mongo":
		return EngineMongo, nil
	default:
		return "", fmt.Errorf("unsupported database engine: %s", s)
	}
}

// Database describes one database to back up.
type Database struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Engine   string `yaml:"engine" mapstructure:"engine"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Connector produces a raw dump for one engine family.
type Connector interface {
	// Engine reports which engine family the connector serves.
	Engine() Engine
	// BaseExtension is the filename extension of a raw dump, without
	// the leading dot.
	BaseExtension() string
	// CreateDump streams a dump of db into out. The dump tool's stderr
	// is captured into the returned error on failure.
	CreateDump(ctx context.Context, db Database, out io.Writer) error
}

var registry = map[Engine]func() Connector{
	EngineMySQL:    func() Connector { return NewMySQLConnector() },
	EnginePostgres: func() Connector { return NewPostgresConnector() },
	EngineMongo:    func() Connector { return NewMongoConnector() },
}

// ForEngine returns a connector for the named engine.
func ForEngine(engine string) (Connector, error) {
	parsed, err := ParseEngine(engine)
	if err != nil {
		return nil, err
	}
	factory, ok := registry[parsed]
	if !ok {
		return nil, fmt.Errorf("no connector registered for engine: %s", parsed)
	}
	return factory(), nil
}

// SupportedEngines lists the engines a connector exists for.
func SupportedEngines() []Engine {
	return []Engine{EngineMySQL, EnginePostgres, EngineMongo}
}
