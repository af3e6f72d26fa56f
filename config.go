package ddlgrator

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Canonical driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pg"
	DriverMySQL    = "mysql"
)

// DefaultConfigFile is read when no configuration path is given.
const DefaultConfigFile = "./database.toml"

// ConfigEnv names the environment variable holding a configuration path.
const ConfigEnv = "DDLGRATOR_CONFIG"

// Config holds the settings of a ddlgrator project.
type Config struct {
	Database   DatabaseConfig   `toml:"Database" yaml:"database"`
	Migrations MigrationsConfig `toml:"Migrations" yaml:"migrations"`
}

// DatabaseConfig describes the target database.
type DatabaseConfig struct {
	// Driver is "sqlite3", "pg" or "mysql". "sqlite", "postgres" and
	// "postgresql" are accepted as aliases.
	Driver string `toml:"Driver" yaml:"driver"`

	// DSN is a complete connection string. When set, the fields below
	// that describe the connection are ignored.
	DSN string `toml:"DSN" yaml:"dsn"`

	// Name is the database name, or the file path for sqlite3.
	Name     string `toml:"Name" yaml:"name"`
	Host     string `toml:"Host" yaml:"host"`
	Port     int    `toml:"Port" yaml:"port"`
	User     string `toml:"User" yaml:"user"`
	Password string `toml:"Password" yaml:"password"`
	SSLMode  string `toml:"SSLMode" yaml:"sslmode"`

	// LedgerTable records applied migrations. It may be schema qualified
	// for PostgreSQL.
	LedgerTable string `toml:"LedgerTable" yaml:"ledger_table"`

	// CurrentSchema is used for PostgreSQL if LedgerTable doesn't include a dot.
	CurrentSchema string `toml:"CurrentSchema" yaml:"current_schema"`
}

// MigrationsConfig controls how migrations are loaded and compiled.
type MigrationsConfig struct {
	Dir    string `toml:"Dir" yaml:"dir"`
	Policy Policy `toml:"Policy" yaml:"policy"`

	// IgnoreHashes disables comparing the ledger hash of applied migrations
	// with the hash of their files.
	IgnoreHashes bool `toml:"IgnoreHashes" yaml:"ignore_hashes"`

	// VerifyFingerprints rejects files whose Hash does not match their
	// operations.
	VerifyFingerprints bool `toml:"VerifyFingerprints" yaml:"verify_fingerprints"`

	// Newline is the newline style of scaffolded files ("LF", "CR", or "CRLF").
	Newline string `toml:"Newline" yaml:"newline"`
}

// DefaultConfig provides default values for configuration.
var DefaultConfig = Config{
	Database: DatabaseConfig{
		Driver:      DriverSQLite,
		Name:        "db.sqlite3",
		LedgerTable: "_ddlgrator_migrations",
	},
	Migrations: MigrationsConfig{
		Dir:    "./migrations/",
		Policy: FailFast,
	},
}

// LoadConfig reads a TOML or YAML configuration file over DefaultConfig. The
// format follows the extension; anything but .yaml and .yml is read as TOML.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		_, err = toml.Decode(string(data), &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if _, err := cfg.Database.DriverName(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills empty settings from DefaultConfig.
func (c *Config) ApplyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultConfig.Database.Driver
	}
	if c.Database.LedgerTable == "" {
		c.Database.LedgerTable = DefaultConfig.Database.LedgerTable
	}
	if c.Migrations.Dir == "" {
		c.Migrations.Dir = DefaultConfig.Migrations.Dir
	}
}

// LoadOptions returns the loader options implied by the configuration.
func (c MigrationsConfig) LoadOptions() []LoadOption {
	if c.VerifyFingerprints {
		return []LoadOption{VerifyFingerprints()}
	}
	return nil
}

// DriverName returns the canonical name of the configured driver.
func (d DatabaseConfig) DriverName() (string, error) {
	switch strings.ToLower(d.Driver) {
	case "sqlite3", "sqlite":
		return DriverSQLite, nil
	case "pg", "postgres", "postgresql":
		return DriverPostgres, nil
	case "mysql":
		return DriverMySQL, nil
	}
	return "", fmt.Errorf("database driver %q is not supported. Must be one of: sqlite3, pg, mysql", d.Driver)
}

// DataSource returns the connection string for the configured database.
//
// For mysql it returns a go-sql-driver/mysql DSN. The runner does not
// apply migrations to MySQL; the DSN is for library callers that compile
// with the mysql dialect and execute the scripts on their own connection.
func (d DatabaseConfig) DataSource() (string, error) {
	if d.DSN != "" {
		return d.DSN, nil
	}
	driver, err := d.DriverName()
	if err != nil {
		return "", err
	}
	switch driver {
	case DriverSQLite:
		if d.Name == "" {
			return "", errors.New("sqlite3 needs a database file name")
		}
		return d.Name, nil
	case DriverPostgres:
		u := url.URL{Scheme: "postgres", Host: d.hostPort(5432), Path: "/" + d.Name}
		if d.User != "" {
			if d.Password != "" {
				u.User = url.UserPassword(d.User, d.Password)
			} else {
				u.User = url.User(d.User)
			}
		}
		if d.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
		}
		return u.String(), nil
	default:
		auth := d.User
		if d.Password != "" {
			auth += ":" + d.Password
		}
		return fmt.Sprintf("%s@tcp(%s)/%s", auth, d.hostPort(3306), d.Name), nil
	}
}

func (d DatabaseConfig) hostPort(defaultPort int) string {
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	port := d.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
