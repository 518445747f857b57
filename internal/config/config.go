// Package config provides functionality for managing configuration
// options for the application using command-line flags, environment
// variables, and an optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Backend names for the persistent store.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Options holds the configuration values for the application.
type Options struct {
	// DataDir is where the file backend keeps its per-key files.
	DataDir string `json:"data_dir"`

	// Backend selects the persistent store: "file" or "sqlite".
	Backend string `json:"backend"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `json:"sqlite_path"`

	// LogLevel sets the zap logging level.
	LogLevel string `json:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.DataDir, "data", "data", "data directory for the file backend")
	flag.StringVar(&options.Backend, "backend", BackendFile, "storage backend: file | sqlite")
	flag.StringVar(&options.SQLitePath, "sqlite", "data/sportmate.db", "sqlite database path")
	flag.StringVar(&options.LogLevel, "log", "info", "log level")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
}

// Parse parses the command-line flags, .env file, environment
// variables, and optional config file, and returns a pointer to the
// Options struct containing the resolved configuration values.
func Parse() *Options {
	flag.Parse()

	// A .env file, when present, feeds the environment lookups below.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		options.DataDir = dataDir
	}
	if backend := os.Getenv("STORAGE_BACKEND"); backend != "" {
		options.Backend = backend
	}
	if sqlitePath := os.Getenv("SQLITE_PATH"); sqlitePath != "" {
		options.SQLitePath = sqlitePath
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	return options
}
