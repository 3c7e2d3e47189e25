// Package config provides centralized configuration for the ENADE pipeline.
//
// Settings come from, in increasing precedence: the defaults in Default, an
// optional YAML file, and ENADE_* environment variables. Environment names
// follow the YAML path: output.create_table is ENADE_OUTPUT_CREATE_TABLE.
// The result is validated on load to fail fast on misconfiguration.
package config

import (
	"path/filepath"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ENADE"

// Config holds all application configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Dimensions DimensionsConfig `yaml:"dimensions"`
	Output     OutputConfig     `yaml:"output"`
	Database   DatabaseConfig   `yaml:"database"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SourceConfig names the yearly microdata files and how to read them.
type SourceConfig struct {
	// Dir is the directory relative file names are resolved against.
	Dir string `yaml:"dir"`

	// Files lists the yearly files in processing order. When empty, every
	// ENADE_* file in Dir is processed in name order.
	Files []string `yaml:"files" validate:"dive,required"`

	// Encoding is the text encoding of the files (default: utf-8)
	Encoding string `yaml:"encoding"`

	// Compression is infer, gzip or none (default: infer)
	Compression string `yaml:"compression" validate:"oneof=infer gzip none"`

	// Separator is the field separator (default: ;)
	Separator string `yaml:"separator" validate:"len=1"`

	// Decimal overrides the score decimal separator of every file. Empty
	// uses the default of each file's year.
	Decimal string `yaml:"decimal" validate:"omitempty,decimal"`

	// Decimals overrides the decimal separator per file base name.
	Decimals map[string]string `yaml:"decimals" validate:"dive,decimal"`
}

// DimensionsConfig names the dimension tables.
type DimensionsConfig struct {
	// Groups is the CO_GRUPO/NM_GRUPO table (optional)
	Groups string `yaml:"groups"`

	// Areas is the CO_CURSO/CO_AREA/NM_AREA table (optional)
	Areas string `yaml:"areas"`

	// Institutions lists the eligible CO_IES codes. Empty uses the built-in set.
	Institutions string `yaml:"institutions"`

	// Separator is the field separator of the dimension files (default: ,)
	Separator string `yaml:"separator" validate:"len=1"`

	// Encoding is the text encoding of the dimension files (default: utf-8)
	Encoding string `yaml:"encoding"`
}

// OutputConfig controls where the consolidated dataset is written.
type OutputConfig struct {
	// Format is csv, parquet, xlsx or postgres (default: csv)
	Format string `yaml:"format" validate:"oneof=csv parquet xlsx postgres"`

	// Path is the output file for file formats (default: output/enade.<ext>)
	Path string `yaml:"path"`

	// Table receives the dataset for the postgres format (default: enade_evaluations)
	Table string `yaml:"table"`

	// CreateTable creates Table if it does not exist (default: false)
	CreateTable bool `yaml:"create_table" split_words:"true"`

	// Truncate empties Table before loading (default: true)
	Truncate bool `yaml:"truncate"`
}

// DatabaseConfig holds database connection settings for the postgres format.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string, required for the postgres format
	URL string `yaml:"url"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `yaml:"max_conns" split_words:"true" validate:"gt=0"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `yaml:"min_conns" split_words:"true" validate:"gte=0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" split_words:"true"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" split_words:"true"`
}

// PipelineConfig tunes the run driver.
type PipelineConfig struct {
	// Workers is how many files are processed at once (default: 1)
	Workers int `yaml:"workers" validate:"gte=1,lte=64"`

	// ContinueOnError skips files that fail instead of aborting the run (default: false)
	ContinueOnError bool `yaml:"continue_on_error" split_words:"true"`

	// Timeout bounds a whole run; zero means no limit (default: 0)
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" validate:"gte=1,lte=65535"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `yaml:"read_timeout" split_words:"true" validate:"gte=0"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true" validate:"gte=0"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" split_words:"true"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `yaml:"request_timeout" split_words:"true" validate:"gt=0"`

	// MaxConcurrentRuns bounds runs started over HTTP (default: 2)
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" split_words:"true" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Dir:         "data",
			Encoding:    "utf-8",
			Compression: "infer",
			Separator:   ";",
		},
		Dimensions: DimensionsConfig{
			Separator: ",",
			Encoding:  "utf-8",
		},
		Output: OutputConfig{
			Format:   "csv",
			Table:    "enade_evaluations",
			Truncate: true,
		},
		Database: DatabaseConfig{
			MaxConns:        4,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
		Pipeline: PipelineConfig{
			Workers: 1,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			RequestTimeout:    60 * time.Second,
			MaxConcurrentRuns: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Resolve returns name joined to Dir unless it is already absolute.
func (c *SourceConfig) Resolve(name string) string {
	if filepath.IsAbs(name) || c.Dir == "" {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// DecimalFor returns the configured decimal separator for a source file, or
// zero to use the default of the file's year.
func (c *SourceConfig) DecimalFor(path string) rune {
	if d, ok := c.Decimals[filepath.Base(path)]; ok && d != "" {
		return rune(d[0])
	}
	if c.Decimal != "" {
		return rune(c.Decimal[0])
	}
	return 0
}

// PathFor returns the output path, defaulting to output/enade plus ext.
func (c *OutputConfig) PathFor(ext string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join("output", "enade"+ext)
}
