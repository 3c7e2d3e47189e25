package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// PathEnv names the config file when no path is passed to Load.
const PathEnv = "ENADE_CONFIG"

// Load builds the configuration from defaults, the YAML file at path (or
// $ENADE_CONFIG when path is empty; no file is fine), and ENADE_* environment
// variables, then validates the result. DATABASE_URL is accepted when
// ENADE_DATABASE_URL and the file leave the URL empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current value.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("decimal", isDecimal)
	return v
}

func isDecimal(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "." || s == ","
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, formatFieldError(fe))
		}
	}

	if c.Source.Dir == "" && len(c.Source.Files) == 0 {
		errs = append(errs, "source.dir or source.files is required")
	}
	if c.Output.Format == "postgres" && c.Database.URL == "" {
		errs = append(errs, "database.url is required for the postgres output format")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("database.max_conns (%d) must be >= database.min_conns (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Source.Separator == c.Source.Decimal {
		errs = append(errs, fmt.Sprintf("source.separator and source.decimal must differ (both %q)", c.Source.Separator))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s (%q) must be one of: %s", field, fe.Value(), fe.Param())
	case "decimal":
		return fmt.Sprintf(`%s (%q) must be "." or ","`, field, fe.Value())
	case "len":
		return fmt.Sprintf("%s (%q) must be exactly %s character", field, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s (%v) fails %s=%s", field, fe.Value(), fe.Tag(), fe.Param())
	}
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Source: {Dir: %q, Files: %d, Encoding: %q, Compression: %q}, ",
		c.Source.Dir, len(c.Source.Files), c.Source.Encoding, c.Source.Compression))
	b.WriteString(fmt.Sprintf("Dimensions: {Groups: %q, Areas: %q, Institutions: %q}, ",
		c.Dimensions.Groups, c.Dimensions.Areas, c.Dimensions.Institutions))
	b.WriteString(fmt.Sprintf("Output: {Format: %q, Path: %q, Table: %q}, ",
		c.Output.Format, c.Output.Path, c.Output.Table))
	url := ""
	if c.Database.URL != "" {
		url = "[MASKED]"
	}
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		url, c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Pipeline: {Workers: %d, ContinueOnError: %v}, ",
		c.Pipeline.Workers, c.Pipeline.ContinueOnError))
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
