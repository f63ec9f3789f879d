package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/tlmlog/internal/core"
)

// Load builds the configuration: struct defaults first, then the YAML file
// at path when path is non-empty, then environment variables. The result is
// validated. Validation failures are marked core.ErrInvalidConfig.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	v := reflect.ValueOf(cfg).Elem()

	if err := loadStruct(v, defaultTag); err != nil {
		return nil, errors.Wrap(err, "config defaults")
	}

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := loadStruct(v, envTag); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "config load"), core.ErrInvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation")
	}

	return cfg, nil
}

// loadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current value; unknown keys are rejected.
func loadFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "open config file"), core.ErrInvalidConfig)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return errors.Mark(errors.Wrapf(err, "parse config file %s", path), core.ErrInvalidConfig)
	}
	return nil
}

// valueSource returns the string value for a field and whether one was found.
type valueSource func(field reflect.StructField) (string, bool)

func defaultTag(field reflect.StructField) (string, bool) {
	return field.Tag.Lookup("default")
}

func envTag(field reflect.StructField) (string, bool) {
	name := field.Tag.Get("env")
	if name == "" {
		return "", false
	}
	value := os.Getenv(name)
	return value, value != ""
}

// loadStruct recursively populates struct fields from src.
func loadStruct(v reflect.Value, src valueSource) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, src); err != nil {
				return err
			}
			continue
		}

		value, ok := src(field)
		if !ok || value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return errors.Wrapf(err, "invalid value for %s=%q", fieldName(field), value)
		}
	}

	return nil
}

func fieldName(field reflect.StructField) string {
	if env := field.Tag.Get("env"); env != "" {
		return env
	}
	return field.Name
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return errors.Wrap(err, "invalid duration")
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return errors.Wrap(err, "invalid integer")
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrap(err, "invalid boolean")
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return errors.Newf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		// Split comma-separated values, trim whitespace
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return errors.Newf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Ingest validation
	opts := c.Ingest.Options()
	if err := opts.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("TLM_SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "TLM_SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "TLM_SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "TLM_SERVER_REQUEST_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "TLM_RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.Burst <= 0 {
		errs = append(errs, "TLM_RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "TLM_REQUIRE_API_KEY is true but TLM_API_KEYS is empty; configure at least one key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("TLM_LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("TLM_LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return errors.Mark(
			errors.Newf("validation failed:\n  - %s", strings.Join(errs, "\n  - ")),
			core.ErrInvalidConfig)
	}

	return nil
}

// String returns a compact representation of the config for logging.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Ingest: {Root: %q, Align: %q, Resample: %v, Interval: %s, Workers: %d}, ",
		c.Ingest.Root, c.Ingest.Align, c.Ingest.Resample, c.Ingest.ResampleInterval, c.Ingest.Workers))
	b.WriteString(fmt.Sprintf("Server: {Addr: %q}, ", c.Server.Addr()))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
