// Package config loads envtree command-line settings from a file in the
// workspace, with ENVTREE_* environment variables taking precedence.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Find when a directory has no settings file
var ErrNotFound = errors.New("envtree settings file not found")

// FileNames are the settings files Find looks for, in order
var FileNames = []string{".envtree.yaml", ".envtree.yml", ".envtree.toml", ".envtree.json"}

// Output formats
const (
	FormatEnv    = "env"
	FormatJSON   = "json"
	FormatReport = "report"
)

// LookupFunc reads an environment variable
type LookupFunc func(key string) (string, bool)

// Config holds envtree command-line settings
type Config struct {
	Environment string `yaml:"environment" toml:"environment" json:"environment" env:"ENVTREE_ENV" validate:"omitempty,excludesall=/\\"`
	Prefix      string `yaml:"prefix" toml:"prefix" json:"prefix" env:"ENVTREE_PREFIX"`
	Verbose     bool   `yaml:"verbose" toml:"verbose" json:"verbose" env:"ENVTREE_VERBOSE"`
	Quiet       bool   `yaml:"quiet" toml:"quiet" json:"quiet" env:"ENVTREE_QUIET"`
	Format      string `yaml:"format" toml:"format" json:"format" env:"ENVTREE_FORMAT" validate:"oneof=env json report"`

	// Source is the file the settings came from, empty for defaults
	Source string `yaml:"-" toml:"-" json:"-"`
}

// Default returns the settings used when no file exists
func Default() *Config {
	return &Config{Format: FormatEnv}
}

// FromEnv returns the defaults with environment overrides applied
func FromEnv(lookup LookupFunc) (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg, lookup)
	return cfg, cfg.Validate()
}

// Load reads settings from path, then applies environment overrides
func Load(path string, lookup LookupFunc) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := cfg.decode(path, data); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Source = path

	applyEnvOverrides(cfg, lookup)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Find returns the first settings file present in dir
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", ErrNotFound
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance reports field errors by their settings-file key
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field values
func (c *Config) Validate() error {
	err := validatorInstance().Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("unknown %s %q (want one of: %s)", fe.Field(), fe.Value(), fe.Param()))
		case "excludesall":
			msgs = append(msgs, fmt.Sprintf("%s %q must not contain a path separator", fe.Field(), fe.Value()))
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// decode picks the format from the file extension and rejects unknown keys
func (c *Config) decode(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(c)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

// applyEnvOverrides sets every field with an env tag whose variable is present
func applyEnvOverrides(cfg *Config, lookup LookupFunc) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		value, ok := lookup(key)
		if !ok {
			continue
		}
		setField(v.Field(i), value)
	}
}

func setField(field reflect.Value, value string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, ok := parseBool(value); ok {
			field.SetBool(b)
		}
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off", "":
		return false, true
	}
	return false, false
}
