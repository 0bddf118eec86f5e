// Package config loads the YAML configuration of a graph session.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"viki/vikigraph/internal/wiki"
)

// EnvVar overrides the config file location.
const EnvVar = "VIKI_CONFIG"

// FileName is looked up in the working directory and its parents.
const FileName = ".viki.yaml"

var validate = validator.New()

// Source is a configured content source.
type Source struct {
	Title      string `yaml:"title" validate:"required"`
	APIURL     string `yaml:"api_url" validate:"omitempty,url"`
	ContentURL string `yaml:"content_url" validate:"required,contains=$1"`
	LogoURL    string `yaml:"logo_url" validate:"omitempty,url"`
	Searchable bool   `yaml:"searchable"`
}

// Config is the full configuration.
type Config struct {
	// ServerURL is the server hosting the local wiki.
	ServerURL string `yaml:"server_url" validate:"omitempty,url"`
	// Local is the local wiki. Its title is always "THIS WIKI".
	Local   Source   `yaml:"local"`
	Sources []Source `yaml:"sources" validate:"dive"`

	HiddenCategories     []string `yaml:"hidden_categories"`
	SecondOrderLinks     bool     `yaml:"second_order_links"`
	// ElaborationThreshold is the reference count above which a full
	// elaboration asks first. 0 means the default of 50; -1 never asks.
	ElaborationThreshold int      `yaml:"elaboration_threshold" validate:"min=-1"`

	NamespaceTimeout  time.Duration `yaml:"namespace_timeout" validate:"min=0"`
	RequestTimeout    time.Duration `yaml:"request_timeout" validate:"min=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"min=0"`
	Burst             int           `yaml:"burst" validate:"min=0"`
	UserAgent         string        `yaml:"user_agent"`

	TitleTruncate int `yaml:"title_truncate" validate:"min=1"`
	URLTruncate   int `yaml:"url_truncate" validate:"min=1"`

	// OfflineDB serves lookups from a SQLite snapshot instead of HTTP.
	OfflineDB string `yaml:"offline_db"`

	// TraceExporter sends engine spans to "stdout" or an "otlp" collector.
	TraceExporter string `yaml:"trace_exporter" validate:"omitempty,oneof=none stdout otlp"`
	OTLPEndpoint  string `yaml:"otlp_endpoint" validate:"omitempty,hostname_port"`
	OTLPInsecure  bool   `yaml:"otlp_insecure"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		ServerURL: "http://localhost",
		Local: Source{
			Title:      wiki.LocalTitle,
			APIURL:     "http://localhost/w/api.php",
			ContentURL: "http://localhost/wiki/$1",
			Searchable: true,
		},
		ElaborationThreshold: 50,
		NamespaceTimeout:     5 * time.Second,
		RequestTimeout:       30 * time.Second,
		RequestsPerSecond:    10,
		Burst:                5,
		UserAgent:            "viki/1.0",
		TitleTruncate:        50,
		URLTruncate:          20,
	}
}

// Load reads the configuration file at path on top of the defaults. An
// empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.OfflineDB != "" && !filepath.IsAbs(cfg.OfflineDB) {
		cfg.OfflineDB = filepath.Join(filepath.Dir(path), cfg.OfflineDB)
	}
	return cfg, nil
}

// Decode parses YAML strictly on top of the defaults and validates the result.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Local.Title = wiki.LocalTitle
	cfg.Local.Searchable = true
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and that source titles are unique.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := map[string]bool{wiki.LocalTitle: true}
	for _, s := range c.Sources {
		if seen[s.Title] {
			return fmt.Errorf("invalid config: duplicate source title %q", s.Title)
		}
		seen[s.Title] = true
	}
	return nil
}

// Registry builds the source registry: the local wiki first, then the
// configured sources in order.
func (c *Config) Registry() *wiki.Registry {
	reg := wiki.NewRegistry(c.ServerURL, c.Local.toSource())
	for _, s := range c.Sources {
		reg.Add(s.toSource())
	}
	return reg
}

func (s Source) toSource() *wiki.Source {
	return &wiki.Source{
		Title:      s.Title,
		APIURL:     s.APIURL,
		ContentURL: s.ContentURL,
		LogoURL:    s.LogoURL,
		Searchable: s.Searchable,
	}
}

// Discover finds the config file using priority: env > flag > walk-up > XDG
// fallback. It returns "" when no file exists, meaning defaults apply.
func Discover(flagPath string) (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv(EnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	// 2. CLI flag
	if flagPath != "" {
		if _, err := os.Stat(flagPath); err == nil {
			return flagPath, nil
		}
		return "", fmt.Errorf("config not found at --config path: %s", flagPath)
	}

	// 3. Walk up from CWD
	if dir, err := os.Getwd(); err == nil {
		for {
			candidate := filepath.Join(dir, FileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 4. XDG fallback
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "viki", "config.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}
	return "", nil
}

// SplitTitles splits a delimited list of page titles, dropping blanks.
func SplitTitles(list, delimiter string) []string {
	if delimiter == "" {
		delimiter = ","
	}
	var out []string
	for _, t := range strings.Split(list, delimiter) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
