// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read by Load when no path is given. It may be absent.
const DefaultPath = "config.yaml"

// Environment names accepted in Settings.Environment.
const (
	EnvDev  = "DEV"
	EnvProd = "PROD"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid settings")

// Settings are the service's runtime settings.
type Settings struct {
	Debug       bool     `yaml:"debug"`
	Environment string   `yaml:"environment"`
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	MaxWorkers  int      `yaml:"max_workers"`
	CORSOrigins []string `yaml:"cors_origins"`

	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit    float64 `yaml:"rate_limit"`
	RateBurst    int     `yaml:"rate_burst"`
	MaxBodyBytes int64   `yaml:"max_body_bytes"`

	// RequestTimeout bounds each request; zero disables the bound.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the settings used before any file or environment
// override is applied.
func Default() Settings {
	return Settings{
		Environment:    EnvDev,
		Name:           "ML API",
		Version:        buildVersion(),
		Host:           "0.0.0.0",
		Port:           8000,
		CORSOrigins:    []string{"*"},
		RateBurst:      20,
		MaxBodyBytes:   32 << 20,
		RequestTimeout: 30 * time.Second,
	}
}

// Addr is the listen address.
func (s Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// APIURL is the base URL clients use to reach the service.
func (s Settings) APIURL() string {
	return "http://" + s.Addr()
}

// IsProd reports whether the service runs in production mode.
func (s Settings) IsProd() bool { return s.Environment == EnvProd }

// Load reads settings from path, then applies environment overrides.
func Load(path string) (Settings, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (Settings, error) {
	s := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := s.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, err
		}
	}

	if err := s.applyEnv(lookup); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	parse := func(name string, set func(string) error) {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		if err := set(strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", name, err))
		}
	}

	parse("DEBUG", func(v string) (err error) {
		s.Debug, err = strconv.ParseBool(v)
		return err
	})
	str("ENVIRONMENT", &s.Environment)
	s.Environment = strings.ToUpper(s.Environment)
	str("API_NAME", &s.Name)
	str("API_VERSION", &s.Version)
	str("API_HOST", &s.Host)
	parse("API_PORT", func(v string) (err error) {
		s.Port, err = strconv.Atoi(v)
		return err
	})
	parse("MAX_WORKERS", func(v string) (err error) {
		s.MaxWorkers, err = strconv.Atoi(v)
		return err
	})
	parse("CORS_ORIGINS", func(v string) error {
		s.CORSOrigins = nil
		for o := range strings.SplitSeq(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				s.CORSOrigins = append(s.CORSOrigins, o)
			}
		}
		return nil
	})
	parse("RATE_LIMIT", func(v string) (err error) {
		s.RateLimit, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("RATE_BURST", func(v string) (err error) {
		s.RateBurst, err = strconv.Atoi(v)
		return err
	})
	parse("MAX_BODY_BYTES", func(v string) (err error) {
		s.MaxBodyBytes, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse("REQUEST_TIMEOUT", func(v string) (err error) {
		s.RequestTimeout, err = time.ParseDuration(v)
		return err
	})

	return errors.Join(errs...)
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	var errs []error
	switch s.Environment {
	case EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("%w: environment %q must be %s or %s", ErrInvalid, s.Environment, EnvDev, EnvProd))
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: port %d out of range", ErrInvalid, s.Port))
	}
	if s.MaxWorkers < 0 {
		errs = append(errs, fmt.Errorf("%w: max_workers must not be negative", ErrInvalid))
	}
	if s.RateLimit < 0 || s.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("%w: rate limit must not be negative", ErrInvalid))
	}
	if s.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: request_timeout must not be negative", ErrInvalid))
	}
	if s.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("%w: max_body_bytes must not be negative", ErrInvalid))
	}
	return errors.Join(errs...)
}

// buildVersion reports the main module version stamped into the binary,
// falling back to 0.0.0 for development builds.
func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return strings.TrimPrefix(v, "v")
		}
	}
	return "0.0.0"
}
