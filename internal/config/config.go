// Package config loads v2util's own settings: a YAML file, then V2UTIL_*
// environment variables, then command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "/etc/v2util/settings.yaml"

type Settings struct {
	V2RayConfig string   `yaml:"v2ray_config"`
	Network     string   `yaml:"network"`
	AcmeHome    string   `yaml:"acme_home"`
	WebServices []string `yaml:"web_services"`
	IPServices  []string `yaml:"ip_services"`
	Language    string   `yaml:"language"`
	LogLevel    string   `yaml:"log_level"`
	NoColor     bool     `yaml:"no_color"`
}

func Defaults() Settings {
	return Settings{
		V2RayConfig: "/etc/v2ray/config.json",
		Network:     "ipv4",
		AcmeHome:    "/root/.acme.sh",
		WebServices: []string{"nginx", "httpd", "apache2"},
		IPServices:  []string{"http://api.ipify.org", "http://icanhazip.com"},
		LogLevel:    "warn",
	}
}

// Load reads path over the defaults. A missing file is only an error when
// the caller asked for that file explicitly.
func Load(path string, explicit bool) (Settings, error) {
	s := Defaults()
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return s, nil
		}
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv overrides fields from V2UTIL_* variables and honors NO_COLOR.
func (s *Settings) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&s.V2RayConfig, "V2UTIL_V2RAY_CONFIG")
	set(&s.Network, "V2UTIL_NETWORK")
	set(&s.AcmeHome, "V2UTIL_ACME_HOME")
	set(&s.Language, "V2UTIL_LANG")
	set(&s.LogLevel, "V2UTIL_LOG_LEVEL")
	if getenv("NO_COLOR") != "" {
		s.NoColor = true
	}
}

func (s Settings) Validate() error {
	switch s.Network {
	case "ipv4", "ipv6":
	default:
		return fmt.Errorf("invalid network %q. use ipv4 or ipv6", s.Network)
	}
	if len(s.IPServices) < 2 {
		return errors.New("ip_services needs a primary and a fallback URL")
	}
	if strings.TrimSpace(s.V2RayConfig) == "" {
		return errors.New("v2ray_config is required")
	}
	if strings.TrimSpace(s.AcmeHome) == "" {
		return errors.New("acme_home is required")
	}
	return nil
}
