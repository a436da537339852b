package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingDefaultFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(s, Defaults()) {
		t.Fatalf("expected defaults, got %+v", s)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true); err == nil {
		t.Fatal("expected error for explicit missing settings file")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := "network: ipv6\nv2ray_config: /usr/local/etc/v2ray/config.json\nweb_services: [caddy]\nlanguage: zh\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Network != "ipv6" || s.V2RayConfig != "/usr/local/etc/v2ray/config.json" || s.Language != "zh" {
		t.Fatalf("unexpected settings %+v", s)
	}
	if !reflect.DeepEqual(s.WebServices, []string{"caddy"}) {
		t.Fatalf("unexpected web services %v", s.WebServices)
	}
	if s.AcmeHome != "/root/.acme.sh" {
		t.Fatalf("expected default acme home kept, got %q", s.AcmeHome)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("network: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path, true); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"V2UTIL_NETWORK":   "ipv6",
		"V2UTIL_LANG":      "zh_CN.UTF-8",
		"V2UTIL_LOG_LEVEL": " debug ",
		"NO_COLOR":         "1",
	}
	s := Defaults()
	s.ApplyEnv(func(k string) string { return env[k] })

	if s.Network != "ipv6" || s.Language != "zh_CN.UTF-8" || s.LogLevel != "debug" || !s.NoColor {
		t.Fatalf("unexpected settings %+v", s)
	}
	if s.V2RayConfig != "/etc/v2ray/config.json" {
		t.Fatalf("unset variable overrode field: %q", s.V2RayConfig)
	}
}

func TestValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	s := Defaults()
	s.Network = "ipv5"
	if err := s.Validate(); err == nil {
		t.Fatal("expected invalid network")
	}
	s = Defaults()
	s.IPServices = s.IPServices[:1]
	if err := s.Validate(); err == nil {
		t.Fatal("expected missing fallback service")
	}
}
