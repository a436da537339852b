// Package targets keeps named remote hosts as small key=value files so a
// host can be managed again without repeating its SSH details.
package targets

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const DefaultDirSuffix = ".v2util/targets"

const fileExt = ".target"

type Target struct {
	Name        string
	Host        string
	SSHPort     int
	SSHUser     string
	Network     string
	V2RayConfig string
}

// Local reports whether the target is this machine.
func (t Target) Local() bool { return strings.TrimSpace(t.Host) == "" }

type Store struct {
	Dir string
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, DefaultDirSuffix)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure targets dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// SanitizeName lowercases raw and collapses anything outside [a-z0-9._-]
// into single dashes.
func SanitizeName(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	b := strings.Builder{}
	lastDash := false
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-.")
}

func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read targets dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), fileExt))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Dir, name+fileExt)
}

func (s *Store) Load(name string) (Target, error) {
	name = SanitizeName(name)
	if name == "" {
		return Target{}, errors.New("invalid target name")
	}
	f, err := os.Open(s.path(name))
	if err != nil {
		return Target{}, fmt.Errorf("open target file: %w", err)
	}
	defer f.Close()

	vals := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vals[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	if err := scanner.Err(); err != nil {
		return Target{}, fmt.Errorf("scan target file: %w", err)
	}

	t := Target{
		Name:        name,
		Host:        vals["HOST"],
		SSHPort:     parseIntDefault(vals["SSH_PORT"], 22),
		SSHUser:     defaultIfEmpty(vals["SSH_USER"], "root"),
		Network:     strings.ToLower(defaultIfEmpty(vals["NETWORK"], "ipv4")),
		V2RayConfig: vals["V2RAY_CONFIG"],
	}
	if t.Local() {
		return Target{}, fmt.Errorf("target %q missing HOST", name)
	}
	if !ValidNetwork(t.Network) {
		return Target{}, fmt.Errorf("target %q has invalid NETWORK %q. use ipv4 or ipv6", name, t.Network)
	}
	return t, nil
}

func (s *Store) Save(t Target) (Target, error) {
	t.Name = SanitizeName(t.Name)
	if t.Name == "" {
		return Target{}, errors.New("target name is required")
	}
	if t.Local() {
		return Target{}, errors.New("target host is required")
	}
	if t.SSHPort == 0 {
		t.SSHPort = 22
	}
	t.SSHUser = defaultIfEmpty(t.SSHUser, "root")
	t.Network = defaultIfEmpty(t.Network, "ipv4")
	if !ValidNetwork(t.Network) {
		return Target{}, fmt.Errorf("invalid network %q. use ipv4 or ipv6", t.Network)
	}

	lines := []string{
		"HOST=" + t.Host,
		"SSH_PORT=" + strconv.Itoa(t.SSHPort),
		"SSH_USER=" + t.SSHUser,
		"NETWORK=" + t.Network,
	}
	if t.V2RayConfig != "" {
		lines = append(lines, "V2RAY_CONFIG="+t.V2RayConfig)
	}
	content := strings.Join(append(lines, ""), "\n")

	if err := os.WriteFile(s.path(t.Name), []byte(content), 0o600); err != nil {
		return Target{}, fmt.Errorf("write target file: %w", err)
	}
	return t, nil
}

func (s *Store) Delete(name string) error {
	name = SanitizeName(name)
	if name == "" {
		return errors.New("invalid target name")
	}
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete target: %w", err)
	}
	return nil
}

// ValidNetwork reports whether v names an address family a host can serve.
func ValidNetwork(v string) bool { return v == "ipv4" || v == "ipv6" }

func defaultIfEmpty(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}

func parseIntDefault(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
