// Package execx runs host commands behind a narrow interface so the firewall,
// traffic and certificate logic can run locally, over SSH, or against a fake.
package execx

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Result is the captured outcome of one command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Lines returns the non-empty stdout lines.
func (r Result) Lines() []string {
	var out []string
	s := bufio.NewScanner(strings.NewReader(r.Stdout))
	for s.Scan() {
		if line := strings.TrimRight(s.Text(), "\r"); strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Result  Result
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Result.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.Result.ExitCode)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Result.ExitCode, msg)
}

type Runner interface {
	// Run executes name with args without a shell.
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// Shell executes script with sh -c, for pipelines.
	Shell(ctx context.Context, script string) (Result, error)
	Upload(content []byte, path string, mode os.FileMode) error
	ReadFile(path string) ([]byte, error)
	Exists(path string) (bool, error)
	Close() error
}

// Join renders a command line with single-quoted arguments, safe to hand to
// a POSIX shell.
func Join(name string, args ...string) string {
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, quote(name))
	for _, a := range args {
		quoted = append(quoted, quote(a))
	}
	return strings.Join(quoted, " ")
}

func quote(p string) string {
	if p != "" && strings.IndexFunc(p, unsafeRune) < 0 {
		return p
	}
	return "'" + strings.ReplaceAll(p, "'", "'\"'\"'") + "'"
}

func unsafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=@,+", r)
}
