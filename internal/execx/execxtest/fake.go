// Package execxtest provides a recording execx.Runner for tests.
package execxtest

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/alfaoz/v2util/internal/execx"
)

// Fake records every command line and answers from Responses, keyed by the
// exact command line as rendered by execx.Join (or the raw script for Shell).
// Unknown commands succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	Responses map[string]execx.Result
	Errors    map[string]error
	Files     map[string][]byte
	Calls     []string
	Closed    bool
}

func New() *Fake {
	return &Fake{
		Responses: map[string]execx.Result{},
		Errors:    map[string]error{},
		Files:     map[string][]byte{},
	}
}

// Respond scripts stdout for a command line.
func (f *Fake) Respond(cmdline, stdout string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[cmdline] = execx.Result{Stdout: stdout}
}

func (f *Fake) Run(_ context.Context, name string, args ...string) (execx.Result, error) {
	return f.record(execx.Join(name, args...))
}

func (f *Fake) Shell(_ context.Context, script string) (execx.Result, error) {
	return f.record(script)
}

func (f *Fake) record(cmdline string) (execx.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmdline)
	res := f.Responses[cmdline]
	if err, ok := f.Errors[cmdline]; ok {
		return res, err
	}
	return res, nil
}

func (f *Fake) Upload(content []byte, path string, _ os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[path] = append([]byte(nil), content...)
	return nil
}

func (f *Fake) ReadFile(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.Files[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return append([]byte(nil), b...), nil
}

func (f *Fake) Exists(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Files[path]
	return ok, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// CallsWithPrefix returns recorded command lines starting with prefix, in order.
func (f *Fake) CallsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
