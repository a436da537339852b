package execx

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// Local runs commands on this machine.
type Local struct {
	Log *zap.Logger
}

func NewLocal(log *zap.Logger) *Local {
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{Log: log}
}

func (l *Local) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return l.run(exec.CommandContext(ctx, name, args...), Join(name, args...))
}

func (l *Local) Shell(ctx context.Context, script string) (Result, error) {
	return l.run(exec.CommandContext(ctx, "sh", "-c", script), script)
}

func (l *Local) run(cmd *exec.Cmd, display string) (Result, error) {
	l.Log.Debug("run cmd", zap.String("cmd", display))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		l.Log.Debug("cmd exited", zap.String("cmd", display), zap.Int("code", res.ExitCode))
		return res, &ExitError{Command: display, Result: res}
	}
	if err != nil {
		l.Log.Error("run cmd failed", zap.String("cmd", display), zap.Error(err))
		return res, err
	}
	return res, nil
}

func (l *Local) Upload(content []byte, path string, mode os.FileMode) error {
	if err := os.WriteFile(path, content, mode); err != nil {
		return err
	}
	return os.Chmod(path, mode)
}

func (l *Local) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (l *Local) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l *Local) Close() error { return nil }
