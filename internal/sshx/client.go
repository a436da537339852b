package sshx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/alfaoz/v2util/internal/execx"
	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

type Target struct {
	Host     string
	Port     int
	User     string
	Password string
}

func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, fmt.Sprintf("%d", port))
}

// Client is an execx.Runner backed by one SSH connection.
type Client struct {
	sshClient *ssh.Client
	log       *zap.Logger
}

var _ execx.Runner = (*Client)(nil)

func Connect(t Target, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := &ssh.ClientConfig{
		User:            t.User,
		Auth:            []ssh.AuthMethod{ssh.Password(t.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         20 * time.Second,
	}
	c, err := ssh.Dial("tcp", t.Addr(), cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("ssh connected", zap.String("addr", t.Addr()), zap.String("user", t.User))
	return &Client{sshClient: c, log: log}, nil
}

// Dial opens a connection from the remote host to addr.
func (c *Client) Dial(network, addr string) (net.Conn, error) {
	return c.sshClient.Dial(network, addr)
}

func (c *Client) Close() error {
	if c == nil || c.sshClient == nil {
		return nil
	}
	return c.sshClient.Close()
}

func (c *Client) Run(ctx context.Context, name string, args ...string) (execx.Result, error) {
	return c.run(ctx, execx.Join(name, args...))
}

func (c *Client) Shell(ctx context.Context, script string) (execx.Result, error) {
	return c.run(ctx, execx.Join("sh", "-c", script))
}

func (c *Client) run(ctx context.Context, command string) (execx.Result, error) {
	c.log.Debug("run remote cmd", zap.String("cmd", command))

	session, err := c.sshClient.NewSession()
	if err != nil {
		return execx.Result{}, err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := wait(ctx, session, command); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res := execx.Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitErr.ExitStatus()}
			return res, &execx.ExitError{Command: command, Result: res}
		}
		if ctx.Err() != nil {
			return execx.Result{}, ctx.Err()
		}
		return execx.Result{Stdout: stdout.String(), Stderr: stderr.String()}, err
	}
	return execx.Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

type remoteSession interface {
	Run(command string) error
	Signal(sig ssh.Signal) error
	Close() error
}

// wait runs command on s. When ctx ends first the session is killed and
// closed, and wait returns ctx.Err() only after Run has returned, so the
// output buffers are no longer being written.
func wait(ctx context.Context, s remoteSession, command string) error {
	done := make(chan error, 1)
	go func() { done <- s.Run(command) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = s.Signal(ssh.SIGKILL)
		_ = s.Close()
		<-done
		return ctx.Err()
	}
}

func (c *Client) Upload(content []byte, remotePath string, mode os.FileMode) error {
	sftpClient, err := sftp.NewClient(c.sshClient)
	if err != nil {
		return err
	}
	defer sftpClient.Close()

	f, err := sftpClient.Create(remotePath)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *Client) ReadFile(remotePath string) ([]byte, error) {
	sftpClient, err := sftp.NewClient(c.sshClient)
	if err != nil {
		return nil, err
	}
	defer sftpClient.Close()

	f, err := sftpClient.Open(remotePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (c *Client) Exists(remotePath string) (bool, error) {
	sftpClient, err := sftp.NewClient(c.sshClient)
	if err != nil {
		return false, err
	}
	defer sftpClient.Close()

	if _, err := sftpClient.Stat(remotePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
