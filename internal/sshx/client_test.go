package sshx

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

func TestTargetAddr(t *testing.T) {
	cases := map[string]Target{
		"203.0.113.7:22":   {Host: "203.0.113.7"},
		"203.0.113.7:2222": {Host: "203.0.113.7", Port: 2222},
		"[2001:db8::1]:22": {Host: "2001:db8::1"},
	}
	for want, target := range cases {
		if got := target.Addr(); got != want {
			t.Fatalf("Addr()=%q want %q", got, want)
		}
	}
}

func TestNilClientClose(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil client: %v", err)
	}
}

// hangingSession keeps writing output until it is closed.
type hangingSession struct {
	out     *bytes.Buffer
	started chan struct{}
	closed  chan struct{}
	once    sync.Once
	signals []ssh.Signal
}

func (s *hangingSession) Run(string) error {
	close(s.started)
	for {
		select {
		case <-s.closed:
			s.out.WriteString("late output\n")
			return errors.New("session closed")
		default:
			s.out.WriteString(".")
			time.Sleep(time.Millisecond)
		}
	}
}

func (s *hangingSession) Signal(sig ssh.Signal) error {
	s.signals = append(s.signals, sig)
	return nil
}

func (s *hangingSession) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func TestWaitStopsSessionOnCancel(t *testing.T) {
	var out bytes.Buffer
	s := &hangingSession{out: &out, started: make(chan struct{}), closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-s.started
		cancel()
	}()
	err := wait(ctx, s, "sleep 600")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("wait err=%v", err)
	}
	if len(s.signals) != 1 || s.signals[0] != ssh.SIGKILL {
		t.Fatalf("signals=%v", s.signals)
	}
	// Run has returned, so the buffer is safe to read and no longer grows.
	got := out.String()
	time.Sleep(5 * time.Millisecond)
	if out.String() != got {
		t.Fatal("session still writing after wait returned")
	}
}

type quickSession struct{ err error }

func (s quickSession) Run(string) error        { return s.err }
func (s quickSession) Signal(ssh.Signal) error { return nil }
func (s quickSession) Close() error            { return nil }

func TestWaitReturnsRunResult(t *testing.T) {
	boom := errors.New("boom")
	if err := wait(context.Background(), quickSession{err: boom}, "true"); !errors.Is(err, boom) {
		t.Fatalf("wait err=%v", err)
	}
	if err := wait(context.Background(), quickSession{}, "true"); err != nil {
		t.Fatalf("wait err=%v", err)
	}
}
