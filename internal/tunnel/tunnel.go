// Package tunnel exposes a local SOCKS5 proxy whose connections leave from
// the managed host, so loopback-only inbounds can be tested from a laptop.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Run listens on localAddr and serves until ctx is cancelled.
func Run(ctx context.Context, dial DialFunc, localAddr string, log *zap.Logger) error {
	ln, err := net.Listen("tcp", localAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", localAddr, err)
	}
	return Serve(ctx, ln, dial, log)
}

// Serve accepts SOCKS5 clients on ln. It closes ln when ctx is done and
// waits for open connections to finish.
func Serve(ctx context.Context, ln net.Listener, dial DialFunc, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	defer ln.Close()
	log.Info("socks5 tunnel listening", zap.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				log.Info("socks5 tunnel closed")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := HandleConn(conn, dial); err != nil {
				log.Debug("tunnel conn", zap.Error(err))
			}
		}()
	}
}
