// Package netprobe answers small questions about the host's network: its
// public address, whether a port is taken, and whether a string is an IP
// literal.
package netprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/alfaoz/v2util/internal/execx"
)

const (
	PrimaryIPService  = "http://api.ipify.org"
	FallbackIPService = "http://icanhazip.com"
)

// Getter fetches a URL body as text.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
}

// HTTPGetter fetches from this machine.
type HTTPGetter struct {
	Client *http.Client
}

func NewHTTPGetter() *HTTPGetter {
	return &HTTPGetter{Client: &http.Client{Timeout: 10 * time.Second}}
}

func (g *HTTPGetter) Get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status: %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RunnerGetter fetches from the runner's host with curl, so a remote target
// reports its own address.
type RunnerGetter struct {
	Runner execx.Runner
}

func (g RunnerGetter) Get(ctx context.Context, url string) (string, error) {
	res, err := g.Runner.Run(ctx, "curl", "-fsS", "--max-time", "10", url)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// PublicIP asks primary for the host's public address and falls back to
// fallback on any failure, including a body that is not an IP literal. It
// fails only when both do.
func PublicIP(ctx context.Context, g Getter, primary, fallback string) (string, error) {
	ip, err := lookupIP(ctx, g, primary)
	if err == nil {
		return ip, nil
	}
	ip, fbErr := lookupIP(ctx, g, fallback)
	if fbErr != nil {
		return "", fmt.Errorf("public ip lookup failed: %w", errors.Join(
			fmt.Errorf("%s: %w", primary, err),
			fmt.Errorf("%s: %w", fallback, fbErr),
		))
	}
	return ip, nil
}

func lookupIP(ctx context.Context, g Getter, url string) (string, error) {
	body, err := g.Get(ctx, url)
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(body)
	if ip == "" {
		return "", errors.New("empty response")
	}
	if !CheckIP(ip) {
		if len(ip) > 64 {
			ip = ip[:64] + "..."
		}
		return "", fmt.Errorf("not an ip address: %q", ip)
	}
	return ip, nil
}

// PortInUse reports whether lsof lists any process bound to port.
func PortInUse(ctx context.Context, r execx.Runner, port int) bool {
	// lsof exits 1 when nothing matches, so only the output counts.
	res, _ := r.Run(ctx, "lsof", "-i:"+strconv.Itoa(port))
	return len(res.Lines()) > 0
}

func IsIPv4(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	return err == nil && addr.Is4()
}

func IsIPv6(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	return err == nil && addr.Is6() && addr.Zone() == ""
}

func CheckIP(ip string) bool {
	return IsIPv4(ip) || IsIPv6(ip)
}
