// Package host binds the firewall, traffic, certificate and probe tools to
// one machine, local or reached over SSH.
package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/alfaoz/v2util/internal/cert"
	"github.com/alfaoz/v2util/internal/config"
	"github.com/alfaoz/v2util/internal/execx"
	"github.com/alfaoz/v2util/internal/firewall"
	"github.com/alfaoz/v2util/internal/netprobe"
	"github.com/alfaoz/v2util/internal/profile"
	"github.com/alfaoz/v2util/internal/sshx"
	"github.com/alfaoz/v2util/internal/targets"
	"github.com/alfaoz/v2util/internal/traffic"
	"github.com/alfaoz/v2util/internal/tunnel"
	"go.uber.org/zap"
)

type Service struct {
	Settings config.Settings
	Log      *zap.Logger
	// Dial overrides how a target is reached. Nil means local exec or SSH.
	Dial func(target targets.Target, password string) (execx.Runner, error)
}

func NewService(settings config.Settings, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Settings: settings, Log: log}
}

// Host is an open connection to one machine. Close it when done.
type Host struct {
	Name     string
	Runner   execx.Runner
	Network  string
	Settings config.Settings
	Remote   bool
	log      *zap.Logger
}

func (s *Service) dial(t targets.Target, password string) (execx.Runner, error) {
	if s.Dial != nil {
		return s.Dial(t, password)
	}
	if t.Local() {
		return execx.NewLocal(s.Log), nil
	}
	client, err := sshx.Connect(sshx.Target{
		Host:     t.Host,
		Port:     t.SSHPort,
		User:     t.SSHUser,
		Password: password,
	}, s.Log)
	if err != nil {
		return nil, fmt.Errorf("ssh connect: %w", err)
	}
	return client, nil
}

// Open connects to t. Target fields override the service settings.
func (s *Service) Open(t targets.Target, password string) (*Host, error) {
	settings := s.Settings
	if strings.TrimSpace(t.Network) != "" {
		settings.Network = t.Network
	}
	if strings.TrimSpace(t.V2RayConfig) != "" {
		settings.V2RayConfig = t.V2RayConfig
	}
	if !targets.ValidNetwork(settings.Network) {
		return nil, fmt.Errorf("invalid network %q. use ipv4 or ipv6", settings.Network)
	}
	r, err := s.dial(t, password)
	if err != nil {
		return nil, err
	}
	name := "localhost"
	if !t.Local() {
		name = t.Host
	}
	return &Host{
		Name:     name,
		Runner:   r,
		Network:  settings.Network,
		Settings: settings,
		Remote:   !t.Local(),
		log:      s.Log,
	}, nil
}

func (h *Host) Close() error { return h.Runner.Close() }

func (h *Host) Profile() (profile.Profile, error) {
	return profile.Load(h.Runner, h.Settings.V2RayConfig, h.Network)
}

func (h *Host) Firewall() *firewall.Manager {
	return firewall.New(h.Runner, h.Network, h.log)
}

func (h *Host) Traffic() *traffic.Accountant {
	return traffic.NewAccountant(h.Runner, h.log)
}

func (h *Host) Certs() *cert.Issuer {
	iss := cert.NewIssuer(h.Runner, h.log)
	iss.AcmeHome = h.Settings.AcmeHome
	if len(h.Settings.WebServices) > 0 {
		iss.WebServices = append([]string(nil), h.Settings.WebServices...)
	}
	return iss
}

func (h *Host) PublicIP(ctx context.Context) (string, error) {
	var g netprobe.Getter = netprobe.NewHTTPGetter()
	if h.Remote {
		g = netprobe.RunnerGetter{Runner: h.Runner}
	}
	return netprobe.PublicIP(ctx, g, h.Settings.IPServices[0], h.Settings.IPServices[1])
}

func (h *Host) PortInUse(ctx context.Context, port int) bool {
	return netprobe.PortInUse(ctx, h.Runner, port)
}

// OpenProfilePorts opens the firewall for every port the profile uses.
func (h *Host) OpenProfilePorts(ctx context.Context) ([]int, error) {
	p, err := h.Profile()
	if err != nil {
		return nil, err
	}
	return h.Firewall().Open(ctx, p.Ports())
}

// ProfileTraffic measures every profile port.
func (h *Host) ProfileTraffic(ctx context.Context) ([]traffic.Sample, error) {
	p, err := h.Profile()
	if err != nil {
		return nil, err
	}
	return h.Traffic().MeasurePorts(ctx, p.Ports(), p.IPv6())
}

// ErrNoTunnel is returned when the host's runner cannot open connections.
var ErrNoTunnel = errors.New("tunnel needs a remote host reached over ssh")

type dialer interface {
	Dial(network, addr string) (net.Conn, error)
}

// Tunnel serves a local SOCKS5 proxy on listenAddr whose connections leave
// from the host. It blocks until ctx is cancelled.
func (h *Host) Tunnel(ctx context.Context, listenAddr string) error {
	d, ok := h.Runner.(dialer)
	if !ok || !h.Remote {
		return ErrNoTunnel
	}
	return tunnel.Run(ctx, d.Dial, listenAddr, h.log)
}
