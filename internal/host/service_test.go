package host

import (
	"context"
	"errors"
	"testing"

	"github.com/alfaoz/v2util/internal/config"
	"github.com/alfaoz/v2util/internal/execx"
	"github.com/alfaoz/v2util/internal/execx/execxtest"
	"github.com/alfaoz/v2util/internal/targets"
)

const serverJSON = `{"inbounds": [
  {"port": 443, "protocol": "vmess", "streamSettings": {"network": "ws"}},
  {"port": 8443, "protocol": "vmess", "streamSettings": {"network": "kcp"}}
]}`

func newTestService(f *execxtest.Fake) (*Service, *targets.Target) {
	svc := NewService(config.Defaults(), nil)
	seen := &targets.Target{}
	svc.Dial = func(t targets.Target, _ string) (execx.Runner, error) {
		*seen = t
		return f, nil
	}
	return svc, seen
}

func TestOpenAppliesTargetOverrides(t *testing.T) {
	f := execxtest.New()
	svc, seen := newTestService(f)

	h, err := svc.Open(targets.Target{Host: "203.0.113.9", Network: "ipv6", V2RayConfig: "/opt/v2ray.json"}, "pw")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if seen.Host != "203.0.113.9" {
		t.Fatalf("dial got %+v", seen)
	}
	if !h.Remote || h.Name != "203.0.113.9" || h.Network != "ipv6" || h.Settings.V2RayConfig != "/opt/v2ray.json" {
		t.Fatalf("unexpected host %+v", h)
	}
	if h.Firewall().Tool() != "ip6tables" {
		t.Fatalf("expected ip6tables for ipv6 target")
	}
	if svc.Settings.Network != "ipv4" {
		t.Fatal("target override leaked into service settings")
	}

	if err := h.Close(); err != nil || !f.Closed {
		t.Fatalf("Close: %v closed=%v", err, f.Closed)
	}
}

func TestOpenLocalDefaults(t *testing.T) {
	svc, _ := newTestService(execxtest.New())
	h, err := svc.Open(targets.Target{}, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if h.Remote || h.Name != "localhost" || h.Network != "ipv4" {
		t.Fatalf("unexpected host %+v", h)
	}
}

func TestOpenDialFailure(t *testing.T) {
	svc := NewService(config.Defaults(), nil)
	svc.Dial = func(targets.Target, string) (execx.Runner, error) { return nil, errors.New("refused") }
	if _, err := svc.Open(targets.Target{Host: "x"}, "pw"); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestOpenRejectsUnknownNetwork(t *testing.T) {
	svc, seen := newTestService(execxtest.New())
	if _, err := svc.Open(targets.Target{Host: "203.0.113.9", Network: "ipv5"}, "pw"); err == nil {
		t.Fatal("expected error for network ipv5")
	}
	if seen.Host != "" {
		t.Fatalf("bad network must not dial, got %+v", seen)
	}
}

func TestOpenProfilePorts(t *testing.T) {
	f := execxtest.New()
	f.Files["/etc/v2ray/config.json"] = []byte(serverJSON)
	svc, _ := newTestService(f)
	h, err := svc.Open(targets.Target{}, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	opened, err := h.OpenProfilePorts(context.Background())
	if err != nil {
		t.Fatalf("OpenProfilePorts: %v", err)
	}
	if len(opened) != 2 || len(f.CallsWithPrefix("iptables -I")) != 8 {
		t.Fatalf("opened=%v inserts=%q", opened, f.CallsWithPrefix("iptables -I"))
	}
}

func TestProfileTraffic(t *testing.T) {
	f := execxtest.New()
	f.Files["/etc/v2ray/config.json"] = []byte(serverJSON)
	svc, _ := newTestService(f)
	h, err := svc.Open(targets.Target{}, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	acct := h.Traffic()
	f.Respond("bash "+acct.ScriptPath+" 443 ''", "5 6 11")
	samples, err := acct.MeasurePorts(context.Background(), []int{443, 8443}, false)
	if err != nil {
		t.Fatalf("MeasurePorts: %v", err)
	}
	if len(samples) != 1 || samples[0].Total != 11 {
		t.Fatalf("unexpected samples %+v", samples)
	}

	if _, err := h.ProfileTraffic(context.Background()); err != nil {
		t.Fatalf("ProfileTraffic: %v", err)
	}
}

func TestRemotePublicIPUsesRunner(t *testing.T) {
	f := execxtest.New()
	f.Respond("curl -fsS --max-time 10 http://api.ipify.org", "198.51.100.77\n")
	svc, _ := newTestService(f)
	h, err := svc.Open(targets.Target{Host: "198.51.100.77"}, "pw")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ip, err := h.PublicIP(context.Background())
	if err != nil || ip != "198.51.100.77" {
		t.Fatalf("PublicIP=%q,%v", ip, err)
	}
}

func TestCertsUseSettings(t *testing.T) {
	svc, _ := newTestService(execxtest.New())
	svc.Settings.AcmeHome = "/opt/acme"
	svc.Settings.WebServices = []string{"caddy"}
	h, err := svc.Open(targets.Target{}, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	iss := h.Certs()
	if iss.AcmeHome != "/opt/acme" || len(iss.WebServices) != 1 || iss.WebServices[0] != "caddy" {
		t.Fatalf("unexpected issuer %+v", iss)
	}
}

func TestTunnelNeedsRemoteDialer(t *testing.T) {
	svc, _ := newTestService(execxtest.New())
	h, err := svc.Open(targets.Target{Host: "203.0.113.9"}, "pw")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := h.Tunnel(context.Background(), "127.0.0.1:0"); !errors.Is(err, ErrNoTunnel) {
		t.Fatalf("Tunnel err=%v", err)
	}
}
