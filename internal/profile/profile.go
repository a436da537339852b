// Package profile reads the proxy server's JSON configuration into the
// groups (one per inbound) that the firewall and traffic tools work on.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alfaoz/v2util/internal/stream"
)

type Group struct {
	Tag      string
	Port     int
	Protocol string
	Stream   stream.StreamType
	Header   string
	Method   string
}

type Profile struct {
	// Network is the address family the host serves, ipv4 or ipv6.
	Network string
	Path    string
	Groups  []Group
}

// Ports returns the distinct group ports in ascending order.
func (p Profile) Ports() []int {
	seen := map[int]bool{}
	var out []int
	for _, g := range p.Groups {
		if g.Port <= 0 || seen[g.Port] {
			continue
		}
		seen[g.Port] = true
		out = append(out, g.Port)
	}
	sort.Ints(out)
	return out
}

func (p Profile) IPv6() bool { return p.Network == "ipv6" }

type header struct {
	Type string `json:"type"`
}

type inbound struct {
	Tag      string `json:"tag"`
	Port     any    `json:"port"`
	Protocol string `json:"protocol"`
	Settings struct {
		Method string `json:"method"`
	} `json:"settings"`
	StreamSettings struct {
		Network     string `json:"network"`
		TCPSettings struct {
			Header header `json:"header"`
		} `json:"tcpSettings"`
		KCPSettings struct {
			Header header `json:"header"`
		} `json:"kcpSettings"`
		QUICSettings struct {
			Header header `json:"header"`
		} `json:"quicSettings"`
	} `json:"streamSettings"`
}

type serverConfig struct {
	Inbounds      []inbound `json:"inbounds"`
	Inbound       *inbound  `json:"inbound"`
	InboundDetour []inbound `json:"inboundDetour"`
}

// Parse builds a profile from raw config bytes. Both the current "inbounds"
// layout and the legacy "inbound" + "inboundDetour" layout are accepted. A kcp
// header type or shadowsocks method outside the supported lists is an error.
func Parse(data []byte, network string) (Profile, error) {
	var cfg serverConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Profile{}, fmt.Errorf("parse server config: %w", err)
	}
	list := cfg.Inbounds
	if len(list) == 0 {
		if cfg.Inbound != nil {
			list = append(list, *cfg.Inbound)
		}
		list = append(list, cfg.InboundDetour...)
	}
	if len(list) == 0 {
		return Profile{}, errors.New("server config has no inbounds")
	}

	p := Profile{Network: network}
	for i, in := range list {
		port, err := parsePort(in.Port)
		if err != nil {
			return Profile{}, fmt.Errorf("inbound %d: %w", i, err)
		}
		hdr := in.StreamSettings.TCPSettings.Header.Type
		switch in.StreamSettings.Network {
		case "kcp", "mkcp":
			hdr = in.StreamSettings.KCPSettings.Header.Type
			if hdr != "" && !stream.ValidHeaderType(strings.ToLower(hdr)) {
				return Profile{}, fmt.Errorf("inbound %d: unknown kcp header type %q", i, hdr)
			}
		case "quic":
			hdr = in.StreamSettings.QUICSettings.Header.Type
		}
		if strings.EqualFold(in.Protocol, "shadowsocks") && !stream.ValidSSMethod(strings.ToLower(in.Settings.Method)) {
			return Profile{}, fmt.Errorf("inbound %d: unsupported shadowsocks method %q", i, in.Settings.Method)
		}
		p.Groups = append(p.Groups, Group{
			Tag:      in.Tag,
			Port:     port,
			Protocol: in.Protocol,
			Stream:   stream.Classify(in.Protocol, in.StreamSettings.Network, hdr),
			Header:   hdr,
			Method:   in.Settings.Method,
		})
	}
	return p, nil
}

// parsePort accepts a number, a numeric string, or a "from-to" range, of
// which the first port is used.
func parsePort(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		if t <= 0 || t > 65535 || t != float64(int(t)) {
			return 0, fmt.Errorf("invalid port %v", t)
		}
		return int(t), nil
	case string:
		var from, to int
		if n, _ := fmt.Sscanf(t, "%d-%d", &from, &to); n >= 1 && from > 0 && from <= 65535 {
			return from, nil
		}
		return 0, fmt.Errorf("invalid port %q", t)
	case nil:
		return 0, errors.New("missing port")
	default:
		return 0, fmt.Errorf("invalid port %v", t)
	}
}
