package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alfaoz/v2util/internal/colorstr"
	"github.com/alfaoz/v2util/internal/host"
	"github.com/alfaoz/v2util/internal/stream"
	"github.com/alfaoz/v2util/internal/traffic"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Actions renders the result of each host operation. The interactive menu
// and the flag-driven runner share it.
type Actions struct {
	Out     io.Writer
	Printer *message.Printer
}

func (a Actions) printer() *message.Printer {
	if a.Printer == nil {
		return message.NewPrinter(language.English)
	}
	return a.Printer
}

func (a Actions) say(key string, args ...any) {
	fmt.Fprintln(a.Out, a.printer().Sprintf(key, args...))
}

func (a Actions) warn(err error) {
	fmt.Fprintln(a.Out, colorstr.Yellow(a.printer().Sprintf("warning: %v", err)))
}

func (a Actions) PublicIP(ctx context.Context, h *host.Host) error {
	ip, err := h.PublicIP(ctx)
	if err != nil {
		return err
	}
	a.say("public ip: %s", colorstr.Green(ip))
	return nil
}

// PortCheck reports whether port is taken on the host.
func (a Actions) PortCheck(ctx context.Context, h *host.Host, port int) (bool, error) {
	if err := validPort(port); err != nil {
		return false, err
	}
	if h.PortInUse(ctx, port) {
		fmt.Fprintln(a.Out, colorstr.Red(a.printer().Sprintf("port %d is in use", port)))
		return true, nil
	}
	fmt.Fprintln(a.Out, colorstr.Green(a.printer().Sprintf("port %d is free", port)))
	return false, nil
}

func (a Actions) OpenPorts(ctx context.Context, h *host.Host) error {
	opened, err := h.OpenProfilePorts(ctx)
	if len(opened) == 0 && err == nil {
		a.say("all ports already open")
		return nil
	}
	if len(opened) > 0 {
		a.say("opened ports: %v", opened)
	}
	if err != nil {
		a.warn(err)
		return errors.New("some firewall rules could not be added")
	}
	return nil
}

func (a Actions) CleanPort(ctx context.Context, h *host.Host, port int) error {
	if err := validPort(port); err != nil {
		return err
	}
	removed, err := h.Firewall().Clean(ctx, port)
	a.say("removed %d rules for port %d", removed, port)
	if err != nil {
		a.warn(err)
		return errors.New("some firewall rules could not be removed")
	}
	return nil
}

// Traffic prints counters for port, or for every profile port when port is 0.
func (a Actions) Traffic(ctx context.Context, h *host.Host, port int, raw bool) error {
	render := traffic.Sample.Format
	if raw {
		render = traffic.Sample.FormatRaw
	}
	if port != 0 {
		if err := validPort(port); err != nil {
			return err
		}
		s, err := h.Traffic().Measure(ctx, port, h.Network == "ipv6")
		if err != nil {
			return err
		}
		if s == nil {
			a.say("no traffic recorded for port %d", port)
			return nil
		}
		fmt.Fprintln(a.Out, render(*s))
		return nil
	}

	samples, err := h.ProfileTraffic(ctx)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		a.say("no traffic recorded")
		return nil
	}
	for _, s := range samples {
		fmt.Fprintln(a.Out, render(s))
	}
	return nil
}

func (a Actions) Cert(ctx context.Context, h *host.Host, domain string) error {
	c, err := h.Certs().Issue(ctx, strings.TrimSpace(domain))
	if err != nil {
		return err
	}
	a.say("certificate issued: %s", colorstr.Green(c.CertFile))
	a.say("private key: %s", colorstr.Green(c.KeyFile))
	return nil
}

func (a Actions) Profile(h *host.Host) error {
	p, err := h.Profile()
	if err != nil {
		return err
	}
	a.say("config: %s (%s)", p.Path, p.Network)
	for i, g := range p.Groups {
		line := fmt.Sprintf("%d. %s %s %s",
			i+1,
			colorstr.Green(strconv.Itoa(g.Port)),
			g.Protocol,
			colorstr.Cyan(string(g.Stream)))
		if g.Header != "" && g.Header != "none" {
			line += " header:" + g.Header
		}
		if g.Method != "" {
			line += " method:" + g.Method
		}
		if g.Tag != "" {
			line += " tag:" + g.Tag
		}
		fmt.Fprintln(a.Out, line)
	}
	return nil
}

func (a Actions) Streams() {
	a.say("Supported stream types")
	for i, s := range stream.List() {
		fmt.Fprintf(a.Out, "%d.%s\n", i+1, colorstr.Cyan(string(s)))
	}
	a.say("kcp headers: %s", strings.Join(stream.HeaderTypes(), ", "))
	a.say("ss methods: %s", strings.Join(stream.SSMethods(), ", "))
}

// StreamDetail prints the settings an operator picks alongside st.
func (a Actions) StreamDetail(st stream.StreamType) {
	a.say("stream type: %s", colorstr.Cyan(string(st)))
	switch {
	case st.IsKCP():
		a.say("kcp headers: %s", strings.Join(stream.HeaderTypes(), ", "))
	case st == stream.SS:
		a.say("ss methods: %s", strings.Join(stream.SSMethods(), ", "))
	default:
		a.say("no extra settings for %s", st)
	}
}

// Tunnel blocks until ctx is cancelled.
func (a Actions) Tunnel(ctx context.Context, h *host.Host, listen string) error {
	a.say("socks5 proxy on %s exits from %s, Ctrl-C to stop", listen, h.Name)
	return h.Tunnel(ctx, listen)
}

func validPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	return nil
}
