package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alfaoz/v2util/internal/host"
	"github.com/alfaoz/v2util/internal/stream"
	"github.com/alfaoz/v2util/internal/targets"
	"golang.org/x/term"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

type Runner struct {
	Store   *targets.Store
	Hosts   *host.Service
	Actions Actions
	// ReadPassword asks for the SSH password when none was given.
	ReadPassword func(prompt string) (string, error)
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `v2util: maintenance tools for a V2Ray server, local or over SSH.

Usage:
  v2util [options]

Actions:
  --action ip                   Print the host's public IP
  --action port-check --port N  Report whether port N is in use
  --action open-port            Open every config port in the firewall
  --action clean-port --port N  Delete the firewall rules for port N
  --action traffic [--port N]   Show traffic counters (all config ports without --port)
  --action cert --domain D      Issue a TLS certificate with acme.sh
  --action streams [--stream S] List selectable stream types, or the options of S
  --action profile              Show the inbound groups of the server config
  --action tunnel [--listen A]  Serve a local SOCKS5 proxy that exits from --host

Options:
  --ipv6                        Use ip6tables (same as --network ipv6)
  --raw                         Print exact byte counts
  --config <path>               V2Ray server config (default: /etc/v2ray/config.json)
  --settings <path>             v2util settings (default: /etc/v2util/settings.yaml)
  --network <ipv4|ipv6>         Address family served by the host
  --host <ip-or-hostname>       Run against a remote host over SSH
  --target <name>               Use saved target from ~/.v2util/targets
  --list-targets                List saved targets and exit
  --save-target <name>          Save the --host details under name
  --ssh-port <port>             SSH port (default: 22)
  --ssh-user <username>         SSH user (default: root)
  --ssh-password <password>     SSH password
  --lang <en|zh>                Message language
  --no-color                    Disable colored output
  --verbose                     Log every command run
  --version                     Print version and exit
  -h, --help                    Show this help

Environment:
  V2UTIL_TARGETS_DIR            Override saved target directory
  V2UTIL_V2RAY_CONFIG, V2UTIL_NETWORK, V2UTIL_ACME_HOME, V2UTIL_LANG,
  V2UTIL_LOG_LEVEL, NO_COLOR
`)
}

// RequiresNonInteractive is true when stdin/stdout are not a terminal or
// any action flag was given.
func RequiresNonInteractive(opts Options, isTTY bool) bool {
	if !isTTY {
		return true
	}
	return opts.Action != "" || opts.ListTargets || opts.SaveTarget != ""
}

func (r *Runner) Run(ctx context.Context, opts Options) (int, error) {
	if opts.ListTargets {
		return r.listTargets()
	}

	action, ok := NormalizeAction(strings.ToLower(strings.TrimSpace(opts.Action)))
	if !ok {
		return ExitUsage, errors.New("invalid --action. use ip, port-check, open-port, clean-port, traffic, cert, streams, profile or tunnel")
	}
	if action == "" && opts.SaveTarget == "" {
		return ExitUsage, errors.New("no action given. use --action")
	}
	if action == "streams" {
		if opts.Stream == "" {
			r.Actions.Streams()
			return ExitSuccess, nil
		}
		st, err := stream.ParseStreamType(opts.Stream)
		if err != nil {
			return ExitUsage, err
		}
		r.Actions.StreamDetail(st)
		return ExitSuccess, nil
	}
	if code, err := checkActionArgs(action, opts); err != nil {
		return code, err
	}

	target, err := r.ResolveTarget(opts)
	if err != nil {
		return ExitUsage, err
	}
	if opts.SaveTarget != "" {
		if target.Local() {
			return ExitUsage, errors.New("--save-target needs --host")
		}
		target.Name = opts.SaveTarget
		saved, err := r.Store.Save(target)
		if err != nil {
			return ExitFailure, err
		}
		target = saved
		fmt.Fprintf(r.Actions.Out, "saved target %s\n", saved.Name)
		if action == "" {
			return ExitSuccess, nil
		}
	}

	password, err := r.password(target, opts.SSHPassword)
	if err != nil {
		return ExitUsage, err
	}

	h, err := r.Hosts.Open(target, password)
	if err != nil {
		return ExitFailure, err
	}
	defer h.Close()

	return r.dispatch(ctx, h, action, opts)
}

func checkActionArgs(action string, opts Options) (int, error) {
	switch action {
	case "port-check", "clean-port":
		if opts.Port == 0 {
			return ExitUsage, fmt.Errorf("--action %s needs --port", action)
		}
	case "cert":
		if strings.TrimSpace(opts.Domain) == "" {
			return ExitUsage, errors.New("--action cert needs --domain")
		}
	case "tunnel":
		if opts.Host == "" && opts.TargetName == "" {
			return ExitUsage, errors.New("--action tunnel needs --host or --target")
		}
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return ExitUsage, fmt.Errorf("invalid --port %d", opts.Port)
	}
	return ExitSuccess, nil
}

func (r *Runner) dispatch(ctx context.Context, h *host.Host, action string, opts Options) (int, error) {
	var err error
	switch action {
	case "ip":
		err = r.Actions.PublicIP(ctx, h)
	case "port-check":
		var inUse bool
		inUse, err = r.Actions.PortCheck(ctx, h, opts.Port)
		if err == nil && inUse {
			return ExitFailure, nil
		}
	case "open-port":
		err = r.Actions.OpenPorts(ctx, h)
	case "clean-port":
		err = r.Actions.CleanPort(ctx, h, opts.Port)
	case "traffic":
		err = r.Actions.Traffic(ctx, h, opts.Port, opts.Raw)
	case "cert":
		err = r.Actions.Cert(ctx, h, opts.Domain)
	case "profile":
		err = r.Actions.Profile(h)
	case "tunnel":
		err = r.Actions.Tunnel(ctx, h, opts.Listen)
	}
	if err != nil {
		return ExitFailure, err
	}
	return ExitSuccess, nil
}

// ResolveTarget merges a saved target with the host flags. No host means
// this machine.
func (r *Runner) ResolveTarget(opts Options) (targets.Target, error) {
	var t targets.Target
	if opts.TargetName != "" {
		loaded, err := r.Store.Load(opts.TargetName)
		if err != nil {
			return t, err
		}
		t = loaded
	}
	if opts.Host != "" {
		t.Host = strings.TrimSpace(opts.Host)
	}
	if opts.Changed("ssh-port") || t.SSHPort == 0 {
		t.SSHPort = opts.SSHPort
	}
	if opts.Changed("ssh-user") || t.SSHUser == "" {
		t.SSHUser = opts.SSHUser
	}
	network, ok := NormalizeNetwork(strings.ToLower(strings.TrimSpace(opts.Network)))
	if !ok {
		return t, errors.New("invalid --network. use ipv4 or ipv6")
	}
	if network == "" && opts.IPv6 {
		network = "ipv6"
	}
	if network != "" {
		t.Network = network
	}
	if opts.V2RayConfig != "" {
		t.V2RayConfig = opts.V2RayConfig
	}
	if t.SSHPort < 1 || t.SSHPort > 65535 {
		return t, fmt.Errorf("invalid --ssh-port %d", t.SSHPort)
	}
	return t, nil
}

func (r *Runner) password(t targets.Target, given string) (string, error) {
	if t.Local() {
		return "", nil
	}
	if strings.TrimSpace(given) != "" {
		return given, nil
	}
	if r.ReadPassword == nil {
		return "", errors.New("ssh password is required")
	}
	pw, err := r.ReadPassword(fmt.Sprintf("SSH password for %s@%s: ", t.SSHUser, t.Host))
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if strings.TrimSpace(pw) == "" {
		return "", errors.New("ssh password is required")
	}
	return pw, nil
}

func (r *Runner) listTargets() (int, error) {
	names, err := r.Store.List()
	if err != nil {
		return ExitFailure, err
	}
	out := r.Actions.Out
	if len(names) == 0 {
		fmt.Fprintf(out, "No targets saved yet in %s\n", r.Store.Dir)
		return ExitSuccess, nil
	}
	fmt.Fprintf(out, "Saved targets (%s):\n", r.Store.Dir)
	for _, name := range names {
		fmt.Fprintf(out, "  - %s\n", name)
	}
	return ExitSuccess, nil
}

// TerminalPassword reads a password from stdin without echo. It fails when
// stdin is not a terminal.
func TerminalPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
