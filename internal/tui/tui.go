package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alfaoz/v2util/internal/cli"
	"github.com/alfaoz/v2util/internal/colorstr"
	"github.com/alfaoz/v2util/internal/host"
	"github.com/alfaoz/v2util/internal/prompt"
	"github.com/alfaoz/v2util/internal/session"
	"github.com/alfaoz/v2util/internal/stream"
	"github.com/alfaoz/v2util/internal/targets"
	"github.com/charmbracelet/huh"
	"golang.org/x/text/message"
)

type App struct {
	Store   *targets.Store
	Hosts   *host.Service
	Secrets *session.PasswordCache
	Prompt  *prompt.Prompter
	Printer *message.Printer
	Out     io.Writer
	target  targets.Target
}

var errUserCancelled = errors.New("user cancelled")

type menuItem struct {
	label string
	run   func(ctx context.Context) error
}

func New(store *targets.Store, svc *host.Service, sec *session.PasswordCache, p *prompt.Prompter, out io.Writer) *App {
	return &App{Store: store, Hosts: svc, Secrets: sec, Prompt: p, Printer: p.Printer, Out: out}
}

func (a *App) actions() cli.Actions {
	return cli.Actions{Out: a.Out, Printer: a.Printer}
}

func (a *App) tr(key string, args ...any) string {
	if a.Printer == nil {
		return fmt.Sprintf(key, args...)
	}
	return a.Printer.Sprintf(key, args...)
}

func (a *App) menu() []menuItem {
	return []menuItem{
		{"Public IP", func(ctx context.Context) error {
			return a.withHost(func(h *host.Host) error { return a.actions().PublicIP(ctx, h) })
		}},
		{"Check port usage", a.portCheck},
		{"Open profile ports in firewall", func(ctx context.Context) error {
			return a.withHost(func(h *host.Host) error { return a.actions().OpenPorts(ctx, h) })
		}},
		{"Clean firewall rules for a port", a.cleanPort},
		{"Traffic statistics", func(ctx context.Context) error {
			return a.withHost(func(h *host.Host) error { return a.actions().Traffic(ctx, h, 0, false) })
		}},
		{"Issue TLS certificate", a.issueCert},
		{"Show profile", func(context.Context) error {
			return a.withHost(func(h *host.Host) error { return a.actions().Profile(h) })
		}},
		{"Supported stream types", func(context.Context) error { return a.pickStream() }},
		{"Switch target", func(context.Context) error { return a.switchTarget() }},
		{"Exit", nil},
	}
}

// Run shows the numbered main menu until the operator picks Exit or sends
// an empty answer.
func (a *App) Run(ctx context.Context) error {
	items := a.menu()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprintf(a.Out, "\n%s %s\n\n", logoText(), colorstr.Fuchsia(a.tr("Current target")+": "+a.targetLabel()))
		for i, it := range items {
			fmt.Fprintf(a.Out, "%s.%s\n", colorstr.Green(strconv.Itoa(i+1)), a.tr(it.label))
		}
		n, err := a.Prompt.ChoiceNumber(a.tr("please select: "), len(items))
		if err != nil {
			if errors.Is(err, prompt.ErrCancelled) || errors.Is(err, prompt.ErrInterrupted) {
				return nil
			}
			return err
		}
		it := items[n-1]
		if it.run == nil {
			return nil
		}
		if err := it.run(ctx); err != nil && !errors.Is(err, errUserCancelled) {
			fmt.Fprintln(a.Out, colorstr.Red(err.Error()))
		}
		if _, err := a.Prompt.ReadLine(a.tr("press Enter to continue")); err != nil {
			return err
		}
	}
}

// pickStream lists the selectable stream types and describes the one chosen.
// The list is short enough to answer with a single keystroke.
func (a *App) pickStream() error {
	list := stream.List()
	fmt.Fprintln(a.Out, a.tr("Supported stream types"))
	for i, st := range list {
		fmt.Fprintf(a.Out, "%s.%s\n", colorstr.Green(strconv.Itoa(i+1)), colorstr.Cyan(string(st)))
	}
	n, err := a.Prompt.ChoiceNumber(a.tr("please select stream type: "), len(list))
	if err != nil {
		if errors.Is(err, prompt.ErrCancelled) || errors.Is(err, prompt.ErrInterrupted) {
			return errUserCancelled
		}
		return err
	}
	a.actions().StreamDetail(list[n-1])
	return nil
}

func (a *App) targetLabel() string {
	if a.target.Local() {
		return "localhost"
	}
	if a.target.Name != "" {
		return fmt.Sprintf("%s (%s)", a.target.Name, a.target.Host)
	}
	return a.target.Host
}

func (a *App) withHost(fn func(h *host.Host) error) error {
	pwd, err := a.passwordForTarget(a.target)
	if err != nil {
		return err
	}
	h, err := a.Hosts.Open(a.target, pwd)
	if err != nil {
		a.Secrets.Forget(secretKey(a.target))
		return err
	}
	defer h.Close()
	return fn(h)
}

func (a *App) portCheck(ctx context.Context) error {
	port, err := a.askPort()
	if err != nil {
		return err
	}
	return a.withHost(func(h *host.Host) error {
		_, err := a.actions().PortCheck(ctx, h, port)
		return err
	})
}

func (a *App) cleanPort(ctx context.Context) error {
	port, err := a.askPort()
	if err != nil {
		return err
	}
	if !a.confirm(a.tr("Clean all firewall rules for port %d?", port)) {
		return errUserCancelled
	}
	return a.withHost(func(h *host.Host) error { return a.actions().CleanPort(ctx, h, port) })
}

func (a *App) issueCert(ctx context.Context) error {
	domain := ""
	if err := huh.NewInput().
		Title(a.tr("please input domain: ")).
		Value(&domain).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("domain is required")
			}
			return nil
		}).
		Run(); err != nil {
		if isUserCancelled(err) {
			return errUserCancelled
		}
		return err
	}
	return a.withHost(func(h *host.Host) error { return a.actions().Cert(ctx, h, domain) })
}

func (a *App) askPort() (int, error) {
	raw := ""
	if err := huh.NewInput().
		Title(a.tr("please input port: ")).
		Value(&raw).
		Validate(func(s string) error {
			_, err := parsePort(s)
			return err
		}).
		Run(); err != nil {
		if isUserCancelled(err) {
			return 0, errUserCancelled
		}
		return 0, err
	}
	return parsePort(raw)
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("invalid port: %s", s)
	}
	return p, nil
}

func (a *App) switchTarget() error {
	names, err := a.Store.List()
	if err != nil {
		return err
	}
	options := []huh.Option[string]{huh.NewOption("localhost", "")}
	for _, n := range names {
		options = append(options, huh.NewOption(n, n))
	}
	options = append(options, huh.NewOption("New target...", "\x00new"))
	val := ""
	if err := huh.NewSelect[string]().Title(a.tr("Switch target")).Options(options...).Value(&val).Run(); err != nil {
		if isUserCancelled(err) {
			return errUserCancelled
		}
		return err
	}
	switch val {
	case "":
		a.target = targets.Target{}
		return nil
	case "\x00new":
		t, err := a.createTargetForm()
		if err != nil {
			return err
		}
		a.target = t
		return nil
	}
	t, err := a.Store.Load(val)
	if err != nil {
		return err
	}
	a.target = t
	return nil
}

func (a *App) createTargetForm() (targets.Target, error) {
	name := ""
	hostAddr := ""
	sshPort := "22"
	sshUser := "root"
	network := "ipv4"
	configPath := ""

	group := huh.NewGroup(
		huh.NewInput().Title("Target name").Value(&name),
		huh.NewInput().Title("Host/IP").Value(&hostAddr),
		huh.NewInput().Title("SSH port").Value(&sshPort),
		huh.NewInput().Title("SSH user").Value(&sshUser),
		huh.NewSelect[string]().
			Title("Network").
			Options(huh.NewOption("IPv4", "ipv4"), huh.NewOption("IPv6", "ipv6")).
			Value(&network),
		huh.NewInput().Title("V2Ray config path (blank for default)").Value(&configPath),
	)
	if err := huh.NewForm(group).Run(); err != nil {
		if isUserCancelled(err) {
			return targets.Target{}, errUserCancelled
		}
		return targets.Target{}, err
	}

	port, err := parsePort(sshPort)
	if err != nil {
		return targets.Target{}, fmt.Errorf("invalid ssh port")
	}
	return a.Store.Save(targets.Target{
		Name:        name,
		Host:        strings.TrimSpace(hostAddr),
		SSHPort:     port,
		SSHUser:     fallback(strings.TrimSpace(sshUser), "root"),
		Network:     network,
		V2RayConfig: strings.TrimSpace(configPath),
	})
}

func (a *App) passwordForTarget(t targets.Target) (string, error) {
	if t.Local() {
		return "", nil
	}
	key := secretKey(t)
	if p, ok := a.Secrets.Get(key); ok && strings.TrimSpace(p) != "" {
		return p, nil
	}
	pwd := ""
	if err := huh.NewInput().EchoMode(huh.EchoModePassword).Title(a.tr("SSH password for %s@%s: ", t.SSHUser, t.Host)).Value(&pwd).Run(); err != nil {
		if isUserCancelled(err) {
			return "", errUserCancelled
		}
		return "", err
	}
	if strings.TrimSpace(pwd) == "" {
		return "", fmt.Errorf("password required")
	}
	a.Secrets.Set(key, pwd)
	return pwd, nil
}

func secretKey(t targets.Target) string {
	return fmt.Sprintf("%s@%s:%d", t.SSHUser, t.Host, t.SSHPort)
}

func (a *App) confirm(prompt string) bool {
	val := false
	if err := huh.NewConfirm().Title(prompt).Affirmative("Yes").Negative("No").Value(&val).Run(); err != nil {
		return false
	}
	return val
}

func isUserCancelled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, huh.ErrUserAborted) {
		return true
	}
	v := strings.ToLower(err.Error())
	return strings.Contains(v, "interrupt") || strings.Contains(v, "cancel") || strings.Contains(v, "abort")
}

func fallback(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}
