package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alfaoz/v2util/internal/cli"
	"github.com/alfaoz/v2util/internal/colorstr"
	"github.com/alfaoz/v2util/internal/config"
	"github.com/alfaoz/v2util/internal/host"
	"github.com/alfaoz/v2util/internal/i18n"
	"github.com/alfaoz/v2util/internal/logging"
	"github.com/alfaoz/v2util/internal/prompt"
	"github.com/alfaoz/v2util/internal/session"
	"github.com/alfaoz/v2util/internal/targets"
	"github.com/alfaoz/v2util/internal/tui"
	"github.com/alfaoz/v2util/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := cli.Parse(args)
	if err != nil {
		printErr(err)
		cli.PrintHelp(os.Stderr)
		return cli.ExitUsage
	}

	if opts.Help {
		cli.PrintHelp(os.Stdout)
		return cli.ExitSuccess
	}

	if opts.VersionOnly {
		fmt.Printf("v2util v%s\n", version.AppVersion)
		return cli.ExitSuccess
	}

	settings, err := config.Load(opts.SettingsPath, opts.SettingsPath != "")
	if err != nil {
		printErr(err)
		return cli.ExitFailure
	}
	settings.ApplyEnv(os.Getenv)
	applyFlags(&settings, opts)
	if err := settings.Validate(); err != nil {
		printErr(err)
		return cli.ExitUsage
	}

	isTTY := isTerminalFile(os.Stdin) && isTerminalFile(os.Stdout)
	colorstr.SetEnabled(!settings.NoColor && isTerminalFile(os.Stdout))

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		printErr(err)
		return cli.ExitUsage
	}
	if opts.Verbose {
		level = zap.DebugLevel
	}
	log := logging.New(level, colorstr.Enabled())
	defer log.Sync()

	store, err := targets.NewStore(strings.TrimSpace(os.Getenv("V2UTIL_TARGETS_DIR")))
	if err != nil {
		printErr(fmt.Errorf("initialize targets store: %w", err))
		return cli.ExitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := i18n.NewPrinter(settings.Language)
	hosts := host.NewService(settings, log)

	if cli.RequiresNonInteractive(opts, isTTY) {
		runner := &cli.Runner{
			Store:        store,
			Hosts:        hosts,
			Actions:      cli.Actions{Out: os.Stdout, Printer: printer},
			ReadPassword: cli.TerminalPassword,
		}
		code, err := runner.Run(ctx, opts)
		if err != nil {
			printErr(err)
		}
		return code
	}

	app := tui.New(store, hosts, session.NewPasswordCache(), prompt.New(os.Stdin, os.Stdout, printer), os.Stdout)
	if err := app.Run(ctx); err != nil {
		printErr(err)
		return cli.ExitFailure
	}
	return cli.ExitSuccess
}

// applyFlags lets command-line flags win over the settings file and env.
func applyFlags(s *config.Settings, opts cli.Options) {
	if opts.V2RayConfig != "" {
		s.V2RayConfig = opts.V2RayConfig
	}
	if n, ok := cli.NormalizeNetwork(strings.ToLower(strings.TrimSpace(opts.Network))); ok && n != "" {
		s.Network = n
	} else if opts.IPv6 {
		s.Network = "ipv6"
	}
	if opts.Lang != "" {
		s.Language = opts.Lang
	}
	if opts.NoColor {
		s.NoColor = true
	}
	if opts.Verbose {
		s.LogLevel = "debug"
	}
}

func printErr(err error) {
	fmt.Fprintf(os.Stderr, "[v2util] ERROR: %v\n", err)
}

func isTerminalFile(f *os.File) bool {
	fd := f.Fd()
	if fd > uintptr(^uint(0)>>1) {
		return false
	}
	return term.IsTerminal(int(fd))
}
