package cli

import (
	"fmt"

	"github.com/spf13/pflag"
)

type Options struct {
	Action       string
	Port         int
	Domain       string
	IPv6         bool
	Raw          bool
	Stream       string
	Listen       string
	V2RayConfig  string
	SettingsPath string
	Network      string
	Host         string
	TargetName   string
	ListTargets  bool
	SaveTarget   string
	SSHPort      int
	SSHUser      string
	SSHPassword  string
	Lang         string
	NoColor      bool
	Verbose      bool
	VersionOnly  bool
	Help         bool
	RawArgs      []string

	// flags given explicitly on the command line
	set map[string]bool
}

func DefaultOptions() Options {
	return Options{
		SSHPort: 22,
		SSHUser: "root",
		Listen:  "127.0.0.1:1080",
		set:     map[string]bool{},
	}
}

func Parse(args []string) (Options, error) {
	opts := DefaultOptions()
	fs := pflag.NewFlagSet("v2util", pflag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.StringVar(&opts.Action, "action", "", "ip|port-check|open-port|clean-port|traffic|cert|streams|profile|tunnel")
	fs.IntVar(&opts.Port, "port", 0, "Port for port-check, clean-port and traffic")
	fs.StringVar(&opts.Domain, "domain", "", "Domain for cert")
	fs.BoolVar(&opts.IPv6, "ipv6", false, "Count ip6tables traffic")
	fs.BoolVar(&opts.Raw, "raw", false, "Print raw byte counts")
	fs.StringVar(&opts.Stream, "stream", "", "Stream type to describe for streams")
	fs.StringVar(&opts.Listen, "listen", opts.Listen, "Local SOCKS5 address for tunnel")
	fs.StringVar(&opts.V2RayConfig, "config", "", "V2Ray server config path")
	fs.StringVar(&opts.SettingsPath, "settings", "", "v2util settings file")
	fs.StringVar(&opts.Network, "network", "", "ipv4 or ipv6")
	fs.StringVar(&opts.Host, "host", "", "Remote host or IP")
	fs.StringVar(&opts.TargetName, "target", "", "Use saved target")
	fs.BoolVar(&opts.ListTargets, "list-targets", false, "List saved targets")
	fs.StringVar(&opts.SaveTarget, "save-target", "", "Save --host details under this name")
	fs.IntVar(&opts.SSHPort, "ssh-port", opts.SSHPort, "SSH port")
	fs.StringVar(&opts.SSHUser, "ssh-user", opts.SSHUser, "SSH user")
	fs.StringVar(&opts.SSHPassword, "ssh-password", "", "SSH password")
	fs.StringVar(&opts.Lang, "lang", "", "Message language (en, zh)")
	fs.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Log every command")
	fs.BoolVar(&opts.VersionOnly, "version", false, "Print version")
	fs.BoolVarP(&opts.Help, "help", "h", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *pflag.Flag) { opts.set[f.Name] = true })
	opts.RawArgs = fs.Args()
	if len(opts.RawArgs) > 0 {
		return opts, fmt.Errorf("unknown arguments: %v", opts.RawArgs)
	}

	return opts, nil
}

// Changed reports whether the named flag was given.
func (o Options) Changed(name string) bool { return o.set[name] }

func NormalizeAction(v string) (string, bool) {
	switch v {
	case "", "ip", "port-check", "open-port", "clean-port", "traffic", "cert", "streams", "profile", "tunnel":
		return v, true
	case "check-port":
		return "port-check", true
	case "clean", "clean-iptables":
		return "clean-port", true
	case "open", "open-ports":
		return "open-port", true
	default:
		return "", false
	}
}

func NormalizeNetwork(v string) (string, bool) {
	switch v {
	case "", "ipv4", "ipv6":
		return v, true
	case "4", "v4":
		return "ipv4", true
	case "6", "v6":
		return "ipv6", true
	default:
		return "", false
	}
}
