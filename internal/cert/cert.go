// Package cert issues TLS certificates with acme.sh in standalone mode.
package cert

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/alfaoz/v2util/internal/execx"
	"github.com/asaskevich/govalidator"
	"go.uber.org/zap"
)

const (
	DefaultAcmeHome = "/root/.acme.sh"
	InstallCommand  = "curl https://get.acme.sh | sh"
	dockerMarker    = "/.dockerenv"
)

// DefaultWebServices are stopped while acme.sh holds port 80.
var DefaultWebServices = []string{"nginx", "httpd", "apache2"}

var ErrInvalidDomain = errors.New("invalid domain")

type Certificate struct {
	Domain   string
	CertFile string
	KeyFile  string
}

type Issuer struct {
	Runner      execx.Runner
	Log         *zap.Logger
	AcmeHome    string
	WebServices []string
}

func NewIssuer(r execx.Runner, log *zap.Logger) *Issuer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Issuer{
		Runner:      r,
		Log:         log,
		AcmeHome:    DefaultAcmeHome,
		WebServices: append([]string(nil), DefaultWebServices...),
	}
}

func (i *Issuer) script() string { return path.Join(i.AcmeHome, "acme.sh") }

// Issue obtains an ECDSA P-256 certificate for domain. Web servers that may
// hold port 80 are stopped for the duration and started again afterwards,
// except inside a container. Nothing is rolled back if issuance fails.
func (i *Issuer) Issue(ctx context.Context, domain string) (Certificate, error) {
	domain = strings.TrimSpace(domain)
	if !govalidator.IsDNSName(domain) || govalidator.IsIP(domain) {
		return Certificate{}, fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}

	installed, err := i.Runner.Exists(i.script())
	if err != nil {
		return Certificate{}, fmt.Errorf("check acme.sh: %w", err)
	}
	if !installed {
		i.Log.Info("installing acme.sh")
		if _, err := i.Runner.Shell(ctx, InstallCommand); err != nil {
			return Certificate{}, fmt.Errorf("install acme.sh: %w", err)
		}
	}

	containerized, err := i.Runner.Exists(dockerMarker)
	if err != nil {
		return Certificate{}, fmt.Errorf("check container marker: %w", err)
	}
	if !containerized {
		i.systemctl(ctx, "stop")
	}
	_, issueErr := i.Runner.Run(ctx, "bash", i.script(),
		"--issue", "-d", domain, "--debug", "--standalone", "--keylength", "ec-256")
	if !containerized {
		i.systemctl(ctx, "start")
	}
	if issueErr != nil {
		return Certificate{}, fmt.Errorf("issue certificate for %s: %w", domain, issueErr)
	}

	dir := path.Join(i.AcmeHome, domain+"_ecc")
	return Certificate{
		Domain:   domain,
		CertFile: path.Join(dir, "fullchain.cer"),
		KeyFile:  path.Join(dir, domain+".key"),
	}, nil
}

// systemctl failures are expected for services that are not installed.
func (i *Issuer) systemctl(ctx context.Context, verb string) {
	for _, name := range i.WebServices {
		if _, err := i.Runner.Run(ctx, "systemctl", verb, name); err != nil {
			i.Log.Debug("systemctl", zap.String("verb", verb), zap.String("service", name), zap.Error(err))
		}
	}
}
