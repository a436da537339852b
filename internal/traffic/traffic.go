// Package traffic reads per-port byte counters kept by the packet filter.
package traffic

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alfaoz/v2util/internal/colorstr"
	"github.com/alfaoz/v2util/internal/execx"
	"github.com/alfaoz/v2util/internal/units"
	"go.uber.org/zap"
)

type Sample struct {
	Port     int
	Upload   int64
	Download int64
	Total    int64
}

// Format renders the sample for the terminal, e.g.
// "443:  upload:1.5 MB download:20.0 MB total:21.5 MB" with the port in
// green and the amounts in cyan.
func (s Sample) Format() string {
	return fmt.Sprintf("%s:  upload:%s download:%s total:%s",
		colorstr.Green(strconv.Itoa(s.Port)),
		colorstr.Cyan(units.MustHumanBytes(s.Upload, 2)),
		colorstr.Cyan(units.MustHumanBytes(s.Download, 2)),
		colorstr.Cyan(units.MustHumanBytes(s.Total, 2)),
	)
}

// FormatRaw renders exact byte counts.
func (s Sample) FormatRaw() string {
	return fmt.Sprintf("%s:  upload:%s download:%s total:%s bytes",
		colorstr.Green(strconv.Itoa(s.Port)),
		units.Comma(s.Upload), units.Comma(s.Download), units.Comma(s.Total))
}

type Accountant struct {
	Runner execx.Runner
	Log    *zap.Logger
	// ScriptPath is where the counter script is staged on the host.
	ScriptPath string
}

func NewAccountant(r execx.Runner, log *zap.Logger) *Accountant {
	if log == nil {
		log = zap.NewNop()
	}
	return &Accountant{
		Runner:     r,
		Log:        log,
		ScriptPath: fmt.Sprintf("/tmp/v2util-traffic-%d.sh", time.Now().UnixNano()),
	}
}

// Measure returns the counters for port, or nil when the packet filter has
// none for it yet.
func (a *Accountant) Measure(ctx context.Context, port int, ipv6 bool) (*Sample, error) {
	if err := a.stage(); err != nil {
		return nil, err
	}
	defer a.Runner.Run(ctx, "rm", "-f", a.ScriptPath)
	return a.measure(ctx, port, ipv6)
}

// MeasurePorts measures every distinct port in ascending order, skipping
// ports without counters.
func (a *Accountant) MeasurePorts(ctx context.Context, ports []int, ipv6 bool) ([]Sample, error) {
	if err := a.stage(); err != nil {
		return nil, err
	}
	defer a.Runner.Run(ctx, "rm", "-f", a.ScriptPath)

	sorted := append([]int(nil), ports...)
	sort.Ints(sorted)
	var out []Sample
	last := -1
	for _, port := range sorted {
		if port == last {
			continue
		}
		last = port
		s, err := a.measure(ctx, port, ipv6)
		if err != nil {
			return out, err
		}
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (a *Accountant) stage() error {
	if err := a.Runner.Upload([]byte(Script), a.ScriptPath, 0o700); err != nil {
		return fmt.Errorf("stage traffic script: %w", err)
	}
	return nil
}

func (a *Accountant) measure(ctx context.Context, port int, ipv6 bool) (*Sample, error) {
	flag := ""
	if ipv6 {
		flag = "1"
	}
	res, err := a.Runner.Run(ctx, "bash", a.ScriptPath, strconv.Itoa(port), flag)
	if err != nil {
		return nil, fmt.Errorf("traffic script for port %d: %w", port, err)
	}
	lines := res.Lines()
	if len(lines) == 0 {
		a.Log.Debug("no counters", zap.Int("port", port))
		return nil, nil
	}
	return parseSample(port, lines[0])
}

func parseSample(port int, line string) (*Sample, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("unexpected traffic output %q", line)
	}
	var vals [3]int64
	for i := range vals {
		v, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse traffic counter %q: %w", fields[i], err)
		}
		if v < 0 {
			return nil, fmt.Errorf("negative traffic counter %d", v)
		}
		vals[i] = v
	}
	return &Sample{Port: port, Upload: vals[0], Download: vals[1], Total: vals[2]}, nil
}
