// Package firewall opens and removes the iptables allow rules that expose
// the proxy's ports.
package firewall

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alfaoz/v2util/internal/execx"
	"go.uber.org/zap"
)

const (
	FamilyIPv4 = "ipv4"
	FamilyIPv6 = "ipv6"
)

var chains = []string{"INPUT", "OUTPUT"}

type Manager struct {
	Runner execx.Runner
	Family string
	Log    *zap.Logger
}

func New(r execx.Runner, family string, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{Runner: r, Family: family, Log: log}
}

// Tool is iptables for an ipv4 profile and ip6tables for anything else.
func (m *Manager) Tool() string {
	if m.Family == FamilyIPv4 {
		return "iptables"
	}
	return "ip6tables"
}

// Open inserts accept rules for every distinct port that no existing rule
// matches as dpt or spt yet. Ports that already appear are left alone, so
// repeated runs change nothing. Command failures do not stop the remaining
// ports.
func (m *Manager) Open(ctx context.Context, ports []int) ([]int, error) {
	tool := m.Tool()
	var opened []int
	var errs []error
	for _, port := range distinct(ports) {
		p := strconv.Itoa(port)
		listing, err := m.Runner.Run(ctx, tool, "-nvL", "--line-number")
		if err != nil {
			errs = append(errs, fmt.Errorf("list rules: %w", err))
		}
		if len(ruleNumbers(listing.Lines(), port)) > 0 {
			m.Log.Debug("port already has rules", zap.Int("port", port))
			continue
		}
		for _, args := range [][]string{
			{"-I", "INPUT", "-p", "tcp", "--dport", p, "-j", "ACCEPT"},
			{"-I", "INPUT", "-p", "udp", "--dport", p, "-j", "ACCEPT"},
			{"-I", "OUTPUT", "-p", "tcp", "--sport", p},
			{"-I", "OUTPUT", "-p", "udp", "--sport", p},
		} {
			if _, err := m.Runner.Run(ctx, tool, args...); err != nil {
				errs = append(errs, err)
			}
		}
		opened = append(opened, port)
	}
	return opened, errors.Join(errs...)
}

// Clean deletes every INPUT and OUTPUT rule whose dpt or spt match is port.
// Within a chain rules are deleted from the highest line number down, since
// removing a rule renumbers everything after it.
func (m *Manager) Clean(ctx context.Context, port int) (int, error) {
	tool := m.Tool()
	deleted := 0
	var errs []error
	for _, chain := range chains {
		listing, err := m.Runner.Run(ctx, tool, "-nvL", chain, "--line-number")
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s rules: %w", chain, err))
		}
		for _, n := range ruleNumbers(listing.Lines(), port) {
			if _, err := m.Runner.Run(ctx, tool, "-D", chain, strconv.Itoa(n)); err != nil {
				errs = append(errs, err)
				continue
			}
			deleted++
		}
	}
	m.Log.Debug("cleaned rules", zap.Int("port", port), zap.Int("deleted", deleted))
	return deleted, errors.Join(errs...)
}

// ruleNumbers returns the line numbers of rules matching port as dpt or spt,
// highest first. The num, pkts and bytes columns are never compared.
func ruleNumbers(lines []string, port int) []int {
	want := []string{"dpt:" + strconv.Itoa(port), "spt:" + strconv.Itoa(port)}
	var nums []int
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || !matchesPort(fields[1:], want) {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n <= 0 {
			continue
		}
		nums = append(nums, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(nums)))
	return nums
}

func matchesPort(fields, want []string) bool {
	for _, f := range fields {
		for _, w := range want {
			if f == w {
				return true
			}
		}
	}
	return false
}

func distinct(ports []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, p := range ports {
		if p <= 0 || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
