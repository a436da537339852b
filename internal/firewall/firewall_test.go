package firewall

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/alfaoz/v2util/internal/execx/execxtest"
	"go.uber.org/zap/zaptest"
)

const inputListing = `Chain INPUT (policy ACCEPT 0 packets, 0 bytes)
num   pkts bytes target     prot opt in     out     source               destination
1      120  9000 ACCEPT     all  --  lo     *       0.0.0.0/0            0.0.0.0/0
3     4410  221K ACCEPT     tcp  --  *      *       0.0.0.0/0            0.0.0.0/0            tcp dpt:443
7       12   640 ACCEPT     udp  --  *      *       0.0.0.0/0            0.0.0.0/0            udp dpt:443
12       0     0 ACCEPT     tcp  --  *      *       0.0.0.0/0            0.0.0.0/0            tcp dpt:4430
`

const outputListing = `Chain OUTPUT (policy ACCEPT 0 packets, 0 bytes)
num   pkts bytes target     prot opt in     out     source               destination
2     3900  1.2M            tcp  --  *      *       0.0.0.0/0            0.0.0.0/0            tcp spt:443
11      10   520            udp  --  *      *       0.0.0.0/0            0.0.0.0/0            udp spt:443
`

func TestToolFollowsFamily(t *testing.T) {
	if got := New(nil, FamilyIPv4, nil).Tool(); got != "iptables" {
		t.Fatalf("ipv4 tool=%q", got)
	}
	if got := New(nil, FamilyIPv6, nil).Tool(); got != "ip6tables" {
		t.Fatalf("ipv6 tool=%q", got)
	}
}

func TestCleanDeletesHighestLineFirst(t *testing.T) {
	f := execxtest.New()
	f.Respond("iptables -nvL INPUT --line-number", inputListing)
	f.Respond("iptables -nvL OUTPUT --line-number", outputListing)

	m := New(f, FamilyIPv4, zaptest.NewLogger(t))
	n, err := m.Clean(context.Background(), 443)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 deletions, got %d", n)
	}

	want := []string{
		"iptables -D INPUT 7",
		"iptables -D INPUT 3",
		"iptables -D OUTPUT 11",
		"iptables -D OUTPUT 2",
	}
	if got := f.CallsWithPrefix("iptables -D"); !reflect.DeepEqual(got, want) {
		t.Fatalf("delete order=%q want %q", got, want)
	}
}

func TestCleanUsesIP6Tables(t *testing.T) {
	f := execxtest.New()
	f.Respond("ip6tables -nvL INPUT --line-number", inputListing)

	m := New(f, FamilyIPv6, nil)
	if _, err := m.Clean(context.Background(), 4430); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if got := f.CallsWithPrefix("ip6tables -D"); !reflect.DeepEqual(got, []string{"ip6tables -D INPUT 12"}) {
		t.Fatalf("unexpected deletes %q", got)
	}
}

func TestCleanNoMatchingRules(t *testing.T) {
	f := execxtest.New()
	f.Respond("iptables -nvL INPUT --line-number", inputListing)
	n, err := New(f, FamilyIPv4, nil).Clean(context.Background(), 8080)
	if err != nil || n != 0 {
		t.Fatalf("Clean=%d,%v", n, err)
	}
	if got := f.CallsWithPrefix("iptables -D"); len(got) != 0 {
		t.Fatalf("expected no deletes, got %q", got)
	}
}

func TestRuleNumbersSortNumerically(t *testing.T) {
	lines := []string{"3 x dpt:80", "12 x dpt:80", "7 x spt:80", "Chain 80", "80 x dpt:22"}
	if got := ruleNumbers(lines, 80); !reflect.DeepEqual(got, []int{12, 7, 3}) {
		t.Fatalf("ruleNumbers=%v", got)
	}
}

const counterListing = `Chain INPUT (policy ACCEPT 0 packets, 0 bytes)
num   pkts bytes target     prot opt in     out     source               destination
1      443  9000 ACCEPT     tcp  --  *      *       0.0.0.0/0            0.0.0.0/0            tcp dpt:22
2       10   640 ACCEPT     tcp  --  *      *       0.0.0.0/0            0.0.0.0/0            tcp dpt:443
3        1   443 ACCEPT     tcp  --  *      *       0.0.0.0/0            0.0.0.0/0            tcp dpt:80
`

func TestCleanIgnoresCounterColumns(t *testing.T) {
	f := execxtest.New()
	f.Respond("iptables -nvL INPUT --line-number", counterListing)
	m := New(f, FamilyIPv4, zaptest.NewLogger(t))

	n, err := m.Clean(context.Background(), 443)
	if err != nil || n != 1 {
		t.Fatalf("Clean(443)=%d,%v", n, err)
	}
	if got := f.CallsWithPrefix("iptables -D"); !reflect.DeepEqual(got, []string{"iptables -D INPUT 2"}) {
		t.Fatalf("Clean(443) deleted %q", got)
	}
}

func TestCleanIgnoresLineNumbers(t *testing.T) {
	f := execxtest.New()
	f.Respond("iptables -nvL INPUT --line-number", counterListing)

	n, err := New(f, FamilyIPv4, nil).Clean(context.Background(), 1)
	if err != nil || n != 0 {
		t.Fatalf("Clean(1)=%d,%v", n, err)
	}
	if got := f.CallsWithPrefix("iptables -D"); len(got) != 0 {
		t.Fatalf("Clean(1) deleted %q", got)
	}
}

func TestOpenInsertsFourRulesPerPort(t *testing.T) {
	f := execxtest.New()
	m := New(f, FamilyIPv4, zaptest.NewLogger(t))

	opened, err := m.Open(context.Background(), []int{443, 80, 443})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !reflect.DeepEqual(opened, []int{80, 443}) {
		t.Fatalf("opened=%v", opened)
	}

	inserts := f.CallsWithPrefix("iptables -I")
	if len(inserts) != 8 {
		t.Fatalf("expected 8 inserts, got %d: %q", len(inserts), inserts)
	}
	want443 := []string{
		"iptables -I INPUT -p tcp --dport 443 -j ACCEPT",
		"iptables -I INPUT -p udp --dport 443 -j ACCEPT",
		"iptables -I OUTPUT -p tcp --sport 443",
		"iptables -I OUTPUT -p udp --sport 443",
	}
	if !reflect.DeepEqual(inserts[4:], want443) {
		t.Fatalf("unexpected 443 rules %q", inserts[4:])
	}
}

func TestOpenSkipsPortsWithExistingRules(t *testing.T) {
	f := execxtest.New()
	f.Respond("ip6tables -nvL --line-number", inputListing)
	m := New(f, FamilyIPv6, nil)

	opened, err := m.Open(context.Background(), []int{443, 8443})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !reflect.DeepEqual(opened, []int{8443}) {
		t.Fatalf("opened=%v", opened)
	}
	for _, c := range f.CallsWithPrefix("ip6tables -I") {
		if c == "ip6tables -I INPUT -p tcp --dport 443 -j ACCEPT" {
			t.Fatal("port 443 should have been skipped")
		}
	}
}

func TestOpenIgnoresCounterColumns(t *testing.T) {
	f := execxtest.New()
	f.Respond("iptables -nvL --line-number", counterListing)

	opened, err := New(f, FamilyIPv4, nil).Open(context.Background(), []int{1, 9000, 443})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !reflect.DeepEqual(opened, []int{1, 9000}) {
		t.Fatalf("opened=%v", opened)
	}
}

func TestOpenContinuesAfterFailure(t *testing.T) {
	f := execxtest.New()
	boom := errors.New("boom")
	f.Errors["iptables -I INPUT -p udp --dport 80 -j ACCEPT"] = boom

	_, err := New(f, FamilyIPv4, nil).Open(context.Background(), []int{80})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined failure, got %v", err)
	}
	if got := len(f.CallsWithPrefix("iptables -I")); got != 4 {
		t.Fatalf("expected all 4 inserts attempted, got %d", got)
	}
}
