package traffic

import (
	"context"
	"testing"

	"github.com/alfaoz/v2util/internal/colorstr"
	"github.com/alfaoz/v2util/internal/execx/execxtest"
)

func newAccountant(f *execxtest.Fake) *Accountant {
	a := NewAccountant(f, nil)
	a.ScriptPath = "/tmp/traffic.sh"
	return a
}

func TestMeasureParsesCounters(t *testing.T) {
	f := execxtest.New()
	f.Respond("bash /tmp/traffic.sh 443 ''", "1536 1073741824 1073743360\n")

	s, err := newAccountant(f).Measure(context.Background(), 443, false)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if s == nil || s.Upload != 1536 || s.Download != 1073741824 || s.Total != 1073743360 {
		t.Fatalf("unexpected sample %+v", s)
	}
	if string(f.Files["/tmp/traffic.sh"]) != Script {
		t.Fatal("expected script staged before running")
	}
	if got := f.CallsWithPrefix("rm -f /tmp/traffic.sh"); len(got) != 1 {
		t.Fatalf("expected staged script removed, calls=%q", f.Calls)
	}
}

func TestMeasureIPv6Flag(t *testing.T) {
	f := execxtest.New()
	f.Respond("bash /tmp/traffic.sh 8443 1", "1 2 3")
	s, err := newAccountant(f).Measure(context.Background(), 8443, true)
	if err != nil || s == nil || s.Total != 3 {
		t.Fatalf("Measure=%+v,%v", s, err)
	}
}

func TestMeasureNoOutput(t *testing.T) {
	f := execxtest.New()
	s, err := newAccountant(f).Measure(context.Background(), 443, false)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil sample, got %+v", s)
	}
}

func TestMeasureRejectsGarbage(t *testing.T) {
	f := execxtest.New()
	f.Respond("bash /tmp/traffic.sh 443 ''", "1 two 3")
	if _, err := newAccountant(f).Measure(context.Background(), 443, false); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMeasurePorts(t *testing.T) {
	f := execxtest.New()
	f.Respond("bash /tmp/traffic.sh 80 ''", "10 20 30")
	f.Respond("bash /tmp/traffic.sh 443 ''", "1 2 3")

	samples, err := newAccountant(f).MeasurePorts(context.Background(), []int{443, 8080, 80, 443}, false)
	if err != nil {
		t.Fatalf("MeasurePorts: %v", err)
	}
	if len(samples) != 2 || samples[0].Port != 80 || samples[1].Port != 443 {
		t.Fatalf("unexpected samples %+v", samples)
	}
	if got := len(f.CallsWithPrefix("bash ")); got != 3 {
		t.Fatalf("expected 3 script runs, got %d", got)
	}
}

func TestSampleFormat(t *testing.T) {
	s := Sample{Port: 443, Upload: 1536, Download: 1073741824, Total: 0}
	want := colorstr.Green("443") + ":  upload:" + colorstr.Cyan("1.5 KB") +
		" download:" + colorstr.Cyan("1.0 GB") + " total:" + colorstr.Cyan("0.0 bytes")
	if got := s.Format(); got != want {
		t.Fatalf("Format()=%q want %q", got, want)
	}

	colorstr.SetEnabled(false)
	defer colorstr.SetEnabled(true)
	if got := s.FormatRaw(); got != "443:  upload:1,536 download:1,073,741,824 total:0 bytes" {
		t.Fatalf("FormatRaw()=%q", got)
	}
}
