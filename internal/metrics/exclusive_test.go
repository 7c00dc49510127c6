package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ramses-exporter/internal/domain"
)

func testModeVec() *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "test_mode_info", Help: "test"},
		[]string{"zone_idx", "mode"},
	)
}

func TestSetExclusive_SingleCurrentValue(t *testing.T) {
	vec := testModeVec()
	group := prometheus.Labels{"zone_idx": "0A"}

	SetExclusive(vec, group, "mode", domain.ZoneModes, "temporary_override")

	for _, mode := range domain.ZoneModes {
		want := 0.0
		if mode == "temporary_override" {
			want = 1.0
		}
		got := testutil.ToFloat64(vec.WithLabelValues("0A", mode))
		if got != want {
			t.Errorf("mode %q = %v, want %v", mode, got, want)
		}
	}
}

func TestSetExclusive_ModeChangeClearsPrevious(t *testing.T) {
	vec := testModeVec()
	group := prometheus.Labels{"zone_idx": "0A"}

	SetExclusive(vec, group, "mode", domain.ZoneModes, "temporary_override")
	SetExclusive(vec, group, "mode", domain.ZoneModes, "follow_schedule")

	if got := testutil.ToFloat64(vec.WithLabelValues("0A", "temporary_override")); got != 0 {
		t.Errorf("previous mode = %v, want 0", got)
	}
	if got := testutil.ToFloat64(vec.WithLabelValues("0A", "follow_schedule")); got != 1 {
		t.Errorf("current mode = %v, want 1", got)
	}
}

func TestSetExclusive_GroupsAreIndependent(t *testing.T) {
	vec := testModeVec()

	SetExclusive(vec, prometheus.Labels{"zone_idx": "0A"}, "mode", domain.ZoneModes, "off")
	SetExclusive(vec, prometheus.Labels{"zone_idx": "0B"}, "mode", domain.ZoneModes, "countdown")

	if got := testutil.ToFloat64(vec.WithLabelValues("0A", "off")); got != 1 {
		t.Errorf("zone 0A off = %v, want 1", got)
	}
	if got := testutil.ToFloat64(vec.WithLabelValues("0B", "countdown")); got != 1 {
		t.Errorf("zone 0B countdown = %v, want 1", got)
	}
	if got := testutil.ToFloat64(vec.WithLabelValues("0B", "off")); got != 0 {
		t.Errorf("zone 0B off = %v, want 0", got)
	}
}

func TestSetExclusive_ValueOutsideEnumStillVisible(t *testing.T) {
	vec := testModeVec()
	group := prometheus.Labels{"zone_idx": "0A"}

	SetExclusive(vec, group, "mode", domain.ZoneModes, "firmware_special")

	if got := testutil.ToFloat64(vec.WithLabelValues("0A", "firmware_special")); got != 1 {
		t.Errorf("out-of-enum mode = %v, want 1", got)
	}
	for _, mode := range domain.ZoneModes {
		if got := testutil.ToFloat64(vec.WithLabelValues("0A", mode)); got != 0 {
			t.Errorf("mode %q = %v, want 0", mode, got)
		}
	}
}
