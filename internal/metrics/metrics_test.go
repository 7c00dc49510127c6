package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry_OwnsItsRegistry(t *testing.T) {
	// Two registries must coexist: nothing registers globally.
	a := NewRegistry()
	b := NewRegistry()

	a.MessagesTotal.WithLabelValues("3150", "I", "heat_demand", "04:056057", "01:123456", "Office").Inc()

	got, err := testutil.GatherAndCount(a.Gatherer(), "ramses_messages_total")
	if err != nil {
		t.Fatalf("GatherAndCount error: %v", err)
	}
	if got != 1 {
		t.Errorf("registry a series count = %d, want 1", got)
	}

	got, err = testutil.GatherAndCount(b.Gatherer(), "ramses_messages_total")
	if err != nil {
		t.Fatalf("GatherAndCount error: %v", err)
	}
	if got != 0 {
		t.Errorf("registry b series count = %d, want 0", got)
	}
}

func TestRecordDeviceName_RenameReplacesSeries(t *testing.T) {
	r := NewRegistry()

	r.RecordDeviceName("04:056057", "Office TRV")
	r.RecordDeviceName("04:056057", "Study TRV")

	expected := `
# HELP ramses_device_info Known device names (always 1, name as label)
# TYPE ramses_device_info gauge
ramses_device_info{device_id="04:056057",device_name="Study TRV"} 1
`
	if err := testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "ramses_device_info"); err != nil {
		t.Errorf("unexpected series: %v", err)
	}
}

func TestRecordZoneName_RenameReplacesSeries(t *testing.T) {
	r := NewRegistry()

	r.RecordZoneName("0A", "Office")
	r.RecordZoneName("0A", "Study")

	expected := `
# HELP ramses_zone_info Known zone names (always 1, name as label)
# TYPE ramses_zone_info gauge
ramses_zone_info{zone_idx="0A",zone_name="Study"} 1
`
	if err := testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "ramses_zone_info"); err != nil {
		t.Errorf("unexpected series: %v", err)
	}
}

func TestRecordZoneName_SkipsSystemIndex(t *testing.T) {
	r := NewRegistry()

	r.RecordZoneName("00", "System")

	got, err := testutil.GatherAndCount(r.Gatherer(), "ramses_zone_info")
	if err != nil {
		t.Fatalf("GatherAndCount error: %v", err)
	}
	if got != 0 {
		t.Errorf("series count = %d, want 0 for the system index", got)
	}
}

func TestSetSystemInfo_ReplacesPreviousLabelSet(t *testing.T) {
	r := NewRegistry()

	r.SetSystemInfo(map[string]string{
		"gateway_version":   "0.52.0",
		"total_devices":     "3",
		"last_message_code": "3150",
		"last_message_verb": "I",
	})
	r.SetSystemInfo(map[string]string{
		"gateway_version":   "0.52.0",
		"total_devices":     "4",
		"last_message_code": "0004",
		"last_message_verb": "RP",
	})

	got, err := testutil.GatherAndCount(r.Gatherer(), "ramses_system_info")
	if err != nil {
		t.Fatalf("GatherAndCount error: %v", err)
	}
	if got != 1 {
		t.Errorf("series count = %d, want exactly 1", got)
	}

	expected := `
# HELP ramses_system_info Information about the RAMSES RF system
# TYPE ramses_system_info gauge
ramses_system_info{gateway_version="0.52.0",last_message_code="0004",last_message_verb="RP",total_devices="4"} 1
`
	if err := testutil.GatherAndCompare(r.Gatherer(), strings.NewReader(expected), "ramses_system_info"); err != nil {
		t.Errorf("unexpected series: %v", err)
	}
}
