// Package metrics owns every Prometheus series the exporter exposes: the
// metric names, help text, label schemas, and histogram buckets. The registry
// is an explicit object constructed once at startup and injected into the
// dispatcher; nothing registers into the default global registry.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ramses-exporter/internal/domain"
)

// Registry holds the exporter's metric set over a dedicated Prometheus
// registry. Series names and label schemas are fixed: existing dashboards
// and alerts are built against them.
type Registry struct {
	registry *prometheus.Registry

	// Generic message metrics.
	MessagesTotal        *prometheus.CounterVec
	MessageTypesTotal    *prometheus.CounterVec
	DeviceCommunications *prometheus.CounterVec
	MessageErrors        *prometheus.CounterVec
	ProcessingDuration   prometheus.Histogram
	PayloadSize          prometheus.Histogram
	ActiveDevices        prometheus.Gauge
	LastMessageTimestamp prometheus.Gauge
	MessageRate          prometheus.Gauge

	// System info is emitted as a single always-1 series whose labels carry
	// the values; updating it replaces the previous label set.
	systemInfo       *prometheus.GaugeVec
	systemInfoMu     sync.Mutex
	systemInfoLabels prometheus.Labels

	// Identity series: emitted only when a real name is known, never with
	// the "unknown" sentinel, so never-named ids produce no series at all.
	DeviceNameInfo *prometheus.GaugeVec
	ZoneNameInfo   *prometheus.GaugeVec

	// Per-device state.
	DeviceTemperature *prometheus.GaugeVec
	DeviceLastSeen    *prometheus.GaugeVec
	DeviceSetpoint    *prometheus.GaugeVec

	// Per-zone state.
	ZoneWindowOpen *prometheus.GaugeVec
	ZoneMode       *prometheus.GaugeVec
	HeatDemand     *prometheus.GaugeVec

	// System sync.
	SystemSyncRemaining *prometheus.GaugeVec
	SystemSyncTimestamp *prometheus.GaugeVec

	// Communications fault tracking from the controller fault log.
	CommsFaultTotal         *prometheus.CounterVec
	CommsFaultState         *prometheus.GaugeVec
	CommsFaultLastTimestamp *prometheus.GaugeVec

	// Boiler-class device metrics.
	BoilerMessagesSent     *prometheus.CounterVec
	BoilerMessagesReceived *prometheus.CounterVec
	BoilerLastSeen         *prometheus.GaugeVec
	BoilerLastContacted    *prometheus.GaugeVec
	BoilerSetpoint         *prometheus.GaugeVec
	BoilerModulationLevel  *prometheus.GaugeVec
	BoilerFlameActive      *prometheus.GaugeVec
	BoilerCHActive         *prometheus.GaugeVec
	BoilerDHWActive        *prometheus.GaugeVec

	// Domestic hot water metrics.
	DHWTemperature *prometheus.GaugeVec
	DHWSetpoint    *prometheus.GaugeVec
	DHWActive      *prometheus.GaugeVec
	DHWMode        *prometheus.GaugeVec
}

// NewRegistry creates the registry and registers every metric. Registration
// happens exactly once here; a name or label-schema collision is a
// programming error and panics via promauto.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Registry{registry: reg}

	r.MessagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramses_messages_total",
			Help: "Total number of RAMSES messages received",
		},
		[]string{"message_type", "verb", "code", "source_device", "destination_device", "zone_name"},
	)

	r.MessageTypesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramses_message_types_total",
			Help: "Total number of messages by type",
		},
		[]string{"code", "code_name", "verb"},
	)

	r.DeviceCommunications = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramses_device_communications_total",
			Help: "Total number of communications between devices",
		},
		[]string{"source_device", "destination_device", "verb"},
	)

	r.ActiveDevices = factory.NewGauge(prometheus.GaugeOpts{
		Name: "ramses_active_devices",
		Help: "Number of active devices in the system",
	})

	r.LastMessageTimestamp = factory.NewGauge(prometheus.GaugeOpts{
		Name: "ramses_last_message_timestamp",
		Help: "Timestamp of the last message received",
	})

	r.MessageRate = factory.NewGauge(prometheus.GaugeOpts{
		Name: "ramses_message_rate",
		Help: "Messages per second over the last minute",
	})

	r.ProcessingDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "ramses_message_processing_duration_seconds",
		Help:    "Time spent processing messages",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})

	r.systemInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_system_info",
			Help: "Information about the RAMSES RF system",
		},
		[]string{"gateway_version", "total_devices", "last_message_code", "last_message_verb"},
	)

	r.MessageErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramses_message_errors_total",
			Help: "Total number of message processing errors",
		},
		[]string{"error_type"},
	)

	r.CommsFaultTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramses_comms_fault_total",
			Help: "Total number of communications faults detected",
		},
		[]string{"device_id", "device_type", "zone_idx", "event_type"},
	)

	r.CommsFaultState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_comms_fault_state",
			Help: "Current communications fault state (0=ok, 1=fault)",
		},
		[]string{"device_id", "device_type", "zone_idx"},
	)

	r.CommsFaultLastTimestamp = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_comms_fault_last_timestamp",
			Help: "Unix timestamp of the last communications fault event",
		},
		[]string{"device_id", "device_type", "zone_idx", "event_type"},
	)

	r.PayloadSize = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "ramses_message_payload_size_bytes",
		Help:    "Size of message payloads",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000},
	})

	r.DeviceNameInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_device_info",
			Help: "Known device names (always 1, name as label)",
		},
		[]string{"device_id", "device_name"},
	)

	r.ZoneNameInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_zone_info",
			Help: "Known zone names (always 1, name as label)",
		},
		[]string{"zone_idx", "zone_name"},
	)

	r.DeviceTemperature = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_device_temperature_celsius",
			Help: "Temperature reading per device in Celsius",
		},
		[]string{"device_id", "device_name", "zone_name"},
	)

	r.DeviceLastSeen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_device_last_seen_timestamp",
			Help: "Unix timestamp of the last message received from each device",
		},
		[]string{"device_id", "device_name", "zone_name"},
	)

	r.DeviceSetpoint = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_device_setpoint_celsius",
			Help: "Target temperature setpoint per device or zone in Celsius",
		},
		[]string{"device_id", "device_name", "zone_idx", "zone_name"},
	)

	r.ZoneWindowOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_zone_window_open",
			Help: "Window open state per zone (0 = closed, 1 = open)",
		},
		[]string{"device_id", "device_name", "zone_idx", "zone_name"},
	)

	r.ZoneMode = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_zone_mode_info",
			Help: "Zone mode information (always 1, mode as label)",
		},
		[]string{"device_id", "device_name", "zone_idx", "zone_name", "mode"},
	)

	r.HeatDemand = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_heat_demand",
			Help: "Heat demand per zone or system (0.0 to 1.0 representing 0-100%)",
		},
		[]string{"device_id", "device_name", "zone_idx", "zone_name"},
	)

	r.SystemSyncRemaining = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_system_sync_remaining_seconds",
			Help: "Seconds remaining until next system sync cycle",
		},
		[]string{"device_id", "device_name", "zone_name"},
	)

	r.SystemSyncTimestamp = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_system_sync_last_timestamp",
			Help: "Unix timestamp of the last system sync message received",
		},
		[]string{"device_id", "device_name", "zone_name"},
	)

	r.BoilerMessagesSent = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramses_boiler_messages_sent_total",
			Help: "Total number of messages sent to boilers",
		},
		[]string{"boiler_id", "boiler_name", "message_code", "message_type"},
	)

	r.BoilerMessagesReceived = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ramses_boiler_messages_received_total",
			Help: "Total number of messages received from boilers",
		},
		[]string{"boiler_id", "boiler_name", "message_code", "message_type"},
	)

	r.BoilerLastSeen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_boiler_last_seen_timestamp",
			Help: "Unix timestamp of the last message from this boiler",
		},
		[]string{"boiler_id", "boiler_name"},
	)

	r.BoilerLastContacted = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_boiler_last_contacted_timestamp",
			Help: "Unix timestamp of the last message sent to this boiler",
		},
		[]string{"boiler_id", "boiler_name"},
	)

	r.BoilerSetpoint = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_boiler_setpoint_celsius",
			Help: "Current boiler setpoint temperature in Celsius",
		},
		[]string{"boiler_id", "boiler_name"},
	)

	r.BoilerModulationLevel = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_boiler_modulation_level",
			Help: "Current boiler modulation level (0.0 to 1.0 representing 0-100%)",
		},
		[]string{"boiler_id", "boiler_name"},
	)

	r.BoilerFlameActive = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_boiler_flame_active",
			Help: "Boiler flame status (0 = off, 1 = on)",
		},
		[]string{"boiler_id", "boiler_name"},
	)

	r.BoilerCHActive = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_boiler_ch_active",
			Help: "Central heating active status (0 = off, 1 = on)",
		},
		[]string{"boiler_id", "boiler_name"},
	)

	r.BoilerDHWActive = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_boiler_dhw_active",
			Help: "Domestic hot water active status (0 = off, 1 = on)",
		},
		[]string{"boiler_id", "boiler_name"},
	)

	r.DHWTemperature = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_dhw_temperature_celsius",
			Help: "DHW temperature reading in Celsius",
		},
		[]string{"dhw_idx", "controller_id", "controller_name"},
	)

	r.DHWSetpoint = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_dhw_setpoint_celsius",
			Help: "DHW setpoint temperature in Celsius",
		},
		[]string{"dhw_idx", "controller_id", "controller_name"},
	)

	r.DHWActive = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_dhw_active",
			Help: "DHW demand/active state (0 = off, 1 = on)",
		},
		[]string{"dhw_idx", "controller_id", "controller_name"},
	)

	r.DHWMode = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ramses_dhw_mode_info",
			Help: "DHW mode information (always 1, mode as label)",
		},
		[]string{"dhw_idx", "controller_id", "controller_name", "mode"},
	)

	return r
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns the HTTP handler serving the scrape endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// SetSystemInfo replaces the ramses_system_info series with a new label set.
// The previous series is deleted first so stale info never lingers.
func (r *Registry) SetSystemInfo(labels prometheus.Labels) {
	r.systemInfoMu.Lock()
	defer r.systemInfoMu.Unlock()

	if r.systemInfoLabels != nil {
		r.systemInfo.Delete(r.systemInfoLabels)
	}
	r.systemInfo.With(labels).Set(1)
	r.systemInfoLabels = labels
}

// RecordDeviceName emits the device identity series for a real name. Renames
// delete the stale series so each device id maps to exactly one name.
func (r *Registry) RecordDeviceName(deviceID, name string) {
	r.DeviceNameInfo.DeletePartialMatch(prometheus.Labels{"device_id": deviceID})
	r.DeviceNameInfo.WithLabelValues(deviceID, name).Set(1)
}

// RecordZoneName emits the zone identity series for a real name. The
// reserved system-wide index never gets an identity series: it is not a
// zone, it is the absence of one.
func (r *Registry) RecordZoneName(zoneIdx, name string) {
	if zoneIdx == domain.SystemZoneIdx {
		return
	}
	r.ZoneNameInfo.DeletePartialMatch(prometheus.Labels{"zone_idx": zoneIdx})
	r.ZoneNameInfo.WithLabelValues(zoneIdx, name).Set(1)
}
