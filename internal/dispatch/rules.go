package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"

	"ramses-exporter/internal/domain"
	"ramses-exporter/internal/metrics"
)

// rule is one kind-specific extraction rule. A rule triggers on the presence
// of its fields in the payload (field names recur across kinds, so presence
// is the primary trigger) and optionally on a kind gate matching either the
// raw code or its code-name. Rules are evaluated in fixed order against
// every structured payload; each swallows its own conversion failures.
type rule struct {
	name   string
	fields []string
	kinds  []string
	handle func(d *Dispatcher, ev *domain.Event, p domain.Map)
}

// matches reports whether the rule applies to this event.
func (r *rule) matches(ev *domain.Event, p domain.Map) bool {
	for _, f := range r.fields {
		if !p.Has(f) {
			return false
		}
	}
	if len(r.kinds) == 0 {
		return true
	}
	codeName := domain.CodeName(ev.Kind)
	for _, k := range r.kinds {
		if ev.Kind == k || codeName == k {
			return true
		}
	}
	return false
}

// extractionRules builds the ordered rule table.
func extractionRules() []rule {
	return []rule{
		{name: "zone_name", fields: []string{"zone_idx", "name"}, kinds: []string{"0004", "zone_name"}, handle: extractZoneName},
		{name: "zone_devices", fields: []string{"zone_idx", "device_role"}, kinds: []string{"000C", "zone_devices"}, handle: extractZoneDevices},
		{name: "temperature", fields: []string{"temperature"}, handle: extractTemperature},
		{name: "setpoint", fields: []string{"setpoint"}, handle: extractSetpoint},
		{name: "window_open", fields: []string{"window_open"}, handle: extractWindowOpen},
		{name: "zone_mode", fields: []string{"mode"}, handle: extractZoneMode},
		{name: "heat_demand", fields: []string{"heat_demand"}, handle: extractHeatDemand},
		{name: "system_sync", fields: []string{"remaining_seconds"}, handle: extractSystemSync},
		{name: "fault_log", fields: []string{"log_entry"}, handle: extractFaultLog},
		{name: "boiler_setpoint", fields: []string{"setpoint"}, kinds: []string{"22D9", "boiler_setpoint"}, handle: extractBoilerSetpoint},
		{name: "boiler_status", kinds: []string{"3EF0", "3EF1", "actuator_state", "actuator_cycle"}, handle: extractBoilerStatus},
		{name: "dhw_temp", fields: []string{"temperature"}, kinds: []string{"1260", "dhw_temp"}, handle: extractDHWTemp},
		{name: "dhw_params", fields: []string{"setpoint"}, kinds: []string{"10A0", "dhw_params"}, handle: extractDHWParams},
		{name: "dhw_mode", kinds: []string{"1F41", "dhw_mode"}, handle: extractDHWMode},
	}
}

// extractZoneName learns zone names directly from zone_name messages rather
// than depending on a pre-configured topology.
func extractZoneName(d *Dispatcher, _ *domain.Event, p domain.Map) {
	zoneIdx, _ := p.String("zone_idx")
	name, _ := p.String("name")
	if zoneIdx == "" || name == "" {
		return
	}
	d.recordZoneName(zoneIdx, name)
	d.logger.Debug("captured zone name", "zone_idx", zoneIdx, "name", name)
}

// extractZoneDevices tracks which devices play which role in which zone. An
// absent device list is a valid empty roster.
func extractZoneDevices(d *Dispatcher, _ *domain.Event, p domain.Map) {
	zoneIdx, _ := p.String("zone_idx")
	role, _ := p.String("device_role")
	if zoneIdx == "" || role == "" {
		return
	}
	devices, _ := p.StringList("devices")
	d.zones.SetRole(zoneIdx, role, devices)
	d.logger.Debug("captured zone devices", "zone_idx", zoneIdx, "role", role, "devices", devices)
}

func extractTemperature(d *Dispatcher, ev *domain.Event, p domain.Map) {
	temperature, ok := p.Float("temperature")
	if !ok {
		d.logger.Warn("could not parse temperature from payload", "event_id", ev.ID, "value", p["temperature"])
		return
	}
	src := ev.Source()
	deviceName := d.resolver.DeviceName(src)
	zoneName := domain.Unknown
	if zoneIdx := d.resolver.ZoneOfDevice(src); zoneIdx != domain.Unknown {
		zoneName = d.resolver.ZoneName(zoneIdx)
	}
	d.metrics.DeviceTemperature.WithLabelValues(src, deviceName, zoneName).Set(temperature)
}

func extractSetpoint(d *Dispatcher, ev *domain.Event, p domain.Map) {
	setpoint, ok := p.Float("setpoint")
	if !ok {
		d.logger.Warn("could not parse setpoint from payload", "event_id", ev.ID, "value", p["setpoint"])
		return
	}
	src := ev.Source()
	zoneIdx := p.StringOr("zone_idx", domain.SystemZoneIdx)
	deviceName := d.resolver.DeviceName(src)
	zoneName := d.resolver.ZoneName(zoneIdx)
	d.metrics.DeviceSetpoint.WithLabelValues(src, deviceName, zoneIdx, zoneName).Set(setpoint)
}

func extractWindowOpen(d *Dispatcher, ev *domain.Event, p domain.Map) {
	open, ok := p.Bool("window_open")
	if !ok {
		d.logger.Warn("could not parse window state from payload", "event_id", ev.ID, "value", p["window_open"])
		return
	}
	src := ev.Source()
	zoneIdx := p.StringOr("zone_idx", domain.SystemZoneIdx)
	deviceName := d.resolver.DeviceName(src)
	zoneName := d.resolver.ZoneName(zoneIdx)
	d.metrics.ZoneWindowOpen.WithLabelValues(src, deviceName, zoneIdx, zoneName).Set(boolGauge(open))
}

// extractZoneMode applies the exclusive-set pattern: every non-current mode
// series for the label group is zeroed before the current mode is set to 1,
// since the substrate has no delete and stale modes would persist forever.
func extractZoneMode(d *Dispatcher, ev *domain.Event, p domain.Map) {
	mode, ok := p.String("mode")
	if !ok {
		d.logger.Warn("could not parse zone mode from payload", "event_id", ev.ID, "value", p["mode"])
		return
	}
	src := ev.Source()
	zoneIdx := p.StringOr("zone_idx", domain.SystemZoneIdx)
	deviceName := d.resolver.DeviceName(src)
	zoneName := d.resolver.ZoneName(zoneIdx)

	metrics.SetExclusive(d.metrics.ZoneMode, prometheus.Labels{
		"device_id":   src,
		"device_name": deviceName,
		"zone_idx":    zoneIdx,
		"zone_name":   zoneName,
	}, "mode", domain.ZoneModes, mode)
}

// extractHeatDemand handles both zone-specific and system-wide demand: an
// explicit zone index wins, then a domain identifier, then the reserved
// system-wide index.
func extractHeatDemand(d *Dispatcher, ev *domain.Event, p domain.Map) {
	demand, ok := p.Float("heat_demand")
	if !ok {
		d.logger.Warn("could not parse heat demand from payload", "event_id", ev.ID, "value", p["heat_demand"])
		return
	}
	src := ev.Source()
	zoneIdx := p.StringOr("zone_idx", p.StringOr("domain_id", domain.SystemZoneIdx))
	deviceName := d.resolver.DeviceName(src)
	zoneName := d.resolver.ZoneName(zoneIdx)
	d.metrics.HeatDemand.WithLabelValues(src, deviceName, zoneIdx, zoneName).Set(demand)
}

// extractSystemSync records the countdown to the next sync cycle. This is a
// device-level announcement: no zone index on the labels.
func extractSystemSync(d *Dispatcher, ev *domain.Event, p domain.Map) {
	remaining, ok := p.Float("remaining_seconds")
	if !ok {
		d.logger.Warn("could not parse system sync from payload", "event_id", ev.ID, "value", p["remaining_seconds"])
		return
	}
	src := ev.Source()
	deviceName := d.resolver.DeviceName(src)
	zoneName := domain.Unknown
	if zoneIdx := d.resolver.ZoneOfDevice(src); zoneIdx != domain.Unknown {
		zoneName = d.resolver.ZoneName(zoneIdx)
	}

	now := float64(d.now().UnixNano()) / 1e9
	d.metrics.SystemSyncRemaining.WithLabelValues(src, deviceName, zoneName).Set(remaining)
	d.metrics.SystemSyncTimestamp.WithLabelValues(src, deviceName, zoneName).Set(now)
}

// extractFaultLog tracks communications faults from controller fault log
// entries. Metrics are keyed by the device named in the log entry, not the
// event's own source or destination.
func extractFaultLog(d *Dispatcher, ev *domain.Event, p domain.Map) {
	raw, ok := p.List("log_entry")
	if !ok {
		d.logger.Warn("could not parse fault log entry from payload", "event_id", ev.ID, "value", p["log_entry"])
		return
	}
	entry, err := domain.ParseFaultLogEntry(raw)
	if err != nil {
		d.logger.Warn("could not parse fault log entry from payload", "event_id", ev.ID, "error", err)
		return
	}
	if entry.FaultType != domain.FaultTypeComms {
		return
	}

	d.metrics.CommsFaultTotal.WithLabelValues(entry.DeviceID, entry.DeviceType, entry.ZoneIdx, entry.EventType).Inc()

	state := 1.0
	if entry.EventType == domain.FaultEventRestore {
		state = 0
	}
	d.metrics.CommsFaultState.WithLabelValues(entry.DeviceID, entry.DeviceType, entry.ZoneIdx).Set(state)

	now := float64(d.now().UnixNano()) / 1e9
	d.metrics.CommsFaultLastTimestamp.WithLabelValues(entry.DeviceID, entry.DeviceType, entry.ZoneIdx, entry.EventType).Set(now)

	d.logger.Info("communications fault event",
		"event_type", entry.EventType,
		"device_id", entry.DeviceID,
		"device_type", entry.DeviceType,
		"zone_idx", entry.ZoneIdx,
	)
}

func extractBoilerSetpoint(d *Dispatcher, ev *domain.Event, p domain.Map) {
	setpoint, ok := p.Float("setpoint")
	if !ok {
		d.logger.Warn("could not parse boiler setpoint from payload", "event_id", ev.ID, "value", p["setpoint"])
		return
	}
	src := ev.Source()
	boilerName := d.resolver.DeviceName(src)
	d.metrics.BoilerSetpoint.WithLabelValues(src, boilerName).Set(setpoint)
}

// extractBoilerStatus handles actuator state/cycle payloads: modulation
// level plus the flame, central heating and hot water status flags. Each
// field is optional and converted independently.
func extractBoilerStatus(d *Dispatcher, ev *domain.Event, p domain.Map) {
	src := ev.Source()
	boilerName := d.resolver.DeviceName(src)

	if p.Has("modulation_level") {
		if level, ok := p.Float("modulation_level"); ok {
			d.metrics.BoilerModulationLevel.WithLabelValues(src, boilerName).Set(level)
		} else if p["modulation_level"] != nil {
			d.logger.Warn("could not parse boiler modulation from payload", "event_id", ev.ID, "value", p["modulation_level"])
		}
	}
	if p.Has("flame_on") {
		if on, ok := p.Bool("flame_on"); ok {
			d.metrics.BoilerFlameActive.WithLabelValues(src, boilerName).Set(boolGauge(on))
		} else {
			d.logger.Warn("could not parse boiler flame status from payload", "event_id", ev.ID, "value", p["flame_on"])
		}
	}
	if p.Has("ch_active") {
		if on, ok := p.Bool("ch_active"); ok {
			d.metrics.BoilerCHActive.WithLabelValues(src, boilerName).Set(boolGauge(on))
		} else {
			d.logger.Warn("could not parse boiler CH status from payload", "event_id", ev.ID, "value", p["ch_active"])
		}
	}
	if p.Has("dhw_active") {
		if on, ok := p.Bool("dhw_active"); ok {
			d.metrics.BoilerDHWActive.WithLabelValues(src, boilerName).Set(boolGauge(on))
		} else {
			d.logger.Warn("could not parse boiler DHW status from payload", "event_id", ev.ID, "value", p["dhw_active"])
		}
	}
}

func extractDHWTemp(d *Dispatcher, ev *domain.Event, p domain.Map) {
	if p["temperature"] == nil {
		return
	}
	temperature, ok := p.Float("temperature")
	if !ok {
		d.logger.Warn("could not parse DHW temperature from payload", "event_id", ev.ID, "value", p["temperature"])
		return
	}
	dhwIdx, controllerID, controllerName := d.dhwLabels(ev, p)
	d.metrics.DHWTemperature.WithLabelValues(dhwIdx, controllerID, controllerName).Set(temperature)
}

func extractDHWParams(d *Dispatcher, ev *domain.Event, p domain.Map) {
	if p["setpoint"] == nil {
		return
	}
	setpoint, ok := p.Float("setpoint")
	if !ok {
		d.logger.Warn("could not parse DHW setpoint from payload", "event_id", ev.ID, "value", p["setpoint"])
		return
	}
	dhwIdx, controllerID, controllerName := d.dhwLabels(ev, p)
	d.metrics.DHWSetpoint.WithLabelValues(dhwIdx, controllerID, controllerName).Set(setpoint)
}

func extractDHWMode(d *Dispatcher, ev *domain.Event, p domain.Map) {
	dhwIdx, controllerID, controllerName := d.dhwLabels(ev, p)

	if p.Has("active") {
		if active, ok := p.Bool("active"); ok {
			d.metrics.DHWActive.WithLabelValues(dhwIdx, controllerID, controllerName).Set(boolGauge(active))
		} else {
			d.logger.Warn("could not parse DHW active state from payload", "event_id", ev.ID, "value", p["active"])
		}
	}
	if p.Has("mode") {
		if mode, ok := p.String("mode"); ok {
			metrics.SetExclusive(d.metrics.DHWMode, prometheus.Labels{
				"dhw_idx":         dhwIdx,
				"controller_id":   controllerID,
				"controller_name": controllerName,
			}, "mode", domain.ZoneModes, mode)
		} else {
			d.logger.Warn("could not parse DHW mode from payload", "event_id", ev.ID, "value", p["mode"])
		}
	}
}

// dhwLabels resolves the label triple for DHW metrics. The controller is
// whichever endpoint carries the controller-class prefix; stored hot water
// state is always reported by or to the controller.
func (d *Dispatcher) dhwLabels(ev *domain.Event, p domain.Map) (dhwIdx, controllerID, controllerName string) {
	dhwIdx = p.StringOr("dhw_idx", domain.SystemZoneIdx)
	controllerID = ev.Source()
	if !domain.IsController(controllerID) {
		controllerID = ev.Destination()
	}
	controllerName = d.resolver.DeviceName(controllerID)
	return dhwIdx, controllerID, controllerName
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
