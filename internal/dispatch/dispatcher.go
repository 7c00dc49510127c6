// Package dispatch contains the event-to-metric mapping engine. For every
// decoded event it updates the generic message metrics, classifies
// boiler-class traffic, and runs a table of kind-specific extraction rules
// that populate the specialized gauges. State derived across events (zone
// membership, discovered names) is written back to the membership index and
// the name cache from here.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"ramses-exporter/internal/domain"
	"ramses-exporter/internal/metrics"
	"ramses-exporter/internal/namecache"
	"ramses-exporter/internal/resolve"
	"ramses-exporter/internal/zones"
)

// Dispatcher maps events onto the metric set. It runs synchronously inside
// the source's delivery callback; per-device and per-zone updates are
// serialized by construction. The tally maps are mutex-guarded only because
// the HTTP layer reads summaries concurrently.
type Dispatcher struct {
	metrics  *metrics.Registry
	resolver *resolve.Resolver
	cache    *namecache.Cache
	zones    *zones.Index
	logger   *slog.Logger
	rules    []rule
	version  string
	now      func() time.Time

	mu          sync.RWMutex
	seenDevices map[string]struct{}
	kindTally   map[string]uint64
	commTally   map[string]uint64
}

// NewDispatcher creates a dispatcher over the given state and metric set.
// version is reported in the system info series.
func NewDispatcher(
	reg *metrics.Registry,
	resolver *resolve.Resolver,
	cache *namecache.Cache,
	idx *zones.Index,
	version string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		metrics:     reg,
		resolver:    resolver,
		cache:       cache,
		zones:       idx,
		logger:      logger,
		rules:       extractionRules(),
		version:     version,
		now:         time.Now,
		seenDevices: make(map[string]struct{}),
		kindTally:   make(map[string]uint64),
		commTally:   make(map[string]uint64),
	}
}

// Handle processes one event. It never returns an error to the source: any
// failure escaping the rule handling is recovered here, counted in the error
// metric, and logged, and the stream continues with the next event.
func (d *Dispatcher) Handle(_ context.Context, ev *domain.Event) error {
	start := d.now()
	defer func() {
		if r := recover(); r != nil {
			errType := fmt.Sprintf("%T", r)
			if err, ok := r.(error); ok {
				errType = fmt.Sprintf("%T", err)
			}
			d.metrics.MessageErrors.WithLabelValues(errType).Inc()
			d.logger.Error("error processing event", "error", r, "event_id", ev.ID, "kind", ev.Kind)
		}
		d.metrics.ProcessingDuration.Observe(d.now().Sub(start).Seconds())
	}()

	kind := ev.KindLabel()
	verb := ev.VerbLabel()
	src := ev.Source()
	dst := ev.Destination()
	codeName := domain.CodeName(kind)

	srcZoneIdx := d.resolver.ZoneOfDevice(src)
	srcZoneName := domain.Unknown
	if srcZoneIdx != domain.Unknown {
		srcZoneName = d.resolver.ZoneName(srcZoneIdx)
	}
	srcName := d.resolver.DeviceName(src)

	d.logger.Info("message",
		"event_id", ev.ID,
		"code", kind,
		"code_name", codeName,
		"verb", verb,
		"from", src,
		"from_name", srcName,
		"to", dst,
	)

	now := float64(d.now().UnixNano()) / 1e9

	// Generic counters.
	d.metrics.MessagesTotal.WithLabelValues(kind, verb, kind, src, dst, srcZoneName).Inc()
	d.metrics.MessageTypesTotal.WithLabelValues(kind, codeName, verb).Inc()
	d.metrics.DeviceCommunications.WithLabelValues(src, dst, verb).Inc()
	d.metrics.LastMessageTimestamp.Set(now)

	d.tally(kind, verb, src, dst)

	// Per-source last-seen, plus identity discovery: a source that resolves
	// to a real name (cached or aliased in the topology) is recorded, which
	// persists first sightings of aliased devices.
	if src != domain.Unknown {
		d.metrics.DeviceLastSeen.WithLabelValues(src, srcName, srcZoneName).Set(now)
		if srcName != domain.Unknown {
			d.recordDeviceName(src, srcName)
		}
	}

	// Boiler-class traffic, independent of the generic path.
	if domain.IsBoiler(src) {
		boilerName := d.resolver.DeviceName(src)
		d.metrics.BoilerMessagesReceived.WithLabelValues(src, boilerName, kind, codeName).Inc()
		d.metrics.BoilerLastSeen.WithLabelValues(src, boilerName).Set(now)
	}
	if domain.IsBoiler(dst) {
		boilerName := d.resolver.DeviceName(dst)
		d.metrics.BoilerMessagesSent.WithLabelValues(dst, boilerName, kind, codeName).Inc()
		d.metrics.BoilerLastContacted.WithLabelValues(dst, boilerName).Set(now)
	}

	// Kind-specific extraction rules run against structured payloads only.
	// Each rule swallows its own conversion failures: one malformed field
	// never stops the remaining rules.
	if fields, ok := ev.Fields(); ok {
		for _, r := range d.rules {
			if !r.matches(ev, fields) {
				continue
			}
			r.handle(d, ev, fields)
		}
	}

	if ev.Payload != nil {
		if data, err := json.Marshal(ev.Payload); err == nil {
			d.metrics.PayloadSize.Observe(float64(len(data)))
		}
	}

	d.updateSystemState(kind, verb)
	return nil
}

// tally records the in-process summaries exposed over the read-only API.
func (d *Dispatcher) tally(kind, verb, src, dst string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kindTally[kind+"_"+verb]++
	d.commTally[src+"_"+dst]++
	if src != domain.Unknown {
		d.seenDevices[src] = struct{}{}
	}
}

// updateSystemState refreshes the active-device gauge and the system info
// series after each event.
func (d *Dispatcher) updateSystemState(kind, verb string) {
	d.mu.RLock()
	deviceCount := len(d.seenDevices)
	d.mu.RUnlock()

	d.metrics.ActiveDevices.Set(float64(deviceCount))
	d.metrics.SetSystemInfo(map[string]string{
		"gateway_version":   d.version,
		"total_devices":     strconv.Itoa(deviceCount),
		"last_message_code": kind,
		"last_message_verb": verb,
	})
}

// MessageTypeSummary returns a copy of the per-(kind, verb) event tallies.
func (d *Dispatcher) MessageTypeSummary() map[string]uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]uint64, len(d.kindTally))
	for k, v := range d.kindTally {
		out[k] = v
	}
	return out
}

// DeviceCommunicationSummary returns a copy of the per-device-pair tallies.
func (d *Dispatcher) DeviceCommunicationSummary() map[string]uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]uint64, len(d.commTally))
	for k, v := range d.commTally {
		out[k] = v
	}
	return out
}

// recordZoneName writes a discovered zone name back to the cache and emits
// the identity series. Only real names reach this point.
func (d *Dispatcher) recordZoneName(zoneIdx, name string) {
	d.cache.UpdateZone(zoneIdx, name)
	d.metrics.RecordZoneName(zoneIdx, name)
}

// recordDeviceName writes a discovered device name back to the cache and
// emits the identity series.
func (d *Dispatcher) recordDeviceName(deviceID, name string) {
	d.cache.UpdateDevice(deviceID, name)
	d.metrics.RecordDeviceName(deviceID, name)
}

// Cache exposes the name cache for the read-only API.
func (d *Dispatcher) Cache() *namecache.Cache { return d.cache }

// Zones exposes the membership index for the read-only API.
func (d *Dispatcher) Zones() *zones.Index { return d.zones }
