// Package topology defines the boundary to the live topology collaborator:
// the component that knows the current device aliases and zone list (in the
// original deployment, the radio decoder's schema). The resolver consults it
// only on name-cache misses.
package topology

// Topology answers best-effort, synchronous identity lookups.
type Topology interface {
	// DeviceAlias returns the configured alias for a device id.
	DeviceAlias(id string) (string, bool)

	// ZoneName returns the name of the zone at the given index.
	ZoneName(idx string) (string, bool)
}

// Static is a Topology backed by fixed mappings, typically the operator's
// known-device list from configuration. It also serves as the in-memory
// implementation for tests.
type Static struct {
	Devices map[string]string
	Zones   map[string]string
}

// NewStatic builds a Static topology; nil maps are allowed.
func NewStatic(devices, zones map[string]string) *Static {
	return &Static{Devices: devices, Zones: zones}
}

// DeviceAlias implements Topology.
func (s *Static) DeviceAlias(id string) (string, bool) {
	name, ok := s.Devices[id]
	return name, ok && name != ""
}

// ZoneName implements Topology.
func (s *Static) ZoneName(idx string) (string, bool) {
	name, ok := s.Zones[idx]
	return name, ok && name != ""
}
