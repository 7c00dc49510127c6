// Package resolve answers identity questions for metric labelling: the name
// of a device, the name of a zone, and the zone containing a device. It is a
// pure read path layered over the name cache, the live topology collaborator,
// and the zone membership index; writebacks into the cache happen only where
// name events are observed, never here.
package resolve

import (
	"ramses-exporter/internal/domain"
	"ramses-exporter/internal/namecache"
	"ramses-exporter/internal/topology"
	"ramses-exporter/internal/zones"
)

// Resolver resolves ids to names with layered fallback:
// cache hit -> live topology -> the "unknown" sentinel.
type Resolver struct {
	cache *namecache.Cache
	topo  topology.Topology
	zones *zones.Index
}

// NewResolver creates a resolver over the given backing state.
func NewResolver(cache *namecache.Cache, topo topology.Topology, idx *zones.Index) *Resolver {
	return &Resolver{cache: cache, topo: topo, zones: idx}
}

// DeviceName returns the human-readable name for a device id.
func (r *Resolver) DeviceName(id string) string {
	if unresolvable(id) {
		return domain.Unknown
	}
	if name, ok := r.cache.DeviceName(id); ok {
		return name
	}
	if name, ok := r.topo.DeviceAlias(id); ok {
		return name
	}
	return domain.Unknown
}

// ZoneName returns the human-readable name for a zone index.
func (r *Resolver) ZoneName(idx string) string {
	if unresolvable(idx) {
		return domain.Unknown
	}
	if name, ok := r.cache.ZoneName(idx); ok {
		return name
	}
	if name, ok := r.topo.ZoneName(idx); ok {
		return name
	}
	return domain.Unknown
}

// ZoneOfDevice returns the index of the zone whose membership roster
// contains the device.
func (r *Resolver) ZoneOfDevice(id string) string {
	if unresolvable(id) {
		return domain.Unknown
	}
	if idx, ok := r.zones.ZoneOf(id); ok {
		return idx
	}
	return domain.Unknown
}

// unresolvable short-circuits inputs that can never resolve, without
// consulting any backing store.
func unresolvable(id string) bool {
	return id == "" || id == domain.Unknown
}
