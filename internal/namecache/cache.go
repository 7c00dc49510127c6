// Package namecache maintains the durable mapping from short protocol
// identifiers (device ids, zone indexes) to human-readable names, with
// first-seen/last-seen bookkeeping. The cache is loaded once at startup,
// updated as names are discovered on the wire, and persisted through a
// pluggable Store whenever its content actually changes.
package namecache

import (
	"log/slog"
	"sync"
	"time"

	"ramses-exporter/internal/domain"
)

// Entry is one cached name with sighting timestamps (unix seconds).
type Entry struct {
	Name      string  `json:"name"`
	LastSeen  float64 `json:"last_seen"`
	FirstSeen float64 `json:"first_seen"`
}

// Snapshot is the full persisted cache state. It round-trips through the
// Store: zones and devices keyed by id, plus the time of the last write.
type Snapshot struct {
	Zones       map[string]Entry `json:"zones"`
	Devices     map[string]Entry `json:"devices"`
	LastUpdated string           `json:"last_updated"`
}

// Store persists cache snapshots. Implementations must write the snapshot
// atomically: a reader must always observe either the previous or the new
// complete snapshot, never a partial one.
type Store interface {
	// Load reads the persisted snapshot. A missing snapshot is not an
	// error: implementations return an empty snapshot.
	Load() (*Snapshot, error)

	// Save persists the full snapshot.
	Save(*Snapshot) error
}

// Cache is the in-memory name cache. All methods are safe for concurrent
// use; event processing itself is serial, but the HTTP layer reads snapshots
// concurrently.
type Cache struct {
	mu      sync.RWMutex
	zones   map[string]Entry
	devices map[string]Entry

	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Load builds a cache from the store's persisted snapshot. Load failures are
// non-fatal: the cache starts empty and name resolution degrades to the live
// topology until names are rediscovered.
func Load(store Store, logger *slog.Logger) *Cache {
	c := &Cache{
		zones:   make(map[string]Entry),
		devices: make(map[string]Entry),
		store:   store,
		logger:  logger,
		now:     time.Now,
	}

	snap, err := store.Load()
	if err != nil {
		logger.Error("failed to load name cache, starting empty", "error", err)
		return c
	}
	for id, e := range snap.Zones {
		c.zones[id] = e
	}
	for id, e := range snap.Devices {
		c.devices[id] = e
	}
	logger.Info("name cache loaded", "zones", len(c.zones), "devices", len(c.devices))
	return c
}

// DeviceName returns the cached name for a device id.
func (c *Cache) DeviceName(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.devices[id]
	return e.Name, ok
}

// ZoneName returns the cached name for a zone index.
func (c *Cache) ZoneName(idx string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.zones[idx]
	return e.Name, ok
}

// UpdateDevice records a discovered device name. New ids and renames are
// persisted immediately; a repeat sighting of the same name only refreshes
// last_seen in memory, bounding disk I/O under steady-state traffic.
// Empty ids, empty names and the "unknown" sentinel are rejected: unresolved
// identifiers are absent from the cache, never present with a placeholder.
func (c *Cache) UpdateDevice(id, name string) bool {
	return c.update(c.devices, "device", id, name)
}

// UpdateZone records a discovered zone name, with the same persistence
// semantics as UpdateDevice.
func (c *Cache) UpdateZone(idx, name string) bool {
	return c.update(c.zones, "zone", idx, name)
}

// update applies a sighting to one of the two maps. The returned bool
// reports whether the cache content changed (and was persisted).
func (c *Cache) update(entries map[string]Entry, kind, id, name string) bool {
	if id == "" || name == "" || name == domain.Unknown {
		return false
	}

	c.mu.Lock()
	now := float64(c.now().UnixNano()) / 1e9

	existing, ok := entries[id]
	switch {
	case !ok:
		entries[id] = Entry{Name: name, FirstSeen: now, LastSeen: now}
		c.mu.Unlock()
		c.logger.Info("discovered new "+kind, "id", id, "name", name)
		c.save()
		return true
	case existing.Name != name:
		old := existing.Name
		existing.Name = name
		existing.LastSeen = now
		entries[id] = existing
		c.mu.Unlock()
		c.logger.Warn(kind+" name changed", "id", id, "old_name", old, "new_name", name)
		c.save()
		return true
	default:
		existing.LastSeen = now
		entries[id] = existing
		c.mu.Unlock()
		return false
	}
}

// Snapshot returns a copy of the current cache content.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := &Snapshot{
		Zones:       make(map[string]Entry, len(c.zones)),
		Devices:     make(map[string]Entry, len(c.devices)),
		LastUpdated: c.now().UTC().Format(time.RFC3339),
	}
	for id, e := range c.zones {
		snap.Zones[id] = e
	}
	for id, e := range c.devices {
		snap.Devices[id] = e
	}
	return snap
}

// save persists the current snapshot. Disk errors are logged and swallowed:
// durability degrades, the in-memory cache keeps operating.
func (c *Cache) save() {
	if err := c.store.Save(c.Snapshot()); err != nil {
		c.logger.Error("failed to save name cache", "error", err)
	}
}
