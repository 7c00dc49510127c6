// Package zones maintains the in-memory mapping from zone index to the
// devices playing each role in that zone, derived from zone-membership
// events on the wire.
package zones

import (
	"sort"
	"sync"
)

// Index maps zone index -> role -> ordered device id list. Membership events
// carry the full roster for one (zone, role) pair, so each arrival replaces
// that pair wholesale rather than merging. An empty roster is meaningful
// state ("this role currently has no members") and is kept, distinct from an
// absent role.
type Index struct {
	mu    sync.RWMutex
	roles map[string]map[string][]string
}

// NewIndex creates an empty membership index.
func NewIndex() *Index {
	return &Index{roles: make(map[string]map[string][]string)}
}

// SetRole replaces the device list for a (zone, role) pair.
func (i *Index) SetRole(zoneIdx, role string, deviceIDs []string) {
	if zoneIdx == "" || role == "" {
		return
	}

	devices := make([]string, len(deviceIDs))
	copy(devices, deviceIDs)

	i.mu.Lock()
	defer i.mu.Unlock()
	byRole, ok := i.roles[zoneIdx]
	if !ok {
		byRole = make(map[string][]string)
		i.roles[zoneIdx] = byRole
	}
	byRole[role] = devices
}

// ZoneOf scans all (zone, role) entries for the device and returns the first
// matching zone index. Zones are scanned in sorted index order so resolution
// is deterministic across runs.
func (i *Index) ZoneOf(deviceID string) (string, bool) {
	if deviceID == "" {
		return "", false
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	indexes := make([]string, 0, len(i.roles))
	for idx := range i.roles {
		indexes = append(indexes, idx)
	}
	sort.Strings(indexes)

	for _, idx := range indexes {
		for _, devices := range i.roles[idx] {
			for _, id := range devices {
				if id == deviceID {
					return idx, true
				}
			}
		}
	}
	return "", false
}

// Snapshot returns a copy of the full membership map.
func (i *Index) Snapshot() map[string]map[string][]string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make(map[string]map[string][]string, len(i.roles))
	for idx, byRole := range i.roles {
		roles := make(map[string][]string, len(byRole))
		for role, devices := range byRole {
			list := make([]string, len(devices))
			copy(list, devices)
			roles[role] = list
		}
		out[idx] = roles
	}
	return out
}
