package namecache

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

// spyStore records saves and can fail loads.
type spyStore struct {
	snapshot  *Snapshot
	loadErr   error
	saveErr   error
	saveCount int
}

func (s *spyStore) Load() (*Snapshot, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.snapshot == nil {
		return &Snapshot{Zones: map[string]Entry{}, Devices: map[string]Entry{}}, nil
	}
	return s.snapshot, nil
}

func (s *spyStore) Save(snap *Snapshot) error {
	s.saveCount++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshot = snap
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCache_UpdateAndLookup(t *testing.T) {
	store := &spyStore{}
	c := Load(store, testLogger())

	// Unknown ids miss
	if _, ok := c.DeviceName("04:056057"); ok {
		t.Error("expected miss for unknown device")
	}

	// First sighting inserts and persists
	if changed := c.UpdateDevice("04:056057", "Office TRV"); !changed {
		t.Error("first sighting should report a change")
	}
	if store.saveCount != 1 {
		t.Errorf("saveCount = %d, want 1", store.saveCount)
	}

	name, ok := c.DeviceName("04:056057")
	if !ok || name != "Office TRV" {
		t.Errorf("DeviceName = %q, %v; want %q, true", name, ok, "Office TRV")
	}

	// Zones are independent of devices
	if _, ok := c.ZoneName("04:056057"); ok {
		t.Error("device id should not resolve as a zone")
	}
	c.UpdateZone("0A", "Office")
	if name, ok := c.ZoneName("0A"); !ok || name != "Office" {
		t.Errorf("ZoneName = %q, %v; want %q, true", name, ok, "Office")
	}
}

func TestCache_RepeatSightingDoesNotPersist(t *testing.T) {
	store := &spyStore{}
	c := Load(store, testLogger())

	c.UpdateZone("0A", "Office")
	if store.saveCount != 1 {
		t.Fatalf("saveCount = %d, want 1", store.saveCount)
	}

	// Same name again: last_seen refreshes in memory, no disk write
	if changed := c.UpdateZone("0A", "Office"); changed {
		t.Error("repeat sighting should not report a change")
	}
	if store.saveCount != 1 {
		t.Errorf("saveCount = %d, want 1 after repeat sighting", store.saveCount)
	}
}

func TestCache_RenamePersistsAndReplaces(t *testing.T) {
	store := &spyStore{}
	c := Load(store, testLogger())

	c.UpdateZone("0A", "Office")
	if changed := c.UpdateZone("0A", "Study"); !changed {
		t.Error("rename should report a change")
	}
	if store.saveCount != 2 {
		t.Errorf("saveCount = %d, want 2", store.saveCount)
	}
	if name, _ := c.ZoneName("0A"); name != "Study" {
		t.Errorf("ZoneName = %q, want %q", name, "Study")
	}
}

func TestCache_RenameKeepsFirstSeen(t *testing.T) {
	store := &spyStore{}
	c := Load(store, testLogger())

	c.UpdateDevice("01:123456", "Controller")
	before := c.Snapshot().Devices["01:123456"]

	c.UpdateDevice("01:123456", "Main Controller")
	after := c.Snapshot().Devices["01:123456"]

	if after.FirstSeen != before.FirstSeen {
		t.Errorf("FirstSeen changed on rename: %v -> %v", before.FirstSeen, after.FirstSeen)
	}
	if after.LastSeen < before.LastSeen {
		t.Error("LastSeen should not move backwards")
	}
}

func TestCache_RejectsPlaceholders(t *testing.T) {
	store := &spyStore{}
	c := Load(store, testLogger())

	if c.UpdateDevice("", "Controller") {
		t.Error("empty id should be rejected")
	}
	if c.UpdateDevice("01:123456", "") {
		t.Error("empty name should be rejected")
	}
	if c.UpdateDevice("01:123456", "unknown") {
		t.Error("unknown sentinel should be rejected")
	}
	if store.saveCount != 0 {
		t.Errorf("saveCount = %d, want 0", store.saveCount)
	}
	if _, ok := c.DeviceName("01:123456"); ok {
		t.Error("rejected update should not populate the cache")
	}
}

func TestCache_LoadFailureStartsEmpty(t *testing.T) {
	store := &spyStore{loadErr: errors.New("disk on fire")}
	c := Load(store, testLogger())

	if _, ok := c.ZoneName("0A"); ok {
		t.Error("cache should start empty after a load failure")
	}

	// Still usable after a failed load
	c.UpdateZone("0A", "Office")
	if name, ok := c.ZoneName("0A"); !ok || name != "Office" {
		t.Errorf("ZoneName = %q, %v; want %q, true", name, ok, "Office")
	}
}

func TestCache_LoadRestoresSnapshot(t *testing.T) {
	store := &spyStore{snapshot: &Snapshot{
		Zones:   map[string]Entry{"0A": {Name: "Office", FirstSeen: 10, LastSeen: 20}},
		Devices: map[string]Entry{"04:056057": {Name: "Office TRV", FirstSeen: 10, LastSeen: 20}},
	}}
	c := Load(store, testLogger())

	if name, ok := c.ZoneName("0A"); !ok || name != "Office" {
		t.Errorf("ZoneName = %q, %v; want %q, true", name, ok, "Office")
	}
	if name, ok := c.DeviceName("04:056057"); !ok || name != "Office TRV" {
		t.Errorf("DeviceName = %q, %v; want %q, true", name, ok, "Office TRV")
	}
}

func TestCache_SaveErrorIsNonFatal(t *testing.T) {
	store := &spyStore{saveErr: errors.New("read-only filesystem")}
	c := Load(store, testLogger())

	if changed := c.UpdateZone("0A", "Office"); !changed {
		t.Error("update should still apply in memory when persistence fails")
	}
	if name, _ := c.ZoneName("0A"); name != "Office" {
		t.Errorf("ZoneName = %q, want %q", name, "Office")
	}
}

func TestCache_SnapshotIsACopy(t *testing.T) {
	store := &spyStore{}
	c := Load(store, testLogger())

	c.UpdateZone("0A", "Office")
	snap := c.Snapshot()
	snap.Zones["0A"] = Entry{Name: "Tampered"}

	if name, _ := c.ZoneName("0A"); name != "Office" {
		t.Errorf("mutating a snapshot leaked into the cache: %q", name)
	}
	if snap.LastUpdated == "" {
		t.Error("snapshot should carry a last_updated timestamp")
	}
}
