package integration

import (
	"context"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ramses-exporter/internal/dispatch"
	"ramses-exporter/internal/domain"
	"ramses-exporter/internal/metrics"
	"ramses-exporter/internal/namecache"
	"ramses-exporter/internal/resolve"
	memorysource "ramses-exporter/internal/source/memory"
	"ramses-exporter/internal/topology"
	"ramses-exporter/internal/zones"
)

// countingStore is an in-memory namecache.Store that counts writes.
type countingStore struct {
	saveCount int
	snapshot  *namecache.Snapshot
}

func (s *countingStore) Load() (*namecache.Snapshot, error) {
	if s.snapshot == nil {
		return &namecache.Snapshot{
			Zones:   map[string]namecache.Entry{},
			Devices: map[string]namecache.Entry{},
		}, nil
	}
	return s.snapshot, nil
}

func (s *countingStore) Save(snap *namecache.Snapshot) error {
	s.saveCount++
	s.snapshot = snap
	return nil
}

var _ = Describe("Event pipeline", func() {
	var (
		store      *countingStore
		registry   *metrics.Registry
		dispatcher *dispatch.Dispatcher
		src        *memorysource.Source
		done       chan error
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		store = &countingStore{}
		cache := namecache.Load(store, logger)
		idx := zones.NewIndex()
		resolver := resolve.NewResolver(cache, topology.NewStatic(nil, nil), idx)
		registry = metrics.NewRegistry()
		dispatcher = dispatch.NewDispatcher(registry, resolver, cache, idx, "it", logger)

		src = memorysource.NewSource(16)
		done = make(chan error, 1)
		go func() {
			done <- src.Start(context.Background(), dispatcher.Handle)
		}()
	})

	publish := func(ev *domain.Event) {
		Expect(src.Publish(context.Background(), ev)).To(Succeed())
	}

	drain := func() {
		Expect(src.Close()).To(Succeed())
		Eventually(done).Should(Receive(BeNil()))
	}

	Context("when zone identity, membership and a reading arrive in order", func() {
		It("labels readings with the learned zone name and persists the name once", func() {
			publish(&domain.Event{
				Kind:          "0004",
				Verb:          "RP",
				SourceID:      "01:123456",
				DestinationID: "18:000730",
				Payload:       map[string]any{"zone_idx": "0A", "name": "Office"},
			})
			publish(&domain.Event{
				Kind:          "000C",
				Verb:          "RP",
				SourceID:      "01:123456",
				DestinationID: "18:000730",
				Payload: map[string]any{
					"zone_idx":    "0A",
					"device_role": "rad_actuator",
					"devices":     []any{"04:056057"},
				},
			})
			publish(&domain.Event{
				Kind:          "30C9",
				Verb:          " I",
				SourceID:      "04:056057",
				DestinationID: "01:123456",
				Payload:       map[string]any{"temperature": 21.3},
			})
			// Duplicate announcement: refreshed in memory, not re-persisted
			publish(&domain.Event{
				Kind:          "0004",
				Verb:          "RP",
				SourceID:      "01:123456",
				DestinationID: "18:000730",
				Payload:       map[string]any{"zone_idx": "0A", "name": "Office"},
			})
			drain()

			By("resolving the reading's zone through the membership index")
			temp := testutil.ToFloat64(registry.DeviceTemperature.WithLabelValues(
				"04:056057", "unknown", "Office"))
			Expect(temp).To(Equal(21.3))

			By("labelling the message counter with the resolved zone")
			count := testutil.ToFloat64(registry.MessagesTotal.WithLabelValues(
				"30C9", "I", "30C9", "04:056057", "01:123456", "Office"))
			Expect(count).To(Equal(1.0))

			By("emitting the zone identity series")
			info := testutil.ToFloat64(registry.ZoneNameInfo.WithLabelValues("0A", "Office"))
			Expect(info).To(Equal(1.0))

			By("writing the cache exactly once")
			Expect(store.saveCount).To(Equal(1))
			Expect(store.snapshot.Zones).To(HaveKey("0A"))
			Expect(store.snapshot.Zones["0A"].Name).To(Equal("Office"))

			By("never emitting identity series for unnamed devices")
			n, err := testutil.GatherAndCount(registry.Gatherer(), "ramses_device_info")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})
	})

	Context("when a zone is renamed", func() {
		It("replaces the identity series and persists the rename", func() {
			publish(&domain.Event{
				Kind:     "0004",
				Verb:     "RP",
				SourceID: "01:123456",
				Payload:  map[string]any{"zone_idx": "0A", "name": "Office"},
			})
			publish(&domain.Event{
				Kind:     "0004",
				Verb:     "RP",
				SourceID: "01:123456",
				Payload:  map[string]any{"zone_idx": "0A", "name": "Study"},
			})
			drain()

			n, err := testutil.GatherAndCount(registry.Gatherer(), "ramses_zone_info")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1), "stale identity series must be deleted on rename")

			info := testutil.ToFloat64(registry.ZoneNameInfo.WithLabelValues("0A", "Study"))
			Expect(info).To(Equal(1.0))

			Expect(store.saveCount).To(Equal(2))
			Expect(store.snapshot.Zones["0A"].Name).To(Equal("Study"))
		})
	})

	Context("when boiler and hot water traffic flows", func() {
		It("tracks boiler state alongside the generic counters", func() {
			publish(&domain.Event{
				Kind:          "3EF0",
				Verb:          " I",
				SourceID:      "10:048122",
				DestinationID: "01:123456",
				Payload: map[string]any{
					"modulation_level": 0.35,
					"flame_on":         true,
				},
			})
			publish(&domain.Event{
				Kind:          "1F41",
				Verb:          "RP",
				SourceID:      "01:123456",
				DestinationID: "18:000730",
				Payload:       map[string]any{"active": true, "mode": "follow_schedule"},
			})
			drain()

			Expect(testutil.ToFloat64(registry.BoilerModulationLevel.WithLabelValues(
				"10:048122", "unknown"))).To(Equal(0.35))
			Expect(testutil.ToFloat64(registry.BoilerFlameActive.WithLabelValues(
				"10:048122", "unknown"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(registry.BoilerMessagesReceived.WithLabelValues(
				"10:048122", "unknown", "3EF0", "actuator_state"))).To(Equal(1.0))

			Expect(testutil.ToFloat64(registry.DHWActive.WithLabelValues(
				"00", "01:123456", "unknown"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(registry.DHWMode.WithLabelValues(
				"00", "01:123456", "unknown", "follow_schedule"))).To(Equal(1.0))
		})
	})
})
