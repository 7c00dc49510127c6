// Package memory provides an in-process event source backed by a channel.
// It is the development and test backend: tests publish events directly and
// the dispatcher consumes them exactly as it would from a broker.
package memory

import (
	"context"
	"sync"

	"ramses-exporter/internal/domain"
	"ramses-exporter/internal/source"
)

// Source is a channel-backed source.Source. Safe for concurrent use.
type Source struct {
	events chan *domain.Event
	closed bool
	mu     sync.RWMutex
	wg     sync.WaitGroup
}

// NewSource creates an in-memory source with the given buffer size.
func NewSource(bufferSize int) *Source {
	return &Source{events: make(chan *domain.Event, bufferSize)}
}

// Publish delivers an event to the source. Blocks when the buffer is full
// until space frees up or the context is canceled.
func (s *Source) Publish(ctx context.Context, ev *domain.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSourceClosed
	}
	s.mu.RUnlock()

	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start consumes published events and passes each to the handler. Blocks
// until the context is canceled or the source is closed.
func (s *Source) Start(ctx context.Context, handler source.Handler) error {
	s.wg.Add(1)
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.events:
			if !ok {
				return nil
			}
			// Handler errors are already accounted for downstream; the
			// stream continues regardless.
			_ = handler(ctx, ev)
		}
	}
}

// Close shuts down the source, stopping the consumer.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	s.wg.Wait()
	return nil
}
