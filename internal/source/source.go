// Package source defines the event source contract: the boundary to the
// external radio decoder that produces decoded protocol events. The exporter
// registers one handler and receives events one at a time, in receipt order;
// there is no internal queueing or parallel delivery, so the dispatcher's
// state updates are serialized by construction.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"ramses-exporter/internal/domain"
)

// Handler processes one decoded event. A non-nil error is logged by the
// source but never stops the stream.
type Handler func(ctx context.Context, ev *domain.Event) error

// Source delivers decoded protocol events.
type Source interface {
	// Start begins delivering events to the handler. It blocks until the
	// context is canceled or the source fails unrecoverably.
	Start(ctx context.Context, handler Handler) error

	// Close releases any resources held by the source.
	Close() error
}

// Decode parses one wire message (a JSON-encoded decoded event) and assigns
// a correlation id for log tracing.
func Decode(data []byte) (*domain.Event, error) {
	ev := &domain.Event{}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	return ev, nil
}
