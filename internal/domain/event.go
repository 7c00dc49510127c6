// Package domain defines the core types for decoded RAMSES RF protocol
// events: the event envelope, direction verbs, device identifier classes,
// and safe accessors over the loosely-typed payloads the decoder produces.
package domain

import (
	"strings"
)

// Verb is the protocol direction verb of a message.
type Verb string

const (
	// VerbInfo is an unsolicited informational broadcast (" I" on the wire).
	VerbInfo Verb = "I"
	// VerbRequest is a request for data ("RQ" on the wire).
	VerbRequest Verb = "RQ"
	// VerbResponse is a response to a request ("RP" on the wire).
	VerbResponse Verb = "RP"
	// VerbWrite is a write command (" W" on the wire).
	VerbWrite Verb = "W"
)

// Unknown is the sentinel label value for any identifier or name that could
// not be resolved. It must never be stored in the name cache; it only appears
// transiently in resolver results and metric labels.
const Unknown = "unknown"

// Event is one decoded protocol message. Events are processed exactly once
// and never stored; all long-lived state is derived from them.
type Event struct {
	// ID is a correlation id assigned at decode time, used in logs only.
	ID string `json:"id,omitempty"`

	// Kind is the protocol message code, e.g. "0004" or "3150".
	Kind string `json:"kind"`

	// Verb is the direction verb.
	Verb string `json:"verb"`

	// SourceID and DestinationID are device identifiers in TT:NNNNNN form.
	SourceID      string `json:"source_id"`
	DestinationID string `json:"destination_id"`

	// Payload is the kind-dependent decoded payload: a mapping, a list of
	// mappings, a scalar, or absent.
	Payload any `json:"payload,omitempty"`
}

// NormalizeVerb trims the wire padding from a verb (" I" -> "I") and returns
// the sentinel for an empty verb.
func NormalizeVerb(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unknown
	}
	return v
}

// KindLabel returns the event kind suitable for a metric label.
func (e *Event) KindLabel() string {
	if e.Kind == "" {
		return Unknown
	}
	return e.Kind
}

// VerbLabel returns the normalized verb suitable for a metric label.
func (e *Event) VerbLabel() string {
	return NormalizeVerb(e.Verb)
}

// Source returns the source device id, or the sentinel when absent.
func (e *Event) Source() string {
	if e.SourceID == "" {
		return Unknown
	}
	return e.SourceID
}

// Destination returns the destination device id, or the sentinel when absent.
func (e *Event) Destination() string {
	if e.DestinationID == "" {
		return Unknown
	}
	return e.DestinationID
}

// Fields returns the payload as a field mapping. ok is false when the payload
// is absent or not a mapping; extraction rules only run against mappings.
func (e *Event) Fields() (Map, bool) {
	m, ok := e.Payload.(map[string]any)
	if !ok {
		return nil, false
	}
	return Map(m), true
}
