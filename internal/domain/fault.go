package domain

import "fmt"

// Fault log event types.
const (
	FaultEventFault   = "fault"
	FaultEventRestore = "restore"

	// FaultTypeComms is the communications-fault kind tracked by metrics.
	FaultTypeComms = "comms_fault"
)

// FaultLogEntry is one decoded controller fault log record. The record names
// the faulting device itself; the event's own source/destination identify the
// controller reporting it, not the device at fault.
type FaultLogEntry struct {
	Timestamp  string
	EventType  string // "fault" or "restore"
	FaultType  string // e.g. "comms_fault"
	DeviceType string // e.g. "dhw_sensor"
	ZoneIdx    string
	DeviceID   string
}

// ParseFaultLogEntry decodes a log_entry payload field: an ordered tuple of
// at least six string values.
func ParseFaultLogEntry(raw []any) (*FaultLogEntry, error) {
	if len(raw) < 6 {
		return nil, fmt.Errorf("fault log entry has %d fields, want at least 6", len(raw))
	}
	fields := make([]string, 6)
	for i := 0; i < 6; i++ {
		s, ok := raw[i].(string)
		if !ok {
			return nil, fmt.Errorf("fault log entry field %d is %T, want string", i, raw[i])
		}
		fields[i] = s
	}
	return &FaultLogEntry{
		Timestamp:  fields[0],
		EventType:  fields[1],
		FaultType:  fields[2],
		DeviceType: fields[3],
		ZoneIdx:    fields[4],
		DeviceID:   fields[5],
	}, nil
}
