package domain

import "strings"

// Device identifier type prefixes with special handling. Identifiers are
// TT:NNNNNN, where the two-digit type prefix encodes the hardware class.
const (
	// PrefixOpenThermBridge is an OpenTherm bridge (boiler-adjacent).
	PrefixOpenThermBridge = "10:"
	// PrefixRelay is an electrical relay driving a boiler (boiler-adjacent).
	PrefixRelay = "13:"
	// PrefixController is the system controller.
	PrefixController = "01:"
)

// IsBoiler reports whether the device id denotes boiler-class hardware.
func IsBoiler(deviceID string) bool {
	return strings.HasPrefix(deviceID, PrefixRelay) ||
		strings.HasPrefix(deviceID, PrefixOpenThermBridge)
}

// IsController reports whether the device id denotes the system controller.
func IsController(deviceID string) bool {
	return strings.HasPrefix(deviceID, PrefixController)
}

// SystemZoneIdx is the reserved zone index for system-wide (non-zone) state.
const SystemZoneIdx = "00"

// ZoneModes is the fixed enumeration of zone operating modes. The zone mode
// metric is exclusive over this set: exactly one mode series per label group
// reads 1 at any time.
var ZoneModes = []string{
	"follow_schedule",
	"temporary_override",
	"permanent_override",
	"advanced_override",
	"countdown",
	"off",
}
