package domain

// codeNames maps protocol message codes to their human-readable names. This
// is the subset of the RAMSES II code schema the exporter has been observed
// to receive; codes missing here fall back to the raw code string.
var codeNames = map[string]string{
	"0004": "zone_name",
	"0005": "system_zones",
	"0008": "relay_demand",
	"0009": "relay_failsafe",
	"000A": "zone_params",
	"000C": "zone_devices",
	"0016": "rf_check",
	"0100": "language",
	"0418": "system_fault",
	"1060": "device_battery",
	"10A0": "dhw_params",
	"10E0": "device_info",
	"1100": "tpi_params",
	"1260": "dhw_temp",
	"12B0": "window_state",
	"1F09": "system_sync",
	"1F41": "dhw_mode",
	"1FC9": "rf_bind",
	"2309": "setpoint",
	"2349": "zone_mode",
	"2E04": "system_mode",
	"30C9": "temperature",
	"3150": "heat_demand",
	"3220": "opentherm_msg",
	"22D9": "boiler_setpoint",
	"3B00": "actuator_sync",
	"3EF0": "actuator_state",
	"3EF1": "actuator_cycle",
}

// CodeName returns the human-readable name for a message code, or the code
// itself when the schema has no name for it.
func CodeName(code string) string {
	if code == "" {
		return Unknown
	}
	if name, ok := codeNames[code]; ok {
		return name
	}
	return code
}
