package metrics

import "github.com/prometheus/client_golang/prometheus"

// SetExclusive represents current-state-from-an-enum on a metric substrate
// with no delete operation: every non-current enum value's series for the
// same label group is set to 0 before the current value's series is set to 1.
// Without the zeroing pass, the previously-current series would read 1
// forever alongside the new one.
//
// group carries every label except enumLabel; values is the full enumeration.
// A current value outside the enumeration still gets its series set to 1, so
// unexpected protocol values remain visible.
func SetExclusive(vec *prometheus.GaugeVec, group prometheus.Labels, enumLabel string, values []string, current string) {
	labels := make(prometheus.Labels, len(group)+1)
	for k, v := range group {
		labels[k] = v
	}
	for _, v := range values {
		labels[enumLabel] = v
		vec.With(labels).Set(0)
	}
	labels[enumLabel] = current
	vec.With(labels).Set(1)
}
