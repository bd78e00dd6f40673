// Package internaldefs holds what the Prometheus and OTel exporters share:
// metric names and help strings, bucket bounds, session gauges and the
// Sample read from an engine on each collection.
package internaldefs
