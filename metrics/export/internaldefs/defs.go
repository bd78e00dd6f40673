package internaldefs

import (
	"context"

	goSession "github.com/MrEthical07/goSession"
)

// Source is what both exporters read on each scrape or collection.
// *goSession.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
	AuditCounts() []goSession.AuditTypeCount
	SessionStatus(ctx context.Context) (goSession.SessionStatus, error)
}

// Sample is one read of a Source.
type Sample struct {
	Snapshot    goSession.MetricsSnapshot
	AuditLost   uint64
	AuditEvents []goSession.AuditTypeCount

	// Status is only meaningful when StatusOK is set. A store that cannot
	// be read yields no session gauges rather than a failed scrape.
	Status   goSession.SessionStatus
	StatusOK bool
}

// Read takes one Sample from src.
func Read(ctx context.Context, src Source) Sample {
	s := Sample{
		Snapshot:    src.MetricsSnapshot(),
		AuditLost:   src.AuditDropped(),
		AuditEvents: src.AuditCounts(),
	}
	st, err := src.SessionStatus(ctx)
	if err == nil {
		s.Status, s.StatusOK = st, true
	}
	return s
}

// Empty reports a sample with nothing worth exporting.
func (s Sample) Empty() bool {
	return len(s.Snapshot.Counters) == 0 &&
		len(s.Snapshot.Histograms) == 0 &&
		s.AuditLost == 0 &&
		len(s.AuditEvents) == 0 &&
		!s.StatusOK
}

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Logins that stored a session."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Logins refused by the server or failed in transport or storage."},
	{ID: goSession.MetricLoginValidationRejected, Name: "gosession_login_validation_rejected_total", Help: "Logins stopped by local input checks."},
	{ID: goSession.MetricValidateSuccess, Name: "gosession_validate_success_total", Help: "Tokens confirmed by the server."},
	{ID: goSession.MetricValidateRejected, Name: "gosession_validate_rejected_total", Help: "Tokens refused by the server."},
	{ID: goSession.MetricValidateError, Name: "gosession_validate_error_total", Help: "Token checks that could not complete."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logout operations."},
	{ID: goSession.MetricRemoteLogoutFailure, Name: "gosession_remote_logout_failure_total", Help: "Logouts whose server call failed."},
	{ID: goSession.MetricSessionSaved, Name: "gosession_session_saved_total", Help: "Sessions written to the store."},
	{ID: goSession.MetricSessionCleared, Name: "gosession_session_cleared_total", Help: "Session store clears."},
	{ID: goSession.MetricSessionExpired, Name: "gosession_session_expired_total", Help: "Sessions cleared because their window elapsed."},
	{ID: goSession.MetricActivityTouch, Name: "gosession_activity_touch_total", Help: "Activity timestamp refreshes."},
}

// GaugeDef names one session-state gauge and how to read it.
type GaugeDef struct {
	Name  string
	Help  string
	Value func(goSession.SessionStatus) float64
}

// GaugeDefs lists the session-state gauges.
var GaugeDefs = []GaugeDef{
	{
		Name: "gosession_session_logged_in",
		Help: "1 while a stored session is inside its window.",
		Value: func(st goSession.SessionStatus) float64 {
			if st.LoggedIn {
				return 1
			}
			return 0
		},
	},
	{
		Name:  "gosession_session_age_seconds",
		Help:  "Time since the session was saved or last touched.",
		Value: func(st goSession.SessionStatus) float64 { return st.Age().Seconds() },
	},
	{
		Name:  "gosession_session_remaining_seconds",
		Help:  "Time left before the stored session expires.",
		Value: func(st goSession.SessionStatus) float64 { return st.Remaining().Seconds() },
	},
}

const (
	// AuditEventsName carries one series per audit event type, labelled
	// with AuditEventLabel.
	AuditEventsName = "gosession_audit_events_total"
	AuditEventsHelp = "Audit events accepted for delivery, by type."
	AuditEventLabel = "event"

	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Audit events that never reached the sink."
)

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricLoginLatency, Name: "gosession_login_latency_seconds", Help: "Login round-trip latency."},
}

// HistogramBounds are the upper bounds of the engine histogram buckets,
// in seconds.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix labels a bucket in metric names that cannot carry
// a dotted value.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight bucket array, padding
// with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
