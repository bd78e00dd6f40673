package prometheus

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
)

// PrometheusExporter renders engine counters, session-state gauges and
// per-type audit counts in the Prometheus text format.
type PrometheusExporter struct {
	source internaldefs.Source
}

// NewPrometheusExporter reads from engine on every Render.
func NewPrometheusExporter(engine *goSession.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource is NewPrometheusExporter for any source
// that reports what an Engine reports.
func NewPrometheusExporterFromSource(source internaldefs.Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render over HTTP, reading the session under the
// request context.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render(r.Context())))
	})
}

// Render formats one sample of the source. A source with nothing to
// report renders as "".
func (p *PrometheusExporter) Render(ctx context.Context) string {
	if p == nil || p.source == nil {
		return ""
	}
	sample := internaldefs.Read(ctx, p.source)
	if sample.Empty() {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		writeHeader(&b, def.Name, def.Help, "counter")
		writeSample(&b, def.Name, "", strconv.FormatUint(sample.Snapshot.Counters[def.ID], 10))
	}

	for _, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(sample.Snapshot.Histograms[def.ID]))
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	if sample.StatusOK {
		for _, def := range internaldefs.GaugeDefs {
			writeHeader(&b, def.Name, def.Help, "gauge")
			writeSample(&b, def.Name, "", strconv.FormatFloat(def.Value(sample.Status), 'g', -1, 64))
		}
	}

	if len(sample.AuditEvents) > 0 {
		writeHeader(&b, internaldefs.AuditEventsName, internaldefs.AuditEventsHelp, "counter")
		for _, c := range sample.AuditEvents {
			labels := internaldefs.AuditEventLabel + `="` + escapeLabel(c.EventType) + `"`
			writeSample(&b, internaldefs.AuditEventsName, labels, strconv.FormatUint(c.Count, 10))
		}
	}

	writeHeader(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	writeSample(&b, internaldefs.AuditDroppedName, "", strconv.FormatUint(sample.AuditLost, 10))

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, labels, value string) {
	b.WriteString(name)
	if labels != "" {
		b.WriteByte('{')
		b.WriteString(labels)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", `le="`+le+`"`, strconv.FormatUint(cumulative[i], 10))
	}
	writeSample(b, name+"_count", "", strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	// Snapshots carry no sum.
	writeSample(b, name+"_sum", "", "0")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(v string) string { return labelEscaper.Replace(v) }
