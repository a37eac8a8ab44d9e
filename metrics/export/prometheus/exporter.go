package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	authkit "github.com/bezrook/authkit"
	"github.com/bezrook/authkit/metrics/export/internaldefs"
)

// metricsSource is the slice of Engine the exporter needs. Any type with
// the same snapshot methods works, which keeps the tests free of Redis.
type metricsSource interface {
	MetricsSnapshot() authkit.MetricsSnapshot
	AuditDropped() uint64
}

const (
	auditDroppedName = "authkit_audit_dropped_total"
	auditDroppedHelp = "Audit events accepted for emission but never delivered."
)

// PrometheusExporter renders engine metrics in Prometheus text
// exposition format. It holds no state beyond the source; every
// Render call reads a fresh snapshot.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates an exporter reading from the engine.
func NewPrometheusExporter(engine *authkit.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates an exporter from a custom
// snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler serving the exposition text, suitable
// for mounting at /metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics in exposition format. A source with
// no recorded data renders empty.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		family(&b, def.Name, def.Help, "counter")
		fmt.Fprintf(&b, "%s %d\n", def.Name, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		family(&b, def.Name, def.Help, "histogram")
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		for i, le := range internaldefs.HistogramBounds {
			fmt.Fprintf(&b, "%s_bucket{le=%q} %d\n", def.Name, le, cumulative[i])
		}
		fmt.Fprintf(&b, "%s_count %d\n", def.Name, cumulative[len(cumulative)-1])
		// The snapshot tracks bucket counts only; a stable zero sum
		// keeps the histogram family complete for scrapers.
		fmt.Fprintf(&b, "%s_sum 0\n", def.Name)
	}

	family(&b, auditDroppedName, auditDroppedHelp, "counter")
	fmt.Fprintf(&b, "%s %d\n", auditDroppedName, dropped)

	return b.String()
}

var helpEscaper = strings.NewReplacer("\\", `\\`, "\n", `\n`)

// family writes the HELP and TYPE lines that open one metric family.
func family(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, helpEscaper.Replace(help), name, kind)
}
