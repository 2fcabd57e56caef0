package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/forumauth"
	"github.com/MrEthical07/forumauth/metrics/export/internaldefs"
)

// Source is the subset of *forumauth.Engine the exporter reads.
type Source interface {
	MetricsSnapshot() forumauth.MetricsSnapshot
	AuditDropped() uint64
	RevocationStats() forumauth.RevocationStats
}

// Exporter renders engine metrics on demand. It holds no state of its own.
type Exporter struct {
	source Source
}

// NewExporter creates an exporter reading from engine.
func NewExporter(engine *forumauth.Engine) *Exporter {
	return &Exporter{source: engine}
}

// NewExporterFromSource creates an exporter reading from a custom source.
func NewExporterFromSource(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves the current metrics.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text, or "" when metrics are disabled.
func (p *Exporter) Render() string {
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
		writeHeader(&b, def.Name, def.Help, "counter")
		writeSample(&b, def.Name, "", snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
	}

	writeHeader(&b, "forumauth_audit_dropped_total", "Audit events dropped because the buffer was full.", "counter")
	writeSample(&b, "forumauth_audit_dropped_total", "", dropped)

	// Redis-backed registries report -1; their size lives in Redis.
	if stats := p.source.RevocationStats(); stats.Access >= 0 && stats.Refresh >= 0 {
		writeHeader(&b, "forumauth_revoked_tokens", "Revoked token ids awaiting expiry.", "gauge")
		writeSample(&b, "forumauth_revoked_tokens", `type="access"`, uint64(stats.Access))
		writeSample(&b, "forumauth_revoked_tokens", `type="refresh"`, uint64(stats.Refresh))
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, labels string, value uint64) {
	b.WriteString(name)
	if labels != "" {
		b.WriteByte('{')
		b.WriteString(labels)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", `le="`+le+`"`, cumulative[i])
	}
	writeSample(b, name+"_count", "", cumulative[len(cumulative)-1])
	// The engine keeps bucket counts only.
	writeSample(b, name+"_sum", "", 0)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
