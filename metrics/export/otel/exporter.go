package otel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	authkit "github.com/bezrook/authkit"
	"github.com/bezrook/authkit/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// metricsSource is the slice of Engine the exporter needs. Any type with
// the same snapshot methods works, which keeps the tests free of Redis.
type metricsSource interface {
	MetricsSnapshot() authkit.MetricsSnapshot
	AuditDropped() uint64
}

// instrumentRead pairs one registered observable with the function that
// derives its value from a snapshot. All instruments share a single
// RegisterCallback invocation so one snapshot copy serves the whole
// collection cycle.
type instrumentRead struct {
	observable metric.Int64Observable
	read       func(snap authkit.MetricsSnapshot, auditDropped uint64) int64
}

// OTelExporter mirrors engine metrics into OpenTelemetry observable
// instruments. It is pull-based: values are read from a MetricsSnapshot
// at collection time, never pushed.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	closeOnce    sync.Once
}

// NewOTelExporter registers every engine counter, the validate-latency
// histogram buckets, and the audit drop counter on the meter.
func NewOTelExporter(meter metric.Meter, engine *authkit.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for a custom snapshot
// source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var reads []instrumentRead

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		reads = append(reads, instrumentRead{
			observable: ins,
			read: func(snap authkit.MetricsSnapshot, _ uint64) int64 {
				return int64(snap.Counters[id])
			},
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		id := def.ID
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			bucket := i
			ins, err := meter.Int64ObservableGauge(
				def.Name+"_bucket_le_"+suffix,
				metric.WithDescription("Cumulative histogram bucket count."),
			)
			if err != nil {
				return nil, fmt.Errorf("create bucket gauge %s_%s: %w", def.Name, suffix, err)
			}
			reads = append(reads, instrumentRead{
				observable: ins,
				read: func(snap authkit.MetricsSnapshot, _ uint64) int64 {
					c := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
					return int64(c[bucket])
				},
			})
		}
		ins, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s: %w", def.Name, err)
		}
		reads = append(reads, instrumentRead{
			observable: ins,
			read: func(snap authkit.MetricsSnapshot, _ uint64) int64 {
				c := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
				return int64(c[len(c)-1])
			},
		})
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"authkit_audit_dropped_total",
		metric.WithDescription("Audit events accepted for emission but never delivered."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	reads = append(reads, instrumentRead{
		observable: auditDropped,
		read: func(_ authkit.MetricsSnapshot, dropped uint64) int64 {
			return int64(dropped)
		},
	})

	observables := make([]metric.Observable, len(reads))
	for i, r := range reads {
		observables[i] = r.observable
	}

	exporter := &OTelExporter{source: source}
	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snap := source.MetricsSnapshot()
		dropped := source.AuditDropped()
		for _, r := range reads {
			observer.ObserveInt64(r.observable, r.read(snap, dropped))
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration

	return exporter, nil
}

// Close unregisters the collection callback. Safe to call more than
// once; only the first call unregisters.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	var err error
	e.closeOnce.Do(func() {
		err = e.registration.Unregister()
	})
	return err
}
