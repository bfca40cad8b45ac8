/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package metrics

import (
	"sync"

	"github.com/couchbase/zkensemble/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "com.couchbase.zkensemble"

type GeneratorMetrics struct {
	Generations        metric.Int64Counter
	GenerationFailures metric.Int64Counter
	GenerationDuration metric.Float64Histogram
	EnsembleMembers    metric.Int64Gauge
	BundlesWritten     metric.Int64Counter
	HostUpdates        metric.Int64Counter
}

var (
	generatorMetrics     *GeneratorMetrics
	generatorMetricsLock sync.Mutex
)

func GetGeneratorMetrics() *GeneratorMetrics {
	generatorMetricsLock.Lock()
	defer generatorMetricsLock.Unlock()

	if generatorMetrics == nil {
		generatorMetrics = NewGeneratorMetrics(otel.GetMeterProvider())
	}

	return generatorMetrics
}

// NewGeneratorMetrics creates the instruments against a specific provider.
// Instrument creation errors are ignored, the api falls back to no-op
// instruments in that case.
func NewGeneratorMetrics(provider metric.MeterProvider) *GeneratorMetrics {
	meter := provider.Meter(meterName,
		metric.WithInstrumentationVersion(version.Get()))

	generations, _ := meter.Int64Counter("zkensemble_generations_total",
		metric.WithDescription("ensemble configuration generations attempted"))
	generationFailures, _ := meter.Int64Counter("zkensemble_generation_failures_total",
		metric.WithDescription("ensemble configuration generations that failed"))
	generationDuration, _ := meter.Float64Histogram("zkensemble_generation_duration_seconds",
		metric.WithUnit("s"))
	ensembleMembers, _ := meter.Int64Gauge("zkensemble_members",
		metric.WithDescription("members in the last generated ensemble"))
	bundlesWritten, _ := meter.Int64Counter("zkensemble_bundles_written_total")
	hostUpdates, _ := meter.Int64Counter("zkensemble_host_updates_total",
		metric.WithDescription("host pool updates received from the host source"))

	return &GeneratorMetrics{
		Generations:        generations,
		GenerationFailures: generationFailures,
		GenerationDuration: generationDuration,
		EnsembleMembers:    ensembleMembers,
		BundlesWritten:     bundlesWritten,
		HostUpdates:        hostUpdates,
	}
}
