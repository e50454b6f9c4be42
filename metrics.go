// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package shapewire

import (
	"context"
	"sync"

	vmetrics "github.com/VictoriaMetrics/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// cacheMetrics holds the process-global VictoriaMetrics counters shared
// by every ConverterCache in the process, the way a storage engine would
// export one counter family regardless of how many instances exist.
type cacheMetrics struct {
	hits   *vmetrics.Counter
	builds *vmetrics.Counter
	cycles *vmetrics.Counter
}

var globalCacheMetrics = sync.OnceValue(func() *cacheMetrics {
	return &cacheMetrics{
		hits:   vmetrics.NewCounter("shapewire_cache_hit_total"),
		builds: vmetrics.NewCounter("shapewire_cache_build_total"),
		cycles: vmetrics.NewCounter("shapewire_cache_cycle_total"),
	}
})

// facadeInstrumentation lazily creates the serializer facade's OpenTelemetry
// meter and tracer, mirroring how rbaliyan-event's bus.go obtains a single
// otel.Meter/otel.Tracer per component rather than per call.
// cacheMissCtr and cacheHitCtr are registered but no code path adds to
// them.
type facadeInstrumentation struct {
	tracer       trace.Tracer
	callCounter  metric.Int64Counter
	depthHist    metric.Int64Histogram
	cacheMissCtr metric.Int64Counter
	cacheHitCtr  metric.Int64Counter
}

var globalFacadeInstrumentation = sync.OnceValue(func() *facadeInstrumentation {
	meter := otel.Meter("github.com/shapewire/shapewire")
	tracer := otel.Tracer("github.com/shapewire/shapewire")

	callCounter, _ := meter.Int64Counter("shapewire.calls",
		metric.WithDescription("Top-level Serialize/Deserialize calls"))
	depthHist, _ := meter.Int64Histogram("shapewire.call_depth",
		metric.WithDescription("Maximum recursion depth reached per call"))
	cacheMissCtr, _ := meter.Int64Counter("shapewire.cache_misses",
		metric.WithDescription("Converter cache misses observed by the facade"))
	cacheHitCtr, _ := meter.Int64Counter("shapewire.cache_hits",
		metric.WithDescription("Converter cache hits observed by the facade"))

	return &facadeInstrumentation{
		tracer:       tracer,
		callCounter:  callCounter,
		depthHist:    depthHist,
		cacheMissCtr: cacheMissCtr,
		cacheHitCtr:  cacheHitCtr,
	}
})

func (f *facadeInstrumentation) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return f.tracer.Start(ctx, "shapewire."+operation)
}
