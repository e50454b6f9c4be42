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
	"fmt"
	"log/slog"
	"sync"
)

// ConverterCache is the shape-keyed, thread-safe memoizing table from
// §3.1/§3.2. It is owned by exactly one Serializer configuration; any
// configuration change produces a new Serializer and therefore a new
// cache (Converter immutability invariant).
//
// Keying is on Shape identity, not equality: the map key is the Shape
// interface value itself, so two distinct Shape instances that describe
// equal-looking types are cached separately — this only behaves as the
// spec requires when a ShapeProvider returns the same Shape instance for
// repeated requests about the same type, which reflectshape.Provider
// does by caching per reflect.Type.
type ConverterCache struct {
	mu       sync.Mutex
	entries  map[Shape]*cacheEntry
	builder  *builder
	metrics  *cacheMetrics
	log      *slog.Logger
}

type cacheEntry struct {
	// once both start nil; building=true while a placeholder is
	// installed and construction is in flight on this goroutine chain.
	converter Converter
	building  bool
	done      chan struct{}
}

func newConverterCache(provider ShapeProvider, policy *Policy, log *slog.Logger) *ConverterCache {
	if log == nil {
		log = slog.Default()
	}
	c := &ConverterCache{
		entries: map[Shape]*cacheEntry{},
		metrics: globalCacheMetrics(),
		log:     log,
	}
	c.builder = newBuilder(c, provider, policy)
	return c
}

// GetOrBuild returns the converter for shape, building it via the
// visitor on first request — a design borrowed from the teacher's
// TypeResolver get-or-build pattern.
//
// Any request for a shape already under construction, whether a
// recursive request on the building call stack or one from another
// goroutine, returns at once with a delayedConverter placeholder,
// implementing the cycle-safety invariant of §3.2: the placeholder
// waits for construction to finish on its first Write/Read and then
// forwards to the real converter.
func (c *ConverterCache) GetOrBuild(shape Shape) (Converter, error) {
	c.mu.Lock()
	entry, ok := c.entries[shape]
	if ok {
		if entry.building {
			c.metrics.cycles.Inc()
			c.log.Debug("shapewire: cycle detected, returning delayed converter", "type", fmt.Sprint(shape.Type()))
			placeholder := &delayedConverter{done: entry.done, target: &entry.converter}
			c.mu.Unlock()
			return placeholder, nil
		}
		c.mu.Unlock()
		c.metrics.hits.Inc()
		return entry.converter, nil
	}
	entry = &cacheEntry{building: true, done: make(chan struct{})}
	c.entries[shape] = entry
	c.mu.Unlock()

	c.metrics.builds.Inc()
	c.log.Debug("shapewire: building converter", "type", fmt.Sprint(shape.Type()))
	conv, err := c.builder.build(shape)

	c.mu.Lock()
	if err != nil {
		delete(c.entries, shape)
		c.mu.Unlock()
		close(entry.done)
		return nil, err
	}
	entry.converter = conv
	entry.building = false
	c.mu.Unlock()
	close(entry.done)
	return conv, nil
}

// delayedConverter is the cycle-safety placeholder from §3.2/§9: it
// blocks on `done` (closed once the real converter installs) before
// forwarding, which only actually blocks if Write/Read is invoked before
// the outer build finishes — for a well-formed recursive shape graph,
// the wrapping object/collection converter only calls the placeholder's
// Write/Read from *within its own* Write/Read, i.e. after the outer
// build has already returned a value to install into *target.
type delayedConverter struct {
	done   chan struct{}
	target *Converter
}

func (d *delayedConverter) resolved() Converter {
	<-d.done
	return *d.target
}

func (d *delayedConverter) Write(ctx *SerializationContext, buf *ByteBuffer, value any) error {
	return d.resolved().Write(ctx, buf, value)
}

func (d *delayedConverter) Read(ctx *SerializationContext, buf *ByteBuffer) (any, error) {
	return d.resolved().Read(ctx, buf)
}

func (d *delayedConverter) PreferAsync() bool {
	if c := d.resolved(); c != nil {
		return c.PreferAsync()
	}
	return false
}
