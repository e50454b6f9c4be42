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

import "context"

// SerializationContext is the per-call state threaded through every
// converter invocation (§3.1). It is created fresh at each top-level
// Serialize/Deserialize call and discarded at return, except the
// reference map when ReferencePreservationCrossCall is configured.
type SerializationContext struct {
	Ctx      context.Context
	Policy   *Policy
	Provider ShapeProvider

	depth    int
	maxDepth int

	refs *referenceTable
	// interned is the decode-side string intern table, populated lazily.
	interned *internTable
}

func newSerializationContext(ctx context.Context, policy *Policy, provider ShapeProvider, refs *referenceTable, interned *internTable) *SerializationContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SerializationContext{
		Ctx:      ctx,
		Policy:   policy,
		Provider: provider,
		maxDepth: policy.MaxDepth,
		refs:     refs,
		interned: interned,
	}
}

// Enter increments the depth counter for one nested converter
// invocation, failing with DepthExceeded once the configured maximum is
// exceeded. Callers must invoke Leave via defer once Enter succeeds.
func (c *SerializationContext) Enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		return DepthExceededError(c.depth, c.maxDepth)
	}
	return nil
}

// Leave decrements the depth counter after a nested converter invocation
// returns (success or failure).
func (c *SerializationContext) Leave() { c.depth-- }

// Depth reports the current nesting depth.
func (c *SerializationContext) Depth() int { return c.depth }

// Cancelled reports whether the call's context signal fired. Every
// suspension point checks this before awaiting (§5).
func (c *SerializationContext) Cancelled() bool {
	select {
	case <-c.Ctx.Done():
		return true
	default:
		return false
	}
}

// CheckCancelled returns CancelledError() if the context was cancelled,
// else nil. Cancellation is never wrapped with a path breadcrumb (§7).
func (c *SerializationContext) CheckCancelled() error {
	if c.Cancelled() {
		return CancelledError()
	}
	return nil
}
