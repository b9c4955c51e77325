/*
Copyright 2021 GramLabs, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package objective contains the training objectives evaluated by a sweep.
package objective

import (
	"context"
	"fmt"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// Run is a single evaluation request.
type Run struct {
	// ExperimentID identifies the sweep
	ExperimentID string
	// ID identifies the run
	ID string
	// Round is the zero based round of the sweep
	Round int
	// Seed is the value the round was reseeded with
	Seed uint64
	// Config is the run configuration, owned by the run
	Config v1alpha1.Values
}

// Result is the outcome of a successful evaluation.
type Result struct {
	// Score is the value of the target metric
	Score float64
	// Cost is the resource expenditure, e.g. the training uptime in seconds
	Cost float64
}

// Objective evaluates a run configuration. Evaluation is blocking and may be expensive.
type Objective interface {
	Evaluate(ctx context.Context, run *Run) (Result, error)
}

// Func adapts an ordinary function to the Objective interface.
type Func func(ctx context.Context, run *Run) (Result, error)

// Evaluate calls f(ctx, run).
func (f Func) Evaluate(ctx context.Context, run *Run) (Result, error) {
	return f(ctx, run)
}

// Error is returned when an objective fails to produce a result.
type Error struct {
	// RunID is the identifier of the failed run
	RunID string
	// Reason is a short description of the failure
	Reason string
	// Err is the underlying error, if any
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("objective failed for run %s: %s: %v", e.RunID, e.Reason, e.Err)
	}
	return fmt.Sprintf("objective failed for run %s: %s", e.RunID, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}
