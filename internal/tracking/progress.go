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

package tracking

import (
	"context"
	"fmt"
	"io"

	"github.com/gosuri/uilive"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// Progress keeps a live status line of the sweep on a terminal.
type Progress struct {
	writer  *uilive.Writer
	goal    v1alpha1.Goal
	total   int
	rounds  int
	failed  int
	best    float64
	hasBest bool
}

var _ Sink = &Progress{}

// NewProgress returns a progress line for a sweep of total rounds written to out.
func NewProgress(out io.Writer, total int, goal v1alpha1.Goal) *Progress {
	w := uilive.New()
	w.Out = out
	if goal == "" {
		goal = v1alpha1.GoalMaximize
	}
	return &Progress{writer: w, total: total, goal: goal}
}

// Record updates the status line.
func (p *Progress) Record(_ context.Context, obs *v1alpha1.Observation, _ v1alpha1.Values) error {
	p.rounds++
	if obs.Failed {
		p.failed++
	} else if !p.hasBest || p.goal.Better(obs.Score, p.best) {
		p.best, p.hasBest = obs.Score, true
	}

	fmt.Fprintln(p.writer, p.String())
	return p.writer.Flush()
}

// String returns the current status.
func (p *Progress) String() string {
	best := "n/a"
	if p.hasBest {
		best = fmt.Sprintf("%g", p.best)
	}
	return fmt.Sprintf("round %d/%d, %d failed, best %s", p.rounds, p.total, p.failed, best)
}

// Close leaves the final status line on the terminal.
func (p *Progress) Close() error {
	return p.writer.Flush()
}
