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

package config

import (
	"fmt"
	"time"
)

// Names of the top level configuration sections that control the sweep. Every other top level
// section is part of the base run configuration handed to the trainer.
const (
	SectionSweep      = "sweep"
	SectionExperiment = "experiment"
	SectionObjective  = "objective"
	SectionOptimizer  = "optimizer"
	SectionTracking   = "tracking"
)

// IsControlSection checks if a top level section configures the sweep instead of the trainer.
func IsControlSection(name string) bool {
	switch name {
	case SectionSweep, SectionExperiment, SectionObjective, SectionOptimizer, SectionTracking:
		return true
	default:
		return false
	}
}

// Experiment configures the sweep loop
type Experiment struct {
	// Name is used as the prefix of the experiment identifier
	Name string `json:"name,omitempty"`
	// ID overrides the generated experiment identifier
	ID string `json:"id,omitempty"`
	// MaxRuns is the number of sweep rounds
	MaxRuns int `json:"maxRuns,omitempty"`
	// ContinueOnFailure records objective failures instead of aborting the sweep
	ContinueOnFailure bool `json:"continueOnFailure,omitempty"`
}

// Objective configures the trainer command
type Objective struct {
	// Command is the trainer executable
	Command string `json:"command,omitempty"`
	// Args are templated trainer arguments
	Args []string `json:"args,omitempty"`
	// Flags appends the run configuration as "--section.key=value" arguments
	Flags bool `json:"flags,omitempty"`
	// Dir is the working directory of the trainer
	Dir string `json:"dir,omitempty"`
	// Env are additional "KEY=value" environment variables of the trainer
	Env []string `json:"env,omitempty"`
	// Metric is the reported metric to optimize
	Metric string `json:"metric,omitempty"`
	// Timeout bounds a single trainer run, e.g. "2h"
	Timeout string `json:"timeout,omitempty"`
}

// TimeoutDuration returns the parsed timeout, zero when unset.
func (o *Objective) TimeoutDuration() (time.Duration, error) {
	if o.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(o.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid objective timeout: %w", err)
	}
	return d, nil
}

// Optimizer configures the adaptive search
type Optimizer struct {
	// MaxSuggestionCost discards suggestions predicted to cost more, zero means no limit
	MaxSuggestionCost float64 `json:"maxSuggestionCost,omitempty"`
	// ResampleFrequency re-proposes a Pareto front point every N suggestions
	ResampleFrequency int `json:"resampleFrequency,omitempty"`
	// MinibatchCeiling is the largest feasible minibatch
	MinibatchCeiling float64 `json:"minibatchCeiling,omitempty"`
	// Seed fixes the per round seeds, zero seeds from the wall clock
	Seed uint64 `json:"seed,omitempty"`
}

// Tracking configures where observations are recorded
type Tracking struct {
	// Log enables logging of every observation
	Log *bool `json:"log,omitempty"`
	// CSV is the path of a CSV file
	CSV string `json:"csv,omitempty"`
	// SQLite is the path of a SQLite database
	SQLite string `json:"sqlite,omitempty"`
	// Progress enables the live progress line
	Progress bool `json:"progress,omitempty"`
}
