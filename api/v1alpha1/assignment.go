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

package v1alpha1

import "time"

// Assignment represents an individual name/value pair. Assignment names are qualified parameter
// names (e.g. "train.learning_rate").
type Assignment struct {
	// Name of the parameter being assigned
	Name string `json:"name"`
	// Value of the assignment
	Value interface{} `json:"value"`
}

// Assignments is an ordered list of parameter assignments, e.g. a suggestion from an optimizer.
type Assignments []Assignment

// Get returns an assignment value by name.
func (in Assignments) Get(name string) (interface{}, bool) {
	for i := range in {
		if in[i].Name == name {
			return in[i].Value, true
		}
	}
	return nil, false
}

// DeepCopy returns a copy of the assignments that can be modified independently.
func (in Assignments) DeepCopy() Assignments {
	if in == nil {
		return nil
	}
	out := make(Assignments, len(in))
	for i := range in {
		out[i] = Assignment{Name: in[i].Name, Value: deepCopyValue(in[i].Value)}
	}
	return out
}

// ToValues returns the assignments as a nested configuration.
func (in Assignments) ToValues() Values {
	v := make(Values, len(in))
	for i := range in {
		v.Set(in[i].Value, SplitName(in[i].Name)...)
	}
	return v
}

// FailureReason explains why an observation was recorded as a failure.
type FailureReason string

const (
	// FailureInfeasible is used when a configuration was rejected before the objective was evaluated
	FailureInfeasible FailureReason = "Infeasible"
	// FailureObjective is used when the objective itself failed
	FailureObjective FailureReason = "ObjectiveFailed"
)

// Observation is the recorded outcome of one sweep round.
type Observation struct {
	// Round is the zero based index of the round in the sweep
	Round int `json:"round"`
	// RunID uniquely identifies the run that produced this observation
	RunID string `json:"runID,omitempty"`
	// Input is the exact parameter assignment that produced the run configuration
	Input Assignments `json:"input"`
	// Score is the objective metric value
	Score float64 `json:"score"`
	// Cost is the (non-negative) resource expenditure for the run
	Cost float64 `json:"cost"`
	// Failed indicates the round must be excluded from productive search
	Failed bool `json:"failed,omitempty"`
	// Reason is set when the round failed
	Reason FailureReason `json:"reason,omitempty"`
	// Start is the time the round started
	Start time.Time `json:"start,omitempty"`
	// Duration is the wall clock time the round took
	Duration time.Duration `json:"duration,omitempty"`
}
