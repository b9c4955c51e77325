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

import "fmt"

// Goal is the optimization direction of a metric.
type Goal string

const (
	// GoalMaximize indicates higher scores are better
	GoalMaximize Goal = "maximize"
	// GoalMinimize indicates lower scores are better
	GoalMinimize Goal = "minimize"
)

// Sign returns +1 for maximize and -1 for minimize.
func (g Goal) Sign() float64 {
	if g == GoalMinimize {
		return -1
	}
	return 1
}

// Better returns true if score a is strictly better then score b.
func (g Goal) Better(a, b float64) bool {
	return g.Sign()*a > g.Sign()*b
}

// Metric describes the value reported by a training run that a sweep optimizes.
type Metric struct {
	// Name of the metric reported by the training run
	Name string `json:"name"`
	// Goal is the optimization direction, defaults to maximize
	Goal Goal `json:"goal,omitempty"`
}

func parseMetric(v interface{}) (*Metric, error) {
	m, ok := asMap(v)
	if !ok {
		return nil, fmt.Errorf("metric must be a mapping")
	}

	metric := &Metric{Goal: GoalMaximize}
	if name, ok := m["name"]; ok {
		metric.Name = fmt.Sprint(name)
	}
	if goal, ok := m["goal"]; ok {
		metric.Goal = Goal(fmt.Sprint(goal))
	}

	switch metric.Goal {
	case GoalMaximize, GoalMinimize:
		return metric, nil
	default:
		return nil, fmt.Errorf("invalid goal %q, must be %q or %q", metric.Goal, GoalMaximize, GoalMinimize)
	}
}
