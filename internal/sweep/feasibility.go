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

package sweep

import (
	"fmt"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// DefaultMinibatchCeiling is the largest minibatch the trainer can fit in memory.
const DefaultMinibatchCeiling = 32768

// Feasibility decides if a run configuration is worth evaluating. Infeasible configurations are
// recorded as failures without running the objective.
type Feasibility interface {
	// Check returns false and a reason when the configuration is infeasible
	Check(cfg v1alpha1.Values) (bool, string)
}

// MinibatchCeiling rejects configurations whose minibatch (train.batch_size divided by
// train.num_minibatches) exceeds the ceiling. Configurations without both values pass.
type MinibatchCeiling struct {
	Ceiling float64
}

// Check compares the minibatch size against the ceiling.
func (m MinibatchCeiling) Check(cfg v1alpha1.Values) (bool, string) {
	bs, err := cfg.Float64("train", "batch_size")
	if err != nil {
		return true, ""
	}
	mb, err := cfg.Float64("train", "num_minibatches")
	if err != nil || mb <= 0 {
		return true, ""
	}

	ceiling := m.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultMinibatchCeiling
	}
	if size := bs / mb; size > ceiling {
		return false, fmt.Sprintf("minibatch size %g exceeds %g", size, ceiling)
	}
	return true, ""
}

// Feasibilities requires every check to pass.
type Feasibilities []Feasibility

// Check runs each check in order, returning the first rejection.
func (fs Feasibilities) Check(cfg v1alpha1.Values) (bool, string) {
	for _, f := range fs {
		if ok, reason := f.Check(cfg); !ok {
			return false, reason
		}
	}
	return true, ""
}

// DefaultFeasibility returns the checks used when none are configured.
func DefaultFeasibility() Feasibility {
	return MinibatchCeiling{Ceiling: DefaultMinibatchCeiling}
}
