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

package validation

import (
	"fmt"
	"math"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// CheckObservation ensures an observation can be handed to the optimizer
func CheckObservation(obs *v1alpha1.Observation) error {
	if math.IsNaN(obs.Score) || math.IsInf(obs.Score, 0) {
		return fmt.Errorf("score %f for round %d is not a finite number", obs.Score, obs.Round)
	}
	if math.IsNaN(obs.Cost) || math.IsInf(obs.Cost, 0) || obs.Cost < 0 {
		return fmt.Errorf("cost %f for round %d must be a non-negative number", obs.Cost, obs.Round)
	}
	if !obs.Failed && obs.Cost == 0 {
		return fmt.Errorf("successful round %d must report a positive cost", obs.Round)
	}
	if obs.Failed && obs.Score != 0 {
		return fmt.Errorf("failed round %d must not report a score", obs.Round)
	}
	if !obs.Failed && obs.Reason != "" {
		return fmt.Errorf("round %d has a failure reason but did not fail", obs.Round)
	}
	return nil
}

// CheckDefinition ensures the base configuration can hold every parameter of the sweep
// description, i.e. no parameter path runs through a scalar configuration value.
func CheckDefinition(tree *v1alpha1.Tree, base v1alpha1.Values) error {
	var conflicts []string
	for _, p := range tree.Flatten() {
		for i := 1; i < len(p.Path); i++ {
			v, ok := base.Get(p.Path[:i]...)
			if !ok {
				break
			}
			switch v.(type) {
			case map[string]interface{}, v1alpha1.Values:
				continue
			}
			conflicts = append(conflicts, p.Name)
			break
		}
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("sweep and base configuration have incompatible definitions for %v", conflicts)
	}
	return nil
}
