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

package objective

import (
	"context"
	"math"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// Synthetic is a closed form stand in for a training run. It rewards learning rate, discount and
// GAE parameters close to well known defaults and scales the reward with the amount of data the
// run would have processed. Every evaluation costs 1.
type Synthetic struct{}

var _ Objective = Synthetic{}

// syntheticInputs are the configuration values read by the synthetic objective.
var syntheticInputs = []string{
	"env.num_envs",
	"train.total_timesteps",
	"train.batch_size",
	"train.num_minibatches",
	"train.learning_rate",
	"train.gamma",
	"train.gae_lambda",
	"train.update_epochs",
	"train.bptt_horizon",
}

// Evaluate computes the synthetic score of the run configuration.
func (Synthetic) Evaluate(_ context.Context, run *Run) (Result, error) {
	v := make(map[string]float64, len(syntheticInputs))
	for _, name := range syntheticInputs {
		f, err := run.Config.Float64(v1alpha1.SplitName(name)...)
		if err != nil {
			return Result{}, &Error{RunID: run.ID, Reason: "synthetic objective", Err: err}
		}
		v[name] = f
	}
	return Result{Score: SyntheticScore(v), Cost: 1}, nil
}

// SyntheticScore computes the synthetic score from qualified configuration values.
func SyntheticScore(v map[string]float64) float64 {
	base := -100*math.Abs(v["train.learning_rate"]-0.001) -
		100*math.Abs(v["train.gamma"]-0.99) -
		100*math.Abs(v["train.gae_lambda"]-0.95) -
		math.Abs(v["train.bptt_horizon"]-16)/16.0 +
		20.0

	mod := math.Log2(v["train.total_timesteps"]) / math.Log2(100_000_000) *
		math.Sqrt(v["train.batch_size"]) / math.Sqrt(65536) *
		math.Sqrt(v["train.num_minibatches"]) *
		math.Sqrt(v["train.update_epochs"])

	return mod * base
}
