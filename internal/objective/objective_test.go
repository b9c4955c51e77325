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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

func optimalConfig() v1alpha1.Values {
	return v1alpha1.Values{
		"env": map[string]interface{}{"num_envs": 8},
		"train": map[string]interface{}{
			"total_timesteps": 100_000_000,
			"batch_size":      65536,
			"num_minibatches": 1,
			"learning_rate":   0.001,
			"gamma":           0.99,
			"gae_lambda":      0.95,
			"update_epochs":   1,
			"bptt_horizon":    16,
		},
	}
}

func TestSynthetic(t *testing.T) {
	cases := []struct {
		desc     string
		modify   func(v v1alpha1.Values)
		expected float64
	}{
		{
			desc:     "optimal",
			modify:   func(v1alpha1.Values) {},
			expected: 20,
		},
		{
			desc:     "learning rate penalty",
			modify:   func(v v1alpha1.Values) { v.Set(0.011, "train", "learning_rate") },
			expected: 19,
		},
		{
			desc:     "more minibatches",
			modify:   func(v v1alpha1.Values) { v.Set(4, "train", "num_minibatches") },
			expected: 40,
		},
		{
			desc:     "bptt penalty",
			modify:   func(v v1alpha1.Values) { v.Set(32, "train", "bptt_horizon") },
			expected: 19,
		},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			cfg := optimalConfig()
			c.modify(cfg)
			r, err := Synthetic{}.Evaluate(context.Background(), &Run{ID: "r", Config: cfg})
			require.NoError(t, err)
			assert.InDelta(t, c.expected, r.Score, 1e-9)
			assert.Equal(t, 1.0, r.Cost)
		})
	}
}

func TestSyntheticMissingValue(t *testing.T) {
	cfg := optimalConfig()
	delete(cfg["train"].(map[string]interface{}), "gamma")

	_, err := Synthetic{}.Evaluate(context.Background(), &Run{ID: "r1", Config: cfg})
	var oerr *Error
	require.True(t, errors.As(err, &oerr))
	assert.Equal(t, "r1", oerr.RunID)
	assert.EqualError(t, err, `objective failed for run r1: synthetic objective: missing configuration value "train.gamma"`)
}

func TestFunc(t *testing.T) {
	var called *Run
	obj := Func(func(_ context.Context, run *Run) (Result, error) {
		called = run
		return Result{Score: 1, Cost: 2}, nil
	})

	run := &Run{ID: "x"}
	r, err := obj.Evaluate(context.Background(), run)
	require.NoError(t, err)
	assert.Same(t, run, called)
	assert.Equal(t, Result{Score: 1, Cost: 2}, r)
}
