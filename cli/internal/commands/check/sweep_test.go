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

package check

import (
	"context"
	"testing"

	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"sigs.k8s.io/yaml"
)

func decode(t *testing.T, s string) map[string]interface{} {
	var m map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(s), &m))
	return m
}

func TestLint(t *testing.T) {
	cases := []struct {
		desc     string
		sweep    string
		base     v1alpha1.Values
		maxRuns  int
		errors   []string
		warnings []string
	}{
		{
			desc: "clean",
			sweep: `
metric: {name: score, goal: maximize}
train:
  learning_rate: {distribution: log_normal, mean: 0.001, scale: 0.5, clip: 1}
`,
			maxRuns: 20,
		},
		{
			desc: "missing metric",
			sweep: `
train:
  learning_rate: {distribution: log_normal, mean: 0.001, scale: 0.5, clip: 1}
`,
			errors: []string{"Metric is required"},
		},
		{
			desc: "small budget",
			sweep: `
metric: {name: score}
train:
  gamma: {distribution: uniform, min: 0.9, max: 0.99}
  update_epochs: {distribution: int_uniform, min: 1, max: 1}
`,
			maxRuns:  10,
			warnings: []string{"Metric goal is not set, the score will be maximized", "Run budget should be increased", "Parameter range is empty"},
		},
		{
			desc: "invalid distribution",
			sweep: `
metric: {name: score, goal: maximize}
train:
  gamma: {distribution: cauchy, min: 0, max: 1}
`,
			errors: []string{"Sweep description is invalid"},
		},
		{
			desc: "base conflict",
			sweep: `
metric: {name: score, goal: maximize}
train:
  learning_rate: {distribution: log_normal, mean: 0.001, scale: 0.5, clip: 1}
`,
			base:   v1alpha1.Values{"train": "ppo"},
			errors: []string{"Base configuration conflicts with the sweep description"},
		},
		{
			desc: "infeasible base",
			sweep: `
metric: {name: score, goal: maximize}
env:
  num_envs: {values: [8]}
`,
			base: v1alpha1.Values{"train": map[string]interface{}{"batch_size": 65536, "num_minibatches": 1}},
			warnings: []string{
				"Base configuration is infeasible",
				"Parameter has a single value",
			},
		},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			cfg := &config.Config{
				Sweep:      decode(t, c.sweep),
				Base:       c.base,
				Experiment: config.Experiment{MaxRuns: c.maxRuns},
				Optimizer:  config.Optimizer{MinibatchCeiling: config.DefaultMinibatchCeiling},
			}

			Lint(context.Background(), zapr.NewLogger(zap.New(core)), cfg)

			var errors, warnings []string
			for _, e := range logs.All() {
				switch e.Level {
				case zapcore.ErrorLevel:
					errors = append(errors, e.Message)
				case zapcore.WarnLevel:
					warnings = append(warnings, e.Message)
				}
			}
			assert.Equal(t, c.errors, errors)
			assert.Equal(t, c.warnings, warnings)
		})
	}
}

func TestCheckObjective(t *testing.T) {
	cases := []struct {
		desc     string
		obj      config.Objective
		expected string
	}{
		{
			desc: "valid",
			obj:  config.Objective{Command: "sh", Args: []string{"--lr={{ .Values.train.learning_rate }}"}, Metric: "score"},
		},
		{
			desc:     "missing command",
			obj:      config.Objective{Metric: "score"},
			expected: "objective command is required",
		},
		{
			desc:     "missing metric",
			obj:      config.Objective{Command: "sh"},
			expected: "objective metric is required",
		},
		{
			desc:     "bad environment",
			obj:      config.Objective{Command: "sh", Metric: "score", Env: []string{"CUDA_VISIBLE_DEVICES"}},
			expected: `objective environment must be KEY=value, got "CUDA_VISIBLE_DEVICES"`,
		},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			err := CheckObjective(&c.obj, v1alpha1.Values{"train": map[string]interface{}{"learning_rate": 0.001}})
			if c.expected == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, c.expected)
			}
		})
	}
}
