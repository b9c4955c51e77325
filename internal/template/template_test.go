/*
Copyright 2020 GramLabs, Inc.

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

package template

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

func TestEngine_RenderArgs(t *testing.T) {
	eng := New()

	cfg := v1alpha1.Values{
		"train": map[string]interface{}{
			"learning_rate":   0.00025,
			"total_timesteps": json.Number("1e8"),
			"batch_size":      int64(65536),
		},
		"env": map[string]interface{}{
			"num_envs": 8.0,
		},
	}
	data := NewRunData("cartpole-1a2b3c4d", "run-1", 3, 42, cfg)

	cases := []struct {
		desc     string
		args     []string
		expected []string
	}{
		{
			desc:     "static arguments",
			args:     []string{"train.py", "--mode", "train"},
			expected: []string{"train.py", "--mode", "train"},
		},
		{
			desc:     "value lookup",
			args:     []string{"--train.learning-rate={{ flag .Values.train.learning_rate }}"},
			expected: []string{"--train.learning-rate=0.00025"},
		},
		{
			desc:     "no exponent",
			args:     []string{"{{ flag .Values.train.total_timesteps }}"},
			expected: []string{"100000000"},
		},
		{
			desc:     "run metadata",
			args:     []string{"--exp-id={{ .ExperimentID }}", "--seed={{ .Seed }}", "{{ .Round | add1 }}"},
			expected: []string{"--exp-id=cartpole-1a2b3c4d", "--seed=42", "4"},
		},
		{
			desc:     "all flags",
			args:     []string{"{{ flags .Values }}"},
			expected: []string{"--env.num-envs=8 --train.batch-size=65536 --train.learning-rate=0.00025 --train.total-timesteps=100000000"},
		},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			actual, err := eng.RenderArgs(c.args, data)
			if assert.NoError(t, err) {
				assert.Equal(t, c.expected, actual)
			}
		})
	}
}

func TestEngine_RenderErrors(t *testing.T) {
	eng := New()
	data := NewRunData("", "", 0, 0, v1alpha1.Values{})

	_, err := eng.RenderString("missing", "{{ .Values.train.gamma }}", data)
	assert.Error(t, err)

	_, err = eng.RenderString("env", `{{ env "HOME" }}`, data)
	assert.Error(t, err)
}

func TestFlags(t *testing.T) {
	assert.Equal(t, []string{"--train.gae-lambda=0.95", "--train.update-epochs=4"}, Flags(map[string]interface{}{
		"train": map[string]interface{}{"gae_lambda": 0.95, "update_epochs": int64(4)},
	}))
}
