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

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues(t *testing.T) {
	v := Values{
		"train": map[string]interface{}{
			"batch_size":      json.Number("65536"),
			"num_minibatches": 4,
		},
	}

	bs, err := v.Float64("train", "batch_size")
	require.NoError(t, err)
	assert.Equal(t, 65536.0, bs)

	_, err = v.Float64("train", "missing")
	assert.EqualError(t, err, `missing configuration value "train.missing"`)

	v.Set(0.001, "train", "learning_rate")
	v.Set(8, "env", "num_envs")
	lr, ok := v.Get("train", "learning_rate")
	assert.True(t, ok)
	assert.Equal(t, 0.001, lr)

	assert.Equal(t, Assignments{
		{Name: "env.num_envs", Value: 8},
		{Name: "train.batch_size", Value: json.Number("65536")},
		{Name: "train.learning_rate", Value: 0.001},
		{Name: "train.num_minibatches", Value: 4},
	}, v.Flatten())
}

func TestValuesDeepCopy(t *testing.T) {
	v := Values{"train": map[string]interface{}{"gamma": 0.99}}
	c := v.DeepCopy()
	c.Set(0.9, "train", "gamma")

	g, _ := v.Get("train", "gamma")
	assert.Equal(t, 0.99, g)
}

func TestValuesMerge(t *testing.T) {
	v := Values{
		"train": map[string]interface{}{"gamma": 0.99, "update_epochs": 1},
		"env":   map[string]interface{}{"num_envs": 8},
	}
	v.Merge(Values{
		"train":  map[string]interface{}{"gamma": 0.95},
		"policy": map[string]interface{}{"hidden_size": 128},
	})

	assert.Equal(t, Values{
		"train":  map[string]interface{}{"gamma": 0.95, "update_epochs": 1},
		"env":    map[string]interface{}{"num_envs": 8},
		"policy": map[string]interface{}{"hidden_size": 128},
	}, v)
}

func TestAssignments(t *testing.T) {
	a := Assignments{{Name: "train.gamma", Value: 0.99}, {Name: "env.num_envs", Value: int64(4)}}
	c := a.DeepCopy()
	c[0].Value = 0.5

	g, ok := a.Get("train.gamma")
	assert.True(t, ok)
	assert.Equal(t, 0.99, g)

	assert.Equal(t, Values{
		"train": map[string]interface{}{"gamma": 0.99},
		"env":   map[string]interface{}{"num_envs": int64(4)},
	}, a.ToValues())
}

func TestGoal(t *testing.T) {
	assert.True(t, GoalMaximize.Better(2, 1))
	assert.True(t, GoalMinimize.Better(1, 2))
	assert.False(t, GoalMinimize.Better(1, 1))
	assert.Equal(t, -1.0, GoalMinimize.Sign())
}
