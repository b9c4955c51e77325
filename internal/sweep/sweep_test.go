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
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/internal/objective"
	"github.com/thestormforge/optimize-sweep/internal/optimizer"
	"github.com/thestormforge/optimize-sweep/internal/tracking"
	"go.uber.org/zap"
	"sigs.k8s.io/yaml"
)

const testSpaces = `
train:
  learning_rate:
    distribution: log_normal
    mean: 0.0005
    scale: 0.5
    clip: 1
  update_epochs:
    distribution: int_uniform
    min: 1
    max: 4
env:
  num_envs:
    values: [1, 2, "auto"]
`

const testSweep = `
metric:
  name: environment/episode_return
  goal: maximize
` + testSpaces

func parseTree(t *testing.T, desc string) *v1alpha1.Tree {
	var m map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(desc), &m))
	tree, err := v1alpha1.ParseTree(m)
	require.NoError(t, err)
	return tree
}

func testBase() v1alpha1.Values {
	return v1alpha1.Values{
		"train": map[string]interface{}{
			"learning_rate":   0.0003,
			"gamma":           0.99,
			"batch_size":      65536,
			"num_minibatches": 4,
		},
		"env": map[string]interface{}{"num_envs": 8, "name": "breakout"},
	}
}

// recordingModel echoes a fixed suggestion and records observations
type recordingModel struct {
	suggestion map[string]float64
	observed   []optimizer.ObservationInParam
}

func (m *recordingModel) Suggest() optimizer.SuggestOutput {
	return optimizer.SuggestOutput{Suggestion: m.suggestion, Method: optimizer.MethodRandom}
}

func (m *recordingModel) Observe(obs optimizer.ObservationInParam) (optimizer.ObserveOutput, error) {
	m.observed = append(m.observed, obs)
	return optimizer.ObserveOutput{Observations: len(m.observed)}, nil
}

func (m *recordingModel) Reseed(uint64) {}

func (m *recordingModel) Best() (optimizer.ObservationInParam, bool) {
	var best optimizer.ObservationInParam
	var ok bool
	for _, obs := range m.observed {
		if !obs.IsFailure && (!ok || obs.Output > best.Output) {
			best, ok = obs, true
		}
	}
	return best, ok
}

// recordingSink keeps every observation
type recordingSink struct {
	observations []v1alpha1.Observation
	configs      []v1alpha1.Values
}

func (s *recordingSink) Record(_ context.Context, obs *v1alpha1.Observation, cfg v1alpha1.Values) error {
	s.observations = append(s.observations, *obs)
	s.configs = append(s.configs, cfg.DeepCopy())
	return nil
}

func (s *recordingSink) Close() error { return nil }

func TestNewAdaptive(t *testing.T) {
	a, err := NewAdaptive(parseTree(t, testSweep), AdaptiveOptions{Seed: 1})
	require.NoError(t, err)

	var names []string
	for _, p := range a.Parameters() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"env.num_envs", "train.learning_rate", "train.update_epochs"}, names)
	assert.Equal(t, v1alpha1.GoalMaximize, a.Goal())
	assert.Equal(t, StateIdle, a.State())

	opt, ok := a.model.(*optimizer.Optimizer)
	require.True(t, ok)
	assert.Equal(t, 3, opt.Params().NumRandomSamples)
	assert.Equal(t, DefaultResampleFrequency, opt.Params().ResampleFrequency)
	assert.Equal(t, 1.0, opt.Params().BetterDirectionSign)

	a, err = NewAdaptive(parseTree(t, "metric: {goal: minimize}"+testSpaces), AdaptiveOptions{})
	require.NoError(t, err)
	assert.Equal(t, -1.0, a.model.(*optimizer.Optimizer).Params().BetterDirectionSign)
}

func TestAdaptiveRoundTrip(t *testing.T) {
	a, err := NewAdaptive(parseTree(t, testSweep), AdaptiveOptions{})
	require.NoError(t, err)
	m := &recordingModel{suggestion: map[string]float64{
		"env.num_envs":        2,
		"train.learning_rate": 0.0007,
		"train.update_epochs": 3,
	}}
	a.model = m

	base := testBase()
	assignments, err := a.Suggest(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingObservation, a.State())
	assert.Equal(t, v1alpha1.Assignments{
		{Name: "env.num_envs", Value: "auto"},
		{Name: "train.learning_rate", Value: 0.0007},
		{Name: "train.update_epochs", Value: int64(3)},
	}, assignments)

	// Only declared paths change
	assert.Equal(t, v1alpha1.Values{
		"train": map[string]interface{}{
			"learning_rate":   0.0007,
			"gamma":           0.99,
			"batch_size":      65536,
			"num_minibatches": 4,
			"update_epochs":   int64(3),
		},
		"env": map[string]interface{}{"num_envs": "auto", "name": "breakout"},
	}, base)

	// The caller owns the returned copy
	assignments[1].Value = 1.0
	m.suggestion["train.learning_rate"] = 1.0

	_, err = a.Observe(12.5, 30, false)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, a.State())
	require.Len(t, m.observed, 1)
	assert.Equal(t, optimizer.ObservationInParam{
		Input: map[string]float64{
			"env.num_envs":        2,
			"train.learning_rate": 0.0007,
			"train.update_epochs": 3,
		},
		Output: 12.5,
		Cost:   30,
	}, m.observed[0])
}

func TestAdaptiveStateErrors(t *testing.T) {
	a, err := NewAdaptive(parseTree(t, testSweep), AdaptiveOptions{Seed: 7})
	require.NoError(t, err)

	_, err = a.Observe(1, 1, false)
	assert.True(t, errors.Is(err, ErrObserveWithoutSuggest))

	_, err = a.Suggest(context.Background(), testBase())
	require.NoError(t, err)
	_, err = a.Suggest(context.Background(), testBase())
	assert.True(t, errors.Is(err, ErrDoubleSuggest))

	_, err = a.Observe(1, 1, false)
	require.NoError(t, err)
	_, err = a.Observe(1, 1, false)
	assert.True(t, errors.Is(err, ErrObserveWithoutSuggest))
}

func TestMinibatchCeiling(t *testing.T) {
	cases := []struct {
		desc      string
		batchSize interface{}
		minibatch interface{}
		feasible  bool
	}{
		{desc: "too large", batchSize: 100000, minibatch: 1},
		{desc: "at ceiling", batchSize: 65536, minibatch: 2, feasible: true},
		{desc: "above ceiling", batchSize: 131072, minibatch: 2},
		{desc: "missing minibatches", batchSize: 131072, feasible: true},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			cfg := v1alpha1.Values{}
			cfg.Set(c.batchSize, "train", "batch_size")
			if c.minibatch != nil {
				cfg.Set(c.minibatch, "train", "num_minibatches")
			}
			ok, reason := Feasibilities{DefaultFeasibility()}.Check(cfg)
			assert.Equal(t, c.feasible, ok)
			assert.Equal(t, c.feasible, reason == "")
		})
	}
}

func TestFixedSeeds(t *testing.T) {
	s := &FixedSeeds{Seeds: []uint64{10, 20}}
	assert.Equal(t, []uint64{10, 20, 21, 22}, []uint64{s.Next(), s.Next(), s.Next(), s.Next()})
}

func TestSweepAdaptiveInfeasible(t *testing.T) {
	base := testBase()
	base.Set(100000, "train", "batch_size")
	base.Set(1, "train", "num_minibatches")

	var calls int
	sink := &recordingSink{}
	a, err := NewAdaptive(parseTree(t, testSweep), AdaptiveOptions{})
	require.NoError(t, err)

	d := &Driver{
		Base: base,
		Tree: parseTree(t, testSweep),
		Objective: objective.Func(func(context.Context, *objective.Run) (objective.Result, error) {
			calls++
			return objective.Result{Score: 1, Cost: 1}, nil
		}),
		Seeds:        &FixedSeeds{},
		Sink:         sink,
		MaxRuns:      3,
		ExperimentID: "infeasible",
		Log:          zapr.NewLogger(zap.NewNop()),
	}

	summary, err := d.SweepAdaptive(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, 3, summary.Rounds)
	assert.Equal(t, 3, summary.Failures)
	assert.Nil(t, summary.Best)
	assert.Equal(t, StateIdle, a.State())

	require.Len(t, sink.observations, 3)
	for _, obs := range sink.observations {
		assert.True(t, obs.Failed)
		assert.Equal(t, v1alpha1.FailureInfeasible, obs.Reason)
		assert.Equal(t, 0.0, obs.Score)
		assert.Equal(t, 0.0, obs.Cost)
	}
}

func TestSweepAdaptiveEndToEnd(t *testing.T) {
	tree := parseTree(t, testSweep)
	a, err := NewAdaptive(tree, AdaptiveOptions{Seed: 3})
	require.NoError(t, err)

	sink := &recordingSink{}
	base := testBase()
	d := &Driver{
		Base: base,
		Tree: tree,
		Objective: objective.Func(func(_ context.Context, run *objective.Run) (objective.Result, error) {
			lr, err := run.Config.Float64("train", "learning_rate")
			if err != nil {
				return objective.Result{}, err
			}
			return objective.Result{Score: -math.Abs(lr - 1e-3), Cost: 1}, nil
		}),
		Seeds:        &FixedSeeds{Seeds: []uint64{1, 2, 3, 4, 5}},
		Sink:         sink,
		MaxRuns:      5,
		ExperimentID: "e2e",
	}

	summary, err := d.SweepAdaptive(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Rounds)
	assert.Equal(t, 0, summary.Failures)
	require.Len(t, sink.observations, 5)

	best := math.Inf(-1)
	for i, obs := range sink.observations {
		assert.Equal(t, i, obs.Round)
		assert.Equal(t, tracking.RunID("e2e", i), obs.RunID)
		assert.LessOrEqual(t, obs.Score, 0.0)

		lr, ok := obs.Input.Get("train.learning_rate")
		require.True(t, ok)
		assert.InDelta(t, -math.Abs(lr.(float64)-1e-3), obs.Score, 1e-12)

		// The configuration carries the assignment
		cfgLR, err := sink.configs[i].Float64("train", "learning_rate")
		require.NoError(t, err)
		assert.Equal(t, lr, cfgLR)

		best = math.Max(best, obs.Score)
	}
	require.NotNil(t, summary.Best)
	assert.Equal(t, best, summary.Best.Score)

	// The base configuration is never modified
	assert.Equal(t, testBase(), base)
}

func TestSweepAdaptiveBestSoFar(t *testing.T) {
	tree := parseTree(t, `
metric:
  name: score
  goal: maximize
train:
  lr:
    distribution: uniform
    min: 0.0001
    max: 0.01
`)
	a, err := NewAdaptive(tree, AdaptiveOptions{Seed: 11})
	require.NoError(t, err)

	sink := &recordingSink{}
	d := &Driver{
		Base: v1alpha1.Values{},
		Tree: tree,
		Objective: objective.Func(func(_ context.Context, run *objective.Run) (objective.Result, error) {
			lr, err := run.Config.Float64("train", "lr")
			return objective.Result{Score: -math.Abs(lr - 1e-3), Cost: 1}, err
		}),
		Seeds:        &FixedSeeds{Seeds: []uint64{7}},
		Sink:         sink,
		MaxRuns:      5,
		ExperimentID: "best",
	}

	summary, err := d.SweepAdaptive(context.Background(), a)
	require.NoError(t, err)
	require.Len(t, sink.observations, 5)
	first := sink.observations[0].Score

	best, ok := a.Best()
	require.True(t, ok)
	assert.GreaterOrEqual(t, best, first)

	require.NotNil(t, summary.Best)
	assert.GreaterOrEqual(t, summary.Best.Score, first)
	assert.Equal(t, best, summary.Best.Score)
}

func TestSweepZeroCost(t *testing.T) {
	d := &Driver{
		Base: testBase(),
		Tree: parseTree(t, testSweep),
		Objective: objective.Func(func(context.Context, *objective.Run) (objective.Result, error) {
			return objective.Result{Score: 3}, nil
		}),
		Seeds:        &FixedSeeds{},
		MaxRuns:      2,
		ExperimentID: "free",
	}

	summary, err := d.Sweep(context.Background())
	assert.EqualError(t, err, "successful round 0 must report a positive cost")
	assert.Equal(t, 0, summary.Rounds)
}

func TestTrainSkipsFeasibility(t *testing.T) {
	base := testBase()
	base.Set(100000, "train", "batch_size")
	base.Set(1, "train", "num_minibatches")

	var calls int
	d := &Driver{
		Base: base,
		Objective: objective.Func(func(context.Context, *objective.Run) (objective.Result, error) {
			calls++
			return objective.Result{Score: 2, Cost: 1}, nil
		}),
		Seeds:        &FixedSeeds{},
		ExperimentID: "train",
	}

	obs, err := d.Train(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, obs.Failed)
	assert.Equal(t, 2.0, obs.Score)
}

func TestSweepObjectiveFailure(t *testing.T) {
	failing := objective.Func(func(_ context.Context, run *objective.Run) (objective.Result, error) {
		return objective.Result{}, &objective.Error{RunID: run.ID, Reason: "trainer exited with an error"}
	})

	d := &Driver{
		Base:         testBase(),
		Tree:         parseTree(t, testSweep),
		Objective:    failing,
		Seeds:        &FixedSeeds{},
		MaxRuns:      2,
		ExperimentID: "fail",
	}

	_, err := d.Sweep(context.Background())
	var oerr *objective.Error
	assert.True(t, errors.As(err, &oerr))

	d.ContinueOnFailure = true
	summary, err := d.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Rounds)
	assert.Equal(t, 2, summary.Failures)
}

func TestSweepPlain(t *testing.T) {
	sink := &recordingSink{}
	base := testBase()
	d := &Driver{
		Base: base,
		Tree: parseTree(t, testSweep),
		Objective: objective.Func(func(_ context.Context, run *objective.Run) (objective.Result, error) {
			e, err := run.Config.Float64("train", "update_epochs")
			return objective.Result{Score: e, Cost: 1}, err
		}),
		Seeds:        &FixedSeeds{Seeds: []uint64{42}},
		Sink:         sink,
		MaxRuns:      20,
		ExperimentID: "plain",
	}

	summary, err := d.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Rounds)
	require.NotNil(t, summary.Best)

	for _, cfg := range sink.configs {
		e, err := cfg.Float64("train", "update_epochs")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, e, 1.0)
		assert.LessOrEqual(t, e, 4.0)
		assert.LessOrEqual(t, e, summary.Best.Score)

		gamma, _ := cfg.Get("train", "gamma")
		assert.Equal(t, 0.99, gamma)
		name, _ := cfg.Get("env", "name")
		assert.Equal(t, "breakout", name)
	}
	assert.Equal(t, testBase(), base)
}

func TestSweepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &Driver{Tree: parseTree(t, testSweep), Objective: objective.Synthetic{}}
	summary, err := d.Sweep(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, summary.Rounds)
}
