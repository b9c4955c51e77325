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
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/internal/optimizer"
	"github.com/thestormforge/optimize-sweep/internal/validation"
)

var (
	// ErrDoubleSuggest is returned when a suggestion is requested while another is awaiting its observation
	ErrDoubleSuggest = errors.New("suggestion requested while another suggestion is awaiting observation")
	// ErrObserveWithoutSuggest is returned when an observation is recorded without a pending suggestion
	ErrObserveWithoutSuggest = errors.New("observation recorded without a pending suggestion")
)

// State is the state of the suggest/observe cycle.
type State int

const (
	// StateIdle accepts a suggestion request
	StateIdle State = iota
	// StateAwaitingObservation accepts an observation for the pending suggestion
	StateAwaitingObservation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingObservation:
		return "AwaitingObservation"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultResampleFrequency re-proposes a Pareto front point every fifth suggestion.
const DefaultResampleFrequency = 5

// AdaptiveOptions configures the sequential optimizer behind an adaptive sweep.
type AdaptiveOptions struct {
	// MaxSuggestionCost discards suggestions predicted to cost more, zero means no limit
	MaxSuggestionCost float64
	// ResampleFrequency overrides the default resample frequency
	ResampleFrequency int
	// Seed is the initial seed of the optimizer
	Seed uint64
	// Log is used for debug output
	Log logr.Logger
}

// model is the subset of the optimizer used by the adapter.
type model interface {
	Suggest() optimizer.SuggestOutput
	Observe(optimizer.ObservationInParam) (optimizer.ObserveOutput, error)
	Reseed(seed uint64)
	Best() (optimizer.ObservationInParam, bool)
}

// Adaptive adapts a sequential optimizer to nested run configurations. Every suggestion must be
// followed by exactly one observation before the next suggestion.
type Adaptive struct {
	params  []v1alpha1.Parameter
	goal    v1alpha1.Goal
	model   model
	state   State
	pending map[string]float64
	log     logr.Logger
}

// NewAdaptive flattens the parameter spaces of the sweep description into an optimizer.
func NewAdaptive(tree *v1alpha1.Tree, opts AdaptiveOptions) (*Adaptive, error) {
	a := &Adaptive{
		params: tree.Flatten(),
		goal:   v1alpha1.GoalMaximize,
		log:    opts.Log,
	}
	if tree.Metric != nil && tree.Metric.Goal != "" {
		a.goal = tree.Metric.Goal
	}

	space := make([]optimizer.Param, 0, len(a.params))
	for i := range a.params {
		p, err := optimizerParam(&a.params[i])
		if err != nil {
			return nil, err
		}
		space = append(space, p)
	}

	params := optimizer.DefaultParams()
	params.BetterDirectionSign = a.goal.Sign()
	params.NumRandomSamples = len(space)
	params.ResampleFrequency = DefaultResampleFrequency
	if opts.ResampleFrequency > 0 {
		params.ResampleFrequency = opts.ResampleFrequency
	}
	params.MaxSuggestionCost = opts.MaxSuggestionCost
	params.Seed = opts.Seed

	opt, err := optimizer.New(params, space)
	if err != nil {
		return nil, err
	}
	a.model = opt
	return a, nil
}

// optimizerParam maps a parameter space onto the search space of the optimizer.
func optimizerParam(p *v1alpha1.Parameter) (optimizer.Param, error) {
	var (
		space optimizer.Space
		err   error
	)
	search := v1alpha1.SearchOf(p.Space)
	switch s := p.Space.(type) {
	case *v1alpha1.Uniform:
		space, err = optimizer.NewRealSpace(optimizer.Linear, s.Min, s.Max, false)
	case *v1alpha1.IntUniform:
		space, err = optimizer.NewRealSpace(optimizer.Linear, float64(s.Min), float64(s.Max), true)
	case *v1alpha1.UniformPow2:
		space, err = optimizer.NewRealSpace(optimizer.Pow2, s.Min, s.Max, true)
	case *v1alpha1.LogNormal:
		lo, hi := bounds(s.Min, s.Max, s.Range)
		space, err = optimizer.NewRealSpace(optimizer.Log, lo, hi, false)
	case *v1alpha1.LogitNormal:
		lo, hi := bounds(s.Min, s.Max, s.Range)
		space, err = optimizer.NewRealSpace(optimizer.Logit, lo, hi, false)
	case *v1alpha1.FixedSet:
		space = &optimizer.CategoricalSpace{N: len(s.Values)}
	default:
		err = fmt.Errorf("unsupported space %T", p.Space)
	}
	if err != nil {
		return optimizer.Param{}, &v1alpha1.MalformedParameterSpaceError{Parameter: p.Name, Reason: err.Error()}
	}
	return optimizer.Param{Name: p.Name, Space: space, SearchCenter: search.Center, Scale: search.Scale}, nil
}

func bounds(min, max float64, r func() (float64, float64)) (float64, float64) {
	lo, hi := r()
	if min > 0 {
		lo = min
	}
	if max > 0 {
		hi = max
	}
	return lo, hi
}

// State returns the current state of the suggest/observe cycle.
func (a *Adaptive) State() State {
	return a.state
}

// Goal returns the optimization direction.
func (a *Adaptive) Goal() v1alpha1.Goal {
	return a.goal
}

// Parameters returns the flattened parameters being optimized.
func (a *Adaptive) Parameters() []v1alpha1.Parameter {
	return a.params
}

// Reseed resets the random source of the optimizer.
func (a *Adaptive) Reseed(seed uint64) {
	a.model.Reseed(seed)
}

// Suggest requests a new suggestion and applies it onto the base configuration in place. Only
// the paths declared by the sweep description are modified. The returned assignments are a copy.
func (a *Adaptive) Suggest(_ context.Context, base v1alpha1.Values) (v1alpha1.Assignments, error) {
	if a.state != StateIdle {
		return nil, ErrDoubleSuggest
	}

	out := a.model.Suggest()
	assignments := make(v1alpha1.Assignments, 0, len(a.params))
	for i := range a.params {
		p := &a.params[i]
		v, ok := out.Suggestion[p.Name]
		if !ok {
			return nil, fmt.Errorf("suggestion is missing parameter %q", p.Name)
		}
		assignments = append(assignments, v1alpha1.Assignment{Name: p.Name, Value: nativeValue(p.Space, v)})
	}
	if err := validation.CheckAssignments(assignments, a.params); err != nil {
		return nil, err
	}

	for i := range assignments {
		base.Set(assignments[i].Value, a.params[i].Path...)
	}

	a.pending = make(map[string]float64, len(out.Suggestion))
	for k, v := range out.Suggestion {
		a.pending[k] = v
	}
	a.state = StateAwaitingObservation

	if a.log != nil {
		a.log.V(1).Info("Suggested", "method", string(out.Method), "assignments", len(assignments))
	}
	return assignments.DeepCopy(), nil
}

// Observe forwards the outcome of the pending suggestion to the optimizer.
func (a *Adaptive) Observe(score, cost float64, failed bool) (optimizer.ObserveOutput, error) {
	if a.state != StateAwaitingObservation {
		return optimizer.ObserveOutput{}, ErrObserveWithoutSuggest
	}

	out, err := a.model.Observe(optimizer.ObservationInParam{
		Input:     a.pending,
		Output:    score,
		Cost:      cost,
		IsFailure: failed,
	})
	if err != nil {
		return out, err
	}

	a.pending = nil
	a.state = StateIdle
	return out, nil
}

// Best returns the best score observed by the optimizer, false until a round succeeds.
func (a *Adaptive) Best() (float64, bool) {
	best, ok := a.model.Best()
	return best.Output, ok
}

// nativeValue converts an optimizer coordinate to the configuration value type of the space.
func nativeValue(space v1alpha1.Space, v float64) interface{} {
	switch s := space.(type) {
	case *v1alpha1.IntUniform:
		return int64(math.Round(v))
	case *v1alpha1.UniformPow2:
		if v < 1 {
			return v
		}
		return int64(math.Round(v))
	case *v1alpha1.FixedSet:
		i := int(math.Round(v))
		if i < 0 {
			i = 0
		} else if i >= len(s.Values) {
			i = len(s.Values) - 1
		}
		return s.Values[i].Interface()
	default:
		return v
	}
}
