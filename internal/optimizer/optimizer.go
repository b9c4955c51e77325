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

// Package optimizer implements a cost aware sequential model based optimizer. Observations are
// modeled with Gaussian processes over a normalized search space; suggestions are drawn around the
// cost/score Pareto front and ranked by an upper confidence bound penalized by the predicted
// probability of failure.
package optimizer

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Params configures the optimizer.
type Params struct {
	// BetterDirectionSign is +1 when higher outputs are better and -1 when lower outputs are better
	BetterDirectionSign float64
	// NumRandomSamples is the number of successful observations required before the model is used
	NumRandomSamples int
	// ResampleFrequency re-suggests a Pareto front point every N suggestions, zero disables resampling
	ResampleFrequency int
	// MaxSuggestionCost discards candidates whose predicted cost is higher, zero disables the limit
	MaxSuggestionCost float64
	// NumCandidates is the number of candidates ranked for each model based suggestion
	NumCandidates int
	// InitialSearchRadius is the standard deviation (in normalized units) of random exploration
	InitialSearchRadius float64
	// ExplorationBias is the weight of the posterior standard deviation in the acquisition function
	ExplorationBias float64
	// FailurePenalty is the acquisition penalty (in standardized output units) of a certain failure
	FailurePenalty float64
	// Seed initializes the random source
	Seed uint64
}

// DefaultParams returns the default optimizer configuration.
func DefaultParams() Params {
	return Params{
		BetterDirectionSign: 1,
		NumRandomSamples:    10,
		ResampleFrequency:   5,
		NumCandidates:       100,
		InitialSearchRadius: 0.3,
		ExplorationBias:     0.5,
		FailurePenalty:      2,
	}
}

// Method describes how a suggestion was produced.
type Method string

const (
	// MethodRandom suggestions are random exploration around the search center
	MethodRandom Method = "random"
	// MethodResample suggestions repeat a Pareto front point
	MethodResample Method = "resample"
	// MethodModel suggestions are ranked by the model
	MethodModel Method = "model"
)

// SuggestOutput is the result of a suggestion.
type SuggestOutput struct {
	// Suggestion maps parameter names to suggested values
	Suggestion map[string]float64
	// Method describes how the suggestion was produced
	Method Method
	// PredictedOutput is the model's estimate of the output, only valid for model suggestions
	PredictedOutput float64
	// PredictedCost is the model's estimate of the cost, only valid for model suggestions
	PredictedCost float64
}

// ObservationInParam is an observed outcome for a set of parameter values.
type ObservationInParam struct {
	// Input is the exact suggestion that was evaluated
	Input map[string]float64
	// Output is the observed objective value
	Output float64
	// Cost is the resource expenditure of the evaluation
	Cost float64
	// IsFailure excludes the observation from the output and cost models
	IsFailure bool
}

// ObserveOutput summarizes the model after an observation.
type ObserveOutput struct {
	// Observations is the total number of observations
	Observations int
	// Failures is the number of failed observations
	Failures int
	// ParetoFront is the set of successful observations not dominated in both cost and output
	ParetoFront []ObservationInParam
}

type observation struct {
	x      []float64
	in     ObservationInParam
	failed bool
}

// Optimizer suggests parameter values and learns from their observed outcomes.
type Optimizer struct {
	params       Params
	space        []Param
	index        map[string]int
	src          *rand.PCG
	rng          *rand.Rand
	observations []observation
	suggestions  int
}

// New creates a new optimizer over the supplied parameters.
func New(params Params, space []Param) (*Optimizer, error) {
	if len(space) == 0 {
		return nil, fmt.Errorf("at least one parameter is required")
	}
	if params.BetterDirectionSign != 1 && params.BetterDirectionSign != -1 {
		return nil, fmt.Errorf("better direction sign must be +1 or -1, got %g", params.BetterDirectionSign)
	}

	d := DefaultParams()
	if params.NumCandidates <= 0 {
		params.NumCandidates = d.NumCandidates
	}
	if params.InitialSearchRadius <= 0 {
		params.InitialSearchRadius = d.InitialSearchRadius
	}
	if params.ExplorationBias < 0 {
		params.ExplorationBias = d.ExplorationBias
	}
	if params.FailurePenalty <= 0 {
		params.FailurePenalty = d.FailurePenalty
	}

	o := &Optimizer{params: params, space: space, index: make(map[string]int, len(space))}
	for i := range space {
		if space[i].Space == nil {
			return nil, fmt.Errorf("parameter %q has no space", space[i].Name)
		}
		if _, ok := o.index[space[i].Name]; ok {
			return nil, fmt.Errorf("duplicate parameter %q", space[i].Name)
		}
		o.index[space[i].Name] = i
	}

	o.src = rand.NewPCG(params.Seed, params.Seed^0xda3e39cb94b95bdb)
	o.rng = rand.New(o.src)
	return o, nil
}

// Reseed resets the random source of the optimizer.
func (o *Optimizer) Reseed(seed uint64) {
	o.src.Seed(seed, seed^0xda3e39cb94b95bdb)
}

// Params returns the effective configuration.
func (o *Optimizer) Params() Params {
	return o.params
}

// Suggest produces the next set of parameter values to evaluate.
func (o *Optimizer) Suggest() SuggestOutput {
	o.suggestions++

	successes := o.successes()
	if len(successes) < o.params.NumRandomSamples || len(successes) == 0 {
		return SuggestOutput{Suggestion: o.fromBasic(o.around(o.center(), o.params.InitialSearchRadius)), Method: MethodRandom}
	}

	if o.params.ResampleFrequency > 0 && o.suggestions%o.params.ResampleFrequency == 0 {
		front := o.paretoFront()
		p := front[o.rng.IntN(len(front))]
		return SuggestOutput{Suggestion: copyInput(p.in.Input), Method: MethodResample}
	}

	out, err := o.modelSuggestion(successes)
	if err != nil {
		// Fall back to exploring around the best observation
		best := successes[o.bestIndex(successes)]
		return SuggestOutput{Suggestion: o.fromBasic(o.around(best.x, o.params.InitialSearchRadius)), Method: MethodRandom}
	}
	return out
}

// Observe records the outcome of evaluating a suggestion.
func (o *Optimizer) Observe(obs ObservationInParam) (ObserveOutput, error) {
	x := make([]float64, len(o.space))
	for name := range obs.Input {
		if _, ok := o.index[name]; !ok {
			return ObserveOutput{}, fmt.Errorf("observation includes unknown parameter %q", name)
		}
	}
	for i := range o.space {
		v, ok := obs.Input[o.space[i].Name]
		if !ok {
			return ObserveOutput{}, fmt.Errorf("observation is missing parameter %q", o.space[i].Name)
		}
		x[i] = o.space[i].Space.ToBasic(v)
	}
	if !obs.IsFailure && (math.IsNaN(obs.Output) || math.IsInf(obs.Output, 0)) {
		return ObserveOutput{}, fmt.Errorf("observation output must be finite, got %g", obs.Output)
	}

	in := obs
	in.Input = copyInput(obs.Input)
	o.observations = append(o.observations, observation{x: x, in: in, failed: obs.IsFailure})

	out := ObserveOutput{Observations: len(o.observations)}
	for i := range o.observations {
		if o.observations[i].failed {
			out.Failures++
		}
	}
	for _, p := range o.paretoFront() {
		out.ParetoFront = append(out.ParetoFront, p.in)
	}
	return out, nil
}

// Best returns the best successful observation so far.
func (o *Optimizer) Best() (ObservationInParam, bool) {
	successes := o.successes()
	if len(successes) == 0 {
		return ObservationInParam{}, false
	}
	return successes[o.bestIndex(successes)].in, true
}

func (o *Optimizer) modelSuggestion(successes []observation) (SuggestOutput, error) {
	xs := make([][]float64, len(successes))
	ys := make([]float64, len(successes))
	cs := make([]float64, len(successes))
	for i, s := range successes {
		xs[i] = s.x
		ys[i] = o.params.BetterDirectionSign * s.in.Output
		cs[i] = math.Log(math.Max(s.in.Cost, 1e-9))
	}

	ls := defaultLengthScale(len(o.space))
	outputModel, err := fitGaussianProcess(xs, ys, ls, 1e-2)
	if err != nil {
		return SuggestOutput{}, err
	}
	costModel, err := fitGaussianProcess(xs, cs, ls, 1e-2)
	if err != nil {
		return SuggestOutput{}, err
	}

	type candidate struct {
		x           []float64
		acquisition float64
		output      float64
		cost        float64
	}

	front := o.paretoFront()
	var best, cheapest *candidate
	for i := 0; i < o.params.NumCandidates; i++ {
		var x []float64
		if i%10 == 9 {
			x = o.uniform()
		} else {
			base := front[o.rng.IntN(len(front))].x
			x = o.around(base, o.params.InitialSearchRadius*(0.1+0.9*o.rng.Float64()))
		}
		x = o.quantize(x)

		mu, sd := outputModel.predict(x)
		cmu, _ := costModel.predict(x)
		c := &candidate{
			x:           x,
			acquisition: mu + o.params.ExplorationBias*sd - o.params.FailurePenalty*o.failureProbability(x),
			output:      o.params.BetterDirectionSign * outputModel.unstandardize(mu),
			cost:        math.Exp(costModel.unstandardize(cmu)),
		}

		if cheapest == nil || c.cost < cheapest.cost {
			cheapest = c
		}
		if o.params.MaxSuggestionCost > 0 && c.cost > o.params.MaxSuggestionCost {
			continue
		}
		if best == nil || c.acquisition > best.acquisition {
			best = c
		}
	}

	// Every candidate exceeded the cost limit
	if best == nil {
		best = cheapest
	}

	return SuggestOutput{
		Suggestion:      o.fromBasic(best.x),
		Method:          MethodModel,
		PredictedOutput: best.output,
		PredictedCost:   best.cost,
	}, nil
}

// failureProbability is the kernel weighted fraction of nearby observations that failed.
func (o *Optimizer) failureProbability(x []float64) float64 {
	ls := defaultLengthScale(len(o.space))
	var failed, total float64
	for i := range o.observations {
		w := rbf(x, o.observations[i].x, ls)
		total += w
		if o.observations[i].failed {
			failed += w
		}
	}
	if failed == 0 {
		return 0
	}
	return failed / (total + 1e-3)
}

// paretoFront returns the successful observations that are not dominated in both cost and output,
// ordered by increasing cost.
func (o *Optimizer) paretoFront() []observation {
	successes := o.successes()
	sort.SliceStable(successes, func(i, j int) bool { return successes[i].in.Cost < successes[j].in.Cost })

	var front []observation
	best := math.Inf(-1)
	for _, s := range successes {
		if y := o.params.BetterDirectionSign * s.in.Output; y > best {
			front = append(front, s)
			best = y
		}
	}
	return front
}

func (o *Optimizer) successes() []observation {
	var result []observation
	for _, obs := range o.observations {
		if !obs.failed {
			result = append(result, obs)
		}
	}
	return result
}

func (o *Optimizer) bestIndex(obs []observation) int {
	b := 0
	for i := range obs {
		if o.params.BetterDirectionSign*obs[i].in.Output > o.params.BetterDirectionSign*obs[b].in.Output {
			b = i
		}
	}
	return b
}

func (o *Optimizer) center() []float64 {
	x := make([]float64, len(o.space))
	for i := range o.space {
		x[i] = o.space[i].Space.ToBasic(o.space[i].SearchCenter)
	}
	return x
}

// around draws a point normally distributed around the supplied point.
func (o *Optimizer) around(x []float64, radius float64) []float64 {
	result := make([]float64, len(x))
	for i := range x {
		result[i] = clamp01(x[i] + o.rng.NormFloat64()*radius*o.space[i].scale())
	}
	return result
}

func (o *Optimizer) uniform() []float64 {
	x := make([]float64, len(o.space))
	for i := range x {
		x[i] = o.rng.Float64()
	}
	return x
}

// quantize snaps a point to the coordinates of values the spaces can actually produce.
func (o *Optimizer) quantize(x []float64) []float64 {
	for i := range x {
		x[i] = o.space[i].Space.ToBasic(o.space[i].Space.FromBasic(x[i]))
	}
	return x
}

func (o *Optimizer) fromBasic(x []float64) map[string]float64 {
	result := make(map[string]float64, len(x))
	for i := range x {
		result[o.space[i].Name] = o.space[i].Space.FromBasic(x[i])
	}
	return result
}

func copyInput(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
