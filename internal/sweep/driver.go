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
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/internal/objective"
	"github.com/thestormforge/optimize-sweep/internal/sample"
	"github.com/thestormforge/optimize-sweep/internal/tracking"
	"github.com/thestormforge/optimize-sweep/internal/validation"
	"go.uber.org/zap"
)

// DefaultMaxRuns is the number of rounds of a sweep when no budget is configured.
const DefaultMaxRuns = 200

// Driver runs sweep rounds sequentially: each round produces a run configuration, checks its
// feasibility, evaluates the objective and records the observation.
type Driver struct {
	// Base is the base run configuration, it is never modified
	Base v1alpha1.Values
	// Tree is the sweep description
	Tree *v1alpha1.Tree
	// Objective evaluates run configurations
	Objective objective.Objective
	// Feasibility rejects configurations before evaluation, DefaultFeasibility when nil
	Feasibility Feasibility
	// Seeds produces the per round seeds, WallClock when nil
	Seeds SeedSource
	// Sink receives every observation, may be nil
	Sink tracking.Sink
	// MaxRuns is the number of rounds, DefaultMaxRuns when zero
	MaxRuns int
	// ContinueOnFailure records objective errors as failed rounds instead of aborting
	ContinueOnFailure bool
	// ExperimentID identifies the sweep in run identifiers and metrics
	ExperimentID string
	// Log is used for round level logging
	Log logr.Logger
}

// Summary describes the progress of a sweep.
type Summary struct {
	// Rounds is the number of completed rounds
	Rounds int
	// Failures is the number of failed rounds
	Failures int
	// Best is the best successful observation, nil if every round failed
	Best *v1alpha1.Observation
	// BestConfig is the run configuration of the best observation
	BestConfig v1alpha1.Values
}

func (s *Summary) record(goal v1alpha1.Goal, obs *v1alpha1.Observation, cfg v1alpha1.Values) bool {
	s.Rounds++
	if obs.Failed {
		s.Failures++
		return false
	}
	if s.Best != nil && !goal.Better(obs.Score, s.Best.Score) {
		return false
	}
	best := *obs
	best.Input = obs.Input.DeepCopy()
	s.Best, s.BestConfig = &best, cfg.DeepCopy()
	return true
}

// Sweep runs a plain sweep: every round draws a fresh configuration from the sampler.
func (d *Driver) Sweep(ctx context.Context) (*Summary, error) {
	sampler := sample.New(0)
	return d.run(ctx, func(ctx context.Context, seed uint64, cfg v1alpha1.Values) (v1alpha1.Assignments, error) {
		sampler.Reseed(seed)
		values := sampler.SampleTree(d.Tree)
		cfg.Merge(values)
		return values.Flatten(), nil
	}, nil)
}

// SweepAdaptive runs a sweep where every round is suggested by the adaptive optimizer and its
// outcome is observed before the next round.
func (d *Driver) SweepAdaptive(ctx context.Context, a *Adaptive) (*Summary, error) {
	return d.run(ctx, func(ctx context.Context, seed uint64, cfg v1alpha1.Values) (v1alpha1.Assignments, error) {
		a.Reseed(seed)
		return a.Suggest(ctx, cfg)
	}, func(obs *v1alpha1.Observation) error {
		_, err := a.Observe(obs.Score, obs.Cost, obs.Failed)
		return err
	})
}

// Train evaluates the base configuration once. The base configuration is trusted as given, the
// feasibility checks only apply to sampled or suggested rounds.
func (d *Driver) Train(ctx context.Context) (*v1alpha1.Observation, error) {
	seed := d.seeds().Next()
	cfg := d.Base.DeepCopy()
	if cfg == nil {
		cfg = v1alpha1.Values{}
	}
	return d.evaluate(ctx, 0, seed, cfg.Flatten(), cfg, false)
}

type proposeFunc func(ctx context.Context, seed uint64, cfg v1alpha1.Values) (v1alpha1.Assignments, error)

type observeFunc func(obs *v1alpha1.Observation) error

func (d *Driver) run(ctx context.Context, propose proposeFunc, observe observeFunc) (*Summary, error) {
	if d.Tree == nil {
		return nil, fmt.Errorf("sweep description is required")
	}
	if err := validation.CheckDefinition(d.Tree, d.Base); err != nil {
		return nil, err
	}

	log := d.log()
	goal := d.goal()
	seeds := d.seeds()
	maxRuns := d.MaxRuns
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}

	summary := &Summary{}
	for round := 0; round < maxRuns; round++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		seed := seeds.Next()
		cfg := d.Base.DeepCopy()
		if cfg == nil {
			cfg = v1alpha1.Values{}
		}

		assignments, err := propose(ctx, seed, cfg)
		if err != nil {
			return summary, err
		}

		obs, err := d.evaluate(ctx, round, seed, assignments, cfg, true)
		if err != nil {
			return summary, err
		}

		if observe != nil {
			if err := observe(obs); err != nil {
				return summary, err
			}
		}

		if summary.record(goal, obs, cfg) {
			SweepBestScore.WithLabelValues(d.ExperimentID).Set(obs.Score)
			log.Info("New best", "round", round, "score", obs.Score)
		}
		if d.Sink != nil {
			if err := d.Sink.Record(ctx, obs, cfg); err != nil {
				log.Error(err, "Failed to record observation", "round", round)
			}
		}
	}
	return summary, nil
}

// evaluate produces the observation for a single round.
func (d *Driver) evaluate(ctx context.Context, round int, seed uint64, assignments v1alpha1.Assignments, cfg v1alpha1.Values, precheck bool) (*v1alpha1.Observation, error) {
	log := d.log().WithValues("round", round)
	obs := &v1alpha1.Observation{
		Round: round,
		RunID: tracking.RunID(d.ExperimentID, round),
		Input: assignments,
		Start: time.Now(),
	}

	if precheck {
		if ok, reason := d.feasibility().Check(cfg); !ok {
			log.V(1).Info("Skipping infeasible configuration", "reason", reason)
			obs.Failed, obs.Reason = true, v1alpha1.FailureInfeasible
			SweepRounds.WithLabelValues(d.ExperimentID, outcomeInfeasible).Inc()
			return obs, validation.CheckObservation(obs)
		}
	}

	log.V(1).Info("Evaluating objective", "run", obs.RunID, "seed", seed)
	res, err := d.Objective.Evaluate(ctx, &objective.Run{
		ExperimentID: d.ExperimentID,
		ID:           obs.RunID,
		Round:        round,
		Seed:         seed,
		Config:       cfg.DeepCopy(),
	})
	obs.Duration = time.Since(obs.Start)
	ObjectiveDuration.WithLabelValues(d.ExperimentID).Observe(obs.Duration.Seconds())

	if err != nil {
		if !d.ContinueOnFailure || ctx.Err() != nil {
			return nil, err
		}
		log.Error(err, "Objective failed")
		obs.Failed, obs.Reason = true, v1alpha1.FailureObjective
		obs.Cost = obs.Duration.Seconds()
		SweepRounds.WithLabelValues(d.ExperimentID, outcomeFailed).Inc()
		return obs, validation.CheckObservation(obs)
	}

	obs.Score, obs.Cost = res.Score, res.Cost
	SweepRounds.WithLabelValues(d.ExperimentID, outcomeSuccess).Inc()
	return obs, validation.CheckObservation(obs)
}

func (d *Driver) log() logr.Logger {
	if d.Log != nil {
		return d.Log
	}
	return zapr.NewLogger(zap.NewNop())
}

func (d *Driver) goal() v1alpha1.Goal {
	if d.Tree != nil && d.Tree.Metric != nil && d.Tree.Metric.Goal != "" {
		return d.Tree.Metric.Goal
	}
	return v1alpha1.GoalMaximize
}

func (d *Driver) seeds() SeedSource {
	if d.Seeds != nil {
		return d.Seeds
	}
	return WallClock{}
}

func (d *Driver) feasibility() Feasibility {
	if d.Feasibility != nil {
		return d.Feasibility
	}
	return DefaultFeasibility()
}
