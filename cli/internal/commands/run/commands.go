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

package run

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thestormforge/optimize-sweep/cli/internal/commander"
	"github.com/thestormforge/optimize-sweep/internal/objective"
	"github.com/thestormforge/optimize-sweep/internal/sweep"
)

// NewTrainCommand creates a command for a single training run with the base configuration.
func NewTrainCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run the trainer once",
		Long:  "Run the trainer once using the base configuration and report the target metric",

		PreRunE: o.preRun,
		RunE:    commander.WithContextE(o.train),
	}

	cmd.Flags().StringVar(&o.ExperimentID, "exp-id", "", "experiment `id` used to identify the run, generated when empty")

	return cmd
}

// NewSweepCommand creates a command for a plain sweep.
func NewSweepCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a sweep of independent samples",
		Long:  "Run a sweep where every round evaluates a fresh sample of the sweep description",

		PreRunE: o.preRun,
		RunE: commander.WithContextE(func(ctx context.Context) error {
			return o.runSweep(ctx, nil, func(ctx context.Context, s *session) (*sweep.Summary, error) {
				return s.driver.Sweep(ctx)
			})
		}),
	}

	o.addFlags(cmd)

	return cmd
}

// NewAdaptiveCommand creates a command for a sweep driven by the sequential optimizer.
func NewAdaptiveCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sweep-carbs",
		Aliases: []string{"adaptive"},
		Short:   "Run an adaptive sweep",
		Long:    "Run a sweep where every round is suggested by a cost aware sequential optimizer",

		PreRunE: o.preRun,
		RunE: commander.WithContextE(func(ctx context.Context) error {
			return o.runSweep(ctx, nil, o.sweepAdaptive)
		}),
	}

	o.addFlags(cmd)

	return cmd
}

// NewSyntheticCommand creates a command for an adaptive sweep against the synthetic objective.
func NewSyntheticCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-carbs",
		Short: "Run an adaptive sweep on a synthetic objective",
		Long:  "Run an adaptive sweep using a closed form objective in place of the trainer",

		PreRunE: o.preRun,
		RunE: commander.WithContextE(func(ctx context.Context) error {
			return o.runSweep(ctx, objective.Synthetic{}, o.sweepAdaptive)
		}),
	}

	o.addFlags(cmd)

	return cmd
}

func (o *Options) sweepAdaptive(ctx context.Context, s *session) (*sweep.Summary, error) {
	a, err := sweep.NewAdaptive(s.driver.Tree, sweep.AdaptiveOptions{
		MaxSuggestionCost: s.cfg.Optimizer.MaxSuggestionCost,
		ResampleFrequency: s.cfg.Optimizer.ResampleFrequency,
		Seed:              s.cfg.Optimizer.Seed,
		Log:               s.driver.Log,
	})
	if err != nil {
		return nil, err
	}
	return s.driver.SweepAdaptive(ctx, a)
}

func (o *Options) train(ctx context.Context) error {
	s, err := o.newSession(nil, false)
	if err != nil {
		return err
	}
	defer s.Close()

	obs, err := s.driver.Train(ctx)
	if err != nil {
		return err
	}
	if err := s.sink.Record(ctx, obs, s.cfg.Base); err != nil {
		return err
	}

	if obs.Failed {
		_, _ = fmt.Fprintf(o.Out, "Run %s failed: %s\n", obs.RunID, obs.Reason)
		return nil
	}
	_, _ = fmt.Fprintf(o.Out, "%s: %g (cost %g)\n", s.cfg.Objective.Metric, obs.Score, obs.Cost)
	return nil
}
