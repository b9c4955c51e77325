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

// Package run contains the commands that evaluate the objective: a single training run, a plain
// sweep and the adaptive sweeps.
package run

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/cli/internal/commander"
	"github.com/thestormforge/optimize-sweep/internal/config"
	"github.com/thestormforge/optimize-sweep/internal/objective"
	"github.com/thestormforge/optimize-sweep/internal/sweep"
	"github.com/thestormforge/optimize-sweep/internal/template"
	"github.com/thestormforge/optimize-sweep/internal/tracking"
)

// Options are the settings shared by the run commands.
type Options struct {
	// IOStreams are used to access the standard process streams
	commander.IOStreams
	// Globals are the persistent settings of the root command
	Globals *commander.Globals

	// MaxRuns overrides the configured number of rounds
	MaxRuns int
	// ExperimentID overrides the generated experiment identifier
	ExperimentID string

	log logr.Logger
}

func (o *Options) addFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.MaxRuns, "max-runs", 0, "`number` of sweep rounds, overrides the configuration")
	cmd.Flags().StringVar(&o.ExperimentID, "exp-id", "", "experiment `id` used to identify runs, generated when empty")
}

// preRun captures the streams and builds the logger.
func (o *Options) preRun(cmd *cobra.Command, _ []string) error {
	commander.SetStreams(&o.IOStreams, cmd)
	o.log = commander.NewLogger(o.ErrOut, o.Globals.Verbosity)
	return nil
}

// session is everything needed to run the rounds of one command invocation.
type session struct {
	cfg    *config.Config
	driver *sweep.Driver
	sink   tracking.Sink
}

// Close releases the tracking sinks.
func (s *session) Close() error {
	if s.sink == nil {
		return nil
	}
	return s.sink.Close()
}

// newSession decodes the configuration and wires the driver to the supplied objective. When obj
// is nil the configured trainer command is used.
func (o *Options) newSession(obj objective.Objective, needTree bool) (*session, error) {
	cfg, err := o.Globals.Config.Config()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	d := &sweep.Driver{
		Base:              cfg.Base,
		Objective:         obj,
		MaxRuns:           cfg.Experiment.MaxRuns,
		ContinueOnFailure: cfg.Experiment.ContinueOnFailure,
		ExperimentID:      cfg.Experiment.ID,
		Feasibility:       sweep.MinibatchCeiling{Ceiling: cfg.Optimizer.MinibatchCeiling},
		Seeds:             sweep.WallClock{},
	}
	if o.MaxRuns > 0 {
		d.MaxRuns = o.MaxRuns
	}
	if o.ExperimentID != "" {
		d.ExperimentID = o.ExperimentID
	}
	if d.ExperimentID == "" {
		d.ExperimentID = tracking.NewExperimentID(cfg.Experiment.Name)
	}
	if cfg.Optimizer.Seed != 0 {
		d.Seeds = &sweep.FixedSeeds{Seeds: []uint64{cfg.Optimizer.Seed}}
	}
	d.Log = o.log.WithValues("experiment", d.ExperimentID)

	if needTree {
		if d.Tree, err = cfg.Tree(); err != nil {
			return nil, err
		}
	}

	if d.Objective == nil {
		if d.Objective, err = o.newCommand(cfg, d.Log); err != nil {
			return nil, err
		}
	}

	if s.sink, err = o.newSink(cfg, d); err != nil {
		return nil, err
	}
	d.Sink = s.sink

	s.driver = d
	return s, nil
}

// newCommand returns the trainer objective described by the configuration.
func (o *Options) newCommand(cfg *config.Config, log logr.Logger) (*objective.Command, error) {
	timeout, err := cfg.Objective.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	return &objective.Command{
		Path:    cfg.Objective.Command,
		Args:    cfg.Objective.Args,
		Flags:   cfg.Objective.Flags,
		Dir:     cfg.Objective.Dir,
		Env:     cfg.Objective.Env,
		Metric:  cfg.Objective.Metric,
		Timeout: timeout,
		Output:  o.ErrOut,
		Engine:  template.New(),
		Log:     log,
	}, nil
}

// newSink fans observations out to the configured trackers.
func (o *Options) newSink(cfg *config.Config, d *sweep.Driver) (tracking.Sink, error) {
	m := &tracking.Multi{Log: d.Log}

	if cfg.Tracking.Log == nil || *cfg.Tracking.Log {
		m.Sinks = append(m.Sinks, &tracking.LogSink{Log: d.Log})
	}

	if cfg.Tracking.CSV != "" {
		f, err := os.Create(cfg.Tracking.CSV)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		m.Sinks = append(m.Sinks, tracking.NewCSVSink(f))
	}

	if cfg.Tracking.SQLite != "" {
		s, err := tracking.NewSQLiteSink(cfg.Tracking.SQLite, d.ExperimentID)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		m.Sinks = append(m.Sinks, s)
	}

	if cfg.Tracking.Progress {
		goal := v1alpha1.GoalMaximize
		if d.Tree != nil && d.Tree.Metric != nil && d.Tree.Metric.Goal != "" {
			goal = d.Tree.Metric.Goal
		}
		total := d.MaxRuns
		if total <= 0 {
			total = sweep.DefaultMaxRuns
		}
		m.Sinks = append(m.Sinks, tracking.NewProgress(o.ErrOut, total, goal))
	}

	return m, nil
}

// printSummary writes the outcome of a sweep to the output stream.
func (o *Options) printSummary(s *session, summary *sweep.Summary) error {
	if summary == nil {
		return nil
	}

	_, _ = fmt.Fprintf(o.Out, "Experiment %s completed %d rounds (%d failed)\n", s.driver.ExperimentID, summary.Rounds, summary.Failures)
	if summary.Best == nil {
		_, _ = fmt.Fprintln(o.Out, "No successful rounds")
		return nil
	}

	_, _ = fmt.Fprintf(o.Out, "Best score %g from round %d (%s)\n", summary.Best.Score, summary.Best.Round, summary.Best.RunID)
	for _, a := range summary.Best.Input {
		_, _ = fmt.Fprintf(o.Out, "  %s: %v\n", a.Name, a.Value)
	}
	return nil
}

// runSweep executes fn against a new session, the summary is reported even when the sweep stops early.
func (o *Options) runSweep(ctx context.Context, obj objective.Objective, fn func(context.Context, *session) (*sweep.Summary, error)) error {
	s, err := o.newSession(obj, true)
	if err != nil {
		return err
	}

	summary, err := fn(ctx, s)
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	_ = o.printSummary(s, summary)
	return err
}
