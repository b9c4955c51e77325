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
	"errors"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/cli/internal/commander"
	"github.com/thestormforge/optimize-sweep/internal/config"
	"github.com/thestormforge/optimize-sweep/internal/sweep"
	"github.com/thestormforge/optimize-sweep/internal/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Define linter log levels
// NOTE: It is unclear why zapr is reversing the sign of the level.
const (
	vError = int(-zapcore.ErrorLevel)
	vWarn  = int(-zapcore.WarnLevel)
)

// errLint is returned when the linter reported at least one error
var errLint = errors.New("sweep description has errors")

// SweepOptions are the options for checking a sweep description
type SweepOptions struct {
	// IOStreams are used to access the standard process streams
	commander.IOStreams
	// Globals are the persistent settings of the root command
	Globals *commander.Globals

	// Filename is an alternate sweep description to check
	Filename string
}

// NewSweepCommand creates a new command for checking a sweep description
func NewSweepCommand(o *SweepOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Check a sweep description",
		Long:  "Check the sweep description against the base configuration",

		PreRun: commander.StreamsPreRun(&o.IOStreams),
		RunE:   commander.WithContextE(o.checkSweep),
	}

	cmd.Flags().StringVarP(&o.Filename, "filename", "f", "", "`file` that contains the sweep description to check")

	_ = cmd.MarkFlagFilename("filename", "yml", "yaml")

	return cmd
}

func (o *SweepOptions) checkSweep(ctx context.Context) error {
	cfg, err := o.Globals.Config.Config()
	if err != nil {
		return err
	}

	if o.Filename != "" {
		desc, err := config.ReadValues(o.Filename)
		if err != nil {
			return err
		}
		if s, ok := desc[config.SectionSweep].(map[string]interface{}); ok {
			desc = s
		}
		cfg.Sweep = desc
	}

	// Create a zapr logger for reporting issues
	var hasError bool
	log := zapr.NewLogger(zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(
		zapcore.EncoderConfig{
			MessageKey:  "msg",
			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseColorLevelEncoder,
		}),
		zapcore.AddSync(o.ErrOut),
		zapcore.WarnLevel),
		zap.Hooks(func(e zapcore.Entry) error {
			if e.Level == zapcore.ErrorLevel {
				hasError = true
			}
			return nil
		})))

	Lint(ctx, log, cfg)

	if hasError {
		return errLint
	}
	return nil
}

// Lint reports problems with the sweep description of the configuration. Errors are logged at
// the error level, everything else that is probably a mistake is logged at the warning level.
func Lint(ctx context.Context, log logr.Logger, cfg *config.Config) {
	tree, err := cfg.Tree()
	if err != nil {
		log.Error(err, "Sweep description is invalid")
		return
	}

	if tree.Metric == nil {
		log.V(vError).Info("Metric is required")
	} else {
		if tree.Metric.Name == "" {
			log.V(vError).Info("Metric name is required")
		} else if cfg.Objective.Metric != "" && cfg.Objective.Metric != tree.Metric.Name {
			log.V(vWarn).Info("Objective reports a different metric", "metric", tree.Metric.Name, "objective", cfg.Objective.Metric)
		}
		if m, ok := cfg.Sweep[v1alpha1.KeyMetric].(map[string]interface{}); ok {
			if _, ok := m["goal"]; !ok {
				log.V(vWarn).Info("Metric goal is not set, the score will be maximized")
			}
		}
	}

	params := tree.Flatten()
	if len(params) == 0 {
		log.V(vError).Info("Parameters are required")
	}

	// Set the recommended budget to 20x the number of parameters up to 400 runs
	l := &linter{logger: log, minRunBudget: 20 * len(params)}
	if l.minRunBudget > 400 {
		l.minRunBudget = 400
	}
	if maxRuns := cfg.Experiment.MaxRuns; maxRuns > 0 && maxRuns < l.minRunBudget {
		log.V(vWarn).Info("Run budget should be increased", "maxRuns", maxRuns, "recommended", l.minRunBudget)
	}

	if err := validation.CheckDefinition(tree, cfg.Base); err != nil {
		log.Error(err, "Base configuration conflicts with the sweep description")
	}

	if ok, reason := (sweep.MinibatchCeiling{Ceiling: cfg.Optimizer.MinibatchCeiling}).Check(cfg.Base); !ok {
		log.V(vWarn).Info("Base configuration is infeasible", "reason", reason)
	}

	// Use the linter to inspect the individual parameters
	v1alpha1.Walk(ctx, l, tree.Root)
}

type linter struct {
	logger logr.Logger

	// The minimum recommended number of sweep rounds
	minRunBudget int
}

func (l *linter) Visit(ctx context.Context, n v1alpha1.Node) v1alpha1.Visitor {
	// Add the current path to the logger
	lint := l.logger.WithValues("path", strings.Join(v1alpha1.WalkPath(ctx), "."))

	switch n := n.(type) {

	case *v1alpha1.Reserved:
		if len(v1alpha1.WalkPath(ctx)) > 1 {
			lint.V(vWarn).Info("Reserved key is ignored outside of the top level")
		}

	case *v1alpha1.Leaf:
		checkSpace(lint, n.Space)

	}

	// Return the linter to continue walking through the tree
	return l
}

func checkSpace(lint logr.Logger, space v1alpha1.Space) {
	switch s := space.(type) {

	case *v1alpha1.Uniform:
		if s.Min == s.Max {
			lint.V(vWarn).Info("Parameter range is empty", "min", s.Min, "max", s.Max)
		}

	case *v1alpha1.IntUniform:
		if s.Min == s.Max {
			lint.V(vWarn).Info("Parameter range is empty", "min", s.Min, "max", s.Max)
		}

	case *v1alpha1.UniformPow2:
		if s.Min == s.Max {
			lint.V(vWarn).Info("Parameter range is empty", "min", s.Min, "max", s.Max)
		}

	case *v1alpha1.LogNormal:
		if s.Clip == 0 {
			lint.V(vWarn).Info("Parameter clip is zero, every sample is the mean", "mean", s.Mean)
		}

	case *v1alpha1.LogitNormal:
		if s.Clip == 0 {
			lint.V(vWarn).Info("Parameter clip is zero, every sample is the mean", "mean", s.Mean)
		}

	case *v1alpha1.FixedSet:
		if len(s.Values) == 1 {
			lint.V(vWarn).Info("Parameter has a single value")
		}

	}
}
