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

package sample

import (
	"github.com/spf13/cobra"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/cli/internal/commander"
	"github.com/thestormforge/optimize-sweep/internal/sample"
	"github.com/thestormforge/optimize-sweep/internal/sweep"
	"github.com/thestormforge/optimize-sweep/internal/validation"
)

// Options are the options for sampling run configurations
type Options struct {
	// IOStreams are used to access the standard process streams
	commander.IOStreams
	// Globals are the persistent settings of the root command
	Globals *commander.Globals
	// Printer is the resource printer used to render the configurations
	Printer commander.ResourcePrinter

	// Count is the number of configurations to sample
	Count int
	// Seed fixes the seed of the first sample
	Seed uint64
	// Assignments prints only the sampled values instead of the full run configuration
	Assignments bool
}

// NewCommand creates a new command for sampling run configurations
func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print sampled run configurations",
		Long:  "Print run configurations sampled from the sweep description without running the trainer",

		Annotations: map[string]string{
			commander.PrinterAllowedFormats: "json,yaml",
			commander.PrinterOutputFormat:   "yaml",
		},

		PreRun: commander.StreamsPreRun(&o.IOStreams),
		RunE:   commander.WithoutArgsE(o.sample),
	}

	cmd.Flags().IntVarP(&o.Count, "count", "n", 1, "`number` of configurations to sample")
	cmd.Flags().Uint64Var(&o.Seed, "seed", 0, "`seed` of the first sample, subsequent samples increment it")
	cmd.Flags().BoolVar(&o.Assignments, "assignments", false, "only print the sampled values")

	commander.SetPrinter(nil, &o.Printer, cmd, nil)

	return cmd
}

func (o *Options) sample() error {
	cfg, err := o.Globals.Config.Config()
	if err != nil {
		return err
	}

	tree, err := cfg.Tree()
	if err != nil {
		return err
	}

	if err := validation.CheckDefinition(tree, cfg.Base); err != nil {
		return err
	}

	var seeds sweep.SeedSource = sweep.WallClock{}
	if o.Seed != 0 {
		seeds = &sweep.FixedSeeds{Seeds: []uint64{o.Seed}}
	}

	sampler := sample.New(0)
	result := make([]v1alpha1.Values, 0, o.Count)
	for i := 0; i < o.Count; i++ {
		sampler.Reseed(seeds.Next())
		values := sampler.SampleTree(tree)
		if o.Assignments {
			result = append(result, values)
			continue
		}

		run := cfg.Base.DeepCopy()
		if run == nil {
			run = v1alpha1.Values{}
		}
		run.Merge(values)
		result = append(result, run)
	}

	return o.Printer.PrintObj(result, o.Out)
}
