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

package results

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/cli/internal/commander"
	"github.com/thestormforge/optimize-sweep/internal/tracking"
)

// Options are the options for listing recorded observations
type Options struct {
	// IOStreams are used to access the standard process streams
	commander.IOStreams
	// Globals are the persistent settings of the root command
	Globals *commander.Globals
	// Printer is the resource printer used to render the observations
	Printer commander.ResourcePrinter

	// Filename is the SQLite database, defaults to the tracking configuration
	Filename string
	// ExperimentID selects the sweep to list
	ExperimentID string
}

// NewCommand creates a new command for listing recorded observations
func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results EXPERIMENT_ID",
		Short: "Display recorded observations",
		Long:  "Display the observations of a sweep recorded in the SQLite tracking database",

		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			commander.SetStreams(&o.IOStreams, cmd)
			o.ExperimentID = args[0]
			return nil
		},
		RunE: commander.WithContextE(o.results),
	}

	cmd.Flags().StringVarP(&o.Filename, "filename", "f", "", "path to the SQLite database `file`, defaults to the tracking configuration")
	_ = cmd.MarkFlagFilename("filename", "db", "sqlite")

	commander.SetPrinter(&observationTable{}, &o.Printer, cmd, nil)

	return cmd
}

func (o *Options) results(ctx context.Context) error {
	filename := o.Filename
	if filename == "" {
		cfg, err := o.Globals.Config.Config()
		if err != nil {
			return err
		}
		filename = cfg.Tracking.SQLite
	}
	if filename == "" {
		return fmt.Errorf("no tracking database configured, use --filename or set tracking.sqlite")
	}

	db, err := tracking.NewSQLiteSink(filename, o.ExperimentID)
	if err != nil {
		return err
	}
	defer db.Close()

	obs, err := db.Observations(ctx)
	if err != nil {
		return err
	}

	return o.Printer.PrintObj(obs, o.Out)
}

// observationTable renders observations as rows
type observationTable struct{}

func (observationTable) ExtractList(obj interface{}) ([]interface{}, error) {
	switch o := obj.(type) {
	case []v1alpha1.Observation:
		list := make([]interface{}, len(o))
		for i := range o {
			list[i] = &o[i]
		}
		return list, nil
	case *v1alpha1.Observation:
		return []interface{}{o}, nil
	}
	return nil, fmt.Errorf("unexpected object: %T", obj)
}

func (observationTable) Columns(obj interface{}, outputFormat string) []string {
	columns := []string{"round", "score", "cost", "status"}
	if outputFormat == "wide" || outputFormat == "csv" {
		columns = append(columns, "run_id", "assignments")
	}
	return columns
}

func (observationTable) ExtractValue(obj interface{}, column string) (string, error) {
	o, ok := obj.(*v1alpha1.Observation)
	if !ok {
		return "", fmt.Errorf("unexpected object: %T", obj)
	}

	switch column {
	case "round":
		return strconv.Itoa(o.Round), nil
	case "run_id":
		return o.RunID, nil
	case "score":
		if o.Failed {
			return "", nil
		}
		return strconv.FormatFloat(o.Score, 'g', -1, 64), nil
	case "cost":
		return strconv.FormatFloat(o.Cost, 'g', -1, 64), nil
	case "status":
		if o.Failed {
			return string(o.Reason), nil
		}
		return "Completed", nil
	case "assignments":
		values := make([]string, 0, len(o.Input))
		for _, a := range o.Input {
			values = append(values, fmt.Sprintf("%s=%v", a.Name, a.Value))
		}
		return strings.Join(values, ", "), nil
	}
	return "", fmt.Errorf("unknown column: %s", column)
}

func (observationTable) Header(outputFormat string, column string) string {
	if outputFormat == "csv" {
		return column
	}
	return strings.ToUpper(strings.ReplaceAll(column, "_", " "))
}
