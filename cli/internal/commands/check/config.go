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
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/cli/internal/commander"
	"github.com/thestormforge/optimize-sweep/internal/config"
	"github.com/thestormforge/optimize-sweep/internal/template"
)

// ConfigOptions are the options for checking the sweep configuration
type ConfigOptions struct {
	// IOStreams are used to access the standard process streams
	commander.IOStreams
	// Globals are the persistent settings of the root command
	Globals *commander.Globals
}

// NewConfigCommand creates a new command for checking the sweep configuration
func NewConfigCommand(o *ConfigOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Check the configuration",
		Long:  "Check that the trainer and trackers of the configuration are usable",

		PreRun: commander.StreamsPreRun(&o.IOStreams),
		RunE:   commander.WithoutArgsE(o.checkConfig),
	}

	return cmd
}

// checkConfig runs sanity checks on the configuration
func (o *ConfigOptions) checkConfig() error {
	cfg, err := o.Globals.Config.Config()
	if err != nil {
		return err
	}

	if err := CheckObjective(&cfg.Objective, cfg.Base); err != nil {
		return err
	}

	for _, path := range []string{cfg.Tracking.CSV, cfg.Tracking.SQLite} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			return fmt.Errorf("tracking directory is not available: %w", err)
		}
	}

	if o.Globals.Config.Filename != "" {
		_, _ = fmt.Fprintf(o.Out, "Success, configuration '%s' is valid.\n", o.Globals.Config.Filename)
	} else {
		_, _ = fmt.Fprintf(o.Out, "Success.\n")
	}
	return nil
}

// CheckObjective verifies the trainer command can be started with the base configuration.
func CheckObjective(obj *config.Objective, base v1alpha1.Values) error {
	if obj.Command == "" {
		return fmt.Errorf("objective command is required")
	}
	if _, err := exec.LookPath(obj.Command); err != nil {
		return fmt.Errorf("objective command is not available: %w", err)
	}
	if _, err := obj.TimeoutDuration(); err != nil {
		return err
	}
	if obj.Metric == "" {
		return fmt.Errorf("objective metric is required")
	}

	// Arguments must render against the base configuration
	engine := template.New()
	if _, err := engine.RenderArgs(obj.Args, template.NewRunData("check", "check-0", 0, 0, base)); err != nil {
		return fmt.Errorf("objective arguments are invalid: %w", err)
	}

	for _, kv := range obj.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("objective environment must be KEY=value, got %q", kv)
		}
	}
	return nil
}
