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

package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/thestormforge/optimize-sweep/cli/internal/commander"
	"github.com/thestormforge/optimize-sweep/cli/internal/commands/check"
	"github.com/thestormforge/optimize-sweep/cli/internal/commands/completion"
	"github.com/thestormforge/optimize-sweep/cli/internal/commands/docs"
	"github.com/thestormforge/optimize-sweep/cli/internal/commands/results"
	"github.com/thestormforge/optimize-sweep/cli/internal/commands/run"
	"github.com/thestormforge/optimize-sweep/cli/internal/commands/sample"
	"github.com/thestormforge/optimize-sweep/cli/internal/commands/version"
	"github.com/thestormforge/optimize-sweep/internal/config"
	"github.com/thestormforge/optimize-sweep/internal/objective"
)

// NewRootCommand creates a new top-level command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "sweepctl",
		Short:             "Hyperparameter sweeps for reinforcement learning",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	// Create a global configuration
	g := &commander.Globals{Config: &config.SweepConfig{}}
	commander.ConfigGlobals(g, rootCmd)

	// Expose metrics once the configuration is loaded
	loadConfig := rootCmd.PersistentPreRunE
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd, args); err != nil {
			return err
		}
		return serveMetrics(cmd.Context(), g.MetricsAddr)
	}

	// Training Commands
	rootCmd.AddCommand(run.NewTrainCommand(&run.Options{Globals: g}))
	rootCmd.AddCommand(run.NewSweepCommand(&run.Options{Globals: g}))
	rootCmd.AddCommand(run.NewAdaptiveCommand(&run.Options{Globals: g}))
	rootCmd.AddCommand(run.NewSyntheticCommand(&run.Options{Globals: g}))

	// Inspection Commands
	rootCmd.AddCommand(sample.NewCommand(&sample.Options{Globals: g}))
	rootCmd.AddCommand(results.NewCommand(&results.Options{Globals: g}))
	rootCmd.AddCommand(check.NewCommand(&check.Options{Globals: g}))

	// Administrative Commands
	rootCmd.AddCommand(completion.NewCommand(&completion.Options{}))
	rootCmd.AddCommand(version.NewCommand(&version.Options{}))
	rootCmd.AddCommand(docs.NewCommand(&docs.Options{}))

	commander.MapErrors(rootCmd, mapError)
	return rootCmd
}

// mapError intercepts errors returned by commands before they are reported.
func mapError(err error) error {
	// Point at the trainer output when it is the trainer that failed
	var oe *objective.Error
	if errors.As(err, &oe) && strings.HasPrefix(oe.Reason, "trainer did not report metric") {
		return fmt.Errorf("%w, check the objective metric and the trainer output", err)
	}

	// It's really annoying to just get an "exit status was one" message.
	var e *exec.ExitError
	if errors.As(err, &e) && !e.Success() && len(e.Stderr) > 0 {
		return fmt.Errorf("%w\n%s", err, string(e.Stderr))
	}

	return err
}

// serveMetrics exposes the Prometheus registry until the context is done.
func serveMetrics(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to expose metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Handler: mux}

	// Start server in a goroutine so it doesn't block
	go func() { _ = server.Serve(ln) }()

	// Wait for context cancellation to shut down server
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return nil
}
