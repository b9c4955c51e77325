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

package objective

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/internal/template"
)

const (
	// EnvSeed is the environment variable holding the round seed
	EnvSeed = "SWEEP_SEED"
	// EnvRunID is the environment variable holding the run identifier
	EnvRunID = "SWEEP_RUN_ID"
	// EnvExperimentID is the environment variable holding the experiment identifier
	EnvExperimentID = "SWEEP_EXPERIMENT_ID"

	// UptimeKey is the optional key of the reported training uptime in seconds
	UptimeKey = "uptime"
)

// Command evaluates a run by executing an external trainer. The run configuration is written as
// JSON to the standard input of the process; the process reports its result by printing a JSON
// object containing the target metric (and optionally "uptime") on a line of standard output.
// The last such line wins.
type Command struct {
	// Path is the executable to run
	Path string
	// Args are Go templates rendered against the run (see template.RunData)
	Args []string
	// Flags appends every configuration value as a "--section.key=value" argument
	Flags bool
	// Dir is the working directory of the process
	Dir string
	// Env holds additional "KEY=value" environment variables
	Env []string
	// Metric is the key of the target metric in the reported JSON
	Metric string
	// Timeout bounds a single evaluation, zero means no limit
	Timeout time.Duration
	// Output receives a copy of the process standard output and error, may be nil
	Output io.Writer
	// Engine renders the argument templates, a default engine is used when nil
	Engine *template.Engine
	// Log is used for debug output
	Log logr.Logger
}

var _ Objective = &Command{}

// Evaluate runs the trainer and parses its reported result.
func (c *Command) Evaluate(ctx context.Context, run *Run) (Result, error) {
	if c.Path == "" {
		return Result{}, &Error{RunID: run.ID, Reason: "no trainer command configured"}
	}

	args, err := c.args(run)
	if err != nil {
		return Result{}, &Error{RunID: run.ID, Reason: "invalid argument template", Err: err}
	}

	stdin, err := json.Marshal(run.Config)
	if err != nil {
		return Result{}, &Error{RunID: run.ID, Reason: "invalid configuration", Err: err}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Env = append(cmd.Env,
		EnvSeed+"="+strconv.FormatUint(run.Seed, 10),
		EnvRunID+"="+run.ID,
		EnvExperimentID+"="+run.ExperimentID,
	)
	cmd.Stdin = bytes.NewReader(stdin)

	stdout := &bytes.Buffer{}
	cmd.Stdout = stdout
	if c.Output != nil {
		out := &lockedWriter{w: c.Output}
		cmd.Stdout = io.MultiWriter(stdout, out)
		cmd.Stderr = out
	}

	if c.Log != nil {
		c.Log.V(1).Info("Starting trainer", "run", run.ID, "path", c.Path, "args", args)
	}

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return Result{}, &Error{RunID: run.ID, Reason: "trainer exited with an error", Err: err}
	}
	elapsed := time.Since(start)

	return c.parse(run.ID, stdout.Bytes(), elapsed)
}

// lockedWriter lets the stdout and stderr copies of the process share one writer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (c *Command) args(run *Run) ([]string, error) {
	eng := c.Engine
	if eng == nil {
		eng = template.New()
	}

	data := template.NewRunData(run.ExperimentID, run.ID, run.Round, run.Seed, run.Config)
	args, err := eng.RenderArgs(c.Args, data)
	if err != nil {
		return nil, err
	}
	if c.Flags {
		args = append(args, template.Flags(run.Config)...)
	}
	return args, nil
}

// parse finds the last JSON object in the output that reports the metric.
func (c *Command) parse(runID string, out []byte, elapsed time.Duration) (Result, error) {
	var report map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}

		m := make(map[string]interface{})
		d := json.NewDecoder(strings.NewReader(line))
		d.UseNumber()
		if err := d.Decode(&m); err != nil {
			continue
		}
		if _, ok := m[c.Metric]; ok {
			report = m
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, &Error{RunID: runID, Reason: "unable to read trainer output", Err: err}
	}

	if report == nil {
		return Result{}, &Error{RunID: runID, Reason: fmt.Sprintf("trainer did not report metric %q", c.Metric)}
	}

	score, ok := v1alpha1.ToFloat64(report[c.Metric])
	if !ok {
		return Result{}, &Error{RunID: runID, Reason: fmt.Sprintf("metric %q is not a number: %v", c.Metric, report[c.Metric])}
	}

	cost := elapsed.Seconds()
	if uptime, ok := v1alpha1.ToFloat64(report[UptimeKey]); ok && uptime > 0 {
		cost = uptime
	}

	return Result{Score: score, Cost: cost}, nil
}
