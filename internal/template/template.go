/*
Copyright 2020 GramLabs, Inc.

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

package template

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// RunData represents a sweep round during argument evaluation
type RunData struct {
	// Experiment identifier shared by every round of the sweep
	ExperimentID string
	// Run identifier of the round
	RunID string
	// Zero based round index
	Round int
	// Seed the round was reseeded with
	Seed uint64
	// Run configuration values
	Values map[string]interface{}
}

// NewRunData returns the template data for a run configuration
func NewRunData(experimentID, runID string, round int, seed uint64, cfg v1alpha1.Values) *RunData {
	return &RunData{
		ExperimentID: experimentID,
		RunID:        runID,
		Round:        round,
		Seed:         seed,
		Values:       cfg.DeepCopy(),
	}
}

// Engine is used to render Go text templates
type Engine struct {
	FuncMap template.FuncMap
}

// New creates a new template engine
func New() *Engine {
	return &Engine{
		FuncMap: FuncMap(),
	}
}

// RenderArgs renders each of the supplied command arguments
func (e *Engine) RenderArgs(args []string, data *RunData) ([]string, error) {
	result := make([]string, 0, len(args))
	for i, arg := range args {
		b, err := e.render(fmt.Sprintf("arg%d", i), arg, data)
		if err != nil {
			return nil, err
		}
		result = append(result, b.String())
	}
	return result, nil
}

// RenderString renders a single template
func (e *Engine) RenderString(name, text string, data *RunData) (string, error) {
	b, err := e.render(name, text, data)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *Engine) render(name, text string, data interface{}) (*bytes.Buffer, error) {
	tmpl, err := template.New(name).Funcs(e.FuncMap).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, err
	}

	b := &bytes.Buffer{}
	if err = tmpl.Execute(b, data); err != nil {
		return nil, err
	}
	return b, nil
}
