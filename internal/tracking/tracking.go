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

// Package tracking records sweep observations. Tracking is a side channel: sink errors never
// change the course of a sweep.
package tracking

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// Sink receives one observation per sweep round along with the run configuration that produced it.
type Sink interface {
	Record(ctx context.Context, obs *v1alpha1.Observation, cfg v1alpha1.Values) error
	Close() error
}

// NewExperimentID returns a unique identifier for a sweep with the supplied name.
func NewExperimentID(name string) string {
	if name == "" {
		name = "sweep"
	}
	return name + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// RunID returns the identifier of a sweep round.
func RunID(experimentID string, round int) string {
	return fmt.Sprintf("%s-%d", experimentID, round)
}

// Multi fans observations out to several sinks. Failing sinks are logged and skipped.
type Multi struct {
	Sinks []Sink
	Log   logr.Logger
}

var _ Sink = &Multi{}

// Record forwards the observation to every sink.
func (m *Multi) Record(ctx context.Context, obs *v1alpha1.Observation, cfg v1alpha1.Values) error {
	for _, s := range m.Sinks {
		if err := s.Record(ctx, obs, cfg); err != nil && m.Log != nil {
			m.Log.Error(err, "Failed to record observation", "round", obs.Round, "sink", fmt.Sprintf("%T", s))
		}
	}
	return nil
}

// Close closes every sink, returning the first error.
func (m *Multi) Close() error {
	var first error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LogSink writes a structured log line per observation.
type LogSink struct {
	Log logr.Logger
}

var _ Sink = &LogSink{}

// Record logs the observation.
func (s *LogSink) Record(_ context.Context, obs *v1alpha1.Observation, cfg v1alpha1.Values) error {
	kv := []interface{}{
		"round", obs.Round,
		"run", obs.RunID,
		"score", obs.Score,
		"cost", obs.Cost,
		"duration", obs.Duration.String(),
	}
	if obs.Failed {
		kv = append(kv, "reason", string(obs.Reason))
		s.Log.Info("Round failed", kv...)
	} else {
		s.Log.Info("Round completed", kv...)
	}

	debug := s.Log.V(1)
	for _, a := range obs.Input {
		debug.Info("Assignment", "round", obs.Round, "name", a.Name, "value", a.Value)
	}
	return nil
}

// Close does nothing.
func (s *LogSink) Close() error {
	return nil
}
