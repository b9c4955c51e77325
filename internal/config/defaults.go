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

package config

import (
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// Default values of the control sections
const (
	DefaultExperimentName    = "sweep"
	DefaultMaxRuns           = 200
	DefaultMinibatchCeiling  = 32768
	DefaultResampleFrequency = 5
	DefaultMetric            = "environment/episode_return"
)

// The default loader only fills in values that are still unset

func defaultLoader(cfg *SweepConfig) error {
	d := &defaults{data: cfg.data}

	name := DefaultExperimentName
	if n, ok := d.data.Get(SectionSweep, v1alpha1.KeyName); ok && scalarString(n) != "" {
		name = scalarString(n)
	}
	d.value(name, SectionExperiment, "name")
	d.value(DefaultMaxRuns, SectionExperiment, "maxRuns")

	metric := DefaultMetric
	if n, ok := d.data.Get(SectionSweep, v1alpha1.KeyMetric, "name"); ok && scalarString(n) != "" {
		metric = scalarString(n)
	}
	d.value(metric, SectionObjective, "metric")

	d.value(DefaultMinibatchCeiling, SectionOptimizer, "minibatchCeiling")
	d.value(DefaultResampleFrequency, SectionOptimizer, "resampleFrequency")

	d.value(true, SectionTracking, "log")
	return nil
}

type defaults struct {
	data v1alpha1.Values
}

// value sets the value at path when nothing is there yet
func (d *defaults) value(v interface{}, path ...string) {
	if cur, ok := d.data.Get(path...); ok && cur != nil && cur != "" {
		return
	}
	d.data.Set(v, path...)
}
