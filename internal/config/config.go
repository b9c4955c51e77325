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
	"encoding/json"
	"fmt"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// Loader is used to populate a sweep configuration
type Loader func(cfg *SweepConfig) error

// SweepConfig is the structure used to manage configuration data
type SweepConfig struct {
	// Filename is the path to the configuration file; if left blank, it will be populated using XDG base directory conventions on the next Load
	Filename string
	// EnvFile is the path to a dotenv file loaded into the environment, ".env" when blank
	EnvFile string

	data v1alpha1.Values
}

// Config is the decoded view of the configuration data
type Config struct {
	// Sweep is the raw sweep description
	Sweep map[string]interface{}
	// Base is the base run configuration, i.e. every section not used to control the sweep
	Base v1alpha1.Values

	Experiment Experiment
	Objective  Objective
	Optimizer  Optimizer
	Tracking   Tracking
}

// Load will populate the configuration. The sources are applied in order with later sources
// taking precedence: the file, the dotenv file, the environment, the extra loaders and finally
// the defaults for anything still unset.
func (sc *SweepConfig) Load(extra ...Loader) error {
	if sc.data == nil {
		sc.data = v1alpha1.Values{}
	}

	var loaders []Loader
	loaders = append(loaders, fileLoader, dotenvLoader, envLoader)
	loaders = append(loaders, extra...)
	loaders = append(loaders, defaultLoader)
	for i := range loaders {
		if err := loaders[i](sc); err != nil {
			return err
		}
	}
	return nil
}

// Data returns the merged configuration data.
func (sc *SweepConfig) Data() v1alpha1.Values {
	return sc.data
}

// MarshalJSON ensures only the configuration data is marshalled
func (sc *SweepConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(sc.data)
}

// Config decodes the configuration data.
func (sc *SweepConfig) Config() (*Config, error) {
	cfg := &Config{Base: v1alpha1.Values{}}
	for k, v := range sc.data {
		if !IsControlSection(k) {
			cfg.Base[k] = v
		}
	}
	cfg.Base = cfg.Base.DeepCopy()

	if s, ok := sc.data[SectionSweep]; ok {
		m, ok := s.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("configuration section %q must be a mapping", SectionSweep)
		}
		cfg.Sweep = m
	}

	sections := []struct {
		name string
		into interface{}
	}{
		{SectionExperiment, &cfg.Experiment},
		{SectionObjective, &cfg.Objective},
		{SectionOptimizer, &cfg.Optimizer},
		{SectionTracking, &cfg.Tracking},
	}
	for _, s := range sections {
		if err := decodeSection(sc.data, s.name, s.into); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Tree parses the sweep description.
func (c *Config) Tree() (*v1alpha1.Tree, error) {
	if len(c.Sweep) == 0 {
		return nil, fmt.Errorf("configuration is missing the %q section", SectionSweep)
	}
	return v1alpha1.ParseTree(c.Sweep)
}

func decodeSection(data v1alpha1.Values, name string, into interface{}) error {
	v, ok := data[name]
	if !ok {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, into); err != nil {
		return fmt.Errorf("invalid configuration section %q: %w", name, err)
	}
	return nil
}
