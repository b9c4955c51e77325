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
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// envPrefix is the prefix of every environment variable read by the configuration
const envPrefix = "SWEEP_"

// envMapping maps environment variables (without the prefix) to configuration paths
var envMapping = map[string][]string{
	"EXPERIMENT_NAME":     {SectionExperiment, "name"},
	"EXPERIMENT_ID":       {SectionExperiment, "id"},
	"MAX_RUNS":            {SectionExperiment, "maxRuns"},
	"CONTINUE_ON_FAILURE": {SectionExperiment, "continueOnFailure"},
	"OBJECTIVE_COMMAND":   {SectionObjective, "command"},
	"OBJECTIVE_METRIC":    {SectionObjective, "metric"},
	"OBJECTIVE_TIMEOUT":   {SectionObjective, "timeout"},
	"MAX_SUGGESTION_COST": {SectionOptimizer, "maxSuggestionCost"},
	"MINIBATCH_CEILING":   {SectionOptimizer, "minibatchCeiling"},
	"SEED":                {SectionOptimizer, "seed"},
	"TRACKING_CSV":        {SectionTracking, "csv"},
	"TRACKING_SQLITE":     {SectionTracking, "sqlite"},
}

// dotenvLoader loads the dotenv file into the process environment, existing variables win
func dotenvLoader(cfg *SweepConfig) error {
	filename := cfg.EnvFile
	if filename == "" {
		filename = ".env"
	}

	if err := godotenv.Load(filename); err != nil {
		if _, statErr := os.Stat(filename); os.IsNotExist(statErr) && cfg.EnvFile == "" {
			return nil
		}
		return err
	}
	return nil
}

// envLoader adds environment variable overrides to the configuration
func envLoader(cfg *SweepConfig) error {
	for name, path := range envMapping {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		value, err := ParseScalar(v)
		if err != nil {
			return err
		}
		cfg.data.Set(value, path...)
	}
	return nil
}

// EnvironmentMapping returns the environment variables that reproduce the control sections of
// the supplied configuration
func EnvironmentMapping(cfg v1alpha1.Values) map[string]string {
	env := make(map[string]string)
	for name, path := range envMapping {
		if v, ok := cfg.Get(path...); ok {
			if s := scalarString(v); s != "" {
				env[envPrefix+name] = s
			}
		}
	}
	return env
}
