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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"sigs.k8s.io/yaml"
)

// SetLoader returns a loader applying "section.key=value" overrides. Values are parsed as YAML
// scalars so "--set train.learning_rate=3e-4" stores a number.
func SetLoader(overrides []string) Loader {
	return func(cfg *SweepConfig) error {
		for _, o := range overrides {
			name, value, ok := strings.Cut(o, "=")
			name = strings.TrimSpace(strings.TrimLeft(name, "-"))
			if !ok || name == "" {
				return fmt.Errorf("invalid override %q, expected section.key=value", o)
			}

			v, err := ParseScalar(value)
			if err != nil {
				return fmt.Errorf("invalid override %q: %w", o, err)
			}
			cfg.data.Set(v, v1alpha1.SplitName(name)...)
		}
		return nil
	}
}

// ParseScalar decodes a YAML literal, numbers are returned as a json.Number.
func ParseScalar(s string) (interface{}, error) {
	j, err := yaml.YAMLToJSON([]byte(s))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(j)) == 0 || string(bytes.TrimSpace(j)) == "null" {
		return "", nil
	}

	var v interface{}
	d := json.NewDecoder(bytes.NewReader(j))
	d.UseNumber()
	if err := d.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func scalarString(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return ""
	case map[string]interface{}, []interface{}:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
