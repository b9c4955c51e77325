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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// FuncMap returns the functions used for template evaluation
func FuncMap() template.FuncMap {
	f := sprig.TxtFuncMap()
	delete(f, "env")
	delete(f, "expandenv")

	extra := template.FuncMap{
		"flag":  flag,
		"flags": flags,
	}

	for k, v := range extra {
		f[k] = v
	}

	return f
}

// flag formats a configuration value for use as a command line argument, numbers never use exponents
func flag(v interface{}) string {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil && strings.ContainsAny(n.String(), "eE") {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return n.String()
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// flags renders every value as a "--section.key=value" argument (underscores in keys become dashes)
func flags(values map[string]interface{}) string {
	return strings.Join(Flags(values), " ")
}

// Flags returns every configuration value as a "--section.key=value" argument, sorted by name
func Flags(values map[string]interface{}) []string {
	assignments := v1alpha1.Values(values).Flatten()
	result := make([]string, 0, len(assignments))
	for _, a := range assignments {
		name := strings.ReplaceAll(a.Name, "_", "-")
		result = append(result, fmt.Sprintf("--%s=%s", name, flag(a.Value)))
	}
	return result
}
