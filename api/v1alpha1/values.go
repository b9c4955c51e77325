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

package v1alpha1

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PathSeparator joins the section and key names of a qualified parameter name.
const PathSeparator = "."

// Values is a nested run configuration, e.g. the "train" and "env" sections handed to a training run.
// Nested sections are plain maps so the structure round trips through JSON and YAML.
type Values map[string]interface{}

// SplitName splits a qualified parameter name into a path.
func SplitName(name string) []string {
	return strings.Split(name, PathSeparator)
}

// JoinName joins a path into a qualified parameter name.
func JoinName(path ...string) string {
	return strings.Join(path, PathSeparator)
}

// Get returns the value at the supplied path.
func (in Values) Get(path ...string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(in)
	for _, p := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Float64 returns the numeric value at the supplied path.
func (in Values) Float64(path ...string) (float64, error) {
	v, ok := in.Get(path...)
	if !ok {
		return 0, fmt.Errorf("missing configuration value %q", JoinName(path...))
	}
	f, ok := ToFloat64(v)
	if !ok {
		return 0, fmt.Errorf("configuration value %q is not a number: %v", JoinName(path...), v)
	}
	return f, nil
}

// Set stores a value at the supplied path, creating intermediate sections as needed. Any existing
// non-section value along the path is replaced.
func (in Values) Set(value interface{}, path ...string) {
	if len(path) == 0 {
		return
	}

	m := map[string]interface{}(in)
	for _, p := range path[:len(path)-1] {
		next, ok := asMap(m[p])
		if !ok {
			next = make(map[string]interface{})
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// Merge recursively copies the supplied values over the receiver.
func (in Values) Merge(other Values) {
	merge(in, other)
}

func merge(dst, src map[string]interface{}) {
	for k, v := range src {
		if sv, ok := asMap(v); ok {
			if dv, ok := asMap(dst[k]); ok {
				merge(dv, sv)
				continue
			}
			dst[k] = deepCopyMap(sv)
			continue
		}
		dst[k] = v
	}
}

// DeepCopy returns a copy of the values that shares no sections with the receiver.
func (in Values) DeepCopy() Values {
	if in == nil {
		return nil
	}
	return deepCopyMap(in)
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(v)
	case Values:
		return deepCopyMap(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = deepCopyValue(v[i])
		}
		return out
	default:
		return v
	}
}

// Flatten returns the leaf values as assignments with qualified names, sorted by name.
func (in Values) Flatten() Assignments {
	var result Assignments
	flatten(in, nil, &result)
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func flatten(m map[string]interface{}, path []string, result *Assignments) {
	for k, v := range m {
		p := append(append(make([]string, 0, len(path)+1), path...), k)
		if sm, ok := asMap(v); ok {
			flatten(sm, p, result)
			continue
		}
		*result = append(*result, Assignment{Name: JoinName(p...), Value: v})
	}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Values:
		return m, true
	default:
		return nil, false
	}
}

// ToFloat64 coerces a decoded configuration scalar to a float64.
func ToFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), "_", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
