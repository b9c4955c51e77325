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

package validation

import (
	"math"
	"sort"
	"strings"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1/numstr"
)

// AssignmentError is raised when assignments do not match the sweep parameter definitions
type AssignmentError struct {
	// Parameter names for which the assignment is missing
	Unassigned []string
	// Parameter names for which there is no definition
	Undefined []string
	// Parameter names for which the assignment is out of bounds
	OutOfBounds []string
	// Parameter names for which multiple assignments exist
	Duplicated []string
}

// Error returns a message describing the nature of the problems with the assignments
func (e *AssignmentError) Error() string {
	var problems []string
	add := func(kind string, names []string) {
		if len(names) > 0 {
			problems = append(problems, kind+" "+strings.Join(names, ", "))
		}
	}
	add("unassigned:", e.Unassigned)
	add("undefined:", e.Undefined)
	add("out of bounds:", e.OutOfBounds)
	add("duplicated:", e.Duplicated)
	if len(problems) == 0 {
		return "invalid assignments"
	}
	return "invalid assignments (" + strings.Join(problems, "; ") + ")"
}

// CheckAssignments ensures the assignments match the parameter definitions
func CheckAssignments(assignments v1alpha1.Assignments, params []v1alpha1.Parameter) error {
	err := &AssignmentError{}

	// Index the assignments, checking for duplicates
	values := make(map[string]interface{}, len(assignments))
	for _, a := range assignments {
		if _, ok := values[a.Name]; !ok {
			values[a.Name] = a.Value
		} else {
			err.Duplicated = append(err.Duplicated, a.Name)
		}
	}

	// Verify against the parameter spaces
	for i := range params {
		p := &params[i]
		if v, ok := values[p.Name]; ok {
			if !CheckParameterValue(p.Space, v) {
				err.OutOfBounds = append(err.OutOfBounds, p.Name)
			}
			delete(values, p.Name)
		} else {
			err.Unassigned = append(err.Unassigned, p.Name)
		}
	}
	for n := range values {
		err.Undefined = append(err.Undefined, n)
	}
	sort.Strings(err.Undefined)

	// If there were no problems found, return nil
	if len(err.Unassigned) == 0 && len(err.Undefined) == 0 && len(err.OutOfBounds) == 0 && len(err.Duplicated) == 0 {
		return nil
	}
	return err
}

// CheckParameterValue ensures the supplied value is in range for the parameter space. Sampled
// log_normal and logit_normal values are unbounded apart from the clip, so only explicit bounds
// are enforced for them.
func CheckParameterValue(space v1alpha1.Space, v interface{}) bool {
	if s, ok := space.(*v1alpha1.FixedSet); ok {
		ns, err := numstr.FromValue(v)
		return err == nil && contains(s.Values, ns)
	}

	f, ok := v1alpha1.ToFloat64(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}

	switch s := space.(type) {
	case *v1alpha1.Uniform:
		return f >= s.Min && f <= s.Max
	case *v1alpha1.IntUniform:
		return f == math.Trunc(f) && f >= float64(s.Min) && f <= float64(s.Max)
	case *v1alpha1.UniformPow2:
		_, exp := math.Frexp(f)
		return f > 0 && f == math.Ldexp(0.5, exp) && f >= s.Min && f <= s.Max
	case *v1alpha1.LogNormal:
		return f > 0 && inBounds(f, s.Min, s.Max)
	case *v1alpha1.LogitNormal:
		return f > 0 && f < 1 && inBounds(f, s.Min, s.Max)
	default:
		return false
	}
}

func inBounds(f, min, max float64) bool {
	if min != 0 && f < min {
		return false
	}
	if max != 0 && f > max {
		return false
	}
	return true
}

func contains(values []numstr.NumberOrString, v numstr.NumberOrString) bool {
	for _, c := range values {
		if c.IsString != v.IsString {
			continue
		}
		if c.IsString && c.StrVal == v.StrVal {
			return true
		}
		if !c.IsString && c.Float64Value() == v.Float64Value() {
			return true
		}
	}
	return false
}
