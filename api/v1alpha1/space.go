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
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1/numstr"
)

// Distribution is the family of a parameter space.
type Distribution string

const (
	// DistributionUniform draws a real value uniformly between the bounds
	DistributionUniform Distribution = "uniform"
	// DistributionIntUniform draws an integer uniformly between the inclusive bounds
	DistributionIntUniform Distribution = "int_uniform"
	// DistributionUniformPow2 draws a power of two with a uniform exponent between the inclusive bounds
	DistributionUniformPow2 Distribution = "uniform_pow2"
	// DistributionLogNormal draws a value normally distributed on a log10 scale
	DistributionLogNormal Distribution = "log_normal"
	// DistributionLogitNormal draws a value in (0, 1) whose complement is log normal
	DistributionLogitNormal Distribution = "logit_normal"
	// DistributionFixedSet draws one of an explicit list of values; it is implied by "values"
	DistributionFixedSet Distribution = "fixed_set"
)

// Distributions returns the names accepted for the "distribution" field of a parameter space.
func Distributions() []string {
	return []string{
		string(DistributionUniform),
		string(DistributionIntUniform),
		string(DistributionUniformPow2),
		string(DistributionLogNormal),
		string(DistributionLogitNormal),
	}
}

// Space describes the possible values of a single scalar hyperparameter. The set of implementations
// is closed: Uniform, IntUniform, UniformPow2, LogNormal, LogitNormal and FixedSet.
type Space interface {
	// Distribution returns the family of the space
	Distribution() Distribution
	isSpace()
}

// Search is the hint used to seed adaptive search over a space.
type Search struct {
	// Center is the value adaptive search is centered on
	Center float64
	// Scale multiplies the adaptive search radius
	Scale float64
}

// Uniform is a real valued space with inclusive bounds.
type Uniform struct {
	Min    float64
	Max    float64
	Search Search
}

// IntUniform is an integer valued space with inclusive bounds.
type IntUniform struct {
	Min    int64
	Max    int64
	Search Search
}

// UniformPow2 is a space of the powers of two between two (power of two) bounds.
type UniformPow2 struct {
	Min    float64
	Max    float64
	Search Search
}

// LogNormal is a positive real valued space sampled normally in log10 space around Mean with a standard
// deviation of Scale decades, clipped to Clip decades.
type LogNormal struct {
	Mean  float64
	Scale float64
	Clip  float64
	// Optional bounds for adaptive search, when zero the bounds are derived from Clip
	Min float64
	Max float64
}

// LogitNormal is a (0, 1) valued space whose complement is LogNormal, e.g. for discount factors.
type LogitNormal struct {
	Mean  float64
	Scale float64
	Clip  float64
	// Optional bounds for adaptive search, when zero the bounds are derived from Clip
	Min float64
	Max float64
}

// FixedSet is an explicit list of candidate values.
type FixedSet struct {
	Values []numstr.NumberOrString
}

func (*Uniform) isSpace()     {}
func (*IntUniform) isSpace()  {}
func (*UniformPow2) isSpace() {}
func (*LogNormal) isSpace()   {}
func (*LogitNormal) isSpace() {}
func (*FixedSet) isSpace()    {}

func (*Uniform) Distribution() Distribution     { return DistributionUniform }
func (*IntUniform) Distribution() Distribution  { return DistributionIntUniform }
func (*UniformPow2) Distribution() Distribution { return DistributionUniformPow2 }
func (*LogNormal) Distribution() Distribution   { return DistributionLogNormal }
func (*LogitNormal) Distribution() Distribution { return DistributionLogitNormal }
func (*FixedSet) Distribution() Distribution    { return DistributionFixedSet }

// Range returns the bounds of adaptive search over a log normal space.
func (in *LogNormal) Range() (float64, float64) {
	if in.Min > 0 && in.Max > 0 {
		return in.Min, in.Max
	}
	d := math.Pow(10, in.Clip)
	return in.Mean / d, in.Mean * d
}

// Range returns the bounds of adaptive search over a logit normal space.
func (in *LogitNormal) Range() (float64, float64) {
	if in.Min > 0 && in.Max > 0 {
		return in.Min, in.Max
	}
	d := math.Pow(10, in.Clip)
	lo := 1 - (1-in.Mean)*d
	if lo <= 0 {
		lo = in.Mean / d
	}
	return lo, 1 - (1-in.Mean)/d
}

// ParseSpace constructs a space from a decoded parameter description. The name is only used for reporting errors.
func ParseSpace(name string, desc map[string]interface{}) (Space, error) {
	values, hasValues := desc["values"]
	dist, hasDist := desc["distribution"]
	switch {
	case hasValues && hasDist:
		return nil, malformed(name, "values and distribution are mutually exclusive")
	case hasValues:
		return parseFixedSet(name, values)
	case !hasDist:
		return nil, malformed(name, "must specify either values or distribution")
	}

	d, ok := dist.(string)
	if !ok {
		return nil, &InvalidDistributionError{Parameter: name, Distribution: fmt.Sprint(dist)}
	}

	f := &fields{name: name, desc: desc}
	switch Distribution(strings.TrimSpace(d)) {
	case DistributionUniform:
		s := &Uniform{Min: f.required("min"), Max: f.required("max")}
		f.checkRange(s.Min, s.Max)
		s.Search = f.search(s.Min, s.Max, (s.Min+s.Max)/2)
		return s, f.err

	case DistributionIntUniform:
		s := &IntUniform{Min: f.integer("min"), Max: f.integer("max")}
		f.checkRange(float64(s.Min), float64(s.Max))
		s.Search = f.search(float64(s.Min), float64(s.Max), math.Round(float64(s.Min+s.Max)/2))
		return s, f.err

	case DistributionUniformPow2:
		s := &UniformPow2{Min: f.pow2("min"), Max: f.pow2("max")}
		f.checkRange(s.Min, s.Max)
		s.Search = f.search(s.Min, s.Max, math.Exp2(math.Round((math.Log2(s.Min)+math.Log2(s.Max))/2)))
		return s, f.err

	case DistributionLogNormal:
		s := &LogNormal{Mean: f.required("mean"), Scale: f.required("scale"), Clip: f.required("clip")}
		s.Min, s.Max = f.optional("min"), f.optional("max")
		f.checkLog(s.Mean, s.Scale, s.Clip, s.Min, s.Max)
		return s, f.err

	case DistributionLogitNormal:
		s := &LogitNormal{Mean: f.required("mean"), Scale: f.required("scale"), Clip: f.required("clip")}
		s.Min, s.Max = f.optional("min"), f.optional("max")
		if f.err == nil && (s.Mean <= 0 || s.Mean >= 1) {
			f.fail("mean must be in (0, 1), got %g", s.Mean)
		}
		f.checkLog(1-s.Mean, s.Scale, s.Clip, 0, 0)
		if f.err == nil && (s.Min < 0 || s.Max >= 1) {
			f.fail("search bounds must be in (0, 1)")
		}
		return s, f.err

	default:
		return nil, &InvalidDistributionError{Parameter: name, Distribution: d}
	}
}

// SearchOf returns the adaptive search hint for any space.
func SearchOf(s Space) Search {
	switch s := s.(type) {
	case *Uniform:
		return s.Search
	case *IntUniform:
		return s.Search
	case *UniformPow2:
		return s.Search
	case *LogNormal:
		return Search{Center: s.Mean, Scale: s.Scale}
	case *LogitNormal:
		return Search{Center: s.Mean, Scale: s.Scale}
	default:
		return Search{Scale: 1}
	}
}

func parseFixedSet(name string, values interface{}) (Space, error) {
	list, ok := values.([]interface{})
	if !ok {
		return nil, malformed(name, "values must be a list")
	}
	if len(list) == 0 {
		return nil, malformed(name, "values must not be empty")
	}

	s := &FixedSet{Values: make([]numstr.NumberOrString, 0, len(list))}
	for _, v := range list {
		ns, err := numstr.FromValue(v)
		if err != nil {
			return nil, malformed(name, "%s", err.Error())
		}
		s.Values = append(s.Values, ns)
	}
	return s, nil
}

// fields reads numeric fields from a parameter description, retaining the first error.
type fields struct {
	name string
	desc map[string]interface{}
	err  error
}

func (f *fields) fail(format string, args ...interface{}) {
	if f.err == nil {
		f.err = malformed(f.name, format, args...)
	}
}

func (f *fields) required(key string) float64 {
	v, ok := f.desc[key]
	if !ok {
		f.fail("missing required field %q", key)
		return 0
	}
	n, ok := ToFloat64(v)
	if !ok {
		f.fail("field %q must be a number, got %v", key, v)
	}
	return n
}

func (f *fields) optional(key string) float64 {
	if _, ok := f.desc[key]; !ok {
		return 0
	}
	return f.required(key)
}

func (f *fields) integer(key string) int64 {
	v := f.required(key)
	if v != math.Trunc(v) {
		f.fail("field %q must be an integer, got %g", key, v)
	}
	return int64(v)
}

func (f *fields) pow2(key string) float64 {
	v := f.required(key)
	if frac, _ := math.Frexp(v); v <= 0 || frac != 0.5 {
		f.fail("field %q must be a power of two, got %g", key, v)
	}
	return v
}

// scale reads the search scale, "auto" (or absent) is 1.
func (f *fields) scale() float64 {
	v, ok := f.desc["scale"]
	if !ok {
		return 1
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "auto" {
		return 1
	}
	s := f.required("scale")
	if s <= 0 {
		f.fail("scale must be positive, got %g", s)
	}
	return s
}

func (f *fields) search(min, max, center float64) Search {
	s := Search{Center: center, Scale: f.scale()}
	if _, ok := f.desc["mean"]; ok {
		s.Center = f.required("mean")
		if f.err == nil && (s.Center < min || s.Center > max) {
			f.fail("mean %g is outside of [%g, %g]", s.Center, min, max)
		}
	}
	return s
}

func (f *fields) checkRange(min, max float64) {
	if f.err == nil && min > max {
		f.fail("min %g must not be greater than max %g", min, max)
	}
}

func (f *fields) checkLog(mean, scale, clip, min, max float64) {
	switch {
	case f.err != nil:
	case mean <= 0:
		f.fail("mean must be positive, got %g", mean)
	case scale <= 0:
		f.fail("scale must be positive, got %g", scale)
	case clip < 0 || math.IsInf(clip, 0):
		f.fail("clip must be a finite non-negative number, got %g", clip)
	case min < 0 || max < 0 || (min > 0 && max > 0 && min > max):
		f.fail("invalid search bounds [%g, %g]", min, max)
	}
}

// sortedKeys returns the keys of a decoded mapping in lexical order.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
