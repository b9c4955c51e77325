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

package optimizer

import (
	"fmt"
	"math"
)

// Space maps parameter values to and from the unit interval the model searches over.
type Space interface {
	// ToBasic maps a value into [0, 1]
	ToBasic(v float64) float64
	// FromBasic maps a coordinate back to a value inside the space bounds
	FromBasic(u float64) float64
}

// Transform is the warping applied to a real space before it is normalized.
type Transform int

const (
	// Linear spaces are searched as is
	Linear Transform = iota
	// Log spaces are searched over log10 of the value
	Log
	// Logit spaces are searched over log10(v / (1 - v)), values must be in (0, 1)
	Logit
	// Pow2 spaces are searched over log2 of the value and only produce powers of two
	Pow2
)

func (t Transform) String() string {
	switch t {
	case Linear:
		return "linear"
	case Log:
		return "log"
	case Logit:
		return "logit"
	case Pow2:
		return "pow2"
	default:
		return fmt.Sprintf("Transform(%d)", int(t))
	}
}

// RealSpace is a bounded numeric space.
type RealSpace struct {
	Transform Transform
	Min       float64
	Max       float64
	IsInteger bool
}

// NewRealSpace validates the bounds against the transform.
func NewRealSpace(t Transform, min, max float64, isInteger bool) (*RealSpace, error) {
	s := &RealSpace{Transform: t, Min: min, Max: max, IsInteger: isInteger || t == Pow2}
	switch {
	case math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0):
		return nil, fmt.Errorf("%s space bounds must be finite", t)
	case min > max:
		return nil, fmt.Errorf("%s space minimum %g is greater than maximum %g", t, min, max)
	case (t == Log || t == Pow2) && min <= 0:
		return nil, fmt.Errorf("%s space minimum must be positive, got %g", t, min)
	case t == Logit && (min <= 0 || max >= 1):
		return nil, fmt.Errorf("logit space bounds must be in (0, 1), got [%g, %g]", min, max)
	}
	return s, nil
}

func (s *RealSpace) forward(v float64) float64 {
	switch s.Transform {
	case Log:
		return math.Log10(v)
	case Logit:
		return math.Log10(v / (1 - v))
	case Pow2:
		return math.Log2(v)
	default:
		return v
	}
}

func (s *RealSpace) inverse(x float64) float64 {
	switch s.Transform {
	case Log:
		return math.Pow(10, x)
	case Logit:
		e := math.Pow(10, x)
		return e / (1 + e)
	case Pow2:
		return math.Exp2(math.Round(x))
	default:
		return x
	}
}

// ToBasic maps a value into [0, 1]; a degenerate space maps everything to 0.5.
func (s *RealSpace) ToBasic(v float64) float64 {
	v = math.Max(s.Min, math.Min(s.Max, v))
	lo, hi := s.forward(s.Min), s.forward(s.Max)
	if hi == lo {
		return 0.5
	}
	return (s.forward(v) - lo) / (hi - lo)
}

// FromBasic maps a coordinate back into the space, rounding integer spaces.
func (s *RealSpace) FromBasic(u float64) float64 {
	u = clamp01(u)
	lo, hi := s.forward(s.Min), s.forward(s.Max)
	v := s.inverse(lo + u*(hi-lo))
	if s.IsInteger {
		v = math.Round(v)
	}
	return math.Max(s.Min, math.Min(s.Max, v))
}

// CategoricalSpace is a space of N unordered choices represented by their index.
type CategoricalSpace struct {
	N int
}

// ToBasic maps an index to the center of its slice of the unit interval.
func (s *CategoricalSpace) ToBasic(v float64) float64 {
	if s.N <= 1 {
		return 0.5
	}
	i := math.Max(0, math.Min(float64(s.N-1), math.Round(v)))
	return (i + 0.5) / float64(s.N)
}

// FromBasic maps a coordinate to an index.
func (s *CategoricalSpace) FromBasic(u float64) float64 {
	if s.N <= 1 {
		return 0
	}
	return math.Min(float64(s.N-1), math.Floor(clamp01(u)*float64(s.N)))
}

// Param is a named dimension of the search.
type Param struct {
	// Name uniquely identifies the parameter
	Name string
	// Space maps values of the parameter to search coordinates
	Space Space
	// SearchCenter is the value random exploration is centered on
	SearchCenter float64
	// Scale multiplies the search radius of this parameter, zero means 1
	Scale float64
}

func (p *Param) scale() float64 {
	if p.Scale > 0 {
		return p.Scale
	}
	return 1
}

func clamp01(u float64) float64 {
	return math.Max(0, math.Min(1, u))
}
