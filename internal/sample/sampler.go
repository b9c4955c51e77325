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

// Package sample draws concrete hyperparameter values from sweep description parameter spaces.
package sample

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"gonum.org/v1/gonum/stat/distuv"
)

// pcgStream is mixed into the seed to derive the second PCG state word.
const pcgStream = 0x9e3779b97f4a7c15

// Sampler draws values from parameter spaces. Draws depend only on the space bounds and the
// state of the random source, never on previous draws.
type Sampler struct {
	src *rand.PCG
	rng *rand.Rand
}

// New returns a sampler seeded with the supplied value.
func New(seed uint64) *Sampler {
	src := rand.NewPCG(seed, seed^pcgStream)
	return &Sampler{src: src, rng: rand.New(src)}
}

// Reseed resets the random source of the sampler.
func (s *Sampler) Reseed(seed uint64) {
	s.src.Seed(seed, seed^pcgStream)
}

// Sample draws a single value from the supplied space. Integer spaces produce int64 values, fixed
// sets produce their declared values (numbers as int64 or float64, strings as strings).
func (s *Sampler) Sample(space v1alpha1.Space) interface{} {
	switch sp := space.(type) {

	case *v1alpha1.Uniform:
		return s.Uniform(sp.Min, sp.Max)

	case *v1alpha1.IntUniform:
		return s.IntUniform(sp.Min, sp.Max)

	case *v1alpha1.UniformPow2:
		return s.UniformPow2(sp.Min, sp.Max)

	case *v1alpha1.LogNormal:
		return s.LogNormal(sp.Mean, sp.Scale, sp.Clip)

	case *v1alpha1.LogitNormal:
		return s.LogitNormal(sp.Mean, sp.Scale, sp.Clip)

	case *v1alpha1.FixedSet:
		return sp.Values[s.rng.IntN(len(sp.Values))].Interface()

	default:
		panic(fmt.Sprintf("sample.Sample: unexpected type %T", space))
	}
}

// Uniform draws a real value in [min, max].
func (s *Sampler) Uniform(min, max float64) float64 {
	if min == max {
		return min
	}
	return distuv.Uniform{Min: min, Max: max, Src: s.src}.Rand()
}

// IntUniform draws an integer in [min, max].
func (s *Sampler) IntUniform(min, max int64) int64 {
	return min + s.rng.Int64N(max-min+1)
}

// UniformPow2 draws 2^k for an integer k chosen uniformly such that 2^k is in [min, max]. Both bounds
// must be powers of two. Non-negative exponents produce an int64.
func (s *Sampler) UniformPow2(min, max float64) interface{} {
	lo, hi := int(math.Round(math.Log2(min))), int(math.Round(math.Log2(max)))
	k := lo + s.rng.IntN(hi-lo+1)
	if k >= 0 && k < 63 {
		return int64(1) << uint(k)
	}
	return math.Ldexp(1, k)
}

// LogNormal draws 10^x where x is normal around log10(mean) with a standard deviation of scale,
// clipped to clip decades either side of the mean.
func (s *Sampler) LogNormal(mean, scale, clip float64) float64 {
	mu := math.Log10(mean)
	x := distuv.Normal{Mu: mu, Sigma: scale, Src: s.src}.Rand()
	x = math.Max(mu-clip, math.Min(mu+clip, x))
	return math.Pow(10, x)
}

// LogitNormal draws 1 - LogNormal(1 - mean, scale, clip). The result is always strictly inside (0, 1).
func (s *Sampler) LogitNormal(mean, scale, clip float64) float64 {
	v := 1 - s.LogNormal(1-mean, scale, clip)
	switch {
	case v <= 0:
		return math.Nextafter(0, 1)
	case v >= 1:
		return math.Nextafter(1, 0)
	default:
		return v
	}
}

// SampleTree draws a value for every parameter of the tree. The result has the same shape as the
// description with reserved keys omitted.
func (s *Sampler) SampleTree(tree *v1alpha1.Tree) v1alpha1.Values {
	return s.sampleSection(tree.Root)
}

func (s *Sampler) sampleSection(sec *v1alpha1.Section) v1alpha1.Values {
	out := make(v1alpha1.Values, len(sec.Children))
	for _, n := range sec.Children {
		switch n := n.(type) {
		case *v1alpha1.Leaf:
			out[n.Name] = s.Sample(n.Space)
		case *v1alpha1.Section:
			out[n.Name] = map[string]interface{}(s.sampleSection(n))
		case *v1alpha1.Reserved:
			// Metadata is never sampled
		}
	}
	return out
}
