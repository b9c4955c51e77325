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
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// errNotPositiveDefinite is returned when the kernel matrix cannot be factorized.
var errNotPositiveDefinite = errors.New("kernel matrix is not positive definite")

// gaussianProcess is a zero mean Gaussian process regression over standardized targets.
type gaussianProcess struct {
	xs          [][]float64
	mean, std   float64
	lengthScale float64
	chol        mat.Cholesky
	alpha       *mat.VecDense
}

// rbf is the squared exponential kernel.
func rbf(a, b []float64, lengthScale float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-d * d / (2 * lengthScale * lengthScale))
}

// defaultLengthScale grows with the dimension so distances in the unit cube stay comparable.
func defaultLengthScale(dim int) float64 {
	return 0.2 * math.Sqrt(float64(dim))
}

func fitGaussianProcess(xs [][]float64, ys []float64, lengthScale, noise float64) (*gaussianProcess, error) {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return nil, errors.New("gaussian process requires matching, non-empty inputs")
	}

	g := &gaussianProcess{xs: xs, lengthScale: lengthScale}
	g.mean, g.std = stat.MeanStdDev(ys, nil)
	if n < 2 || g.std == 0 || math.IsNaN(g.std) {
		g.std = 1
	}

	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := rbf(xs[i], xs[j], lengthScale)
			if i == j {
				v += noise
			}
			k.SetSym(i, j, v)
		}
	}
	if ok := g.chol.Factorize(k); !ok {
		return nil, errNotPositiveDefinite
	}

	y := mat.NewVecDense(n, nil)
	for i := range ys {
		y.SetVec(i, (ys[i]-g.mean)/g.std)
	}
	g.alpha = mat.NewVecDense(n, nil)
	if err := g.chol.SolveVecTo(g.alpha, y); err != nil {
		return nil, err
	}
	return g, nil
}

// predict returns the standardized posterior mean and standard deviation at x.
func (g *gaussianProcess) predict(x []float64) (float64, float64) {
	n := len(g.xs)
	ks := mat.NewVecDense(n, nil)
	for i := range g.xs {
		ks.SetVec(i, rbf(x, g.xs[i], g.lengthScale))
	}

	mu := mat.Dot(ks, g.alpha)

	v := mat.NewVecDense(n, nil)
	if err := g.chol.SolveVecTo(v, ks); err != nil {
		return mu, 1
	}
	variance := 1 - mat.Dot(ks, v)
	return mu, math.Sqrt(math.Max(variance, 1e-12))
}

// unstandardize converts a standardized prediction back to the target scale.
func (g *gaussianProcess) unstandardize(mu float64) float64 {
	return mu*g.std + g.mean
}
