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

package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess    = "success"
	outcomeInfeasible = "infeasible"
	outcomeFailed     = "failed"
)

var (
	// SweepRounds is a Prometheus counter metric which holds the total number of
	// sweep rounds by outcome
	SweepRounds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_rounds_total",
		Help: "Total number of sweep rounds per experiment and outcome",
	}, []string{"experiment", "outcome"})

	// SweepBestScore is a Prometheus gauge metric which holds the best score observed
	// so far for an experiment
	SweepBestScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sweep_best_score",
		Help: "Best objective score observed for an experiment",
	}, []string{"experiment"})

	// ObjectiveDuration is a Prometheus histogram metric which holds the wall clock
	// duration of objective evaluations
	ObjectiveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_objective_duration_seconds",
		Help:    "Wall clock duration of objective evaluations",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 12),
	}, []string{"experiment"})
)

func init() {
	prometheus.MustRegister(
		SweepRounds,
		SweepBestScore,
		ObjectiveDuration,
	)
}
