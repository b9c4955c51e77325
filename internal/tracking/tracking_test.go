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

package tracking

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"go.uber.org/zap"
)

func testObservations() ([]*v1alpha1.Observation, []v1alpha1.Values) {
	obs := []*v1alpha1.Observation{
		{
			Round:    0,
			RunID:    "sweep-abc-0",
			Input:    v1alpha1.Assignments{{Name: "train.learning_rate", Value: 0.001}},
			Score:    1.5,
			Cost:     10,
			Start:    time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
			Duration: 2 * time.Second,
		},
		{
			Round:  1,
			RunID:  "sweep-abc-1",
			Input:  v1alpha1.Assignments{{Name: "train.learning_rate", Value: 0.01}},
			Failed: true,
			Reason: v1alpha1.FailureInfeasible,
		},
	}
	cfgs := []v1alpha1.Values{
		{"train": map[string]interface{}{"learning_rate": 0.001, "gamma": 0.99}},
		{"train": map[string]interface{}{"learning_rate": 0.01}},
	}
	return obs, cfgs
}

func TestIDs(t *testing.T) {
	id := NewExperimentID("ppo")
	assert.True(t, strings.HasPrefix(id, "ppo-"))
	assert.Len(t, id, len("ppo-")+8)
	assert.NotEqual(t, id, NewExperimentID("ppo"))
	assert.True(t, strings.HasPrefix(NewExperimentID(""), "sweep-"))

	assert.Equal(t, "ppo-1234abcd-7", RunID("ppo-1234abcd", 7))
}

func TestCSVSink(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewCSVSink(buf)

	obs, cfgs := testObservations()
	for i := range obs {
		require.NoError(t, s.Record(context.Background(), obs[i], cfgs[i]))
	}
	require.NoError(t, s.Close())

	assert.Equal(t, strings.Join([]string{
		"round,run_id,score,cost,failed,reason,duration_seconds,train.gamma,train.learning_rate",
		"0,sweep-abc-0,1.5,10,false,,2.000,0.99,0.001",
		"1,sweep-abc-1,0,0,true,Infeasible,0.000,,0.01",
		"",
	}, "\n"), buf.String())
}

func TestSQLiteSink(t *testing.T) {
	s, err := NewSQLiteSink(filepath.Join(t.TempDir(), "sweep.db"), "sweep-abc")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	obs, cfgs := testObservations()
	for i := range obs {
		require.NoError(t, s.Record(ctx, obs[i], cfgs[i]))
	}

	stored, err := s.Observations(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	assert.Equal(t, "sweep-abc-0", stored[0].RunID)
	assert.Equal(t, 1.5, stored[0].Score)
	assert.Equal(t, 10.0, stored[0].Cost)
	assert.False(t, stored[0].Failed)
	assert.Equal(t, v1alpha1.Assignments{{Name: "train.learning_rate", Value: 0.001}}, stored[0].Input)

	assert.True(t, stored[1].Failed)
	assert.Equal(t, v1alpha1.FailureInfeasible, stored[1].Reason)
}

type failingSink struct {
	records int
}

func (s *failingSink) Record(context.Context, *v1alpha1.Observation, v1alpha1.Values) error {
	s.records++
	return errors.New("disk full")
}

func (s *failingSink) Close() error {
	return errors.New("close failed")
}

func TestMulti(t *testing.T) {
	failing := &failingSink{}
	buf := &bytes.Buffer{}
	csvSink := NewCSVSink(buf)
	m := &Multi{
		Sinks: []Sink{failing, &LogSink{Log: zapr.NewLogger(zap.NewNop())}, csvSink},
		Log:   zapr.NewLogger(zap.NewNop()),
	}

	obs, cfgs := testObservations()
	assert.NoError(t, m.Record(context.Background(), obs[0], cfgs[0]))
	assert.Equal(t, 1, failing.records)
	assert.Contains(t, buf.String(), "sweep-abc-0")

	assert.EqualError(t, m.Close(), "close failed")
}

func TestProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(buf, 5, v1alpha1.GoalMinimize)
	assert.Equal(t, "round 0/5, 0 failed, best n/a", p.String())

	ctx := context.Background()
	require.NoError(t, p.Record(ctx, &v1alpha1.Observation{Score: 3}, nil))
	require.NoError(t, p.Record(ctx, &v1alpha1.Observation{Failed: true}, nil))
	require.NoError(t, p.Record(ctx, &v1alpha1.Observation{Score: 2}, nil))
	require.NoError(t, p.Record(ctx, &v1alpha1.Observation{Score: 4}, nil))
	require.NoError(t, p.Close())

	assert.Equal(t, "round 4/5, 1 failed, best 2", p.String())
	assert.Contains(t, buf.String(), "round 4/5, 1 failed, best 2")
}
