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

package objective

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	"go.uber.org/zap"
)

func TestCommand_Evaluate(t *testing.T) {
	run := &Run{
		ExperimentID: "sweep-0000",
		ID:           "sweep-0000-3",
		Round:        3,
		Seed:         42,
		Config: v1alpha1.Values{
			"train": map[string]interface{}{"learning_rate": 0.001},
		},
	}

	cases := []struct {
		desc     string
		script   string
		args     []string
		expected Result
		reason   string
	}{
		{
			desc:     "reported uptime",
			script:   `echo 'starting'; echo '{"episode_return": 12.5, "uptime": 30}'`,
			expected: Result{Score: 12.5, Cost: 30},
		},
		{
			desc:     "last report wins",
			script:   `echo '{"episode_return": 1, "uptime": 1}'; echo '{"other": 3}'; echo '{"episode_return": 2, "uptime": 2}'`,
			expected: Result{Score: 2, Cost: 2},
		},
		{
			desc:     "seed in environment",
			script:   `echo "{\"episode_return\": $SWEEP_SEED, \"uptime\": 1}"`,
			expected: Result{Score: 42, Cost: 1},
		},
		{
			desc:     "configuration on stdin",
			script:   `grep -q learning_rate && echo '{"episode_return": 5, "uptime": 1}'`,
			expected: Result{Score: 5, Cost: 1},
		},
		{
			desc:     "templated arguments",
			script:   `echo "{\"episode_return\": $1, \"uptime\": $2}"`,
			args:     []string{"{{ .Round }}", "{{ .Values.train.learning_rate }}"},
			expected: Result{Score: 3, Cost: 0.001},
		},
		{
			desc:   "missing metric",
			script: `echo '{"loss": 1}'`,
			reason: `trainer did not report metric "episode_return"`,
		},
		{
			desc:   "non-zero exit",
			script: `exit 3`,
			reason: "trainer exited with an error",
		},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			cmd := &Command{
				Path:   "/bin/sh",
				Args:   append([]string{"-c", c.script, "trainer"}, c.args...),
				Metric: "episode_return",
				Log:    zapr.NewLogger(zap.NewNop()),
			}

			r, err := cmd.Evaluate(context.Background(), run)
			if c.reason != "" {
				var oerr *Error
				require.True(t, errors.As(err, &oerr), "%v", err)
				assert.Equal(t, c.reason, oerr.Reason)
				assert.Equal(t, run.ID, oerr.RunID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expected, r)
		})
	}
}

func TestCommand_Output(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := &Command{
		Path:   "/bin/sh",
		Args:   []string{"-c", `echo '{"score": 1}'`},
		Metric: "score",
		Output: out,
	}

	r, err := cmd.Evaluate(context.Background(), &Run{ID: "r"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Score)
	assert.Greater(t, r.Cost, 0.0)
	assert.Equal(t, "{\"score\": 1}\n", out.String())
}

func TestCommand_OutputBothStreams(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := &Command{
		Path: "/bin/sh",
		Args: []string{"-c", `i=0
while [ $i -lt 200 ]; do
  i=$((i+1))
  echo "stdout-$i"
  echo "stderr-$i" >&2
done
echo '{"score": 1}'`},
		Metric: "score",
		Output: out,
	}

	expected := len("{\"score\": 1}\n")
	for i := 1; i <= 200; i++ {
		expected += len(fmt.Sprintf("stdout-%d\n", i)) + len(fmt.Sprintf("stderr-%d\n", i))
	}

	r, err := cmd.Evaluate(context.Background(), &Run{ID: "r"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Score)
	assert.Equal(t, expected, out.Len())
	assert.Equal(t, 401, strings.Count(out.String(), "\n"))
}
