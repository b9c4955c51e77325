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

package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoString(t *testing.T) {
	cases := []struct {
		desc     string
		info     Info
		expected string
	}{
		{
			desc:     "empty",
			expected: "v0.0.0-source",
		},
		{
			desc:     "release ignores build metadata",
			info:     Info{Version: "v0.4.0", BuildMetadata: "ci.17"},
			expected: "v0.4.0",
		},
		{
			desc:     "pre-release keeps build metadata",
			info:     Info{Version: "v0.4.0-rc.1", BuildMetadata: "ci.17"},
			expected: "v0.4.0-rc.1+ci.17",
		},
		{
			desc:     "pre-release without build metadata",
			info:     Info{Version: "v0.4.0-rc.1"},
			expected: "v0.4.0-rc.1",
		},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			assert.Equal(t, c.expected, c.info.String())
		})
	}
}

func TestGetInfo(t *testing.T) {
	defer func(v, b, g string) { Version, BuildMetadata, GitCommit = v, b, g }(Version, BuildMetadata, GitCommit)

	Version, BuildMetadata, GitCommit = "v0.4.0-rc.1", "ci.17", "0a1b2c3"
	info := GetInfo()
	assert.Equal(t, "v0.4.0-rc.1+ci.17", info.String())

	b, err := json.Marshal(info)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"v0.4.0-rc.1","build":"ci.17","gitCommit":"0a1b2c3"}`, string(b))

	Version, BuildMetadata, GitCommit = defaultVersion, "", ""
	b, err = json.Marshal(GetInfo())
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"v0.0.0-source"}`, string(b))
}
