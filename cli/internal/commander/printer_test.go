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

package commander

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairs [][2]string

type pairsMeta struct{}

func (pairsMeta) ExtractList(obj interface{}) ([]interface{}, error) {
	p, ok := obj.(pairs)
	if !ok {
		return nil, fmt.Errorf("unexpected object: %T", obj)
	}
	list := make([]interface{}, len(p))
	for i := range p {
		list[i] = p[i]
	}
	return list, nil
}

func (pairsMeta) Columns(interface{}, string) []string { return []string{"name", "value"} }

func (pairsMeta) ExtractValue(obj interface{}, column string) (string, error) {
	p := obj.([2]string)
	if column == "name" {
		return p[0], nil
	}
	return p[1], nil
}

func (pairsMeta) Header(_ string, column string) string { return strings.ToUpper(column) }

func TestPrinter(t *testing.T) {
	obj := pairs{{"train.gamma", "0.99"}, {"env.num_envs", "8"}}

	cases := []struct {
		desc     string
		args     []string
		expected string
	}{
		{
			desc:     "table",
			expected: "NAME           VALUE   \ntrain.gamma    0.99    \nenv.num_envs   8       \n",
		},
		{
			desc:     "no headers",
			args:     []string{"--no-headers"},
			expected: "train.gamma    0.99   \nenv.num_envs   8      \n",
		},
		{
			desc:     "csv",
			args:     []string{"-o", "csv"},
			expected: "NAME,VALUE\ntrain.gamma,0.99\nenv.num_envs,8\n",
		},
		{
			desc:     "yaml",
			args:     []string{"-o", "yaml"},
			expected: "- - train.gamma\n  - \"0.99\"\n- - env.num_envs\n  - \"8\"\n",
		},
	}
	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			var printer ResourcePrinter
			cmd := &cobra.Command{Use: "test", RunE: func(cmd *cobra.Command, _ []string) error {
				return printer.PrintObj(obj, cmd.OutOrStdout())
			}}
			SetPrinter(pairsMeta{}, &printer, cmd, nil)

			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.SetArgs(c.args)
			require.NoError(t, cmd.Execute())
			assert.Equal(t, c.expected, out.String())
		})
	}
}

func TestNoPrinterError(t *testing.T) {
	var printer ResourcePrinter
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	SetPrinter(nil, &printer, cmd, nil)
	cmd.SetArgs([]string{"-o", "csv"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.EqualError(t, cmd.Execute(), "no printer for csv, allowed formats are: json,yaml")
}
