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

package completion

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Options is the configuration for creating shell completion scripts
type Options struct {
	// Shell is the target shell
	Shell string
	// NoDescriptions omits the command and flag descriptions from the completion candidates
	NoDescriptions bool
}

// NewCommand returns a command that prints the completion script for a shell
func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion SHELL",
		Short: "Output shell completion code",
		Long:  "Output shell completion code for sweepctl commands, flags and sweep flag values",

		Example: `# Complete sweepctl commands in the current zsh session
source <(sweepctl completion zsh)
# Install bash completion for every new shell
sweepctl completion bash > /etc/bash_completion.d/sweepctl
# Fish without descriptions
sweepctl completion fish --no-descriptions > ~/.config/fish/completions/sweepctl.fish`,

		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"bash", "fish", "powershell", "zsh"},

		PreRun: func(_ *cobra.Command, args []string) { o.Shell = args[0] },
		RunE:   func(cmd *cobra.Command, _ []string) error { return o.generate(cmd.Root(), cmd.OutOrStdout()) },
	}

	cmd.Flags().BoolVar(&o.NoDescriptions, "no-descriptions", false, "omit descriptions from completion candidates")

	return cmd
}

func (o *Options) generate(root *cobra.Command, out io.Writer) error {
	desc := !o.NoDescriptions
	switch o.Shell {
	case "bash":
		return root.GenBashCompletionV2(out, desc)
	case "fish":
		return root.GenFishCompletion(out, desc)
	case "powershell":
		if desc {
			return root.GenPowerShellCompletionWithDesc(out)
		}
		return root.GenPowerShellCompletion(out)
	case "zsh":
		if desc {
			return root.GenZshCompletion(out)
		}
		return root.GenZshCompletionNoDesc(out)
	default:
		return fmt.Errorf("completion is not implemented for %s", o.Shell)
	}
}
