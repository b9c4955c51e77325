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
	"io"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/thestormforge/optimize-sweep/cli/internal/commander"
	"github.com/thestormforge/optimize-sweep/internal/version"
)

const versionTemplate = `{{range $key, $value := . }}{{$key}} version: {{$value}}
{{end}}`

// Options is the configuration for reporting the version
type Options struct {
	// IOStreams are used to access the standard process streams
	commander.IOStreams
	// Printer is the resource printer used to render the version information
	Printer commander.ResourcePrinter
}

// NewCommand creates a new command for reporting the version
func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  "Print the version information of the sweep controller",

		Annotations: map[string]string{
			commander.PrinterAllowedFormats: "json,yaml",
			commander.PrinterOutputFormat:   "text",
		},

		PersistentPreRun: func(*cobra.Command, []string) {},
		PreRun:           commander.StreamsPreRun(&o.IOStreams),
		RunE:             func(cmd *cobra.Command, _ []string) error { return o.version(cmd.Root().Name()) },
	}

	commander.SetPrinter(nil, &o.Printer, cmd, map[string]commander.AdditionalFormat{
		"text": commander.ResourcePrinterFunc(printVersion),
	})

	return cmd
}

func (o *Options) version(name string) error {
	info := version.GetInfo()
	return o.Printer.PrintObj(map[string]interface{}{name: info}, o.Out)
}

// printVersion renders the plain text version listing
func printVersion(obj interface{}, out io.Writer) error {
	return template.Must(template.New("version").Parse(versionTemplate)).Execute(out, obj)
}
