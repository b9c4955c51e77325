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

package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"github.com/thestormforge/optimize-sweep/cli/internal/commander"
)

// Options is the configuration for generating documentation
type Options struct {
	// Directory is the output directory for generated documentation
	Directory string
	// DocType is type of documentation to generate
	DocType string
	// FrontMatter prefixes every markdown page with a title block for static site generators
	FrontMatter bool
}

// NewCommand returns a new documentation command
func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "docs",
		Short:  "Generate documentation",
		Long:   "Generate the sweepctl command line reference",
		Hidden: true,

		RunE: func(cmd *cobra.Command, _ []string) error { return o.generate(cmd.Root()) },
	}

	cmd.Flags().StringVarP(&o.Directory, "directory", "d", "./", "directory where documentation is written")
	cmd.Flags().StringVar(&o.DocType, "doc-type", "markdown", "documentation type to write")
	cmd.Flags().BoolVar(&o.FrontMatter, "front-matter", false, "add a title block to markdown pages")

	_ = cmd.MarkFlagDirname("directory")

	commander.SetFlagValues(cmd, "doc-type", "markdown", "man", "yaml")

	return cmd
}

func (o *Options) generate(root *cobra.Command) error {
	if err := os.MkdirAll(o.Directory, 0777); err != nil {
		return err
	}

	// Generated pages must not change between builds
	root.DisableAutoGenTag = true

	switch o.DocType {
	case "markdown", "md", "":
		return doc.GenMarkdownTreeCustom(root, o.Directory, o.frontMatter, func(s string) string { return s })
	case "man":
		return doc.GenManTree(root, &doc.GenManHeader{Title: "SWEEPCTL", Section: "1", Source: "sweepctl"}, o.Directory)
	case "yaml":
		return doc.GenYamlTree(root, o.Directory)
	default:
		return fmt.Errorf("unknown documentation type: %s", o.DocType)
	}
}

// frontMatter returns the title block of a markdown page, e.g. "sweepctl check sweep" for "sweepctl_check_sweep.md"
func (o *Options) frontMatter(filename string) string {
	if !o.FrontMatter {
		return ""
	}
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return fmt.Sprintf("---\ntitle: %q\n---\n\n", strings.ReplaceAll(name, "_", " "))
}
