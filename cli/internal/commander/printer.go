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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// Command annotations recognized by SetPrinter.
const (
	// PrinterAllowedFormats is a comma-delimited list of output formats, e.g. "json,yaml".
	PrinterAllowedFormats = "allowedFormats"
	// PrinterOutputFormat is the default output format, it must be allowed.
	PrinterOutputFormat = "outputFormat"
	// PrinterColumns is a comma-delimited list of columns for the table formats.
	PrinterColumns = "columns"
	// PrinterNoHeader suppresses the header row of the table formats.
	PrinterNoHeader = "noHeader"
)

// ResourcePrinter formats an object to a byte stream
type ResourcePrinter interface {
	// PrintObj formats the specified object to the specified writer
	PrintObj(interface{}, io.Writer) error
}

// AdditionalFormat is a factory function for registering new formats
type AdditionalFormat interface {
	NewPrinter(columns []string, noHeader bool) (ResourcePrinter, error)
}

// ResourcePrinterFunc allows a simple function to be used as resource printer
type ResourcePrinterFunc func(interface{}, io.Writer) error

func (rpf ResourcePrinterFunc) PrintObj(obj interface{}, w io.Writer) error {
	return rpf(obj, w)
}

func (rpf ResourcePrinterFunc) NewPrinter([]string, bool) (ResourcePrinter, error) {
	return rpf, nil
}

// TableMeta describes how an object (typically a list of observations) is rendered as rows.
type TableMeta interface {
	// ExtractList returns the rows of the object
	ExtractList(obj interface{}) ([]interface{}, error)
	// Columns returns the default columns for an output format
	Columns(obj interface{}, outputFormat string) []string
	// ExtractValue returns the cell of a row
	ExtractValue(obj interface{}, column string) (string, error)
	// Header returns the header of a column for an output format
	Header(outputFormat string, column string) string
}

// NoPrinterError is returned when the requested output format is not allowed
type NoPrinterError struct {
	OutputFormat   string
	AllowedFormats []string
}

func (e NoPrinterError) Error() string {
	sort.Strings(e.AllowedFormats)
	return fmt.Sprintf("no printer for %s, allowed formats are: %s", e.OutputFormat, strings.Join(e.AllowedFormats, ","))
}

// tabular formats cannot be offered without a TableMeta; "" is the plain table
var tabular = map[string]bool{"": true, "wide": true, "csv": true}

var defaultFormats = []string{"json", "yaml", "wide", "csv", ""}

type printOptions struct {
	formats    []string
	format     string
	columns    []string
	noHeader   bool
	meta       TableMeta
	additional map[string]AdditionalFormat
}

// newPrintOptions reads the printer annotations of a command.
func newPrintOptions(meta TableMeta, annotations map[string]string, additional map[string]AdditionalFormat) *printOptions {
	o := &printOptions{meta: meta, additional: additional}
	o.columns = splitList(annotations[PrinterColumns], false)
	o.noHeader, _ = strconv.ParseBool(annotations[PrinterNoHeader])

	candidates := splitList(annotations[PrinterAllowedFormats], true)
	if len(candidates) == 0 {
		candidates = defaultFormats
	}
	for f := range additional {
		candidates = append(candidates, strings.ToLower(f))
	}

	want := strings.ToLower(annotations[PrinterOutputFormat])
	seen := make(map[string]bool, len(candidates))
	for _, f := range candidates {
		if seen[f] || (tabular[f] && meta == nil) {
			continue
		}
		seen[f] = true
		o.formats = append(o.formats, f)
		if f == want {
			o.format = f
		}
	}

	if len(o.formats) == 1 {
		o.format = o.formats[0]
	}
	return o
}

func splitList(s string, lower bool) []string {
	var result []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		if lower {
			f = strings.ToLower(f)
		}
		result = append(result, f)
	}
	return result
}

func (o *printOptions) addFlags(cmd *cobra.Command) {
	if len(o.formats) > 1 {
		cmd.Flags().StringVarP(&o.format, "output", "o", o.format, "output `format`")
		SetFlagValues(cmd, "output", o.formats...)
	}
	for _, f := range o.formats {
		if tabular[f] {
			cmd.Flags().BoolVar(&o.noHeader, "no-headers", o.noHeader, "don't print headers")
			return
		}
	}
}

func (o *printOptions) toPrinter(printer *ResourcePrinter) error {
	format := strings.ToLower(o.format)
	allowed := false
	for _, f := range o.formats {
		allowed = allowed || f == format
	}
	if !allowed {
		return NoPrinterError{OutputFormat: o.format, AllowedFormats: o.formats}
	}

	switch format {
	case "json":
		*printer = ResourcePrinterFunc(printJSON)
	case "yaml":
		*printer = ResourcePrinterFunc(printYAML)
	case "", "wide":
		*printer = &rowPrinter{meta: o.meta, format: format, columns: o.columns, headers: !o.noHeader, emptyMessage: "No results found.", newWriter: newTableWriter}
	case "csv":
		*printer = &rowPrinter{meta: o.meta, format: format, headers: !o.noHeader, newWriter: newCSVWriter}
	default:
		af := o.additional[format]
		if af == nil {
			return NoPrinterError{OutputFormat: o.format, AllowedFormats: o.formats}
		}
		p, err := af.NewPrinter(o.columns, o.noHeader)
		if err != nil {
			return err
		}
		*printer = p
	}
	return nil
}

func printJSON(obj interface{}, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(obj)
}

func printYAML(obj interface{}, w io.Writer) error {
	b, err := yaml.Marshal(obj)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// rowWriter receives the cells of a tabular format one row at a time.
type rowWriter interface {
	WriteRow(row []string) error
	Flush() error
}

// rowPrinter renders the rows of a TableMeta through a rowWriter.
type rowPrinter struct {
	meta         TableMeta
	format       string
	columns      []string
	headers      bool
	emptyMessage string
	newWriter    func(io.Writer) rowWriter
}

func (p *rowPrinter) PrintObj(obj interface{}, w io.Writer) error {
	rows, err := p.meta.ExtractList(obj)
	if err != nil {
		return err
	}
	if len(rows) == 0 && p.emptyMessage != "" {
		_, err = fmt.Fprintln(w, p.emptyMessage)
		return err
	}

	columns := p.columns
	if len(columns) == 0 {
		columns = p.meta.Columns(obj, p.format)
	}

	rw := p.newWriter(w)
	cells := make([]string, len(columns))
	if p.headers {
		for i, c := range columns {
			cells[i] = p.meta.Header(p.format, c)
		}
		if err := rw.WriteRow(cells); err != nil {
			return err
		}
	}
	for _, row := range rows {
		for i, c := range columns {
			if cells[i], err = p.meta.ExtractValue(row, c); err != nil {
				return err
			}
		}
		if err := rw.WriteRow(cells); err != nil {
			return err
		}
	}
	return rw.Flush()
}

type tableWriter struct{ *tabwriter.Writer }

func newTableWriter(w io.Writer) rowWriter {
	return tableWriter{tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)}
}

func (w tableWriter) WriteRow(row []string) error {
	var err error
	if len(row) == 1 {
		// Single columns are not padded
		_, err = fmt.Fprintln(w, row[0])
	} else {
		_, err = fmt.Fprintf(w, "%s\t\n", strings.Join(row, "\t"))
	}
	return err
}

type csvWriter struct{ *csv.Writer }

func newCSVWriter(w io.Writer) rowWriter { return csvWriter{csv.NewWriter(w)} }

func (w csvWriter) WriteRow(row []string) error { return w.Write(row) }

func (w csvWriter) Flush() error {
	w.Writer.Flush()
	return w.Error()
}
