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
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
)

// CSVSink writes one row per round. The configuration columns are fixed by the first recorded
// configuration; later rows leave missing values blank.
type CSVSink struct {
	w       *csv.Writer
	c       io.Closer
	columns []string
}

var _ Sink = &CSVSink{}

// NewCSVSink returns a sink writing to w, w is closed with the sink when it is an io.Closer.
func NewCSVSink(w io.Writer) *CSVSink {
	s := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

var csvHeader = []string{"round", "run_id", "score", "cost", "failed", "reason", "duration_seconds"}

// Record appends a row for the observation.
func (s *CSVSink) Record(_ context.Context, obs *v1alpha1.Observation, cfg v1alpha1.Values) error {
	flat := cfg.Flatten()
	if s.columns == nil {
		s.columns = make([]string, 0, len(flat))
		for _, a := range flat {
			s.columns = append(s.columns, a.Name)
		}
		if err := s.w.Write(append(append([]string{}, csvHeader...), s.columns...)); err != nil {
			return err
		}
	}

	row := []string{
		strconv.Itoa(obs.Round),
		obs.RunID,
		strconv.FormatFloat(obs.Score, 'g', -1, 64),
		strconv.FormatFloat(obs.Cost, 'g', -1, 64),
		strconv.FormatBool(obs.Failed),
		string(obs.Reason),
		strconv.FormatFloat(obs.Duration.Seconds(), 'f', 3, 64),
	}
	for _, name := range s.columns {
		v, ok := flat.Get(name)
		if !ok {
			row = append(row, "")
			continue
		}
		row = append(row, fmt.Sprint(v))
	}

	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes the rows and closes the underlying writer.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
