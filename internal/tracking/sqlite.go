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
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/thestormforge/optimize-sweep/api/v1alpha1"
	_ "modernc.org/sqlite"
)

const observationsSchema = `
CREATE TABLE IF NOT EXISTS observations (
	experiment_id TEXT NOT NULL,
	round INTEGER NOT NULL,
	run_id TEXT NOT NULL,
	score REAL NOT NULL,
	cost REAL NOT NULL,
	failed INTEGER NOT NULL,
	reason TEXT,
	started_at TEXT,
	duration_seconds REAL,
	assignments TEXT NOT NULL,
	config TEXT NOT NULL,
	PRIMARY KEY (experiment_id, round)
)`

// SQLiteSink stores observations in the observations table of a SQLite database.
type SQLiteSink struct {
	db           *sql.DB
	experimentID string
}

var _ Sink = &SQLiteSink{}

// NewSQLiteSink opens (creating if necessary) the database at path.
func NewSQLiteSink(path, experimentID string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(observationsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create observations table: %w", err)
	}

	return &SQLiteSink{db: db, experimentID: experimentID}, nil
}

// Record inserts the observation.
func (s *SQLiteSink) Record(ctx context.Context, obs *v1alpha1.Observation, cfg v1alpha1.Values) error {
	assignments, err := json.Marshal(obs.Input)
	if err != nil {
		return err
	}
	config, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	var started interface{}
	if !obs.Start.IsZero() {
		started = obs.Start.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	query := `
		INSERT OR REPLACE INTO observations
			(experiment_id, round, run_id, score, cost, failed, reason, started_at, duration_seconds, assignments, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		s.experimentID, obs.Round, obs.RunID, obs.Score, obs.Cost, obs.Failed, string(obs.Reason),
		started, obs.Duration.Seconds(), string(assignments), string(config))
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}
	return nil
}

// Observations returns the recorded observations of the experiment, ordered by round.
func (s *SQLiteSink) Observations(ctx context.Context) ([]v1alpha1.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT round, run_id, score, cost, failed, reason, assignments
		FROM observations WHERE experiment_id = ? ORDER BY round
	`, s.experimentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []v1alpha1.Observation
	for rows.Next() {
		var (
			obs         v1alpha1.Observation
			reason      sql.NullString
			assignments string
		)
		if err := rows.Scan(&obs.Round, &obs.RunID, &obs.Score, &obs.Cost, &obs.Failed, &reason, &assignments); err != nil {
			return nil, err
		}
		obs.Reason = v1alpha1.FailureReason(reason.String)
		if err := json.Unmarshal([]byte(assignments), &obs.Input); err != nil {
			return nil, err
		}
		result = append(result, obs)
	}
	return result, rows.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
