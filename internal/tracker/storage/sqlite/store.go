// Package sqlite persists reconstruction runs: run metadata, per-event
// summaries with a compressed spacepoint blob, and every accepted seed with
// its estimated track parameters. It implements pipeline.PersistenceSink.
package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/apex-hep/trackseed/internal/tracker/l3spacepoints"
	"github.com/apex-hep/trackseed/internal/tracker/pipeline"
)

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id             TEXT PRIMARY KEY,
		created_unix_nanos INTEGER NOT NULL,
		params_json        TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
		run_id             TEXT NOT NULL,
		event_id           INTEGER NOT NULL,
		cell_count         INTEGER NOT NULL,
		measurement_count  INTEGER NOT NULL,
		spacepoint_count   INTEGER NOT NULL,
		seed_count         INTEGER NOT NULL,
		spacepoint_blob    BLOB,
		PRIMARY KEY (run_id, event_id),
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);
	CREATE TABLE IF NOT EXISTS seeds (
		run_id      TEXT NOT NULL,
		event_id    INTEGER NOT NULL,
		bottom_link INTEGER NOT NULL,
		middle_link INTEGER NOT NULL,
		top_link    INTEGER NOT NULL,
		weight      DOUBLE NOT NULL,
		z_vertex    DOUBLE NOT NULL,
		d0          DOUBLE,
		z0          DOUBLE,
		phi         DOUBLE,
		theta       DOUBLE,
		q_over_pt   DOUBLE,
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);
	CREATE INDEX IF NOT EXISTS idx_seeds_run_event ON seeds(run_id, event_id);
`

// Run is one persisted reconstruction run.
type Run struct {
	RunID            string
	CreatedUnixNanos int64
	ParamsJSON       string
}

// SeedRow is one persisted seed joined with its track parameters.
type SeedRow struct {
	EventID                   int
	Bottom, Middle, Top       uint32
	Weight, ZVertex           float64
	D0, Z0, Phi, Theta, QOverPt float64
}

// SeedStore is the persistence surface the commands program against.
type SeedStore interface {
	CreateRun(params any) (*Run, error)
	Runs() ([]Run, error)
	SeedsForRun(runID string) ([]SeedRow, error)
	SpacepointsForEvent(runID string, eventID int) ([]l3spacepoints.Spacepoint, error)
	Close() error
}

// Store is the sqlite-backed persistence layer.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open seed store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply seed store schema: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

var _ SeedStore = (*Store)(nil)

// Close releases the database and codec resources.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// CreateRun records a new run with its full configuration and returns it.
// params may be any JSON-serialisable configuration value.
func (s *Store) CreateRun(params any) (*Run, error) {
	pj, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal run params: %w", err)
	}
	run := &Run{
		RunID:            uuid.NewString(),
		CreatedUnixNanos: time.Now().UnixNano(),
		ParamsJSON:       string(pj),
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, created_unix_nanos, params_json) VALUES (?, ?, ?)`,
		run.RunID, run.CreatedUnixNanos, run.ParamsJSON)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Runs lists all persisted runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, created_unix_nanos, params_json FROM runs ORDER BY created_unix_nanos DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.CreatedUnixNanos, &r.ParamsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunSink adapts the store to pipeline.PersistenceSink for one run.
type RunSink struct {
	store *Store
	runID string
}

// NewRunSink returns a sink writing events under the given run.
func (s *Store) NewRunSink(runID string) *RunSink {
	return &RunSink{store: s, runID: runID}
}

// PersistEvent writes one event summary, its compressed spacepoint blob and
// all of its seeds in a single transaction.
func (rs *RunSink) PersistEvent(eventID int, res *pipeline.Result) error {
	blob, err := rs.store.encodeSpacepoints(res.Spacepoints)
	if err != nil {
		return err
	}

	tx, err := rs.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin event tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO events (run_id, event_id, cell_count, measurement_count,
			spacepoint_count, seed_count, spacepoint_blob)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rs.runID, eventID, len(res.CellLinks), len(res.Measurements),
		len(res.Spacepoints), len(res.Seeds), blob)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", eventID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO seeds (run_id, event_id, bottom_link, middle_link, top_link,
			weight, z_vertex, d0, z0, phi, theta, q_over_pt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare seed insert: %w", err)
	}
	defer stmt.Close()

	for i, seed := range res.Seeds {
		p := res.Params[i]
		if _, err := stmt.Exec(rs.runID, eventID,
			seed.Bottom, seed.Middle, seed.Top, seed.Weight, seed.ZVertex,
			p.D0, p.Z0, p.Phi, p.Theta, p.QOverPt); err != nil {
			return fmt.Errorf("insert seed %d of event %d: %w", i, eventID, err)
		}
	}
	return tx.Commit()
}

// SeedsForRun returns every seed of a run in (event, insertion) order.
func (s *Store) SeedsForRun(runID string) ([]SeedRow, error) {
	rows, err := s.db.Query(`
		SELECT event_id, bottom_link, middle_link, top_link,
			weight, z_vertex, d0, z0, phi, theta, q_over_pt
		FROM seeds WHERE run_id = ? ORDER BY event_id, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query seeds: %w", err)
	}
	defer rows.Close()
	var out []SeedRow
	for rows.Next() {
		var r SeedRow
		if err := rows.Scan(&r.EventID, &r.Bottom, &r.Middle, &r.Top,
			&r.Weight, &r.ZVertex, &r.D0, &r.Z0, &r.Phi, &r.Theta, &r.QOverPt); err != nil {
			return nil, fmt.Errorf("scan seed: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SpacepointsForEvent restores one event's spacepoint collection from its
// compressed blob.
func (s *Store) SpacepointsForEvent(runID string, eventID int) ([]l3spacepoints.Spacepoint, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT spacepoint_blob FROM events WHERE run_id = ? AND event_id = ?`,
		runID, eventID).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("query event blob: %w", err)
	}
	return s.decodeSpacepoints(blob)
}

func (s *Store) encodeSpacepoints(sps []l3spacepoints.Spacepoint) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(sps); err != nil {
		return nil, fmt.Errorf("encode spacepoints: %w", err)
	}
	return s.enc.EncodeAll(raw.Bytes(), nil), nil
}

func (s *Store) decodeSpacepoints(blob []byte) ([]l3spacepoints.Spacepoint, error) {
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress spacepoints: %w", err)
	}
	var sps []l3spacepoints.Spacepoint
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&sps); err != nil {
		return nil, fmt.Errorf("decode spacepoints: %w", err)
	}
	return sps, nil
}
