// Package store persists sessions to a SQLite database and feeds the
// core's lazy load path: modalities reloaded from a saved session carry
// only a row key until first access, when the store materializes their
// arrays on demand.
package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/artlab/artkit/core"
	"github.com/artlab/artkit/metrics"
	"github.com/artlab/artkit/splines"
)

// Sentinel errors for store operations.
var (
	// ErrSessionNotFound indicates a session name with no saved rows.
	ErrSessionNotFound = errors.New("store: session not found")
	// ErrModalityNotFound indicates a load key with no saved row.
	ErrModalityNotFound = errors.New("store: modality not found")
	// ErrUnknownKind indicates a saved modality of a kind this build
	// does not know how to reconstruct.
	ErrUnknownKind = errors.New("store: unknown modality kind")
)

// DB wraps a sql.DB connection to an artkit SQLite database.
type DB struct {
	*sql.DB
	Path string
}

// Open opens (or creates) the database at the given path, configures
// pragmas, and runs migrations.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create db dir: %w", err)
	}
	return open(path)
}

// OpenMemory opens an in-memory database for testing.
func OpenMemory() (*DB, error) {
	return open(":memory:")
}

func open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection gets its own private in-memory database,
		// so the pool must stay at one connection or only the connection
		// that ran the migration has the schema.
		sqlDB.SetMaxOpenConns(1)
	}
	db := &DB{DB: sqlDB, Path: path}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return db, nil
}

func (db *DB) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("store: pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func (db *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	root TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS recordings (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	prompt         TEXT NOT NULL,
	recorded_at    TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	basename       TEXT NOT NULL,
	path           TEXT NOT NULL,
	excluded       INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS modalities (
	id            TEXT PRIMARY KEY,
	recording_id  TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	kind          TEXT NOT NULL,
	sampling_rate REAL NOT NULL,
	time_offset   REAL NOT NULL,
	shape         TEXT NOT NULL,
	data          BLOB NOT NULL,
	timevector    BLOB NOT NULL,
	meta          TEXT NOT NULL,
	UNIQUE (recording_id, name)
);`
	_, err := db.Exec(schema)
	return err
}

// SaveSession writes the session and everything it owns, replacing any
// previously saved session of the same name. Every modality is
// materialized before writing, so a released array is re-derived or
// re-read on the way to disk.
func (db *DB) SaveSession(session *core.Session) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions WHERE name = ?`, session.Name); err != nil {
		return fmt.Errorf("store: clearing session %q: %w", session.Name, err)
	}
	sessionID := uuid.NewString()
	if _, err := tx.Exec(`INSERT INTO sessions (id, name, root) VALUES (?, ?, ?)`,
		sessionID, session.Name, session.Paths.Root); err != nil {
		return fmt.Errorf("store: saving session %q: %w", session.Name, err)
	}

	for _, rec := range session.Recordings {
		if _, err := tx.Exec(
			`INSERT INTO recordings
			 (id, session_id, prompt, recorded_at, participant_id, basename, path, excluded)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID.String(), sessionID, rec.Meta.Prompt,
			rec.Meta.TimeOfRecording.Format(time.RFC3339Nano),
			rec.Meta.ParticipantID, rec.Meta.Basename, rec.Meta.Path,
			boolToInt(rec.Excluded())); err != nil {
			return fmt.Errorf("store: saving recording %q: %w", rec.Meta.Basename, err)
		}
		for _, name := range rec.Names() {
			m, _ := rec.Modality(name)
			if err := saveModality(tx, rec.ID.String(), m); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func saveModality(tx *sql.Tx, recordingID string, m core.Modality) error {
	data, err := m.Array()
	if err != nil {
		return fmt.Errorf("store: materializing %q: %w", m.Name(), err)
	}
	timevector, err := m.Timevector()
	if err != nil {
		return err
	}
	rate, err := m.SamplingRate()
	if err != nil {
		return err
	}
	offset, err := m.TimeOffset()
	if err != nil {
		return err
	}
	shape, err := json.Marshal(data.Shape())
	if err != nil {
		return err
	}
	meta, err := marshalMeta(m)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO modalities
		 (id, recording_id, name, kind, sampling_rate, time_offset, shape, data, timevector, meta)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), recordingID, m.Name(), m.Kind(), rate, offset,
		string(shape), floatsToBlob(data.Data()), floatsToBlob(timevector), string(meta))
	if err != nil {
		return fmt.Errorf("store: saving modality %q: %w", m.Name(), err)
	}
	return nil
}

// marshalMeta serialises the typed metadata of the known kinds.
func marshalMeta(m core.Modality) ([]byte, error) {
	switch concrete := m.(type) {
	case *core.RawUltrasound:
		return json.Marshal(concrete.RawUltrasoundMeta())
	case *splines.Splines:
		return json.Marshal(concrete.SplineMeta())
	case *metrics.SplineMetric:
		return json.Marshal(concrete.Parameters())
	case *metrics.PD:
		return json.Marshal(concrete.Parameters())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, m.Kind())
	}
}

// LoadSession reads a previously saved session. Recordings come back
// with their metadata and modality maps intact, but every modality is
// reconstructed lazily: its array, timevector and sampling rate load
// from the store on first access.
func (db *DB) LoadSession(name string) (*core.Session, error) {
	var sessionID, root string
	err := db.QueryRow(`SELECT id, root FROM sessions WHERE name = ?`, name).
		Scan(&sessionID, &root)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, name)
	} else if err != nil {
		return nil, fmt.Errorf("store: loading session %q: %w", name, err)
	}

	rows, err := db.Query(
		`SELECT id, prompt, recorded_at, participant_id, basename, path, excluded
		 FROM recordings WHERE session_id = ? ORDER BY recorded_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: loading recordings: %w", err)
	}
	defer rows.Close()

	var recordings []*core.Recording
	for rows.Next() {
		var id, prompt, recordedAt, participant, basename, path string
		var excluded int
		if err := rows.Scan(&id, &prompt, &recordedAt, &participant, &basename, &path, &excluded); err != nil {
			return nil, err
		}
		timestamp, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("store: recording %q timestamp: %w", basename, err)
		}
		recordingID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("store: recording %q id: %w", basename, err)
		}
		rec := core.NewRecording(core.RecordingMeta{
			Prompt:          prompt,
			TimeOfRecording: timestamp,
			ParticipantID:   participant,
			Basename:        basename,
			Path:            path,
		})
		rec.ID = recordingID
		rec.SetExcluded(excluded != 0)
		if err := db.loadModalities(rec); err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return core.NewSession(name, core.PathStructure{Root: root}, nil, recordings), nil
}

func (db *DB) loadModalities(rec *core.Recording) error {
	rows, err := db.Query(
		`SELECT id, kind, time_offset, meta FROM modalities WHERE recording_id = ? ORDER BY name`,
		rec.ID.String())
	if err != nil {
		return fmt.Errorf("store: loading modalities of %q: %w", rec.Meta.Basename, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, kind, metaJSON string
		var offset float64
		if err := rows.Scan(&id, &kind, &offset, &metaJSON); err != nil {
			return err
		}
		m, err := db.reconstruct(rec, kind, id, offset, []byte(metaJSON))
		if err != nil {
			return err
		}
		if err := rec.AddModality(m, false); err != nil {
			return err
		}
	}
	return rows.Err()
}

// reconstruct builds a lazily loading modality of the saved kind. The
// row id becomes the load path, resolved by LoadModalityData.
func (db *DB) reconstruct(rec *core.Recording, kind, id string, offset float64, metaJSON []byte) (core.Modality, error) {
	opts := []core.Option{
		core.WithLoadPath(id, db.LoadModalityData),
		core.WithTimeOffset(offset),
	}
	switch kind {
	case core.KindRawUltrasound:
		var meta core.RawMeta
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return nil, err
		}
		return core.NewRawUltrasound(rec, meta, opts...), nil
	case splines.Kind:
		var meta splines.SplineMeta
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return nil, err
		}
		return splines.New(rec, meta, opts...), nil
	case metrics.KindSplineMetric:
		var params metrics.SplineMetricParameters
		if err := json.Unmarshal(metaJSON, &params); err != nil {
			return nil, err
		}
		return metrics.NewSplineMetric(rec, params, opts...)
	case metrics.KindPD:
		var params metrics.PDParameters
		if err := json.Unmarshal(metaJSON, &params); err != nil {
			return nil, err
		}
		return metrics.NewPD(rec, params, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// LoadModalityData resolves a load key written by SaveSession. It is the
// core.LoadFunc behind every modality LoadSession reconstructs.
func (db *DB) LoadModalityData(loadPath string) (*core.ModalityData, error) {
	var shapeJSON string
	var rate float64
	var dataBlob, timeBlob []byte
	err := db.QueryRow(
		`SELECT shape, sampling_rate, data, timevector FROM modalities WHERE id = ?`, loadPath).
		Scan(&shapeJSON, &rate, &dataBlob, &timeBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrModalityNotFound, loadPath)
	} else if err != nil {
		return nil, fmt.Errorf("store: loading modality data %q: %w", loadPath, err)
	}

	var shape []int
	if err := json.Unmarshal([]byte(shapeJSON), &shape); err != nil {
		return nil, err
	}
	data, err := core.NewArray(shape, blobToFloats(dataBlob))
	if err != nil {
		return nil, err
	}
	return core.NewModalityData(data, rate, blobToFloats(timeBlob))
}

// floatsToBlob encodes float64 values as little-endian bytes.
func floatsToBlob(values []float64) []byte {
	blob := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(blob[8*i:], math.Float64bits(v))
	}
	return blob
}

// blobToFloats decodes little-endian bytes back into float64 values.
func blobToFloats(blob []byte) []float64 {
	values := make([]float64, len(blob)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[8*i:]))
	}
	return values
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
