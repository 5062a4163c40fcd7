package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/service/lgr"
)

var ErrNoSession = errors.New("no session recorded in journal")

type sqliteService struct {
	conn *sql.DB
	mu   sync.RWMutex
	id   string
}

// NewSqlite opens (or creates) the journal at dbPath and starts a new session
// in it.
func NewSqlite(dbPath string, watchFolder string) (IService, error) {
	svc, err := openSqlite(dbPath)
	if err != nil {
		return nil, err
	}

	svc.id = uuid.NewString()
	_, err = svc.conn.Exec(`
		INSERT INTO sessions (id, watch_folder, started_at)
		VALUES (?, ?, ?)
	`, svc.id, watchFolder, time.Now().Unix())
	if err != nil {
		svc.conn.Close()
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return svc, nil
}

// OpenSqliteSession reopens a journal for replay. An empty sessionID selects
// the most recently started session.
func OpenSqliteSession(dbPath string, sessionID string) (IService, error) {
	svc, err := openSqlite(dbPath)
	if err != nil {
		return nil, err
	}

	query := `SELECT id FROM sessions WHERE id = ?`
	args := []interface{}{sessionID}
	if sessionID == "" {
		query = `SELECT id FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT 1`
		args = nil
	}

	if err := svc.conn.QueryRow(query, args...).Scan(&svc.id); err != nil {
		svc.conn.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNoSession, dbPath)
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return svc, nil
}

func openSqlite(dbPath string) (*sqliteService, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	svc := &sqliteService{conn: conn}
	if err := svc.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return svc, nil
}

func (svc *sqliteService) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		watch_folder TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		summary TEXT
	);

	CREATE TABLE IF NOT EXISTS measurements (
		session_id TEXT NOT NULL,
		frame INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		hand_index INTEGER NOT NULL,
		hand_label TEXT NOT NULL,
		hand_score REAL NOT NULL,
		landmark_index INTEGER NOT NULL,
		x REAL, y REAL, z REAL,
		world_x REAL, world_y REAL, world_z REAL,
		PRIMARY KEY (session_id, frame, hand_index, landmark_index)
	);

	CREATE TABLE IF NOT EXISTS errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		processor TEXT NOT NULL,
		inner_error TEXT,
		message TEXT,
		stack_trace TEXT,
		misc TEXT
	);

	CREATE TABLE IF NOT EXISTS worker_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		name TEXT NOT NULL,
		worker INTEGER NOT NULL,
		frames INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		uptime INTEGER NOT NULL,
		fps INTEGER NOT NULL,
		avg_proc_time REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_errors_session ON errors(session_id);
	CREATE INDEX IF NOT EXISTS idx_worker_stats_session ON worker_stats(session_id);
	`

	_, err := svc.conn.Exec(schema)
	return err
}

func (svc *sqliteService) SessionID() string {
	return svc.id
}

// NewMeasurements inserts rows in one transaction. A frame that is journaled
// twice replaces its earlier rows.
func (svc *sqliteService) NewMeasurements(rows []model.Measurement) error {
	if len(rows) == 0 {
		return nil
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	tx, err := svc.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO measurements (session_id, frame, timestamp, hand_index, hand_label, hand_score,
			landmark_index, x, y, z, world_x, world_y, world_z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range rows {
		if _, err := stmt.Exec(svc.id, int64(m.Frame), m.Timestamp, m.HandIndex, m.HandLabel, m.HandScore,
			m.LandmarkIndex, m.X, m.Y, m.Z, m.WorldX, m.WorldY, m.WorldZ); err != nil {
			return fmt.Errorf("failed to insert measurement: %w", err)
		}
	}

	return tx.Commit()
}

func (svc *sqliteService) RetrieveMeasurements() ([]model.Measurement, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	rows, err := svc.conn.Query(`
		SELECT frame, timestamp, hand_index, hand_label, hand_score, landmark_index,
			x, y, z, world_x, world_y, world_z
		FROM measurements WHERE session_id = ?
		ORDER BY frame, hand_index, landmark_index
	`, svc.id)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var out []model.Measurement
	for rows.Next() {
		var m model.Measurement
		var frame int64
		if err := rows.Scan(&frame, &m.Timestamp, &m.HandIndex, &m.HandLabel, &m.HandScore, &m.LandmarkIndex,
			&m.X, &m.Y, &m.Z, &m.WorldX, &m.WorldY, &m.WorldZ); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		m.Frame = uint64(frame)
		out = append(out, m)
	}

	return out, rows.Err()
}

func (svc *sqliteService) CountMeasurements() (int, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	var n int
	err := svc.conn.QueryRow(`SELECT COUNT(*) FROM measurements WHERE session_id = ?`, svc.id).Scan(&n)
	return n, err
}

func (svc *sqliteService) NewError(err interface{}) error {
	rec := toErrorRecord(err)

	lgr.Logger.Error(
		rec.Message,
		slog.String("processor", rec.Processor),
		slog.String("error", rec.Inner),
	)

	misc, mErr := json.Marshal(rec.Misc)
	if mErr != nil {
		misc = []byte("{}")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, dbErr := svc.conn.Exec(`
		INSERT INTO errors (session_id, timestamp, processor, inner_error, message, stack_trace, misc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, svc.id, rec.Timestamp, rec.Processor, rec.Inner, rec.Message, rec.StackTrace, string(misc))
	if dbErr != nil {
		return fmt.Errorf("failed to insert error: %w", dbErr)
	}
	return nil
}

func (svc *sqliteService) NewWorkerStats(stats model.WorkerStats) error {
	stats.Timestamp = time.Now().Unix()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, err := svc.conn.Exec(`
		INSERT INTO worker_stats (session_id, timestamp, name, worker, frames, errors, uptime, fps, avg_proc_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, svc.id, stats.Timestamp, stats.Name, stats.Worker, stats.Frames, stats.Errors, stats.Uptime, stats.FPS, stats.AvgProcTime)
	if err != nil {
		return fmt.Errorf("failed to insert worker stats: %w", err)
	}
	return nil
}

func (svc *sqliteService) NewSessionSummary(summary model.SessionSummary) error {
	summary.Timestamp = time.Now().Unix()
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	_, err = svc.conn.Exec(`UPDATE sessions SET summary = ? WHERE id = ?`, string(data), svc.id)
	if err != nil {
		return fmt.Errorf("failed to update session summary: %w", err)
	}
	return nil
}

func (svc *sqliteService) Close() error {
	return svc.conn.Close()
}
