// Package session implements the Session Store (C4, spec §4.4): projects,
// sessions, snapshots, and execution logs backed by an embedded relational
// database inside each project directory.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/flexicli/flexicli/internal/errs"
)

// Mode mirrors tokenbudget.Mode; duplicated here (string-identical) to keep
// this package's public surface free of a dependency on internal/tokenbudget.
type Mode string

// Status is a Session's lifecycle state (spec §3).
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCrashed   Status = "crashed"
)

const (
	maxSnapshotsPerSession = 20
	snapshotEveryNOps      = 3
	staleActiveAfter       = time.Hour
)

// Session is one active or historical conversation (spec §3).
type Session struct {
	ID        string
	ProjectID string
	Mode      Mode
	Status    Status
	StartedAt time.Time
	EndedAt   *time.Time
	TurnCount int
	TokensUsed int
}

// Snapshot is an append-only checkpoint (spec §3).
type Snapshot struct {
	SessionID      string
	SequenceNumber int
	EphemeralState []byte
	RetrievalIDs   []string
	Mode           Mode
	TokenBudget    []byte
	LastCommand    string
	CreatedAt      time.Time
}

// LogEntry is one tool invocation record (spec §3 ExecutionLog).
type LogEntry struct {
	SessionID   string
	ToolName    string
	ArgsSummary string
	Success     bool
	DurationMS  int64
	TokensIn    int
	TokensOut   int
	Timestamp   time.Time
	Error       string
}

// Knowledge is a small structured fact (spec §3).
type Knowledge struct {
	Key             string
	Value           string
	Category        string
	ImportanceScore float64
}

// Chunk is an indexed code/doc fragment (spec §3).
type Chunk struct {
	ProjectID string
	Path      string
	Content   string
	ChunkType string
	TokenCount int
	UpdatedAt time.Time
}

// Store is the Session Store (C4). One Store is opened per project
// directory; cross-project reads are forbidden at this API boundary (spec
// §4.4) since every method operates against the single db handle it owns.
type Store struct {
	mu         sync.Mutex
	db         *sql.DB
	projectID  string
	projectDir string
	meta       Meta
}

// OpenProject opens (creating if necessary) the project directory's
// database at <root>/.flexicli/flexicli.db, identified by the first 16 hex
// chars of SHA-256(absolute project root) per spec §3.
func OpenProject(root string) (*Store, error) {
	projectID := ProjectID(root)
	dir := filepath.Join(root, ".flexicli")
	dbPath := filepath.Join(dir, "flexicli.db")

	if err := ensureDir(dir); err != nil {
		return nil, errs.Corruption("session.OpenProject", "failed to create project directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errs.Corruption("session.OpenProject", "failed to open database", err)
	}
	db.SetMaxOpenConns(1) // spec §5: single writer per process, concurrent readers allowed

	s := &Store{db: db, projectID: projectID, projectDir: dir}
	if err := s.migrate(); err != nil {
		return nil, errs.Corruption("session.OpenProject", "failed to migrate schema", err)
	}
	meta, err := writeMeta(dir, projectID, root, "")
	if err != nil {
		return nil, errs.Corruption("session.OpenProject", "failed to write project metadata", err)
	}
	s.meta = meta
	return s, nil
}

// Meta returns this project's metadata (spec §6 `meta.json`).
func (s *Store) Meta() Meta { return s.meta }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	ended_at TIMESTAMP,
	turn_count INTEGER NOT NULL DEFAULT 0,
	tokens_used INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS snapshots (
	session_id TEXT NOT NULL,
	sequence_number INTEGER NOT NULL,
	ephemeral_state BLOB,
	retrieval_ids TEXT,
	mode TEXT,
	token_budget BLOB,
	last_command TEXT,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, sequence_number)
);
CREATE TABLE IF NOT EXISTS execution_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	args_summary TEXT,
	success INTEGER NOT NULL,
	duration_ms INTEGER,
	tokens_in INTEGER,
	tokens_out INTEGER,
	timestamp TIMESTAMP NOT NULL,
	error TEXT
);
CREATE TABLE IF NOT EXISTS knowledge (
	key TEXT PRIMARY KEY,
	value TEXT,
	category TEXT,
	importance_score REAL
);
CREATE TABLE IF NOT EXISTS chunks (
	project_id TEXT NOT NULL,
	path TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	line_span TEXT NOT NULL,
	content TEXT,
	chunk_type TEXT,
	token_count INTEGER,
	updated_at TIMESTAMP,
	PRIMARY KEY (project_id, path, content_hash, line_span)
);
`)
	return err
}

// StartSession begins a new session for the project, first checking for and
// recovering any crashed prior session per spec §4.4 ("on startup, if the
// most recent session has status=active and last update > 1 hour ago, it is
// marked crashed and the latest snapshot is restored into a new session").
func (s *Store) StartSession(ctx context.Context, mode Mode) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recoverCrashedLocked(ctx); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.NewString(),
		ProjectID: s.projectID,
		Mode:      mode,
		Status:    StatusActive,
		StartedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, project_id, mode, status, started_at, turn_count, tokens_used) VALUES (?, ?, ?, ?, ?, 0, 0)`,
		sess.ID, sess.ProjectID, string(sess.Mode), string(sess.Status), sess.StartedAt)
	if err != nil {
		return nil, errs.Corruption("session.StartSession", "failed to insert session", err)
	}
	return sess, nil
}

// recoverCrashedLocked marks a stale-active session crashed. Call sites
// hold s.mu.
func (s *Store) recoverCrashedLocked(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at FROM sessions WHERE status = ? ORDER BY started_at DESC LIMIT 1`, string(StatusActive))
	var id string
	var startedAt time.Time
	if err := row.Scan(&id, &startedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return errs.Corruption("session.recoverCrashed", "failed to query active session", err)
	}
	if time.Since(startedAt) <= staleActiveAfter {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET status = ? WHERE id = ?`, string(StatusCrashed), id)
	if err != nil {
		return errs.Corruption("session.recoverCrashed", "failed to mark session crashed", err)
	}
	return nil
}

// RestoreLatest restores the latest snapshot of a crashed session into a new
// active session, returning the new session and the restored snapshot.
func (s *Store) RestoreLatest(ctx context.Context, crashedSessionID string, mode Mode) (*Session, *Snapshot, error) {
	snap, err := s.latestSnapshot(ctx, crashedSessionID)
	if err != nil {
		return nil, nil, err
	}
	newSess, err := s.StartSession(ctx, mode)
	if err != nil {
		return nil, nil, err
	}
	return newSess, snap, nil
}

func (s *Store) latestSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, sequence_number, ephemeral_state, retrieval_ids, mode, token_budget, last_command, created_at
		 FROM snapshots WHERE session_id = ? ORDER BY sequence_number DESC LIMIT 1`, sessionID)

	var snap Snapshot
	var retrievalIDsJSON string
	var mode string
	if err := row.Scan(&snap.SessionID, &snap.SequenceNumber, &snap.EphemeralState, &retrievalIDsJSON, &mode, &snap.TokenBudget, &snap.LastCommand, &snap.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.Corruption("session.latestSnapshot", "no snapshot found for session "+sessionID, nil)
		}
		return nil, errs.Corruption("session.latestSnapshot", "failed to query snapshot", err)
	}
	snap.Mode = Mode(mode)
	_ = json.Unmarshal([]byte(retrievalIDsJSON), &snap.RetrievalIDs)
	return &snap, nil
}

// Snapshot writes a new, monotonically-sequenced checkpoint for session and
// prunes beyond the 20-snapshot FIFO cap (spec §3, §8 "Snapshot
// monotonicity"). The write is durable (committed) before returning, per
// spec §4.4 "must be durable before acknowledging a tool-state change".
func (s *Store) Snapshot(ctx context.Context, sessionID string, ephemeralState []byte, retrievalIDs []string, mode Mode, tokenBudget []byte, lastCommand string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM snapshots WHERE session_id = ?`, sessionID)
	if err := row.Scan(&next); err != nil {
		return 0, errs.Corruption("session.Snapshot", "failed to compute next sequence number", err)
	}

	retrievalJSON, _ := json.Marshal(retrievalIDs)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, sequence_number, ephemeral_state, retrieval_ids, mode, token_budget, last_command, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, next, ephemeralState, string(retrievalJSON), string(mode), tokenBudget, lastCommand, time.Now())
	if err != nil {
		return 0, errs.Corruption("session.Snapshot", "failed to insert snapshot", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE session_id = ? AND sequence_number <= (
			SELECT MAX(sequence_number) - ? FROM snapshots WHERE session_id = ?
		 )`, sessionID, maxSnapshotsPerSession, sessionID); err != nil {
		return 0, errs.Corruption("session.Snapshot", "failed to prune old snapshots", err)
	}

	return next, nil
}

// EndSession marks a session with a terminal status.
func (s *Store) EndSession(ctx context.Context, sessionID string, status Status) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET status = ?, ended_at = ? WHERE id = ?`, string(status), now, sessionID)
	if err != nil {
		return errs.Corruption("session.EndSession", "failed to end session", err)
	}
	return nil
}

// IncrementTurn bumps turn_count and tokens_used for a session (invariant:
// "turn count continues monotonically" across crash recovery, spec §8).
func (s *Store) IncrementTurn(ctx context.Context, sessionID string, tokensUsed int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET turn_count = turn_count + 1, tokens_used = tokens_used + ? WHERE id = ?`, tokensUsed, sessionID)
	if err != nil {
		return errs.Corruption("session.IncrementTurn", "failed to update turn count", err)
	}
	return nil
}

// RecordLog appends one ExecutionLog row.
func (s *Store) RecordLog(ctx context.Context, entry LogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_logs (session_id, tool_name, args_summary, success, duration_ms, tokens_in, tokens_out, timestamp, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.ToolName, entry.ArgsSummary, entry.Success, entry.DurationMS, entry.TokensIn, entry.TokensOut, entry.Timestamp, entry.Error)
	if err != nil {
		return errs.Corruption("session.RecordLog", "failed to insert execution log", err)
	}
	return nil
}

// QueryKnowledge returns up to limit Knowledge rows for category, ordered by
// importance score descending.
func (s *Store) QueryKnowledge(ctx context.Context, category string, limit int) ([]Knowledge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, category, importance_score FROM knowledge WHERE category = ? OR ? = '' ORDER BY importance_score DESC LIMIT ?`,
		category, category, limit)
	if err != nil {
		return nil, errs.Corruption("session.QueryKnowledge", "failed to query knowledge", err)
	}
	defer rows.Close()

	var out []Knowledge
	for rows.Next() {
		var k Knowledge
		if err := rows.Scan(&k.Key, &k.Value, &k.Category, &k.ImportanceScore); err != nil {
			return nil, errs.Corruption("session.QueryKnowledge", "failed to scan knowledge row", err)
		}
		out = append(out, k)
	}
	return out, nil
}

// UpsertChunk inserts or replaces a Chunk keyed by (path, content-hash,
// line-span) per the spec §3 dedupe invariant.
func (s *Store) UpsertChunk(ctx context.Context, c Chunk, contentHash, lineSpan string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunks (project_id, path, content_hash, line_span, content, chunk_type, token_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ProjectID, c.Path, contentHash, lineSpan, c.Content, c.ChunkType, c.TokenCount, c.UpdatedAt)
	if err != nil {
		return errs.Corruption("session.UpsertChunk", "failed to upsert chunk", err)
	}
	return nil
}

// ToolStat aggregates execution_logs by tool for the monitoring surface
// (spec §4.12 GET /api/tools).
type ToolStat struct {
	ToolName     string
	Invocations  int
	Successes    int
	AvgDurationMS float64
}

// ListSessions returns the most recent sessions, newest first, for the
// monitoring surface (spec §4.12 GET /api/sessions). limit <= 0 means no
// cap.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT id, project_id, mode, status, started_at, ended_at, turn_count, tokens_used FROM sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Corruption("session.ListSessions", "failed to query sessions", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var mode, status string
		var endedAt sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.ProjectID, &mode, &status, &sess.StartedAt, &endedAt, &sess.TurnCount, &sess.TokensUsed); err != nil {
			return nil, errs.Corruption("session.ListSessions", "failed to scan session row", err)
		}
		sess.Mode = Mode(mode)
		sess.Status = Status(status)
		if endedAt.Valid {
			t := endedAt.Time
			sess.EndedAt = &t
		}
		out = append(out, sess)
	}
	return out, nil
}

// RecentLogs returns the most recent execution_log rows across all sessions
// in this project, newest first (spec §4.12 GET /api/tools "recent
// executions").
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, tool_name, args_summary, success, duration_ms, tokens_in, tokens_out, timestamp, error
		 FROM execution_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errs.Corruption("session.RecentLogs", "failed to query execution logs", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var success int
		var errStr sql.NullString
		if err := rows.Scan(&e.SessionID, &e.ToolName, &e.ArgsSummary, &success, &e.DurationMS, &e.TokensIn, &e.TokensOut, &e.Timestamp, &errStr); err != nil {
			return nil, errs.Corruption("session.RecentLogs", "failed to scan execution log row", err)
		}
		e.Success = success != 0
		e.Error = errStr.String
		out = append(out, e)
	}
	return out, nil
}

// ToolStats aggregates execution_logs by tool_name (spec §4.12 GET
// /api/tools "tool stats").
func (s *Store) ToolStats(ctx context.Context) ([]ToolStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_name, COUNT(*), SUM(success), AVG(duration_ms) FROM execution_logs GROUP BY tool_name ORDER BY tool_name`)
	if err != nil {
		return nil, errs.Corruption("session.ToolStats", "failed to aggregate execution logs", err)
	}
	defer rows.Close()

	var out []ToolStat
	for rows.Next() {
		var st ToolStat
		var avgDuration sql.NullFloat64
		if err := rows.Scan(&st.ToolName, &st.Invocations, &st.Successes, &avgDuration); err != nil {
			return nil, errs.Corruption("session.ToolStats", "failed to scan tool stat row", err)
		}
		st.AvgDurationMS = avgDuration.Float64
		out = append(out, st)
	}
	return out, nil
}

// Counts returns the total session, chunk, and knowledge row counts for
// this project, used by GET /api/overview (spec §4.12) — the DB is the
// source of truth; callers may cache this in memory between polls.
func (s *Store) Counts(ctx context.Context) (sessions, chunks, knowledge int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&sessions); err != nil {
		return 0, 0, 0, errs.Corruption("session.Counts", "failed to count sessions", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return 0, 0, 0, errs.Corruption("session.Counts", "failed to count chunks", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge`).Scan(&knowledge); err != nil {
		return 0, 0, 0, errs.Corruption("session.Counts", "failed to count knowledge", err)
	}
	return sessions, chunks, knowledge, nil
}

// ProjectID returns the project identifier this store was opened for.
func (s *Store) ProjectID() string { return s.projectID }

// ProjectDir returns the `.flexicli` directory this store was opened from.
func (s *Store) ProjectDir() string { return s.projectDir }

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
