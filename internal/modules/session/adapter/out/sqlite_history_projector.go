package out

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"companion/internal/modules/session/domain"
	sessionout "companion/internal/modules/session/port/out"
	"companion/internal/platform/tx"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteHistoryProjector indexes finished modules and closed sessions. The
// blob stays the source of truth; these tables only serve queries.
type SQLiteHistoryProjector struct {
	db *sql.DB
}

func NewSQLiteHistoryProjector(db *sql.DB) (sessionout.HistoryProjector, error) {
	projector := &SQLiteHistoryProjector{db: db}
	if err := projector.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return projector, nil
}

func (p *SQLiteHistoryProjector) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS module_history (
  instance_id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  library_id TEXT NOT NULL,
  phase TEXT NOT NULL,
  title TEXT NOT NULL,
  outcome TEXT NOT NULL,
  started_at TEXT,
  ended_at TEXT NOT NULL,
  actual_seconds INTEGER NOT NULL,
  planned_seconds INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_module_history_ended_at ON module_history(ended_at);
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  closed_at TEXT NOT NULL,
  final_duration_seconds INTEGER NOT NULL,
  target_minutes INTEGER NOT NULL,
  dosage_mg INTEGER NOT NULL,
  booster_status TEXT NOT NULL,
  modules_completed INTEGER NOT NULL,
  modules_skipped INTEGER NOT NULL
);
`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create history tables: %w", err)
	}
	return nil
}

func (p *SQLiteHistoryProjector) ProjectModules(ctx context.Context, sessionID string, records []domain.ModuleHistoryRecord) error {
	const stmt = `
INSERT INTO module_history (instance_id, session_id, library_id, phase, title, outcome, started_at, ended_at, actual_seconds, planned_seconds)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(instance_id) DO UPDATE SET
  outcome=excluded.outcome,
  started_at=excluded.started_at,
  ended_at=excluded.ended_at,
  actual_seconds=excluded.actual_seconds;
`
	q := tx.Executor(ctx, p.db)
	for _, r := range records {
		_, err := q.ExecContext(ctx, stmt,
			r.InstanceID,
			sessionID,
			r.LibraryID,
			string(r.Phase),
			r.Title,
			string(r.Outcome),
			formatTime(r.StartedAt),
			r.EndedAt.Format(timeLayout),
			r.ActualDurationSeconds,
			r.PlannedDurationSeconds,
		)
		if err != nil {
			return fmt.Errorf("upsert module history %s: %w", r.InstanceID, err)
		}
	}
	return nil
}

func (p *SQLiteHistoryProjector) ProjectSession(ctx context.Context, state domain.State) error {
	const stmt = `
INSERT INTO sessions (id, started_at, closed_at, final_duration_seconds, target_minutes, dosage_mg, booster_status, modules_completed, modules_skipped)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  closed_at=excluded.closed_at,
  final_duration_seconds=excluded.final_duration_seconds,
  booster_status=excluded.booster_status,
  modules_completed=excluded.modules_completed,
  modules_skipped=excluded.modules_skipped;
`
	completed, skipped := 0, 0
	for _, r := range state.Modules.History {
		switch r.Outcome {
		case domain.ModuleCompleted:
			completed++
		case domain.ModuleSkipped:
			skipped++
		}
	}
	_, err := tx.Executor(ctx, p.db).ExecContext(ctx, stmt,
		state.Session.ID,
		state.Session.StartedAt.Format(timeLayout),
		state.Session.ClosedAt.Format(timeLayout),
		state.Session.FinalDurationSeconds,
		state.Timeline.TargetDuration,
		state.SubstanceChecklist.PlannedDosageMg,
		string(state.Booster.Status),
		completed,
		skipped,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", state.Session.ID, err)
	}
	return nil
}

func (p *SQLiteHistoryProjector) ListHistory(ctx context.Context, limit int) ([]domain.ModuleHistoryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := tx.Executor(ctx, p.db).QueryContext(ctx, `
SELECT instance_id, library_id, phase, title, outcome, started_at, ended_at, actual_seconds, planned_seconds
FROM module_history
ORDER BY ended_at DESC, rowid DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query module history: %w", err)
	}
	defer rows.Close()

	out := []domain.ModuleHistoryRecord{}
	for rows.Next() {
		var (
			r                  domain.ModuleHistoryRecord
			phase, outcome     string
			startedAt, endedAt sql.NullString
		)
		if err := rows.Scan(&r.InstanceID, &r.LibraryID, &phase, &r.Title, &outcome, &startedAt, &endedAt, &r.ActualDurationSeconds, &r.PlannedDurationSeconds); err != nil {
			return nil, fmt.Errorf("scan module history: %w", err)
		}
		r.Phase = domain.TimelinePhase(phase)
		r.Outcome = domain.ModuleStatus(outcome)
		r.StartedAt = parseTime(startedAt.String)
		r.EndedAt = parseTime(endedAt.String)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate module history: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
