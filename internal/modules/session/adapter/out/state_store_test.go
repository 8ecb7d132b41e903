package out_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	sessionadapter "companion/internal/modules/session/adapter/out"
	"companion/internal/modules/session/domain"
	sessionout "companion/internal/modules/session/port/out"
	apperrors "companion/internal/platform/errors"
	"companion/internal/platform/tx"
)

func exerciseStateStore(t *testing.T, store sessionout.StateStore) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.Load(ctx); !errors.Is(err, apperrors.ErrNoPersistedState) {
		t.Fatalf("expected no persisted state, got %v", err)
	}
	if err := store.Save(ctx, []byte(`{"version":5}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, []byte(`{"version":5,"state":{}}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != `{"version":5,"state":{}}` {
		t.Fatalf("unexpected blob: %s", got)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second clear should be a no-op: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, apperrors.ErrNoPersistedState) {
		t.Fatalf("expected cleared store, got %v", err)
	}
}

func TestFileStateStoreRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	exerciseStateStore(t, sessionadapter.NewFileStateStore(dir))
}

func TestFileStateStoreUsesStorageKey(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := sessionadapter.NewFileStateStore(dir)
	if err := store.Save(context.Background(), []byte("{}")); err != nil {
		t.Fatalf("save: %v", err)
	}
	path := filepath.Join(dir, ".companion", domain.StorageKey+".json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected blob at %s: %v", path, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should be renamed away")
	}
}

func TestSQLiteStateStoreRoundTrip(t *testing.T) {
	t.Parallel()
	db, err := sessionadapter.OpenSQLite(filepath.Join(t.TempDir(), "companion.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	store, err := sessionadapter.NewSQLiteStateStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	exerciseStateStore(t, store)
}

func TestSQLiteCommitSpansStoreAndHistory(t *testing.T) {
	t.Parallel()
	db, err := sessionadapter.OpenSQLite(filepath.Join(t.TempDir(), "companion.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	store, err := sessionadapter.NewSQLiteStateStore(db)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	history, err := sessionadapter.NewSQLiteHistoryProjector(db)
	if err != nil {
		t.Fatalf("projector: %v", err)
	}
	manager := tx.SQLManager{DB: db}
	ctx := context.Background()
	ended := time.Date(2026, 3, 1, 18, 10, 0, 0, time.UTC)
	record := domain.ModuleHistoryRecord{InstanceID: "m1", LibraryID: domain.LibraryGrounding, Phase: domain.PhaseComeUp, Title: "Grounding", Outcome: domain.ModuleCompleted, EndedAt: ended, ActualDurationSeconds: 600, PlannedDurationSeconds: 600}

	boom := errors.New("boom")
	err = manager.Within(ctx, func(ctx context.Context) error {
		if err := store.Save(ctx, []byte("{}")); err != nil {
			return err
		}
		if err := history.ProjectModules(ctx, "s1", []domain.ModuleHistoryRecord{record}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected rollback error, got %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, apperrors.ErrNoPersistedState) {
		t.Fatalf("save should roll back, got %v", err)
	}
	if rows, _ := history.ListHistory(ctx, 0); len(rows) != 0 {
		t.Fatalf("history should roll back, got %+v", rows)
	}

	err = manager.Within(ctx, func(ctx context.Context) error {
		if err := store.Save(ctx, []byte("{}")); err != nil {
			return err
		}
		return history.ProjectModules(ctx, "s1", []domain.ModuleHistoryRecord{record})
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	rows, err := history.ListHistory(ctx, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one history row, got %+v %v", rows, err)
	}
	if rows[0].Outcome != domain.ModuleCompleted || !rows[0].EndedAt.Equal(ended) || !rows[0].StartedAt.IsZero() {
		t.Fatalf("history row did not round-trip: %+v", rows[0])
	}
}

func TestSQLiteHistoryProjectorOrdersNewestFirst(t *testing.T) {
	t.Parallel()
	db, err := sessionadapter.OpenSQLite(filepath.Join(t.TempDir(), "companion.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	history, err := sessionadapter.NewSQLiteHistoryProjector(db)
	if err != nil {
		t.Fatalf("projector: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	var records []domain.ModuleHistoryRecord
	for i, id := range []string{"a", "b", "c"} {
		records = append(records, domain.ModuleHistoryRecord{
			InstanceID: id, LibraryID: "x", Phase: domain.PhasePeak, Title: id,
			Outcome: domain.ModuleSkipped, EndedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	if err := history.ProjectModules(ctx, "s1", records); err != nil {
		t.Fatalf("project: %v", err)
	}
	rows, err := history.ListHistory(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].InstanceID != "c" || rows[1].InstanceID != "b" {
		t.Fatalf("expected newest first with limit, got %+v", rows)
	}

	state := domain.NewState()
	state.Session.ID = "s1"
	state.Session.StartedAt = base
	state.Session.ClosedAt = base.Add(4 * time.Hour)
	state.Modules.History = records
	if err := history.ProjectSession(ctx, state); err != nil {
		t.Fatalf("project session: %v", err)
	}
	var skipped int
	if err := db.QueryRowContext(ctx, `SELECT modules_skipped FROM sessions WHERE id = ?`, "s1").Scan(&skipped); err != nil {
		t.Fatalf("query session: %v", err)
	}
	if skipped != 3 {
		t.Fatalf("expected 3 skipped modules, got %d", skipped)
	}
}
