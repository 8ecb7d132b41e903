package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"companion/internal/modules/session/domain"
	"companion/internal/modules/session/service"
	apperrors "companion/internal/platform/errors"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) set(minutes int) { f.now = t0.Add(time.Duration(minutes) * time.Minute) }

type fakeIDs struct{ n int }

func (f *fakeIDs) New() string {
	f.n++
	return fmt.Sprintf("id-%d", f.n)
}

type fakeCatalog map[string]domain.CatalogEntry

func (c fakeCatalog) Lookup(libraryID string) (domain.CatalogEntry, bool) {
	e, ok := c[libraryID]
	return e, ok
}

func (c fakeCatalog) List() []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, 0, len(c))
	for _, e := range c {
		out = append(out, e)
	}
	return out
}

func newCatalog() fakeCatalog {
	c := fakeCatalog{}
	for _, e := range []domain.CatalogEntry{
		{LibraryID: domain.LibraryGrounding, Title: "Grounding", DefaultDuration: 10},
		{LibraryID: domain.LibraryBreathMeditation, Title: "Breath", DefaultDuration: 15},
		{LibraryID: domain.LibraryMusicListening, Title: "Music listening", DefaultDuration: 20},
		{LibraryID: domain.LibraryOpenAwareness, Title: "Open awareness", DefaultDuration: 20},
		{LibraryID: domain.LibraryHeartAwareness, Title: "Heart awareness", DefaultDuration: 20},
		{LibraryID: domain.LibraryDeepMeditation, Title: "Deep meditation", DefaultDuration: 30},
		{LibraryID: domain.LibraryMusicJourney, Title: "Music journey", DefaultDuration: 40},
		{LibraryID: domain.LibraryOpenSpace, Title: "Open space", DefaultDuration: 30},
		{LibraryID: domain.LibraryJournalingReflection, Title: "Journaling", DefaultDuration: 20},
		{LibraryID: domain.LibraryIntegrationMeditation, Title: "Integration meditation", DefaultDuration: 20},
		{LibraryID: domain.LibraryClosingRitual, Title: "Closing ritual", DefaultDuration: 15},
		{LibraryID: domain.LibraryBooster, Title: "Booster consideration", IsBoosterModule: true},
	} {
		c[e.LibraryID] = e
	}
	return c
}

type memStore struct {
	blob    []byte
	saves   int
	clears  int
	failErr error
}

func (m *memStore) Load(context.Context) ([]byte, error) {
	if m.blob == nil {
		return nil, apperrors.ErrNoPersistedState
	}
	return m.blob, nil
}

func (m *memStore) Save(_ context.Context, blob []byte) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.blob = append([]byte(nil), blob...)
	m.saves++
	return nil
}

func (m *memStore) Clear(context.Context) error {
	m.blob = nil
	m.clears++
	return nil
}

type fakeHistory struct {
	records  []domain.ModuleHistoryRecord
	sessions []string
}

func (f *fakeHistory) ProjectModules(_ context.Context, _ string, records []domain.ModuleHistoryRecord) error {
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeHistory) ProjectSession(_ context.Context, state domain.State) error {
	f.sessions = append(f.sessions, state.Session.ID)
	return nil
}

func (f *fakeHistory) ListHistory(_ context.Context, limit int) ([]domain.ModuleHistoryRecord, error) {
	if limit > 0 && limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

type fakePrecacher struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakePrecacher) Precache(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ids)
	return nil
}

type fakeShell struct {
	tabs      []string
	permitted bool
	notes     []string
}

func (f *fakeShell) SetCurrentTab(_ context.Context, tab string) { f.tabs = append(f.tabs, tab) }
func (f *fakeShell) NotificationsPermitted() bool                { return f.permitted }
func (f *fakeShell) Notify(_ context.Context, title, _ string) error {
	f.notes = append(f.notes, title)
	return nil
}

type fakeExporter struct {
	exported []domain.State
}

func (f *fakeExporter) ExportSession(_ context.Context, state domain.State) (string, error) {
	f.exported = append(f.exported, state)
	return "/tmp/session.md", nil
}

type fixture struct {
	clock     *fakeClock
	store     *memStore
	history   *fakeHistory
	precacher *fakePrecacher
	shell     *fakeShell
	exporter  *fakeExporter
	svc       *service.SessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:     &fakeClock{now: t0},
		store:     &memStore{},
		history:   &fakeHistory{},
		precacher: &fakePrecacher{},
		shell:     &fakeShell{permitted: true},
		exporter:  &fakeExporter{},
	}
	f.svc = service.NewSessionService(service.Dependencies{
		Clock:     f.clock,
		IDs:       &fakeIDs{},
		Catalog:   newCatalog(),
		Store:     f.store,
		History:   f.history,
		Precacher: f.precacher,
		Shell:     f.shell,
		Exporter:  f.exporter,
	})
	return f
}

func (f *fixture) do(t *testing.T, a domain.Action) domain.State {
	t.Helper()
	state, res, err := f.svc.Dispatch(context.Background(), a)
	if err != nil {
		t.Fatalf("%s: %v", a.Name(), err)
	}
	if res.Err != nil {
		t.Fatalf("%s rejected: %v", a.Name(), res.Err)
	}
	return state
}

func (f *fixture) start(t *testing.T, booster bool) domain.State {
	t.Helper()
	dur := "4h"
	dose := 100
	f.do(t, domain.StartIntake{})
	f.do(t, domain.UpdateIntake{SessionDuration: &dur, ConsiderBooster: &booster})
	f.do(t, domain.CompleteIntake{})
	f.do(t, domain.StartSubstanceChecklist{})
	f.do(t, domain.UpdateSubstanceChecklist{PlannedDosageMg: &dose})
	return f.do(t, domain.StartSession{})
}

func TestDispatchPersistsAndRunsEffects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	state := f.start(t, false)
	f.svc.Close()

	if state.SessionPhase != domain.SessionActive {
		t.Fatalf("expected active session, got %s", state.SessionPhase)
	}
	var env domain.Envelope
	if err := json.Unmarshal(f.store.blob, &env); err != nil || env.Version != domain.SchemaVersion {
		t.Fatalf("expected versioned blob, got %d %v", env.Version, err)
	}
	if len(f.precacher.calls) == 0 || len(f.precacher.calls[0]) == 0 {
		t.Fatalf("expected timeline precache, got %+v", f.precacher.calls)
	}
	if len(f.shell.tabs) == 0 || f.shell.tabs[len(f.shell.tabs)-1] != domain.TabSession {
		t.Fatalf("expected switch to session tab, got %v", f.shell.tabs)
	}
}

func TestRejectedActionDoesNotPersist(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if _, err := f.svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	_, res, err := f.svc.Dispatch(context.Background(), domain.StartSession{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !errors.Is(res.Err, domain.ErrWrongSessionPhase) {
		t.Fatalf("expected wrong phase, got %v", res.Err)
	}
	if f.store.saves != 0 {
		t.Fatalf("rejected action must not save, saves=%d", f.store.saves)
	}
}

func TestSaveFailureKeepsPreviousState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.do(t, domain.StartIntake{})
	f.store.failErr = errors.New("disk full")
	if _, _, err := f.svc.Dispatch(context.Background(), domain.CompleteIntake{}); err == nil {
		t.Fatalf("expected save error")
	}
	snap, err := f.svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.SessionPhase != domain.SessionIntake {
		t.Fatalf("state must not advance on failed save, got %s", snap.SessionPhase)
	}
}

func TestHistoryAndCompletionProjected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	state := f.start(t, false)
	f.clock.set(10)
	f.do(t, domain.CompleteModule{InstanceID: state.Modules.CurrentModuleInstanceID})
	if len(f.history.records) != 1 || f.history.records[0].Outcome != domain.ModuleCompleted {
		t.Fatalf("expected one projected record, got %+v", f.history.records)
	}
	f.clock.set(200)
	final := f.do(t, domain.CompleteSession{})
	f.svc.Close()
	if len(f.history.sessions) != 1 || f.history.sessions[0] != final.Session.ID {
		t.Fatalf("expected completed session projected, got %v", f.history.sessions)
	}
	if len(f.exporter.exported) != 1 {
		t.Fatalf("expected export on completion")
	}
	if f.shell.tabs[len(f.shell.tabs)-1] != domain.TabHome {
		t.Fatalf("expected home tab after completion, got %v", f.shell.tabs)
	}
	got, err := f.svc.History(context.Background(), 10)
	if err != nil || len(got) == 0 {
		t.Fatalf("expected history, got %v %v", got, err)
	}
}

func TestTickPromptsBoosterAndNotifies(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.start(t, true)
	f.clock.set(60)
	if changed, err := f.svc.Tick(context.Background()); err != nil || changed {
		t.Fatalf("nothing due at 60 minutes, got %v %v", changed, err)
	}
	f.clock.set(90)
	changed, err := f.svc.Tick(context.Background())
	if err != nil || !changed {
		t.Fatalf("expected booster prompt, got %v %v", changed, err)
	}
	snap, _ := f.svc.Snapshot(context.Background())
	if snap.Booster.Status != domain.BoosterPrompted || !snap.Booster.IsModalVisible {
		t.Fatalf("expected prompted booster, got %+v", snap.Booster)
	}
	if len(f.shell.notes) != 1 {
		t.Fatalf("expected one notification, got %v", f.shell.notes)
	}
}

func TestTickSkipsNotificationWhenNotPermitted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.shell.permitted = false
	f.start(t, true)
	f.clock.set(90)
	if _, err := f.svc.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(f.shell.notes) != 0 {
		t.Fatalf("notifications disabled, got %v", f.shell.notes)
	}
}

func TestLoadMigratesAndRewritesBlob(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.blob = []byte(`{"version": 2, "state": {"sessionPhase": "pre-session", "intake": {"considerBooster": true}, "booster": {"considerBooster": true, "status": "pending"}}}`)
	restored, err := f.svc.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.Outcome != domain.RestoreMigrated || restored.FromVersion != 2 {
		t.Fatalf("expected migration from v2, got %+v", restored)
	}
	var env domain.Envelope
	if err := json.Unmarshal(f.store.blob, &env); err != nil || env.Version != domain.SchemaVersion {
		t.Fatalf("migrated blob should be rewritten at current version")
	}
}

func TestLoadResetsCorruptBlob(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.blob = []byte(`{"version": 42}`)
	restored, err := f.svc.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.Outcome != domain.RestoreReset || restored.State.SessionPhase != domain.SessionNotStarted {
		t.Fatalf("expected reset, got %+v", restored)
	}
	if f.store.saves != 1 {
		t.Fatalf("reset state should be persisted once, saves=%d", f.store.saves)
	}
}

func TestLoadRecoversFromUndecodableCurrentState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.store.blob = []byte(`{"version": 5, "state": {"modules": {"items": "oops"}}}`)
	restored, err := f.svc.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.Outcome != domain.RestoreReset || f.store.clears != 1 || f.store.saves != 1 {
		t.Fatalf("expected cleared and reset blob, got %+v clears=%d saves=%d", restored, f.store.clears, f.store.saves)
	}
	if _, _, err := f.svc.Dispatch(context.Background(), domain.ResetSession{}); err != nil {
		t.Fatalf("reset after recovery: %v", err)
	}
	if _, _, err := f.svc.Dispatch(context.Background(), domain.StartIntake{}); err != nil {
		t.Fatalf("start intake after recovery: %v", err)
	}
}
