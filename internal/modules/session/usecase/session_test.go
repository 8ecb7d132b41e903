package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	sessionadapter "companion/internal/modules/session/adapter/out"
	"companion/internal/modules/session/domain"
	sessiondto "companion/internal/modules/session/dto"
	sessionin "companion/internal/modules/session/port/in"
	"companion/internal/modules/session/service"
	"companion/internal/modules/session/usecase"
	apperrors "companion/internal/platform/errors"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) at(d time.Duration) { f.now = t0.Add(d) }

type fakeID struct{}

func (fakeID) New() string { return "sess-1" }

func newInteractor(t *testing.T, dir string, clk *fakeClock) (sessionin.Usecase, *service.SessionService) {
	t.Helper()
	catalog, err := sessionadapter.NewStaticCatalog("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	svc := service.NewSessionService(service.Dependencies{
		Clock:     clk,
		IDs:       fakeID{},
		Catalog:   catalog,
		Store:     sessionadapter.NewFileStateStore(dir),
		Precacher: sessionadapter.NoopAudioPrecacher{},
		Exporter:  sessionadapter.NewMarkdownSessionExporter(filepath.Join(dir, "sessions")),
	})
	t.Cleanup(svc.Close)
	return usecase.NewInteractor(svc, catalog), svc
}

func must(t *testing.T) func(sessiondto.StatusOutput, error) sessiondto.StatusOutput {
	return func(out sessiondto.StatusOutput, err error) sessiondto.StatusOutput {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return out
	}
}

func ptr[T any](v T) *T { return &v }

func TestSessionLifecycleThroughFollowUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	clk := &fakeClock{now: t0}
	uc, _ := newInteractor(t, dir, clk)

	loaded, err := uc.Load(ctx)
	if err != nil || loaded.Outcome != string(domain.RestoreFresh) {
		t.Fatalf("expected fresh load, got %+v %v", loaded, err)
	}
	must(t)(uc.StartIntake(ctx))
	must(t)(uc.UpdateIntake(ctx, sessiondto.IntakeInput{
		SessionDuration:     ptr("4h"),
		ActivityPreferences: []string{"Music "},
		ConsiderBooster:     ptr(true),
		Intention:           ptr("Listen"),
	}))
	status := must(t)(uc.CompleteIntake(ctx))
	if status.SessionPhase != string(domain.SessionPreSession) || status.TargetMinutes != 240 {
		t.Fatalf("unexpected status after intake: %+v", status)
	}
	var sawIndicator bool
	for _, m := range status.Timeline {
		sawIndicator = sawIndicator || m.IsBooster
	}
	if !sawIndicator {
		t.Fatalf("expected booster indicator on the timeline")
	}

	must(t)(uc.StartChecklist(ctx))
	must(t)(uc.UpdateChecklist(ctx, sessiondto.ChecklistInput{PlannedDosageMg: ptr(320)}))
	if _, err := uc.StartSession(ctx); !errors.Is(err, apperrors.ErrActionRejected) || !errors.Is(err, domain.ErrDangerousDose) {
		t.Fatalf("expected dangerous dose rejection, got %v", err)
	}
	must(t)(uc.UpdateChecklist(ctx, sessiondto.ChecklistInput{PlannedDosageMg: ptr(100)}))
	status = must(t)(uc.StartSession(ctx))
	if status.SessionPhase != string(domain.SessionActive) || status.CurrentModule == nil || status.CurrentModule.LibraryID != domain.LibraryGrounding {
		t.Fatalf("expected grounding running, got %+v", status.CurrentModule)
	}

	if _, err := uc.RespondCheckIn(ctx, "maybe"); !errors.Is(err, domain.ErrInvalidResponse) {
		t.Fatalf("expected invalid response, got %v", err)
	}
	clk.at(40 * time.Minute)
	status = must(t)(uc.RespondCheckIn(ctx, string(domain.ComeUpFullyArrived)))
	if !status.ComeUpCheckIn.FullyArrived {
		t.Fatalf("expected fully arrived")
	}
	clk.at(70 * time.Minute)
	booster, err := uc.Booster(ctx)
	if err != nil || !booster.ShouldShow || booster.DoseMg != 50 {
		t.Fatalf("expected booster due at arrival+30 with 50mg, got %+v %v", booster, err)
	}

	must(t)(uc.BeginTransition(ctx, "peak"))
	must(t)(uc.CaptureTransition(ctx, sessiondto.CaptureInput{Key: "feeling", Value: "open"}))
	status = must(t)(uc.CompleteTransition(ctx))
	if status.CurrentPhase != string(domain.PhasePeak) {
		t.Fatalf("expected peak, got %s", status.CurrentPhase)
	}
	if _, err := uc.AddModule(ctx, sessiondto.AddModuleInput{LibraryID: "nope"}); !errors.Is(err, domain.ErrUnknownLibraryModule) {
		t.Fatalf("expected unknown library module, got %v", err)
	}

	clk.at(240 * time.Minute)
	status = must(t)(uc.CompleteSession(ctx))
	if status.SessionPhase != string(domain.SessionCompleted) || status.FinalDurationSeconds != 240*60 {
		t.Fatalf("unexpected completion: %+v", status)
	}
	if _, err := uc.StartFollowUp(ctx, "checkIn"); !errors.Is(err, domain.ErrFollowUpLocked) {
		t.Fatalf("follow-up should be locked, got %v", err)
	}

	clk.at(240*time.Minute + 24*time.Hour)
	views, err := uc.CheckFollowUps(ctx)
	if err != nil {
		t.Fatalf("check follow-ups: %v", err)
	}
	if views[0].Status != string(domain.FollowUpAvailable) || views[2].Status != string(domain.FollowUpLocked) || views[2].Remaining != 24*time.Hour {
		t.Fatalf("unexpected follow-up views: %+v", views)
	}
	must(t)(uc.StartFollowUp(ctx, "checkIn"))
	must(t)(uc.CompleteFollowUp(ctx, "checkIn", map[string]string{"mood": "calm"}))

	matches, _ := filepath.Glob(filepath.Join(dir, "sessions", "2026", "03", "*.md"))
	if len(matches) != 1 {
		t.Fatalf("expected one exported note, got %v", matches)
	}
	raw, _ := os.ReadFile(matches[0])
	if len(raw) == 0 {
		t.Fatalf("exported note is empty")
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	clk := &fakeClock{now: t0}
	uc, _ := newInteractor(t, dir, clk)
	must(t)(uc.StartIntake(ctx))
	must(t)(uc.CompleteIntake(ctx))

	reopened, _ := newInteractor(t, dir, clk)
	loaded, err := reopened.Load(ctx)
	if err != nil || loaded.Outcome != string(domain.RestoreLoaded) {
		t.Fatalf("expected loaded state, got %+v %v", loaded, err)
	}
	status, err := reopened.Status(ctx)
	if err != nil || status.SessionPhase != string(domain.SessionPreSession) || len(status.Timeline) == 0 {
		t.Fatalf("state did not survive restart: %+v %v", status, err)
	}
}

func TestInputValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, _ := newInteractor(t, t.TempDir(), &fakeClock{now: t0})
	cases := []func() error{
		func() error { _, err := uc.AddModule(ctx, sessiondto.AddModuleInput{}); return err },
		func() error {
			_, err := uc.AddModule(ctx, sessiondto.AddModuleInput{LibraryID: "grounding", Phase: "dusk"})
			return err
		},
		func() error { _, err := uc.DismissCheckIn(ctx, "come-up", ""); return err },
		func() error { _, err := uc.BeginTransition(ctx, "sunrise"); return err },
		func() error { _, err := uc.StartFollowUp(ctx, "later"); return err },
		func() error { _, err := uc.AddJournalEntry(ctx, "", "  "); return err },
		func() error {
			_, err := uc.UpdateChecklist(ctx, sessiondto.ChecklistInput{PlannedDosageMg: ptr(-1)})
			return err
		},
	}
	for i, run := range cases {
		if err := run(); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestNoopCommandsReportUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, _ := newInteractor(t, t.TempDir(), &fakeClock{now: t0})
	status, err := uc.PauseSession(ctx)
	if err != nil || status.Changed {
		t.Fatalf("pausing an idle companion should be an unchanged no-op, got %+v %v", status, err)
	}
	items, err := uc.Catalog(ctx)
	if err != nil || len(items) == 0 {
		t.Fatalf("expected catalog items, got %v", err)
	}
}
