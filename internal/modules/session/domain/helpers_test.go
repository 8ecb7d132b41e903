package domain

import (
	"fmt"
	"testing"
	"time"
)

type seqIDs struct {
	n int
}

func (s *seqIDs) New() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type mapCatalog map[string]CatalogEntry

func (c mapCatalog) Lookup(libraryID string) (CatalogEntry, bool) {
	entry, ok := c[libraryID]
	return entry, ok
}

func testCatalog() mapCatalog {
	entries := []CatalogEntry{
		{LibraryID: LibraryGrounding, Title: "Grounding", DefaultDuration: 10},
		{LibraryID: LibraryBreathMeditation, Title: "Breath", DefaultDuration: 15},
		{LibraryID: LibraryMusicListening, Title: "Music listening", DefaultDuration: 20},
		{LibraryID: LibraryOpenAwareness, Title: "Open awareness", DefaultDuration: 20},
		{LibraryID: LibraryHeartAwareness, Title: "Heart awareness", DefaultDuration: 20},
		{LibraryID: LibraryDeepMeditation, Title: "Deep meditation", DefaultDuration: 30},
		{LibraryID: LibraryMusicJourney, Title: "Music journey", DefaultDuration: 40},
		{LibraryID: LibraryOpenSpace, Title: "Open space", DefaultDuration: 30},
		{LibraryID: LibraryJournalingReflection, Title: "Journaling", DefaultDuration: 20},
		{LibraryID: LibraryIntegrationMeditation, Title: "Integration meditation", DefaultDuration: 20},
		{LibraryID: LibraryClosingRitual, Title: "Closing ritual", DefaultDuration: 15},
		{LibraryID: LibraryBooster, Title: "Booster consideration", IsBoosterModule: true},
		{LibraryID: "body-scan", Title: "Body scan", DefaultDuration: 15, Phases: []TimelinePhase{PhasePeak}},
	}
	out := mapCatalog{}
	for _, e := range entries {
		out[e.LibraryID] = e
	}
	return out
}

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func at(minutes float64) time.Time {
	return t0.Add(time.Duration(minutes * float64(time.Minute)))
}

type harness struct {
	t     *testing.T
	ids   *seqIDs
	cat   mapCatalog
	state State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{t: t, ids: &seqIDs{}, cat: testCatalog(), state: NewState()}
}

func (h *harness) env(now time.Time) Env {
	return Env{Now: now, IDs: h.ids, Catalog: h.cat}
}

// do dispatches and fails the test on a rejected action.
func (h *harness) do(now time.Time, a Action) Result {
	h.t.Helper()
	next, res := Dispatch(h.state, a, h.env(now))
	if res.Err != nil {
		h.t.Fatalf("%s rejected: %v", a.Name(), res.Err)
	}
	h.state = next
	return res
}

func (h *harness) try(now time.Time, a Action) Result {
	h.t.Helper()
	next, res := Dispatch(h.state, a, h.env(now))
	h.state = next
	return res
}

func (h *harness) tick(now time.Time) []Effect {
	h.t.Helper()
	next, effects, _ := EvaluateTimeGates(h.state, now)
	h.state = next
	return effects
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

// startedSession walks intake and checklist and starts at t0 with ingestion
// at t0.
func startedSession(t *testing.T, prefs []string, booster bool) *harness {
	t.Helper()
	h := newHarness(t)
	h.do(t0, StartIntake{})
	h.do(t0, UpdateIntake{
		SessionDuration:     strPtr("4h"),
		ActivityPreferences: prefs,
		ConsiderBooster:     boolPtr(booster),
	})
	h.do(t0, CompleteIntake{})
	h.do(t0, StartSubstanceChecklist{})
	h.do(t0, UpdateSubstanceChecklist{PlannedDosageMg: intPtr(100)})
	h.do(t0, StartSession{})
	return h
}

func assertDense(t *testing.T, s State, phase TimelinePhase) {
	t.Helper()
	entries := s.PhaseEntries(phase)
	seen := make([]bool, len(entries))
	for _, e := range entries {
		if e.Order < 0 || e.Order >= len(entries) || seen[e.Order] {
			t.Fatalf("phase %s order not dense: %+v", phase, entries)
		}
		seen[e.Order] = true
	}
}

func libraryIDs(mods []ModuleInstance) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.LibraryID)
	}
	return out
}
