package domain

import (
	"encoding/json"
	"testing"
)

const v1Blob = `{
  "version": 1,
  "state": {
    "sessionPhase": "active",
    "intake": {"sessionDuration": "4h", "activityPreferences": ["music"], "considerBooster": true},
    "timeline": {"targetDuration": 240, "currentPhase": "come-up", "phases": {"comeUp": {"allocatedDuration": 45}}},
    "modules": {
      "items": [
        {"instanceId": "a", "libraryId": "grounding", "phase": "come-up", "title": "Grounding", "duration": 10, "status": "active", "order": 0},
        {"instanceId": "b", "libraryId": "heart-awareness", "phase": "peak", "title": "Heart", "duration": 20, "status": "upcoming", "order": 0}
      ],
      "currentModuleInstanceId": "a"
    },
    "substanceChecklist": {"plannedDosageMg": 100, "dosageFeedback": "moderate"}
  }
}`

const v4Blob = `{
  "version": 4,
  "state": {
    "sessionPhase": "pre-session",
    "booster": {"considerBooster": true, "status": "pending"},
    "preSubstanceActivity": {"intentionNote": "kept"},
    "transitionCaptures": {"comeUpToPeak": {"responses": {"k": "v"}}},
    "modules": {
      "items": [
        {"instanceId": "h", "libraryId": "heart-awareness", "phase": "peak", "status": "upcoming", "order": 0},
        {"instanceId": "x", "libraryId": "booster-consideration", "phase": "peak", "status": "upcoming", "order": 1, "isBoosterModule": true},
        {"instanceId": "o", "libraryId": "open-space", "phase": "peak", "status": "upcoming", "order": 2}
      ]
    }
  }
}`

func TestDecodeMigratesVersionOne(t *testing.T) {
	t.Parallel()
	got, err := Decode([]byte(v1Blob))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Outcome != RestoreMigrated || got.FromVersion != 1 {
		t.Fatalf("expected migration from v1, got %s/%d", got.Outcome, got.FromVersion)
	}
	s := got.State
	if s.Booster.Status != BoosterPending || !s.Booster.ConsiderBooster {
		t.Fatalf("expected booster seeded from intake, got %+v", s.Booster)
	}
	if s.PreSubstanceActivity != DefaultPreSubstanceActivity() {
		t.Fatalf("expected default pre-substance activity, got %+v", s.PreSubstanceActivity)
	}
	if s.TransitionCaptures.ComeUpToPeak.Responses == nil || len(s.TransitionCaptures.Closing.Responses) != 0 {
		t.Fatalf("expected empty capture sets, got %+v", s.TransitionCaptures)
	}
	if s.FollowUp.CheckIn.Status != FollowUpLocked || s.Journal.Entries == nil {
		t.Fatalf("expected defaults filled: %+v", s.FollowUp)
	}
	if s.Modules.CurrentModuleInstanceID != "a" || len(s.Modules.Items) != 2 || s.SessionPhase != SessionActive {
		t.Fatalf("existing data should survive: %+v", s.Modules)
	}
}

func TestDecodeExtractsLegacyBoosterModule(t *testing.T) {
	t.Parallel()
	got, err := Decode([]byte(v4Blob))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s := got.State
	ind := s.Modules.BoosterIndicator
	if ind == nil || ind.InstanceID != "x" || ind.Order != 1 || ind.Phase != PhasePeak {
		t.Fatalf("expected booster indicator from legacy item, got %+v", ind)
	}
	for _, m := range s.Modules.Items {
		if m.InstanceID == "x" {
			t.Fatalf("legacy booster item should leave the module list")
		}
	}
	if s.PreSubstanceActivity.IntentionNote != "kept" || s.TransitionCaptures.ComeUpToPeak.Responses["k"] != "v" {
		t.Fatalf("existing substates must not be overwritten")
	}
	assertDense(t, s, PhasePeak)
}

func TestDecodeResetsUnknownVersions(t *testing.T) {
	t.Parallel()
	for _, blob := range []string{
		`{"version": 0, "state": {"sessionPhase": "active"}}`,
		`{"version": 99, "state": {"sessionPhase": "active"}}`,
		`not json`,
	} {
		got, err := Decode([]byte(blob))
		if err != nil {
			t.Fatalf("decode %q: %v", blob, err)
		}
		if got.Outcome != RestoreReset || got.State.SessionPhase != SessionNotStarted || got.Reason == "" {
			t.Fatalf("expected reset for %q, got %+v", blob, got)
		}
	}
}

func TestDecodeResetsUndecodableState(t *testing.T) {
	t.Parallel()
	for _, blob := range []string{
		`{"version": 5, "state": {"modules": {"items": "oops"}}}`,
		`{"version": 4, "state": {"journal": "oops"}}`,
	} {
		got, err := Decode([]byte(blob))
		if err != nil {
			t.Fatalf("decode %q: %v", blob, err)
		}
		if got.Outcome != RestoreReset || got.State.SessionPhase != SessionNotStarted || got.Reason == "" {
			t.Fatalf("expected reset for %q, got %+v", blob, got)
		}
	}
}

func TestDecodeEmptyIsFresh(t *testing.T) {
	t.Parallel()
	got, err := Decode(nil)
	if err != nil || got.Outcome != RestoreFresh {
		t.Fatalf("expected fresh state, got %+v %v", got, err)
	}
}

func TestEncodeDecodeCurrentVersion(t *testing.T) {
	t.Parallel()
	h := startedSession(t, []string{PrefMusic}, true)
	h.do(at(40), RecordCheckInResponse{Response: ComeUpFullyArrived})
	raw, err := Encode(h.state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Version != SchemaVersion {
		t.Fatalf("expected version %d envelope, got %d %v", SchemaVersion, env.Version, err)
	}
	got, err := Decode(raw)
	if err != nil || got.Outcome != RestoreLoaded {
		t.Fatalf("expected loaded state, got %+v %v", got.Outcome, err)
	}
	s := got.State
	if s.Modules.BoosterIndicator == nil || s.Modules.CurrentModuleInstanceID != h.state.Modules.CurrentModuleInstanceID {
		t.Fatalf("modules did not survive: %+v", s.Modules)
	}
	if !s.SubstanceChecklist.IngestionTime.Equal(t0) || !s.ComeUpCheckIn.HasIndicatedFullyArrived {
		t.Fatalf("timestamps or check-in lost")
	}
}
