package domain

import (
	"errors"
	"testing"
)

func TestClassifyDosage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mg   int
		want DosageFeedback
	}{
		{mg: 0, want: DosageUnset},
		{mg: 74, want: DosageLight},
		{mg: 75, want: DosageModerate},
		{mg: 125, want: DosageModerate},
		{mg: 126, want: DosageStrong},
		{mg: 150, want: DosageStrong},
		{mg: 151, want: DosageHeavy},
		{mg: 299, want: DosageHeavy},
		{mg: 300, want: DosageDangerous},
	}
	for _, tc := range tests {
		if got := ClassifyDosage(tc.mg); got != tc.want {
			t.Fatalf("%dmg: expected %q got %q", tc.mg, tc.want, got)
		}
	}
}

func checklistHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t)
	h.do(t0, StartIntake{})
	h.do(t0, CompleteIntake{})
	h.do(t0, StartSubstanceChecklist{})
	return h
}

func TestDangerousDoseBlocksStart(t *testing.T) {
	t.Parallel()
	h := checklistHarness(t)
	h.do(t0, UpdateSubstanceChecklist{PlannedDosageMg: intPtr(320)})
	if res := h.try(t0, StartSession{}); !errors.Is(res.Err, ErrDangerousDose) {
		t.Fatalf("expected dangerous dose block, got %v", res.Err)
	}
	if res := h.try(t0, AcknowledgeHeavyDose{}); res.Applied {
		t.Fatalf("dangerous dose cannot be acknowledged")
	}
	if h.state.SessionPhase != SessionSubstanceChecklist {
		t.Fatalf("session must not start")
	}
}

func TestHeavyDoseNeedsAcknowledgement(t *testing.T) {
	t.Parallel()
	h := checklistHarness(t)
	h.do(t0, UpdateSubstanceChecklist{PlannedDosageMg: intPtr(200), TestedSubstance: boolPtr(true)})
	if res := h.try(t0, StartSession{}); !errors.Is(res.Err, ErrHeavyDoseUnacknowledged) {
		t.Fatalf("expected acknowledgement required, got %v", res.Err)
	}
	h.do(t0, AcknowledgeHeavyDose{})
	h.do(t0, UpdateSubstanceChecklist{PlannedDosageMg: intPtr(220)})
	if h.state.SubstanceChecklist.HeavyDoseAcknowledged {
		t.Fatalf("changing the dose should clear the acknowledgement")
	}
	h.do(t0, AcknowledgeHeavyDose{})
	h.do(t0, StartSession{})
	if h.state.SessionPhase != SessionActive || !h.state.SubstanceChecklist.TestedSubstance {
		t.Fatalf("expected active session")
	}
}
