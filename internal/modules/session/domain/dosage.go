package domain

import (
	"fmt"
	"time"
)

// Dosage thresholds in milligrams.
const (
	ModerateDoseMg  = 75
	StrongDoseMg    = 126
	HeavyDoseMg     = 151
	DangerousDoseMg = 300
)

func ClassifyDosage(mg int) DosageFeedback {
	switch {
	case mg <= 0:
		return DosageUnset
	case mg < ModerateDoseMg:
		return DosageLight
	case mg < StrongDoseMg:
		return DosageModerate
	case mg < HeavyDoseMg:
		return DosageStrong
	case mg < DangerousDoseMg:
		return DosageHeavy
	default:
		return DosageDangerous
	}
}

// CanStartSession reports why the checklist blocks startSession, if it does.
func CanStartSession(c SubstanceChecklist) error {
	switch ClassifyDosage(c.PlannedDosageMg) {
	case DosageUnset:
		return ErrDosageRequired
	case DosageDangerous:
		return fmt.Errorf("%w: %dmg", ErrDangerousDose, c.PlannedDosageMg)
	case DosageHeavy:
		if !c.HeavyDoseAcknowledged {
			return ErrHeavyDoseUnacknowledged
		}
	}
	return nil
}

type StartSubstanceChecklist struct{}

func (StartSubstanceChecklist) Name() string { return "startSubstanceChecklist" }

func (StartSubstanceChecklist) apply(s *State, _ Env) Result {
	if s.SessionPhase != SessionPreSession {
		return rejected(fmt.Errorf("%w: %s", ErrWrongSessionPhase, s.SessionPhase))
	}
	s.SessionPhase = SessionSubstanceChecklist
	return applied()
}

// UpdateSubstanceChecklist changes the non-nil fields. A new dosage clears any
// earlier heavy-dose acknowledgement.
type UpdateSubstanceChecklist struct {
	PlannedDosageMg     *int
	TestedSubstance     *bool
	PreparedSpace       *bool
	HydrationReady      *bool
	SupportContactReady *bool
}

func (UpdateSubstanceChecklist) Name() string { return "updateSubstanceChecklist" }

func (a UpdateSubstanceChecklist) apply(s *State, _ Env) Result {
	c := &s.SubstanceChecklist
	if a.PlannedDosageMg != nil {
		if *a.PlannedDosageMg < 0 {
			return rejected(fmt.Errorf("%w: negative dosage", ErrInvalidResponse))
		}
		if *a.PlannedDosageMg != c.PlannedDosageMg {
			c.HeavyDoseAcknowledged = false
		}
		c.PlannedDosageMg = *a.PlannedDosageMg
		c.DosageFeedback = ClassifyDosage(c.PlannedDosageMg)
	}
	setBool(&c.TestedSubstance, a.TestedSubstance)
	setBool(&c.PreparedSpace, a.PreparedSpace)
	setBool(&c.HydrationReady, a.HydrationReady)
	setBool(&c.SupportContactReady, a.SupportContactReady)
	return applied()
}

type AcknowledgeHeavyDose struct{}

func (AcknowledgeHeavyDose) Name() string { return "acknowledgeHeavyDose" }

func (AcknowledgeHeavyDose) apply(s *State, _ Env) Result {
	if s.SubstanceChecklist.DosageFeedback != DosageHeavy {
		return noop()
	}
	s.SubstanceChecklist.HeavyDoseAcknowledged = true
	return applied()
}

// RecordIngestionTime stamps ingestion at At, or now when At is zero.
type RecordIngestionTime struct {
	At time.Time
}

func (RecordIngestionTime) Name() string { return "recordIngestionTime" }

func (a RecordIngestionTime) apply(s *State, env Env) Result {
	at := a.At
	if at.IsZero() {
		at = env.Now
	}
	s.SubstanceChecklist.IngestionTime = at
	return applied()
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
