package domain

import (
	"time"

	"companion/internal/platform/clock"
)

// TimelineEntry is one row of a phase as displayed: a module or the booster
// indicator.
type TimelineEntry struct {
	InstanceID         string
	LibraryID          string
	Phase              TimelinePhase
	Title              string
	Duration           int
	Status             ModuleStatus
	Order              int
	IsBoosterIndicator bool
}

func (s State) CurrentModule() (ModuleInstance, bool) {
	if s.Modules.CurrentModuleInstanceID == "" {
		return ModuleInstance{}, false
	}
	i := s.Modules.find(s.Modules.CurrentModuleInstanceID)
	if i < 0 {
		return ModuleInstance{}, false
	}
	return s.Modules.Items[i], true
}

// PhaseModules returns the runnable modules of phase sorted by order.
func (s State) PhaseModules(phase TimelinePhase) []ModuleInstance {
	out := []ModuleInstance{}
	for _, sl := range s.Modules.slots(phase) {
		if sl.index >= 0 {
			out = append(out, s.Modules.Items[sl.index])
		}
	}
	return out
}

// PhaseEntries merges modules and the booster indicator in order.
func (s State) PhaseEntries(phase TimelinePhase) []TimelineEntry {
	out := []TimelineEntry{}
	for _, sl := range s.Modules.slots(phase) {
		if sl.index < 0 {
			ind := s.Modules.BoosterIndicator
			out = append(out, TimelineEntry{
				InstanceID:         ind.InstanceID,
				LibraryID:          ind.LibraryID,
				Phase:              ind.Phase,
				Title:              ind.Title,
				Order:              ind.Order,
				IsBoosterIndicator: true,
			})
			continue
		}
		m := s.Modules.Items[sl.index]
		out = append(out, TimelineEntry{
			InstanceID: m.InstanceID,
			LibraryID:  m.LibraryID,
			Phase:      m.Phase,
			Title:      m.Title,
			Duration:   m.Duration,
			Status:     m.Status,
			Order:      m.Order,
		})
	}
	return out
}

func (s State) NextModule() (ModuleInstance, bool) {
	i := s.Modules.nextUpcoming(s.Timeline.CurrentPhase)
	if i < 0 {
		return ModuleInstance{}, false
	}
	return s.Modules.Items[i], true
}

func (s State) MinutesSinceIngestion(now time.Time) float64 {
	return clock.MinutesSince(s.SubstanceChecklist.IngestionTime, now)
}

func (s State) PhaseElapsedMinutes(now time.Time) float64 {
	cfg := s.Timeline.Phase(s.Timeline.CurrentPhase)
	if cfg == nil {
		return 0
	}
	return clock.MinutesSince(cfg.StartedAt, now)
}

// PlannedPhaseMinutes sums module durations still ahead of or in progress in
// phase.
func (s State) PlannedPhaseMinutes(phase TimelinePhase) int {
	total := 0
	for _, m := range s.Modules.Items {
		if m.Phase == phase && (m.Status == ModuleUpcoming || m.Status == ModuleActive) {
			total += m.Duration
		}
	}
	return total
}

// ProgressPercent is time since ingestion over the target duration, capped at 100.
func (s State) ProgressPercent(now time.Time) int {
	if s.Timeline.TargetDuration <= 0 {
		return 0
	}
	pct := int(s.MinutesSinceIngestion(now) * 100 / float64(s.Timeline.TargetDuration))
	return max(0, min(100, pct))
}

func (s State) BoosterDoseMg() int {
	return CalculateBoosterDose(s.SubstanceChecklist.PlannedDosageMg)
}

func (s State) ShouldShowBooster(now time.Time) bool {
	return ShouldShowBooster(s.Booster, s.SubstanceChecklist, s.ComeUpCheckIn, now)
}

func (s State) IsSnoozeAvailable(now time.Time) bool {
	return IsSnoozeAvailable(s.SubstanceChecklist, now)
}

func (s State) InTransition() bool {
	return s.PhaseTransitions.ActiveTransition != TransitionNone
}

// FollowUpRemaining is the time left until id unlocks, zero once it has.
func (s State) FollowUpRemaining(id FollowUpID, now time.Time) time.Duration {
	m := s.FollowUp.Module(id)
	if m == nil || m.UnlockTime.IsZero() || !now.Before(m.UnlockTime) {
		return 0
	}
	return m.UnlockTime.Sub(now)
}
