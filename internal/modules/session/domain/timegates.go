package domain

import (
	"time"

	"companion/internal/platform/clock"
)

// Check-in cadence, in minutes.
const (
	ComeUpFirstPromptMinutes    = 20
	ComeUpRepromptMinutes       = 10
	PhaseCheckInRepromptMinutes = 15
)

// EvaluateTimeGates fires every transition that is due at now. It is safe to
// call at any cadence: a second call at the same instant changes nothing.
func EvaluateTimeGates(s State, now time.Time) (State, []Effect, bool) {
	next, res := Dispatch(s, evaluateTimeGates{}, Env{Now: now})
	return next, res.Effects, res.Applied
}

type evaluateTimeGates struct{}

func (evaluateTimeGates) Name() string { return "evaluateTimeGates" }

func (evaluateTimeGates) apply(s *State, env Env) Result {
	now := env.Now
	changed := false
	var effects []Effect

	if ids := unlockFollowUps(s, now); len(ids) > 0 {
		changed = true
		effects = append(effects, unlockEffects(ids)...)
	}
	if s.SessionPhase != SessionActive {
		return Result{Applied: changed, Effects: effects}
	}

	if fired, effect := boosterGate(s, now); fired {
		changed = true
		if effect != nil {
			effects = append(effects, *effect)
		}
	}
	if comeUpGate(s, now) {
		changed = true
	}
	if phaseCheckInGate(s, PhasePeak, &s.PeakCheckIn, now) {
		changed = true
	}
	if phaseCheckInGate(s, PhaseIntegration, &s.ClosingCheckIn, now) {
		changed = true
	}
	return Result{Applied: changed, Effects: effects}
}

func boosterGate(s *State, now time.Time) (bool, *Effect) {
	b := s.Booster
	if !b.ConsiderBooster || b.Status.Terminal() || s.SubstanceChecklist.IngestionTime.IsZero() {
		return false, nil
	}
	minutes := clock.MinutesSince(s.SubstanceChecklist.IngestionTime, now)
	if minutes >= BoosterHardCutoffMinutes || (b.Status == BoosterPending && minutes >= BoosterSoftCutoffMinutes) {
		expireBooster(s, now)
		return true, nil
	}
	if b.Status == BoosterPrompted {
		return false, nil
	}
	if !ShouldShowBooster(b, s.SubstanceChecklist, s.ComeUpCheckIn, now) {
		return false, nil
	}
	promptBooster(s, now)
	return true, &Effect{Kind: EffectNotify, Title: "Booster check-in", Body: "Take a moment to decide about your booster."}
}

func comeUpGate(s *State, now time.Time) bool {
	c := &s.ComeUpCheckIn
	if s.Timeline.CurrentPhase != PhaseComeUp || c.IsVisible || c.HasIndicatedFullyArrived {
		return false
	}
	if s.PhaseTransitions.ActiveTransition != TransitionNone || s.Booster.IsModalVisible {
		return false
	}
	if s.Modules.CurrentModuleInstanceID != "" || s.SubstanceChecklist.IngestionTime.IsZero() {
		return false
	}
	if clock.MinutesSince(s.SubstanceChecklist.IngestionTime, now) < ComeUpFirstPromptMinutes {
		return false
	}
	if !c.LastPromptAt.IsZero() && clock.MinutesSince(c.LastPromptAt, now) < ComeUpRepromptMinutes {
		return false
	}
	c.IsVisible = true
	c.PromptCount++
	c.LastPromptAt = now
	return true
}

func phaseCheckInGate(s *State, phase TimelinePhase, c *PhaseCheckIn, now time.Time) bool {
	if s.Timeline.CurrentPhase != phase || c.IsVisible {
		return false
	}
	if s.PhaseTransitions.ActiveTransition != TransitionNone || s.Booster.IsModalVisible {
		return false
	}
	if s.Modules.CurrentModuleInstanceID != "" {
		return false
	}
	cfg := s.Timeline.Phase(phase)
	if cfg.StartedAt.IsZero() || clock.MinutesSince(cfg.StartedAt, now) < float64(cfg.AllocatedDuration) {
		return false
	}
	if !c.DismissedAt.IsZero() && clock.MinutesSince(c.DismissedAt, now) < PhaseCheckInRepromptMinutes {
		return false
	}
	showPhaseCheckIn(c, now)
	return true
}
