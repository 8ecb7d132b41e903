package domain

import (
	"fmt"
	"time"
)

// Reasons stamped into PhaseConfig.EndedBy.
const (
	EndedByTransition = "transition"
	EndedByClosing    = "closing-ritual"
	EndedByCompletion = "session-completed"
)

func beginTransition(s *State, kind TransitionKind, now time.Time) {
	s.PhaseTransitions.ActiveTransition = kind
	s.PhaseTransitions.TransitionStartedAt = now
}

func finishTransition(s *State, kind TransitionKind, now time.Time) {
	if s.PhaseTransitions.ActiveTransition == kind {
		s.PhaseTransitions.Completed = append(s.PhaseTransitions.Completed, kind)
		if set := s.TransitionCaptures.For(kind); set != nil {
			set.CompletedAt = now
		}
	}
	s.PhaseTransitions.ActiveTransition = TransitionNone
	s.PhaseTransitions.TransitionStartedAt = time.Time{}
}

func transitionGuard(s *State, from TimelinePhase) error {
	if s.SessionPhase != SessionActive && s.SessionPhase != SessionPaused {
		return fmt.Errorf("%w: session is %s", ErrTransitionNotAllowed, s.SessionPhase)
	}
	if s.Timeline.CurrentPhase != from {
		return fmt.Errorf("%w: current phase is %q", ErrTransitionNotAllowed, s.Timeline.CurrentPhase)
	}
	if s.PhaseTransitions.ActiveTransition != TransitionNone {
		return fmt.Errorf("%w: %s already in progress", ErrTransitionNotAllowed, s.PhaseTransitions.ActiveTransition)
	}
	return nil
}

// enterPhase ends the current phase and starts the next one.
func enterPhase(s *State, to TimelinePhase, now time.Time) {
	skipActive(s, now)
	if cfg := s.Timeline.Phase(s.Timeline.CurrentPhase); cfg != nil {
		cfg.EndedAt = now
		cfg.EndedBy = EndedByTransition
	}
	s.Timeline.CurrentPhase = to
	s.Timeline.Phase(to).StartedAt = now
	s.Modules.InOpenSpace = false
	if next := s.Modules.nextUpcoming(to); next >= 0 {
		activate(s, next, now)
		return
	}
	enterOpenSpace(s, to, now)
}

type BeginPeakTransition struct{}

func (BeginPeakTransition) Name() string { return "beginPeakTransition" }

func (BeginPeakTransition) apply(s *State, env Env) Result {
	if err := transitionGuard(s, PhaseComeUp); err != nil {
		return rejected(err)
	}
	if !s.ComeUpCheckIn.HasIndicatedFullyArrived {
		return rejected(fmt.Errorf("%w: come-up not marked fully arrived", ErrTransitionNotAllowed))
	}
	beginTransition(s, TransitionComeUpToPeak, env.Now)
	s.ComeUpCheckIn.IsVisible = false
	s.ComeUpCheckIn.ShowEndOfPhaseChoice = false
	return applied()
}

type TransitionToPeak struct{}

func (TransitionToPeak) Name() string { return "transitionToPeak" }

func (TransitionToPeak) apply(s *State, env Env) Result {
	if s.PhaseTransitions.ActiveTransition != TransitionComeUpToPeak {
		return rejected(fmt.Errorf("%w: expected %s", ErrNoActiveTransition, TransitionComeUpToPeak))
	}
	enterPhase(s, PhasePeak, env.Now)
	finishTransition(s, TransitionComeUpToPeak, env.Now)
	return applied()
}

type BeginIntegrationTransition struct{}

func (BeginIntegrationTransition) Name() string { return "beginIntegrationTransition" }

func (BeginIntegrationTransition) apply(s *State, env Env) Result {
	if err := transitionGuard(s, PhasePeak); err != nil {
		return rejected(err)
	}
	beginTransition(s, TransitionPeakToIntegration, env.Now)
	s.PeakCheckIn.IsVisible = false
	return applied()
}

type TransitionToIntegration struct{}

func (TransitionToIntegration) Name() string { return "transitionToIntegration" }

func (TransitionToIntegration) apply(s *State, env Env) Result {
	if s.PhaseTransitions.ActiveTransition != TransitionPeakToIntegration {
		return rejected(fmt.Errorf("%w: expected %s", ErrNoActiveTransition, TransitionPeakToIntegration))
	}
	enterPhase(s, PhaseIntegration, env.Now)
	finishTransition(s, TransitionPeakToIntegration, env.Now)
	return applied()
}

type BeginClosingRitual struct{}

func (BeginClosingRitual) Name() string { return "beginClosingRitual" }

func (BeginClosingRitual) apply(s *State, env Env) Result {
	if err := transitionGuard(s, PhaseIntegration); err != nil {
		return rejected(err)
	}
	beginTransition(s, TransitionClosing, env.Now)
	s.ClosingCheckIn.IsVisible = false
	return applied()
}

// CompleteTransition finishes whichever transition is in progress.
type CompleteTransition struct{}

func (CompleteTransition) Name() string { return "completeTransition" }

func (CompleteTransition) apply(s *State, env Env) Result {
	switch s.PhaseTransitions.ActiveTransition {
	case TransitionComeUpToPeak:
		return TransitionToPeak{}.apply(s, env)
	case TransitionPeakToIntegration:
		return TransitionToIntegration{}.apply(s, env)
	case TransitionClosing:
		return CompleteSession{}.apply(s, env)
	default:
		return rejected(ErrNoActiveTransition)
	}
}

type RecordTransitionCapture struct {
	// Kind defaults to the active transition.
	Kind  TransitionKind
	Key   string
	Value string
}

func (RecordTransitionCapture) Name() string { return "recordTransitionCapture" }

func (a RecordTransitionCapture) apply(s *State, _ Env) Result {
	kind := a.Kind
	if kind == TransitionNone {
		kind = s.PhaseTransitions.ActiveTransition
	}
	if !kind.Valid() {
		return rejected(ErrNoActiveTransition)
	}
	if a.Key == "" {
		return rejected(fmt.Errorf("%w: empty capture key", ErrInvalidResponse))
	}
	s.TransitionCaptures.For(kind).Responses[a.Key] = a.Value
	return applied()
}
