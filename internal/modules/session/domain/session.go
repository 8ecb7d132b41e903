package domain

import (
	"fmt"
	"strings"
	"time"

	"companion/internal/platform/clock"
)

type StartIntake struct{}

func (StartIntake) Name() string { return "startIntake" }

func (StartIntake) apply(s *State, _ Env) Result {
	if s.SessionPhase != SessionNotStarted {
		return rejected(fmt.Errorf("%w: %s", ErrWrongSessionPhase, s.SessionPhase))
	}
	s.SessionPhase = SessionIntake
	return applied()
}

// UpdateIntake changes the non-nil fields. A non-nil ActivityPreferences
// replaces the whole list.
type UpdateIntake struct {
	ExperienceLevel       *string
	SessionDuration       *string
	CustomDurationMinutes *int
	ActivityPreferences   []string
	ConsiderBooster       *bool
	PrimaryFocus          *string
	Intention             *string
}

func (UpdateIntake) Name() string { return "updateIntake" }

func (a UpdateIntake) apply(s *State, _ Env) Result {
	if s.SessionPhase != SessionIntake && s.SessionPhase != SessionNotStarted {
		return rejected(fmt.Errorf("%w: %s", ErrWrongSessionPhase, s.SessionPhase))
	}
	in := &s.Intake
	setString(&in.ExperienceLevel, a.ExperienceLevel)
	setString(&in.SessionDuration, a.SessionDuration)
	setString(&in.PrimaryFocus, a.PrimaryFocus)
	setString(&in.Intention, a.Intention)
	setBool(&in.ConsiderBooster, a.ConsiderBooster)
	if a.CustomDurationMinutes != nil {
		if *a.CustomDurationMinutes < 0 {
			return rejected(fmt.Errorf("%w: negative duration", ErrInvalidResponse))
		}
		in.CustomDurationMinutes = *a.CustomDurationMinutes
	}
	if a.ActivityPreferences != nil {
		prefs := make([]string, 0, len(a.ActivityPreferences))
		for _, p := range a.ActivityPreferences {
			if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
				prefs = append(prefs, p)
			}
		}
		in.ActivityPreferences = prefs
	}
	return applied()
}

// CompleteIntake generates the timeline and moves on to preparation.
type CompleteIntake struct{}

func (CompleteIntake) Name() string { return "completeIntake" }

func (CompleteIntake) apply(s *State, env Env) Result {
	if s.SessionPhase != SessionIntake {
		return rejected(fmt.Errorf("%w: %s", ErrWrongSessionPhase, s.SessionPhase))
	}
	effects := generateTimeline(s, env, s.Intake)
	s.Booster.ConsiderBooster = s.Intake.ConsiderBooster
	s.Intake.CompletedAt = env.Now
	s.SessionPhase = SessionPreSession
	return applied(effects...)
}

type RecordPreSubstanceActivity struct {
	IntentionNote            *string
	FocusWord                *string
	CenteringBreathCompleted *bool
	Complete                 bool
}

func (RecordPreSubstanceActivity) Name() string { return "recordPreSubstanceActivity" }

func (a RecordPreSubstanceActivity) apply(s *State, env Env) Result {
	p := &s.PreSubstanceActivity
	setString(&p.IntentionNote, a.IntentionNote)
	setString(&p.FocusWord, a.FocusWord)
	setBool(&p.CenteringBreathCompleted, a.CenteringBreathCompleted)
	if a.Complete && p.CompletedAt.IsZero() {
		p.CompletedAt = env.Now
	}
	return applied()
}

// StartSession begins the come-up. The checklist must clear its dosage gate.
type StartSession struct{}

func (StartSession) Name() string { return "startSession" }

func (StartSession) apply(s *State, env Env) Result {
	if s.SessionPhase != SessionSubstanceChecklist {
		return rejected(fmt.Errorf("%w: %s", ErrWrongSessionPhase, s.SessionPhase))
	}
	if err := CanStartSession(s.SubstanceChecklist); err != nil {
		return rejected(err)
	}
	now := env.Now
	s.Session.ID = env.IDs.New()
	s.Session.StartedAt = now
	if s.SubstanceChecklist.IngestionTime.IsZero() {
		s.SubstanceChecklist.IngestionTime = now
	}
	s.SessionPhase = SessionActive
	s.Timeline.CurrentPhase = PhaseComeUp
	s.Timeline.Phases.ComeUp.StartedAt = now
	if next := s.Modules.nextUpcoming(PhaseComeUp); next >= 0 {
		activate(s, next, now)
	} else {
		s.Modules.InOpenSpace = true
	}
	return applied(Effect{Kind: EffectSwitchTab, Tab: TabSession})
}

type PauseSession struct{}

func (PauseSession) Name() string { return "pauseSession" }

func (PauseSession) apply(s *State, env Env) Result {
	if s.SessionPhase != SessionActive {
		return noop()
	}
	s.SessionPhase = SessionPaused
	s.Session.PausedAt = env.Now
	pausePlayback(s, env.Now, "session")
	return applied()
}

type ResumeSession struct{}

func (ResumeSession) Name() string { return "resumeSession" }

func (ResumeSession) apply(s *State, _ Env) Result {
	if s.SessionPhase != SessionPaused {
		return noop()
	}
	s.SessionPhase = SessionActive
	s.Session.PausedAt = time.Time{}
	if s.Modules.Playback.PausedBy == "session" {
		resumePlayback(s)
	}
	return applied()
}

// CompleteSession closes the session and schedules the follow-ups.
type CompleteSession struct{}

func (CompleteSession) Name() string { return "completeSession" }

func (CompleteSession) apply(s *State, env Env) Result {
	if s.SessionPhase != SessionActive && s.SessionPhase != SessionPaused {
		return rejected(fmt.Errorf("%w: %s", ErrWrongSessionPhase, s.SessionPhase))
	}
	now := env.Now
	closing := s.PhaseTransitions.ActiveTransition == TransitionClosing
	skipActive(s, now)
	if cfg := s.Timeline.Phase(s.Timeline.CurrentPhase); cfg != nil {
		cfg.EndedAt = now
		cfg.EndedBy = EndedByCompletion
		if closing {
			cfg.EndedBy = EndedByClosing
		}
	}
	if closing {
		finishTransition(s, TransitionClosing, now)
	}
	s.PhaseTransitions.ActiveTransition = TransitionNone
	s.PhaseTransitions.TransitionStartedAt = time.Time{}
	s.Timeline.CurrentPhase = PhaseNone
	s.Modules.InOpenSpace = false
	s.ComeUpCheckIn.IsVisible = false
	s.ComeUpCheckIn.ShowEndOfPhaseChoice = false
	s.PeakCheckIn.IsVisible = false
	s.ClosingCheckIn.IsVisible = false
	if s.Booster.ConsiderBooster && !s.Booster.Status.Terminal() {
		expireBooster(s, now)
	}

	start := s.SubstanceChecklist.IngestionTime
	if start.IsZero() {
		start = s.Session.StartedAt
	}
	s.SessionPhase = SessionCompleted
	s.Session.ClosedAt = now
	s.Session.FinalDurationSeconds = clock.SecondsBetween(start, now)
	scheduleFollowUps(s, now)
	return applied(
		Effect{Kind: EffectExportSession},
		Effect{Kind: EffectSwitchTab, Tab: TabHome},
	)
}

// ResetSession discards everything and returns to the initial tree.
type ResetSession struct{}

func (ResetSession) Name() string { return "resetSession" }

func (ResetSession) apply(s *State, _ Env) Result {
	*s = NewState()
	return applied()
}

type AddJournalEntry struct {
	Prompt string
	Text   string
}

func (AddJournalEntry) Name() string { return "addJournalEntry" }

func (a AddJournalEntry) apply(s *State, env Env) Result {
	text := strings.TrimSpace(a.Text)
	if text == "" {
		return rejected(fmt.Errorf("%w: empty journal entry", ErrInvalidResponse))
	}
	entry := JournalEntry{
		ID:        env.IDs.New(),
		Phase:     s.Timeline.CurrentPhase,
		Prompt:    a.Prompt,
		Text:      text,
		CreatedAt: env.Now,
	}
	s.Journal.Entries = append(s.Journal.Entries, entry)
	return Result{Applied: true, InstanceID: entry.ID}
}
