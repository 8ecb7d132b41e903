package domain

import (
	"fmt"
	"math"
	"time"

	"companion/internal/platform/clock"
)

// Booster window, in minutes since ingestion.
const (
	BoosterDefaultPromptMinutes = 90
	BoosterFullyArrivedDelay    = 30
	BoosterSoftCutoffMinutes    = 150
	BoosterHardCutoffMinutes    = 180
	BoosterSnoozeMinutes        = 10

	BoosterMinDoseMg = 30
	BoosterMaxDoseMg = 75
)

// ShouldShowBooster applies the booster prompt rules in order; the first
// matching rule decides.
func ShouldShowBooster(b Booster, c SubstanceChecklist, comeUp ComeUpCheckIn, now time.Time) bool {
	if !b.ConsiderBooster || b.Status.Terminal() || c.IngestionTime.IsZero() {
		return false
	}
	minutes := clock.MinutesSince(c.IngestionTime, now)
	if minutes >= BoosterHardCutoffMinutes {
		return false
	}
	if b.Status == BoosterSnoozed {
		return !b.NextPromptAt.IsZero() && !now.Before(b.NextPromptAt)
	}
	if b.Status == BoosterPending && minutes >= BoosterSoftCutoffMinutes {
		return false
	}
	return minutes >= BoosterTriggerMinutes(comeUp)
}

// BoosterTriggerMinutes is 90, or 30 minutes after the first fully-arrived
// response when that comes sooner.
func BoosterTriggerMinutes(comeUp ComeUpCheckIn) float64 {
	trigger := float64(BoosterDefaultPromptMinutes)
	if arrived, ok := comeUp.FullyArrivedAt(); ok {
		trigger = min(trigger, arrived.MinutesSinceIngestion+BoosterFullyArrivedDelay)
	}
	return trigger
}

// CalculateBoosterDose is half the initial dose rounded to 5mg, within
// [30, 75].
func CalculateBoosterDose(initialMg int) int {
	dose := int(math.Round(float64(initialMg)*0.5/5) * 5)
	return max(BoosterMinDoseMg, min(BoosterMaxDoseMg, dose))
}

// IsSnoozeAvailable reports whether another snooze stays inside the soft
// cutoff.
func IsSnoozeAvailable(c SubstanceChecklist, now time.Time) bool {
	if c.IngestionTime.IsZero() {
		return false
	}
	return clock.MinutesSince(c.IngestionTime, now)+BoosterSnoozeMinutes < BoosterSoftCutoffMinutes
}

var cautionResponses = map[string]bool{
	"intense":            true,
	"uncomfortable":      true,
	"complete":           true,
	"ready-to-integrate": true,
}

// BoosterCautionAdvised is true when any check-in answer suggests against
// redosing.
func BoosterCautionAdvised(b Booster) bool {
	r := b.CheckInResponses
	return cautionResponses[r.ExperienceQuality] || cautionResponses[r.PhysicalState] || cautionResponses[r.Trajectory]
}

// Booster check-in fields and their accepted answers.
const (
	BoosterFieldExperienceQuality = "experienceQuality"
	BoosterFieldPhysicalState     = "physicalState"
	BoosterFieldTrajectory        = "trajectory"
)

var boosterAnswers = map[string][]string{
	BoosterFieldExperienceQuality: {"gentle", "moderate", "intense"},
	BoosterFieldPhysicalState:     {"comfortable", "mild-tension", "uncomfortable"},
	BoosterFieldTrajectory:        {"building", "steady", "complete", "ready-to-integrate"},
}

func BoosterAnswers(field string) []string {
	return append([]string(nil), boosterAnswers[field]...)
}

func promptBooster(s *State, now time.Time) {
	b := &s.Booster
	b.Status = BoosterPrompted
	b.PromptedAt = now
	b.NextPromptAt = time.Time{}
	b.IsModalVisible = true
	b.IsMinimized = false
	pausePlayback(s, now, "booster")
}

func decideBooster(s *State, status BoosterStatus, now time.Time) {
	b := &s.Booster
	b.Status = status
	b.BoosterDecisionAt = now
	b.NextPromptAt = time.Time{}
	b.IsModalVisible = false
	b.IsMinimized = false
	resumePlayback(s)
}

func expireBooster(s *State, now time.Time) {
	decideBooster(s, BoosterExpired, now)
}

func boosterGuard(b Booster) error {
	if !b.ConsiderBooster {
		return ErrBoosterNotPlanned
	}
	if b.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrBoosterDecided, b.Status)
	}
	return nil
}

// TakeBooster records the redose at At, or now when At is zero.
type TakeBooster struct {
	At time.Time
}

func (TakeBooster) Name() string { return "takeBooster" }

func (a TakeBooster) apply(s *State, env Env) Result {
	if err := boosterGuard(s.Booster); err != nil {
		return rejected(err)
	}
	at := a.At
	if at.IsZero() {
		at = env.Now
	}
	decideBooster(s, BoosterTaken, env.Now)
	s.Booster.BoosterTakenAt = at
	return applied()
}

type SkipBooster struct{}

func (SkipBooster) Name() string { return "skipBooster" }

func (SkipBooster) apply(s *State, env Env) Result {
	if err := boosterGuard(s.Booster); err != nil {
		return rejected(err)
	}
	decideBooster(s, BoosterSkipped, env.Now)
	return applied()
}

type SnoozeBooster struct{}

func (SnoozeBooster) Name() string { return "snoozeBooster" }

func (SnoozeBooster) apply(s *State, env Env) Result {
	if err := boosterGuard(s.Booster); err != nil {
		return rejected(err)
	}
	if !IsSnoozeAvailable(s.SubstanceChecklist, env.Now) {
		return rejected(ErrSnoozeUnavailable)
	}
	b := &s.Booster
	b.Status = BoosterSnoozed
	b.SnoozeCount++
	b.NextPromptAt = env.Now.Add(BoosterSnoozeMinutes * time.Minute)
	b.IsModalVisible = false
	b.IsMinimized = true
	resumePlayback(s)
	return applied()
}

type ExpireBooster struct{}

func (ExpireBooster) Name() string { return "expireBooster" }

func (ExpireBooster) apply(s *State, env Env) Result {
	if s.Booster.Status.Terminal() {
		return noop()
	}
	expireBooster(s, env.Now)
	return applied()
}

type RecordBoosterCheckIn struct {
	Field string
	Value string
}

func (RecordBoosterCheckIn) Name() string { return "recordBoosterCheckIn" }

func (a RecordBoosterCheckIn) apply(s *State, _ Env) Result {
	answers, ok := boosterAnswers[a.Field]
	if !ok {
		return rejected(fmt.Errorf("%w: unknown field %q", ErrInvalidResponse, a.Field))
	}
	valid := false
	for _, v := range answers {
		if v == a.Value {
			valid = true
			break
		}
	}
	if !valid {
		return rejected(fmt.Errorf("%w: %s=%q", ErrInvalidResponse, a.Field, a.Value))
	}
	r := &s.Booster.CheckInResponses
	switch a.Field {
	case BoosterFieldExperienceQuality:
		r.ExperienceQuality = a.Value
	case BoosterFieldPhysicalState:
		r.PhysicalState = a.Value
	case BoosterFieldTrajectory:
		r.Trajectory = a.Value
	}
	return applied()
}

type MinimizeBooster struct{}

func (MinimizeBooster) Name() string { return "minimizeBooster" }

func (MinimizeBooster) apply(s *State, _ Env) Result {
	if !s.Booster.IsModalVisible {
		return noop()
	}
	s.Booster.IsModalVisible = false
	s.Booster.IsMinimized = true
	return applied()
}

type MaximizeBooster struct{}

func (MaximizeBooster) Name() string { return "maximizeBooster" }

func (MaximizeBooster) apply(s *State, _ Env) Result {
	if !s.Booster.IsMinimized || s.Booster.Status.Terminal() {
		return noop()
	}
	s.Booster.IsModalVisible = true
	s.Booster.IsMinimized = false
	return applied()
}

type SetBoosterPrepared struct {
	Prepared bool
}

func (SetBoosterPrepared) Name() string { return "setBoosterPrepared" }

func (a SetBoosterPrepared) apply(s *State, _ Env) Result {
	s.Booster.BoosterPrepared = a.Prepared
	return applied()
}
