package domain

import (
	"fmt"
	"maps"
	"time"
)

// Follow-up unlock offsets from session close.
var followUpDelays = map[FollowUpID]time.Duration{
	FollowUpCheckIn:     24 * time.Hour,
	FollowUpRevisit:     24 * time.Hour,
	FollowUpIntegration: 48 * time.Hour,
}

var followUpTitles = map[FollowUpID]string{
	FollowUpCheckIn:     "Next-day check-in",
	FollowUpRevisit:     "Revisit your intention",
	FollowUpIntegration: "Integration reflection",
}

func FollowUpTitle(id FollowUpID) string {
	return followUpTitles[id]
}

func ParseFollowUpID(raw string) (FollowUpID, error) {
	for _, id := range FollowUpIDs {
		if string(id) == raw {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFollowUp, raw)
}

func scheduleFollowUps(s *State, closedAt time.Time) {
	for _, id := range FollowUpIDs {
		m := s.FollowUp.Module(id)
		m.Status = FollowUpLocked
		m.UnlockTime = closedAt.Add(followUpDelays[id])
		m.CompletedAt = time.Time{}
		m.Responses = nil
	}
	s.FollowUp.ActiveModule = ""
}

// unlockFollowUps flips every due locked module to available and returns the
// ids it changed.
func unlockFollowUps(s *State, now time.Time) []FollowUpID {
	var unlocked []FollowUpID
	for _, id := range FollowUpIDs {
		m := s.FollowUp.Module(id)
		if m.Status != FollowUpLocked || m.UnlockTime.IsZero() || now.Before(m.UnlockTime) {
			continue
		}
		m.Status = FollowUpAvailable
		unlocked = append(unlocked, id)
	}
	return unlocked
}

func unlockEffects(ids []FollowUpID) []Effect {
	effects := make([]Effect, 0, len(ids))
	for _, id := range ids {
		effects = append(effects, Effect{
			Kind:  EffectNotify,
			Title: "Follow-up ready",
			Body:  FollowUpTitle(id) + " is now available.",
		})
	}
	return effects
}

type CheckFollowUpAvailability struct{}

func (CheckFollowUpAvailability) Name() string { return "checkFollowUpAvailability" }

func (CheckFollowUpAvailability) apply(s *State, env Env) Result {
	ids := unlockFollowUps(s, env.Now)
	if len(ids) == 0 {
		return noop()
	}
	return applied(unlockEffects(ids)...)
}

type StartFollowUpModule struct {
	ID FollowUpID
}

func (StartFollowUpModule) Name() string { return "startFollowUpModule" }

func (a StartFollowUpModule) apply(s *State, _ Env) Result {
	m := s.FollowUp.Module(a.ID)
	if m == nil {
		return rejected(fmt.Errorf("%w: %q", ErrUnknownFollowUp, a.ID))
	}
	if m.Status == FollowUpLocked {
		return rejected(fmt.Errorf("%w: %s", ErrFollowUpLocked, a.ID))
	}
	s.FollowUp.ActiveModule = a.ID
	return applied(Effect{Kind: EffectSwitchTab, Tab: TabFollowUp})
}

type CompleteFollowUpModule struct {
	ID        FollowUpID
	Responses map[string]string
}

func (CompleteFollowUpModule) Name() string { return "completeFollowUpModule" }

func (a CompleteFollowUpModule) apply(s *State, env Env) Result {
	m := s.FollowUp.Module(a.ID)
	if m == nil {
		return rejected(fmt.Errorf("%w: %q", ErrUnknownFollowUp, a.ID))
	}
	if m.Status == FollowUpLocked {
		return rejected(fmt.Errorf("%w: %s", ErrFollowUpLocked, a.ID))
	}
	m.Status = FollowUpCompleted
	m.CompletedAt = env.Now
	if len(a.Responses) > 0 {
		m.Responses = make(map[string]string, len(a.Responses))
		maps.Copy(m.Responses, a.Responses)
	}
	s.FollowUp.ActiveModule = ""
	return applied(
		Effect{Kind: EffectExportSession},
		Effect{Kind: EffectSwitchTab, Tab: TabHome},
	)
}
