package domain

import (
	"fmt"
	"time"

	"companion/internal/platform/clock"
)

func showPhaseCheckIn(c *PhaseCheckIn, now time.Time) {
	if c.IsVisible {
		return
	}
	c.IsVisible = true
	c.ShownAt = now
}

// OpenComeUpCheckIn surfaces the come-up prompt on demand.
type OpenComeUpCheckIn struct{}

func (OpenComeUpCheckIn) Name() string { return "openComeUpCheckIn" }

func (OpenComeUpCheckIn) apply(s *State, env Env) Result {
	if s.Timeline.CurrentPhase != PhaseComeUp || s.ComeUpCheckIn.IsVisible {
		return noop()
	}
	c := &s.ComeUpCheckIn
	c.IsVisible = true
	c.PromptCount++
	c.LastPromptAt = env.Now
	c.ShowEndOfPhaseChoice = c.HasIndicatedFullyArrived
	return applied()
}

type RecordCheckInResponse struct {
	Response ComeUpResponse
}

func (RecordCheckInResponse) Name() string { return "recordCheckInResponse" }

func (a RecordCheckInResponse) apply(s *State, env Env) Result {
	if !a.Response.Valid() {
		return rejected(fmt.Errorf("%w: %q", ErrInvalidResponse, a.Response))
	}
	if s.Timeline.CurrentPhase != PhaseComeUp {
		return rejected(fmt.Errorf("%w: check-in outside come-up", ErrWrongSessionPhase))
	}
	c := &s.ComeUpCheckIn
	c.Responses = append(c.Responses, CheckInResponse{
		Response:              a.Response,
		Timestamp:             env.Now,
		MinutesSinceIngestion: clock.MinutesSince(s.SubstanceChecklist.IngestionTime, env.Now),
	})
	c.CurrentResponse = a.Response
	if a.Response == ComeUpFullyArrived {
		c.HasIndicatedFullyArrived = true
		c.ShowEndOfPhaseChoice = true
		c.IsVisible = true
		return applied()
	}
	c.IsVisible = false
	c.ShowEndOfPhaseChoice = false
	return applied()
}

// ChooseContinueComeUp keeps the user in come-up after they arrived.
type ChooseContinueComeUp struct{}

func (ChooseContinueComeUp) Name() string { return "chooseContinueComeUp" }

func (ChooseContinueComeUp) apply(s *State, _ Env) Result {
	c := &s.ComeUpCheckIn
	if !c.IsVisible && !c.ShowEndOfPhaseChoice {
		return noop()
	}
	c.IsVisible = false
	c.ShowEndOfPhaseChoice = false
	return applied()
}

type DismissPeakCheckIn struct {
	Response string
}

func (DismissPeakCheckIn) Name() string { return "dismissPeakCheckIn" }

func (a DismissPeakCheckIn) apply(s *State, env Env) Result {
	return dismissPhaseCheckIn(&s.PeakCheckIn, a.Response, env.Now)
}

type DismissClosingCheckIn struct {
	Response string
}

func (DismissClosingCheckIn) Name() string { return "dismissClosingCheckIn" }

func (a DismissClosingCheckIn) apply(s *State, env Env) Result {
	return dismissPhaseCheckIn(&s.ClosingCheckIn, a.Response, env.Now)
}

func dismissPhaseCheckIn(c *PhaseCheckIn, response string, now time.Time) Result {
	if !c.IsVisible {
		return noop()
	}
	c.IsVisible = false
	c.DismissedAt = now
	if response != "" {
		c.Response = response
	}
	return applied()
}
