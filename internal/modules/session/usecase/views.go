package usecase

import (
	"time"

	"companion/internal/modules/session/domain"
	sessiondto "companion/internal/modules/session/dto"
)

func statusView(s domain.State, now time.Time, changed bool) sessiondto.StatusOutput {
	out := sessiondto.StatusOutput{
		Changed:               changed,
		SessionID:             s.Session.ID,
		SessionPhase:          string(s.SessionPhase),
		CurrentPhase:          string(s.Timeline.CurrentPhase),
		TargetMinutes:         s.Timeline.TargetDuration,
		MinutesSinceIngestion: s.MinutesSinceIngestion(now),
		PhaseElapsedMinutes:   s.PhaseElapsedMinutes(now),
		PhasePlannedMinutes:   s.PlannedPhaseMinutes(s.Timeline.CurrentPhase),
		ProgressPercent:       s.ProgressPercent(now),
		DosageFeedback:        string(s.SubstanceChecklist.DosageFeedback),
		InOpenSpace:           s.Modules.InOpenSpace,
		PlaybackPaused:        s.Modules.Playback.IsPaused,
		ComeUpCheckIn: sessiondto.CheckInView{
			Visible:          s.ComeUpCheckIn.IsVisible,
			PromptCount:      s.ComeUpCheckIn.PromptCount,
			CurrentResponse:  string(s.ComeUpCheckIn.CurrentResponse),
			FullyArrived:     s.ComeUpCheckIn.HasIndicatedFullyArrived,
			EndOfPhaseChoice: s.ComeUpCheckIn.ShowEndOfPhaseChoice,
		},
		PeakCheckInVisible:    s.PeakCheckIn.IsVisible,
		ClosingCheckInVisible: s.ClosingCheckIn.IsVisible,
		ActiveTransition:      string(s.PhaseTransitions.ActiveTransition),
		Booster:               boosterView(s, now),
		FollowUps:             followUpViews(s, now),
		JournalEntries:        len(s.Journal.Entries),
		FinalDurationSeconds:  s.Session.FinalDurationSeconds,
	}
	if m, ok := s.CurrentModule(); ok {
		view := moduleView(domain.TimelineEntry{
			InstanceID: m.InstanceID,
			LibraryID:  m.LibraryID,
			Phase:      m.Phase,
			Title:      m.Title,
			Duration:   m.Duration,
			Status:     m.Status,
			Order:      m.Order,
		})
		out.CurrentModule = &view
	}
	for _, phase := range domain.Phases {
		for _, e := range s.PhaseEntries(phase) {
			out.Timeline = append(out.Timeline, moduleView(e))
		}
	}
	return out
}

func moduleView(e domain.TimelineEntry) sessiondto.ModuleView {
	return sessiondto.ModuleView{
		InstanceID: e.InstanceID,
		LibraryID:  e.LibraryID,
		Phase:      string(e.Phase),
		Title:      e.Title,
		Duration:   e.Duration,
		Status:     string(e.Status),
		Order:      e.Order,
		IsBooster:  e.IsBoosterIndicator,
	}
}

func boosterView(s domain.State, now time.Time) sessiondto.BoosterView {
	b := s.Booster
	responses := map[string]string{}
	answers := map[string][]string{}
	for _, field := range []string{domain.BoosterFieldExperienceQuality, domain.BoosterFieldPhysicalState, domain.BoosterFieldTrajectory} {
		answers[field] = domain.BoosterAnswers(field)
	}
	if v := b.CheckInResponses.ExperienceQuality; v != "" {
		responses[domain.BoosterFieldExperienceQuality] = v
	}
	if v := b.CheckInResponses.PhysicalState; v != "" {
		responses[domain.BoosterFieldPhysicalState] = v
	}
	if v := b.CheckInResponses.Trajectory; v != "" {
		responses[domain.BoosterFieldTrajectory] = v
	}
	return sessiondto.BoosterView{
		Considered:      b.ConsiderBooster,
		Prepared:        b.BoosterPrepared,
		Status:          string(b.Status),
		DoseMg:          s.BoosterDoseMg(),
		ShouldShow:      s.ShouldShowBooster(now),
		SnoozeAvailable: s.IsSnoozeAvailable(now),
		CautionAdvised:  domain.BoosterCautionAdvised(b),
		ModalVisible:    b.IsModalVisible,
		Minimized:       b.IsMinimized,
		SnoozeCount:     b.SnoozeCount,
		NextPromptAt:    b.NextPromptAt,
		TakenAt:         b.BoosterTakenAt,
		Responses:       responses,
		Answers:         answers,
	}
}

func followUpViews(s domain.State, now time.Time) []sessiondto.FollowUpView {
	out := make([]sessiondto.FollowUpView, 0, len(domain.FollowUpIDs))
	for _, id := range domain.FollowUpIDs {
		m := s.FollowUp.Module(id)
		out = append(out, sessiondto.FollowUpView{
			ID:          string(id),
			Title:       domain.FollowUpTitle(id),
			Status:      string(m.Status),
			UnlockTime:  m.UnlockTime,
			Remaining:   s.FollowUpRemaining(id, now),
			CompletedAt: m.CompletedAt,
		})
	}
	return out
}
