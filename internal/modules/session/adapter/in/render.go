package in

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	sessiondto "companion/internal/modules/session/dto"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

func WriteStatus(w io.Writer, s sessiondto.StatusOutput) {
	_, _ = fmt.Fprintf(w, "session=%s phase=%s", orDash(s.SessionID), s.SessionPhase)
	if s.CurrentPhase != "" {
		_, _ = fmt.Fprintf(w, " timeline=%s elapsed=%.0fmin/%dmin progress=%d%%", s.CurrentPhase, s.MinutesSinceIngestion, s.TargetMinutes, s.ProgressPercent)
	}
	if !s.Changed {
		_, _ = fmt.Fprint(w, " (unchanged)")
	}
	_, _ = fmt.Fprintln(w)
	if s.DosageFeedback != "" {
		_, _ = fmt.Fprintf(w, "dosage: %s\n", s.DosageFeedback)
	}
	if s.CurrentPhase != "" && s.PhasePlannedMinutes > 0 {
		_, _ = fmt.Fprintf(w, "plan: %dmin of modules left in %s\n", s.PhasePlannedMinutes, s.CurrentPhase)
	}
	if s.CurrentModule != nil {
		m := s.CurrentModule
		_, _ = fmt.Fprintf(w, "now: %s (%s) %dmin status=%s", m.Title, m.InstanceID, m.Duration, m.Status)
		if s.PlaybackPaused {
			_, _ = fmt.Fprint(w, " paused")
		}
		_, _ = fmt.Fprintln(w)
	} else if s.InOpenSpace {
		_, _ = fmt.Fprintln(w, "now: open space")
	}
	if s.ComeUpCheckIn.Visible {
		_, _ = fmt.Fprintf(w, "check-in: how are you feeling? (prompt %d)\n", s.ComeUpCheckIn.PromptCount)
	}
	if s.ComeUpCheckIn.EndOfPhaseChoice {
		_, _ = fmt.Fprintln(w, "check-in: come-up modules finished; continue or move to peak")
	}
	if s.PeakCheckInVisible {
		_, _ = fmt.Fprintln(w, "check-in: peak time is up")
	}
	if s.ClosingCheckInVisible {
		_, _ = fmt.Fprintln(w, "check-in: closing time is up")
	}
	if s.ActiveTransition != "" {
		_, _ = fmt.Fprintf(w, "transition: %s\n", s.ActiveTransition)
	}
	if s.Booster.ShouldShow || s.Booster.ModalVisible {
		_, _ = fmt.Fprintf(w, "booster: due dose=%dmg snooze=%t\n", s.Booster.DoseMg, s.Booster.SnoozeAvailable)
	}
	for _, m := range s.Timeline {
		marker := " "
		if s.CurrentModule != nil && m.InstanceID == s.CurrentModule.InstanceID {
			marker = ">"
		}
		_, _ = fmt.Fprintf(w, "%s %-11s %-10s %3dmin  %s  %s\n", marker, m.Phase, m.Status, m.Duration, m.Title, m.InstanceID)
	}
	if s.SessionPhase == "completed" {
		_, _ = fmt.Fprintf(w, "duration=%s journal=%d\n", (time.Duration(s.FinalDurationSeconds) * time.Second).String(), s.JournalEntries)
		WriteFollowUps(w, s.FollowUps)
	}
}

func WriteBooster(w io.Writer, b sessiondto.BoosterView) {
	_, _ = fmt.Fprintf(w, "considered=%t prepared=%t status=%s dose=%dmg due=%t snoozes=%d caution=%t\n",
		b.Considered, b.Prepared, b.Status, b.DoseMg, b.ShouldShow, b.SnoozeCount, b.CautionAdvised)
	if !b.NextPromptAt.IsZero() {
		_, _ = fmt.Fprintf(w, "next_prompt=%s\n", b.NextPromptAt.Format(timeFormat))
	}
	if !b.TakenAt.IsZero() {
		_, _ = fmt.Fprintf(w, "taken=%s\n", b.TakenAt.Format(timeFormat))
	}
	for _, k := range slices.Sorted(maps.Keys(b.Responses)) {
		_, _ = fmt.Fprintf(w, "%s=%s\n", k, b.Responses[k])
	}
	for _, k := range slices.Sorted(maps.Keys(b.Answers)) {
		if _, answered := b.Responses[k]; !answered {
			_, _ = fmt.Fprintf(w, "%s? %s\n", k, strings.Join(b.Answers[k], "|"))
		}
	}
}

func WriteFollowUps(w io.Writer, items []sessiondto.FollowUpView) {
	for _, f := range items {
		_, _ = fmt.Fprintf(w, "%s status=%s title=%q", f.ID, f.Status, f.Title)
		switch {
		case !f.CompletedAt.IsZero():
			_, _ = fmt.Fprintf(w, " completed=%s", f.CompletedAt.Format(timeFormat))
		case f.Remaining > 0:
			_, _ = fmt.Fprintf(w, " unlocks_in=%s", f.Remaining.Round(time.Minute))
		}
		_, _ = fmt.Fprintln(w)
	}
}

func WriteHistory(w io.Writer, items []sessiondto.HistoryItem) {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, "no history")
		return
	}
	for _, h := range items {
		_, _ = fmt.Fprintf(w, "%s %s phase=%s outcome=%s actual=%ds planned=%ds title=%q\n",
			h.EndedAt.Format(timeFormat), h.InstanceID, h.Phase, h.Outcome, h.ActualSeconds, h.PlannedSeconds, h.Title)
	}
}

func WriteCatalog(w io.Writer, items []sessiondto.CatalogItem) {
	for _, c := range items {
		_, _ = fmt.Fprintf(w, "%s duration=%dmin phases=%v booster=%t title=%q\n", c.ID, c.Duration, c.Phases, c.Booster, c.Title)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
