package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"companion/internal/modules/session/domain"
	sessionout "companion/internal/modules/session/port/out"
	"companion/internal/platform/markdown"
	"companion/internal/platform/slug"
)

var followUpBlock = markdown.Block{Owner: "companion", Name: "follow-up"}

// MarkdownSessionExporter writes one note per session. Re-exporting refreshes
// the frontmatter and the follow-up block and leaves the rest of the note
// alone, so hand edits survive.
type MarkdownSessionExporter struct {
	dir string
}

func NewMarkdownSessionExporter(dir string) sessionout.SessionExporter {
	return &MarkdownSessionExporter{dir: dir}
}

func (e *MarkdownSessionExporter) ExportSession(_ context.Context, state domain.State) (string, error) {
	if state.Session.ID == "" {
		return "", fmt.Errorf("export session: session has no id")
	}
	path := e.notePath(state)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	body := renderSessionBody(state)
	if existing, err := os.ReadFile(path); err == nil {
		prev, parseErr := markdown.Parse(string(existing))
		if parseErr != nil {
			return "", parseErr
		}
		body = prev.Body
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read session note: %w", err)
	}
	note := markdown.Note{Meta: sessionMeta(state), Body: followUpBlock.Replace(body, renderFollowUps(state))}
	rendered, err := note.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write session note: %w", err)
	}
	return path, nil
}

func (e *MarkdownSessionExporter) notePath(state domain.State) string {
	started := state.Session.StartedAt
	short := state.Session.ID
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("%s-%s-%s.md", started.Format("2006-01-02"), slug.Make(state.Intake.Intention, 40, "session"), short)
	return filepath.Join(e.dir, started.Format("2006"), started.Format("01"), name)
}

func sessionMeta(state domain.State) map[string]any {
	meta := map[string]any{
		"schema_version":         domain.SchemaVersion,
		"id":                     state.Session.ID,
		"started_at":             formatTime(state.Session.StartedAt),
		"closed_at":              formatTime(state.Session.ClosedAt),
		"ingested_at":            formatTime(state.SubstanceChecklist.IngestionTime),
		"final_duration_minutes": state.Session.FinalDurationSeconds / 60,
		"target_minutes":         state.Timeline.TargetDuration,
		"dosage_mg":              state.SubstanceChecklist.PlannedDosageMg,
		"booster":                string(state.Booster.Status),
		"primary_focus":          state.Intake.PrimaryFocus,
	}
	followUps := map[string]string{}
	for _, id := range domain.FollowUpIDs {
		followUps[string(id)] = string(state.FollowUp.Module(id).Status)
	}
	meta["follow_up"] = followUps
	return meta
}

func renderSessionBody(state domain.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", state.Session.StartedAt.Format("2006-01-02"))
	if state.Intake.Intention != "" {
		fmt.Fprintf(&b, "## Intention\n\n%s\n\n", state.Intake.Intention)
	}

	b.WriteString("## Timeline\n\n")
	if len(state.Modules.History) == 0 {
		b.WriteString("No modules were run.\n\n")
	}
	for _, r := range state.Modules.History {
		fmt.Fprintf(&b, "- %s · %s · %s (%d min)\n", r.Phase, r.Title, r.Outcome, r.ActualDurationSeconds/60)
	}
	if len(state.Modules.History) > 0 {
		b.WriteString("\n")
	}

	if arrived, ok := state.ComeUpCheckIn.FullyArrivedAt(); ok {
		fmt.Fprintf(&b, "Fully arrived %.0f minutes after ingestion.\n\n", arrived.MinutesSinceIngestion)
	}
	if state.Booster.ConsiderBooster {
		fmt.Fprintf(&b, "Booster: %s", state.Booster.Status)
		if !state.Booster.BoosterTakenAt.IsZero() {
			fmt.Fprintf(&b, " at %s", state.Booster.BoosterTakenAt.Format("15:04"))
		}
		b.WriteString("\n\n")
	}

	for _, kind := range []domain.TransitionKind{domain.TransitionComeUpToPeak, domain.TransitionPeakToIntegration, domain.TransitionClosing} {
		capture := state.TransitionCaptures.For(kind)
		if len(capture.Responses) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", kind)
		keys := make([]string, 0, len(capture.Responses))
		for k := range capture.Responses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s**: %s\n", k, capture.Responses[k])
		}
		b.WriteString("\n")
	}

	if len(state.Journal.Entries) > 0 {
		b.WriteString("## Journal\n\n")
		for _, entry := range state.Journal.Entries {
			if entry.Prompt != "" {
				fmt.Fprintf(&b, "> %s\n\n", entry.Prompt)
			}
			fmt.Fprintf(&b, "%s\n\n", entry.Text)
		}
	}
	return b.String()
}

func renderFollowUps(state domain.State) string {
	var b strings.Builder
	b.WriteString("## Follow-up\n")
	for _, id := range domain.FollowUpIDs {
		m := state.FollowUp.Module(id)
		fmt.Fprintf(&b, "\n### %s (%s)\n", domain.FollowUpTitle(id), m.Status)
		if m.Status == domain.FollowUpLocked && !m.UnlockTime.IsZero() {
			fmt.Fprintf(&b, "\nUnlocks %s\n", m.UnlockTime.Format(timeLayout))
		}
		keys := make([]string, 0, len(m.Responses))
		for k := range m.Responses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			b.WriteString("\n")
		}
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s**: %s\n", k, m.Responses[k])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
