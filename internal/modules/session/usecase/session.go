package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"companion/internal/modules/session/domain"
	sessiondto "companion/internal/modules/session/dto"
	sessionin "companion/internal/modules/session/port/in"
	sessionout "companion/internal/modules/session/port/out"
	"companion/internal/modules/session/service"
	apperrors "companion/internal/platform/errors"
)

type Interactor struct {
	svc     *service.SessionService
	catalog sessionout.ModuleCatalog
}

func NewInteractor(svc *service.SessionService, catalog sessionout.ModuleCatalog) sessionin.Usecase {
	return &Interactor{svc: svc, catalog: catalog}
}

func (i *Interactor) Load(ctx context.Context) (sessiondto.LoadOutput, error) {
	restored, err := i.svc.Load(ctx)
	if err != nil {
		return sessiondto.LoadOutput{}, err
	}
	return sessiondto.LoadOutput{Outcome: string(restored.Outcome), FromVersion: restored.FromVersion, Reason: restored.Reason}, nil
}

func (i *Interactor) Status(ctx context.Context) (sessiondto.StatusOutput, error) {
	state, err := i.svc.Snapshot(ctx)
	if err != nil {
		return sessiondto.StatusOutput{}, err
	}
	return statusView(state, i.svc.Now(), false), nil
}

// dispatch runs one action and turns a rejection into an error.
func (i *Interactor) dispatch(ctx context.Context, action domain.Action) (sessiondto.StatusOutput, domain.Result, error) {
	state, res, err := i.svc.Dispatch(ctx, action)
	if err != nil {
		return sessiondto.StatusOutput{}, res, err
	}
	if res.Err != nil {
		return sessiondto.StatusOutput{}, res, fmt.Errorf("%w: %s: %w", apperrors.ErrActionRejected, action.Name(), res.Err)
	}
	return statusView(state, i.svc.Now(), res.Applied), res, nil
}

func (i *Interactor) do(ctx context.Context, action domain.Action) (sessiondto.StatusOutput, error) {
	out, _, err := i.dispatch(ctx, action)
	return out, err
}

func (i *Interactor) Reset(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.ResetSession{})
}

func (i *Interactor) StartIntake(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.StartIntake{})
}

func (i *Interactor) UpdateIntake(ctx context.Context, input sessiondto.IntakeInput) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.UpdateIntake{
		ExperienceLevel:       input.ExperienceLevel,
		SessionDuration:       input.SessionDuration,
		CustomDurationMinutes: input.CustomDurationMinutes,
		ActivityPreferences:   input.ActivityPreferences,
		ConsiderBooster:       input.ConsiderBooster,
		PrimaryFocus:          input.PrimaryFocus,
		Intention:             input.Intention,
	})
}

func (i *Interactor) CompleteIntake(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.CompleteIntake{})
}

func (i *Interactor) RecordPreSubstance(ctx context.Context, input sessiondto.PreSubstanceInput) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.RecordPreSubstanceActivity{
		IntentionNote:            input.IntentionNote,
		FocusWord:                input.FocusWord,
		CenteringBreathCompleted: input.CenteringBreathCompleted,
		Complete:                 input.Complete,
	})
}

func (i *Interactor) StartChecklist(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.StartSubstanceChecklist{})
}

func (i *Interactor) UpdateChecklist(ctx context.Context, input sessiondto.ChecklistInput) (sessiondto.StatusOutput, error) {
	if input.PlannedDosageMg != nil && *input.PlannedDosageMg < 0 {
		return sessiondto.StatusOutput{}, fmt.Errorf("%w: dosage must be non-negative", apperrors.ErrInvalidInput)
	}
	return i.do(ctx, domain.UpdateSubstanceChecklist{
		PlannedDosageMg:     input.PlannedDosageMg,
		TestedSubstance:     input.TestedSubstance,
		PreparedSpace:       input.PreparedSpace,
		HydrationReady:      input.HydrationReady,
		SupportContactReady: input.SupportContactReady,
	})
}

func (i *Interactor) AcknowledgeHeavyDose(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.AcknowledgeHeavyDose{})
}

func (i *Interactor) RecordIngestion(ctx context.Context, at time.Time) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.RecordIngestionTime{At: at})
}

func (i *Interactor) StartSession(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.StartSession{})
}

func (i *Interactor) PauseSession(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.PauseSession{})
}

func (i *Interactor) ResumeSession(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.ResumeSession{})
}

func (i *Interactor) CompleteSession(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.CompleteSession{})
}

func (i *Interactor) StartModule(ctx context.Context, instanceID string) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.StartModule{InstanceID: instanceID})
}

func (i *Interactor) CompleteModule(ctx context.Context, instanceID string) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.CompleteModule{InstanceID: i.resolveModule(ctx, instanceID)})
}

func (i *Interactor) SkipModule(ctx context.Context, instanceID string) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.SkipModule{InstanceID: i.resolveModule(ctx, instanceID)})
}

// resolveModule defaults an empty id to the running module.
func (i *Interactor) resolveModule(ctx context.Context, instanceID string) string {
	if strings.TrimSpace(instanceID) != "" {
		return instanceID
	}
	state, err := i.svc.Snapshot(ctx)
	if err != nil {
		return ""
	}
	return state.Modules.CurrentModuleInstanceID
}

func (i *Interactor) AddModule(ctx context.Context, input sessiondto.AddModuleInput) (sessiondto.AddModuleOutput, error) {
	if strings.TrimSpace(input.LibraryID) == "" {
		return sessiondto.AddModuleOutput{}, fmt.Errorf("%w: library id is required", apperrors.ErrInvalidInput)
	}
	phase := domain.TimelinePhase(input.Phase)
	if phase != domain.PhaseNone && !phase.Valid() {
		return sessiondto.AddModuleOutput{}, fmt.Errorf("%w: unknown phase %q", apperrors.ErrInvalidInput, input.Phase)
	}
	out, res, err := i.dispatch(ctx, domain.AddModule{LibraryID: input.LibraryID, Phase: phase})
	if err != nil {
		return sessiondto.AddModuleOutput{}, err
	}
	return sessiondto.AddModuleOutput{InstanceID: res.InstanceID, Status: out}, nil
}

func (i *Interactor) RemoveModule(ctx context.Context, instanceID string) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.RemoveModule{InstanceID: instanceID})
}

func (i *Interactor) ReorderModule(ctx context.Context, instanceID string, order int) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.ReorderModule{InstanceID: instanceID, NewOrder: order})
}

func (i *Interactor) PausePlayback(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.PausePlayback{})
}

func (i *Interactor) ResumePlayback(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.ResumePlayback{})
}

func (i *Interactor) OpenCheckIn(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.OpenComeUpCheckIn{})
}

func (i *Interactor) RespondCheckIn(ctx context.Context, response string) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.RecordCheckInResponse{Response: domain.ComeUpResponse(response)})
}

func (i *Interactor) ContinueComeUp(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.ChooseContinueComeUp{})
}

func (i *Interactor) DismissCheckIn(ctx context.Context, phase, response string) (sessiondto.StatusOutput, error) {
	switch phase {
	case "peak":
		return i.do(ctx, domain.DismissPeakCheckIn{Response: response})
	case "closing":
		return i.do(ctx, domain.DismissClosingCheckIn{Response: response})
	default:
		return sessiondto.StatusOutput{}, fmt.Errorf("%w: check-in must be peak or closing, got %q", apperrors.ErrInvalidInput, phase)
	}
}

func (i *Interactor) BeginTransition(ctx context.Context, target string) (sessiondto.StatusOutput, error) {
	switch target {
	case string(domain.PhasePeak):
		return i.do(ctx, domain.BeginPeakTransition{})
	case string(domain.PhaseIntegration):
		return i.do(ctx, domain.BeginIntegrationTransition{})
	case string(domain.TransitionClosing):
		return i.do(ctx, domain.BeginClosingRitual{})
	default:
		return sessiondto.StatusOutput{}, fmt.Errorf("%w: transition target must be peak, integration or closing, got %q", apperrors.ErrInvalidInput, target)
	}
}

func (i *Interactor) CompleteTransition(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.CompleteTransition{})
}

func (i *Interactor) CaptureTransition(ctx context.Context, input sessiondto.CaptureInput) (sessiondto.StatusOutput, error) {
	if strings.TrimSpace(input.Key) == "" {
		return sessiondto.StatusOutput{}, fmt.Errorf("%w: capture key is required", apperrors.ErrInvalidInput)
	}
	return i.do(ctx, domain.RecordTransitionCapture{Kind: domain.TransitionKind(input.Kind), Key: input.Key, Value: input.Value})
}

func (i *Interactor) Booster(ctx context.Context) (sessiondto.BoosterView, error) {
	state, err := i.svc.Snapshot(ctx)
	if err != nil {
		return sessiondto.BoosterView{}, err
	}
	return boosterView(state, i.svc.Now()), nil
}

func (i *Interactor) RespondBooster(ctx context.Context, field, value string) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.RecordBoosterCheckIn{Field: field, Value: value})
}

func (i *Interactor) TakeBooster(ctx context.Context, at time.Time) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.TakeBooster{At: at})
}

func (i *Interactor) SkipBooster(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.SkipBooster{})
}

func (i *Interactor) SnoozeBooster(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.SnoozeBooster{})
}

func (i *Interactor) MinimizeBooster(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.MinimizeBooster{})
}

func (i *Interactor) MaximizeBooster(ctx context.Context) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.MaximizeBooster{})
}

func (i *Interactor) SetBoosterPrepared(ctx context.Context, prepared bool) (sessiondto.StatusOutput, error) {
	return i.do(ctx, domain.SetBoosterPrepared{Prepared: prepared})
}

func (i *Interactor) CheckFollowUps(ctx context.Context) ([]sessiondto.FollowUpView, error) {
	out, err := i.do(ctx, domain.CheckFollowUpAvailability{})
	if err != nil {
		return nil, err
	}
	return out.FollowUps, nil
}

func (i *Interactor) StartFollowUp(ctx context.Context, id string) (sessiondto.StatusOutput, error) {
	followUp, err := domain.ParseFollowUpID(id)
	if err != nil {
		return sessiondto.StatusOutput{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	return i.do(ctx, domain.StartFollowUpModule{ID: followUp})
}

func (i *Interactor) CompleteFollowUp(ctx context.Context, id string, responses map[string]string) (sessiondto.StatusOutput, error) {
	followUp, err := domain.ParseFollowUpID(id)
	if err != nil {
		return sessiondto.StatusOutput{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	return i.do(ctx, domain.CompleteFollowUpModule{ID: followUp, Responses: responses})
}

func (i *Interactor) AddJournalEntry(ctx context.Context, prompt, text string) (sessiondto.StatusOutput, error) {
	if strings.TrimSpace(text) == "" {
		return sessiondto.StatusOutput{}, fmt.Errorf("%w: journal text is required", apperrors.ErrInvalidInput)
	}
	return i.do(ctx, domain.AddJournalEntry{Prompt: prompt, Text: text})
}

func (i *Interactor) History(ctx context.Context, limit int) ([]sessiondto.HistoryItem, error) {
	records, err := i.svc.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]sessiondto.HistoryItem, 0, len(records))
	for _, r := range records {
		out = append(out, sessiondto.HistoryItem{
			InstanceID:     r.InstanceID,
			LibraryID:      r.LibraryID,
			Phase:          string(r.Phase),
			Title:          r.Title,
			Outcome:        string(r.Outcome),
			StartedAt:      r.StartedAt,
			EndedAt:        r.EndedAt,
			ActualSeconds:  r.ActualDurationSeconds,
			PlannedSeconds: r.PlannedDurationSeconds,
		})
	}
	return out, nil
}

func (i *Interactor) Catalog(context.Context) ([]sessiondto.CatalogItem, error) {
	if i.catalog == nil {
		return nil, nil
	}
	entries := i.catalog.List()
	out := make([]sessiondto.CatalogItem, 0, len(entries))
	for _, e := range entries {
		phases := make([]string, 0, len(e.Phases))
		for _, p := range e.Phases {
			phases = append(phases, string(p))
		}
		out = append(out, sessiondto.CatalogItem{
			ID:       e.LibraryID,
			Title:    e.Title,
			Duration: e.DefaultDuration,
			Phases:   phases,
			Tags:     e.Tags,
			Booster:  e.IsBoosterModule,
		})
	}
	return out, nil
}
