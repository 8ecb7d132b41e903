package in

import (
	"context"
	"time"

	"companion/internal/modules/session/dto"
)

// Usecase is the driver-facing surface of the session companion. Every
// command returns the resulting status; a rejected command returns an error
// wrapping apperrors.ErrActionRejected.
type Usecase interface {
	Load(ctx context.Context) (dto.LoadOutput, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
	Reset(ctx context.Context) (dto.StatusOutput, error)

	StartIntake(ctx context.Context) (dto.StatusOutput, error)
	UpdateIntake(ctx context.Context, input dto.IntakeInput) (dto.StatusOutput, error)
	CompleteIntake(ctx context.Context) (dto.StatusOutput, error)
	RecordPreSubstance(ctx context.Context, input dto.PreSubstanceInput) (dto.StatusOutput, error)

	StartChecklist(ctx context.Context) (dto.StatusOutput, error)
	UpdateChecklist(ctx context.Context, input dto.ChecklistInput) (dto.StatusOutput, error)
	AcknowledgeHeavyDose(ctx context.Context) (dto.StatusOutput, error)
	RecordIngestion(ctx context.Context, at time.Time) (dto.StatusOutput, error)

	StartSession(ctx context.Context) (dto.StatusOutput, error)
	PauseSession(ctx context.Context) (dto.StatusOutput, error)
	ResumeSession(ctx context.Context) (dto.StatusOutput, error)
	CompleteSession(ctx context.Context) (dto.StatusOutput, error)

	StartModule(ctx context.Context, instanceID string) (dto.StatusOutput, error)
	CompleteModule(ctx context.Context, instanceID string) (dto.StatusOutput, error)
	SkipModule(ctx context.Context, instanceID string) (dto.StatusOutput, error)
	AddModule(ctx context.Context, input dto.AddModuleInput) (dto.AddModuleOutput, error)
	RemoveModule(ctx context.Context, instanceID string) (dto.StatusOutput, error)
	ReorderModule(ctx context.Context, instanceID string, order int) (dto.StatusOutput, error)
	PausePlayback(ctx context.Context) (dto.StatusOutput, error)
	ResumePlayback(ctx context.Context) (dto.StatusOutput, error)

	OpenCheckIn(ctx context.Context) (dto.StatusOutput, error)
	RespondCheckIn(ctx context.Context, response string) (dto.StatusOutput, error)
	ContinueComeUp(ctx context.Context) (dto.StatusOutput, error)
	DismissCheckIn(ctx context.Context, phase, response string) (dto.StatusOutput, error)

	BeginTransition(ctx context.Context, target string) (dto.StatusOutput, error)
	CompleteTransition(ctx context.Context) (dto.StatusOutput, error)
	CaptureTransition(ctx context.Context, input dto.CaptureInput) (dto.StatusOutput, error)

	Booster(ctx context.Context) (dto.BoosterView, error)
	RespondBooster(ctx context.Context, field, value string) (dto.StatusOutput, error)
	TakeBooster(ctx context.Context, at time.Time) (dto.StatusOutput, error)
	SkipBooster(ctx context.Context) (dto.StatusOutput, error)
	SnoozeBooster(ctx context.Context) (dto.StatusOutput, error)
	MinimizeBooster(ctx context.Context) (dto.StatusOutput, error)
	MaximizeBooster(ctx context.Context) (dto.StatusOutput, error)
	SetBoosterPrepared(ctx context.Context, prepared bool) (dto.StatusOutput, error)

	CheckFollowUps(ctx context.Context) ([]dto.FollowUpView, error)
	StartFollowUp(ctx context.Context, id string) (dto.StatusOutput, error)
	CompleteFollowUp(ctx context.Context, id string, responses map[string]string) (dto.StatusOutput, error)

	AddJournalEntry(ctx context.Context, prompt, text string) (dto.StatusOutput, error)
	History(ctx context.Context, limit int) ([]dto.HistoryItem, error)
	Catalog(ctx context.Context) ([]dto.CatalogItem, error)
}
