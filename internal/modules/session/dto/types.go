package dto

import "time"

type LoadOutput struct {
	Outcome     string
	FromVersion int
	Reason      string
}

type IntakeInput struct {
	ExperienceLevel       *string
	SessionDuration       *string
	CustomDurationMinutes *int
	ActivityPreferences   []string
	ConsiderBooster       *bool
	PrimaryFocus          *string
	Intention             *string
}

type PreSubstanceInput struct {
	IntentionNote            *string
	FocusWord                *string
	CenteringBreathCompleted *bool
	Complete                 bool
}

type ChecklistInput struct {
	PlannedDosageMg     *int
	TestedSubstance     *bool
	PreparedSpace       *bool
	HydrationReady      *bool
	SupportContactReady *bool
}

type AddModuleInput struct {
	LibraryID string
	// Phase is optional; the current phase or the module's first phase is used.
	Phase string
}

type AddModuleOutput struct {
	InstanceID string
	Status     StatusOutput
}

type CaptureInput struct {
	Kind  string
	Key   string
	Value string
}

type ModuleView struct {
	InstanceID string
	LibraryID  string
	Phase      string
	Title      string
	Duration   int
	Status     string
	Order      int
	IsBooster  bool
}

type CheckInView struct {
	Visible          bool
	PromptCount      int
	CurrentResponse  string
	FullyArrived     bool
	EndOfPhaseChoice bool
}

type BoosterView struct {
	Considered      bool
	Prepared        bool
	Status          string
	DoseMg          int
	ShouldShow      bool
	SnoozeAvailable bool
	CautionAdvised  bool
	ModalVisible    bool
	Minimized       bool
	SnoozeCount     int
	NextPromptAt    time.Time
	TakenAt         time.Time
	Responses       map[string]string
	Answers         map[string][]string
}

type FollowUpView struct {
	ID          string
	Title       string
	Status      string
	UnlockTime  time.Time
	Remaining   time.Duration
	CompletedAt time.Time
}

type StatusOutput struct {
	Changed               bool
	SessionID             string
	SessionPhase          string
	CurrentPhase          string
	TargetMinutes         int
	MinutesSinceIngestion float64
	PhaseElapsedMinutes   float64
	PhasePlannedMinutes   int
	ProgressPercent       int
	DosageFeedback        string
	CurrentModule         *ModuleView
	Timeline              []ModuleView
	InOpenSpace           bool
	PlaybackPaused        bool
	ComeUpCheckIn         CheckInView
	PeakCheckInVisible    bool
	ClosingCheckInVisible bool
	ActiveTransition      string
	Booster               BoosterView
	FollowUps             []FollowUpView
	JournalEntries        int
	FinalDurationSeconds  int
}

type HistoryItem struct {
	InstanceID     string
	LibraryID      string
	Phase          string
	Title          string
	Outcome        string
	StartedAt      time.Time
	EndedAt        time.Time
	ActualSeconds  int
	PlannedSeconds int
}

type CatalogItem struct {
	ID       string
	Title    string
	Duration int
	Phases   []string
	Tags     []string
	Booster  bool
}
