package domain

import "time"

const (
	StorageKey    = "companion-session-store"
	SchemaVersion = 5
)

type SessionPhase string

const (
	SessionNotStarted         SessionPhase = "not-started"
	SessionIntake             SessionPhase = "intake"
	SessionPreSession         SessionPhase = "pre-session"
	SessionSubstanceChecklist SessionPhase = "substance-checklist"
	SessionActive             SessionPhase = "active"
	SessionPaused             SessionPhase = "paused"
	SessionCompleted          SessionPhase = "completed"
)

// TimelinePhase is one of the three timed segments. The empty value means
// no phase is running (before the session starts and after it closes).
type TimelinePhase string

const (
	PhaseNone        TimelinePhase = ""
	PhaseComeUp      TimelinePhase = "come-up"
	PhasePeak        TimelinePhase = "peak"
	PhaseIntegration TimelinePhase = "integration"
)

var Phases = []TimelinePhase{PhaseComeUp, PhasePeak, PhaseIntegration}

func (p TimelinePhase) Valid() bool {
	switch p {
	case PhaseComeUp, PhasePeak, PhaseIntegration:
		return true
	default:
		return false
	}
}

type ModuleStatus string

const (
	ModuleUpcoming  ModuleStatus = "upcoming"
	ModuleActive    ModuleStatus = "active"
	ModuleCompleted ModuleStatus = "completed"
	ModuleSkipped   ModuleStatus = "skipped"
)

type State struct {
	Session              Session              `json:"session"`
	SessionPhase         SessionPhase         `json:"sessionPhase"`
	Intake               Intake               `json:"intake"`
	Timeline             Timeline             `json:"timeline"`
	Modules              Modules              `json:"modules"`
	SubstanceChecklist   SubstanceChecklist   `json:"substanceChecklist"`
	PreSubstanceActivity PreSubstanceActivity `json:"preSubstanceActivity"`
	ComeUpCheckIn        ComeUpCheckIn        `json:"comeUpCheckIn"`
	PeakCheckIn          PhaseCheckIn         `json:"peakCheckIn"`
	ClosingCheckIn       PhaseCheckIn         `json:"closingCheckIn"`
	PhaseTransitions     PhaseTransitions     `json:"phaseTransitions"`
	TransitionCaptures   TransitionCaptures   `json:"transitionCaptures"`
	Booster              Booster              `json:"booster"`
	FollowUp             FollowUp             `json:"followUp"`
	Journal              Journal              `json:"journal"`
}

type Session struct {
	ID                   string    `json:"id"`
	StartedAt            time.Time `json:"startedAt,omitzero"`
	PausedAt             time.Time `json:"pausedAt,omitzero"`
	ClosedAt             time.Time `json:"closedAt,omitzero"`
	FinalDurationSeconds int       `json:"finalDurationSeconds"`
}

type Intake struct {
	ExperienceLevel       string    `json:"experienceLevel"`
	SessionDuration       string    `json:"sessionDuration"`
	CustomDurationMinutes int       `json:"customDurationMinutes,omitempty"`
	ActivityPreferences   []string  `json:"activityPreferences"`
	ConsiderBooster       bool      `json:"considerBooster"`
	PrimaryFocus          string    `json:"primaryFocus"`
	Intention             string    `json:"intention"`
	CompletedAt           time.Time `json:"completedAt,omitzero"`
}

func (i Intake) Prefers(tag string) bool {
	for _, p := range i.ActivityPreferences {
		if p == tag {
			return true
		}
	}
	return false
}

type PhaseConfig struct {
	MinDuration       int       `json:"minDuration"`
	MaxDuration       int       `json:"maxDuration"`
	AllocatedDuration int       `json:"allocatedDuration"`
	StartedAt         time.Time `json:"startedAt,omitzero"`
	EndedAt           time.Time `json:"endedAt,omitzero"`
	EndedBy           string    `json:"endedBy,omitempty"`
}

type PhaseConfigs struct {
	ComeUp      PhaseConfig `json:"comeUp"`
	Peak        PhaseConfig `json:"peak"`
	Integration PhaseConfig `json:"integration"`
}

type Timeline struct {
	TargetDuration int           `json:"targetDuration"`
	CurrentPhase   TimelinePhase `json:"currentPhase"`
	Phases         PhaseConfigs  `json:"phases"`
}

// Phase returns a pointer into the per-phase config so callers can stamp it.
func (t *Timeline) Phase(p TimelinePhase) *PhaseConfig {
	switch p {
	case PhaseComeUp:
		return &t.Phases.ComeUp
	case PhasePeak:
		return &t.Phases.Peak
	case PhaseIntegration:
		return &t.Phases.Integration
	default:
		return nil
	}
}

type ModuleInstance struct {
	InstanceID  string        `json:"instanceId"`
	LibraryID   string        `json:"libraryId"`
	Phase       TimelinePhase `json:"phase"`
	Title       string        `json:"title"`
	Duration    int           `json:"duration"`
	Status      ModuleStatus  `json:"status"`
	Order       int           `json:"order"`
	Content     string        `json:"content,omitempty"`
	StartedAt   time.Time     `json:"startedAt,omitzero"`
	CompletedAt time.Time     `json:"completedAt,omitzero"`
}

// BoosterIndicator marks where the booster decision sits on the timeline.
// It shares the order space of its phase but is never a runnable module.
type BoosterIndicator struct {
	InstanceID string        `json:"instanceId"`
	LibraryID  string        `json:"libraryId"`
	Phase      TimelinePhase `json:"phase"`
	Title      string        `json:"title"`
	Order      int           `json:"order"`
}

type ModuleHistoryRecord struct {
	InstanceID             string        `json:"instanceId"`
	LibraryID              string        `json:"libraryId"`
	Phase                  TimelinePhase `json:"phase"`
	Title                  string        `json:"title"`
	Outcome                ModuleStatus  `json:"outcome"`
	StartedAt              time.Time     `json:"startedAt,omitzero"`
	EndedAt                time.Time     `json:"endedAt"`
	ActualDurationSeconds  int           `json:"actualDurationSeconds"`
	PlannedDurationSeconds int           `json:"plannedDurationSeconds"`
}

type Playback struct {
	IsPaused bool      `json:"isPaused"`
	PausedAt time.Time `json:"pausedAt,omitzero"`
	PausedBy string    `json:"pausedBy,omitempty"`
}

type Modules struct {
	Items                   []ModuleInstance      `json:"items"`
	BoosterIndicator        *BoosterIndicator     `json:"boosterIndicator,omitempty"`
	CurrentModuleInstanceID string                `json:"currentModuleInstanceId"`
	InOpenSpace             bool                  `json:"inOpenSpace"`
	Playback                Playback              `json:"playback"`
	History                 []ModuleHistoryRecord `json:"history"`
}

type DosageFeedback string

const (
	DosageUnset     DosageFeedback = ""
	DosageLight     DosageFeedback = "light"
	DosageModerate  DosageFeedback = "moderate"
	DosageStrong    DosageFeedback = "strong"
	DosageHeavy     DosageFeedback = "heavy"
	DosageDangerous DosageFeedback = "dangerous"
)

type SubstanceChecklist struct {
	PlannedDosageMg       int            `json:"plannedDosageMg"`
	DosageFeedback        DosageFeedback `json:"dosageFeedback"`
	HeavyDoseAcknowledged bool           `json:"heavyDoseAcknowledged"`
	TestedSubstance       bool           `json:"testedSubstance"`
	PreparedSpace         bool           `json:"preparedSpace"`
	HydrationReady        bool           `json:"hydrationReady"`
	SupportContactReady   bool           `json:"supportContactReady"`
	IngestionTime         time.Time      `json:"ingestionTime,omitzero"`
}

type PreSubstanceActivity struct {
	IntentionNote            string    `json:"intentionNote"`
	FocusWord                string    `json:"focusWord"`
	CenteringBreathCompleted bool      `json:"centeringBreathCompleted"`
	CompletedAt              time.Time `json:"completedAt,omitzero"`
}

type ComeUpResponse string

const (
	ComeUpNotYet       ComeUpResponse = "not-yet"
	ComeUpStarting     ComeUpResponse = "starting"
	ComeUpFullyArrived ComeUpResponse = "fully-arrived"
)

func (r ComeUpResponse) Valid() bool {
	switch r {
	case ComeUpNotYet, ComeUpStarting, ComeUpFullyArrived:
		return true
	default:
		return false
	}
}

type CheckInResponse struct {
	Response              ComeUpResponse `json:"response"`
	Timestamp             time.Time      `json:"timestamp"`
	MinutesSinceIngestion float64        `json:"minutesSinceIngestion"`
}

type ComeUpCheckIn struct {
	IsVisible                bool              `json:"isVisible"`
	PromptCount              int               `json:"promptCount"`
	LastPromptAt             time.Time         `json:"lastPromptAt,omitzero"`
	Responses                []CheckInResponse `json:"responses"`
	CurrentResponse          ComeUpResponse    `json:"currentResponse"`
	HasIndicatedFullyArrived bool              `json:"hasIndicatedFullyArrived"`
	ShowEndOfPhaseChoice     bool              `json:"showEndOfPhaseChoice"`
}

// FullyArrivedAt returns the first fully-arrived response, if any.
func (c ComeUpCheckIn) FullyArrivedAt() (CheckInResponse, bool) {
	for _, r := range c.Responses {
		if r.Response == ComeUpFullyArrived {
			return r, true
		}
	}
	return CheckInResponse{}, false
}

// PhaseCheckIn backs both the peak check-in and the closing check-in.
type PhaseCheckIn struct {
	IsVisible   bool      `json:"isVisible"`
	ShownAt     time.Time `json:"shownAt,omitzero"`
	DismissedAt time.Time `json:"dismissedAt,omitzero"`
	Response    string    `json:"response,omitempty"`
}

type TransitionKind string

const (
	TransitionNone              TransitionKind = ""
	TransitionComeUpToPeak      TransitionKind = "come-up-to-peak"
	TransitionPeakToIntegration TransitionKind = "peak-to-integration"
	TransitionClosing           TransitionKind = "closing"
)

func (k TransitionKind) Valid() bool {
	switch k {
	case TransitionComeUpToPeak, TransitionPeakToIntegration, TransitionClosing:
		return true
	default:
		return false
	}
}

type PhaseTransitions struct {
	ActiveTransition    TransitionKind   `json:"activeTransition"`
	TransitionStartedAt time.Time        `json:"transitionStartedAt,omitzero"`
	Completed           []TransitionKind `json:"completed"`
}

type CaptureSet struct {
	Responses   map[string]string `json:"responses"`
	CompletedAt time.Time         `json:"completedAt,omitzero"`
}

type TransitionCaptures struct {
	ComeUpToPeak      CaptureSet `json:"comeUpToPeak"`
	PeakToIntegration CaptureSet `json:"peakToIntegration"`
	Closing           CaptureSet `json:"closing"`
}

func (c *TransitionCaptures) For(kind TransitionKind) *CaptureSet {
	switch kind {
	case TransitionComeUpToPeak:
		return &c.ComeUpToPeak
	case TransitionPeakToIntegration:
		return &c.PeakToIntegration
	case TransitionClosing:
		return &c.Closing
	default:
		return nil
	}
}

type BoosterStatus string

const (
	BoosterPending  BoosterStatus = "pending"
	BoosterPrompted BoosterStatus = "prompted"
	BoosterTaken    BoosterStatus = "taken"
	BoosterSkipped  BoosterStatus = "skipped"
	BoosterSnoozed  BoosterStatus = "snoozed"
	BoosterExpired  BoosterStatus = "expired"
)

func (s BoosterStatus) Terminal() bool {
	return s == BoosterTaken || s == BoosterSkipped || s == BoosterExpired
}

type BoosterCheckInResponses struct {
	ExperienceQuality string `json:"experienceQuality,omitempty"`
	PhysicalState     string `json:"physicalState,omitempty"`
	Trajectory        string `json:"trajectory,omitempty"`
}

type Booster struct {
	ConsiderBooster   bool                    `json:"considerBooster"`
	BoosterPrepared   bool                    `json:"boosterPrepared"`
	Status            BoosterStatus           `json:"status"`
	BoosterTakenAt    time.Time               `json:"boosterTakenAt,omitzero"`
	BoosterDecisionAt time.Time               `json:"boosterDecisionAt,omitzero"`
	PromptedAt        time.Time               `json:"promptedAt,omitzero"`
	SnoozeCount       int                     `json:"snoozeCount"`
	NextPromptAt      time.Time               `json:"nextPromptAt,omitzero"`
	CheckInResponses  BoosterCheckInResponses `json:"checkInResponses"`
	IsModalVisible    bool                    `json:"isModalVisible"`
	IsMinimized       bool                    `json:"isMinimized"`
}

type FollowUpID string

const (
	FollowUpCheckIn     FollowUpID = "checkIn"
	FollowUpRevisit     FollowUpID = "revisit"
	FollowUpIntegration FollowUpID = "integration"
)

var FollowUpIDs = []FollowUpID{FollowUpCheckIn, FollowUpRevisit, FollowUpIntegration}

type FollowUpStatus string

const (
	FollowUpLocked    FollowUpStatus = "locked"
	FollowUpAvailable FollowUpStatus = "available"
	FollowUpCompleted FollowUpStatus = "completed"
)

type FollowUpModule struct {
	Status      FollowUpStatus    `json:"status"`
	UnlockTime  time.Time         `json:"unlockTime,omitzero"`
	CompletedAt time.Time         `json:"completedAt,omitzero"`
	Responses   map[string]string `json:"responses,omitempty"`
}

type FollowUp struct {
	CheckIn      FollowUpModule `json:"checkIn"`
	Revisit      FollowUpModule `json:"revisit"`
	Integration  FollowUpModule `json:"integration"`
	ActiveModule FollowUpID     `json:"activeModule,omitempty"`
}

func (f *FollowUp) Module(id FollowUpID) *FollowUpModule {
	switch id {
	case FollowUpCheckIn:
		return &f.CheckIn
	case FollowUpRevisit:
		return &f.Revisit
	case FollowUpIntegration:
		return &f.Integration
	default:
		return nil
	}
}

type JournalEntry struct {
	ID        string        `json:"id"`
	Phase     TimelinePhase `json:"phase"`
	Prompt    string        `json:"prompt,omitempty"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Journal struct {
	Entries []JournalEntry `json:"entries"`
}
