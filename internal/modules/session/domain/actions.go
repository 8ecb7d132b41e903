package domain

import (
	"errors"
	"time"
)

var (
	ErrUnknownLibraryModule    = errors.New("unknown library module")
	ErrInvalidPhase            = errors.New("invalid timeline phase")
	ErrModuleActive            = errors.New("module is active")
	ErrBoosterAlreadyPresent   = errors.New("booster module already in timeline")
	ErrBoosterNotPlanned       = errors.New("booster is not planned for this session")
	ErrBoosterDecided          = errors.New("booster decision already made")
	ErrSnoozeUnavailable       = errors.New("snooze would pass the booster window")
	ErrInvalidResponse         = errors.New("invalid response value")
	ErrTransitionNotAllowed    = errors.New("transition not allowed")
	ErrNoActiveTransition      = errors.New("no active transition")
	ErrWrongSessionPhase       = errors.New("action not allowed in current session phase")
	ErrDosageRequired          = errors.New("planned dosage is required")
	ErrDangerousDose           = errors.New("planned dosage is above the safe limit")
	ErrHeavyDoseUnacknowledged = errors.New("heavy dosage must be acknowledged")
	ErrUnknownFollowUp         = errors.New("unknown follow-up module")
	ErrFollowUpLocked          = errors.New("follow-up module is locked")
)

// IDSource matches platform id.Generator without importing it.
type IDSource interface {
	New() string
}

// Catalog is the read-only content library keyed by library id.
type Catalog interface {
	Lookup(libraryID string) (CatalogEntry, bool)
}

// Env carries everything an action may read besides the state itself.
type Env struct {
	Now     time.Time
	IDs     IDSource
	Catalog Catalog
}

type EffectKind string

const (
	EffectPrecache      EffectKind = "precache"
	EffectSwitchTab     EffectKind = "switch-tab"
	EffectNotify        EffectKind = "notify"
	EffectExportSession EffectKind = "export-session"
)

// Effect is a side effect the caller performs after the new state is stored.
type Effect struct {
	Kind       EffectKind
	LibraryIDs []string
	Tab        string
	Title      string
	Body       string
}

type Result struct {
	// Applied is false for silent no-ops and for rejected actions.
	Applied    bool
	Err        error
	InstanceID string
	Effects    []Effect
}

func (r Result) Success() bool {
	return r.Err == nil
}

func applied(effects ...Effect) Result {
	return Result{Applied: true, Effects: effects}
}

func rejected(err error) Result {
	return Result{Err: err}
}

func noop() Result {
	return Result{}
}

// Action is one command against the state tree.
type Action interface {
	Name() string
	apply(s *State, env Env) Result
}

// Dispatch applies action to a copy of s. The input is never mutated; when the
// action is rejected or is a no-op the original value is returned unchanged.
func Dispatch(s State, action Action, env Env) (State, Result) {
	next := s.Clone()
	res := action.apply(&next, env)
	if res.Err != nil || !res.Applied {
		return s, res
	}
	return next, res
}

const (
	TabHome     = "home"
	TabSession  = "session"
	TabFollowUp = "follow-up"
)
