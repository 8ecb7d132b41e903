package domain

import "maps"

const (
	ComeUpAllocationMinutes = 45
	PeakAllocationMinutes   = 90
)

// NewState is the fresh tree produced by resetSession.
func NewState() State {
	return State{
		SessionPhase:         SessionNotStarted,
		Intake:               Intake{ActivityPreferences: []string{}},
		Timeline:             DefaultTimeline(),
		Modules:              Modules{Items: []ModuleInstance{}, History: []ModuleHistoryRecord{}},
		PreSubstanceActivity: DefaultPreSubstanceActivity(),
		ComeUpCheckIn:        ComeUpCheckIn{Responses: []CheckInResponse{}},
		PhaseTransitions:     PhaseTransitions{Completed: []TransitionKind{}},
		TransitionCaptures:   DefaultTransitionCaptures(),
		Booster:              DefaultBooster(),
		FollowUp:             DefaultFollowUp(),
		Journal:              Journal{Entries: []JournalEntry{}},
	}
}

func DefaultTimeline() Timeline {
	return Timeline{
		Phases: PhaseConfigs{
			ComeUp:      PhaseConfig{MinDuration: 30, MaxDuration: 90, AllocatedDuration: ComeUpAllocationMinutes},
			Peak:        PhaseConfig{MinDuration: 60, MaxDuration: 150, AllocatedDuration: PeakAllocationMinutes},
			Integration: PhaseConfig{MinDuration: 60, MaxDuration: 240},
		},
	}
}

func DefaultBooster() Booster {
	return Booster{Status: BoosterPending}
}

func DefaultPreSubstanceActivity() PreSubstanceActivity {
	return PreSubstanceActivity{}
}

func DefaultTransitionCaptures() TransitionCaptures {
	return TransitionCaptures{
		ComeUpToPeak:      CaptureSet{Responses: map[string]string{}},
		PeakToIntegration: CaptureSet{Responses: map[string]string{}},
		Closing:           CaptureSet{Responses: map[string]string{}},
	}
}

func DefaultFollowUp() FollowUp {
	return FollowUp{
		CheckIn:     FollowUpModule{Status: FollowUpLocked},
		Revisit:     FollowUpModule{Status: FollowUpLocked},
		Integration: FollowUpModule{Status: FollowUpLocked},
	}
}

// Clone deep-copies every slice, map and pointer so an action can mutate the
// copy while the previous value stays observable.
func (s State) Clone() State {
	out := s
	out.Intake.ActivityPreferences = append([]string{}, s.Intake.ActivityPreferences...)
	out.Modules.Items = append([]ModuleInstance{}, s.Modules.Items...)
	out.Modules.History = append([]ModuleHistoryRecord{}, s.Modules.History...)
	if s.Modules.BoosterIndicator != nil {
		indicator := *s.Modules.BoosterIndicator
		out.Modules.BoosterIndicator = &indicator
	}
	out.ComeUpCheckIn.Responses = append([]CheckInResponse{}, s.ComeUpCheckIn.Responses...)
	out.PhaseTransitions.Completed = append([]TransitionKind{}, s.PhaseTransitions.Completed...)
	out.TransitionCaptures.ComeUpToPeak.Responses = cloneMap(s.TransitionCaptures.ComeUpToPeak.Responses)
	out.TransitionCaptures.PeakToIntegration.Responses = cloneMap(s.TransitionCaptures.PeakToIntegration.Responses)
	out.TransitionCaptures.Closing.Responses = cloneMap(s.TransitionCaptures.Closing.Responses)
	for _, id := range FollowUpIDs {
		m := out.FollowUp.Module(id)
		if m.Responses != nil {
			m.Responses = cloneMap(m.Responses)
		}
	}
	out.Journal.Entries = append([]JournalEntry{}, s.Journal.Entries...)
	return out
}

// normalize fills nil collections and unset enums left behind by older blobs.
func (s *State) normalize() {
	if s.SessionPhase == "" {
		s.SessionPhase = SessionNotStarted
	}
	if s.Intake.ActivityPreferences == nil {
		s.Intake.ActivityPreferences = []string{}
	}
	if s.Modules.Items == nil {
		s.Modules.Items = []ModuleInstance{}
	}
	for _, p := range Phases {
		s.Modules.repack(p)
	}
	if s.Modules.History == nil {
		s.Modules.History = []ModuleHistoryRecord{}
	}
	if s.ComeUpCheckIn.Responses == nil {
		s.ComeUpCheckIn.Responses = []CheckInResponse{}
	}
	if s.PhaseTransitions.Completed == nil {
		s.PhaseTransitions.Completed = []TransitionKind{}
	}
	for _, kind := range []TransitionKind{TransitionComeUpToPeak, TransitionPeakToIntegration, TransitionClosing} {
		set := s.TransitionCaptures.For(kind)
		if set.Responses == nil {
			set.Responses = map[string]string{}
		}
	}
	if s.Booster.Status == "" {
		s.Booster.Status = BoosterPending
	}
	for _, id := range FollowUpIDs {
		m := s.FollowUp.Module(id)
		if m.Status == "" {
			m.Status = FollowUpLocked
		}
	}
	if s.Journal.Entries == nil {
		s.Journal.Entries = []JournalEntry{}
	}
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	maps.Copy(out, in)
	return out
}
