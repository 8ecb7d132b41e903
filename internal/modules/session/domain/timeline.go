package domain

// Intake duration choices.
var durationChoices = map[string]int{
	"3h": 180,
	"4h": 240,
	"5h": 300,
	"6h": 360,
}

const DefaultTargetMinutes = 240

// TargetDurationMinutes resolves the intake choice to minutes.
func TargetDurationMinutes(in Intake) int {
	if in.CustomDurationMinutes > 0 {
		return in.CustomDurationMinutes
	}
	if minutes, ok := durationChoices[in.SessionDuration]; ok {
		return minutes
	}
	return DefaultTargetMinutes
}

// PlanLibraryIDs lists the modules the generator picks for each phase, in order.
func PlanLibraryIDs(in Intake) map[TimelinePhase][]string {
	comeUp := []string{LibraryGrounding}
	if in.Prefers(PrefBreathing) {
		comeUp = append(comeUp, LibraryBreathMeditation)
	}
	if in.Prefers(PrefMusic) {
		comeUp = append(comeUp, LibraryMusicListening)
	} else {
		comeUp = append(comeUp, LibraryOpenAwareness)
	}

	peak := []string{LibraryHeartAwareness}
	if in.Prefers(PrefMeditation) {
		peak = append(peak, LibraryDeepMeditation)
	}
	if in.Prefers(PrefMusic) {
		peak = append(peak, LibraryMusicJourney)
	} else {
		peak = append(peak, LibraryOpenSpace)
	}

	integration := []string{}
	if in.Prefers(PrefJournaling) {
		integration = append(integration, LibraryJournalingReflection)
	}
	if in.Prefers(PrefMeditation) {
		integration = append(integration, LibraryIntegrationMeditation)
	}
	integration = append(integration, LibraryClosingRitual)

	return map[TimelinePhase][]string{
		PhaseComeUp:      comeUp,
		PhasePeak:        peak,
		PhaseIntegration: integration,
	}
}

// generateTimeline replaces the module list with one derived from in and
// returns the precache effect for everything it placed. Library ids missing
// from the catalog are left out.
func generateTimeline(s *State, env Env, in Intake) []Effect {
	target := TargetDurationMinutes(in)
	s.Timeline.TargetDuration = target
	s.Timeline.Phases.ComeUp.AllocatedDuration = ComeUpAllocationMinutes
	s.Timeline.Phases.Peak.AllocatedDuration = PeakAllocationMinutes
	s.Timeline.Phases.Integration.AllocatedDuration = max(0, target-ComeUpAllocationMinutes-PeakAllocationMinutes)

	s.Modules.Items = []ModuleInstance{}
	s.Modules.BoosterIndicator = nil
	s.Modules.CurrentModuleInstanceID = ""
	s.Modules.InOpenSpace = false
	s.Modules.Playback = Playback{}

	plan := PlanLibraryIDs(in)
	var precache []string
	place := func(phase TimelinePhase) {
		for _, libraryID := range plan[phase] {
			if env.Catalog == nil {
				return
			}
			entry, ok := env.Catalog.Lookup(libraryID)
			if !ok {
				continue
			}
			item := newInstance(env, entry, phase, len(s.Modules.slots(phase)))
			s.Modules.Items = append(s.Modules.Items, item)
			precache = append(precache, libraryID)
		}
		s.Modules.repack(phase)
	}

	place(PhaseComeUp)
	if in.ConsiderBooster {
		insertBoosterIndicator(s, env, boosterEntry(env))
	}
	place(PhasePeak)
	place(PhaseIntegration)

	if len(precache) == 0 {
		return nil
	}
	return []Effect{{Kind: EffectPrecache, LibraryIDs: precache}}
}

// GenerateTimelineFromIntake rebuilds the timeline from the given responses,
// or from the stored intake when Intake is nil.
type GenerateTimelineFromIntake struct {
	Intake *Intake
}

func (GenerateTimelineFromIntake) Name() string { return "generateTimelineFromIntake" }

func (a GenerateTimelineFromIntake) apply(s *State, env Env) Result {
	in := s.Intake
	if a.Intake != nil {
		in = *a.Intake
	}
	effects := generateTimeline(s, env, in)
	s.Booster.ConsiderBooster = in.ConsiderBooster
	return applied(effects...)
}
