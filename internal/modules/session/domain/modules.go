package domain

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"companion/internal/platform/clock"
)

// slot identifies one ordered position in a phase: a module item by index, or
// the booster indicator when index is -1.
type slot struct {
	index int
}

var indicatorSlot = slot{index: -1}

func (m *Modules) find(instanceID string) int {
	for i := range m.Items {
		if m.Items[i].InstanceID == instanceID {
			return i
		}
	}
	return -1
}

func (m *Modules) isIndicator(instanceID string) bool {
	return m.BoosterIndicator != nil && m.BoosterIndicator.InstanceID == instanceID
}

func (m *Modules) orderOf(s slot) int {
	if s.index < 0 {
		return m.BoosterIndicator.Order
	}
	return m.Items[s.index].Order
}

func (m *Modules) setOrder(s slot, order int) {
	if s.index < 0 {
		m.BoosterIndicator.Order = order
		return
	}
	m.Items[s.index].Order = order
}

// slots lists the phase's positions by current order. On equal order, items
// sort before the indicator and keep their slice order.
func (m *Modules) slots(phase TimelinePhase) []slot {
	out := []slot{}
	for i := range m.Items {
		if m.Items[i].Phase == phase {
			out = append(out, slot{index: i})
		}
	}
	if m.BoosterIndicator != nil && m.BoosterIndicator.Phase == phase {
		out = append(out, indicatorSlot)
	}
	slices.SortStableFunc(out, func(a, b slot) int {
		if c := cmp.Compare(m.orderOf(a), m.orderOf(b)); c != 0 {
			return c
		}
		if a.index < 0 {
			return 1
		}
		if b.index < 0 {
			return -1
		}
		return cmp.Compare(a.index, b.index)
	})
	return out
}

func (m *Modules) assign(ordered []slot) {
	for i, s := range ordered {
		m.setOrder(s, i)
	}
}

// repack renumbers the phase to 0..n-1 preserving relative order.
func (m *Modules) repack(phase TimelinePhase) {
	m.assign(m.slots(phase))
}

// place moves target to position pos within phase and renumbers the rest.
func (m *Modules) place(phase TimelinePhase, target slot, pos int) {
	rest := slices.DeleteFunc(m.slots(phase), func(s slot) bool { return s == target })
	pos = max(0, min(pos, len(rest)))
	m.assign(slices.Insert(rest, pos, target))
}

func (m *Modules) activeIndex() int {
	for i := range m.Items {
		if m.Items[i].Status == ModuleActive {
			return i
		}
	}
	return -1
}

// nextUpcoming returns the lowest-order upcoming item in phase.
func (m *Modules) nextUpcoming(phase TimelinePhase) int {
	for _, s := range m.slots(phase) {
		if s.index >= 0 && m.Items[s.index].Status == ModuleUpcoming {
			return s.index
		}
	}
	return -1
}

func (m *Modules) removeAt(i int) {
	phase := m.Items[i].Phase
	m.Items = slices.Delete(m.Items, i, i+1)
	m.repack(phase)
}

func newInstance(env Env, entry CatalogEntry, phase TimelinePhase, order int) ModuleInstance {
	return ModuleInstance{
		InstanceID: env.IDs.New(),
		LibraryID:  entry.LibraryID,
		Phase:      phase,
		Title:      entry.Title,
		Duration:   entry.DefaultDuration,
		Status:     ModuleUpcoming,
		Order:      order,
		Content:    entry.Content,
	}
}

func boosterEntry(env Env) CatalogEntry {
	if env.Catalog != nil {
		if entry, ok := env.Catalog.Lookup(LibraryBooster); ok {
			return entry
		}
	}
	return CatalogEntry{LibraryID: LibraryBooster, Title: "Booster consideration", IsBoosterModule: true}
}

// insertBoosterIndicator places the indicator in the peak phase at
// min(1, peak slot count).
func insertBoosterIndicator(s *State, env Env, entry CatalogEntry) string {
	m := &s.Modules
	pos := min(1, len(m.slots(PhasePeak)))
	m.BoosterIndicator = &BoosterIndicator{
		InstanceID: env.IDs.New(),
		LibraryID:  entry.LibraryID,
		Phase:      PhasePeak,
		Title:      entry.Title,
		Order:      pos,
	}
	m.place(PhasePeak, indicatorSlot, pos)
	return m.BoosterIndicator.InstanceID
}

func activate(s *State, i int, now time.Time) {
	item := &s.Modules.Items[i]
	item.Status = ModuleActive
	item.StartedAt = now
	item.CompletedAt = time.Time{}
	s.Modules.CurrentModuleInstanceID = item.InstanceID
	s.Modules.InOpenSpace = false
	s.Modules.Playback = Playback{}
}

// finish closes item i with outcome and appends a history record.
func finish(s *State, i int, outcome ModuleStatus, now time.Time) {
	item := &s.Modules.Items[i]
	item.Status = outcome
	item.CompletedAt = now
	actual := item.Duration * 60
	if !item.StartedAt.IsZero() {
		actual = clock.SecondsBetween(item.StartedAt, now)
	}
	s.Modules.History = append(s.Modules.History, ModuleHistoryRecord{
		InstanceID:             item.InstanceID,
		LibraryID:              item.LibraryID,
		Phase:                  item.Phase,
		Title:                  item.Title,
		Outcome:                outcome,
		StartedAt:              item.StartedAt,
		EndedAt:                now,
		ActualDurationSeconds:  actual,
		PlannedDurationSeconds: item.Duration * 60,
	})
	if s.Modules.CurrentModuleInstanceID == item.InstanceID {
		s.Modules.CurrentModuleInstanceID = ""
		s.Modules.Playback = Playback{}
	}
}

// skipActive marks whatever module is still running as skipped. Used when a
// phase ends underneath it.
func skipActive(s *State, now time.Time) {
	if i := s.Modules.activeIndex(); i >= 0 {
		finish(s, i, ModuleSkipped, now)
	}
	s.Modules.CurrentModuleInstanceID = ""
	s.Modules.Playback = Playback{}
}

// enterOpenSpace marks the phase as out of planned modules and surfaces the
// phase check-in where one exists.
func enterOpenSpace(s *State, phase TimelinePhase, now time.Time) {
	s.Modules.InOpenSpace = true
	switch phase {
	case PhasePeak:
		showPhaseCheckIn(&s.PeakCheckIn, now)
	case PhaseIntegration:
		showPhaseCheckIn(&s.ClosingCheckIn, now)
	}
}

// advance runs after a module finishes and nothing else is active.
func advance(s *State, now time.Time) {
	phase := s.Timeline.CurrentPhase
	if phase == PhaseComeUp {
		// Come-up never auto-advances; the user is asked how they feel instead.
		s.Modules.InOpenSpace = s.Modules.nextUpcoming(PhaseComeUp) < 0
		c := &s.ComeUpCheckIn
		c.IsVisible = true
		if c.HasIndicatedFullyArrived {
			c.ShowEndOfPhaseChoice = true
			return
		}
		c.ShowEndOfPhaseChoice = false
		c.PromptCount++
		c.LastPromptAt = now
		return
	}
	if !phase.Valid() {
		return
	}
	if next := s.Modules.nextUpcoming(phase); next >= 0 {
		activate(s, next, now)
		return
	}
	enterOpenSpace(s, phase, now)
}

// StartModule activates an instance. Any other active module goes back to
// upcoming.
type StartModule struct {
	InstanceID string
}

func (StartModule) Name() string { return "startModule" }

func (a StartModule) apply(s *State, env Env) Result {
	i := s.Modules.find(a.InstanceID)
	if i < 0 || s.Modules.Items[i].Status == ModuleActive {
		return noop()
	}
	if prev := s.Modules.activeIndex(); prev >= 0 {
		s.Modules.Items[prev].Status = ModuleUpcoming
		s.Modules.Items[prev].StartedAt = time.Time{}
	}
	activate(s, i, env.Now)
	return Result{Applied: true, InstanceID: a.InstanceID}
}

type CompleteModule struct {
	InstanceID string
}

func (CompleteModule) Name() string { return "completeModule" }

func (a CompleteModule) apply(s *State, env Env) Result {
	return endModule(s, env, a.InstanceID, ModuleCompleted)
}

type SkipModule struct {
	InstanceID string
}

func (SkipModule) Name() string { return "skipModule" }

func (a SkipModule) apply(s *State, env Env) Result {
	return endModule(s, env, a.InstanceID, ModuleSkipped)
}

func endModule(s *State, env Env, instanceID string, outcome ModuleStatus) Result {
	i := s.Modules.find(instanceID)
	if i < 0 {
		return noop()
	}
	if st := s.Modules.Items[i].Status; st == ModuleCompleted || st == ModuleSkipped {
		return noop()
	}
	finish(s, i, outcome, env.Now)
	if s.Modules.activeIndex() < 0 {
		advance(s, env.Now)
	}
	return Result{Applied: true, InstanceID: instanceID}
}

// AddModule appends a catalog module to a phase. The booster entry becomes
// the timeline indicator instead of a runnable item.
type AddModule struct {
	LibraryID string
	Phase     TimelinePhase
}

func (AddModule) Name() string { return "addModule" }

func (a AddModule) apply(s *State, env Env) Result {
	if env.Catalog == nil {
		return rejected(fmt.Errorf("%w: %s", ErrUnknownLibraryModule, a.LibraryID))
	}
	entry, ok := env.Catalog.Lookup(a.LibraryID)
	if !ok {
		return rejected(fmt.Errorf("%w: %s", ErrUnknownLibraryModule, a.LibraryID))
	}
	if entry.IsBoosterModule {
		if s.Modules.BoosterIndicator != nil {
			return rejected(ErrBoosterAlreadyPresent)
		}
		id := insertBoosterIndicator(s, env, entry)
		s.Booster.ConsiderBooster = true
		return Result{Applied: true, InstanceID: id}
	}
	phase := a.Phase
	if phase == PhaseNone {
		phase = s.Timeline.CurrentPhase
	}
	if phase == PhaseNone && len(entry.Phases) > 0 {
		phase = entry.Phases[0]
	}
	if !phase.Valid() {
		return rejected(fmt.Errorf("%w: %q", ErrInvalidPhase, a.Phase))
	}
	item := newInstance(env, entry, phase, len(s.Modules.slots(phase)))
	s.Modules.Items = append(s.Modules.Items, item)
	s.Modules.repack(phase)
	return Result{
		Applied:    true,
		InstanceID: item.InstanceID,
		Effects:    []Effect{{Kind: EffectPrecache, LibraryIDs: []string{item.LibraryID}}},
	}
}

type RemoveModule struct {
	InstanceID string
}

func (RemoveModule) Name() string { return "removeModule" }

func (a RemoveModule) apply(s *State, _ Env) Result {
	if s.Modules.isIndicator(a.InstanceID) {
		phase := s.Modules.BoosterIndicator.Phase
		s.Modules.BoosterIndicator = nil
		s.Modules.repack(phase)
		s.Booster.ConsiderBooster = false
		return applied()
	}
	i := s.Modules.find(a.InstanceID)
	if i < 0 {
		return noop()
	}
	if s.Modules.Items[i].Status == ModuleActive {
		return rejected(ErrModuleActive)
	}
	s.Modules.removeAt(i)
	return applied()
}

// ReorderModule moves an instance, or the booster indicator, to a new
// position within its phase.
type ReorderModule struct {
	InstanceID string
	NewOrder   int
}

func (ReorderModule) Name() string { return "reorderModule" }

func (a ReorderModule) apply(s *State, _ Env) Result {
	m := &s.Modules
	if m.isIndicator(a.InstanceID) {
		m.place(m.BoosterIndicator.Phase, indicatorSlot, a.NewOrder)
		return applied()
	}
	i := m.find(a.InstanceID)
	if i < 0 {
		return noop()
	}
	m.place(m.Items[i].Phase, slot{index: i}, a.NewOrder)
	return applied()
}

// PausePlayback and ResumePlayback drive the active module's timer.
type PausePlayback struct{}

func (PausePlayback) Name() string { return "pausePlayback" }

func (PausePlayback) apply(s *State, env Env) Result {
	if !pausePlayback(s, env.Now, "user") {
		return noop()
	}
	return applied()
}

type ResumePlayback struct{}

func (ResumePlayback) Name() string { return "resumePlayback" }

func (ResumePlayback) apply(s *State, _ Env) Result {
	if !s.Modules.Playback.IsPaused {
		return noop()
	}
	resumePlayback(s)
	return applied()
}

func pausePlayback(s *State, now time.Time, by string) bool {
	if s.Modules.CurrentModuleInstanceID == "" || s.Modules.Playback.IsPaused {
		return false
	}
	s.Modules.Playback = Playback{IsPaused: true, PausedAt: now, PausedBy: by}
	return true
}

func resumePlayback(s *State) {
	s.Modules.Playback = Playback{}
}
