package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"companion/internal/modules/session/domain"
	sessionout "companion/internal/modules/session/port/out"
	"companion/internal/platform/clock"
	apperrors "companion/internal/platform/errors"
	"companion/internal/platform/id"
	"companion/internal/platform/tx"

	hclog "github.com/hashicorp/go-hclog"
)

const precacheTimeout = 30 * time.Second

// Dependencies wires the service. Store, Catalog, Clock and IDs are required;
// the rest are skipped when nil.
type Dependencies struct {
	Clock     clock.Clock
	IDs       id.Generator
	Catalog   sessionout.ModuleCatalog
	Store     sessionout.StateStore
	History   sessionout.HistoryProjector
	Precacher sessionout.AudioPrecacher
	Shell     sessionout.AppShell
	Exporter  sessionout.SessionExporter
	Tx        tx.Manager
	Logger    hclog.Logger
}

// SessionService owns the one state value. Every dispatch and tick replaces
// it under the mutex and persists the result before effects run.
type SessionService struct {
	mu     sync.Mutex
	deps   Dependencies
	logger hclog.Logger
	state  domain.State
	loaded bool

	inflight sync.WaitGroup
}

func NewSessionService(deps Dependencies) *SessionService {
	if deps.Tx == nil {
		deps.Tx = tx.NoopManager{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &SessionService{deps: deps, logger: logger.Named("session")}
}

// Load restores persisted state, migrating or resetting it as needed.
func (s *SessionService) Load(ctx context.Context) (domain.Restored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *SessionService) load(ctx context.Context) (domain.Restored, error) {
	raw, err := s.deps.Store.Load(ctx)
	if err != nil && !errors.Is(err, apperrors.ErrNoPersistedState) {
		return domain.Restored{}, fmt.Errorf("load state: %w", err)
	}
	restored, err := domain.Decode(raw)
	if err != nil {
		return domain.Restored{}, err
	}
	switch restored.Outcome {
	case domain.RestoreReset:
		s.logger.Warn("discarded persisted state", "from_version", restored.FromVersion, "reason", restored.Reason)
	case domain.RestoreMigrated:
		s.logger.Info("migrated persisted state", "from_version", restored.FromVersion, "to_version", domain.SchemaVersion)
	default:
		s.logger.Debug("restored state", "outcome", restored.Outcome)
	}
	if restored.Outcome == domain.RestoreReset {
		if err := s.deps.Store.Clear(ctx); err != nil {
			return domain.Restored{}, fmt.Errorf("clear discarded state: %w", err)
		}
	}
	if restored.Outcome == domain.RestoreReset || restored.Outcome == domain.RestoreMigrated {
		if err := s.save(ctx, restored.State); err != nil {
			return domain.Restored{}, err
		}
	}
	s.state = restored.State
	s.loaded = true
	return restored, nil
}

func (s *SessionService) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	_, err := s.load(ctx)
	return err
}

func (s *SessionService) Snapshot(ctx context.Context) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.State{}, err
	}
	return s.state.Clone(), nil
}

func (s *SessionService) Now() time.Time {
	return s.deps.Clock.Now()
}

// Dispatch applies one action. A rejected action is reported through the
// returned Result, not the error; the error is for infrastructure failures.
func (s *SessionService) Dispatch(ctx context.Context, action domain.Action) (domain.State, domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.State{}, domain.Result{}, err
	}
	env := domain.Env{Now: s.deps.Clock.Now(), IDs: s.deps.IDs, Catalog: s.deps.Catalog}
	next, res := domain.Dispatch(s.state, action, env)
	if res.Err != nil {
		s.logger.Debug("action rejected", "action", action.Name(), "error", res.Err)
		return s.state.Clone(), res, nil
	}
	if !res.Applied {
		return s.state.Clone(), res, nil
	}
	if err := s.commit(ctx, next, res.Effects); err != nil {
		return s.state.Clone(), res, err
	}
	s.logger.Debug("action applied", "action", action.Name(), "phase", s.state.Timeline.CurrentPhase, "session_phase", s.state.SessionPhase)
	return s.state.Clone(), res, nil
}

// Tick evaluates the time gates once.
func (s *SessionService) Tick(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return false, err
	}
	next, effects, changed := domain.EvaluateTimeGates(s.state, s.deps.Clock.Now())
	if !changed {
		return false, nil
	}
	if err := s.commit(ctx, next, effects); err != nil {
		return false, err
	}
	s.logger.Debug("time gates fired", "effects", len(effects))
	return true, nil
}

// History lists recently finished modules, newest first.
func (s *SessionService) History(ctx context.Context, limit int) ([]domain.ModuleHistoryRecord, error) {
	if s.deps.History == nil {
		snap, err := s.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		records := snap.Modules.History
		out := make([]domain.ModuleHistoryRecord, 0, len(records))
		for i := len(records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
			out = append(out, records[i])
		}
		return out, nil
	}
	return s.deps.History.ListHistory(ctx, limit)
}

// Close waits for in-flight precache calls.
func (s *SessionService) Close() {
	s.inflight.Wait()
}

func (s *SessionService) commit(ctx context.Context, next domain.State, effects []domain.Effect) error {
	prev := s.state
	err := s.deps.Tx.Within(ctx, func(ctx context.Context) error {
		if err := s.save(ctx, next); err != nil {
			return err
		}
		return s.project(ctx, prev, next)
	})
	if err != nil {
		return err
	}
	s.state = next
	s.perform(ctx, next, effects)
	return nil
}

func (s *SessionService) save(ctx context.Context, state domain.State) error {
	blob, err := domain.Encode(state)
	if err != nil {
		return err
	}
	if err := s.deps.Store.Save(ctx, blob); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *SessionService) project(ctx context.Context, prev, next domain.State) error {
	if s.deps.History == nil {
		return nil
	}
	if n := len(prev.Modules.History); len(next.Modules.History) > n {
		if err := s.deps.History.ProjectModules(ctx, next.Session.ID, next.Modules.History[n:]); err != nil {
			return fmt.Errorf("project module history: %w", err)
		}
	}
	if next.SessionPhase == domain.SessionCompleted && prev.SessionPhase != domain.SessionCompleted {
		if err := s.deps.History.ProjectSession(ctx, next); err != nil {
			return fmt.Errorf("project session: %w", err)
		}
	}
	return nil
}

func (s *SessionService) perform(ctx context.Context, state domain.State, effects []domain.Effect) {
	for _, effect := range effects {
		switch effect.Kind {
		case domain.EffectPrecache:
			s.precache(effect.LibraryIDs)
		case domain.EffectSwitchTab:
			if s.deps.Shell != nil {
				s.deps.Shell.SetCurrentTab(ctx, effect.Tab)
			}
		case domain.EffectNotify:
			if s.deps.Shell == nil || !s.deps.Shell.NotificationsPermitted() {
				continue
			}
			if err := s.deps.Shell.Notify(ctx, effect.Title, effect.Body); err != nil {
				s.logger.Warn("notification failed", "title", effect.Title, "error", err)
			}
		case domain.EffectExportSession:
			if s.deps.Exporter == nil {
				continue
			}
			path, err := s.deps.Exporter.ExportSession(ctx, state)
			if err != nil {
				s.logger.Warn("session export failed", "error", err)
				continue
			}
			s.logger.Info("session exported", "path", path)
		}
	}
}

func (s *SessionService) precache(libraryIDs []string) {
	if s.deps.Precacher == nil || len(libraryIDs) == 0 {
		return
	}
	ids := append([]string(nil), libraryIDs...)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), precacheTimeout)
		defer cancel()
		if err := s.deps.Precacher.Precache(ctx, ids); err != nil {
			s.logger.Warn("audio precache failed", "modules", len(ids), "error", err)
			return
		}
		s.logger.Debug("audio precached", "modules", len(ids))
	}()
}
