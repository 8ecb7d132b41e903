package out

import (
	"context"

	"companion/internal/modules/session/domain"
)

// StateStore keeps the single versioned blob. Load returns
// apperrors.ErrNoPersistedState when nothing has been saved yet.
type StateStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Clear(ctx context.Context) error
}

// HistoryProjector indexes finished modules and closed sessions for queries.
type HistoryProjector interface {
	ProjectModules(ctx context.Context, sessionID string, records []domain.ModuleHistoryRecord) error
	ProjectSession(ctx context.Context, state domain.State) error
	ListHistory(ctx context.Context, limit int) ([]domain.ModuleHistoryRecord, error)
}

type ModuleCatalog interface {
	domain.Catalog
	List() []domain.CatalogEntry
}

// AudioPrecacher warms audio for library modules. Calls are fire-and-forget.
type AudioPrecacher interface {
	Precache(ctx context.Context, libraryIDs []string) error
}

type AppShell interface {
	SetCurrentTab(ctx context.Context, tab string)
	NotificationsPermitted() bool
	Notify(ctx context.Context, title, body string) error
}

type SessionExporter interface {
	ExportSession(ctx context.Context, state domain.State) (string, error)
}
