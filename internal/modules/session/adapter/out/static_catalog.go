package out

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"companion/internal/modules/session/domain"
	sessionout "companion/internal/modules/session/port/out"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

type StaticCatalog struct {
	entries map[string]domain.CatalogEntry
}

// NewStaticCatalog loads the built-in modules. Entries from overridePath,
// when given, replace or extend them by id.
func NewStaticCatalog(overridePath string) (sessionout.ModuleCatalog, error) {
	c := &StaticCatalog{entries: map[string]domain.CatalogEntry{}}
	if err := c.merge(builtinCatalog); err != nil {
		return nil, fmt.Errorf("builtin catalog: %w", err)
	}
	if overridePath == "" {
		return c, nil
	}
	raw, err := os.ReadFile(overridePath)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", overridePath, err)
	}
	if err := c.merge(raw); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", overridePath, err)
	}
	return c, nil
}

func (c *StaticCatalog) merge(raw []byte) error {
	var entries []domain.CatalogEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	for _, e := range entries {
		e.LibraryID = strings.TrimSpace(e.LibraryID)
		if e.LibraryID == "" {
			return fmt.Errorf("catalog entry without id")
		}
		for _, p := range e.Phases {
			if !p.Valid() {
				return fmt.Errorf("catalog entry %s: unknown phase %q", e.LibraryID, p)
			}
		}
		if e.Title == "" {
			e.Title = e.LibraryID
		}
		c.entries[e.LibraryID] = e
	}
	return nil
}

func (c *StaticCatalog) Lookup(libraryID string) (domain.CatalogEntry, bool) {
	e, ok := c.entries[libraryID]
	return e, ok
}

func (c *StaticCatalog) List() []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LibraryID < out[j].LibraryID })
	return out
}
