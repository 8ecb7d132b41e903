package domain

import (
	"encoding/json"
	"fmt"
)

// Envelope is the persisted blob stored under StorageKey.
type Envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

type RestoreOutcome string

const (
	RestoreFresh    RestoreOutcome = "fresh"
	RestoreLoaded   RestoreOutcome = "loaded"
	RestoreMigrated RestoreOutcome = "migrated"
	RestoreReset    RestoreOutcome = "reset"
)

type Restored struct {
	State       State
	Outcome     RestoreOutcome
	FromVersion int
	Reason      string
}

// EarliestMigratableVersion is the oldest blob the chain still understands.
const EarliestMigratableVersion = 1

type migration func(tree map[string]any) error

// migrations is keyed by the version a step upgrades from.
var migrations = map[int]migration{
	1: addBoosterState,
	2: addPreSubstanceActivity,
	3: addTransitionCaptures,
	4: extractBoosterIndicator,
}

func Encode(s State) ([]byte, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return json.Marshal(Envelope{Version: SchemaVersion, State: body})
}

// Decode restores a blob. Anything it cannot carry forward, including a
// known version whose state does not decode, yields a fresh state with
// Outcome set to RestoreReset.
func Decode(raw []byte) (Restored, error) {
	if len(raw) == 0 {
		return Restored{State: NewState(), Outcome: RestoreFresh}, nil
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return reset(0, "unreadable envelope: "+err.Error()), nil
	}
	if env.Version < EarliestMigratableVersion || env.Version > SchemaVersion {
		return reset(env.Version, fmt.Sprintf("version %d outside %d..%d", env.Version, EarliestMigratableVersion, SchemaVersion)), nil
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return reset(env.Version, "empty state"), nil
	}
	if env.Version == SchemaVersion {
		s, err := decodeState(env.State)
		if err != nil {
			return reset(env.Version, "undecodable state: "+err.Error()), nil
		}
		return Restored{State: s, Outcome: RestoreLoaded, FromVersion: env.Version}, nil
	}

	var tree map[string]any
	if err := json.Unmarshal(env.State, &tree); err != nil {
		return reset(env.Version, "state is not an object"), nil
	}
	for v := env.Version; v < SchemaVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return reset(env.Version, fmt.Sprintf("no migration from version %d", v)), nil
		}
		if err := step(tree); err != nil {
			return reset(env.Version, fmt.Sprintf("migrate v%d: %v", v, err)), nil
		}
	}
	body, err := json.Marshal(tree)
	if err != nil {
		return Restored{}, fmt.Errorf("re-encode migrated state: %w", err)
	}
	s, err := decodeState(body)
	if err != nil {
		return reset(env.Version, "undecodable migrated state: "+err.Error()), nil
	}
	return Restored{State: s, Outcome: RestoreMigrated, FromVersion: env.Version}, nil
}

func decodeState(body []byte) (State, error) {
	var s State
	if err := json.Unmarshal(body, &s); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	s.normalize()
	return s, nil
}

func reset(from int, reason string) Restored {
	return Restored{State: NewState(), Outcome: RestoreReset, FromVersion: from, Reason: reason}
}

// toTree converts a typed default into its JSON object form.
func toTree(v any) (any, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func setDefault(tree map[string]any, key string, v any) error {
	if _, ok := tree[key]; ok {
		return nil
	}
	value, err := toTree(v)
	if err != nil {
		return err
	}
	tree[key] = value
	return nil
}

func objectAt(tree map[string]any, key string) map[string]any {
	obj, _ := tree[key].(map[string]any)
	return obj
}

// v1 kept considerBooster on the intake only.
func addBoosterState(tree map[string]any) error {
	b := DefaultBooster()
	if intake := objectAt(tree, "intake"); intake != nil {
		b.ConsiderBooster, _ = intake["considerBooster"].(bool)
	}
	return setDefault(tree, "booster", b)
}

func addPreSubstanceActivity(tree map[string]any) error {
	return setDefault(tree, "preSubstanceActivity", DefaultPreSubstanceActivity())
}

func addTransitionCaptures(tree map[string]any) error {
	return setDefault(tree, "transitionCaptures", DefaultTransitionCaptures())
}

// v4 stored the booster marker as a flagged module item.
func extractBoosterIndicator(tree map[string]any) error {
	modules := objectAt(tree, "modules")
	if modules == nil {
		return nil
	}
	items, _ := modules["items"].([]any)
	kept := make([]any, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		isBooster, _ := item["isBoosterModule"].(bool)
		delete(item, "isBoosterModule")
		if !isBooster {
			kept = append(kept, item)
			continue
		}
		if _, exists := modules["boosterIndicator"]; exists {
			continue
		}
		modules["boosterIndicator"] = map[string]any{
			"instanceId": item["instanceId"],
			"libraryId":  item["libraryId"],
			"phase":      item["phase"],
			"title":      item["title"],
			"order":      item["order"],
		}
		if current, _ := modules["currentModuleInstanceId"].(string); current != "" && current == item["instanceId"] {
			modules["currentModuleInstanceId"] = ""
		}
	}
	modules["items"] = kept
	return nil
}
