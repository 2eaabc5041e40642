package validate

import (
	"regexp"
	"sort"
)

// refContext identifies the nearest enclosing key while walking the
// tree. Identifier-shaped strings only count as references inside a
// trigger, condition, action, or target context; strings inside
// alias/description/name fields are never collected.
type refContext int

const (
	ctxNone refContext = iota
	ctxTrigger
	ctxCondition
	ctxAction
	ctxTarget
)

// identPattern matches a candidate entity or service identifier:
// exactly one dot separating two alphanumeric/underscore tokens.
var identPattern = regexp.MustCompile(`^\w+\.\w+$`)

// Keys that are never walked: free-text fields whose contents can look
// like identifiers but are not references.
var skipKeys = map[string]struct{}{
	"alias":       {},
	"description": {},
	"name":        {},
}

// Keys whose list items belong to a condition context.
var conditionListContexts = map[string]struct{}{
	"condition":  {},
	"conditions": {},
	"while":      {},
	"until":      {},
}

// stateCheck pairs an entity reference with the state value it is
// compared against, for the vocabulary sanity check.
type stateCheck struct {
	EntityID string
	Value    string
}

// references holds everything extracted from a document tree.
type references struct {
	Entities       []string // unique, sorted
	Areas          []string // unique, sorted
	Services       []string // unique, in traversal order
	ActionEntities []string // entities referenced from action/target context
	StateChecks    []stateCheck
}

// extractReferences walks the decoded tree collecting entity, area and
// service references with explicit enclosing-context tracking.
func extractReferences(tree map[string]any) references {
	w := &walker{
		entities:       map[string]struct{}{},
		areas:          map[string]struct{}{},
		actionEntities: map[string]struct{}{},
	}
	w.walkMap(tree, ctxNone)
	w.collectStateChecks(tree)

	return references{
		Entities:       sortedKeys(w.entities),
		Areas:          sortedKeys(w.areas),
		Services:       w.services,
		ActionEntities: sortedKeys(w.actionEntities),
		StateChecks:    w.stateChecks,
	}
}

type walker struct {
	entities       map[string]struct{}
	areas          map[string]struct{}
	actionEntities map[string]struct{}
	services       []string
	serviceSeen    map[string]struct{}
	stateChecks    []stateCheck
}

// walkMap visits a mapping's keys in sorted order so extraction (and
// therefore finding order) is deterministic.
func (w *walker) walkMap(m map[string]any, ctx refContext) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, skip := skipKeys[k]; skip {
			continue
		}
		v := m[k]

		switch k {
		case "entity_id":
			if ctx != ctxNone {
				for _, id := range stringValues(v) {
					if identPattern.MatchString(id) {
						w.entities[id] = struct{}{}
						if ctx == ctxAction || ctx == ctxTarget {
							w.actionEntities[id] = struct{}{}
						}
					}
				}
			}
			continue
		case "area_id":
			if ctx == ctxTarget || ctx == ctxAction {
				for _, id := range stringValues(v) {
					w.areas[id] = struct{}{}
				}
			}
			continue
		case "service":
			if ctx == ctxAction {
				if s, ok := v.(string); ok {
					w.addService(s)
				}
			}
			continue
		}

		w.walkValue(v, childContext(k, ctx))
	}
}

func (w *walker) walkValue(v any, ctx refContext) {
	switch val := v.(type) {
	case map[string]any:
		w.walkMap(val, ctx)
	case []any:
		for _, item := range val {
			w.walkValue(item, ctx)
		}
	}
}

func (w *walker) addService(s string) {
	if w.serviceSeen == nil {
		w.serviceSeen = map[string]struct{}{}
	}
	if _, seen := w.serviceSeen[s]; seen {
		return
	}
	w.serviceSeen[s] = struct{}{}
	w.services = append(w.services, s)
}

// childContext derives the context for a key's value from the key
// itself, falling back to the enclosing context.
func childContext(key string, parent refContext) refContext {
	switch key {
	case "trigger":
		return ctxTrigger
	case "action", "sequence", "parallel", "default":
		return ctxAction
	case "target":
		return ctxTarget
	}
	if _, ok := conditionListContexts[key]; ok {
		return ctxCondition
	}
	return parent
}

// collectStateChecks pairs state-trigger "to" values and
// state-condition "state" values with their entities. This is a
// best-effort scan of the top-level trigger and condition lists plus
// one level of nested and/or conditions.
func (w *walker) collectStateChecks(tree map[string]any) {
	for _, item := range listItems(tree["trigger"]) {
		if platform, _ := stringField(item, "platform"); platform != "state" {
			continue
		}
		w.addStateChecks(item, "to")
	}
	w.collectConditionChecks(listItems(tree["condition"]))
}

func (w *walker) collectConditionChecks(items []map[string]any) {
	for _, item := range items {
		kind, _ := stringField(item, "condition")
		switch kind {
		case "state":
			w.addStateChecks(item, "state")
		case "and", "or":
			w.collectConditionChecks(listItems(item["conditions"]))
		}
	}
}

func (w *walker) addStateChecks(item map[string]any, valueKey string) {
	value, ok := stringField(item, valueKey)
	if !ok {
		return
	}
	for _, id := range stringValues(item["entity_id"]) {
		if identPattern.MatchString(id) {
			w.stateChecks = append(w.stateChecks, stateCheck{EntityID: id, Value: value})
		}
	}
}

// stringValues normalises a one-or-many field to a string slice.
func stringValues(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// listItems normalises a value to a slice of mappings.
func listItems(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
