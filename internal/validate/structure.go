package validate

// actionKindKeys are the fields that identify an action item's kind.
var actionKindKeys = []string{"service", "scene", "delay", "choose", "repeat", "parallel", "sequence"}

// checkStructure is stage 2: shape checks on the decoded tree.
//
// Plural trigger/action/condition keys are hard errors here even
// though the normalizer can repair them: when the caller opted out of
// normalization their presence is an authoring mistake to surface.
func checkStructure(c *collector, tree map[string]any) {
	for _, plural := range []string{"triggers", "actions", "conditions"} {
		if _, ok := tree[plural]; ok {
			c.errorf("found deprecated key '%s': the canonical key is '%s'", plural, plural[:len(plural)-1])
		}
	}

	checkTriggerList(c, tree)
	checkActionList(c, tree)

	if _, ok := tree["alias"]; !ok {
		c.warnf("missing 'alias': automations should carry a human-readable name")
	}
	if _, ok := tree["description"]; !ok {
		c.warnf("missing 'description'")
	}
	if _, ok := tree["initial_state"]; !ok {
		c.errorf("missing required field: 'initial_state'")
	}
}

func checkTriggerList(c *collector, tree map[string]any) {
	raw, ok := tree["trigger"]
	if !ok {
		c.errorf("missing required field: 'trigger'")
		return
	}

	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		c.errorf("'trigger' must be a non-empty list")
		return
	}

	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			c.errorf("trigger[%d] must be a mapping", i)
			continue
		}
		if _, ok := stringField(m, "platform"); !ok {
			c.errorf("trigger[%d] missing required field: 'platform'", i)
		}
	}
}

func checkActionList(c *collector, tree map[string]any) {
	raw, ok := tree["action"]
	if !ok {
		c.errorf("missing required field: 'action'")
		return
	}

	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		c.errorf("'action' must be a non-empty list")
		return
	}

	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			c.errorf("action[%d] must be a mapping", i)
			continue
		}
		checkActionItem(c, m, i)
	}
}

func checkActionItem(c *collector, m map[string]any, i int) {
	if !hasActionKind(m) {
		c.errorf("action[%d] must have at least one of: service, scene, delay, choose, repeat, parallel, or sequence", i)
		return
	}

	if _, isService := m["service"]; !isService {
		return
	}

	if target, ok := m["target"]; ok {
		if _, ok := target.(map[string]any); !ok {
			c.errorf("action[%d]: 'target' must be a mapping, not a bare entity reference", i)
		}
	}

	// A bare entity_id directly on the action still works but the
	// canonical location is target.entity_id.
	if _, ok := m["entity_id"]; ok {
		c.warnf("action[%d]: prefer 'target.entity_id' over a bare 'entity_id' on the action", i)
	}
}

func hasActionKind(m map[string]any) bool {
	for _, key := range actionKindKeys {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

// stringField fetches a non-empty string value from a decoded mapping.
func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
