package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// renderIndent is the indentation width for canonical output.
const renderIndent = 2

// Render serialises the automation to its canonical textual form.
//
// Output is deterministic: fixed key ordering per object type, enum
// values rendered lowercase, no line wrapping, stable indentation.
// A legacy ContinueOnError flag still present on an action is converted
// using the same rule as the normalizer (true -> "continue",
// false -> "stop"), so rendering alone guarantees canonical output.
func Render(s *AutomationSpec) (string, error) {
	if s == nil {
		return "", fmt.Errorf("%w: nil automation", ErrRenderFailed)
	}

	root := specNode(s)

	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(renderIndent)
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	return b.String(), nil
}

// specNode builds the root mapping in canonical key order.
func specNode(s *AutomationSpec) *yaml.Node {
	m := newMapping()

	if s.ID != "" {
		appendScalar(m, "id", s.ID)
	}
	appendScalar(m, "alias", s.Alias)
	if s.Description != "" {
		appendScalar(m, "description", s.Description)
	}
	appendKV(m, "initial_state", boolNode(s.Enabled()))
	if s.Mode != "" {
		appendScalar(m, "mode", strings.ToLower(string(s.Mode)))
	}

	triggers := newSequence()
	for i := range s.Triggers {
		triggers.Content = append(triggers.Content, triggerNode(&s.Triggers[i]))
	}
	appendKV(m, "trigger", triggers)

	if len(s.Conditions) > 0 {
		appendKV(m, "condition", conditionListNode(s.Conditions))
	}

	actions := newSequence()
	for i := range s.Actions {
		actions.Content = append(actions.Content, actionNode(&s.Actions[i]))
	}
	appendKV(m, "action", actions)

	if s.MaxExceeded != "" {
		appendScalar(m, "max_exceeded", strings.ToLower(s.MaxExceeded))
	}
	if len(s.Tags) > 0 {
		appendKV(m, "tags", stringListNode(s.Tags))
	}

	appendExtra(m, s.Extra)
	return m
}

// triggerNode builds a trigger mapping: platform first, then the
// platform-relevant fields, then passthrough keys.
func triggerNode(t *TriggerSpec) *yaml.Node {
	m := newMapping()
	appendScalar(m, "platform", t.Platform)
	if len(t.EntityIDs) > 0 {
		appendKV(m, "entity_id", oneOrManyNode(t.EntityIDs))
	}
	if t.From != "" {
		appendScalar(m, "from", t.From)
	}
	if t.To != "" {
		appendScalar(m, "to", t.To)
	}
	if t.At != "" {
		appendScalar(m, "at", t.At)
	}
	if t.Hours != "" {
		appendScalar(m, "hours", t.Hours)
	}
	if t.Minutes != "" {
		appendScalar(m, "minutes", t.Minutes)
	}
	if t.Days != "" {
		appendScalar(m, "days", t.Days)
	}
	appendExtra(m, t.Extra)
	return m
}

func conditionListNode(conditions []ConditionSpec) *yaml.Node {
	seq := newSequence()
	for i := range conditions {
		seq.Content = append(seq.Content, conditionNode(&conditions[i]))
	}
	return seq
}

func conditionNode(c *ConditionSpec) *yaml.Node {
	m := newMapping()
	appendScalar(m, "condition", c.Condition)
	if len(c.EntityIDs) > 0 {
		appendKV(m, "entity_id", oneOrManyNode(c.EntityIDs))
	}
	if c.State != "" {
		appendScalar(m, "state", c.State)
	}
	if c.Above != nil {
		appendKV(m, "above", floatNode(*c.Above))
	}
	if c.Below != nil {
		appendKV(m, "below", floatNode(*c.Below))
	}
	if len(c.Conditions) > 0 {
		appendKV(m, "conditions", conditionListNode(c.Conditions))
	}
	appendExtra(m, c.Extra)
	return m
}

func actionNode(a *ActionSpec) *yaml.Node {
	m := newMapping()

	switch a.Kind() {
	case KindService:
		appendScalar(m, "service", a.Service)
		if a.Target != nil {
			appendKV(m, "target", targetNode(a.Target))
		}
		if len(a.Data) > 0 {
			appendKV(m, "data", sortedMapNode(a.Data))
		}
	case KindScene:
		appendScalar(m, "scene", a.Scene)
	case KindDelay:
		appendKV(m, "delay", anyNode(a.Delay))
	case KindChoose:
		choose := newSequence()
		for i := range a.Choose {
			choose.Content = append(choose.Content, chooseOptionNode(&a.Choose[i]))
		}
		appendKV(m, "choose", choose)
		if len(a.Default) > 0 {
			appendKV(m, "default", actionListNode(a.Default))
		}
	case KindRepeat:
		appendKV(m, "repeat", repeatNode(a.Repeat))
	case KindParallel:
		appendKV(m, "parallel", actionListNode(a.Parallel))
	case KindSequence:
		appendKV(m, "sequence", actionListNode(a.Sequence))
	}

	// Canonical error policy wins; the deprecated alias is converted so
	// output is canonical even for specs that never saw the normalizer.
	switch {
	case a.Error != "":
		appendScalar(m, "error", strings.ToLower(string(a.Error)))
	case a.ContinueOnError != nil:
		if *a.ContinueOnError {
			appendScalar(m, "error", string(ErrorContinue))
		} else {
			appendScalar(m, "error", string(ErrorStop))
		}
	}

	appendExtra(m, a.Extra)
	return m
}

func actionListNode(actions []ActionSpec) *yaml.Node {
	seq := newSequence()
	for i := range actions {
		seq.Content = append(seq.Content, actionNode(&actions[i]))
	}
	return seq
}

func chooseOptionNode(opt *ChooseOption) *yaml.Node {
	m := newMapping()
	appendKV(m, "conditions", conditionListNode(opt.Conditions))
	appendKV(m, "sequence", actionListNode(opt.Sequence))
	return m
}

func repeatNode(r *RepeatSpec) *yaml.Node {
	m := newMapping()
	if r.Count > 0 {
		appendKV(m, "count", intNode(r.Count))
	}
	if len(r.While) > 0 {
		appendKV(m, "while", conditionListNode(r.While))
	}
	if len(r.Until) > 0 {
		appendKV(m, "until", conditionListNode(r.Until))
	}
	appendKV(m, "sequence", actionListNode(r.Sequence))
	return m
}

func targetNode(t *TargetSpec) *yaml.Node {
	m := newMapping()
	if len(t.EntityIDs) > 0 {
		appendKV(m, "entity_id", oneOrManyNode(t.EntityIDs))
	}
	if len(t.AreaIDs) > 0 {
		appendKV(m, "area_id", oneOrManyNode(t.AreaIDs))
	}
	if len(t.DeviceIDs) > 0 {
		appendKV(m, "device_id", oneOrManyNode(t.DeviceIDs))
	}
	return m
}

// oneOrManyNode renders a single value as a scalar and multiple values
// as a sequence, matching the external format's one-or-many fields.
func oneOrManyNode(values []string) *yaml.Node {
	if len(values) == 1 {
		return stringNode(values[0])
	}
	return stringListNode(values)
}

// sortedMapNode renders a map with keys in sorted order for determinism.
func sortedMapNode(data map[string]any) *yaml.Node {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := newMapping()
	for _, k := range keys {
		appendKV(m, k, anyNode(data[k]))
	}
	return m
}

// anyNode converts an arbitrary decoded value to a yaml.Node.
func anyNode(v any) *yaml.Node {
	if node, ok := v.(*yaml.Node); ok {
		return node
	}
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return stringNode(fmt.Sprintf("%v", v))
	}
	canonicaliseStyle(&n)
	return &n
}

// canonicaliseStyle forces block style and clears line wrapping hints on
// encoded subtrees so output stays stable regardless of input styles.
func canonicaliseStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		canonicaliseStyle(child)
	}
}

// Node construction helpers.

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newSequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolNode(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprintf("%t", b)}
}

func intNode(i int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("%d", i)}
}

func floatNode(f float64) *yaml.Node {
	var n yaml.Node
	//nolint:errcheck // encoding a float64 cannot fail
	n.Encode(f)
	return &n
}

func stringListNode(values []string) *yaml.Node {
	seq := newSequence()
	for _, v := range values {
		seq.Content = append(seq.Content, stringNode(v))
	}
	return seq
}

func appendKV(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, stringNode(key), value)
}

func appendScalar(m *yaml.Node, key, value string) {
	appendKV(m, key, stringNode(value))
}

// appendExtra appends passthrough fields in their original order.
func appendExtra(m *yaml.Node, extra []Field) {
	for _, f := range extra {
		appendKV(m, f.Key, anyNode(f.Value))
	}
}
