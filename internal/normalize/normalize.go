package normalize

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// outputIndent matches the canonical renderer's indentation.
const outputIndent = 2

// context identifies what kind of list item a mapping represents while
// walking the tree. The trigger/action key renames only apply inside
// the matching item kind.
type context int

const (
	ctxRoot context = iota
	ctxTrigger
	ctxAction
	ctxOther
)

// Deprecated plural keys at the document root and their canonical forms.
var pluralKeys = map[string]string{
	"triggers":   "trigger",
	"actions":    "action",
	"conditions": "condition",
}

// Keys whose sequence items are action mappings.
var actionListKeys = map[string]struct{}{
	"action":   {},
	"sequence": {},
	"parallel": {},
	"default":  {},
}

// Document normalizes a serialized automation document.
//
// It returns the normalized text and the ordered list of fixes applied.
// When the input cannot be parsed, or no fixes apply, the original text
// is returned verbatim; normalization never fails.
func Document(text string) (string, []string) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return text, nil
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return text, nil
	}

	fixes := Tree(doc.Content[0])
	if len(fixes) == 0 {
		return text, nil
	}

	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(outputIndent)
	if err := enc.Encode(doc.Content[0]); err != nil {
		// Re-encoding a tree we just decoded should not fail; fall back
		// to the untouched input rather than returning partial output.
		return text, nil
	}
	//nolint:errcheck // Close after a successful Encode cannot fail
	enc.Close()

	return b.String(), fixes
}

// Tree normalizes a parsed mapping node in place and returns the fix
// log. The pipeline uses this form to normalize between its syntax and
// structure stages without a second parse.
func Tree(root *yaml.Node) []string {
	if root == nil || root.Kind != yaml.MappingNode {
		return nil
	}

	var fixes []string
	renamePluralKeys(root, &fixes)
	walkMapping(root, ctxRoot, "", &fixes)
	return fixes
}

// renamePluralKeys rewrites the deprecated top-level plural keys.
func renamePluralKeys(root *yaml.Node, fixes *[]string) {
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		canonical, ok := pluralKeys[key.Value]
		if !ok {
			continue
		}
		*fixes = append(*fixes, fmt.Sprintf("renamed deprecated key '%s' to '%s'", key.Value, canonical))
		key.Value = canonical
	}
}

// walkMapping applies the item-level rewrites to one mapping and
// recurses into its values, visiting key pairs in document order so
// the fix log follows document traversal order. path carries a
// human-readable location for the fix log ("action[1]", "trigger[0]",
// ...).
func walkMapping(m *yaml.Node, ctx context, path string, fixes *[]string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i]
		value := m.Content[i+1]

		if key.Value == "continue_on_error" {
			if rewriteContinueOnError(m, i, path, fixes) {
				i -= 2 // pair removed, the next pair now sits at i
			}
			continue
		}

		if value.Kind == yaml.ScalarNode {
			switch {
			case ctx == ctxTrigger && key.Value == "trigger":
				renameScalarKey(m, key, "platform", path, fixes)
			case ctx == ctxAction && key.Value == "action":
				renameScalarKey(m, key, "service", path, fixes)
			}
			continue
		}

		switch value.Kind {
		case yaml.SequenceNode:
			walkSequence(key.Value, value, path, fixes)
		case yaml.MappingNode:
			walkMapping(value, ctxOther, childPath(path, key.Value), fixes)
		}
	}
}

// walkSequence recurses into a list value, assigning item context from
// the enclosing key.
func walkSequence(key string, seq *yaml.Node, path string, fixes *[]string) {
	itemCtx := ctxOther
	if key == "trigger" {
		itemCtx = ctxTrigger
	} else if _, ok := actionListKeys[key]; ok {
		itemCtx = ctxAction
	}

	for i, item := range seq.Content {
		itemPath := fmt.Sprintf("%s[%d]", childPath(path, key), i)
		switch item.Kind {
		case yaml.MappingNode:
			walkMapping(item, itemCtx, itemPath, fixes)
		case yaml.SequenceNode:
			walkSequence(key, item, itemPath, fixes)
		}
	}
}

// rewriteContinueOnError converts the deprecated continue_on_error flag
// at pair index i to the canonical error policy: true -> "continue",
// false -> "stop", null -> the key is dropped. It reports whether the
// pair was removed.
func rewriteContinueOnError(m *yaml.Node, i int, path string, fixes *[]string) bool {
	key := m.Content[i]
	value := m.Content[i+1]

	if value.Tag == "!!null" {
		m.Content = append(m.Content[:i], m.Content[i+2:]...)
		*fixes = append(*fixes, fmt.Sprintf("%sremoved null 'continue_on_error'", fixPrefix(path)))
		return true
	}

	policy := "stop"
	if value.Value == "true" {
		policy = "continue"
	}
	*fixes = append(*fixes, fmt.Sprintf("%sreplaced deprecated 'continue_on_error: %s' with 'error: %s'",
		fixPrefix(path), value.Value, policy))

	key.Value = "error"
	value.SetString(policy)
	return false
}

// renameScalarKey renames a deprecated discriminator key (e.g. trigger
// item "trigger: state" -> "platform: state"). An existing canonical
// key is never clobbered.
func renameScalarKey(m *yaml.Node, key *yaml.Node, to, path string, fixes *[]string) {
	if hasKey(m, to) {
		return
	}
	*fixes = append(*fixes, fmt.Sprintf("%srenamed deprecated key '%s' to '%s'", fixPrefix(path), key.Value, to))
	key.Value = to
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func fixPrefix(path string) string {
	if path == "" {
		return ""
	}
	return path + ": "
}
