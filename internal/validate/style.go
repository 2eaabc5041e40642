package validate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
)

// Template delimiters recognised in string values.
const (
	exprOpen  = "{{"
	exprClose = "}}"
	stmtOpen  = "{%"
	stmtClose = "%}"
)

// groupLastChangedPattern matches the known anti-pattern of reading a
// "last changed" attribute on a group entity, which group entities do
// not expose.
var groupLastChangedPattern = regexp.MustCompile(`group\.\w+`)

// checkStyle is stage 6: deprecated-key warnings and template checks.
// A template syntax failure is the only style finding promoted to an
// error.
func checkStyle(c *collector, tree map[string]any) {
	if n := countKey(tree, "continue_on_error"); n > 0 {
		c.warnf("deprecated field 'continue_on_error' used %d time(s): use 'error: continue' or 'error: stop' instead", n)
	}

	for _, tmpl := range extractTemplates(tree) {
		checkTemplate(c, tmpl)
	}
}

// countKey recursively counts occurrences of a key anywhere in the tree.
func countKey(v any, key string) int {
	n := 0
	switch val := v.(type) {
	case map[string]any:
		if _, ok := val[key]; ok {
			n++
		}
		for _, child := range val {
			n += countKey(child, key)
		}
	case []any:
		for _, item := range val {
			n += countKey(item, key)
		}
	}
	return n
}

// extractTemplates walks the tree collecting every string value that
// contains template delimiters. A value_template value is collected
// exactly once like any other string; identical template strings are
// deduplicated so one authoring mistake yields one finding. Results
// are sorted for deterministic output.
func extractTemplates(tree map[string]any) []string {
	seen := map[string]struct{}{}
	collectTemplates(tree, seen)

	out := make([]string, 0, len(seen))
	for tmpl := range seen {
		out = append(out, tmpl)
	}
	sort.Strings(out)
	return out
}

func collectTemplates(v any, seen map[string]struct{}) {
	switch val := v.(type) {
	case string:
		if strings.Contains(val, exprOpen) || strings.Contains(val, stmtOpen) {
			seen[val] = struct{}{}
		}
	case map[string]any:
		for _, child := range val {
			collectTemplates(child, seen)
		}
	case []any:
		for _, item := range val {
			collectTemplates(item, seen)
		}
	}
}

// checkTemplate syntax-checks one template string.
func checkTemplate(c *collector, tmpl string) {
	if strings.Count(tmpl, exprOpen) != strings.Count(tmpl, exprClose) {
		c.errorf("template syntax error in %q: unbalanced '{{' and '}}'", truncate(tmpl))
		return
	}
	if strings.Count(tmpl, stmtOpen) != strings.Count(tmpl, stmtClose) {
		c.errorf("template syntax error in %q: unbalanced '{%%' and '%%}'", truncate(tmpl))
		return
	}

	for _, inner := range innerExpressions(tmpl) {
		if strings.TrimSpace(inner) == "" {
			c.errorf("template syntax error in %q: empty expression", truncate(tmpl))
			continue
		}
		if _, err := expr.Compile(inner, expr.AllowUndefinedVariables()); err != nil {
			c.errorf("template syntax error in %q: %v", truncate(tmpl), compileMessage(err))
		}
	}

	if groupLastChangedPattern.MatchString(tmpl) && strings.Contains(tmpl, "last_changed") {
		c.warnf("template reads 'last_changed' on a group entity in %q: group entities do not expose that attribute, use a state condition with a 'for:' duration on an individual entity instead", truncate(tmpl))
	}
}

// innerExpressions returns the contents of each {{ ... }} segment.
// Statement segments ({% ... %}) are only checked for balance: their
// contents start with control keywords the expression compiler does
// not speak.
func innerExpressions(tmpl string) []string {
	var out []string
	rest := tmpl
	for {
		start := strings.Index(rest, exprOpen)
		if start < 0 {
			return out
		}
		rest = rest[start+len(exprOpen):]
		end := strings.Index(rest, exprClose)
		if end < 0 {
			return out
		}
		out = append(out, rest[:end])
		rest = rest[end+len(exprClose):]
	}
}

// compileMessage strips the compiler's multi-line source snippet down
// to its first line for a compact finding.
func compileMessage(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

// truncateLen bounds template text quoted in findings.
const truncateLen = 80

func truncate(s string) string {
	if len(s) <= truncateLen {
		return s
	}
	return s[:truncateLen] + "..."
}
