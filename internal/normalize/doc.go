// Package normalize rewrites known-deprecated shapes in a raw
// automation document into their canonical form.
//
// The normalizer operates on the parsed YAML node tree, not on typed
// schema objects, so it can repair documents that would not yet pass
// structural validation. It is a pure function of its input: it never
// consults external state and never fails the overall call. On a parse
// error the original text is returned unchanged with an empty fix list.
//
// Rewrites applied (recursively, top-down):
//
//   - top-level "triggers"/"actions"/"conditions" -> singular keys
//   - "continue_on_error: true|false" -> "error: continue|stop"
//     (dropped entirely when the value is null)
//   - trigger item "trigger: <platform>" -> "platform: <platform>"
//   - action item "action: <service>" -> "service: <service>"
//
// Every rewrite is appended to an ordered, human-readable fix log in
// document traversal order.
package normalize
