// Package schema defines the canonical in-memory representation of a
// home-automation rule: triggers, conditions, actions, execution mode,
// and metadata.
//
// The types here are pure value objects. They carry no identity beyond
// their content, perform no I/O, and are validated at construction time.
// An ActionSpec is a tagged union: exactly one action kind (service,
// scene, delay, or one of the structural kinds) must be populated.
//
// # Key Types
//
//   - AutomationSpec: Root of a rule (trigger/condition/action + metadata)
//   - TriggerSpec: Event pattern that starts evaluation
//   - ConditionSpec: Guard that must hold for actions to run
//   - ActionSpec: Effect to perform; leaf (service/scene/delay) or
//     structural (choose/repeat/parallel/sequence)
//
// # Rendering
//
// Render serialises an AutomationSpec deterministically to canonical
// YAML: fixed key ordering per object type, lowercase enum values,
// stable two-space indentation. Passthrough Extra fields keep their
// original order. See render.go.
package schema
