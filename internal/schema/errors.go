package schema

import "errors"

// Domain errors for the schema package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, schema.ErrInvalidAction) {
//	    // handle malformed action
//	}
var (
	// ErrInvalidSpec is returned when an automation fails structural validation.
	ErrInvalidSpec = errors.New("schema: invalid automation")

	// ErrMissingAlias is returned when an automation has no alias.
	ErrMissingAlias = errors.New("schema: alias is required")

	// ErrNoTriggers is returned when an automation has no triggers defined.
	ErrNoTriggers = errors.New("schema: at least one trigger is required")

	// ErrNoActions is returned when an automation has no actions defined.
	ErrNoActions = errors.New("schema: at least one action is required")

	// ErrInvalidAction is returned when an action populates no action-kind
	// field, or more than one.
	ErrInvalidAction = errors.New("schema: invalid action")

	// ErrInvalidTrigger is returned when a trigger has no platform.
	ErrInvalidTrigger = errors.New("schema: trigger requires a platform")

	// ErrInvalidCondition is returned when a condition has no discriminator.
	ErrInvalidCondition = errors.New("schema: condition requires a type")

	// ErrRenderFailed is returned when serialisation to YAML fails.
	ErrRenderFailed = errors.New("schema: render failed")
)
