package schema

import (
	"fmt"
)

// Pre-computed validation sets for O(1) enum lookups.
var (
	validModes       map[AutomationMode]struct{}
	validMaxExceeded map[MaxExceeded]struct{}
)

func init() {
	validModes = make(map[AutomationMode]struct{}, len(AllModes()))
	for _, m := range AllModes() {
		validModes[m] = struct{}{}
	}

	validMaxExceeded = make(map[MaxExceeded]struct{}, len(AllMaxExceeded()))
	for _, m := range AllMaxExceeded() {
		validMaxExceeded[m] = struct{}{}
	}
}

// KnownMode reports whether m is one of the closed enumeration values.
// Unknown strings are not an error at this layer: call sites preserve
// them for forward compatibility and let validation stages warn.
func KnownMode(m AutomationMode) bool {
	_, ok := validModes[m]
	return ok
}

// KnownMaxExceeded reports whether m is a recognised max_exceeded value.
func KnownMaxExceeded(m MaxExceeded) bool {
	_, ok := validMaxExceeded[m]
	return ok
}

// Validate performs structural validation on the automation.
// Returns an error describing the first validation failure found.
func (s *AutomationSpec) Validate() error {
	if s == nil {
		return ErrInvalidSpec
	}

	if s.Alias == "" {
		return ErrMissingAlias
	}
	if len(s.Triggers) == 0 {
		return ErrNoTriggers
	}
	if len(s.Actions) == 0 {
		return ErrNoActions
	}

	for i, t := range s.Triggers {
		if t.Platform == "" {
			return fmt.Errorf("trigger[%d]: %w", i, ErrInvalidTrigger)
		}
	}

	for i, c := range s.Conditions {
		if c.Condition == "" {
			return fmt.Errorf("condition[%d]: %w", i, ErrInvalidCondition)
		}
	}

	for i, a := range s.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
	}

	return nil
}

// Validate checks that exactly one action-kind arm is populated, and
// recursively validates nested structural actions.
func (a *ActionSpec) Validate() error {
	kind := a.Kind()
	if kind == KindNone {
		return fmt.Errorf("%w: action must have at least one of: service, scene, delay, choose, repeat, parallel, or sequence", ErrInvalidAction)
	}

	if n := a.populatedKinds(); n > 1 {
		return fmt.Errorf("%w: action mixes %d kinds (first: %s)", ErrInvalidAction, n, kind)
	}

	// Target and Data only make sense on a service call.
	if kind != KindService && (a.Target != nil || len(a.Data) > 0) {
		return fmt.Errorf("%w: target/data are only valid with a service call", ErrInvalidAction)
	}

	switch kind {
	case KindChoose:
		for i, opt := range a.Choose {
			for j, nested := range opt.Sequence {
				if err := nested.Validate(); err != nil {
					return fmt.Errorf("choose[%d].sequence[%d]: %w", i, j, err)
				}
			}
		}
		for i, nested := range a.Default {
			if err := nested.Validate(); err != nil {
				return fmt.Errorf("default[%d]: %w", i, err)
			}
		}
	case KindRepeat:
		for i, nested := range a.Repeat.Sequence {
			if err := nested.Validate(); err != nil {
				return fmt.Errorf("repeat.sequence[%d]: %w", i, err)
			}
		}
	case KindParallel:
		for i, nested := range a.Parallel {
			if err := nested.Validate(); err != nil {
				return fmt.Errorf("parallel[%d]: %w", i, err)
			}
		}
	case KindSequence:
		for i, nested := range a.Sequence {
			if err := nested.Validate(); err != nil {
				return fmt.Errorf("sequence[%d]: %w", i, err)
			}
		}
	}

	return nil
}

// populatedKinds counts how many union arms are set.
func (a *ActionSpec) populatedKinds() int {
	n := 0
	if a.Service != "" {
		n++
	}
	if a.Scene != "" {
		n++
	}
	if a.Delay != nil {
		n++
	}
	if len(a.Choose) > 0 {
		n++
	}
	if a.Repeat != nil {
		n++
	}
	if len(a.Parallel) > 0 {
		n++
	}
	if len(a.Sequence) > 0 {
		n++
	}
	return n
}

// NewServiceAction builds a validated service-call action.
func NewServiceAction(service string, target *TargetSpec, data map[string]any) (ActionSpec, error) {
	a := ActionSpec{Service: service, Target: target, Data: data}
	if err := a.Validate(); err != nil {
		return ActionSpec{}, err
	}
	return a, nil
}
