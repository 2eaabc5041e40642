package schema

// AutomationMode controls how concurrent runs of the same automation
// are handled by the execution engine.
type AutomationMode string

const (
	ModeSingle   AutomationMode = "single"
	ModeRestart  AutomationMode = "restart"
	ModeQueued   AutomationMode = "queued"
	ModeParallel AutomationMode = "parallel"
)

// AllModes returns all recognised automation modes.
func AllModes() []AutomationMode {
	return []AutomationMode{ModeSingle, ModeRestart, ModeQueued, ModeParallel}
}

// MaxExceeded controls what happens when the mode's run limit is hit.
type MaxExceeded string

const (
	MaxExceededSilent  MaxExceeded = "silent"
	MaxExceededWarning MaxExceeded = "warning"
	MaxExceededError   MaxExceeded = "error"
)

// AllMaxExceeded returns all recognised max_exceeded values.
func AllMaxExceeded() []MaxExceeded {
	return []MaxExceeded{MaxExceededSilent, MaxExceededWarning, MaxExceededError}
}

// ErrorPolicy controls error handling for a single action.
type ErrorPolicy string

const (
	ErrorContinue ErrorPolicy = "continue"
	ErrorStop     ErrorPolicy = "stop"
	ErrorAbort    ErrorPolicy = "abort"
)

// Field is a single passthrough key/value pair. Slices of Field preserve
// the original document order of keys this schema does not model, so a
// parse/render round trip never reorders forward-compatible content.
type Field struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// AutomationSpec is the root of an automation rule.
//
// Triggers and Actions must each contain at least one element.
// Unrecognised mode or max_exceeded strings are preserved verbatim for
// forward compatibility; validation stages surface them separately.
type AutomationSpec struct {
	ID          string `json:"id,omitempty"`
	Alias       string `json:"alias"`
	Description string `json:"description,omitempty"`

	// InitialState reports whether the automation is enabled on load.
	// Nil means unset; the canonical renderer emits the default (true).
	InitialState *bool `json:"initial_state,omitempty"`

	Mode AutomationMode `json:"mode,omitempty"`

	Triggers   []TriggerSpec   `json:"trigger"`
	Conditions []ConditionSpec `json:"condition,omitempty"`
	Actions    []ActionSpec    `json:"action"`

	// MaxExceeded may hold a MaxExceeded value or an unrecognised string.
	MaxExceeded string   `json:"max_exceeded,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Extra holds passthrough fields in original document order.
	Extra []Field `json:"extra,omitempty"`
}

// TriggerSpec is a single trigger, discriminated by Platform
// ("state", "time", "time_pattern", "sun", "event", "webhook", ...).
// Only the fields relevant to the platform are populated.
type TriggerSpec struct {
	Platform string `json:"platform"`

	// EntityIDs is the one-or-many entity_id field. A single entry is
	// rendered as a scalar, multiple entries as a list.
	EntityIDs []string `json:"entity_id,omitempty"`

	To   string `json:"to,omitempty"`
	From string `json:"from,omitempty"`
	At   string `json:"at,omitempty"`

	// time_pattern fields; strings so "/5" style patterns survive.
	Minutes string `json:"minutes,omitempty"`
	Hours   string `json:"hours,omitempty"`
	Days    string `json:"days,omitempty"`

	Extra []Field `json:"extra,omitempty"`
}

// ConditionSpec is a single condition, discriminated by Condition
// ("state", "numeric_state", "or", "and", "template", ...).
type ConditionSpec struct {
	Condition string `json:"condition"`

	EntityIDs []string `json:"entity_id,omitempty"`
	State     string   `json:"state,omitempty"`

	Above *float64 `json:"above,omitempty"`
	Below *float64 `json:"below,omitempty"`

	// Conditions holds nested conditions for "or"/"and".
	Conditions []ConditionSpec `json:"conditions,omitempty"`

	Extra []Field `json:"extra,omitempty"`
}

// TargetSpec addresses the recipients of a service call.
type TargetSpec struct {
	EntityIDs []string `json:"entity_id,omitempty"`
	AreaIDs   []string `json:"area_id,omitempty"`
	DeviceIDs []string `json:"device_id,omitempty"`
}

// ChooseOption is one branch of a choose action: a guard plus the
// actions to run when the guard holds.
type ChooseOption struct {
	Conditions []ConditionSpec `json:"conditions"`
	Sequence   []ActionSpec    `json:"sequence"`
}

// RepeatSpec configures a repeat action. Exactly one of Count, While,
// or Until is expected.
type RepeatSpec struct {
	Count    int             `json:"count,omitempty"`
	While    []ConditionSpec `json:"while,omitempty"`
	Until    []ConditionSpec `json:"until,omitempty"`
	Sequence []ActionSpec    `json:"sequence"`
}

// ActionSpec is a tagged union over action kinds. Exactly one of the
// kind fields (Service, Scene, Delay, Choose, Repeat, Parallel,
// Sequence) must be populated; Validate enforces this.
type ActionSpec struct {
	// Leaf kinds.
	Service string         `json:"service,omitempty"`
	Target  *TargetSpec    `json:"target,omitempty"`
	Data    map[string]any `json:"data,omitempty"`

	Scene string `json:"scene,omitempty"`

	// Delay holds a duration string ("00:00:05") or a mapping
	// ({seconds: 5}), matching the external format.
	Delay any `json:"delay,omitempty"`

	// Structural kinds.
	Choose   []ChooseOption `json:"choose,omitempty"`
	Default  []ActionSpec   `json:"default,omitempty"`
	Repeat   *RepeatSpec    `json:"repeat,omitempty"`
	Parallel []ActionSpec   `json:"parallel,omitempty"`
	Sequence []ActionSpec   `json:"sequence,omitempty"`

	// Error is the canonical error-handling policy. ContinueOnError is
	// the deprecated alias: accepted on input, converted on render.
	Error           ErrorPolicy `json:"error,omitempty"`
	ContinueOnError *bool       `json:"continue_on_error,omitempty"`

	Extra []Field `json:"extra,omitempty"`
}

// ActionKind identifies which arm of the ActionSpec union is populated.
type ActionKind string

const (
	KindService  ActionKind = "service"
	KindScene    ActionKind = "scene"
	KindDelay    ActionKind = "delay"
	KindChoose   ActionKind = "choose"
	KindRepeat   ActionKind = "repeat"
	KindParallel ActionKind = "parallel"
	KindSequence ActionKind = "sequence"
	KindNone     ActionKind = ""
)

// Kind returns the action kind for the populated arm, or KindNone when
// no arm is set.
func (a *ActionSpec) Kind() ActionKind {
	switch {
	case a.Service != "":
		return KindService
	case a.Scene != "":
		return KindScene
	case a.Delay != nil:
		return KindDelay
	case len(a.Choose) > 0:
		return KindChoose
	case a.Repeat != nil:
		return KindRepeat
	case len(a.Parallel) > 0:
		return KindParallel
	case len(a.Sequence) > 0:
		return KindSequence
	}
	return KindNone
}

// Enabled reports the effective initial_state, defaulting to true.
func (s *AutomationSpec) Enabled() bool {
	if s.InitialState == nil {
		return true
	}
	return *s.InitialState
}

// Bool returns a pointer to b, for populating optional bool fields.
func Bool(b bool) *bool {
	return &b
}

// Float returns a pointer to f, for populating optional float fields.
func Float(f float64) *float64 {
	return &f
}
