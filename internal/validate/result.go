package validate

import "fmt"

// Mode selects how strictly the pipeline treats stage errors.
type Mode string

const (
	// ModeStrict stops the pipeline after the first stage (2-6) that
	// records an error.
	ModeStrict Mode = "strict"

	// ModeModerate runs all stages and marks the result invalid when
	// any errors were recorded.
	ModeModerate Mode = "moderate"

	// ModePermissive behaves like moderate; it exists for callers that
	// treat warnings as purely informational.
	ModePermissive Mode = "permissive"
)

// ParseMode maps a string to a Mode, defaulting to moderate.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeStrict, ModeModerate, ModePermissive:
		return Mode(s)
	default:
		return ModeModerate
	}
}

// Options controls a single validation call.
type Options struct {
	// Normalize runs the normalizer between the syntax and structure
	// stages, repairing deprecated shapes and recording fixes.
	Normalize bool `json:"normalize"`

	// ValidateEntities enables the referential-integrity stage.
	ValidateEntities bool `json:"validate_entities"`

	// ValidateServices enables the service-schema stage.
	ValidateServices bool `json:"validate_services"`

	// Mode selects strict/moderate/permissive error handling.
	Mode Mode `json:"mode,omitempty"`
}

// Result is the outcome of one validation call. It is created fresh
// per call and immutable once returned.
type Result struct {
	Valid        bool     `json:"valid"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	Score        float64  `json:"score"`
	FixedText    string   `json:"fixed_text,omitempty"`
	FixesApplied []string `json:"fixes_applied"`
	Summary      string   `json:"summary,omitempty"`
}

// Score deduction constants. Stage deductions apply once per stage
// that recorded at least one error; pattern and warning deductions
// apply per finding.
const (
	startScore = 100

	structurePenalty    = 30
	referentialPenalty  = 20
	servicePenalty      = 15
	stylePenalty        = 15
	riskyPatternPenalty = 10

	// warningPenalty keeps the "score 100 means a clean document"
	// property: any finding, even advisory, moves the score.
	warningPenalty = 2
)

// collector is the transient per-call accumulator threaded through the
// stages. It is never shared between calls.
type collector struct {
	errors   []string
	warnings []string
	score    float64
}

func newCollector() *collector {
	return &collector{score: startScore}
}

func (c *collector) errorf(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

// warnf records a warning and applies the standard warning deduction.
func (c *collector) warnf(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
	c.deduct(warningPenalty)
}

// degrade records a warning without a score deduction. Used when a
// collaborator is unavailable: the document is not at fault.
func (c *collector) degrade(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// deduct lowers the score, flooring at zero.
func (c *collector) deduct(points float64) {
	c.score -= points
	if c.score < 0 {
		c.score = 0
	}
}

// result freezes the accumulator into an immutable Result.
func (c *collector) result() *Result {
	r := &Result{
		Valid:        len(c.errors) == 0,
		Errors:       c.errors,
		Warnings:     c.warnings,
		Score:        c.score,
		FixesApplied: []string{},
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	r.Summary = summarise(len(c.errors), len(c.warnings))
	return r
}

// summarise produces the one-line classification for a result.
func summarise(errs, warns int) string {
	switch {
	case errs == 0 && warns == 0:
		return "passed, no issues"
	case errs == 0:
		return fmt.Sprintf("passed with %d warning(s)", warns)
	default:
		return fmt.Sprintf("failed with %d error(s) and %d warning(s)", errs, warns)
	}
}
