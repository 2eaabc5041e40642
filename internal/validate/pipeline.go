package validate

import (
	"context"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wtthornton/homeiq-core/internal/inventory"
	"github.com/wtthornton/homeiq-core/internal/normalize"
)

// Directory is the entity/area directory collaborator consumed by the
// referential-integrity stage. Both methods return best-effort
// snapshots that may be empty.
type Directory interface {
	Entities(ctx context.Context) ([]inventory.Entity, error)
	Areas(ctx context.Context) ([]inventory.Area, error)
}

// ServiceCatalog is the service-catalog collaborator consumed by the
// service-schema stage.
type ServiceCatalog interface {
	Services(ctx context.Context) ([]inventory.Service, error)
}

// Logger is the optional logging interface used by the pipeline.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Pipeline validates automation documents. It holds only immutable
// collaborator references; all per-call state lives in the collector,
// so a single Pipeline is safe for concurrent use.
type Pipeline struct {
	directory Directory
	catalog   ServiceCatalog
	logger    Logger
}

// New creates a validation pipeline. Either collaborator may be nil;
// the corresponding stage then degrades as documented in the package
// comment.
func New(directory Directory, catalog ServiceCatalog) *Pipeline {
	return &Pipeline{
		directory: directory,
		catalog:   catalog,
	}
}

// SetLogger sets an optional logger for collaborator degradation
// events. Findings themselves are reported via the Result, not logged.
func (p *Pipeline) SetLogger(logger Logger) {
	p.logger = logger
}

// Validate runs the six-stage pipeline over one document.
//
// The returned Result is complete in every case: syntax failures
// produce a terminal single-error result, and collaborator failures
// degrade their stage rather than surfacing as an error from this
// method.
func (p *Pipeline) Validate(ctx context.Context, text string, opts Options) *Result {
	c := newCollector()

	// Stage 1: syntax. Failure is terminal.
	root, syntaxErr := parseDocument(text)
	if syntaxErr != "" {
		c.errorf("%s", syntaxErr)
		c.score = 0
		return c.result()
	}

	// Optional normalizer pass between syntax and structure.
	var fixedText string
	var fixes []string
	if opts.Normalize {
		fixes = normalize.Tree(root)
		if len(fixes) > 0 {
			fixedText = encodeTree(root)
		}
	}

	var tree map[string]any
	if err := root.Decode(&tree); err != nil {
		c.errorf("syntax error: %v", err)
		c.score = 0
		return c.result()
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeModerate
	}

	stages := []struct {
		penalty float64
		run     func()
	}{
		{structurePenalty, func() { checkStructure(c, tree) }},
		{referentialPenalty, func() {
			if opts.ValidateEntities {
				p.checkReferences(ctx, c, tree)
			}
		}},
		{servicePenalty, func() {
			if opts.ValidateServices {
				p.checkServices(ctx, c, tree)
			}
		}},
		{0, func() { checkSafety(c, tree) }},
		{stylePenalty, func() { checkStyle(c, tree) }},
	}

	for _, stage := range stages {
		before := len(c.errors)
		stage.run()
		if len(c.errors) > before {
			if stage.penalty > 0 {
				c.deduct(stage.penalty)
			}
			if mode == ModeStrict {
				break
			}
		}
	}

	r := c.result()
	r.FixedText = fixedText
	if fixes != nil {
		r.FixesApplied = fixes
	}
	return r
}

// parseDocument parses text into a mapping root node. It returns a
// non-empty error string when the document is unusable.
func parseDocument(text string) (*yaml.Node, string) {
	if strings.TrimSpace(text) == "" {
		return nil, "syntax error: document is empty"
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, "syntax error: " + err.Error()
	}
	if len(doc.Content) == 0 {
		return nil, "syntax error: document is empty"
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, "syntax error: document root must be a mapping"
	}
	return root, ""
}

// encodeTree renders a node tree back to canonical text.
func encodeTree(root *yaml.Node) string {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return ""
	}
	//nolint:errcheck // Close after a successful Encode cannot fail
	enc.Close()
	return b.String()
}
