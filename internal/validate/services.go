package validate

import (
	"context"
	"regexp"
	"strings"
)

// servicePattern matches a well-formed service identifier: exactly one
// dot separating two alphanumeric/underscore tokens.
var servicePattern = regexp.MustCompile(`^\w+\.\w+$`)

// checkServices is stage 4: service identifier checks against the
// service catalog. Service names are extracted only from the 'service'
// field of actions, a deliberately narrower path than the entity
// extraction. When the catalog is unreachable the stage is a no-op.
func (p *Pipeline) checkServices(ctx context.Context, c *collector, tree map[string]any) {
	if p.catalog == nil {
		return
	}

	catalog, err := p.catalog.Services(ctx)
	if err != nil {
		if p.logger != nil {
			p.logger.Debug("service catalog unavailable, skipping service checks", "error", err)
		}
		return
	}

	known := make(map[string]map[string]struct{}, len(catalog))
	for _, domain := range catalog {
		services := make(map[string]struct{}, len(domain.Services))
		for _, s := range domain.Services {
			services[s] = struct{}{}
		}
		known[domain.Domain] = services
	}

	refs := extractReferences(tree)
	for _, id := range refs.Services {
		checkService(c, known, id)
	}
}

func checkService(c *collector, known map[string]map[string]struct{}, id string) {
	if !servicePattern.MatchString(id) {
		c.errorf("malformed service identifier: '%s' (expected 'domain.service')", id)
		return
	}

	domain, service, _ := strings.Cut(id, ".")
	services, ok := known[domain]
	if !ok {
		// Unknown domains are not flagged: the catalog snapshot may be
		// partial, and the format check already passed.
		return
	}
	if _, ok := services[service]; !ok {
		c.warnf("service '%s' not found in the service catalog for domain '%s'", id, domain)
	}
}
