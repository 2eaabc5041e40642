package validate

import (
	"context"
	"strings"
)

// stateVocabulary maps a domain to its known small state vocabulary.
// The table is a heuristic, not authoritative: values outside it are
// warnings, never errors.
var stateVocabulary = map[string][]string{
	"binary_sensor":  {"on", "off"},
	"switch":         {"on", "off"},
	"light":          {"on", "off"},
	"input_boolean":  {"on", "off"},
	"lock":           {"locked", "unlocked", "locking", "unlocking", "jammed"},
	"cover":          {"open", "closed", "opening", "closing", "stopped"},
	"person":         {"home", "not_home"},
	"device_tracker": {"home", "not_home"},
	"alarm_control_panel": {
		"disarmed", "armed_home", "armed_away", "armed_night",
		"arming", "pending", "triggered",
	},
}

// checkReferences is stage 3: referential integrity against the live
// entity/area directory. Unknown entities are errors; unknown areas
// and out-of-vocabulary state values are warnings. When the directory
// is unreachable the whole stage degrades to a single warning with no
// score impact.
func (p *Pipeline) checkReferences(ctx context.Context, c *collector, tree map[string]any) {
	if p.directory == nil {
		c.degrade("entity directory not configured: skipping referential checks")
		return
	}

	entities, err := p.directory.Entities(ctx)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("entity directory unavailable", "error", err)
		}
		c.degrade("entity directory unavailable: skipping referential checks")
		return
	}

	known := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		known[e.EntityID] = struct{}{}
	}

	refs := extractReferences(tree)

	for _, id := range refs.Entities {
		if _, ok := known[id]; !ok {
			c.errorf("unknown entity: '%s'", id)
		}
	}

	p.checkAreas(ctx, c, refs.Areas)

	for _, check := range refs.StateChecks {
		warnUnknownState(c, check)
	}
}

// checkAreas verifies referenced area IDs against the area registry.
// A failed area fetch quietly skips the check: the entity snapshot
// already succeeded, so a separate degradation warning would be noise.
func (p *Pipeline) checkAreas(ctx context.Context, c *collector, areaRefs []string) {
	if len(areaRefs) == 0 {
		return
	}

	areas, err := p.directory.Areas(ctx)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("area registry unavailable", "error", err)
		}
		return
	}

	known := make(map[string]struct{}, len(areas))
	for _, a := range areas {
		known[a.AreaID] = struct{}{}
	}

	for _, id := range areaRefs {
		if _, ok := known[id]; !ok {
			c.warnf("unknown area: '%s'", id)
		}
	}
}

// warnUnknownState flags a state value outside the domain's known
// vocabulary.
func warnUnknownState(c *collector, check stateCheck) {
	domain, _, ok := strings.Cut(check.EntityID, ".")
	if !ok {
		return
	}
	vocabulary, ok := stateVocabulary[domain]
	if !ok {
		return
	}

	for _, valid := range vocabulary {
		if check.Value == valid {
			return
		}
	}
	c.warnf("'%s' is not a known state for %s (known states: %s)",
		check.Value, check.EntityID, strings.Join(vocabulary, ", "))
}
