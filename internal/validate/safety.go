package validate

import (
	"fmt"
	"sort"
	"strings"
)

// riskTier classifies how dangerous a domain or service is when driven
// by an unattended automation.
type riskTier string

const (
	riskHigh   riskTier = "high"
	riskMedium riskTier = "medium"
	riskLow    riskTier = "low"
)

// criticalDomains maps a domain to its risk tier. Touching one of
// these from an automation is not an error, but it costs safety score.
var criticalDomains = map[string]riskTier{
	"lock":                riskHigh,
	"alarm_control_panel": riskHigh,
	"climate":             riskMedium,
	"cover":               riskMedium,
	"switch":              riskLow,
}

// criticalServices maps specific service calls to their risk tier.
var criticalServices = map[string]riskTier{
	"lock.lock":                          riskHigh,
	"lock.unlock":                        riskHigh,
	"alarm_control_panel.alarm_arm_away": riskHigh,
	"alarm_control_panel.alarm_arm_home": riskHigh,
	"alarm_control_panel.alarm_disarm":   riskHigh,
	"climate.set_temperature":            riskMedium,
	"cover.open_cover":                   riskMedium,
	"cover.close_cover":                  riskMedium,
}

// Safety sub-score deductions per matched domain/service.
var (
	domainDeduction  = map[riskTier]float64{riskHigh: 20, riskMedium: 10, riskLow: 5}
	serviceDeduction = map[riskTier]float64{riskHigh: 25, riskMedium: 15, riskLow: 5}
)

// safetyWarnThreshold is the sub-score below which the inline safety
// warning is emitted.
const safetyWarnThreshold = 85

// Services whose unguarded use trips the no-condition detectors.
var (
	securityCriticalOps = []string{"lock.unlock", "alarm_control_panel.alarm_disarm"}
	comfortCriticalOps  = []string{"climate.set_temperature"}
)

// checkSafety is stage 5: risk assessment. It never produces errors,
// only warnings. Two numbers are in play and deliberately kept apart:
// the safety sub-score (its own 0-100, surfaced only as warning text
// when below the threshold) and the overall document score, which each
// risky pattern reduces directly.
func checkSafety(c *collector, tree map[string]any) {
	refs := extractReferences(tree)

	subScore := scoreCriticalUse(c, refs)
	if subScore < safetyWarnThreshold {
		c.warnf("safety score %d/100: this automation touches security- or comfort-critical devices", int(subScore))
	}

	hasConditions := len(listItems(tree["condition"])) > 0
	detectUnconditional(c, refs.Services, hasConditions)
	detectMissingDelay(c, tree)
}

// scoreCriticalUse computes the safety sub-score and reports matches
// grouped by risk tier.
func scoreCriticalUse(c *collector, refs references) float64 {
	subScore := float64(100)
	byTier := map[riskTier][]string{}

	domains := map[string]struct{}{}
	for _, svc := range refs.Services {
		domain, _, _ := strings.Cut(svc, ".")
		domains[domain] = struct{}{}

		if tier, ok := criticalServices[svc]; ok {
			subScore -= serviceDeduction[tier]
			byTier[tier] = append(byTier[tier], svc)
		}
	}
	for _, id := range refs.ActionEntities {
		domain, _, _ := strings.Cut(id, ".")
		domains[domain] = struct{}{}
	}

	for _, domain := range sortedKeys(domains) {
		if tier, ok := criticalDomains[domain]; ok {
			subScore -= domainDeduction[tier]
			byTier[tier] = append(byTier[tier], domain+".*")
		}
	}
	if subScore < 0 {
		subScore = 0
	}

	for _, tier := range []riskTier{riskHigh, riskMedium, riskLow} {
		matches := byTier[tier]
		if len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		c.warnf("%s-risk operations used: %s", tier, strings.Join(matches, ", "))
	}

	return subScore
}

// detectUnconditional flags critical operations in automations that
// have no condition block at all.
func detectUnconditional(c *collector, services []string, hasConditions bool) {
	if hasConditions {
		return
	}

	used := map[string]struct{}{}
	for _, svc := range services {
		used[svc] = struct{}{}
	}

	for _, op := range securityCriticalOps {
		if _, ok := used[op]; ok {
			riskyPattern(c, fmt.Sprintf("'%s' runs without any conditions: add a condition block to guard it", op))
		}
	}
	for _, op := range comfortCriticalOps {
		if _, ok := used[op]; ok {
			riskyPattern(c, fmt.Sprintf("'%s' runs without any conditions: an unguarded setpoint change can fight the schedule", op))
		}
	}
}

// detectMissingDelay flags security-critical operations that appear in
// the action sequence with no preceding delay action. The scan follows
// document order and looks one level into nested sequence/parallel
// blocks.
func detectMissingDelay(c *collector, tree map[string]any) {
	flagged := map[string]struct{}{}
	delaySeen := false

	var scan func(items []map[string]any, depth int)
	scan = func(items []map[string]any, depth int) {
		for _, item := range items {
			if _, ok := item["delay"]; ok {
				delaySeen = true
				continue
			}

			if svc, ok := stringField(item, "service"); ok && !delaySeen {
				for _, op := range securityCriticalOps {
					if svc != op {
						continue
					}
					if _, done := flagged[svc]; done {
						continue
					}
					flagged[svc] = struct{}{}
					riskyPattern(c, fmt.Sprintf("'%s' executes with no preceding delay: insert a delay action to allow cancellation", svc))
				}
			}

			if depth == 0 {
				for _, key := range []string{"sequence", "parallel"} {
					if nested := listItems(item[key]); len(nested) > 0 {
						scan(nested, depth+1)
					}
				}
			}
		}
	}

	scan(listItems(tree["action"]), 0)
}

// riskyPattern records a risky-pattern warning and its overall-score
// deduction.
func riskyPattern(c *collector, msg string) {
	c.warnings = append(c.warnings, "risky pattern: "+msg)
	c.deduct(riskyPatternPenalty)
}
