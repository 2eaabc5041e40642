package inventory

import "strings"

// Entity is a single entry from the live entity directory.
type Entity struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state,omitempty"`
	AreaID     string         `json:"area_id,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Domain returns the domain portion of the entity ID
// ("light.kitchen" -> "light"), or "" when the ID has no dot.
func (e Entity) Domain() string {
	domain, _, ok := strings.Cut(e.EntityID, ".")
	if !ok {
		return ""
	}
	return domain
}

// Area is a single entry from the area registry.
type Area struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
}

// Service describes the services exposed by one domain
// (e.g. domain "light" with services "turn_on", "turn_off").
type Service struct {
	Domain   string   `json:"domain"`
	Services []string `json:"services"`
}
