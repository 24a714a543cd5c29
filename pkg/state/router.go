package state

import (
	"sort"

	"github.com/alexsears/tentOS/pkg/config"
)

type Category string

const (
	CategorySensor   Category = "sensor"
	CategoryActuator Category = "actuator"
)

// Route is one place an entity feeds. An entity may feed several.
type Route struct {
	TentID   string
	Category Category
	Field    string
}

// Router is the entity routing table. It is built once per config load and
// never mutated afterwards.
type Router struct {
	routes map[string][]Route
}

func NewRouter(configs []config.TentConfig) *Router {
	r := &Router{routes: make(map[string][]Route)}
	for _, cfg := range configs {
		r.add(cfg.ID, CategorySensor, cfg.Sensors)
		r.add(cfg.ID, CategoryActuator, cfg.Actuators)
	}
	return r
}

func (r *Router) add(tentID string, category Category, slots map[string][]string) {
	fields := make([]string, 0, len(slots))
	for field := range slots {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		for _, entityID := range slots[field] {
			r.routes[entityID] = append(r.routes[entityID], Route{
				TentID:   tentID,
				Category: category,
				Field:    field,
			})
		}
	}
}

func (r *Router) Lookup(entityID string) []Route {
	return r.routes[entityID]
}

func (r *Router) Len() int {
	return len(r.routes)
}
