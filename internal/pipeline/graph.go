// Package pipeline implements the agent dependency and readiness engine:
// the static prerequisite graph between pipeline stages, the session-scoped
// store of the active campaign and agent outputs, and the orchestration
// service that gates agent runs on readiness.
package pipeline

import (
	"fmt"

	"github.com/adforge-ai/adforge/internal/model"
)

// prerequisites is the static dependency table: each agent maps to the
// ordered set of agents whose outputs it consumes. Immutable at runtime;
// ValidateGraph proves it acyclic and closed over the known agent set.
var prerequisites = map[model.AgentName][]model.AgentName{
	model.AgentMarketingStrategist: {},
	model.AgentCreativeStrategist:  {model.AgentMarketingStrategist},
	model.AgentVideoDirector:       {model.AgentCreativeStrategist},
	model.AgentDesigner:            {model.AgentCreativeStrategist, model.AgentVideoDirector},
	model.AgentPromptGenerator:     {},
	model.AgentCopywriter:          {model.AgentCreativeStrategist},
	model.AgentMediaBuyer:          {model.AgentMarketingStrategist, model.AgentCopywriter},
	model.AgentDataOps:             {model.AgentMediaBuyer},
	model.AgentCompliance:          {model.AgentCopywriter, model.AgentDesigner},
	model.AgentCompetitorAnalysis:  {},
	model.AgentCampaignScheduler:   {model.AgentMediaBuyer, model.AgentDataOps, model.AgentCompliance},
}

// PrerequisitesOf returns the ordered prerequisite set for agent. It is a
// total function: agents with no prerequisites (and names outside the
// enumeration, which matches the non-gated pages) yield an empty set.
// The returned slice is a copy.
func PrerequisitesOf(agent model.AgentName) []model.AgentName {
	deps := prerequisites[agent]
	out := make([]model.AgentName, len(deps))
	copy(out, deps)
	return out
}

// DownstreamOf returns every agent that transitively depends on agent, in
// canonical pipeline order. Used to report which completions became stale
// after an upstream re-run.
func DownstreamOf(agent model.AgentName) []model.AgentName {
	var out []model.AgentName
	for _, candidate := range model.Agents() {
		if candidate == agent {
			continue
		}
		if dependsOn(candidate, agent, nil) {
			out = append(out, candidate)
		}
	}
	return out
}

// dependsOn reports whether a transitively requires b.
func dependsOn(a, b model.AgentName, seen map[model.AgentName]bool) bool {
	if seen == nil {
		seen = make(map[model.AgentName]bool)
	}
	if seen[a] {
		return false
	}
	seen[a] = true
	for _, dep := range prerequisites[a] {
		if dep == b || dependsOn(dep, b, seen) {
			return true
		}
	}
	return false
}

// ValidateGraph checks that the dependency table covers exactly the known
// agent set, references only known agents, and contains no cycles. Called
// once from the service constructor; the tests assert it directly so a bad
// edit to the table fails before any server boots.
func ValidateGraph() error {
	for _, agent := range model.Agents() {
		if _, ok := prerequisites[agent]; !ok {
			return fmt.Errorf("pipeline: agent %s missing from dependency table", agent)
		}
	}
	for agent, deps := range prerequisites {
		if !agent.Valid() {
			return fmt.Errorf("pipeline: dependency table references unknown agent %s", agent)
		}
		for _, dep := range deps {
			if !dep.Valid() {
				return fmt.Errorf("pipeline: %s requires unknown agent %s", agent, dep)
			}
			if dep == agent {
				return fmt.Errorf("pipeline: %s requires itself", agent)
			}
		}
	}

	// Cycle check: depth-first walk with colouring.
	const (
		white = 0 // unvisited
		grey  = 1 // on the current path
		black = 2 // fully explored
	)
	colour := make(map[model.AgentName]int, len(prerequisites))
	var visit func(a model.AgentName) error
	visit = func(a model.AgentName) error {
		colour[a] = grey
		for _, dep := range prerequisites[a] {
			switch colour[dep] {
			case grey:
				return fmt.Errorf("pipeline: dependency cycle through %s and %s", a, dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		colour[a] = black
		return nil
	}
	for agent := range prerequisites {
		if colour[agent] == white {
			if err := visit(agent); err != nil {
				return err
			}
		}
	}
	return nil
}
