package dispatch

import (
	"strings"

	"drishti-worker-go/internal/config"
	"drishti-worker-go/internal/models"
)

// DefaultAction is taken for every (type, severity) pair the policy table does not name
const DefaultAction = "Notify supervisor"

// Action is a mapped response. An empty Capability means no field unit is needed.
type Action struct {
	Name       string `json:"action"`
	Capability string `json:"capability,omitempty"`
}

func (a Action) RequiresUnits() bool { return a.Capability != "" }

type ruleKey struct {
	eventType string
	severity  models.Severity
}

// ActionMapper looks up the response for an event in a static policy table
type ActionMapper struct {
	rules map[ruleKey]Action
}

func NewActionMapper(rules []config.ActionRule) ActionMapper {
	m := ActionMapper{rules: make(map[ruleKey]Action, len(rules))}
	for _, r := range rules {
		key := ruleKey{
			eventType: strings.ToLower(r.Type),
			severity:  models.ParseSeverity(r.Severity),
		}
		m.rules[key] = Action{Name: r.Action, Capability: r.Capability}
	}
	return m
}

// Map returns the action for the pair, or DefaultAction when it is unmapped
func (m ActionMapper) Map(eventType string, severity models.Severity) Action {
	key := ruleKey{eventType: strings.ToLower(eventType), severity: models.ParseSeverity(string(severity))}
	if action, ok := m.rules[key]; ok {
		return action
	}
	return Action{Name: DefaultAction}
}
