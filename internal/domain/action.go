package domain

import "strings"

// Action is an operation a permission allows on a resource.
type Action string

// Supported actions. The set is closed.
const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// Actions lists every supported action in declaration order.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList}
}

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	for _, candidate := range Actions() {
		if a == candidate {
			return true
		}
	}
	return false
}

// ParseAction normalises raw and reports whether it names a supported action.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	return a, a.Valid()
}

func (a Action) String() string { return string(a) }

// Resource names seeded by default.
const (
	ResourceUser       = "user"
	ResourceRole       = "role"
	ResourcePermission = "permission"
)
