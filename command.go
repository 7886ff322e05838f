package mandrill

import (
	"strings"
)

// Operation is the action a Command performs against one template.
type Operation int

const (
	OpInspect Operation = iota + 1
	OpFix
	OpRender
)

func (o Operation) String() string {
	switch o {
	case OpInspect:
		return "inspect"
	case OpFix:
		return "fix"
	case OpRender:
		return "render"
	default:
		return "unknown"
	}
}

// ParseOperation maps a subcommand name to an Operation.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inspect":
		return OpInspect, nil
	case "fix":
		return OpFix, nil
	case "render":
		return OpRender, nil
	case "":
		return 0, badCommand("no command given")
	default:
		return 0, badCommand("unrecognized command: " + s)
	}
}

// VariableReplacement is a single merge variable sent with a render request.
type VariableReplacement struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Command is one invocation against one template. It is built once and
// not modified afterwards.
type Command struct {
	Operation Operation
	APIKey    string
	Target    string

	// Vars is nil when no variables were supplied.
	Vars []VariableReplacement
}

// Validate checks the invariants every request builder relies on.
func (c Command) Validate() error {
	switch c.Operation {
	case OpInspect, OpFix, OpRender:
	default:
		return badCommand("unrecognized command")
	}
	if c.APIKey == "" {
		return missingCredential("missing API key")
	}
	if strings.TrimSpace(c.Target) == "" {
		return badCommand("template name is required")
	}
	return nil
}

// ParseVariable parses a "name:content" token. The token is split on the
// first colon, so content may itself contain colons. A token without a
// colon or with an empty name is rejected.
func ParseVariable(token string) (VariableReplacement, bool) {
	name, content, found := strings.Cut(token, ":")
	if !found || name == "" {
		return VariableReplacement{}, false
	}
	return VariableReplacement{Name: name, Content: content}, true
}

// ParseVariables parses every token, silently dropping malformed ones.
// Returns nil when no tokens were given.
func ParseVariables(tokens []string) []VariableReplacement {
	if len(tokens) == 0 {
		return nil
	}
	vars := make([]VariableReplacement, 0, len(tokens))
	for _, tok := range tokens {
		if v, ok := ParseVariable(tok); ok {
			vars = append(vars, v)
		}
	}
	return vars
}
