// Package models defines the core domain models for graph-based workflow execution.
package models

// NodeType represents the execution family a node belongs to.
type NodeType string

const (
	NodeTypeTrigger        NodeType = "TRIGGER"
	NodeTypeAction         NodeType = "ACTION"
	NodeTypeAIAgent        NodeType = "AI_AGENT"
	NodeTypeExternalAction NodeType = "EXTERNAL_ACTION"
	NodeTypeFlow           NodeType = "FLOW"
	NodeTypeTool           NodeType = "TOOL"
	NodeTypeMemory         NodeType = "MEMORY"
	NodeTypeHumanInTheLoop NodeType = "HUMAN_IN_THE_LOOP"
)

// Well-known subtypes. The registry in pkg/specs is the authority on which
// (type, subtype) pairs exist; these constants cover the built-in executors.
const (
	SubtypeManual    = "MANUAL"
	SubtypeCron      = "CRON"
	SubtypeWebhook   = "WEBHOOK"
	SubtypeHTTP      = "HTTP_REQUEST"
	SubtypeTransform = "DATA_TRANSFORM"

	SubtypeIf      = "IF"
	SubtypeFilter  = "FILTER"
	SubtypeForEach = "FOR_EACH"

	SubtypeLLMChat  = "LLM_CHAT"
	SubtypeUtility  = "UTILITY"
	SubtypeApproval = "APPROVAL"

	SubtypeKeyValue           = "KEY_VALUE"
	SubtypeConversationBuffer = "CONVERSATION_BUFFER"

	SubtypeSlack          = "SLACK"
	SubtypeGitHub         = "GITHUB"
	SubtypeGoogleCalendar = "GOOGLE_CALENDAR"
	SubtypeEmail          = "EMAIL"
)

// ErrorPolicy controls how the engine reacts to a node's terminal failure.
type ErrorPolicy string

const (
	ErrorPolicyStop     ErrorPolicy = "stop"
	ErrorPolicyContinue ErrorPolicy = "continue"
)

// Position is layout information only; execution ignores it.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Node is one vertex of a workflow graph. Nodes are authored elsewhere and
// are read-only during execution; the engine never mutates them.
type Node struct {
	ID         string         `json:"id"         validate:"required"`
	Name       string         `json:"name"       validate:"required,min=1"` // doubles as the connection-map key
	Type       NodeType       `json:"type"       validate:"required"`
	Subtype    string         `json:"subtype"    validate:"required"`
	Parameters map[string]any `json:"parameters,omitempty"`
	// Credentials is an opaque reference resolved by the credential
	// resolver at execution time. Never raw secret material.
	Credentials string      `json:"credentials,omitempty"`
	OnError     ErrorPolicy `json:"on_error,omitempty"`
	Disabled    bool        `json:"disabled,omitempty"`
	Position    *Position   `json:"position,omitempty"`
}

// IsTrigger reports whether the node is an entry point of the graph.
func (n *Node) IsTrigger() bool {
	return n.Type == NodeTypeTrigger
}

// ErrorPolicyOrDefault returns the node's error policy, defaulting to stop.
func (n *Node) ErrorPolicyOrDefault() ErrorPolicy {
	if n.OnError == ErrorPolicyContinue {
		return ErrorPolicyContinue
	}

	return ErrorPolicyStop
}

// NodeRef is a narrowed view of a node carrying only what cross-package
// consumers (validator, planner) need to identify it.
type NodeRef struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    NodeType `json:"type"`
	Subtype string   `json:"subtype"`
}

// Ref returns the node's narrowed view.
func (n *Node) Ref() NodeRef {
	return NodeRef{ID: n.ID, Name: n.Name, Type: n.Type, Subtype: n.Subtype}
}
