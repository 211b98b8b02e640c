package models

import "time"

// InstanceStatus represents the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusActive    InstanceStatus = "active"
	InstanceStatusCompleted InstanceStatus = "completed" // reached a final state
	InstanceStatusCancelled InstanceStatus = "cancelled" // explicitly cancelled, outside the graph
)

// WorkflowInstance is one running execution of a definition against one
// concrete business record. It is the unit of concurrency control: a single
// transition is in flight per instance at any time.
type WorkflowInstance struct {
	ID                   string         `json:"id"`
	OrganizationID       string         `json:"organization_id"`
	WorkflowDefinitionID string         `json:"workflow_definition_id"`
	EntityType           string         `json:"entity_type"`
	EntityID             string         `json:"entity_id"`
	CurrentState         string         `json:"current_state"`
	Status               InstanceStatus `json:"status"`
	Context              map[string]any `json:"context,omitempty"`
	History              []HistoryEntry `json:"history"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty"`
	CancelledAt          *time.Time     `json:"cancelled_at,omitempty"`
	CancelledBy          string         `json:"cancelled_by,omitempty"`
}

// Terminal reports whether the instance accepts further transitions.
func (i *WorkflowInstance) Terminal() bool {
	return i.Status == InstanceStatusCompleted || i.Status == InstanceStatusCancelled
}

// MergeContext merges updates into the instance context key by key. Later
// keys overwrite earlier ones; the bag is never wholesale replaced.
func (i *WorkflowInstance) MergeContext(updates map[string]any) {
	if len(updates) == 0 {
		return
	}

	if i.Context == nil {
		i.Context = make(map[string]any, len(updates))
	}

	for k, v := range updates {
		i.Context[k] = v
	}
}

// AppendHistory appends an entry to the instance's audit trail. History is
// append-only; existing entries are never mutated.
func (i *WorkflowInstance) AppendHistory(entry HistoryEntry) {
	i.History = append(i.History, entry)
}

// ExecutedPath returns the (from, to) pairs of executed transitions in
// chronological order. Replayed from the initial state this reconstructs
// CurrentState.
func (i *WorkflowInstance) ExecutedPath() [][2]string {
	path := make([][2]string, 0, len(i.History))

	for _, e := range i.History {
		if e.Executed {
			path = append(path, [2]string{e.FromState, e.ToState})
		}
	}

	return path
}
