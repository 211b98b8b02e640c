package models

import "time"

// GuardOutcome records how a guard evaluated during one transition attempt.
// It is written into history for both accepted and rejected attempts so an
// auditor can always answer "why".
type GuardOutcome struct {
	Passed     bool      `json:"passed"`
	Type       GuardKind `json:"type,omitempty"`
	Expression string    `json:"expression,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	Model      string    `json:"model,omitempty"`
}

// ActionOutcome records the best-effort execution of a transition action.
type ActionOutcome struct {
	Executed bool   `json:"executed"`
	Action   string `json:"action,omitempty"`
	Error    string `json:"error,omitempty"`
}

// HistoryEntry is the immutable audit record of one transition attempt that
// reached guard evaluation. Executed marks whether the transition was applied;
// rejected attempts keep the instance state unchanged but are still recorded.
type HistoryEntry struct {
	ID           string         `json:"id"`
	FromState    string         `json:"from_state"`
	ToState      string         `json:"to_state"`
	TriggeredBy  string         `json:"triggered_by,omitempty"` // empty for system-triggered
	Timestamp    time.Time      `json:"timestamp"`
	Executed     bool           `json:"executed"`
	GuardResult  *GuardOutcome  `json:"guard_result,omitempty"`
	ActionResult *ActionOutcome `json:"action_result,omitempty"`
}
