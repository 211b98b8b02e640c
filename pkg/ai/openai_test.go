package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		allowed bool
		reason  string
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"allowed": true, "reason": "amount within policy"}`,
			allowed: true,
			reason:  "amount within policy",
		},
		{
			name:    "fenced json",
			content: "```json\n{\"allowed\": false, \"reason\": \"policy violation\"}\n```",
			allowed: false,
			reason:  "policy violation",
		},
		{
			name:    "json with surrounding prose",
			content: "Here is my verdict: {\"allowed\": true, \"reason\": \"ok\"} as requested.",
			allowed: true,
			reason:  "ok",
		},
		{
			name:    "no json at all",
			content: "I cannot decide.",
			wantErr: true,
		},
		{
			name:    "malformed json",
			content: `{"allowed": maybe}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.content)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.allowed, v.Allowed)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestBuildGuardPrompt(t *testing.T) {
	prompt, err := buildGuardPrompt(
		map[string]any{"amount": 5000},
		InstanceView{CurrentState: "qualified", Context: map[string]any{"region": "emea"}},
		TransitionView{From: "qualified", To: "approved"},
		"approved",
	)
	require.NoError(t, err)

	assert.Contains(t, prompt, `"amount": 5000`)
	assert.Contains(t, prompt, `"region": "emea"`)
	assert.Contains(t, prompt, "qualified -> approved")
	assert.Contains(t, prompt, "**Current state:** qualified")
}
