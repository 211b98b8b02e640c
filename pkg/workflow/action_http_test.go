package workflow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRequestAction_Execute(t *testing.T) {
	var (
		gotBody   map[string]any
		gotHeader string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		gotHeader = r.Header.Get("X-Token")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	instance := &models.WorkflowInstance{
		ID:           "inst-1",
		EntityType:   "invoice",
		EntityID:     "inv-42",
		CurrentState: "approved",
		Status:       models.InstanceStatusCompleted,
	}

	action := NewHTTPRequestAction()
	err := action.Execute(context.Background(), map[string]any{
		"url":     server.URL,
		"headers": map[string]any{"X-Token": "secret"},
	}, instance, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "inst-1", gotBody["instance_id"])
	assert.Equal(t, "approved", gotBody["current_state"])
	assert.Equal(t, "secret", gotHeader)
}

func TestHTTPRequestAction_Execute_Errors(t *testing.T) {
	action := NewHTTPRequestAction()
	instance := &models.WorkflowInstance{ID: "inst-1"}

	err := action.Execute(context.Background(), map[string]any{}, instance, slog.Default())
	assert.ErrorIs(t, err, ErrHTTPActionURLMissing)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err = action.Execute(context.Background(), map[string]any{"url": server.URL}, instance, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}
