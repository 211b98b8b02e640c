package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calyptra/stateflow/pkg/models"
	"github.com/calyptra/stateflow/pkg/services"
	"github.com/calyptra/stateflow/pkg/testutil"
	"github.com/calyptra/stateflow/pkg/web"
	"github.com/calyptra/stateflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	app         *fiber.App
	persistence *testutil.MemoryPersistence
}

func setupTestApp(t *testing.T) *testAPI {
	t.Helper()

	p := testutil.NewMemoryPersistence()
	definitionService := services.NewDefinition(p.DefinitionRepository(), p.InstanceRepository())
	engine := workflow.NewEngine(workflow.Config{
		Definitions: p.DefinitionRepository(),
		Instances:   p.InstanceRepository(),
	})

	handlers := web.NewAPIHandlers(definitionService, engine, p,
		validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Register(app)

	return &testAPI{app: app, persistence: p}
}

func (a *testAPI) request(t *testing.T, method, path, orgID string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if orgID != "" {
		req.Header.Set("X-Organization-ID", orgID)
	}

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func definitionDocument() map[string]any {
	return map[string]any{
		"name":        "invoice approval",
		"entity_type": "invoice",
		"states": []any{
			map[string]any{"name": "submitted", "initial": true},
			map[string]any{"name": "approved", "final": true},
		},
		"transitions": []any{
			map[string]any{"from": "submitted", "to": "approved"},
		},
	}
}

func TestAPIHandlers_DefinitionLifecycle(t *testing.T) {
	api := setupTestApp(t)

	// Create.
	resp, body := api.request(t, http.MethodPost, "/definitions/", "org-1", definitionDocument())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.WorkflowDefinition
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, models.DefinitionStatusDraft, created.Status)
	assert.NotEmpty(t, created.ID)

	// Get.
	resp, body = api.request(t, http.MethodGet, "/definitions/"+created.ID, "org-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.WorkflowDefinition
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	// Activate.
	resp, body = api.request(t, http.MethodPost, "/definitions/"+created.ID+"/activate", "org-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var activated models.WorkflowDefinition
	require.NoError(t, json.Unmarshal(body, &activated))
	assert.Equal(t, models.DefinitionStatusActive, activated.Status)

	// List.
	resp, body = api.request(t, http.MethodGet, "/definitions/", "org-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), created.ID)
}

func TestAPIHandlers_CreateDefinition_Invalid(t *testing.T) {
	api := setupTestApp(t)

	document := definitionDocument()
	delete(document, "states")

	resp, body := api.request(t, http.MethodPost, "/definitions/", "org-1", document)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "validation")
}

func TestAPIHandlers_MissingOrganizationHeader(t *testing.T) {
	api := setupTestApp(t)

	resp, body := api.request(t, http.MethodGet, "/definitions/", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "X-Organization-ID")
}

func TestAPIHandlers_InstanceLifecycle(t *testing.T) {
	api := setupTestApp(t)

	// Create and activate a definition.
	resp, body := api.request(t, http.MethodPost, "/definitions/", "org-1", definitionDocument())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var definition models.WorkflowDefinition
	require.NoError(t, json.Unmarshal(body, &definition))

	resp, _ = api.request(t, http.MethodPost, "/definitions/"+definition.ID+"/activate", "org-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Start an instance.
	resp, body = api.request(t, http.MethodPost, "/instances/", "org-1", web.StartInstanceRequest{
		DefinitionID: definition.ID,
		EntityID:     "inv-42",
		Context:      map[string]any{"source": "api"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var instance models.WorkflowInstance
	require.NoError(t, json.Unmarshal(body, &instance))
	assert.Equal(t, "submitted", instance.CurrentState)

	// Available transitions.
	resp, body = api.request(t, http.MethodPost, "/instances/"+instance.ID+"/available-transitions", "org-1",
		web.AvailableTransitionsRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "approved")

	// Transition to the final state.
	resp, body = api.request(t, http.MethodPost, "/instances/"+instance.ID+"/transition", "org-1",
		web.TransitionRequest{ToState: "approved", Actor: "user-7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"completed"`)

	// The instance shows up under its definition.
	resp, body = api.request(t, http.MethodGet, "/definitions/"+definition.ID+"/instances", "org-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), instance.ID)

	// History shows the executed transition.
	resp, body = api.request(t, http.MethodGet, "/instances/"+instance.ID+"/history", "org-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"approved"`)

	// Further transitions conflict.
	resp, _ = api.request(t, http.MethodPost, "/instances/"+instance.ID+"/transition", "org-1",
		web.TransitionRequest{ToState: "submitted"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPIHandlers_Transition_NotFound(t *testing.T) {
	api := setupTestApp(t)

	resp, _ := api.request(t, http.MethodPost, "/instances/missing/transition", "org-1",
		web.TransitionRequest{ToState: "approved"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_Transition_UnknownEdge(t *testing.T) {
	api := setupTestApp(t)
	ctx := context.Background()

	definition := testutil.CreateTestDefinition()
	require.NoError(t, api.persistence.DefinitionRepository().Save(ctx, definition))

	instance := testutil.CreateTestInstance(definition)
	require.NoError(t, api.persistence.InstanceRepository().Save(ctx, instance))

	resp, body := api.request(t, http.MethodPost, "/instances/"+instance.ID+"/transition",
		definition.OrganizationID, web.TransitionRequest{ToState: "approved"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "transition_not_found")
}

func TestAPIHandlers_GuardRejection(t *testing.T) {
	api := setupTestApp(t)
	ctx := context.Background()

	definition := testutil.CreateTestDefinition(testutil.WithGuard("draft", "review", &models.GuardSpec{
		Kind:       models.GuardKindExpression,
		Expression: "entity.ready == true",
	}))
	require.NoError(t, api.persistence.DefinitionRepository().Save(ctx, definition))

	instance := testutil.CreateTestInstance(definition)
	require.NoError(t, api.persistence.InstanceRepository().Save(ctx, instance))

	resp, body := api.request(t, http.MethodPost, "/instances/"+instance.ID+"/transition",
		definition.OrganizationID, web.TransitionRequest{
			ToState: "review",
			Entity:  map[string]any{"ready": false},
		})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "guard_rejected")
}

func TestAPIHandlers_CancelInstance(t *testing.T) {
	api := setupTestApp(t)
	ctx := context.Background()

	definition := testutil.CreateTestDefinition()
	require.NoError(t, api.persistence.DefinitionRepository().Save(ctx, definition))

	instance := testutil.CreateTestInstance(definition)
	require.NoError(t, api.persistence.InstanceRepository().Save(ctx, instance))

	resp, body := api.request(t, http.MethodPost, "/instances/"+instance.ID+"/cancel",
		definition.OrganizationID, web.CancelRequest{Actor: "admin-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cancelled models.WorkflowInstance
	require.NoError(t, json.Unmarshal(body, &cancelled))
	assert.Equal(t, models.InstanceStatusCancelled, cancelled.Status)
	assert.Equal(t, "admin-1", cancelled.CancelledBy)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	api := setupTestApp(t)

	resp, body := api.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}
