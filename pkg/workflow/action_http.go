package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/calyptra/stateflow/pkg/models"
)

const defaultHTTPActionTimeout = 30 * time.Second

var ErrHTTPActionURLMissing = errors.New("http_request action requires a 'url' config key")

// HTTPRequestAction notifies an external system about an executed transition.
// The request body is a JSON snapshot of the instance after the state change.
type HTTPRequestAction struct {
	client *http.Client
}

func NewHTTPRequestAction() *HTTPRequestAction {
	return &HTTPRequestAction{
		client: &http.Client{Timeout: defaultHTTPActionTimeout},
	}
}

func (a *HTTPRequestAction) Execute(ctx context.Context, config map[string]any, instance *models.WorkflowInstance, logger *slog.Logger) error {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return ErrHTTPActionURLMissing
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	payload, err := json.Marshal(map[string]any{
		"instance_id":   instance.ID,
		"entity_type":   instance.EntityType,
		"entity_id":     instance.EntityID,
		"current_state": instance.CurrentState,
		"status":        instance.Status,
		"context":       instance.Context,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if headers, ok := config["headers"].(map[string]any); ok {
		for key, value := range headers {
			if text, ok := value.(string); ok {
				req.Header.Set(key, text)
			}
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http_request action: unexpected status %d from %s", resp.StatusCode, url)
	}

	logger.Debug("http_request action delivered",
		"instance_id", instance.ID,
		"url", url,
		"status", resp.StatusCode)

	return nil
}
