package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a workflow policy judge for a business process engine. " +
	"Given an entity snapshot, the workflow context and a requested state transition, " +
	"decide whether the transition should be allowed. " +
	"Always respond with ONLY a valid JSON object shaped as " +
	`{"allowed": <bool>, "reason": "<short explanation>"}.`

// OpenAIEvaluator implements GuardEvaluator on top of OpenAI chat completions.
type OpenAIEvaluator struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewOpenAIEvaluator creates an evaluator using the given API key and default
// model. The transition's model hint, when present, overrides the default.
func NewOpenAIEvaluator(apiKey, model string, temperature float32, logger *slog.Logger) *OpenAIEvaluator {
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIEvaluator{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

type verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// EvaluateGuard asks the model for an allow/deny verdict on one transition.
// The caller's context bounds the call; timeouts surface as errors and are
// treated as guard failures upstream.
func (e *OpenAIEvaluator) EvaluateGuard(
	ctx context.Context,
	entity map[string]any,
	instance InstanceView,
	transition TransitionView,
	toState string,
) (GuardDecision, error) {
	model := e.model
	if transition.Guard != nil && transition.Guard.ModelHint != "" {
		model = transition.Guard.ModelHint
	}

	prompt, err := buildGuardPrompt(entity, instance, transition, toState)
	if err != nil {
		return GuardDecision{}, fmt.Errorf("failed to build guard prompt: %w", err)
	}

	e.logger.Debug("Sending guard evaluation request",
		"model", model,
		"from", transition.From,
		"to", toState)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: e.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		e.logger.Error("Guard evaluation call failed", "error", err)

		return GuardDecision{}, fmt.Errorf("ai guard call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return GuardDecision{}, errors.New("ai guard returned no choices")
	}

	content := resp.Choices[0].Message.Content

	v, err := parseVerdict(content)
	if err != nil {
		e.logger.Error("Failed to parse guard verdict", "error", err, "content", content)

		return GuardDecision{}, fmt.Errorf("failed to parse ai guard verdict: %w", err)
	}

	e.logger.Info("Guard evaluation completed",
		"model", model,
		"allowed", v.Allowed,
		"reason", v.Reason)

	return GuardDecision{Allowed: v.Allowed, Reason: v.Reason, Model: model}, nil
}

func buildGuardPrompt(entity map[string]any, instance InstanceView, transition TransitionView, toState string) (string, error) {
	entityJSON, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return "", err
	}

	contextJSON, err := json.MarshalIndent(instance.Context, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Evaluate this workflow transition request.

**Entity snapshot:**
%s

**Workflow context:**
%s

**Current state:** %s
**Requested transition:** %s -> %s

Should this transition be allowed? Respond with ONLY the JSON verdict object.`,
		entityJSON, contextJSON, instance.CurrentState, transition.From, toState), nil
}

// parseVerdict decodes the model output, tolerating a JSON object wrapped in
// markdown fences or surrounding prose.
func parseVerdict(content string) (verdict, error) {
	var v verdict
	if err := json.Unmarshal([]byte(content), &v); err == nil {
		return v, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start < 0 || end <= start {
		return verdict{}, errors.New("no JSON object found in response")
	}

	if err := json.Unmarshal([]byte(content[start:end+1]), &v); err != nil {
		return verdict{}, err
	}

	return v, nil
}
