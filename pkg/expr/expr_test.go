package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Comparisons(t *testing.T) {
	entity := map[string]any{
		"amount":   5000.0,
		"status":   "qualified",
		"priority": 3,
		"tags":     []any{"vip", "import"},
	}
	context := map[string]any{
		"approved_by": "manager",
		"score":       0.82,
	}

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{"numeric greater than", "entity.amount > 1000", true},
		{"numeric greater than fails", "entity.amount > 10000", false},
		{"numeric less or equal", "entity.priority <= 3", true},
		{"string equality", "entity.status == 'qualified'", true},
		{"string inequality", "entity.status != 'lost'", true},
		{"context lookup", "context.approved_by == 'manager'", true},
		{"boolean connectives", "entity.amount > 1000 && context.score > 0.5", true},
		{"or short circuit", "entity.amount > 10000 || entity.status == 'qualified'", true},
		{"negation", "!(entity.amount > 10000)", true},
		{"arithmetic", "entity.amount / 2 > 2000", true},
		{"parentheses", "(entity.amount + 1000) * 2 > 11000", true},
		{"index access", "entity.tags[0] == 'vip'", true},
		{"missing key is null", "entity.nonexistent == null", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, err := Evaluate(tt.expression, entity, context)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, passed)
		})
	}
}

func TestEvaluate_Helpers(t *testing.T) {
	entity := map[string]any{
		"amount": 1500.0,
		"owner":  "ana",
		"items":  []any{"a", "b"},
		"notes":  "",
	}

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{"has present key", "has(entity, 'amount')", true},
		{"has missing key", "has(entity, 'missing')", false},
		{"equals", "equals(entity.owner, 'ana')", true},
		{"notEquals", "notEquals(entity.owner, 'bob')", true},
		{"greaterThan", "greaterThan(entity.amount, 1000)", true},
		{"lessThan", "lessThan(entity.amount, 1000)", false},
		{"contains list", "contains(entity.items, 'b')", true},
		{"contains substring", "contains(entity.owner, 'n')", true},
		{"isEmpty empty string", "isEmpty(entity.notes)", true},
		{"isEmpty non-empty list", "isEmpty(entity.items)", false},
		{"math abs", "Math.abs(-5) == 5", true},
		{"math max", "Math.max(1, 7, 3) == 7", true},
		{"math min", "Math.min(4, 2) == 2", true},
		{"math round", "Math.round(entity.amount / 400) == 4", true},
		{"helpers compose", "has(entity, 'amount') && greaterThan(Math.abs(entity.amount), 100)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, err := Evaluate(tt.expression, entity, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, passed)
		})
	}
}

func TestEvaluate_Truthiness(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{"bare true", "true", true},
		{"bare false", "false", false},
		{"nonzero number", "42", true},
		{"zero number", "0", false},
		{"non-empty string", "'x'", true},
		{"empty string", "''", false},
		{"null", "null", false},
		{"object is truthy", "entity", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, err := Evaluate(tt.expression, map[string]any{}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, passed)
		})
	}
}

// Undeclared identifiers must fail evaluation with an error and never pass.
// This is the sandbox containment boundary for user-authored guards.
func TestEvaluate_SandboxContainment(t *testing.T) {
	hostileExpressions := []string{
		"process.env.SECRET == 'x'",
		"require('fs')",
		"window.location",
		"globalThis.fetch('http://evil')",
		"entity.__proto__.polluted == true",
		"eval('1 == 1')",
	}

	for _, expression := range hostileExpressions {
		t.Run(expression, func(t *testing.T) {
			passed, err := Evaluate(expression, map[string]any{"amount": 1.0}, nil)
			require.Error(t, err)
			assert.False(t, passed)
		})
	}
}

func TestEvaluate_SandboxProtoAccess(t *testing.T) {
	// Member access only reaches map keys; there is no prototype chain to walk.
	passed, err := Evaluate("entity.constructor == null", map[string]any{}, nil)
	require.NoError(t, err)
	assert.True(t, passed, "unknown map keys resolve to null, not host internals")
}

func TestEvaluate_MalformedExpressions(t *testing.T) {
	malformed := []string{
		"",
		"entity.amount >",
		"entity..amount",
		"(entity.amount > 1",
		"entity.amount = 1000",
		"entity.amount & true",
		"'unterminated",
		"1 2",
		"has(entity 'x')",
	}

	for _, expression := range malformed {
		t.Run(expression, func(t *testing.T) {
			passed, err := Evaluate(expression, map[string]any{"amount": 1.0}, nil)
			require.Error(t, err)
			assert.False(t, passed)
		})
	}
}

func TestEvaluate_TypeErrors(t *testing.T) {
	entity := map[string]any{"name": "lead-1", "amount": 10.0}

	tests := []string{
		"entity.name > 5",
		"entity.amount + 'x' > 3",
		"entity.amount / 0 > 1",
		"entity.name()",
		"entity.missing.deeper == 1",
		"greaterThan(entity.name, 5)",
	}

	for _, expression := range tests {
		t.Run(expression, func(t *testing.T) {
			passed, err := Evaluate(expression, entity, nil)
			require.Error(t, err)
			assert.False(t, passed)
		})
	}
}

func TestEvaluate_Determinism(t *testing.T) {
	entity := map[string]any{"amount": 1234.5, "tags": []any{"a"}}
	context := map[string]any{"round": 2.0}
	expression := "Math.round(entity.amount) > 1000 && contains(entity.tags, 'a') && context.round == 2"

	first, firstErr := Evaluate(expression, entity, context)

	for range 50 {
		passed, err := Evaluate(expression, entity, context)
		assert.Equal(t, first, passed)
		assert.Equal(t, firstErr, err)
	}

	require.NoError(t, firstErr)
	assert.True(t, first)
}

func TestEvaluate_NilInputs(t *testing.T) {
	passed, err := Evaluate("isEmpty(entity) && isEmpty(context)", nil, nil)
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestEvaluate_IntegerEntityValues(t *testing.T) {
	// Entities decoded from storage may carry int64 or json.Number values.
	entity := map[string]any{"count": int64(7), "limit": 7}

	passed, err := Evaluate("entity.count == entity.limit && entity.count > 6", entity, nil)
	require.NoError(t, err)
	assert.True(t, passed)
}
