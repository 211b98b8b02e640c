// Package expr evaluates guard expressions against an entity snapshot and a
// workflow context. Expressions run inside a closed interpreter: the only
// reachable names are entity, context and a fixed helper set. There is no
// access to ambient globals, imports or the host runtime, so a malformed or
// hostile guard degrades to "transition denied" instead of escaping the
// sandbox. Evaluation is deterministic for identical inputs.
package expr

import (
	"fmt"
	"math"
	"strings"
)

// Evaluate runs one guard expression. entity and context may be nil. The
// boolean result is the coerced truthiness of the expression value; any lex,
// parse or evaluation failure is returned as an error with passed=false and
// never as a panic.
func Evaluate(expression string, entity, context map[string]any) (passed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			passed = false
			err = fmt.Errorf("guard evaluation panic: %v", r)
		}
	}()

	root, err := parse(expression)
	if err != nil {
		return false, err
	}

	if entity == nil {
		entity = map[string]any{}
	}

	if context == nil {
		context = map[string]any{}
	}

	scope := newScope(entity, context)

	result, err := evalNode(root, scope)
	if err != nil {
		return false, err
	}

	return truthy(result), nil
}

// newScope builds the restricted evaluation scope. This map is the whole
// world an expression can see.
func newScope(entity, context map[string]any) map[string]any {
	return map[string]any{
		"entity":  entity,
		"context": context,

		"has":         builtin{name: "has", minArgs: 2, maxArgs: 2, fn: helperHas},
		"equals":      builtin{name: "equals", minArgs: 2, maxArgs: 2, fn: helperEquals},
		"notEquals":   builtin{name: "notEquals", minArgs: 2, maxArgs: 2, fn: helperNotEquals},
		"greaterThan": builtin{name: "greaterThan", minArgs: 2, maxArgs: 2, fn: helperGreaterThan},
		"lessThan":    builtin{name: "lessThan", minArgs: 2, maxArgs: 2, fn: helperLessThan},
		"contains":    builtin{name: "contains", minArgs: 2, maxArgs: 2, fn: helperContains},
		"isEmpty":     builtin{name: "isEmpty", minArgs: 1, maxArgs: 1, fn: helperIsEmpty},

		"Math": namespace{
			"abs":   builtin{name: "Math.abs", minArgs: 1, maxArgs: 1, fn: mathAbs},
			"max":   builtin{name: "Math.max", minArgs: 1, maxArgs: -1, fn: mathMax},
			"min":   builtin{name: "Math.min", minArgs: 1, maxArgs: -1, fn: mathMin},
			"round": builtin{name: "Math.round", minArgs: 1, maxArgs: 1, fn: mathRound},
		},
	}
}

func helperHas(args []any) (any, error) {
	key, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("has: key must be a string, got %s", typeName(args[1]))
	}

	obj, ok := args[0].(map[string]any)
	if !ok {
		return false, nil
	}

	_, present := obj[key]

	return present, nil
}

func helperEquals(args []any) (any, error) {
	return looseEqual(args[0], args[1]), nil
}

func helperNotEquals(args []any) (any, error) {
	return !looseEqual(args[0], args[1]), nil
}

func helperGreaterThan(args []any) (any, error) {
	return compareOrdered(tokenGreater, args[0], args[1])
}

func helperLessThan(args []any) (any, error) {
	return compareOrdered(tokenLess, args[0], args[1])
}

func helperContains(args []any) (any, error) {
	switch container := args[0].(type) {
	case nil:
		return false, nil
	case string:
		item, ok := args[1].(string)
		if !ok {
			return false, nil
		}

		return strings.Contains(container, item), nil
	case []any:
		for _, elem := range container {
			if looseEqual(elem, args[1]) {
				return true, nil
			}
		}

		return false, nil
	case map[string]any:
		key, ok := args[1].(string)
		if !ok {
			return false, nil
		}

		_, present := container[key]

		return present, nil
	default:
		return nil, fmt.Errorf("contains: unsupported container %s", typeName(args[0]))
	}
}

func helperIsEmpty(args []any) (any, error) {
	switch value := args[0].(type) {
	case nil:
		return true, nil
	case string:
		return value == "", nil
	case []any:
		return len(value) == 0, nil
	case map[string]any:
		return len(value) == 0, nil
	default:
		return false, nil
	}
}

func mathAbs(args []any) (any, error) {
	value, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("Math.abs: expected a number, got %s", typeName(args[0]))
	}

	return math.Abs(value), nil
}

func mathRound(args []any) (any, error) {
	value, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("Math.round: expected a number, got %s", typeName(args[0]))
	}

	return math.Round(value), nil
}

func mathMax(args []any) (any, error) {
	return mathFold("Math.max", args, math.Max)
}

func mathMin(args []any) (any, error) {
	return mathFold("Math.min", args, math.Min)
}

func mathFold(name string, args []any, combine func(a, b float64) float64) (any, error) {
	acc, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: expected a number, got %s", name, typeName(args[0]))
	}

	for _, arg := range args[1:] {
		value, ok := toFloat(arg)
		if !ok {
			return nil, fmt.Errorf("%s: expected a number, got %s", name, typeName(arg))
		}

		acc = combine(acc, value)
	}

	return acc, nil
}
