package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// builtin is a helper function exposed to guard expressions. Builtins are the
// only callable values in the sandbox.
type builtin struct {
	name    string
	minArgs int
	maxArgs int // -1 for variadic
	fn      func(args []any) (any, error)
}

// namespace groups builtins under a single identifier (Math).
type namespace map[string]builtin

func evalNode(n node, scope map[string]any) (any, error) {
	switch v := n.(type) {
	case literalNode:
		return v.value, nil
	case identNode:
		value, ok := scope[v.name]
		if !ok {
			return nil, fmt.Errorf("identifier %q is not defined", v.name)
		}

		return value, nil
	case memberNode:
		return evalMember(v, scope)
	case indexNode:
		return evalIndex(v, scope)
	case callNode:
		return evalCall(v, scope)
	case unaryNode:
		return evalUnary(v, scope)
	case binaryNode:
		return evalBinary(v, scope)
	default:
		return nil, fmt.Errorf("unsupported expression node %T", n)
	}
}

func evalMember(n memberNode, scope map[string]any) (any, error) {
	object, err := evalNode(n.object, scope)
	if err != nil {
		return nil, err
	}

	switch obj := object.(type) {
	case nil:
		return nil, fmt.Errorf("cannot read property %q of null", n.property)
	case namespace:
		fn, ok := obj[n.property]
		if !ok {
			return nil, fmt.Errorf("function %q is not defined", n.property)
		}

		return fn, nil
	case map[string]any:
		return obj[n.property], nil
	default:
		return nil, fmt.Errorf("cannot read property %q of %s", n.property, typeName(object))
	}
}

func evalIndex(n indexNode, scope map[string]any) (any, error) {
	object, err := evalNode(n.object, scope)
	if err != nil {
		return nil, err
	}

	index, err := evalNode(n.index, scope)
	if err != nil {
		return nil, err
	}

	switch obj := object.(type) {
	case map[string]any:
		key, ok := index.(string)
		if !ok {
			return nil, fmt.Errorf("map index must be a string, got %s", typeName(index))
		}

		return obj[key], nil
	case []any:
		idx, ok := toFloat(index)
		if !ok {
			return nil, fmt.Errorf("list index must be a number, got %s", typeName(index))
		}

		i := int(idx)
		if i < 0 || i >= len(obj) {
			return nil, fmt.Errorf("list index %d out of range (length %d)", i, len(obj))
		}

		return obj[i], nil
	default:
		return nil, fmt.Errorf("cannot index %s", typeName(object))
	}
}

func evalCall(n callNode, scope map[string]any) (any, error) {
	callee, err := evalNode(n.callee, scope)
	if err != nil {
		return nil, err
	}

	fn, ok := callee.(builtin)
	if !ok {
		return nil, fmt.Errorf("%s is not a function", typeName(callee))
	}

	args := make([]any, 0, len(n.args))

	for _, argNode := range n.args {
		arg, err := evalNode(argNode, scope)
		if err != nil {
			return nil, err
		}

		args = append(args, arg)
	}

	if len(args) < fn.minArgs {
		return nil, fmt.Errorf("%s expects at least %d argument(s), got %d", fn.name, fn.minArgs, len(args))
	}

	if fn.maxArgs >= 0 && len(args) > fn.maxArgs {
		return nil, fmt.Errorf("%s expects at most %d argument(s), got %d", fn.name, fn.maxArgs, len(args))
	}

	return fn.fn(args)
}

func evalUnary(n unaryNode, scope map[string]any) (any, error) {
	operand, err := evalNode(n.operand, scope)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokenNot:
		return !truthy(operand), nil
	case tokenMinus:
		value, ok := toFloat(operand)
		if !ok {
			return nil, fmt.Errorf("cannot negate %s", typeName(operand))
		}

		return -value, nil
	default:
		return nil, fmt.Errorf("unsupported unary operator")
	}
}

func evalBinary(n binaryNode, scope map[string]any) (any, error) {
	// Boolean connectives short-circuit on truthiness.
	if n.op == tokenAnd || n.op == tokenOr {
		left, err := evalNode(n.left, scope)
		if err != nil {
			return nil, err
		}

		if n.op == tokenAnd && !truthy(left) {
			return false, nil
		}

		if n.op == tokenOr && truthy(left) {
			return true, nil
		}

		right, err := evalNode(n.right, scope)
		if err != nil {
			return nil, err
		}

		return truthy(right), nil
	}

	left, err := evalNode(n.left, scope)
	if err != nil {
		return nil, err
	}

	right, err := evalNode(n.right, scope)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokenEq:
		return looseEqual(left, right), nil
	case tokenNotEq:
		return !looseEqual(left, right), nil
	case tokenGreater, tokenLess, tokenGreaterEq, tokenLessEq:
		return compareOrdered(n.op, left, right)
	case tokenPlus:
		return evalPlus(left, right)
	case tokenMinus, tokenStar, tokenSlash, tokenPercent:
		return evalArithmetic(n.op, left, right)
	default:
		return nil, fmt.Errorf("unsupported binary operator")
	}
}

func evalPlus(left, right any) (any, error) {
	if l, ok := left.(string); ok {
		if r, rok := right.(string); rok {
			return l + r, nil
		}
	}

	l, lok := toFloat(left)
	r, rok := toFloat(right)

	if !lok || !rok {
		return nil, fmt.Errorf("cannot add %s and %s", typeName(left), typeName(right))
	}

	return l + r, nil
}

func evalArithmetic(op tokenKind, left, right any) (any, error) {
	l, lok := toFloat(left)
	r, rok := toFloat(right)

	if !lok || !rok {
		return nil, fmt.Errorf("arithmetic requires numbers, got %s and %s", typeName(left), typeName(right))
	}

	switch op {
	case tokenMinus:
		return l - r, nil
	case tokenStar:
		return l * r, nil
	case tokenSlash:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}

		return l / r, nil
	case tokenPercent:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}

		return math.Mod(l, r), nil
	default:
		return nil, fmt.Errorf("unsupported arithmetic operator")
	}
}

func compareOrdered(op tokenKind, left, right any) (any, error) {
	if l, lok := toFloat(left); lok {
		r, rok := toFloat(right)
		if !rok {
			return nil, fmt.Errorf("cannot compare number with %s", typeName(right))
		}

		return applyOrdered(op, l < r, l > r), nil
	}

	if l, lok := left.(string); lok {
		r, rok := right.(string)
		if !rok {
			return nil, fmt.Errorf("cannot compare string with %s", typeName(right))
		}

		return applyOrdered(op, l < r, l > r), nil
	}

	return nil, fmt.Errorf("cannot order %s and %s", typeName(left), typeName(right))
}

func applyOrdered(op tokenKind, less, greater bool) bool {
	switch op {
	case tokenGreater:
		return greater
	case tokenLess:
		return less
	case tokenGreaterEq:
		return !less
	case tokenLessEq:
		return !greater
	default:
		return false
	}
}

// looseEqual compares two values, treating all numeric types as float64.
func looseEqual(left, right any) bool {
	if left == nil && right == nil {
		return true
	}

	if l, lok := toFloat(left); lok {
		r, rok := toFloat(right)

		return rok && l == r
	}

	if l, lok := left.(string); lok {
		r, rok := right.(string)

		return rok && l == r
	}

	if l, lok := left.(bool); lok {
		r, rok := right.(bool)

		return rok && l == r
	}

	return false
}

// truthy applies boolean coercion: null, false, zero and the empty string are
// false; everything else, including non-empty and empty composites, is true.
func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	default:
		if f, ok := toFloat(v); ok {
			return f != 0
		}

		return true
	}
}

func toFloat(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int8:
		return float64(value), true
	case int16:
		return float64(value), true
	case int32:
		return float64(value), true
	case int64:
		return float64(value), true
	case uint:
		return float64(value), true
	case uint8:
		return float64(value), true
	case uint16:
		return float64(value), true
	case uint32:
		return float64(value), true
	case uint64:
		return float64(value), true
	case json.Number:
		f, err := value.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case builtin:
		return "function"
	case namespace:
		return "namespace"
	default:
		if _, ok := toFloat(v); ok {
			return "number"
		}

		return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
	}
}
