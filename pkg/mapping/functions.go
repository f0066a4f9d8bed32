package mapping

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// TransformFunc reshapes an extracted value. Options come from the field
// transform's options map.
type TransformFunc func(value any, options map[string]any) (any, error)

// FunctionRegistry maps transform-function names to callables. It is safe
// for concurrent use; executions share one registry.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]TransformFunc
}

// NewFunctionRegistry returns a registry preloaded with the built-in
// transform functions.
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{functions: make(map[string]TransformFunc)}

	r.Register("string_upper", stringUpper)
	r.Register("string_lower", stringLower)
	r.Register("string_trim", stringTrim)
	r.Register("array_join", arrayJoin)
	r.Register("array_length", arrayLength)
	r.Register("math_round", mathRound)

	return r
}

// Register adds or replaces a transform function.
func (r *FunctionRegistry) Register(name string, fn TransformFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = fn
}

// Call invokes the named function. An unknown name is an error, not a no-op.
func (r *FunctionRegistry) Call(name string, value any, options map[string]any) (any, error) {
	r.mu.RLock()
	fn, ok := r.functions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, unknownFunction(name)
	}

	return fn(value, options)
}

func stringUpper(value any, _ map[string]any) (any, error) {
	return strings.ToUpper(stringify(value)), nil
}

func stringLower(value any, _ map[string]any) (any, error) {
	return strings.ToLower(stringify(value)), nil
}

func stringTrim(value any, _ map[string]any) (any, error) {
	return strings.TrimSpace(stringify(value)), nil
}

func arrayJoin(value any, options map[string]any) (any, error) {
	arr, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("array_join expects an array, got %T", value)
	}

	sep := ","
	if s, ok := options["separator"].(string); ok {
		sep = s
	}

	parts := make([]string, len(arr))
	for i, item := range arr {
		parts[i] = stringify(item)
	}

	return strings.Join(parts, sep), nil
}

func arrayLength(value any, _ map[string]any) (any, error) {
	switch v := value.(type) {
	case []any:
		return len(v), nil
	case string:
		return len(v), nil
	case map[string]any:
		return len(v), nil
	default:
		return nil, fmt.Errorf("array_length expects an array, string or object, got %T", value)
	}
}

func mathRound(value any, options map[string]any) (any, error) {
	num, ok := toFloat(value)
	if !ok {
		return nil, fmt.Errorf("math_round expects a number, got %T", value)
	}

	digits := 0
	if d, ok := toFloat(options["digits"]); ok {
		digits = int(d)
	}

	factor := math.Pow(10, float64(digits))

	return math.Round(num*factor) / factor, nil
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
