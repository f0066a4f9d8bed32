package mapping

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	json "github.com/goccy/go-json"

	"github.com/weftworks/weft/pkg/models"
)

var (
	placeholderPattern       = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_$]+(?:[.\[\]*0-9A-Za-z_]*)?)\s*\}\}`)
	quotedPlaceholderPattern = regexp.MustCompile(`"\{\{\s*([A-Za-z0-9_$]+(?:[.\[\]*0-9A-Za-z_]*)?)\s*\}\}"`)
)

// Processor applies DataMappings. It never mutates source data; DIRECT
// mappings return a deep copy so downstream writes cannot reach the
// source node's recorded output.
type Processor struct {
	functions *FunctionRegistry
}

// NewProcessor creates a processor backed by the given function registry.
func NewProcessor(functions *FunctionRegistry) *Processor {
	if functions == nil {
		functions = NewFunctionRegistry()
	}

	return &Processor{functions: functions}
}

// Functions exposes the registry so callers can install custom transforms.
func (p *Processor) Functions() *FunctionRegistry {
	return p.functions
}

// Transform applies mapping to sourceData under ctx and returns the target
// node's input payload. A nil mapping behaves as DIRECT.
func (p *Processor) Transform(sourceData map[string]any, mapping *models.DataMapping, ctx models.ExecutionContext) (map[string]any, error) {
	if mapping == nil {
		mapping = models.DirectMapping()
	}

	switch mapping.Type {
	case models.MappingTypeDirect, "":
		return deepCopyMap(sourceData), nil
	case models.MappingTypeFieldMapping:
		return p.applyFieldMappings(sourceData, mapping, ctx)
	case models.MappingTypeTemplate:
		return p.applyTemplate(sourceData, mapping.Template, ctx)
	default:
		return nil, &Error{Reason: fmt.Sprintf("unknown mapping type %q", mapping.Type)}
	}
}

func (p *Processor) applyFieldMappings(sourceData map[string]any, mapping *models.DataMapping, ctx models.ExecutionContext) (map[string]any, error) {
	result := make(map[string]any)

	for _, field := range mapping.Fields {
		value, found := Extract(sourceData, field.SourceField)
		if !found {
			if field.DefaultValue != nil {
				Write(result, field.TargetField, field.DefaultValue)

				continue
			}

			if field.Required {
				return nil, missingRequiredField(field.SourceField)
			}

			continue
		}

		transformed, err := p.applyTransform(value, field.Transform)
		if err != nil {
			return nil, err
		}

		Write(result, field.TargetField, transformed)
	}

	// Static values overlay last and win on key collision.
	env := contextEnv(ctx)
	for key, value := range mapping.StaticValues {
		result[key] = substituteAny(value, func(path string) (any, bool) {
			v, ok := env[path]

			return v, ok
		})
	}

	return result, nil
}

func (p *Processor) applyTransform(value any, transform *models.FieldTransform) (any, error) {
	if transform == nil || transform.Type == models.TransformTypeNone || transform.Type == "" {
		return value, nil
	}

	switch transform.Type {
	case models.TransformTypeFunction:
		return p.functions.Call(transform.Value, value, transform.Options)
	case models.TransformTypeCondition:
		return evaluateCondition(transform.Value, value, transform.Options)
	default:
		return nil, &Error{Reason: fmt.Sprintf("unknown transform type %q", transform.Type)}
	}
}

// evaluateCondition evaluates a ternary-style expression where {{value}}
// stands for the extracted source value. The placeholder is bound as an
// expression variable rather than spliced in as text, so string values
// cannot break the expression syntax.
func evaluateCondition(expression string, value any, options map[string]any) (any, error) {
	resolved := strings.ReplaceAll(expression, "{{value}}", "value")

	env := map[string]any{"value": value}
	for k, v := range options {
		env[k] = v
	}

	program, err := expr.Compile(resolved, expr.Env(env))
	if err != nil {
		return nil, &Error{Reason: fmt.Sprintf("invalid condition %q", expression), Err: err}
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return nil, &Error{Reason: fmt.Sprintf("condition %q failed", expression), Err: err}
	}

	return result, nil
}

// applyTemplate substitutes every {{path}} in template, resolving against
// sourceData first and the execution context second, then parses the result
// as JSON. A placeholder that occupies an entire JSON string value keeps the
// resolved value's type; a placeholder embedded in a longer string is
// stringified. Unresolved placeholders stay literal.
func (p *Processor) applyTemplate(sourceData map[string]any, template string, ctx models.ExecutionContext) (map[string]any, error) {
	env := contextEnv(ctx)
	lookup := func(path string) (any, bool) {
		if v, ok := Extract(sourceData, path); ok {
			return v, true
		}

		v, ok := env[path]

		return v, ok
	}

	substituted := substituteTemplate(template, lookup)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(substituted), &parsed); err != nil {
		return nil, &Error{Reason: "substituted template is not valid JSON", Err: err}
	}

	return parsed, nil
}

// substituteTemplate performs the two-pass placeholder replacement over a
// raw JSON template string.
func substituteTemplate(template string, lookup func(string) (any, bool)) string {
	// Pass 1: "{{path}}" spanning a whole quoted value keeps the type.
	out := quotedPlaceholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := quotedPlaceholderPattern.FindStringSubmatch(match)[1]

		value, ok := lookup(path)
		if !ok {
			return match
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return match
		}

		return string(encoded)
	})

	// Pass 2: embedded placeholders stringify.
	return placeholderPattern.ReplaceAllStringFunc(out, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])

		value, ok := lookup(path)
		if !ok {
			return match
		}

		return stringify(value)
	})
}

// substituteAny applies placeholder substitution to a static value: whole-
// string placeholders keep the looked-up value's type, embedded ones
// stringify, and maps and arrays recurse.
func substituteAny(value any, lookup func(string) (any, bool)) any {
	switch v := value.(type) {
	case string:
		if m := placeholderPattern.FindStringSubmatch(v); m != nil && m[0] == v {
			if resolved, ok := lookup(strings.TrimSpace(m[1])); ok {
				return resolved
			}

			return v
		}

		return placeholderPattern.ReplaceAllStringFunc(v, func(match string) string {
			path := strings.TrimSpace(match[2 : len(match)-2])

			if resolved, ok := lookup(path); ok {
				return stringify(resolved)
			}

			return match
		})
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = substituteAny(item, lookup)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = substituteAny(item, lookup)
		}

		return out
	default:
		return value
	}
}

// contextEnv flattens an execution context into the lookup environment used
// by static values and templates. Reserved keys win over variables.
func contextEnv(ctx models.ExecutionContext) map[string]any {
	env := make(map[string]any, len(ctx.Variables)+3)

	for k, v := range ctx.Variables {
		env[k] = v
	}

	env["workflow_id"] = ctx.WorkflowID
	env["execution_id"] = ctx.ExecutionID
	env["current_time"] = ctx.CurrentTime.Format(time.RFC3339)

	return env
}

func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return map[string]any{}
	}

	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}

	return dst
}

func deepCopyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return deepCopyMap(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = deepCopyValue(item)
		}

		return out
	default:
		return value
	}
}
