// Package payload validates role-specific submission bodies against JSON
// schemas and extracts their numeric metrics.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/okian/scorecard/internal/domain/model"
)

const schemaBase = "https://scorecard.local/schemas/"

// Parsed is a validated submission body.
type Parsed struct {
	Name   string
	Email  string
	Values map[string]float64
}

// Validator holds one compiled schema per role.
type Validator struct {
	schemas     map[model.Role]*jsonschema.Schema
	defaultName string
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithDefaultName sets the name used when a role without a required name
// omits it.
func WithDefaultName(name string) Option {
	return func(v *Validator) {
		if name != "" {
			v.defaultName = name
		}
	}
}

// NewValidator compiles the schema of every role.
func NewValidator(opts ...Option) (*Validator, error) {
	v := &Validator{schemas: make(map[model.Role]*jsonschema.Schema), defaultName: "Executive"}
	for _, opt := range opts {
		opt(v)
	}

	compiler := jsonschema.NewCompiler()
	for _, role := range model.Roles {
		url := schemaBase + string(role) + ".json"
		raw, err := json.Marshal(schemaFor(role))
		if err != nil {
			return nil, fmt.Errorf("marshal %s schema: %w", role, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %s schema: %w", role, err)
		}
		if err := compiler.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add %s schema: %w", role, err)
		}
		sch, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", role, err)
		}
		v.schemas[role] = sch
	}
	return v, nil
}

// schemaFor builds the JSON schema document of role.
func schemaFor(role model.Role) map[string]any {
	props := map[string]any{
		"email": map[string]any{"type": "string", "pattern": `^[^@\s]+@[^@\s]+$`},
		"name":  map[string]any{"type": "string", "minLength": 1},
	}
	for _, f := range roleFields[role] {
		props[f.name] = map[string]any{"type": string(f.kind), "minimum": 0}
	}
	required := []string{"email"}
	if role != model.RoleCEO {
		required = append(required, "name")
	}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"required":             required,
		"properties":           props,
		"additionalProperties": map[string]any{"type": []string{"number", "string", "boolean", "null"}},
	}
}

// Validate checks raw (the "metrics" object of a submission) against role's
// schema. Any failure is a model.ErrValidation.
func (v *Validator) Validate(role model.Role, raw []byte) (Parsed, error) {
	const op = "payload.validate"
	sch, ok := v.schemas[role]
	if !ok {
		return Parsed{}, model.Invalid(op, fmt.Sprintf("unknown role %q", role))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Parsed{}, model.Invalid(op, "metrics is required")
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return Parsed{}, model.WrapKind(op, model.ErrValidation, fmt.Errorf("metrics is not valid JSON: %w", err))
	}
	obj, ok := inst.(map[string]any)
	if !ok {
		return Parsed{}, model.Invalid(op, "metrics must be an object")
	}
	if s, _ := obj["email"].(string); strings.TrimSpace(s) == "" {
		return Parsed{}, model.Invalid(op, "metrics.email is required")
	}
	if role != model.RoleCEO {
		if s, _ := obj["name"].(string); strings.TrimSpace(s) == "" {
			return Parsed{}, model.Invalid(op, "metrics.name is required")
		}
	}

	if err := sch.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return Parsed{}, model.WrapKind(op, model.ErrValidation,
				fmt.Errorf("metrics failed validation at %s", strings.Join(failedPaths(verr), ", ")))
		}
		return Parsed{}, model.WrapKind(op, model.ErrValidation, err)
	}

	p := Parsed{Values: make(map[string]float64)}
	p.Email = model.NormalizeEmail(obj["email"].(string))
	if s, ok := obj["name"].(string); ok && strings.TrimSpace(s) != "" {
		p.Name = strings.TrimSpace(s)
	} else {
		p.Name = v.defaultName
	}
	for k, val := range obj {
		n, ok := val.(json.Number)
		if !ok {
			continue
		}
		f, err := n.Float64()
		if err != nil {
			return Parsed{}, model.WrapKind(op, model.ErrInvalidMetric, fmt.Errorf("metric %q: %w", k, err))
		}
		p.Values[k] = f
	}
	return p, nil
}

// failedPaths collects the instance locations of the leaf failures.
func failedPaths(err *jsonschema.ValidationError) []string {
	seen := map[string]bool{}
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			path := "metrics"
			if len(e.InstanceLocation) > 0 {
				path += "." + strings.Join(e.InstanceLocation, ".")
			}
			seen[path] = true
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(err)
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
