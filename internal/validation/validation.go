package validation

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// FieldError is one schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result lists the violations of a document; it is valid when empty.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}

// Fields returns the violations keyed by field, first message wins.
func (r Result) Fields() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Validator checks request bodies against the embedded JSON schemas.
type Validator struct {
	project *gojsonschema.Schema
	config  *gojsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	project, err := compile("schemas/project.json")
	if err != nil {
		return nil, err
	}
	config, err := compile("schemas/config.json")
	if err != nil {
		return nil, err
	}
	return &Validator{project: project, config: config}, nil
}

// MustNew is New for package initialization and tests.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

func compile(name string) (*gojsonschema.Schema, error) {
	data, err := schemaFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// Project validates project data (quick analysis input).
func (v *Validator) Project(doc any) (Result, error) {
	return validate(v.project, doc)
}

// Config validates analysis configuration options.
func (v *Validator) Config(doc any) (Result, error) {
	return validate(v.config, doc)
}

func validate(schema *gojsonschema.Schema, doc any) (Result, error) {
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return Result{}, fmt.Errorf("validation error: %w", err)
	}
	out := Result{Valid: res.Valid(), Errors: []FieldError{}}
	for _, desc := range res.Errors() {
		out.Errors = append(out.Errors, FieldError{Field: fieldName(desc), Message: desc.Description()})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out, nil
}

// fieldName reports the offending property. Missing required properties are
// reported by gojsonschema against the parent object.
func fieldName(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			return prop
		}
	}
	field := desc.Field()
	if field == gojsonschema.STRING_CONTEXT_ROOT || field == "" {
		return "(root)"
	}
	return strings.TrimPrefix(field, "(root).")
}
