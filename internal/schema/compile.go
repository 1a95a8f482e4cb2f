package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileModel parses a CUE value into a schema Model.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The expected declaration shape:
//
//	schema: entities: french_word: {
//		display?: "French Word"
//		table?:   "french_words"
//		fields: [{name: "noun_form", kind: "string", unique: true, nullable: true}, ...]
//	}
//	schema: policies: [{child: "french_example", parent: "french_word", via: "french_word_id"}, ...]
//
// CompileModel checks structure only; semantic validation (fk targets, policy
// pairs, cycles) happens in NewRegistry.
func CompileModel(v cue.Value) (*Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("schema"))
	if !root.Exists() {
		return nil, &CompileError{
			Field:   "schema",
			Message: "top-level schema block is required",
			Pos:     v.Pos(),
		}
	}

	model := &Model{}

	entitiesVal := root.LookupPath(cue.ParsePath("entities"))
	if !entitiesVal.Exists() {
		return nil, &CompileError{
			Field:   "schema.entities",
			Message: "at least one entity is required",
			Pos:     root.Pos(),
		}
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		ent, err := parseEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		model.Entities = append(model.Entities, ent)
	}
	if len(model.Entities) == 0 {
		return nil, &CompileError{
			Field:   "schema.entities",
			Message: "at least one entity is required",
			Pos:     entitiesVal.Pos(),
		}
	}

	policiesVal := root.LookupPath(cue.ParsePath("policies"))
	if policiesVal.Exists() {
		polIter, err := policiesVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for polIter.Next() {
			rule, err := parsePolicy(polIter.Value())
			if err != nil {
				return nil, err
			}
			model.Policies = append(model.Policies, rule)
		}
	}

	return model, nil
}

// CompileString compiles CUE source text into a Model. The filename is used
// for error positions only.
func CompileString(src, filename string) (*Model, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileModel(v)
}

// LoadFile reads and compiles a CUE declaration file.
func LoadFile(path string) (*Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return CompileString(string(src), path)
}

func parseEntity(name string, v cue.Value) (EntityDescriptor, error) {
	ent := EntityDescriptor{Name: name}

	if displayVal := v.LookupPath(cue.ParsePath("display")); displayVal.Exists() {
		s, err := displayVal.String()
		if err != nil {
			return ent, formatCUEError(err)
		}
		ent.DisplayName = s
	}
	if tableVal := v.LookupPath(cue.ParsePath("table")); tableVal.Exists() {
		s, err := tableVal.String()
		if err != nil {
			return ent, formatCUEError(err)
		}
		ent.Table = s
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return ent, &CompileError{
			Field:   fmt.Sprintf("schema.entities.%s.fields", name),
			Message: "fields list is required",
			Pos:     v.Pos(),
		}
	}
	fieldIter, err := fieldsVal.List()
	if err != nil {
		return ent, formatCUEError(err)
	}
	for fieldIter.Next() {
		f, err := parseField(name, fieldIter.Value())
		if err != nil {
			return ent, err
		}
		ent.Fields = append(ent.Fields, f)
	}

	return ent, nil
}

func parseField(entity string, v cue.Value) (FieldDescriptor, error) {
	var f FieldDescriptor

	name, err := requiredString(v, "name", fmt.Sprintf("schema.entities.%s.fields", entity))
	if err != nil {
		return f, err
	}
	f.Name = name

	kind, err := requiredString(v, "kind", fmt.Sprintf("schema.entities.%s.fields.%s", entity, name))
	if err != nil {
		return f, err
	}
	f.Kind = FieldKind(kind)

	if refVal := v.LookupPath(cue.ParsePath("ref")); refVal.Exists() {
		s, err := refVal.String()
		if err != nil {
			return f, formatCUEError(err)
		}
		f.Ref = s
	}
	if uniqueVal := v.LookupPath(cue.ParsePath("unique")); uniqueVal.Exists() {
		b, err := uniqueVal.Bool()
		if err != nil {
			return f, formatCUEError(err)
		}
		f.Unique = b
	}
	if nullableVal := v.LookupPath(cue.ParsePath("nullable")); nullableVal.Exists() {
		b, err := nullableVal.Bool()
		if err != nil {
			return f, formatCUEError(err)
		}
		f.Nullable = b
	}

	return f, nil
}

func parsePolicy(v cue.Value) (PolicyRule, error) {
	var rule PolicyRule
	var err error

	if rule.Child, err = requiredString(v, "child", "schema.policies"); err != nil {
		return rule, err
	}
	if rule.Parent, err = requiredString(v, "parent", "schema.policies"); err != nil {
		return rule, err
	}
	if rule.Via, err = requiredString(v, "via", "schema.policies"); err != nil {
		return rule, err
	}
	return rule, nil
}

func requiredString(v cue.Value, key, where string) (string, error) {
	val := v.LookupPath(cue.ParsePath(key))
	if !val.Exists() {
		return "", &CompileError{
			Field:   where,
			Message: key + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a declaration error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
