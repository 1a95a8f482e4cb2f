package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Validation error codes.
const (
	ErrDuplicateEntity = "DUPLICATE_ENTITY" // two entities share a name
	ErrDuplicateField  = "DUPLICATE_FIELD"  // one entity declares a field twice
	ErrReservedField   = "RESERVED_FIELD"   // field named "id" (implicit primary key)
	ErrInvalidKind     = "INVALID_KIND"     // unknown field kind
	ErrUnknownRef      = "UNKNOWN_REF"      // fk field references an unregistered entity
	ErrMissingRef      = "MISSING_REF"      // fk field without a referenced entity
	ErrLinkCycle       = "LINK_CYCLE"       // parent-link graph is cyclic
	ErrPolicyViolation = "POLICY_VIOLATION" // policy rule names an unregistered pair or non-fk field
)

// ValidationError represents a schema configuration error.
//
// These are fatal at startup: a registry is either fully valid or unusable.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors aggregates every problem found during a registry build.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("schema: %d validation error(s): %s", len(e), strings.Join(msgs, "; "))
}

// Registry is the immutable, validated view of a schema Model.
//
// Built once at startup. ChildLinks are derived here as the exact inverses of
// every entity's ParentLinks; the mutual-inverse property is a construction
// guarantee, not a runtime check.
type Registry struct {
	entities map[string]*EntityDescriptor
	ordered  []string // entity names in declaration order
	rules    []PolicyRule
}

// NewRegistry validates a compiled Model and builds the registry.
//
// All validation errors are collected before returning so operators see the
// full list, not just the first problem.
func NewRegistry(model Model) (*Registry, error) {
	var errs ValidationErrors

	r := &Registry{
		entities: make(map[string]*EntityDescriptor, len(model.Entities)),
	}

	for i := range model.Entities {
		ent := model.Entities[i] // copy; the registry owns its descriptors
		if _, dup := r.entities[ent.Name]; dup {
			errs = append(errs, ValidationError{
				Code:    ErrDuplicateEntity,
				Field:   ent.Name,
				Message: "entity declared more than once",
			})
			continue
		}
		if ent.DisplayName == "" {
			ent.DisplayName = displayName(ent.Name)
		}
		if ent.Table == "" {
			ent.Table = tableName(ent.Name)
		}
		errs = append(errs, validateFields(&ent)...)
		deriveParentLinks(&ent)
		r.entities[ent.Name] = &ent
		r.ordered = append(r.ordered, ent.Name)
	}

	// Resolve fk targets and derive child links.
	for _, name := range r.ordered {
		ent := r.entities[name]
		for _, link := range ent.ParentLinks {
			parent, ok := r.entities[link.Entity]
			if !ok {
				errs = append(errs, ValidationError{
					Code:    ErrUnknownRef,
					Field:   fmt.Sprintf("%s.%s", ent.Name, link.Field),
					Message: fmt.Sprintf("references unregistered entity %q", link.Entity),
				})
				continue
			}
			parent.ChildLinks = append(parent.ChildLinks, Link{Entity: ent.Name, Field: link.Field})
		}
	}

	if cycle := findLinkCycle(r); cycle != nil {
		errs = append(errs, ValidationError{
			Code:    ErrLinkCycle,
			Field:   strings.Join(cycle, " -> "),
			Message: "parent links form a cycle; restore ordering would be undefined",
		})
	}

	for _, rule := range model.Policies {
		errs = append(errs, validateRule(r, rule)...)
	}
	r.rules = append(r.rules, model.Policies...)

	if len(errs) > 0 {
		return nil, errs
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error. Use for embedded
// declarations that are validated by the test suite.
func MustNewRegistry(model Model) *Registry {
	r, err := NewRegistry(model)
	if err != nil {
		panic(err)
	}
	return r
}

// Describe returns the descriptor for an entity type.
func (r *Registry) Describe(entityType string) (*EntityDescriptor, bool) {
	ent, ok := r.entities[entityType]
	return ent, ok
}

// Entities returns all descriptors sorted by display name.
func (r *Registry) Entities() []*EntityDescriptor {
	out := make([]*EntityDescriptor, 0, len(r.entities))
	for _, name := range r.ordered {
		out = append(out, r.entities[name])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

// ChildrenOf returns the (childType, referencingField) pairs for an entity.
func (r *Registry) ChildrenOf(entityType string) []Link {
	ent, ok := r.entities[entityType]
	if !ok {
		return nil
	}
	return ent.ChildLinks
}

// ParentsOf returns the (parentType, referencingField) pairs for an entity.
func (r *Registry) ParentsOf(entityType string) []Link {
	ent, ok := r.entities[entityType]
	if !ok {
		return nil
	}
	return ent.ParentLinks
}

// Rules returns every configured policy rule.
func (r *Registry) Rules() []PolicyRule {
	return r.rules
}

// RulesFor returns the policy rules whose Child is the given entity.
func (r *Registry) RulesFor(childType string) []PolicyRule {
	var out []PolicyRule
	for _, rule := range r.rules {
		if rule.Child == childType {
			out = append(out, rule)
		}
	}
	return out
}

func validateFields(ent *EntityDescriptor) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]bool, len(ent.Fields))
	for _, f := range ent.Fields {
		path := fmt.Sprintf("%s.%s", ent.Name, f.Name)
		if f.Name == "id" {
			errs = append(errs, ValidationError{
				Code:    ErrReservedField,
				Field:   path,
				Message: "id is the implicit primary key and cannot be declared",
			})
		}
		if seen[f.Name] {
			errs = append(errs, ValidationError{
				Code:    ErrDuplicateField,
				Field:   path,
				Message: "field declared more than once",
			})
		}
		seen[f.Name] = true
		if !ValidFieldKinds[f.Kind] {
			errs = append(errs, ValidationError{
				Code:    ErrInvalidKind,
				Field:   path,
				Message: fmt.Sprintf("unknown field kind %q", f.Kind),
			})
		}
		if f.Kind == KindForeignKey && f.Ref == "" {
			errs = append(errs, ValidationError{
				Code:    ErrMissingRef,
				Field:   path,
				Message: "fk field must name the entity it references",
			})
		}
		if f.Kind != KindForeignKey && f.Ref != "" {
			errs = append(errs, ValidationError{
				Code:    ErrInvalidKind,
				Field:   path,
				Message: fmt.Sprintf("ref is only valid on fk fields, not %q", f.Kind),
			})
		}
	}
	return errs
}

func deriveParentLinks(ent *EntityDescriptor) {
	ent.ParentLinks = nil
	for _, f := range ent.Fields {
		if f.Kind == KindForeignKey && f.Ref != "" {
			ent.ParentLinks = append(ent.ParentLinks, Link{Entity: f.Ref, Field: f.Name})
		}
	}
}

// findLinkCycle walks the parent-link graph depth-first and returns the first
// cycle found as an entity-name path, or nil for a DAG.
func findLinkCycle(r *Registry) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(r.ordered))
	var path []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		color[name] = gray
		path = append(path, name)
		ent := r.entities[name]
		for _, link := range ent.ParentLinks {
			if _, ok := r.entities[link.Entity]; !ok {
				continue // already reported as UNKNOWN_REF
			}
			switch color[link.Entity] {
			case white:
				if visit(link.Entity) {
					return true
				}
			case gray:
				for i, n := range path {
					if n == link.Entity {
						cycle = append(append([]string{}, path[i:]...), link.Entity)
						break
					}
				}
				return true
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return false
	}

	for _, name := range r.ordered {
		if color[name] == white && visit(name) {
			return cycle
		}
	}
	return nil
}

func validateRule(r *Registry, rule PolicyRule) ValidationErrors {
	var errs ValidationErrors
	path := fmt.Sprintf("policy(%s,%s)", rule.Child, rule.Parent)

	child, ok := r.entities[rule.Child]
	if !ok {
		return append(errs, ValidationError{
			Code:    ErrPolicyViolation,
			Field:   path,
			Message: fmt.Sprintf("child entity %q is not registered", rule.Child),
		})
	}
	if _, ok := r.entities[rule.Parent]; !ok {
		return append(errs, ValidationError{
			Code:    ErrPolicyViolation,
			Field:   path,
			Message: fmt.Sprintf("parent entity %q is not registered", rule.Parent),
		})
	}
	f, ok := child.Field(rule.Via)
	if !ok {
		return append(errs, ValidationError{
			Code:    ErrPolicyViolation,
			Field:   path,
			Message: fmt.Sprintf("via field %q does not exist on %s", rule.Via, rule.Child),
		})
	}
	if f.Kind != KindForeignKey || f.Ref != rule.Parent {
		errs = append(errs, ValidationError{
			Code:    ErrPolicyViolation,
			Field:   path,
			Message: fmt.Sprintf("via field %q is not a foreign key to %s", rule.Via, rule.Parent),
		})
	}
	return errs
}
