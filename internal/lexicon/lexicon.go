// Package lexicon ships the built-in vocabulary schema as an embedded CUE
// declaration. It is the default model when no schema file is configured;
// deployments that manage their own declaration bypass this package entirely.
package lexicon

import (
	_ "embed"

	"github.com/toverud/lexivault/internal/schema"
)

//go:embed lexicon.cue
var declaration string

// Load compiles the embedded declaration and builds a validated registry.
func Load() (*schema.Registry, error) {
	model, err := schema.CompileString(declaration, "lexicon.cue")
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(*model)
}

// MustLoad is Load for callers that treat a broken embedded declaration as a
// programming error. The test suite keeps it honest.
func MustLoad() *schema.Registry {
	reg, err := Load()
	if err != nil {
		panic(err)
	}
	return reg
}
