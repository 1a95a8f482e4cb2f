package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/toverud/lexivault/internal/config"
	"github.com/toverud/lexivault/internal/engine"
	"github.com/toverud/lexivault/internal/lexicon"
	"github.com/toverud/lexivault/internal/opstore"
	"github.com/toverud/lexivault/internal/schema"
	"github.com/toverud/lexivault/internal/store"
)

// resolveConfig builds the effective configuration: config file if given,
// then flag overrides, then derived defaults.
func resolveConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
		cfg.OperationStore.Path = "" // re-derive from the overridden database
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// buildRegistry compiles the configured declaration, or the embedded
// lexicon when none is configured.
func buildRegistry(cfg *config.Config) (*schema.Registry, error) {
	if cfg.SchemaFile == "" {
		return lexicon.Load()
	}
	model, err := schema.LoadFile(cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(*model)
}

// environment is the wired runtime for delete and undo: configuration,
// registry, both stores, and the engine on top.
type environment struct {
	cfg *config.Config
	reg *schema.Registry
	eng *engine.Engine
	st  *store.Store
	ops opstore.Store
}

func (env *environment) Close() {
	if env.ops != nil {
		env.ops.Close()
	}
	if env.st != nil {
		env.st.Close()
	}
}

// openEnvironment validates the configuration and opens every dependency.
// The managed tables are created on first use. Callers must Close the
// returned environment.
func openEnvironment(ctx context.Context, opts *RootOptions, logW io.Writer) (*environment, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx, reg); err != nil {
		st.Close()
		return nil, err
	}

	ops, err := opstore.Open(cfg.Backend(), cfg.OperationStore.Path)
	if err != nil {
		st.Close()
		return nil, err
	}

	eng := engine.New(reg, st, ops,
		engine.WithCodec(cfg.Codec()),
		engine.WithRetention(time.Duration(cfg.Retention)),
		engine.WithLogger(commandLogger(opts, logW)),
	)

	return &environment{cfg: cfg, reg: reg, eng: eng, st: st, ops: ops}, nil
}

// commandLogger routes engine logs to the diagnostic writer in verbose mode
// and discards them otherwise, keeping stdout parseable.
func commandLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	if opts.Verbose && w != nil {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// setupFailure renders a wiring failure and maps it to exit code 2.
func setupFailure(f *OutputFormatter, err error) error {
	code := ErrCodeConfig
	var compileErr *schema.CompileError
	var validationErrs schema.ValidationErrors
	if errors.As(err, &compileErr) || errors.As(err, &validationErrs) {
		code = ErrCodeSchema
	}
	f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "setup failed", err)
}

// operationFailure renders an engine failure and maps it to exit code 1.
func operationFailure(f *OutputFormatter, err error) error {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		f.Error(string(engErr.Code), engErr.Error(), nil)
	} else {
		f.Error(ErrCodeInternal, err.Error(), nil)
	}
	return WrapExitError(ExitFailure, "operation failed", err)
}
