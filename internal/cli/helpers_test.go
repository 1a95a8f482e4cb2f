package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTestSchema writes a CUE declaration into dir and returns its path.
func writeTestSchema(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "model.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// writeTestConfig writes a config file with the given YAML body into dir
// and returns its path.
func writeTestConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
