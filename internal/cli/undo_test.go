package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoUnknownOperation(t *testing.T) {
	tmpDir := t.TempDir()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Database: filepath.Join(tmpDir, "vocab.db")}
	cmd := NewUndoCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"deletion_0195d3e8-6c2a-7c3e-9f41-8a2b44f0c9d1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	jsonErr := json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, jsonErr)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "EXPIRED", resp.Error.Code)
}

func TestUndoWithoutDatabase(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewUndoCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"deletion_abc"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	jsonErr := json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, jsonErr)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "database")
}
