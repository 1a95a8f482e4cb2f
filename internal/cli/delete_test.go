package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toverud/lexivault/internal/lexicon"
	"github.com/toverud/lexivault/internal/store"
)

func newDeleteFlags(t *testing.T, settings map[string]string) *pflag.FlagSet {
	t.Helper()
	cmd := NewDeleteCommand(&RootOptions{Format: "text"})
	for name, value := range settings {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	return cmd.Flags()
}

func TestPickSelection(t *testing.T) {
	tests := []struct {
		name    string
		flags   map[string]string
		want    deleteSelection
		wantErr string
	}{
		{
			name:  "by_id",
			flags: map[string]string{"id": "42"},
			want:  selectByID,
		},
		{
			name:  "by_field",
			flags: map[string]string{"field": "noun_form", "value": "chat"},
			want:  selectByField,
		},
		{
			name:  "by_field_with_cascade",
			flags: map[string]string{"field": "french_word_id", "value": "7", "cascade-parent": "true"},
			want:  selectByField,
		},
		{
			name:  "by_range",
			flags: map[string]string{"start": "10", "end": "20"},
			want:  selectByRange,
		},
		{
			name:  "all",
			flags: map[string]string{"all": "true"},
			want:  selectAll,
		},
		{
			name:    "no_selection",
			flags:   map[string]string{},
			wantErr: "exactly one of",
		},
		{
			name:    "two_selections",
			flags:   map[string]string{"id": "1", "all": "true"},
			wantErr: "exactly one of",
		},
		{
			name:    "field_without_value",
			flags:   map[string]string{"field": "noun_form"},
			wantErr: "--value is required with --field",
		},
		{
			name:    "range_missing_end",
			flags:   map[string]string{"start": "10"},
			wantErr: "--start and --end are required together",
		},
		{
			name:    "value_without_field",
			flags:   map[string]string{"id": "1", "value": "chat"},
			wantErr: "--value requires --field",
		},
		{
			name:    "cascade_without_field",
			flags:   map[string]string{"id": "1", "cascade-parent": "true"},
			wantErr: "--cascade-parent only applies to --field deletion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, err := pickSelection(newDeleteFlags(t, tt.flags))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, selected)
		})
	}
}

func TestDeleteRequiresSelection(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewDeleteCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"french_word"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	jsonErr := json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, jsonErr)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUsage, resp.Error.Code)
}

func TestDeleteUnknownEntity(t *testing.T) {
	tmpDir := t.TempDir()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Database: filepath.Join(tmpDir, "vocab.db")}
	cmd := NewDeleteCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"klingon_word", "--all"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	jsonErr := json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, jsonErr)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestDeleteNothingMatched(t *testing.T) {
	tmpDir := t.TempDir()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Database: filepath.Join(tmpDir, "vocab.db")}
	cmd := NewDeleteCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"french_word", "--id", "999"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	jsonErr := json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, jsonErr)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no rows match")
}

// seedFrenchRows migrates dbPath for the embedded lexicon and inserts one
// french_word with two french_example rows under it.
func seedFrenchRows(t *testing.T, dbPath string) {
	t.Helper()
	ctx := context.Background()
	reg := lexicon.MustLoad()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Migrate(ctx, reg))

	word, ok := reg.Describe("french_word")
	require.True(t, ok)
	require.NoError(t, st.InsertRow(ctx, word, store.Row{
		ID: 1,
		Values: map[string]any{
			"noun_form":         "chat",
			"created_at":        "2024-03-01T10:00:00Z",
			"marked_for_review": false,
			"native":            false,
		},
	}))

	example, ok := reg.Describe("french_example")
	require.True(t, ok)
	for i, text := range []string{"Le chat dort.", "Un chat noir traverse la rue."} {
		require.NoError(t, st.InsertRow(ctx, example, store.Row{
			ID: int64(i + 1),
			Values: map[string]any{
				"french_word_id": int64(1),
				"example_text":   text,
				"is_explanation": false,
				"created_at":     "2024-03-01T10:00:00Z",
			},
		}))
	}
}

func countRows(t *testing.T, dbPath, entity string) int {
	t.Helper()
	reg := lexicon.MustLoad()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ent, ok := reg.Describe(entity)
	require.True(t, ok)
	n, err := st.CountRows(context.Background(), ent)
	require.NoError(t, err)
	return n
}

func TestDeleteUndoRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "vocab.db")
	configPath := writeTestConfig(t, tmpDir, fmt.Sprintf(`database: %s
operation_store:
  backend: sqlite
  path: %s
`, dbPath, filepath.Join(tmpDir, "vocab.ops")))

	seedFrenchRows(t, dbPath)

	// Deleting the word takes its example rows with it.
	buf := &bytes.Buffer{}
	deleteCmd := NewDeleteCommand(&RootOptions{Format: "json", ConfigPath: configPath})
	deleteCmd.SetOut(buf)
	deleteCmd.SetArgs([]string{"french_word", "--id", "1"})
	require.NoError(t, deleteCmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "french_word", data["entity"])
	assert.Equal(t, float64(1), data["count"])
	operationID, ok := data["operation_id"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(operationID, "deletion_"))

	assert.Equal(t, 0, countRows(t, dbPath, "french_word"))
	assert.Equal(t, 0, countRows(t, dbPath, "french_example"))

	// Undo brings back the word and both examples.
	buf.Reset()
	undoCmd := NewUndoCommand(&RootOptions{Format: "json", ConfigPath: configPath})
	undoCmd.SetOut(buf)
	undoCmd.SetArgs([]string{operationID})
	require.NoError(t, undoCmd.Execute())

	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)

	data, ok = resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, operationID, data["operation_id"])
	assert.Equal(t, float64(3), data["restored"])
	assert.Equal(t, false, data["degraded"])

	assert.Equal(t, 1, countRows(t, dbPath, "french_word"))
	assert.Equal(t, 2, countRows(t, dbPath, "french_example"))
}

func TestDeleteTextOutput(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "vocab.db")
	configPath := writeTestConfig(t, tmpDir, fmt.Sprintf(`database: %s
operation_store:
  backend: sqlite
  path: %s
`, dbPath, filepath.Join(tmpDir, "vocab.ops")))

	seedFrenchRows(t, dbPath)

	buf := &bytes.Buffer{}
	cmd := NewDeleteCommand(&RootOptions{Format: "text", ConfigPath: configPath})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"french_example", "--field", "french_word_id", "--value", "1"})
	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Deleted 2 row(s) from french_example.")
	assert.Contains(t, output, "Restore with: lexivault undo deletion_")
	assert.Contains(t, output, "expires in 1h0m0s")
}
