package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/toverud/lexivault/internal/snapshot"
)

// TraceDocument captures the complete flow trace for a scenario
// execution. Struct field order is fixed and trace events hold only
// scalar fields, so the indented JSON encoding is deterministic.
type TraceDocument struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario and compares its outputs against
// golden files under testdata/golden/:
//
//   - every snapshot captured by a delete step, named after the
//     scenario ({name}.golden for the first delete, {name}_2.golden
//     and so on for later ones)
//   - the flow trace, named {name}_trace.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Golden mismatches fail
// the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("scenario %s failed: %v", scenario.Name, result.Errors)
	}
	if len(result.Operations) == 0 {
		return fmt.Errorf("scenario %s captured no snapshots", scenario.Name)
	}

	for i, opID := range result.Operations {
		name := scenario.Name
		if i > 0 {
			name = fmt.Sprintf("%s_%d", scenario.Name, i+1)
		}
		if err := AssertSnapshotGolden(t, name, result.Snapshots[opID]); err != nil {
			return err
		}
	}

	return AssertTraceGolden(t, scenario.Name, result)
}

// AssertSnapshotGolden compares a decoded snapshot against the golden
// file testdata/golden/{name}.golden.
func AssertSnapshotGolden(t *testing.T, name string, snap *snapshot.Snapshot) error {
	t.Helper()

	data, err := marshalGolden(snap)
	if err != nil {
		return err
	}
	newGoldie(t).Assert(t, name, data)
	return nil
}

// AssertTraceGolden compares a result's flow trace against the golden
// file testdata/golden/{name}_trace.golden. This is useful when you
// have already run a scenario and want to pin its trace without
// re-running.
func AssertTraceGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	doc := TraceDocument{
		Scenario: name,
		Trace:    result.Trace,
	}
	data, err := marshalGolden(doc)
	if err != nil {
		return err
	}
	newGoldie(t).Assert(t, name+"_trace", data)
	return nil
}

func marshalGolden(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
