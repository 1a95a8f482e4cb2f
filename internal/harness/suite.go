package harness

import (
	"fmt"
	"path/filepath"
)

// SuiteResult contains aggregate results from running a scenario suite.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a failed scenario in a suite run.
type ScenarioFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path"`
	Error    string `json:"error"`
}

func (s *SuiteResult) fail(scenario, path, msg string) {
	s.Failed++
	s.Failures = append(s.Failures, ScenarioFailure{
		Scenario: scenario,
		Path:     path,
		Error:    msg,
	})
}

// RunSuite loads and runs every scenario file (*.yaml) in dir and
// returns a summary of results.
//
// For each scenario file:
// 1. Load and validate the scenario
// 2. Run it against a fresh engine
// 3. Collect pass/fail results
func RunSuite(dir string) (*SuiteResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	result := &SuiteResult{}
	for _, path := range paths {
		result.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail(filepath.Base(path), path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.fail(scenario.Name, path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}

		if !runResult.Pass {
			result.fail(scenario.Name, path, fmt.Sprintf("scenario assertions failed: %v", runResult.Errors))
			continue
		}

		result.Passed++
	}

	return result, nil
}
