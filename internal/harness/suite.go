package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// SuiteResult summarizes every scenario of a directory.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path"`
	Error    string `json:"error"`
}

// RunDir loads and runs every *.yaml scenario in dir, in file name order.
// A scenario that cannot be loaded counts as failed. The error is non-nil
// only if the directory cannot be listed or ctx is done.
func RunDir(ctx context.Context, dir string) (*SuiteResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	slices.Sort(paths)

	suite := &SuiteResult{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return suite, err
		}
		suite.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.fail(filepath.Base(path), path, err.Error())
			continue
		}

		result, err := RunContext(ctx, scenario)
		if err != nil {
			suite.fail(scenario.Name, path, err.Error())
			continue
		}
		if !result.Pass {
			suite.fail(scenario.Name, path, strings.Join(result.Errors, "\n"))
			continue
		}
		suite.Passed++
	}
	return suite, nil
}

func (s *SuiteResult) fail(name, path, msg string) {
	s.Failed++
	s.Failures = append(s.Failures, ScenarioFailure{Scenario: name, Path: path, Error: msg})
}
