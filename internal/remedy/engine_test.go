package remedy

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/packagewjx/failure-insight/pkg/core"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	solutions map[string][]*core.FailureSolution
}

func (f *fakeSource) SolutionsFor(failureType string) ([]*core.FailureSolution, error) {
	return f.solutions[failureType], nil
}

func TestSuggestRuleBased(t *testing.T) {
	engine := NewEngine(&fakeSource{}, nil, 0)

	suggestions, err := engine.Suggest("OOMKilled", "train-1", "ml-team")
	assert.NoError(t, err)
	assert.Equal(t, "Out of memory: pod exceeded its memory limit", suggestions.Description)
	assert.Equal(t, "train-1", suggestions.JobName)
	assert.Equal(t, "ml-team", suggestions.Project)
	assert.False(t, suggestions.NoKnownSolutions)
	assert.Len(t, suggestions.RuleBased, 2)
	assert.Equal(t, "increase_memory", suggestions.RuleBased[0].Action)
	assert.Len(t, suggestions.Historical, 0)
}

func TestSuggestHistoricalRanking(t *testing.T) {
	source := &fakeSource{solutions: map[string][]*core.FailureSolution{
		"OOMKilled": {
			{FailureType: "OOMKilled", Solution: "half measure", SuccessCount: 1, FailureCount: 1},
			{FailureType: "OOMKilled", Solution: "double memory", SuccessCount: 6, FailureCount: 1},
			{FailureType: "OOMKilled", Solution: "tried once", SuccessCount: 1, FailureCount: 0},
		},
	}}
	engine := NewEngine(source, nil, 2)

	suggestions, err := engine.Suggest("OOMKilled", "", "")
	assert.NoError(t, err)

	historical := suggestions.Historical
	assert.Len(t, historical, 2, "solutions below the minimum sample size must be suppressed")
	assert.Equal(t, "double memory", historical[0].Solution)
	assert.InDelta(t, 6.0/7.0, historical[0].SuccessRate, 1e-9)
	assert.Equal(t, "half measure", historical[1].Solution)
	assert.InDelta(t, 0.5, historical[1].SuccessRate, 1e-9)
}

func TestSuggestRankingTieBreaks(t *testing.T) {
	source := &fakeSource{solutions: map[string][]*core.FailureSolution{
		"Error": {
			{FailureType: "Error", Solution: "b", SuccessCount: 2, FailureCount: 0},
			{FailureType: "Error", Solution: "a", SuccessCount: 2, FailureCount: 0},
			{FailureType: "Error", Solution: "bigger sample", SuccessCount: 4, FailureCount: 0},
		},
	}}
	engine := NewEngine(source, nil, 2)

	suggestions, err := engine.Suggest("Error", "", "")
	assert.NoError(t, err)

	historical := suggestions.Historical
	assert.Len(t, historical, 3)
	assert.Equal(t, "bigger sample", historical[0].Solution)
	assert.Equal(t, "a", historical[1].Solution)
	assert.Equal(t, "b", historical[2].Solution)
}

func TestSuggestUnknownFailureType(t *testing.T) {
	engine := NewEngine(&fakeSource{}, nil, 0)

	suggestions, err := engine.Suggest("SomethingNew", "", "")
	assert.NoError(t, err)
	assert.True(t, suggestions.NoKnownSolutions)
	assert.Equal(t, "Unknown failure type", suggestions.Description)
	assert.NotNil(t, suggestions.RuleBased)
	assert.NotNil(t, suggestions.Historical)
}

func TestLoadRuleTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  OOMKilled:
    description: "Out of memory"
    solutions:
      - action: increase_memory
        description: "Increase memory request"
        params:
          multiplier: 2.0
`
	assert.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	rules, err := LoadRuleTable(path)
	assert.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, "Out of memory", rules["OOMKilled"].Description)
	assert.Len(t, rules["OOMKilled"].Solutions, 1)
	assert.Equal(t, "increase_memory", rules["OOMKilled"].Solutions[0].Action)
}

func TestLoadRuleTableRejectsEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	assert.NoError(t, ioutil.WriteFile(empty, []byte("other: value\n"), 0644))
	_, err := LoadRuleTable(empty)
	assert.Error(t, err)

	_, err = LoadRuleTable(filepath.Join(dir, "does-not-exist.yaml"))
	assert.Error(t, err)
}
