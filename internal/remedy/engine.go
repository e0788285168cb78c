// Package remedy ranks fix suggestions for a failure type by combining the
// configured rule table with historically recorded solution outcomes.
package remedy

import (
	"sort"

	"github.com/packagewjx/failure-insight/pkg/core"
)

const DefaultMinSampleSize = 2

// SolutionSource is the slice of the event store this engine reads.
type SolutionSource interface {
	SolutionsFor(failureType string) ([]*core.FailureSolution, error)
}

// Engine produces ranked remediation suggestions. It holds no mutable state:
// every Suggest call reads the store afresh.
type Engine struct {
	rules         RuleTable
	solutions     SolutionSource
	minSampleSize int
}

// NewEngine builds a remediation engine over the given solution source.
// minSampleSize suppresses historical solutions with fewer recorded outcomes;
// values below 1 fall back to the default.
func NewEngine(solutions SolutionSource, rules RuleTable, minSampleSize int) *Engine {
	if rules == nil {
		rules = DefaultRuleTable()
	}
	if minSampleSize < 1 {
		minSampleSize = DefaultMinSampleSize
	}
	return &Engine{
		rules:         rules,
		solutions:     solutions,
		minSampleSize: minSampleSize,
	}
}

// Suggest returns rule-based solutions first, then historical solutions
// sorted by descending success rate. When neither source yields anything the
// result explicitly says so instead of being silently empty.
func (e *Engine) Suggest(failureType, jobName, project string) (*core.Suggestions, error) {
	suggestions := &core.Suggestions{
		FailureType: failureType,
		Description: "Unknown failure type",
		JobName:     jobName,
		Project:     project,
		RuleBased:   make([]*core.RuleSolution, 0),
		Historical:  make([]*core.HistoricalSolution, 0),
	}

	if rule, ok := e.rules[failureType]; ok {
		suggestions.Description = rule.Description
		suggestions.RuleBased = rule.Solutions
	}

	recorded, err := e.solutions.SolutionsFor(failureType)
	if err != nil {
		return nil, err
	}
	suggestions.Historical = e.rank(recorded)

	suggestions.NoKnownSolutions = len(suggestions.RuleBased) == 0 && len(suggestions.Historical) == 0
	return suggestions, nil
}

func (e *Engine) rank(recorded []*core.FailureSolution) []*core.HistoricalSolution {
	ranked := make([]*core.HistoricalSolution, 0, len(recorded))
	for _, s := range recorded {
		if int(s.OutcomeTotal()) < e.minSampleSize {
			continue
		}
		rate, ok := s.SuccessRate()
		if !ok {
			continue
		}
		ranked = append(ranked, &core.HistoricalSolution{
			Solution:     s.Solution,
			SuccessRate:  rate,
			SuccessCount: s.SuccessCount,
			FailureCount: s.FailureCount,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].SuccessRate != ranked[j].SuccessRate {
			return ranked[i].SuccessRate > ranked[j].SuccessRate
		}
		if ranked[i].SuccessCount != ranked[j].SuccessCount {
			return ranked[i].SuccessCount > ranked[j].SuccessCount
		}
		return ranked[i].Solution < ranked[j].Solution
	})
	return ranked
}
