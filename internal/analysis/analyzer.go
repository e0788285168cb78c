// Package analysis contains the pattern detection algorithms. Every function
// here is a pure computation over the event slice it is handed; persistence
// and windowing are the caller's concern.
package analysis

import (
	"fmt"
	"sort"

	"github.com/packagewjx/failure-insight/pkg/core"
)

const (
	DefaultPatternThreshold = 3
	DefaultSpikeMultiplier  = 2.0
	DefaultMinSpikeCount    = 3
	DefaultHotNodeRatio     = 0.5
	DefaultMinNodeSample    = 3
	DefaultMinImageSample   = 3
	DefaultTopErrorMessages = 3

	// highSeverityCount promotes a project pattern or image correlation from
	// medium to high once the group reaches this many failures.
	highSeverityCount = 5

	// criticalNodeRatio promotes a hot node from high to critical.
	criticalNodeRatio = 0.8

	spikeHypothesis = "may indicate resource contention or scheduled load"
)

// Options tunes the detectors. Zero values fall back to the defaults above.
type Options struct {
	PatternThreshold int
	SpikeMultiplier  float64
	MinSpikeCount    int
	HotNodeRatio     float64
	MinNodeSample    int
	MinImageSample   int
	TopErrorMessages int
}

func (o Options) complete() Options {
	if o.PatternThreshold <= 0 {
		o.PatternThreshold = DefaultPatternThreshold
	}
	if o.SpikeMultiplier <= 0 {
		o.SpikeMultiplier = DefaultSpikeMultiplier
	}
	if o.MinSpikeCount <= 0 {
		o.MinSpikeCount = DefaultMinSpikeCount
	}
	if o.HotNodeRatio <= 0 {
		o.HotNodeRatio = DefaultHotNodeRatio
	}
	if o.MinNodeSample <= 0 {
		o.MinNodeSample = DefaultMinNodeSample
	}
	if o.MinImageSample <= 0 {
		o.MinImageSample = DefaultMinImageSample
	}
	if o.TopErrorMessages <= 0 {
		o.TopErrorMessages = DefaultTopErrorMessages
	}
	return o
}

// Analyze produces the full report for one window of failure events. An
// empty slice yields a zero-valued report with empty lists.
func Analyze(events []*core.FailureEvent, opts Options) *core.Report {
	opts = opts.complete()

	report := &core.Report{
		Patterns:          make([]*core.ProjectPattern, 0),
		TemporalNotes:     make([]*core.TemporalNote, 0),
		HotNodes:          make([]*core.HotNode, 0),
		ImageCorrelations: make([]*core.ImageCorrelation, 0),
		Recommendations:   make([]string, 0),
	}
	if len(events) == 0 {
		return report
	}

	byProject := groupBy(events, func(e *core.FailureEvent) string { return e.Project })
	byNode := groupBy(events, func(e *core.FailureEvent) string { return e.NodeName })
	byImage := groupBy(events, func(e *core.FailureEvent) string { return e.ContainerImage })

	failureTypes := map[string]bool{}
	jobsInWindow := map[string]bool{}
	for _, e := range events {
		failureTypes[e.FailureType] = true
		jobsInWindow[jobKey(e)] = true
	}

	report.Summary = core.Summary{
		TotalFailures:    len(events),
		ProjectsAffected: len(byProject),
		FailureTypes:     len(failureTypes),
	}

	report.Patterns = projectPatterns(byProject, opts)
	report.TemporalNotes = temporalNotes(events, opts)
	report.HotNodes = hotNodes(byNode, len(jobsInWindow), opts)
	report.ImageCorrelations = imageCorrelations(byImage, opts)
	report.Recommendations = recommendations(report)

	return report
}

func projectPatterns(byProject map[string][]*core.FailureEvent, opts Options) []*core.ProjectPattern {
	patterns := make([]*core.ProjectPattern, 0)
	for project, group := range byProject {
		if len(group) < opts.PatternThreshold {
			continue
		}

		severity := core.SeverityMedium
		if len(group) >= highSeverityCount {
			severity = core.SeverityHigh
		}

		patterns = append(patterns, &core.ProjectPattern{
			Project:         project,
			FailureCount:    len(group),
			JobsAffected:    distinctJobs(group),
			TopFailureTypes: topFailureTypes(group, 3),
			Severity:        severity,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].FailureCount != patterns[j].FailureCount {
			return patterns[i].FailureCount > patterns[j].FailureCount
		}
		return patterns[i].Project < patterns[j].Project
	})
	return patterns
}

func temporalNotes(events []*core.FailureEvent, opts Options) []*core.TemporalNote {
	var hourCounts [24]int
	for _, e := range events {
		hourCounts[e.Timestamp.Hour()]++
	}

	mean := float64(len(events)) / 24.0
	peaks := make([]int, 0)
	for hour, count := range hourCounts {
		if count >= opts.MinSpikeCount && float64(count) > mean*opts.SpikeMultiplier {
			peaks = append(peaks, hour)
		}
	}
	if len(peaks) == 0 {
		return make([]*core.TemporalNote, 0)
	}

	return []*core.TemporalNote{{
		PeakHours:   peaks,
		Description: fmt.Sprintf("failures spike during hours %v", peaks),
		Hypothesis:  spikeHypothesis,
	}}
}

// hotNodes flags nodes whose share of the window's failing jobs exceeds the
// configured ratio. The denominator is the distinct jobs observed in the
// analysis window: the engine only ever sees failure events, so the window's
// failing-job population is the closest available stand-in for "jobs
// scheduled on the node". Both the ratio and the minimum sample size must
// hold before a node is flagged.
func hotNodes(byNode map[string][]*core.FailureEvent, jobsInWindow int, opts Options) []*core.HotNode {
	nodes := make([]*core.HotNode, 0)
	if jobsInWindow == 0 {
		return nodes
	}

	for node, group := range byNode {
		if len(group) < opts.MinNodeSample {
			continue
		}
		rate := float64(distinctJobs(group)) / float64(jobsInWindow)
		if rate <= opts.HotNodeRatio {
			continue
		}

		severity := core.SeverityHigh
		if rate > criticalNodeRatio {
			severity = core.SeverityCritical
		}

		nodes = append(nodes, &core.HotNode{
			Node:         node,
			FailureCount: len(group),
			JobsAffected: distinctJobs(group),
			FailureRate:  rate,
			Severity:     severity,
		})
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].FailureRate != nodes[j].FailureRate {
			return nodes[i].FailureRate > nodes[j].FailureRate
		}
		return nodes[i].Node < nodes[j].Node
	})
	return nodes
}

func imageCorrelations(byImage map[string][]*core.FailureEvent, opts Options) []*core.ImageCorrelation {
	correlations := make([]*core.ImageCorrelation, 0)
	for image, group := range byImage {
		if len(group) < opts.MinImageSample {
			continue
		}
		correlations = append(correlations, &core.ImageCorrelation{
			Image:        image,
			FailureCount: len(group),
			JobsAffected: distinctJobs(group),
			CommonErrors: commonErrors(group, opts.TopErrorMessages),
		})
	}

	sort.Slice(correlations, func(i, j int) bool {
		if correlations[i].FailureCount != correlations[j].FailureCount {
			return correlations[i].FailureCount > correlations[j].FailureCount
		}
		return correlations[i].Image < correlations[j].Image
	})
	return correlations
}

// recommendations turns the detected patterns into human-readable hints,
// ordered by severity score (failure count times distinct jobs affected),
// highest first.
func recommendations(report *core.Report) []string {
	type scored struct {
		score int
		text  string
	}
	hints := make([]scored, 0)

	for _, p := range report.Patterns {
		hints = append(hints, scored{
			score: p.FailureCount * p.JobsAffected,
			text: fmt.Sprintf("Project '%s' has %d failures across %d jobs. Review project resources and job configurations.",
				p.Project, p.FailureCount, p.JobsAffected),
		})
	}
	for _, n := range report.HotNodes {
		hints = append(hints, scored{
			score: n.FailureCount * n.JobsAffected,
			text: fmt.Sprintf("Node '%s' shows a %.0f%% failure rate (%d failures across %d jobs). Consider cordoning the node for maintenance.",
				n.Node, n.FailureRate*100, n.FailureCount, n.JobsAffected),
		})
	}
	for _, c := range report.ImageCorrelations {
		if c.FailureCount < highSeverityCount {
			continue
		}
		hints = append(hints, scored{
			score: c.FailureCount * c.JobsAffected,
			text: fmt.Sprintf("Image '%s' is associated with %d failures. Verify image compatibility and dependencies.",
				c.Image, c.FailureCount),
		})
	}

	sort.Slice(hints, func(i, j int) bool {
		if hints[i].score != hints[j].score {
			return hints[i].score > hints[j].score
		}
		return hints[i].text < hints[j].text
	})

	result := make([]string, len(hints))
	for i, h := range hints {
		result[i] = h.text
	}
	if len(result) == 0 && report.Summary.TotalFailures > 0 {
		result = append(result, "No recurring failure patterns detected.")
	}
	return result
}

func groupBy(events []*core.FailureEvent, key func(*core.FailureEvent) string) map[string][]*core.FailureEvent {
	groups := map[string][]*core.FailureEvent{}
	for _, e := range events {
		k := key(e)
		if k == "" {
			continue
		}
		groups[k] = append(groups[k], e)
	}
	return groups
}

func distinctJobs(events []*core.FailureEvent) int {
	jobs := map[string]bool{}
	for _, e := range events {
		jobs[jobKey(e)] = true
	}
	return len(jobs)
}

func jobKey(e *core.FailureEvent) string {
	return e.Project + "/" + e.JobName
}

func topFailureTypes(events []*core.FailureEvent, n int) []core.TypeCount {
	counts := map[string]int{}
	for _, e := range events {
		counts[e.FailureType]++
	}

	result := make([]core.TypeCount, 0, len(counts))
	for t, c := range counts {
		result = append(result, core.TypeCount{FailureType: t, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].FailureType < result[j].FailureType
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}

func commonErrors(events []*core.FailureEvent, n int) []string {
	counts := map[string]int{}
	for _, e := range events {
		if e.ErrorMessage != "" {
			counts[e.ErrorMessage]++
		}
	}

	messages := make([]string, 0, len(counts))
	for m := range counts {
		messages = append(messages, m)
	}
	sort.Slice(messages, func(i, j int) bool {
		if counts[messages[i]] != counts[messages[j]] {
			return counts[messages[i]] > counts[messages[j]]
		}
		return messages[i] < messages[j]
	})
	if len(messages) > n {
		messages = messages[:n]
	}
	return messages
}
