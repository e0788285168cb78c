package core

import "time"

// Correlation dimensions tracked by the event store.
const (
	CorrelationNode    = "node"
	CorrelationImage   = "image"
	CorrelationProject = "project"
)

// Severity labels attached to patterns and hot nodes.
const (
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// FailureEventInput is the ingestion schema accepted from the external
// monitor. Project, JobName and FailureType are required; everything else
// defaults to empty/zero.
type FailureEventInput struct {
	Project        string `json:"project"`
	JobName        string `json:"jobName"`
	FailureType    string `json:"failureType"`
	Phase          string `json:"phase"`
	PodName        string `json:"podName"`
	NodeName       string `json:"nodeName"`
	ContainerImage string `json:"containerImage"`
	ErrorMessage   string `json:"errorMessage"`
	LogsSnippet    string `json:"logsSnippet"`
	EventsSnippet  string `json:"eventsSnippet"`
	GpuCount       int    `json:"gpuCount"`
	MemoryRequest  string `json:"memoryRequest"`
	CpuRequest     string `json:"cpuRequest"`
}

// FailureEvent is a stored failure record. Rows are append-only: after
// insertion only the resolution fields may change, and only through an
// explicit resolution update.
type FailureEvent struct {
	Id             uint      `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Project        string    `json:"project"`
	JobName        string    `json:"jobName"`
	FailureType    string    `json:"failureType"`
	Phase          string    `json:"phase"`
	PodName        string    `json:"podName"`
	NodeName       string    `json:"nodeName"`
	ContainerImage string    `json:"containerImage"`
	ErrorMessage   string    `json:"errorMessage"`
	LogsSnippet    string    `json:"logsSnippet"`
	EventsSnippet  string    `json:"eventsSnippet"`
	GpuCount       int       `json:"gpuCount"`
	MemoryRequest  string    `json:"memoryRequest"`
	CpuRequest     string    `json:"cpuRequest"`

	Resolved            bool       `json:"resolved"`
	ResolutionType      string     `json:"resolutionType,omitempty"`
	ResolutionTimestamp *time.Time `json:"resolutionTimestamp,omitempty"`
}

// SolutionOutcomeInput reports whether an applied fix worked.
type SolutionOutcomeInput struct {
	FailureType string `json:"failureType"`
	Solution    string `json:"solution"`
	Success     bool   `json:"success"`
}

// ResolutionInput marks a stored event as resolved.
type ResolutionInput struct {
	ResolutionType string `json:"resolutionType"`
}

// RecordReceipt is returned by the ingestion path. Duplicate is set when the
// event matched a recently recorded one and no new row was written.
type RecordReceipt struct {
	EventId   uint `json:"eventId"`
	Duplicate bool `json:"duplicate"`
}

// FailureSolution is one knowledge-graph edge: a remedy tried against a
// failure type, with its recorded outcomes.
type FailureSolution struct {
	FailureType  string    `json:"failureType"`
	Solution     string    `json:"solution"`
	SuccessCount uint      `json:"successCount"`
	FailureCount uint      `json:"failureCount"`
	LastUsed     time.Time `json:"lastUsed"`
}

// OutcomeTotal is the number of recorded outcomes for this solution.
func (s *FailureSolution) OutcomeTotal() uint {
	return s.SuccessCount + s.FailureCount
}

// SuccessRate is always derived from the two counters. The second return is
// false when no outcome has been recorded yet, in which case the rate is
// undefined rather than zero.
func (s *FailureSolution) SuccessRate() (float64, bool) {
	total := s.OutcomeTotal()
	if total == 0 {
		return 0, false
	}
	return float64(s.SuccessCount) / float64(total), true
}

// FailureCorrelation is a cached per-dimension aggregate. It is derived from
// the event log and never treated as source of truth.
type FailureCorrelation struct {
	Type         string    `json:"type"`
	Key          string    `json:"key"`
	FailureCount uint      `json:"failureCount"`
	FirstSeen    time.Time `json:"firstSeen"`
	LastSeen     time.Time `json:"lastSeen"`
}

// Summary heads every analysis report.
type Summary struct {
	TotalFailures    int `json:"totalFailures"`
	LookbackDays     int `json:"lookbackDays"`
	ProjectsAffected int `json:"projectsAffected"`
	FailureTypes     int `json:"failureTypes"`
}

// TypeCount is one bar of a failure-type histogram.
type TypeCount struct {
	FailureType string `json:"failureType"`
	Count       int    `json:"count"`
}

// ProjectPattern is a project whose failure count within the window reached
// the pattern threshold.
type ProjectPattern struct {
	Project         string      `json:"project"`
	FailureCount    int         `json:"failureCount"`
	JobsAffected    int         `json:"jobsAffected"`
	TopFailureTypes []TypeCount `json:"topFailureTypes"`
	Severity        string      `json:"severity"`
}

// TemporalNote flags hour-of-day buckets whose failure count stands out from
// the mean.
type TemporalNote struct {
	PeakHours   []int  `json:"peakHours"`
	Description string `json:"description"`
	Hypothesis  string `json:"hypothesis"`
}

// HotNode is a node whose failure rate exceeded the configured ratio with
// sufficient sample size.
type HotNode struct {
	Node         string  `json:"node"`
	FailureCount int     `json:"failureCount"`
	JobsAffected int     `json:"jobsAffected"`
	FailureRate  float64 `json:"failureRate"`
	Severity     string  `json:"severity"`
}

// ImageCorrelation groups failures by container image, with the most common
// error messages as qualitative context.
type ImageCorrelation struct {
	Image        string   `json:"image"`
	FailureCount int      `json:"failureCount"`
	JobsAffected int      `json:"jobsAffected"`
	CommonErrors []string `json:"commonErrors"`
}

// Report is the structured output of an analysis query. An empty window
// yields a zero-valued report, not an error.
type Report struct {
	Summary           Summary             `json:"summary"`
	Patterns          []*ProjectPattern   `json:"patterns"`
	TemporalNotes     []*TemporalNote     `json:"temporalNotes"`
	HotNodes          []*HotNode          `json:"hotNodes"`
	ImageCorrelations []*ImageCorrelation `json:"imageCorrelations"`
	Recommendations   []string            `json:"recommendations"`
	Truncated         bool                `json:"truncated"`
}

// Counters is the cheap stats variant: frequency counts only, no pattern or
// correlation analysis.
type Counters struct {
	LookbackDays  int            `json:"lookbackDays"`
	TotalFailures int            `json:"totalFailures"`
	ByFailureType map[string]int `json:"byFailureType"`
	ByProject     map[string]int `json:"byProject"`
	ByNode        map[string]int `json:"byNode"`
	ByImage       map[string]int `json:"byImage"`
}

// RuleSolution is one canned remedy from the configured rule table.
type RuleSolution struct {
	Action      string                 `json:"action"`
	Description string                 `json:"description"`
	Params      map[string]interface{} `json:"params,omitempty"`
}

// HistoricalSolution is a remedy ranked purely by recorded outcomes.
type HistoricalSolution struct {
	Solution     string  `json:"solution"`
	SuccessRate  float64 `json:"successRate"`
	SuccessCount uint    `json:"successCount"`
	FailureCount uint    `json:"failureCount"`
}

// Suggestions is the remediation answer for one failure type. JobName and
// Project are echoed back for traceability only; they do not change which
// solutions are returned.
type Suggestions struct {
	FailureType      string                `json:"failureType"`
	Description      string                `json:"description"`
	JobName          string                `json:"jobName,omitempty"`
	Project          string                `json:"project,omitempty"`
	RuleBased        []*RuleSolution       `json:"ruleBased"`
	Historical       []*HistoricalSolution `json:"historical"`
	NoKnownSolutions bool                  `json:"noKnownSolutions"`
}
