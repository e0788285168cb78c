package engine

import (
	"github.com/packagewjx/failure-insight/pkg/core"
)

// API is the contract external collaborators program against. The monitor
// uses the write operations; query tools (chat front end, CLI, scheduled
// reports) use the read operations. Every call is a stateless read or a
// single atomic write.
type API interface {
	// RecordFailure validates and durably stores one failure event.
	RecordFailure(in *core.FailureEventInput) (*core.RecordReceipt, error)

	// Analyze runs full pattern analysis over the lookback window,
	// optionally filtered to one project. Empty project means all.
	Analyze(project string, lookbackDays int) (*core.Report, error)

	// Stats returns frequency counters only, without pattern analysis.
	Stats(lookbackDays int) (*core.Counters, error)

	// Remediate returns ranked fix suggestions for a failure type.
	// JobName and project are echoed for traceability only.
	Remediate(failureType, jobName, project string) (*core.Suggestions, error)

	// RecordSolutionOutcome feeds the knowledge graph: the collaborator that
	// applied a suggested fix reports whether it worked. This is the only
	// way the engine learns.
	RecordSolutionOutcome(failureType, solution string, success bool) error

	// Resolve flips the resolved flag of a stored event. No other field of
	// an event is ever mutated.
	Resolve(eventId uint, resolutionType string) error
}
