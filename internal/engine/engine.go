// Package engine wires the event store, the pattern analyzer and the
// remediation engine behind the public API. It owns input validation, the
// project whitelist, and the conversion of anything unexpected into a typed
// error: no raw panic ever reaches a caller.
package engine

import (
	"fmt"
	"log"
	"os"

	"github.com/packagewjx/failure-insight/internal/analysis"
	"github.com/packagewjx/failure-insight/internal/remedy"
	"github.com/packagewjx/failure-insight/internal/store"
	"github.com/packagewjx/failure-insight/pkg/core"
	"github.com/packagewjx/failure-insight/pkg/engine"
)

// New builds the engine from configuration. The store handle is created once
// here and handed to the components by reference; nothing holds global state.
func New(config *EngineConfig) (engine.API, error) {
	if err := config.Complete(); err != nil {
		return nil, engine.NewValidationError("config", err.Error())
	}

	dao, err := store.NewDao(config.DBPath, config.DedupWindow)
	if err != nil {
		return nil, err
	}

	var rules remedy.RuleTable
	if config.RulesFile != "" {
		rules, err = remedy.LoadRuleTable(config.RulesFile)
		if err != nil {
			return nil, engine.NewValidationError("rulesFile", err.Error())
		}
	}

	return &engineImpl{
		config: config,
		dao:    dao,
		remedy: remedy.NewEngine(dao, rules, config.MinSampleSize),
		logger: log.New(os.Stdout, "failure engine: ", log.LstdFlags|log.Lshortfile|log.Lmsgprefix),
	}, nil
}

type engineImpl struct {
	config *EngineConfig
	dao    store.Dao
	remedy *remedy.Engine
	logger *log.Logger
}

var _ engine.API = &engineImpl{}

func (e *engineImpl) RecordFailure(in *core.FailureEventInput) (receipt *core.RecordReceipt, err error) {
	defer guard("record failure", &err)

	id, duplicate, err := e.dao.RecordFailure(in)
	if err != nil {
		return nil, err
	}
	return &core.RecordReceipt{EventId: id, Duplicate: duplicate}, nil
}

func (e *engineImpl) Analyze(project string, lookbackDays int) (report *core.Report, err error) {
	defer guard("analyze", &err)

	if lookbackDays <= 0 {
		return nil, engine.NewValidationError("lookbackDays", fmt.Sprintf("must be positive, got %d", lookbackDays))
	}
	if err := e.checkProject(project); err != nil {
		return nil, err
	}

	e.logger.Printf("analyzing failure patterns over %d days (project=%q)", lookbackDays, project)

	events, truncated, err := e.dao.RecentFailures(lookbackDays, project, e.config.MaxScanRows)
	if err != nil {
		return nil, err
	}

	report = analysis.Analyze(events, analysis.Options{
		PatternThreshold: e.config.PatternThreshold,
		SpikeMultiplier:  e.config.SpikeMultiplier,
		HotNodeRatio:     e.config.HotNodeRatio,
		MinNodeSample:    e.config.MinNodeSample,
		MinImageSample:   e.config.MinImageSample,
	})
	report.Summary.LookbackDays = lookbackDays
	report.Truncated = truncated
	return report, nil
}

func (e *engineImpl) Stats(lookbackDays int) (counters *core.Counters, err error) {
	defer guard("stats", &err)

	if lookbackDays <= 0 {
		return nil, engine.NewValidationError("lookbackDays", fmt.Sprintf("must be positive, got %d", lookbackDays))
	}
	return e.dao.DimensionCounts(lookbackDays)
}

func (e *engineImpl) Remediate(failureType, jobName, project string) (suggestions *core.Suggestions, err error) {
	defer guard("remediate", &err)

	if failureType == "" {
		return nil, engine.NewValidationError("failureType", "must not be empty")
	}
	if err := e.checkProject(project); err != nil {
		return nil, err
	}
	return e.remedy.Suggest(failureType, jobName, project)
}

func (e *engineImpl) RecordSolutionOutcome(failureType, solution string, success bool) (err error) {
	defer guard("record solution outcome", &err)
	return e.dao.RecordSolutionOutcome(failureType, solution, success)
}

func (e *engineImpl) Resolve(eventId uint, resolutionType string) (err error) {
	defer guard("resolve", &err)
	return e.dao.MarkResolved(eventId, resolutionType)
}

// checkProject enforces the whitelist before any store access. When the
// whitelist is restricted, querying all projects at once is also denied.
func (e *engineImpl) checkProject(project string) error {
	if e.config.unrestricted() {
		return nil
	}
	if project == "" {
		return engine.NewValidationError("project", "access is restricted; a project must be named")
	}
	if !e.config.projectAllowed(project) {
		return engine.NewValidationError("project", fmt.Sprintf("access to project %q is denied", project))
	}
	return nil
}

// guard converts a panic escaping an operation into a StorageError so the
// caller always sees a typed result.
func guard(op string, err *error) {
	if r := recover(); r != nil {
		*err = engine.NewStorageError(op, fmt.Errorf("unexpected internal error: %v", r))
	}
}
