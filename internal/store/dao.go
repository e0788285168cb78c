package store

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/packagewjx/failure-insight/pkg/core"
	"github.com/packagewjx/failure-insight/pkg/engine"
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// busyTimeoutMs is handed to SQLite so a writer waits for the lock instead of
// failing immediately. Contention past this budget surfaces as a busy error
// and goes through the bounded retry in retry.go.
const busyTimeoutMs = 5000

// maxSnippetLen bounds the free-text diagnostic columns.
const maxSnippetLen = 4096

type UpdateDao interface {
	RecordFailure(in *core.FailureEventInput) (uint, bool, error)
	MarkResolved(eventId uint, resolutionType string) error
	RecordSolutionOutcome(failureType, solution string, success bool) error

	// PurgeEventsBefore permanently removes events older than cutoff. Only
	// the explicitly invoked retention command calls this.
	PurgeEventsBefore(cutoff time.Time) (int64, error)
}

type QueryDao interface {
	// RecentFailures returns events with timestamp >= now-days, ascending,
	// optionally filtered by project. The second return is true when the
	// result was cut off at limit rows.
	RecentFailures(days int, project string, limit int) ([]*core.FailureEvent, bool, error)
	SolutionsFor(failureType string) ([]*core.FailureSolution, error)
	Correlations(correlationType string) ([]*core.FailureCorrelation, error)
	DimensionCounts(days int) (*core.Counters, error)
}

type Dao interface {
	DB() *gorm.DB
	UpdateDao
	QueryDao
}

type daoImpl struct {
	db          *gorm.DB
	dedupWindow time.Duration
	logger      *log.Logger
}

var _ Dao = &daoImpl{}

// NewDao opens (or creates) the store at dbPath. Opening an existing file
// never alters its rows: the schema migration is create-if-not-exists for
// every table, so multiple processes racing to initialize a fresh store
// converge to the same schema.
//
// dedupWindow suppresses repeated recordings of the same failure; zero
// disables deduplication.
func NewDao(dbPath string, dedupWindow time.Duration) (Dao, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", dbPath, busyTimeoutMs)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(log.New(os.Stdout, "", 0), logger.Config{
			LogLevel: logger.Silent,
		}),
	})
	if err != nil {
		return nil, engine.NewStorageError("open", errors.Wrap(err, "cannot open failure history database"))
	}

	d := &daoImpl{
		db:          db,
		dedupWindow: dedupWindow,
		logger:      log.New(os.Stdout, "Dao: ", log.LstdFlags|log.Lshortfile|log.Lmsgprefix),
	}

	// A second initializer may hold the write lock while migrating, so the
	// migration itself runs under the retry budget.
	err = d.withRetry("migrate", func() error {
		return db.AutoMigrate(&FailureEventDO{}, &FailureSolutionDO{}, &FailureCorrelationDO{})
	})
	if err != nil {
		return nil, engine.NewStorageError("migrate", errors.Wrap(err, "cannot create schema"))
	}

	return d, nil
}

func (d *daoImpl) RecordFailure(in *core.FailureEventInput) (uint, bool, error) {
	if in.Project == "" {
		return 0, false, engine.NewValidationError("project", "must not be empty")
	}
	if in.JobName == "" {
		return 0, false, engine.NewValidationError("jobName", "must not be empty")
	}
	if in.FailureType == "" {
		return 0, false, engine.NewValidationError("failureType", "must not be empty")
	}

	now := time.Now()

	// Repeated detections of the same failing job within the dedup window
	// return the existing row untouched: the event log stays append-only and
	// a flapping monitor cannot inflate the pattern counts.
	if d.dedupWindow > 0 {
		existing := &FailureEventDO{}
		err := d.db.
			Where("job_name = ? AND project = ? AND failure_type = ? AND phase = ? AND timestamp > ?",
				in.JobName, in.Project, in.FailureType, in.Phase, now.Add(-d.dedupWindow)).
			Order("timestamp desc").
			First(existing).Error
		if err == nil {
			d.logger.Printf("duplicate failure for job %s/%s, keeping event #%d", in.Project, in.JobName, existing.ID)
			return existing.ID, true, nil
		}
		if err != gorm.ErrRecordNotFound {
			return 0, false, engine.NewStorageError("record failure", errors.Wrap(err, "duplicate lookup failed"))
		}
	}

	do := &FailureEventDO{
		Timestamp:      now,
		Project:        in.Project,
		JobName:        in.JobName,
		FailureType:    in.FailureType,
		Phase:          in.Phase,
		PodName:        in.PodName,
		NodeName:       in.NodeName,
		ContainerImage: in.ContainerImage,
		ErrorMessage:   clip(in.ErrorMessage),
		LogsSnippet:    clip(in.LogsSnippet),
		EventsSnippet:  clip(in.EventsSnippet),
		GpuCount:       in.GpuCount,
		MemoryRequest:  in.MemoryRequest,
		CpuRequest:     in.CpuRequest,
	}

	err := d.withRetry("record failure", func() error {
		return d.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(do).Error; err != nil {
				return err
			}
			for _, c := range []struct{ ctype, key string }{
				{core.CorrelationNode, in.NodeName},
				{core.CorrelationImage, in.ContainerImage},
				{core.CorrelationProject, in.Project},
			} {
				if c.key == "" {
					continue
				}
				if err := upsertCorrelation(tx, c.ctype, c.key, now); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return 0, false, engine.NewStorageError("record failure", err)
	}

	d.logger.Printf("recorded failure event #%d for job %s/%s (%s)", do.ID, in.Project, in.JobName, in.FailureType)
	return do.ID, false, nil
}

func upsertCorrelation(tx *gorm.DB, ctype, key string, now time.Time) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "correlation_type"}, {Name: "correlation_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"failure_count": gorm.Expr("failure_count + 1"),
			"last_seen":     now,
		}),
	}).Create(&FailureCorrelationDO{
		CorrelationType: ctype,
		CorrelationKey:  key,
		FailureCount:    1,
		FirstSeen:       now,
		LastSeen:        now,
	}).Error
}

func (d *daoImpl) MarkResolved(eventId uint, resolutionType string) error {
	now := time.Now()
	var affected int64
	err := d.withRetry("mark resolved", func() error {
		result := d.db.Model(&FailureEventDO{}).Where("id = ?", eventId).Updates(map[string]interface{}{
			"resolved":             true,
			"resolution_type":      resolutionType,
			"resolution_timestamp": now,
		})
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return engine.NewStorageError("mark resolved", err)
	}
	if affected == 0 {
		return engine.ErrEventNotFound
	}
	return nil
}

func (d *daoImpl) RecordSolutionOutcome(failureType, solution string, success bool) error {
	if failureType == "" {
		return engine.NewValidationError("failureType", "must not be empty")
	}
	if solution == "" {
		return engine.NewValidationError("solution", "must not be empty")
	}

	successInc := uint(0)
	failureInc := uint(0)
	if success {
		successInc = 1
	} else {
		failureInc = 1
	}

	now := time.Now()
	err := d.withRetry("record solution outcome", func() error {
		return d.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "failure_type"}, {Name: "solution"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"success_count": gorm.Expr("success_count + ?", successInc),
				"failure_count": gorm.Expr("failure_count + ?", failureInc),
				"last_used":     now,
			}),
		}).Create(&FailureSolutionDO{
			FailureType:  failureType,
			Solution:     solution,
			SuccessCount: successInc,
			FailureCount: failureInc,
			LastUsed:     now,
		}).Error
	})
	if err != nil {
		return engine.NewStorageError("record solution outcome", err)
	}
	return nil
}

func (d *daoImpl) PurgeEventsBefore(cutoff time.Time) (int64, error) {
	var affected int64
	err := d.withRetry("purge events", func() error {
		result := d.db.Where("timestamp < ?", cutoff).Delete(&FailureEventDO{})
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, engine.NewStorageError("purge events", err)
	}
	d.logger.Printf("purged %d failure events older than %s", affected, cutoff.Format(time.RFC3339))
	return affected, nil
}

func (d *daoImpl) RecentFailures(days int, project string, limit int) ([]*core.FailureEvent, bool, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	query := d.db.Where("timestamp >= ?", cutoff).Order("timestamp asc")
	if project != "" {
		query = query.Where("project = ?", project)
	}
	if limit > 0 {
		// One extra row tells truncation apart from an exact fit.
		query = query.Limit(limit + 1)
	}

	doarr := make([]*FailureEventDO, 0)
	err := query.Find(&doarr).Error
	if err != nil {
		return nil, false, engine.NewStorageError("query recent failures", err)
	}

	truncated := false
	if limit > 0 && len(doarr) > limit {
		doarr = doarr[:limit]
		truncated = true
	}

	result := make([]*core.FailureEvent, len(doarr))
	for i, do := range doarr {
		result[i] = toCoreEvent(do)
	}
	return result, truncated, nil
}

func (d *daoImpl) SolutionsFor(failureType string) ([]*core.FailureSolution, error) {
	doarr := make([]*FailureSolutionDO, 0)
	err := d.db.Where(&FailureSolutionDO{FailureType: failureType}).Find(&doarr).Error
	if err != nil {
		return nil, engine.NewStorageError("query solutions", err)
	}

	result := make([]*core.FailureSolution, len(doarr))
	for i, do := range doarr {
		result[i] = &core.FailureSolution{
			FailureType:  do.FailureType,
			Solution:     do.Solution,
			SuccessCount: do.SuccessCount,
			FailureCount: do.FailureCount,
			LastUsed:     do.LastUsed,
		}
	}
	return result, nil
}

func (d *daoImpl) Correlations(correlationType string) ([]*core.FailureCorrelation, error) {
	doarr := make([]*FailureCorrelationDO, 0)
	err := d.db.Where(&FailureCorrelationDO{CorrelationType: correlationType}).
		Order("failure_count desc").Find(&doarr).Error
	if err != nil {
		return nil, engine.NewStorageError("query correlations", err)
	}

	result := make([]*core.FailureCorrelation, len(doarr))
	for i, do := range doarr {
		result[i] = &core.FailureCorrelation{
			Type:         do.CorrelationType,
			Key:          do.CorrelationKey,
			FailureCount: do.FailureCount,
			FirstSeen:    do.FirstSeen,
			LastSeen:     do.LastSeen,
		}
	}
	return result, nil
}

func (d *daoImpl) DimensionCounts(days int) (*core.Counters, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	counters := &core.Counters{
		LookbackDays:  days,
		ByFailureType: map[string]int{},
		ByProject:     map[string]int{},
		ByNode:        map[string]int{},
		ByImage:       map[string]int{},
	}

	var total int64
	err := d.db.Model(&FailureEventDO{}).Where("timestamp >= ?", cutoff).Count(&total).Error
	if err != nil {
		return nil, engine.NewStorageError("count failures", err)
	}
	counters.TotalFailures = int(total)

	for _, g := range []struct {
		column string
		dest   map[string]int
	}{
		{"failure_type", counters.ByFailureType},
		{"project", counters.ByProject},
		{"node_name", counters.ByNode},
		{"container_image", counters.ByImage},
	} {
		rows := make([]*dimensionCount, 0)
		err := d.db.Model(&FailureEventDO{}).
			Select(g.column+" AS k, COUNT(*) AS cnt").
			Where("timestamp >= ?", cutoff).
			Where(g.column+" <> ''").
			Group(g.column).
			Scan(&rows).Error
		if err != nil {
			return nil, engine.NewStorageError("count failures by "+g.column, err)
		}
		for _, row := range rows {
			g.dest[row.K] = row.Cnt
		}
	}

	return counters, nil
}

type dimensionCount struct {
	K   string
	Cnt int
}

func (d *daoImpl) DB() *gorm.DB {
	return d.db
}

func toCoreEvent(do *FailureEventDO) *core.FailureEvent {
	return &core.FailureEvent{
		Id:                  do.ID,
		Timestamp:           do.Timestamp,
		Project:             do.Project,
		JobName:             do.JobName,
		FailureType:         do.FailureType,
		Phase:               do.Phase,
		PodName:             do.PodName,
		NodeName:            do.NodeName,
		ContainerImage:      do.ContainerImage,
		ErrorMessage:        do.ErrorMessage,
		LogsSnippet:         do.LogsSnippet,
		EventsSnippet:       do.EventsSnippet,
		GpuCount:            do.GpuCount,
		MemoryRequest:       do.MemoryRequest,
		CpuRequest:          do.CpuRequest,
		Resolved:            do.Resolved,
		ResolutionType:      do.ResolutionType,
		ResolutionTimestamp: do.ResolutionTimestamp,
	}
}

func clip(s string) string {
	if len(s) > maxSnippetLen {
		return s[:maxSnippetLen]
	}
	return s
}
