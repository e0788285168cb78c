package store

import (
	"time"
)

// FailureEventDO is the append-only event log row. There is deliberately no
// soft-delete column: events are purged only by the explicit retention
// operation, with a hard delete.
type FailureEventDO struct {
	ID             uint      `gorm:"primarykey"`
	Timestamp      time.Time `gorm:"index;not null"`
	Project        string    `gorm:"index;type:VARCHAR(256);not null"`
	JobName        string    `gorm:"type:VARCHAR(256);not null"`
	FailureType    string    `gorm:"index;type:VARCHAR(128);not null"`
	Phase          string    `gorm:"type:VARCHAR(64)"`
	PodName        string    `gorm:"type:VARCHAR(256)"`
	NodeName       string    `gorm:"index;type:VARCHAR(256)"`
	ContainerImage string    `gorm:"type:VARCHAR(512)"`
	ErrorMessage   string    `gorm:"type:TEXT"`
	LogsSnippet    string    `gorm:"type:TEXT"`
	EventsSnippet  string    `gorm:"type:TEXT"`
	GpuCount       int
	MemoryRequest  string `gorm:"type:VARCHAR(64)"`
	CpuRequest     string `gorm:"type:VARCHAR(64)"`

	Resolved            bool `gorm:"not null;default:false"`
	ResolutionType      string
	ResolutionTimestamp *time.Time
}

// FailureSolutionDO holds one (failure type, solution) pair of the knowledge
// graph. The success rate is never stored; it is recomputed from the two
// counters on every read so the derived value cannot drift.
type FailureSolutionDO struct {
	ID           uint   `gorm:"primarykey"`
	FailureType  string `gorm:"uniqueIndex:solution;type:VARCHAR(128);not null"`
	Solution     string `gorm:"uniqueIndex:solution;type:VARCHAR(512);not null"`
	SuccessCount uint   `gorm:"not null;default:0"`
	FailureCount uint   `gorm:"not null;default:0"`
	LastUsed     time.Time
	CreatedAt    time.Time
}

// FailureCorrelationDO is the incrementally maintained per-dimension
// aggregate. It is a cache over the event log, never source of truth.
type FailureCorrelationDO struct {
	ID              uint   `gorm:"primarykey"`
	CorrelationType string `gorm:"uniqueIndex:correlation;type:VARCHAR(32);not null"`
	CorrelationKey  string `gorm:"uniqueIndex:correlation;type:VARCHAR(512);not null"`
	FailureCount    uint   `gorm:"not null;default:0"`
	FirstSeen       time.Time
	LastSeen        time.Time
}
