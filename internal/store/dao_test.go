package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/packagewjx/failure-insight/pkg/core"
	"github.com/packagewjx/failure-insight/pkg/engine"
	"github.com/stretchr/testify/assert"
)

func newTestDao(t *testing.T, dedupWindow time.Duration) (Dao, string) {
	path := filepath.Join(t.TempDir(), "history.db")
	dao, err := NewDao(path, dedupWindow)
	if !assert.NoError(t, err) {
		assert.FailNow(t, "cannot open test store")
	}
	return dao, path
}

func testInput(job string) *core.FailureEventInput {
	return &core.FailureEventInput{
		Project:        "ml-team",
		JobName:        job,
		FailureType:    "OOMKilled",
		Phase:          "Failed",
		NodeName:       "gpu-node-03",
		ContainerImage: "pytorch:2.1",
		ErrorMessage:   "container killed by OOM killer",
		GpuCount:       2,
		MemoryRequest:  "8Gi",
	}
}

func TestNewDaoIdempotent(t *testing.T) {
	dao, path := newTestDao(t, 0)

	_, _, err := dao.RecordFailure(testInput("train-1"))
	assert.NoError(t, err)

	// Reopening against the same file must not alter existing rows.
	reopened, err := NewDao(path, 0)
	assert.NoError(t, err)

	events, truncated, err := reopened.RecentFailures(1, "", 0)
	assert.NoError(t, err)
	assert.False(t, truncated)
	assert.Len(t, events, 1)
	assert.Equal(t, "train-1", events[0].JobName)
	assert.Equal(t, "container killed by OOM killer", events[0].ErrorMessage)
}

func TestRecordFailureValidation(t *testing.T) {
	dao, _ := newTestDao(t, 0)

	for _, in := range []*core.FailureEventInput{
		{JobName: "j", FailureType: "OOMKilled"},
		{Project: "p", FailureType: "OOMKilled"},
		{Project: "p", JobName: "j"},
	} {
		_, _, err := dao.RecordFailure(in)
		assert.True(t, engine.IsValidationError(err), "expected validation error for %+v", in)
	}

	events, _, err := dao.RecentFailures(1, "", 0)
	assert.NoError(t, err)
	assert.Len(t, events, 0)
}

func TestRecentFailuresWindowAndOrder(t *testing.T) {
	dao, _ := newTestDao(t, 0)
	impl := dao.(*daoImpl)

	now := time.Now()
	for i, age := range []time.Duration{72 * time.Hour, 2 * time.Hour, 30 * time.Minute, 10 * 24 * time.Hour} {
		impl.db.Create(&FailureEventDO{
			Timestamp:   now.Add(-age),
			Project:     "ml-team",
			JobName:     fmt.Sprintf("job-%d", i),
			FailureType: "Error",
		})
	}
	impl.db.Create(&FailureEventDO{
		Timestamp:   now.Add(-time.Hour),
		Project:     "nlp-team",
		JobName:     "other",
		FailureType: "Error",
	})

	events, truncated, err := dao.RecentFailures(7, "", 0)
	assert.NoError(t, err)
	assert.False(t, truncated)
	assert.Len(t, events, 4)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Timestamp.Before(events[i-1].Timestamp), "events must be timestamp ascending")
	}

	filtered, _, err := dao.RecentFailures(7, "nlp-team", 0)
	assert.NoError(t, err)
	assert.Len(t, filtered, 1)
	assert.Equal(t, "other", filtered[0].JobName)
}

func TestRecentFailuresTruncated(t *testing.T) {
	dao, _ := newTestDao(t, 0)

	for i := 0; i < 5; i++ {
		_, _, err := dao.RecordFailure(testInput(fmt.Sprintf("job-%d", i)))
		assert.NoError(t, err)
	}

	events, truncated, err := dao.RecentFailures(1, "", 3)
	assert.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, events, 3)

	events, truncated, err = dao.RecentFailures(1, "", 5)
	assert.NoError(t, err)
	assert.False(t, truncated)
	assert.Len(t, events, 5)
}

func TestRecordFailureDedup(t *testing.T) {
	dao, _ := newTestDao(t, time.Hour)

	id, duplicate, err := dao.RecordFailure(testInput("train-1"))
	assert.NoError(t, err)
	assert.False(t, duplicate)

	dupId, duplicate, err := dao.RecordFailure(testInput("train-1"))
	assert.NoError(t, err)
	assert.True(t, duplicate)
	assert.Equal(t, id, dupId)

	other := testInput("train-1")
	other.Phase = "Pending"
	_, duplicate, err = dao.RecordFailure(other)
	assert.NoError(t, err)
	assert.False(t, duplicate)

	events, _, err := dao.RecentFailures(1, "", 0)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestMarkResolved(t *testing.T) {
	dao, _ := newTestDao(t, 0)

	id, _, err := dao.RecordFailure(testInput("train-1"))
	assert.NoError(t, err)

	err = dao.MarkResolved(id, "memory increased")
	assert.NoError(t, err)

	events, _, err := dao.RecentFailures(1, "", 0)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.True(t, events[0].Resolved)
	assert.Equal(t, "memory increased", events[0].ResolutionType)
	assert.NotNil(t, events[0].ResolutionTimestamp)
	// Everything else stays as written.
	assert.Equal(t, "train-1", events[0].JobName)
	assert.Equal(t, "gpu-node-03", events[0].NodeName)

	err = dao.MarkResolved(99999, "whatever")
	assert.Equal(t, engine.ErrEventNotFound, err)
}

func TestRecordSolutionOutcome(t *testing.T) {
	dao, _ := newTestDao(t, 0)

	for i := 0; i < 6; i++ {
		assert.NoError(t, dao.RecordSolutionOutcome("OOMKilled", "Increase memory to 16Gi", true))
	}
	assert.NoError(t, dao.RecordSolutionOutcome("OOMKilled", "Increase memory to 16Gi", false))
	assert.NoError(t, dao.RecordSolutionOutcome("OOMKilled", "Reduce batch size", true))

	solutions, err := dao.SolutionsFor("OOMKilled")
	assert.NoError(t, err)
	assert.Len(t, solutions, 2)

	byText := map[string]*core.FailureSolution{}
	for _, s := range solutions {
		byText[s.Solution] = s
	}

	increase := byText["Increase memory to 16Gi"]
	assert.Equal(t, uint(6), increase.SuccessCount)
	assert.Equal(t, uint(1), increase.FailureCount)
	rate, ok := increase.SuccessRate()
	assert.True(t, ok)
	assert.InDelta(t, 6.0/7.0, rate, 1e-9)
	assert.False(t, increase.LastUsed.IsZero())

	other, err := dao.SolutionsFor("ImagePullBackOff")
	assert.NoError(t, err)
	assert.Len(t, other, 0)
}

func TestCorrelationsMaintainedOnWrite(t *testing.T) {
	dao, _ := newTestDao(t, 0)

	for i := 0; i < 3; i++ {
		_, _, err := dao.RecordFailure(testInput(fmt.Sprintf("job-%d", i)))
		assert.NoError(t, err)
	}
	noNode := testInput("job-x")
	noNode.NodeName = ""
	_, _, err := dao.RecordFailure(noNode)
	assert.NoError(t, err)

	nodes, err := dao.Correlations(core.CorrelationNode)
	assert.NoError(t, err)
	assert.Len(t, nodes, 1)
	assert.Equal(t, "gpu-node-03", nodes[0].Key)
	assert.Equal(t, uint(3), nodes[0].FailureCount)
	assert.False(t, nodes[0].LastSeen.Before(nodes[0].FirstSeen))

	projects, err := dao.Correlations(core.CorrelationProject)
	assert.NoError(t, err)
	assert.Len(t, projects, 1)
	assert.Equal(t, uint(4), projects[0].FailureCount)
}

func TestDimensionCounts(t *testing.T) {
	dao, _ := newTestDao(t, 0)

	counters, err := dao.DimensionCounts(30)
	assert.NoError(t, err)
	assert.Equal(t, 0, counters.TotalFailures)
	assert.Len(t, counters.ByFailureType, 0)
	assert.Len(t, counters.ByProject, 0)

	for i := 0; i < 3; i++ {
		_, _, err := dao.RecordFailure(testInput(fmt.Sprintf("job-%d", i)))
		assert.NoError(t, err)
	}
	pull := testInput("job-pull")
	pull.FailureType = "ImagePullBackOff"
	pull.NodeName = ""
	_, _, err = dao.RecordFailure(pull)
	assert.NoError(t, err)

	counters, err = dao.DimensionCounts(30)
	assert.NoError(t, err)
	assert.Equal(t, 4, counters.TotalFailures)
	assert.Equal(t, 3, counters.ByFailureType["OOMKilled"])
	assert.Equal(t, 1, counters.ByFailureType["ImagePullBackOff"])
	assert.Equal(t, 4, counters.ByProject["ml-team"])
	assert.Equal(t, 3, counters.ByNode["gpu-node-03"])
	assert.Equal(t, 4, counters.ByImage["pytorch:2.1"])
}

func TestPurgeEventsBefore(t *testing.T) {
	dao, _ := newTestDao(t, 0)
	impl := dao.(*daoImpl)

	now := time.Now()
	for i, age := range []time.Duration{100 * 24 * time.Hour, 95 * 24 * time.Hour, time.Hour} {
		impl.db.Create(&FailureEventDO{
			Timestamp:   now.Add(-age),
			Project:     "ml-team",
			JobName:     fmt.Sprintf("job-%d", i),
			FailureType: "Error",
		})
	}

	purged, err := dao.PurgeEventsBefore(now.Add(-90 * 24 * time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	events, _, err := dao.RecentFailures(365, "", 0)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestConcurrentWriters(t *testing.T) {
	dao, path := newTestDao(t, 0)

	// A second handle on the same file stands in for an independent writer
	// process sharing the store.
	second, err := NewDao(path, 0)
	assert.NoError(t, err)

	const perWriter = 50
	var wg sync.WaitGroup
	write := func(d Dao, prefix string) {
		defer wg.Done()
		for i := 0; i < perWriter; i++ {
			_, _, err := d.RecordFailure(testInput(fmt.Sprintf("%s-%d", prefix, i)))
			assert.NoError(t, err)
		}
	}

	wg.Add(2)
	go write(dao, "writer-a")
	go write(second, "writer-b")
	wg.Wait()

	events, truncated, err := dao.RecentFailures(1, "", 0)
	assert.NoError(t, err)
	assert.False(t, truncated)
	assert.Len(t, events, 2*perWriter)

	seen := map[string]bool{}
	for _, e := range events {
		assert.Equal(t, "ml-team", e.Project)
		assert.Equal(t, "OOMKilled", e.FailureType)
		assert.False(t, seen[e.JobName], "job %s recorded twice", e.JobName)
		seen[e.JobName] = true
	}
}
