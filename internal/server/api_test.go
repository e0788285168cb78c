package server

import (
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/packagewjx/failure-insight/internal/engine"
	"github.com/packagewjx/failure-insight/pkg/client"
	"github.com/packagewjx/failure-insight/pkg/core"
	api "github.com/packagewjx/failure-insight/pkg/engine"
	"github.com/stretchr/testify/assert"
)

func newTestServer(t *testing.T) *httptest.Server {
	engineConfig := &engine.EngineConfig{
		DBPath: filepath.Join(t.TempDir(), "history.db"),
	}
	eng, err := engine.New(engineConfig)
	if !assert.NoError(t, err) {
		assert.FailNow(t, "cannot build engine")
	}

	impl := &serverImpl{
		config: &ServerConfig{Port: DefaultPort, Engine: engineConfig},
		api:    eng,
		logger: log.New(ioutil.Discard, "", 0),
	}
	ts := httptest.NewServer(impl.buildServer().Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestNewServerRejectsLowPort(t *testing.T) {
	_, err := NewServer(&ServerConfig{Port: 80})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	response, err := http.Get(ts.URL + "/healthz")
	assert.NoError(t, err)
	defer func() { _ = response.Body.Close() }()
	assert.Equal(t, http.StatusOK, response.StatusCode)
}

func TestRoundTripThroughClient(t *testing.T) {
	ts := newTestServer(t)
	c := client.NewApiClient(ts.URL)

	var firstId uint
	for i := 0; i < 5; i++ {
		receipt, err := c.RecordFailure(&core.FailureEventInput{
			Project:        "ml-team",
			JobName:        fmt.Sprintf("train-%d", i),
			FailureType:    "OOMKilled",
			NodeName:       "gpu-node-03",
			ContainerImage: "pytorch:2.1",
		})
		assert.NoError(t, err)
		assert.False(t, receipt.Duplicate)
		if i == 0 {
			firstId = receipt.EventId
		}
	}

	report, err := c.Analyze("ml-team", 7)
	assert.NoError(t, err)
	assert.Equal(t, 5, report.Summary.TotalFailures)
	assert.Len(t, report.Patterns, 1)
	assert.Len(t, report.HotNodes, 1)

	counters, err := c.Stats(7)
	assert.NoError(t, err)
	assert.Equal(t, 5, counters.TotalFailures)
	assert.Equal(t, 5, counters.ByFailureType["OOMKilled"])

	assert.NoError(t, c.RecordSolutionOutcome("OOMKilled", "Increase memory", true))
	assert.NoError(t, c.RecordSolutionOutcome("OOMKilled", "Increase memory", true))

	suggestions, err := c.Remediate("OOMKilled", "train-0", "ml-team")
	assert.NoError(t, err)
	assert.False(t, suggestions.NoKnownSolutions)
	assert.Len(t, suggestions.Historical, 1)
	assert.InDelta(t, 1.0, suggestions.Historical[0].SuccessRate, 1e-9)

	assert.NoError(t, c.Resolve(firstId, "manual"))
}

func TestValidationErrorsMapToBadRequest(t *testing.T) {
	ts := newTestServer(t)
	c := client.NewApiClient(ts.URL)

	_, err := c.RecordFailure(&core.FailureEventInput{JobName: "j"})
	assert.True(t, api.IsValidationError(err))

	_, err = c.Analyze("", -1)
	assert.True(t, api.IsValidationError(err))

	_, err = c.Remediate("", "", "")
	assert.True(t, api.IsValidationError(err))
}

func TestResolveUnknownEventIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	c := client.NewApiClient(ts.URL)

	err := c.Resolve(12345, "manual")
	assert.True(t, api.IsStorageError(err))
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	response, err := http.Get(ts.URL + "/api/v1/failures")
	assert.NoError(t, err)
	defer func() { _ = response.Body.Close() }()
	assert.Equal(t, http.StatusMethodNotAllowed, response.StatusCode)
}

func TestUnknownFailureSubpathIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	response, err := http.Post(ts.URL+"/api/v1/failures/abc/resolution", "application/json", nil)
	assert.NoError(t, err)
	defer func() { _ = response.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}
