// Package client is an HTTP implementation of the engine API, for
// collaborators running outside the engine process (the cluster monitor
// sidecar, chat tools, scheduled reports).
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/packagewjx/failure-insight/pkg/core"
	"github.com/packagewjx/failure-insight/pkg/engine"
	"github.com/pkg/errors"
)

const defaultApiHostBaseUrl = "http://failure-insight.failure-insight:2100"

// NewApiClient builds a client against baseUrl; an empty baseUrl targets the
// in-cluster service address.
func NewApiClient(baseUrl string) engine.API {
	if baseUrl == "" {
		baseUrl = defaultApiHostBaseUrl
	}
	return &apiClient{baseUrl: baseUrl}
}

var _ engine.API = &apiClient{}

type apiClient struct {
	baseUrl string
}

func (a *apiClient) RecordFailure(in *core.FailureEventInput) (*core.RecordReceipt, error) {
	receipt := &core.RecordReceipt{}
	err := a.post("/api/v1/failures", in, receipt)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (a *apiClient) Analyze(project string, lookbackDays int) (*core.Report, error) {
	query := url.Values{}
	query.Set("days", fmt.Sprintf("%d", lookbackDays))
	if project != "" {
		query.Set("project", project)
	}

	report := &core.Report{}
	err := a.get("/api/v1/analysis?"+query.Encode(), report)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (a *apiClient) Stats(lookbackDays int) (*core.Counters, error) {
	counters := &core.Counters{}
	err := a.get(fmt.Sprintf("/api/v1/stats?days=%d", lookbackDays), counters)
	if err != nil {
		return nil, err
	}
	return counters, nil
}

func (a *apiClient) Remediate(failureType, jobName, project string) (*core.Suggestions, error) {
	query := url.Values{}
	query.Set("failureType", failureType)
	if jobName != "" {
		query.Set("jobName", jobName)
	}
	if project != "" {
		query.Set("project", project)
	}

	suggestions := &core.Suggestions{}
	err := a.get("/api/v1/remediations?"+query.Encode(), suggestions)
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (a *apiClient) RecordSolutionOutcome(failureType, solution string, success bool) error {
	return a.post("/api/v1/outcomes", &core.SolutionOutcomeInput{
		FailureType: failureType,
		Solution:    solution,
		Success:     success,
	}, nil)
}

func (a *apiClient) Resolve(eventId uint, resolutionType string) error {
	return a.post(fmt.Sprintf("/api/v1/failures/%d/resolution", eventId),
		&core.ResolutionInput{ResolutionType: resolutionType}, nil)
}

func (a *apiClient) get(path string, dest interface{}) error {
	response, err := http.Get(a.baseUrl + path)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	return a.decode(response, dest)
}

func (a *apiClient) post(path string, body interface{}, dest interface{}) error {
	marshal, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "cannot encode request body")
	}

	response, err := http.Post(a.baseUrl+path, "application/json", bytes.NewReader(marshal))
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	return a.decode(response, dest)
}

func (a *apiClient) decode(response *http.Response, dest interface{}) error {
	defer func() { _ = response.Body.Close() }()

	body, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return errors.Wrap(err, "reading response failed")
	}

	if response.StatusCode != http.StatusOK {
		var remote struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &remote); err == nil && remote.Error != "" {
			if response.StatusCode == http.StatusBadRequest {
				return engine.NewValidationError("request", remote.Error)
			}
			return engine.NewStorageError("remote call", errors.New(remote.Error))
		}
		return engine.NewStorageError("remote call",
			errors.Errorf("unexpected status %d: %s", response.StatusCode, string(body)))
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return errors.Wrap(err, fmt.Sprintf("cannot parse response, body:\n%s", string(body)))
	}
	return nil
}
