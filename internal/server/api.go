package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/packagewjx/failure-insight/pkg/core"
	api "github.com/packagewjx/failure-insight/pkg/engine"
)

var resolutionPattern = regexp.MustCompile(`^/api/v1/failures/(\d+)/resolution$`)

func (s *serverImpl) buildServer() *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/failures", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		input := &core.FailureEventInput{}
		if err := json.NewDecoder(request.Body).Decode(input); err != nil {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		receipt, err := s.api.RecordFailure(input)
		if err != nil {
			s.writeError(writer, err)
			return
		}
		s.writeJSON(writer, receipt)
	})

	mux.HandleFunc("/api/v1/failures/", func(writer http.ResponseWriter, request *http.Request) {
		subMatch := resolutionPattern.FindStringSubmatch(request.URL.Path)
		if subMatch == nil {
			http.NotFound(writer, request)
			return
		}
		if request.Method != http.MethodPost {
			http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id, err := strconv.ParseUint(subMatch[1], 10, 64)
		if err != nil {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		input := &core.ResolutionInput{}
		if err := json.NewDecoder(request.Body).Decode(input); err != nil {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.api.Resolve(uint(id), input.ResolutionType); err != nil {
			s.writeError(writer, err)
			return
		}
		s.writeJSON(writer, map[string]string{"status": "resolved"})
	})

	mux.HandleFunc("/api/v1/outcomes", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		input := &core.SolutionOutcomeInput{}
		if err := json.NewDecoder(request.Body).Decode(input); err != nil {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.api.RecordSolutionOutcome(input.FailureType, input.Solution, input.Success); err != nil {
			s.writeError(writer, err)
			return
		}
		s.writeJSON(writer, map[string]string{"status": "recorded"})
	})

	mux.HandleFunc("/api/v1/analysis", func(writer http.ResponseWriter, request *http.Request) {
		days, err := s.daysParam(request)
		if err != nil {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		report, err := s.api.Analyze(request.URL.Query().Get("project"), days)
		if err != nil {
			s.writeError(writer, err)
			return
		}
		s.writeJSON(writer, report)
	})

	mux.HandleFunc("/api/v1/stats", func(writer http.ResponseWriter, request *http.Request) {
		days, err := s.daysParam(request)
		if err != nil {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		counters, err := s.api.Stats(days)
		if err != nil {
			s.writeError(writer, err)
			return
		}
		s.writeJSON(writer, counters)
	})

	mux.HandleFunc("/api/v1/remediations", func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		suggestions, err := s.api.Remediate(query.Get("failureType"), query.Get("jobName"), query.Get("project"))
		if err != nil {
			s.writeError(writer, err)
			return
		}
		s.writeJSON(writer, suggestions)
	})

	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte("OK"))
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: mux,
	}
}

// daysParam reads the days query parameter, defaulting to the configured
// lookback window when absent.
func (s *serverImpl) daysParam(request *http.Request) (int, error) {
	raw := request.URL.Query().Get("days")
	if raw == "" {
		return s.config.Engine.LookbackDays, nil
	}
	return strconv.Atoi(raw)
}

func (s *serverImpl) writeJSON(writer http.ResponseWriter, body interface{}) {
	marshal, err := json.Marshal(body)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	if _, err := writer.Write(marshal); err != nil {
		s.logger.Printf("writing response failed: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses: ValidationError is
// the caller's fault, everything else is operational.
func (s *serverImpl) writeError(writer http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if api.IsValidationError(err) {
		status = http.StatusBadRequest
	} else if err == api.ErrEventNotFound {
		status = http.StatusNotFound
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(map[string]string{"error": err.Error()})
}
