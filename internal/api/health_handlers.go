package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Component states, ordered from best to worst.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

var statusRank = map[string]int{statusHealthy: 0, statusDegraded: 1, statusUnhealthy: 2}

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports the state of the database, search index and event stream",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Time the probe took"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the worst component status plus the per-component detail.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components"`
}

type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	resp := HealthResponse{
		Status: statusHealthy,
		Components: map[string]ComponentHealth{
			"database": s.probeDatabase(ctx),
			"search":   s.probeSearch(),
			"sse":      s.probeEvents(),
		},
	}
	for _, c := range resp.Components {
		if statusRank[c.Status] > statusRank[resp.Status] {
			resp.Status = c.Status
		}
	}
	return &HealthOutput{Body: resp}, nil
}

// timed runs probe and reports it healthy with msg, or unhealthy with
// failMsg when it errors.
func timed(failMsg string, probe func() (string, error)) ComponentHealth {
	start := time.Now()
	msg, err := probe()
	h := ComponentHealth{Status: statusHealthy, Latency: time.Since(start).String(), Message: msg}
	if err != nil {
		h.Status, h.Message = statusUnhealthy, failMsg
	}
	return h
}

func (s *Server) probeDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: statusDegraded, Message: "database not configured"}
	}
	return timed("database read failed", func() (string, error) {
		users, err := s.store.CountUsers(ctx)
		return fmt.Sprintf("%d members", users), err
	})
}

func (s *Server) probeSearch() ComponentHealth {
	if s.services == nil || s.services.Search == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search index not configured"}
	}
	return timed("search index unreachable", func() (string, error) {
		docs, err := s.services.Search.DocumentCount()
		return fmt.Sprintf("%d books indexed", docs), err
	})
}

func (s *Server) probeEvents() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: statusDegraded, Message: "event stream not configured"}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Message: fmt.Sprintf("%d open streams", s.sseManager.ClientCount()),
	}
}
