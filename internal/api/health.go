package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// EndpointState classifies a probed endpoint
type EndpointState string

const (
	StateOK        EndpointState = "ok"
	StateProtected EndpointState = "protected"
	StateFailed    EndpointState = "failed"
)

// Endpoint is one route probed by CheckHealth
type Endpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Name   string `json:"name"`
}

// EndpointStatus is the outcome of probing an Endpoint
type EndpointStatus struct {
	Endpoint
	State      EndpointState `json:"state"`
	StatusCode int           `json:"status_code,omitempty"`
	Detail     string        `json:"detail"`
}

// LaunchEndpoints are the routes that must answer before going live
var LaunchEndpoints = []Endpoint{
	{http.MethodGet, "/health", "Core Health"},
	{http.MethodGet, "/api/v1/system/status", "System Status"},
	{http.MethodPost, "/api/v1/users/login", "Login Endpoint"},
	{http.MethodGet, "/api/v1/users/me", "Current User"},
	{http.MethodGet, "/api/v1/printers", "List Printers"},
	{http.MethodGet, "/api/v1/printers/types", "Printer Types"},
	{http.MethodGet, "/api/v1/business/clients", "Clients"},
	{http.MethodGet, "/api/v1/business/orders", "Orders"},
	{http.MethodGet, "/api/v1/business/quotes/pricing-config", "Pricing Config"},
	{http.MethodGet, "/api/v1/scheduling/queue", "Job Queue"},
	{http.MethodGet, "/api/v1/production/history", "Print History"},
	{http.MethodGet, "/api/v1/materials/spools", "Material Inventory"},
	{http.MethodGet, "/api/v1/materials/profiles", "Material Profiles"},
	{http.MethodGet, "/api/v1/config", "App Config"},
	{http.MethodGet, "/api/v1/analytics/energy", "Energy Stats"},
	{http.MethodGet, "/api/v1/cost/summary", "Cost Summary"},
	{http.MethodGet, "/api/v1/reports/types", "Report Types"},
	{http.MethodGet, "/api/v1/maintenance", "Maintenance Schedule"},
	{http.MethodGet, "/api/v1/chat/history?channel=general&limit=1", "Chat History"},
}

// CheckHealth probes every launch endpoint in order. 2xx is ok, 401 and 403
// count as protected, anything else fails.
func (c *Client) CheckHealth(ctx context.Context) []EndpointStatus {
	return c.Probe(ctx, LaunchEndpoints)
}

// Probe checks an arbitrary endpoint list
func (c *Client) Probe(ctx context.Context, endpoints []Endpoint) []EndpointStatus {
	out := make([]EndpointStatus, 0, len(endpoints))
	for _, ep := range endpoints {
		status := c.probe(ctx, ep)
		c.logger.Debug("probed endpoint",
			zap.String("path", ep.Path),
			zap.String("state", string(status.State)),
			zap.Int("status", status.StatusCode))
		out = append(out, status)
	}
	return out
}

func (c *Client) probe(ctx context.Context, ep Endpoint) EndpointStatus {
	status := EndpointStatus{Endpoint: ep, State: StateFailed}
	if c.baseURL == "" {
		status.Detail = ErrNotConfigured.Error()
		return status
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, c.baseURL+ep.Path, nil)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		status.Detail = fmt.Sprintf("connection failed: %v", err)
		return status
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	status.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		status.State = StateOK
		status.Detail = fmt.Sprintf("OK (%d)", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		status.State = StateProtected
		status.Detail = fmt.Sprintf("Protected (%d)", resp.StatusCode)
	default:
		status.Detail = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return status
}

// HealthSummary counts probe outcomes
type HealthSummary struct {
	Passed    int `json:"passed"`
	Protected int `json:"protected"`
	Failed    int `json:"failed"`
}

// Summarize counts the states of statuses
func Summarize(statuses []EndpointStatus) HealthSummary {
	var s HealthSummary
	for _, st := range statuses {
		switch st.State {
		case StateOK:
			s.Passed++
		case StateProtected:
			s.Protected++
		default:
			s.Failed++
		}
	}
	return s
}

// Ready reports whether no endpoint failed
func (s HealthSummary) Ready() bool {
	return s.Failed == 0
}
