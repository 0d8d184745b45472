package types

import "net/http"

// Health states reported by the service and its optional backends.
const (
	// StatusHealthy means every dependency answered.
	StatusHealthy = "healthy"

	// StatusDegraded means the service can dispatch but an optional backend is impaired.
	StatusDegraded = "degraded"

	// StatusUnhealthy means the service cannot serve requests.
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the JSON body of GET /healthz and the value each
// dependency check reports.
type HealthStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy reports whether the status is StatusHealthy.
func (h HealthStatus) IsHealthy() bool {
	return h.Status == StatusHealthy
}

// IsDegraded reports whether the status is StatusDegraded.
func (h HealthStatus) IsDegraded() bool {
	return h.Status == StatusDegraded
}

// IsUnhealthy reports whether the status is StatusUnhealthy.
func (h HealthStatus) IsUnhealthy() bool {
	return h.Status == StatusUnhealthy
}

// HTTPCode maps the status to the response code used by health endpoints.
// A degraded service still answers 200 so load balancers keep routing to it.
func (h HealthStatus) HTTPCode() int {
	if h.IsUnhealthy() {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// WithDetail returns a copy of the status with key set in Details.
func (h HealthStatus) WithDetail(key string, value any) HealthStatus {
	details := make(map[string]any, len(h.Details)+1)
	for k, v := range h.Details {
		details[k] = v
	}
	details[key] = value
	h.Details = details
	return h
}

// NewHealthyStatus creates a healthy status.
func NewHealthyStatus(message string) HealthStatus {
	return HealthStatus{Status: StatusHealthy, Message: message}
}

// NewDegradedStatus creates a degraded status.
func NewDegradedStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: StatusDegraded, Message: message, Details: details}
}

// NewUnhealthyStatus creates an unhealthy status.
func NewUnhealthyStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: StatusUnhealthy, Message: message, Details: details}
}
