package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// WorkItem is one tool invocation submitted to a service queue.
type WorkItem struct {
	// JobID is a UUID that names the results channel
	JobID string `json:"job_id"`

	// Name is the tool to run
	Name string `json:"name"`

	// Arguments are the keyword arguments for the tool; may be empty
	Arguments map[string]any `json:"arguments,omitempty"`

	// TraceID is the distributed tracing trace ID for observability
	TraceID string `json:"trace_id,omitempty"`

	// SpanID is the distributed tracing span ID for observability
	SpanID string `json:"span_id,omitempty"`

	// SubmittedAt is the Unix timestamp in milliseconds when work was submitted
	SubmittedAt int64 `json:"submitted_at"`
}

// Result is the outcome of a WorkItem, published on ResultChannel(JobID).
//
// An unknown tool is a successful result whose Content holds the error
// payload; Error is reserved for invalid arguments and handler failures.
type Result struct {
	JobID string `json:"job_id"`

	// Content is the invocation envelope's content, JSON encoded
	Content json.RawMessage `json:"content,omitempty"`

	// Error is the error message if execution failed
	Error string `json:"error,omitempty"`

	// Code is the toolerr code accompanying Error
	Code string `json:"code,omitempty"`

	// WorkerID is the unique identifier of the worker that processed this item
	WorkerID string `json:"worker_id"`

	// StartedAt is the Unix timestamp in milliseconds when execution started
	StartedAt int64 `json:"started_at"`

	// CompletedAt is the Unix timestamp in milliseconds when execution completed
	CompletedAt int64 `json:"completed_at"`
}

// ToolMeta is the discovery record kept in the tool:<name>:meta hash.
type ToolMeta struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Service     string   `json:"service"`
	Version     string   `json:"version"`
	Schema      string   `json:"schema"`
	Tags        []string `json:"tags"`
}

// QueueName returns the work queue key for a service.
func QueueName(prefix, service string) string {
	return formatKeyName(prefix, service, "queue")
}

// ResultChannel returns the pub/sub channel results for jobID are published on.
func ResultChannel(jobID string) string {
	return formatKeyName("results", jobID)
}

// IsValid checks if the WorkItem has all required fields populated correctly.
func (w *WorkItem) IsValid() error {
	if w.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if w.SubmittedAt <= 0 {
		return fmt.Errorf("submitted_at must be positive, got %d", w.SubmittedAt)
	}
	return nil
}

// Age returns the duration since this work item was submitted.
func (w *WorkItem) Age() time.Duration {
	if w.SubmittedAt <= 0 {
		return 0
	}
	return time.Duration(time.Now().UnixMilli()-w.SubmittedAt) * time.Millisecond
}

// HasError returns true if the result represents a failed execution.
func (r *Result) HasError() bool {
	return r.Error != ""
}

// Duration returns the wall-clock time the worker spent processing this item.
func (r *Result) Duration() time.Duration {
	if r.StartedAt <= 0 || r.CompletedAt <= 0 {
		return 0
	}
	return time.Duration(r.CompletedAt-r.StartedAt) * time.Millisecond
}

// IsValid checks if the ToolMeta has all required fields populated correctly.
func (t *ToolMeta) IsValid() error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Description == "" {
		return fmt.Errorf("description is required")
	}
	if t.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	return nil
}

// HasTag checks if the tool has the specified tag.
func (t *ToolMeta) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}
