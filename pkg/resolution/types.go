package resolution

import (
	"strings"

	"github.com/oncp/resolution-mcp/pkg/domain/errors"
)

// Job lifecycle values reported by the resolution API. They are not enforced;
// any other string is passed through as-is.
const (
	StatusQueued    = "QUEUED"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusUnknown   = "UNKNOWN"
)

// ResolutionRequest describes an application issue to diagnose.
type ResolutionRequest struct {
	Hostname         string
	ErrorCode        string
	IssueDescription string
}

// Normalize returns a copy with surrounding whitespace removed.
func (r ResolutionRequest) Normalize() ResolutionRequest {
	return ResolutionRequest{
		Hostname:         strings.TrimSpace(r.Hostname),
		ErrorCode:        strings.TrimSpace(r.ErrorCode),
		IssueDescription: strings.TrimSpace(r.IssueDescription),
	}
}

// Validate reports the first blank field using its tool argument name.
func (r ResolutionRequest) Validate() error {
	if err := RequireNonEmpty("hostname", r.Hostname); err != nil {
		return err
	}
	if err := RequireNonEmpty("error_code", r.ErrorCode); err != nil {
		return err
	}
	return RequireNonEmpty("issue_description", r.IssueDescription)
}

// RequireNonEmpty fails when value is empty after trimming.
func RequireNonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.Validation(domain, field, "must be a non-empty string")
	}
	return nil
}

type launchRequest struct {
	Error    string `json:"error"`
	Hostname string `json:"hostname"`
	Message  string `json:"message"`
}

// JobHandle is returned when a resolution job is accepted.
type JobHandle struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatus is the current lifecycle state of a job.
type JobStatus struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobAnalysis holds the agent's reasoning for a job, usually Markdown.
type JobAnalysis struct {
	JobID    string `json:"job_id"`
	Thoughts string `json:"thoughts"`
}
