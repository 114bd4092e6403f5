// Package project holds the domain model for sandbox-backed projects.
package project

import "time"

// Status represents the lifecycle state of a project's sandbox.
type Status string

const (
	StatusCreating Status = "creating"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

// Project represents a user project hosted in a remote sandbox.
// AccountID is nullable: historical rows were created before ownership was
// recorded and are re-linked through the admin endpoint.
type Project struct {
	ID          string
	SandboxID   string
	AccountID   *int64
	Name        string
	ProjectPath string
	DevPort     int
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateRequest is the body for POST /v1/projects.
type CreateRequest struct {
	Name string `json:"name"`
}

// LinkRequest is the body for the admin ownership-fixup endpoint.
type LinkRequest struct {
	AccountID int64 `json:"account_id"`
}

// Response is the JSON shape returned for project endpoints.
type Response struct {
	ID          string `json:"id"`
	SandboxID   string `json:"sandbox_id"`
	Name        string `json:"name"`
	ProjectPath string `json:"project_path,omitempty"`
	DevPort     int    `json:"dev_port,omitempty"`
	Status      string `json:"status"`
}

// ToResponse converts a Project to its JSON shape.
func ToResponse(p *Project) *Response {
	return &Response{
		ID:          p.ID,
		SandboxID:   p.SandboxID,
		Name:        p.Name,
		ProjectPath: p.ProjectPath,
		DevPort:     p.DevPort,
		Status:      string(p.Status),
	}
}
