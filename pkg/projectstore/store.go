// Package projectstore persists projects and their transcripts in PostgreSQL.
package projectstore

import (
	"context"
	"errors"

	"github.com/hatchlabs/devbox-middleware/pkg/project"
)

var (
	// ErrProjectNotFound is returned when a lookup finds no matching record.
	ErrProjectNotFound = errors.New("project not found")
	// ErrDuplicateLink is returned when linking would create a second project
	// row for the same (sandbox, account) pair.
	ErrDuplicateLink = errors.New("project already linked for this sandbox and account")
	// ErrDevPortTaken is returned when an insert loses the race for a dev
	// port; the caller re-allocates and retries.
	ErrDevPortTaken = errors.New("dev port already taken")
)

// Store defines the interface for project persistence.
type Store interface {
	Create(ctx context.Context, p *project.Project) error
	Get(ctx context.Context, id string) (*project.Project, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*project.Project, error)
	Delete(ctx context.Context, id string) error

	UpdateStatus(ctx context.Context, id string, status project.Status) error
	SetProjectPath(ctx context.Context, id, path string) error
	SetDevPort(ctx context.Context, id string, port int) error
	// LinkAccount sets account_id on a previously unowned row.
	LinkAccount(ctx context.Context, id string, accountID int64) error

	// UsedDevPorts returns all allocated dev ports, for lowest-free allocation.
	UsedDevPorts(ctx context.Context) ([]int, error)

	// AppendMessage allocates the next sequence number and inserts the
	// message in one transaction.
	AppendMessage(ctx context.Context, projectID, role, content string) (*project.Message, error)
	ListMessages(ctx context.Context, projectID string) ([]*project.Message, error)
}
