// Package service implements the project business logic and HTTP surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/hatchlabs/devbox-middleware/pkg/app/errors"
	"github.com/hatchlabs/devbox-middleware/pkg/config"
	"github.com/hatchlabs/devbox-middleware/pkg/project"
	"github.com/hatchlabs/devbox-middleware/pkg/projectstore"
	"github.com/hatchlabs/devbox-middleware/pkg/sandbox"
)

const maxProjectNameLen = 100

// Store is the narrow data-access interface for the project service.
type Store interface {
	Create(ctx context.Context, p *project.Project) error
	Get(ctx context.Context, id string) (*project.Project, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*project.Project, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status project.Status) error
	SetProjectPath(ctx context.Context, id, path string) error
	LinkAccount(ctx context.Context, id string, accountID int64) error
	UsedDevPorts(ctx context.Context) ([]int, error)
	AppendMessage(ctx context.Context, projectID, role, content string) (*project.Message, error)
	ListMessages(ctx context.Context, projectID string) ([]*project.Message, error)
}

// Sandboxes is the slice of the sandbox client the project service uses.
type Sandboxes interface {
	Create(ctx context.Context, req sandbox.CreateRequest) (*sandbox.Sandbox, error)
	Start(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Exec(ctx context.Context, id string, req sandbox.ExecRequest) (*sandbox.ExecResult, error)
	FindProjectPath(ctx context.Context, sandboxID string) (string, error)
	FileTree(ctx context.Context, sandboxID, root string) ([]sandbox.TreeEntry, error)
	DiscoverRoutes(ctx context.Context, sandboxID, projectPath string) ([]string, error)
}

// ExecResponse is the JSON shape for command execution results.
type ExecResponse struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// ExecRequest is the body for POST /v1/projects/{id}/exec.
type ExecRequest struct {
	Command string `json:"command"`
	Cwd     string `json:"cwd,omitempty"`
}

// TreeResponse is the JSON shape for file tree listings.
type TreeResponse struct {
	ProjectPath string              `json:"project_path"`
	Entries     []sandbox.TreeEntry `json:"entries"`
}

// Service defines the project business logic.
type Service interface {
	Create(ctx context.Context, accountID int64, req *project.CreateRequest) (*project.Response, error)
	List(ctx context.Context, accountID int64) ([]*project.Response, error)
	Get(ctx context.Context, accountID int64, id string) (*project.Response, error)
	Delete(ctx context.Context, accountID int64, id string) error
	// Link assigns an unowned project to an account (admin fixup).
	Link(ctx context.Context, id string, accountID int64) error

	AppendMessage(ctx context.Context, accountID int64, projectID string, req *project.AppendMessageRequest) (*project.MessageResponse, error)
	ListMessages(ctx context.Context, accountID int64, projectID string) ([]*project.MessageResponse, error)

	Exec(ctx context.Context, accountID int64, projectID string, req *ExecRequest) (*ExecResponse, error)
	Tree(ctx context.Context, accountID int64, projectID string) (*TreeResponse, error)
	Routes(ctx context.Context, accountID int64, projectID string) ([]string, error)
}

type projectService struct {
	store     Store
	sandboxes Sandboxes
	cfg       *config.SandboxConfig
	logger    *zap.Logger
}

// NewService creates a new project service.
func NewService(store Store, sandboxes Sandboxes, cfg *config.SandboxConfig, logger *zap.Logger) Service {
	return &projectService{
		store:     store,
		sandboxes: sandboxes,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *projectService) Create(ctx context.Context, accountID int64, req *project.CreateRequest) (*project.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.BadRequestError(nil, "project name is required")
	}
	if len(name) > maxProjectNameLen {
		return nil, apperrors.BadRequestError(nil, "project name too long")
	}

	port, err := s.allocateDevPort(ctx)
	if err != nil {
		return nil, err
	}

	sb, err := s.sandboxes.Create(ctx, sandbox.CreateRequest{
		Name:  name,
		Image: s.cfg.Image,
	})
	if err != nil {
		return nil, mapSandboxError(err, "failed to provision sandbox")
	}

	p := &project.Project{
		ID:        uuid.NewString(),
		SandboxID: sb.ID,
		AccountID: &accountID,
		Name:      name,
		DevPort:   port,
		Status:    project.StatusCreating,
	}
	if err := s.createWithFreePort(ctx, p); err != nil {
		// Orphaned sandboxes cost money, clean up on insert failure.
		if delErr := s.sandboxes.Delete(ctx, sb.ID); delErr != nil {
			s.logger.Warn("Failed to delete sandbox after store error",
				zap.String("sandbox_id", sb.ID),
				zap.Error(delErr))
		}
		return nil, err
	}

	if err := s.sandboxes.Start(ctx, sb.ID); err != nil {
		s.logger.Error("Failed to start sandbox",
			zap.String("project_id", p.ID),
			zap.String("sandbox_id", sb.ID),
			zap.Error(err))
		if stErr := s.store.UpdateStatus(ctx, p.ID, project.StatusError); stErr != nil {
			s.logger.Error("Failed to record error status", zap.String("project_id", p.ID), zap.Error(stErr))
		}
		p.Status = project.StatusError
		return project.ToResponse(p), nil
	}

	if err := s.store.UpdateStatus(ctx, p.ID, project.StatusRunning); err != nil {
		s.logger.Error("Failed to record running status", zap.String("project_id", p.ID), zap.Error(err))
	} else {
		p.Status = project.StatusRunning
	}
	return project.ToResponse(p), nil
}

func (s *projectService) List(ctx context.Context, accountID int64) ([]*project.Response, error) {
	projects, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("list projects: %w", err))
	}
	responses := make([]*project.Response, 0, len(projects))
	for _, p := range projects {
		responses = append(responses, project.ToResponse(p))
	}
	return responses, nil
}

func (s *projectService) Get(ctx context.Context, accountID int64, id string) (*project.Response, error) {
	p, err := s.getOwned(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	return project.ToResponse(p), nil
}

func (s *projectService) Delete(ctx context.Context, accountID int64, id string) error {
	p, err := s.getOwned(ctx, accountID, id)
	if err != nil {
		return err
	}

	if err := s.sandboxes.Delete(ctx, p.SandboxID); err != nil {
		if errors.Is(err, sandbox.ErrNotFound) {
			// Sandbox is already gone, drop the row regardless.
			s.logger.Warn("Sandbox already deleted", zap.String("sandbox_id", p.SandboxID))
		} else {
			return mapSandboxError(err, "failed to delete sandbox")
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return apperrors.GeneralError(fmt.Errorf("delete project: %w", err))
	}
	return nil
}

func (s *projectService) Link(ctx context.Context, id string, accountID int64) error {
	err := s.store.LinkAccount(ctx, id, accountID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, projectstore.ErrProjectNotFound):
		return apperrors.ResourceNotFoundError(err, "project not found")
	case errors.Is(err, projectstore.ErrDuplicateLink):
		return apperrors.ConflictError(err, "project already linked")
	default:
		return apperrors.GeneralError(fmt.Errorf("link project: %w", err))
	}
}

func (s *projectService) AppendMessage(ctx context.Context, accountID int64, projectID string, req *project.AppendMessageRequest) (*project.MessageResponse, error) {
	if req.Role != "user" && req.Role != "assistant" {
		return nil, apperrors.BadRequestError(nil, "role must be user or assistant")
	}
	if req.Content == "" {
		return nil, apperrors.BadRequestError(nil, "content is required")
	}

	if _, err := s.getOwned(ctx, accountID, projectID); err != nil {
		return nil, err
	}

	msg, err := s.store.AppendMessage(ctx, projectID, req.Role, req.Content)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("append message: %w", err))
	}
	return project.ToMessageResponse(msg), nil
}

func (s *projectService) ListMessages(ctx context.Context, accountID int64, projectID string) ([]*project.MessageResponse, error) {
	if _, err := s.getOwned(ctx, accountID, projectID); err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessages(ctx, projectID)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("list messages: %w", err))
	}
	responses := make([]*project.MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, project.ToMessageResponse(m))
	}
	return responses, nil
}

func (s *projectService) Exec(ctx context.Context, accountID int64, projectID string, req *ExecRequest) (*ExecResponse, error) {
	if strings.TrimSpace(req.Command) == "" {
		return nil, apperrors.BadRequestError(nil, "command is required")
	}

	p, err := s.getOwned(ctx, accountID, projectID)
	if err != nil {
		return nil, err
	}

	cwd := req.Cwd
	if cwd == "" {
		cwd = p.ProjectPath
	}

	result, err := s.sandboxes.Exec(ctx, p.SandboxID, sandbox.ExecRequest{
		Command:        req.Command,
		Cwd:            cwd,
		TimeoutSeconds: int(s.cfg.ExecTimeout.Seconds()),
	})
	if err != nil {
		return nil, mapSandboxError(err, "failed to execute command")
	}
	return &ExecResponse{
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}, nil
}

func (s *projectService) Tree(ctx context.Context, accountID int64, projectID string) (*TreeResponse, error) {
	p, err := s.getOwned(ctx, accountID, projectID)
	if err != nil {
		return nil, err
	}

	path, err := s.ensureProjectPath(ctx, p)
	if err != nil {
		return nil, err
	}

	entries, err := s.sandboxes.FileTree(ctx, p.SandboxID, path)
	if err != nil {
		return nil, mapSandboxError(err, "failed to list files")
	}
	return &TreeResponse{ProjectPath: path, Entries: entries}, nil
}

func (s *projectService) Routes(ctx context.Context, accountID int64, projectID string) ([]string, error) {
	p, err := s.getOwned(ctx, accountID, projectID)
	if err != nil {
		return nil, err
	}

	path, err := s.ensureProjectPath(ctx, p)
	if err != nil {
		return nil, err
	}

	routes, err := s.sandboxes.DiscoverRoutes(ctx, p.SandboxID, path)
	if err != nil {
		return nil, mapSandboxError(err, "failed to discover routes")
	}
	return routes, nil
}

// getOwned fetches a project and enforces ownership. Projects owned by
// someone else read as not found so IDs cannot be probed.
func (s *projectService) getOwned(ctx context.Context, accountID int64, id string) (*project.Project, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, projectstore.ErrProjectNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "project not found")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("get project: %w", err))
	}
	if p.AccountID == nil || *p.AccountID != accountID {
		return nil, apperrors.ResourceNotFoundError(nil, "project not found")
	}
	return p, nil
}

// ensureProjectPath returns the project's path inside its sandbox,
// discovering and persisting it when the row predates path tracking.
func (s *projectService) ensureProjectPath(ctx context.Context, p *project.Project) (string, error) {
	if p.ProjectPath != "" {
		return p.ProjectPath, nil
	}

	path, err := s.sandboxes.FindProjectPath(ctx, p.SandboxID)
	if err != nil {
		return "", mapSandboxError(err, "failed to locate project")
	}

	if err := s.store.SetProjectPath(ctx, p.ID, path); err != nil {
		// Best effort: the discovered path still serves this request.
		s.logger.Warn("Failed to persist project path",
			zap.String("project_id", p.ID),
			zap.Error(err))
	}
	p.ProjectPath = path
	return path, nil
}

// createWithFreePort inserts the project row, re-allocating the dev port
// when a concurrent create claims the same one first.
func (s *projectService) createWithFreePort(ctx context.Context, p *project.Project) error {
	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.store.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, projectstore.ErrDevPortTaken) {
			return apperrors.GeneralError(fmt.Errorf("create project: %w", err))
		}
		s.logger.Debug("Dev port taken, re-allocating",
			zap.String("project_id", p.ID),
			zap.Int("port", p.DevPort))
		port, err := s.allocateDevPort(ctx)
		if err != nil {
			return err
		}
		p.DevPort = port
	}
	return apperrors.ConflictError(nil, "no dev ports available")
}

// allocateDevPort picks the lowest free port in the configured range.
func (s *projectService) allocateDevPort(ctx context.Context) (int, error) {
	used, err := s.store.UsedDevPorts(ctx)
	if err != nil {
		return 0, apperrors.GeneralError(fmt.Errorf("list used ports: %w", err))
	}
	sort.Ints(used)

	candidate := s.cfg.DevPortMin
	for _, p := range used {
		if p < candidate {
			continue
		}
		if p > candidate {
			break
		}
		candidate++
	}
	if candidate > s.cfg.DevPortMax {
		return 0, apperrors.ConflictError(nil, "no dev ports available")
	}
	return candidate, nil
}

func mapSandboxError(err error, message string) error {
	switch {
	case errors.Is(err, sandbox.ErrUnavailable):
		return apperrors.DependencyFailureError(err, message)
	case errors.Is(err, sandbox.ErrNotFound):
		return apperrors.ResourceNotFoundError(err, "sandbox not found")
	default:
		return apperrors.GeneralError(fmt.Errorf("%s: %w", message, err))
	}
}
