package service

import (
	"context"

	"github.com/hatchlabs/devbox-middleware/pkg/project"
	"github.com/hatchlabs/devbox-middleware/pkg/sandbox"
)

// mockStore is a function-field test double for Store.
type mockStore struct {
	create         func(ctx context.Context, p *project.Project) error
	get            func(ctx context.Context, id string) (*project.Project, error)
	listByAccount  func(ctx context.Context, accountID int64) ([]*project.Project, error)
	delete         func(ctx context.Context, id string) error
	updateStatus   func(ctx context.Context, id string, status project.Status) error
	setProjectPath func(ctx context.Context, id, path string) error
	linkAccount    func(ctx context.Context, id string, accountID int64) error
	usedDevPorts   func(ctx context.Context) ([]int, error)
	appendMessage  func(ctx context.Context, projectID, role, content string) (*project.Message, error)
	listMessages   func(ctx context.Context, projectID string) ([]*project.Message, error)
}

func (m *mockStore) Create(ctx context.Context, p *project.Project) error { return m.create(ctx, p) }
func (m *mockStore) Get(ctx context.Context, id string) (*project.Project, error) {
	return m.get(ctx, id)
}
func (m *mockStore) ListByAccount(ctx context.Context, accountID int64) ([]*project.Project, error) {
	return m.listByAccount(ctx, accountID)
}
func (m *mockStore) Delete(ctx context.Context, id string) error { return m.delete(ctx, id) }
func (m *mockStore) UpdateStatus(ctx context.Context, id string, status project.Status) error {
	return m.updateStatus(ctx, id, status)
}
func (m *mockStore) SetProjectPath(ctx context.Context, id, path string) error {
	return m.setProjectPath(ctx, id, path)
}
func (m *mockStore) LinkAccount(ctx context.Context, id string, accountID int64) error {
	return m.linkAccount(ctx, id, accountID)
}
func (m *mockStore) UsedDevPorts(ctx context.Context) ([]int, error) {
	if m.usedDevPorts == nil {
		return nil, nil
	}
	return m.usedDevPorts(ctx)
}
func (m *mockStore) AppendMessage(ctx context.Context, projectID, role, content string) (*project.Message, error) {
	return m.appendMessage(ctx, projectID, role, content)
}
func (m *mockStore) ListMessages(ctx context.Context, projectID string) ([]*project.Message, error) {
	return m.listMessages(ctx, projectID)
}

// mockSandboxes is a function-field test double for Sandboxes.
type mockSandboxes struct {
	create          func(ctx context.Context, req sandbox.CreateRequest) (*sandbox.Sandbox, error)
	start           func(ctx context.Context, id string) error
	delete          func(ctx context.Context, id string) error
	exec            func(ctx context.Context, id string, req sandbox.ExecRequest) (*sandbox.ExecResult, error)
	findProjectPath func(ctx context.Context, sandboxID string) (string, error)
	fileTree        func(ctx context.Context, sandboxID, root string) ([]sandbox.TreeEntry, error)
	discoverRoutes  func(ctx context.Context, sandboxID, projectPath string) ([]string, error)
}

func (m *mockSandboxes) Create(ctx context.Context, req sandbox.CreateRequest) (*sandbox.Sandbox, error) {
	return m.create(ctx, req)
}
func (m *mockSandboxes) Start(ctx context.Context, id string) error { return m.start(ctx, id) }
func (m *mockSandboxes) Delete(ctx context.Context, id string) error {
	return m.delete(ctx, id)
}
func (m *mockSandboxes) Exec(ctx context.Context, id string, req sandbox.ExecRequest) (*sandbox.ExecResult, error) {
	return m.exec(ctx, id, req)
}
func (m *mockSandboxes) FindProjectPath(ctx context.Context, sandboxID string) (string, error) {
	return m.findProjectPath(ctx, sandboxID)
}
func (m *mockSandboxes) FileTree(ctx context.Context, sandboxID, root string) ([]sandbox.TreeEntry, error) {
	return m.fileTree(ctx, sandboxID, root)
}
func (m *mockSandboxes) DiscoverRoutes(ctx context.Context, sandboxID, projectPath string) ([]string, error) {
	return m.discoverRoutes(ctx, sandboxID, projectPath)
}
