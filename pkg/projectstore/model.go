package projectstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/hatchlabs/devbox-middleware/pkg/project"
)

// ProjectDao is a data access object that maps directly to the 'projects'
// table in PostgreSQL.
type ProjectDao struct {
	bun.BaseModel `bun:"table:projects,alias:p"`
	ID            string    `bun:"id,pk,type:uuid"`
	SandboxID     string    `bun:"sandbox_id,notnull,type:varchar(128)"`
	AccountID     *int64    `bun:"account_id"`
	Name          string    `bun:"name,notnull,type:varchar(255)"`
	ProjectPath   *string   `bun:"project_path,type:text"`
	DevPort       *int      `bun:"dev_port"`
	Status        string    `bun:"status,notnull,type:varchar(16)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// MessageDao maps to the 'project_messages' table.
type MessageDao struct {
	bun.BaseModel  `bun:"table:project_messages,alias:pm"`
	ID             int64     `bun:"id,pk,autoincrement"`
	ProjectID      string    `bun:"project_id,notnull,type:uuid"`
	SequenceNumber int64     `bun:"sequence_number,notnull"`
	Role           string    `bun:"role,notnull,type:varchar(16)"`
	Content        string    `bun:"content,notnull,type:text"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func toProjectDao(p *project.Project) *ProjectDao {
	dao := &ProjectDao{
		ID:        p.ID,
		SandboxID: p.SandboxID,
		AccountID: p.AccountID,
		Name:      p.Name,
		Status:    string(p.Status),
	}
	if p.ProjectPath != "" {
		dao.ProjectPath = &p.ProjectPath
	}
	if p.DevPort != 0 {
		port := p.DevPort
		dao.DevPort = &port
	}
	return dao
}

func toProject(dao *ProjectDao) *project.Project {
	p := &project.Project{
		ID:        dao.ID,
		SandboxID: dao.SandboxID,
		AccountID: dao.AccountID,
		Name:      dao.Name,
		Status:    project.Status(dao.Status),
		CreatedAt: dao.CreatedAt,
		UpdatedAt: dao.UpdatedAt,
	}
	if dao.ProjectPath != nil {
		p.ProjectPath = *dao.ProjectPath
	}
	if dao.DevPort != nil {
		p.DevPort = *dao.DevPort
	}
	return p
}

func toMessage(dao *MessageDao) *project.Message {
	return &project.Message{
		ID:             dao.ID,
		ProjectID:      dao.ProjectID,
		SequenceNumber: dao.SequenceNumber,
		Role:           dao.Role,
		Content:        dao.Content,
		CreatedAt:      dao.CreatedAt,
	}
}
