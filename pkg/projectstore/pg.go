package projectstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/hatchlabs/devbox-middleware/pkg/project"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the project store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) Create(ctx context.Context, p *project.Project) error {
	dao := toProjectDao(p)
	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(violatedConstraint(err), "dev_port") {
				return ErrDevPortTaken
			}
			return ErrDuplicateLink
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, id string) (*project.Project, error) {
	dao := new(ProjectDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return toProject(dao), nil
}

func (s *pgStore) ListByAccount(ctx context.Context, accountID int64) ([]*project.Project, error) {
	var daos []ProjectDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	projects := make([]*project.Project, len(daos))
	for i := range daos {
		projects[i] = toProject(&daos[i])
	}
	return projects, nil
}

func (s *pgStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().
		Model((*ProjectDao)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

func (s *pgStore) UpdateStatus(ctx context.Context, id string, status project.Status) error {
	return s.updateColumn(ctx, id, "status", string(status))
}

func (s *pgStore) SetProjectPath(ctx context.Context, id, path string) error {
	return s.updateColumn(ctx, id, "project_path", path)
}

func (s *pgStore) SetDevPort(ctx context.Context, id string, port int) error {
	return s.updateColumn(ctx, id, "dev_port", port)
}

func (s *pgStore) updateColumn(ctx context.Context, id, column string, value any) error {
	_, err := s.db.NewUpdate().
		Model((*ProjectDao)(nil)).
		Set(column+" = ?", value).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update project %s: %w", column, err)
	}
	return nil
}

func (s *pgStore) LinkAccount(ctx context.Context, id string, accountID int64) error {
	res, err := s.db.NewUpdate().
		Model((*ProjectDao)(nil)).
		Set("account_id = ?", accountID).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("account_id IS NULL").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateLink
		}
		return fmt.Errorf("failed to link project: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to link project: %w", err)
	}
	if rows == 0 {
		// Either the project does not exist or it is already owned.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrDuplicateLink
	}
	return nil
}

func (s *pgStore) UsedDevPorts(ctx context.Context) ([]int, error) {
	var ports []int
	err := s.db.NewSelect().
		Model((*ProjectDao)(nil)).
		Column("dev_port").
		Where("dev_port IS NOT NULL").
		Scan(ctx, &ports)
	if err != nil {
		return nil, fmt.Errorf("failed to list dev ports: %w", err)
	}
	return ports, nil
}

func (s *pgStore) AppendMessage(ctx context.Context, projectID, role, content string) (*project.Message, error) {
	dao := &MessageDao{
		ProjectID: projectID,
		Role:      role,
		Content:   content,
	}

	// Sequence allocation and insert happen in one statement so a writer can
	// never observe a stale max. Concurrent writers that still collide on the
	// unique (project_id, sequence_number) index retry with a fresh number.
	const maxAttempts = 5
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.NewInsert().
				Model(dao).
				Value("sequence_number",
					"(SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM project_messages WHERE project_id = ?)",
					projectID).
				Returning("id, sequence_number, created_at").
				Exec(ctx)
			return err
		})
		if err == nil {
			return toMessage(dao), nil
		}
		if !isUniqueViolation(err) {
			break
		}
	}
	return nil, fmt.Errorf("failed to append message: %w", err)
}

func (s *pgStore) ListMessages(ctx context.Context, projectID string) ([]*project.Message, error) {
	var daos []MessageDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("project_id = ?", projectID).
		Order("sequence_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	messages := make([]*project.Message, len(daos))
	for i := range daos {
		messages[i] = toMessage(&daos[i])
	}
	return messages, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key value")
}

// violatedConstraint returns the name of the constraint behind a unique
// violation, or the full error text when the driver did not report one.
func violatedConstraint(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		if name := pgErr.Field('n'); name != "" {
			return name
		}
	}
	return err.Error()
}
