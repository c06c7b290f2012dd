package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muthuthevar/collabspace/internal/domain"
)

type WorkspaceRepo struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepo(pool *pgxpool.Pool) *WorkspaceRepo {
	return &WorkspaceRepo{pool: pool}
}

func (r *WorkspaceRepo) Create(ctx context.Context, w *domain.Workspace) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspaces (id, name, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		w.ID, w.Name, w.OwnerID, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("workspaceRepo.Create: %w", err)
	}

	return nil
}

func (r *WorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	var w domain.Workspace

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at, updated_at
		 FROM workspaces WHERE id = $1`,
		id,
	).Scan(&w.ID, &w.Name, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workspaceRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("workspaceRepo.GetByID: %w", err)
	}

	return &w, nil
}

func (r *WorkspaceRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Workspace, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT w.id, w.name, w.owner_id, w.created_at, w.updated_at
		 FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id
		 WHERE m.user_id = $1
		 ORDER BY w.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("workspaceRepo.ListForUser: %w", err)
	}
	defer rows.Close()

	var workspaces []*domain.Workspace
	for rows.Next() {
		var w domain.Workspace

		err = rows.Scan(&w.ID, &w.Name, &w.OwnerID, &w.CreatedAt, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("workspaceRepo.ListForUser: scan: %w", err)
		}
		workspaces = append(workspaces, &w)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("workspaceRepo.ListForUser: rows: %w", err)
	}

	return workspaces, nil
}

func (r *WorkspaceRepo) Update(ctx context.Context, w *domain.Workspace) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE workspaces SET name = $1, updated_at = $2 WHERE id = $3`,
		w.Name, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("workspaceRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workspaceRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *WorkspaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM workspaces WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("workspaceRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workspaceRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *WorkspaceRepo) AddMember(ctx context.Context, m *domain.WorkspaceMember) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (workspace_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.WorkspaceID, m.UserID, m.Role, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("workspaceRepo.AddMember: %w", err)
	}

	return nil
}

func (r *WorkspaceRepo) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID,
	)
	if err != nil {
		return fmt.Errorf("workspaceRepo.RemoveMember: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workspaceRepo.RemoveMember: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *WorkspaceRepo) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error) {
	var m domain.WorkspaceMember

	err := r.pool.QueryRow(ctx,
		`SELECT workspace_id, user_id, role, joined_at
		 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID,
	).Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workspaceRepo.GetMember: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("workspaceRepo.GetMember: %w", err)
	}

	return &m, nil
}

func (r *WorkspaceRepo) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.WorkspaceMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT workspace_id, user_id, role, joined_at
		 FROM workspace_members WHERE workspace_id = $1
		 ORDER BY joined_at`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("workspaceRepo.ListMembers: %w", err)
	}
	defer rows.Close()

	var members []*domain.WorkspaceMember
	for rows.Next() {
		var m domain.WorkspaceMember

		err = rows.Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.JoinedAt)
		if err != nil {
			return nil, fmt.Errorf("workspaceRepo.ListMembers: scan: %w", err)
		}
		members = append(members, &m)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("workspaceRepo.ListMembers: rows: %w", err)
	}

	return members, nil
}

func (r *WorkspaceRepo) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role domain.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE workspace_members SET role = $1 WHERE workspace_id = $2 AND user_id = $3`,
		role, workspaceID, userID,
	)
	if err != nil {
		return fmt.Errorf("workspaceRepo.UpdateMemberRole: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workspaceRepo.UpdateMemberRole: %w", domain.ErrNotFound)
	}

	return nil
}
