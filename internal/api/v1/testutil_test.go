package v1_test

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/muthuthevar/collabspace/internal/domain"
	"github.com/muthuthevar/collabspace/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers — inject the authenticated user for *Ctx requests
// ---------------------------------------------------------------------------

func userCtx(userID uuid.UUID) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyUserID, userID)
	ctx = context.WithValue(ctx, middleware.ContextKeyUserEmail, "user@example.com")
	return ctx
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	users      domain.UserRepository
	workspaces domain.WorkspaceRepository
	boards     domain.BoardRepository
}

func (m *mockDataStore) Users() domain.UserRepository           { return m.users }
func (m *mockDataStore) Workspaces() domain.WorkspaceRepository { return m.workspaces }
func (m *mockDataStore) Boards() domain.BoardRepository         { return m.boards }

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	createFunc     func(ctx context.Context, u *domain.User) error
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	getByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
	updateFunc     func(ctx context.Context, u *domain.User) error
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.createFunc(ctx, u)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockUserRepo) Update(ctx context.Context, u *domain.User) error {
	return m.updateFunc(ctx, u)
}

// ---------------------------------------------------------------------------
// Mock WorkspaceRepository
// ---------------------------------------------------------------------------

type mockWorkspaceRepo struct {
	createFunc           func(ctx context.Context, w *domain.Workspace) error
	getByIDFunc          func(ctx context.Context, id uuid.UUID) (*domain.Workspace, error)
	listForUserFunc      func(ctx context.Context, userID uuid.UUID) ([]*domain.Workspace, error)
	updateFunc           func(ctx context.Context, w *domain.Workspace) error
	deleteFunc           func(ctx context.Context, id uuid.UUID) error
	addMemberFunc        func(ctx context.Context, m *domain.WorkspaceMember) error
	removeMemberFunc     func(ctx context.Context, workspaceID, userID uuid.UUID) error
	getMemberFunc        func(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error)
	listMembersFunc      func(ctx context.Context, workspaceID uuid.UUID) ([]*domain.WorkspaceMember, error)
	updateMemberRoleFunc func(ctx context.Context, workspaceID, userID uuid.UUID, role domain.Role) error
}

func (m *mockWorkspaceRepo) Create(ctx context.Context, w *domain.Workspace) error {
	return m.createFunc(ctx, w)
}

func (m *mockWorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockWorkspaceRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Workspace, error) {
	return m.listForUserFunc(ctx, userID)
}

func (m *mockWorkspaceRepo) Update(ctx context.Context, w *domain.Workspace) error {
	return m.updateFunc(ctx, w)
}

func (m *mockWorkspaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockWorkspaceRepo) AddMember(ctx context.Context, member *domain.WorkspaceMember) error {
	return m.addMemberFunc(ctx, member)
}

func (m *mockWorkspaceRepo) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	return m.removeMemberFunc(ctx, workspaceID, userID)
}

func (m *mockWorkspaceRepo) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error) {
	return m.getMemberFunc(ctx, workspaceID, userID)
}

func (m *mockWorkspaceRepo) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*domain.WorkspaceMember, error) {
	return m.listMembersFunc(ctx, workspaceID)
}

func (m *mockWorkspaceRepo) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, role domain.Role) error {
	return m.updateMemberRoleFunc(ctx, workspaceID, userID, role)
}

// ---------------------------------------------------------------------------
// Mock BoardRepository
// ---------------------------------------------------------------------------

type mockBoardRepo struct {
	createFunc          func(ctx context.Context, b *domain.Board) error
	getByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	listByWorkspaceFunc func(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Board, error)
	updateFunc          func(ctx context.Context, b *domain.Board) error
	deleteFunc          func(ctx context.Context, id uuid.UUID) error
}

func (m *mockBoardRepo) Create(ctx context.Context, b *domain.Board) error {
	return m.createFunc(ctx, b)
}

func (m *mockBoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBoardRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.Board, error) {
	return m.listByWorkspaceFunc(ctx, workspaceID)
}

func (m *mockBoardRepo) Update(ctx context.Context, b *domain.Board) error {
	return m.updateFunc(ctx, b)
}

func (m *mockBoardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	registerFunc     func(ctx context.Context, email, password, name string) (*domain.User, error)
	loginFunc        func(ctx context.Context, email, password string) (string, string, error)
	refreshTokenFunc func(ctx context.Context, refreshToken string) (string, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	return m.registerFunc(ctx, email, password, name)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshTokenFunc(ctx, refreshToken)
}

// ---------------------------------------------------------------------------
// Mock BoardNotifier
// ---------------------------------------------------------------------------

type notifiedUpdate struct {
	boardID string
	content json.RawMessage
	userID  string
}

type mockNotifier struct {
	updates []notifiedUpdate
}

func (m *mockNotifier) BoardUpdated(boardID string, content json.RawMessage, userID string) {
	m.updates = append(m.updates, notifiedUpdate{boardID: boardID, content: content, userID: userID})
}

// membership returns a GetMember func for a fixed caller role.
func membership(workspaceID, userID uuid.UUID, role domain.Role) func(context.Context, uuid.UUID, uuid.UUID) (*domain.WorkspaceMember, error) {
	return func(_ context.Context, wid, uid uuid.UUID) (*domain.WorkspaceMember, error) {
		if wid == workspaceID && uid == userID {
			return &domain.WorkspaceMember{WorkspaceID: wid, UserID: uid, Role: role}, nil
		}
		return nil, domain.ErrNotFound
	}
}
