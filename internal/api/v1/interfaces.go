package v1

import (
	"context"
	"encoding/json"

	"github.com/muthuthevar/collabspace/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Users() domain.UserRepository
	Workspaces() domain.WorkspaceRepository
	Boards() domain.BoardRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// BoardNotifier pushes REST-originated board changes into the board's live
// room. *ws.Hub satisfies this interface.
type BoardNotifier interface {
	BoardUpdated(boardID string, content json.RawMessage, userID string)
}
