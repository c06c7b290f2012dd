package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/muthuthevar/collabspace/internal/domain"
)

type CreateBoardInput struct {
	WorkspaceID uuid.UUID `path:"workspaceId" doc:"Workspace ID"`
	Body        struct {
		Title   string          `json:"title" minLength:"1" maxLength:"255" doc:"Board title"`
		Content json.RawMessage `json:"content,omitempty" doc:"Initial board content"`
	}
}

type CreateBoardOutput struct {
	Body *domain.Board
}

type ListBoardsInput struct {
	WorkspaceID uuid.UUID `path:"workspaceId" doc:"Workspace ID"`
}

type ListBoardsOutput struct {
	Body []*domain.Board
}

type GetBoardInput struct {
	WorkspaceID uuid.UUID `path:"workspaceId" doc:"Workspace ID"`
	ID          uuid.UUID `path:"id" doc:"Board ID"`
}

type GetBoardOutput struct {
	Body *domain.Board
}

type UpdateBoardInput struct {
	WorkspaceID uuid.UUID `path:"workspaceId" doc:"Workspace ID"`
	ID          uuid.UUID `path:"id" doc:"Board ID"`
	Body        struct {
		Title   string          `json:"title,omitempty" maxLength:"255" doc:"Board title"`
		Content json.RawMessage `json:"content,omitempty" doc:"Board content"`
	}
}

type UpdateBoardOutput struct {
	Body *domain.Board
}

type DeleteBoardInput struct {
	WorkspaceID uuid.UUID `path:"workspaceId" doc:"Workspace ID"`
	ID          uuid.UUID `path:"id" doc:"Board ID"`
}

// loadBoard fetches a board and confirms it belongs to the workspace in
// the path, so a member of workspace A cannot address boards of B.
func loadBoard(ctx context.Context, store DataStore, workspaceID, id uuid.UUID) (*domain.Board, error) {
	b, err := store.Boards().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("board not found")
		}
		return nil, huma.Error500InternalServerError("failed to get board", err)
	}
	if b.WorkspaceID != workspaceID {
		return nil, huma.Error404NotFound("board not found")
	}
	return b, nil
}

func RegisterBoardRoutes(api huma.API, store DataStore, notifier BoardNotifier) {
	huma.Register(api, huma.Operation{
		OperationID: "create-board",
		Method:      http.MethodPost,
		Path:        "/workspaces/{workspaceId}/boards",
		Summary:     "Create a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *CreateBoardInput) (*CreateBoardOutput, error) {
		userID, _, err := requireMember(ctx, store, input.WorkspaceID, domain.RoleMember)
		if err != nil {
			return nil, err
		}

		content := input.Body.Content
		if len(content) == 0 {
			content = json.RawMessage(`{}`)
		}

		now := time.Now()
		b := &domain.Board{
			ID:          uuid.New(),
			WorkspaceID: input.WorkspaceID,
			Title:       input.Body.Title,
			Content:     content,
			CreatedBy:   userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.Boards().Create(ctx, b); err != nil {
			return nil, huma.Error500InternalServerError("failed to create board", err)
		}

		return &CreateBoardOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/boards",
		Summary:     "List boards in a workspace",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ListBoardsInput) (*ListBoardsOutput, error) {
		if _, _, err := requireMember(ctx, store, input.WorkspaceID, domain.RoleViewer); err != nil {
			return nil, err
		}

		boards, err := store.Boards().ListByWorkspace(ctx, input.WorkspaceID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list boards", err)
		}

		return &ListBoardsOutput{Body: boards}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspaceId}/boards/{id}",
		Summary:     "Get a board by ID",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*GetBoardOutput, error) {
		if _, _, err := requireMember(ctx, store, input.WorkspaceID, domain.RoleViewer); err != nil {
			return nil, err
		}

		b, err := loadBoard(ctx, store, input.WorkspaceID, input.ID)
		if err != nil {
			return nil, err
		}

		return &GetBoardOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-board",
		Method:      http.MethodPut,
		Path:        "/workspaces/{workspaceId}/boards/{id}",
		Summary:     "Update a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *UpdateBoardInput) (*UpdateBoardOutput, error) {
		userID, _, err := requireMember(ctx, store, input.WorkspaceID, domain.RoleMember)
		if err != nil {
			return nil, err
		}

		b, err := loadBoard(ctx, store, input.WorkspaceID, input.ID)
		if err != nil {
			return nil, err
		}

		if input.Body.Title != "" {
			b.Title = input.Body.Title
		}
		contentChanged := input.Body.Content != nil
		if contentChanged {
			b.Content = input.Body.Content
		}
		b.UpdatedAt = time.Now()

		if err := store.Boards().Update(ctx, b); err != nil {
			return nil, huma.Error500InternalServerError("failed to update board", err)
		}

		// Collaborators editing live see REST-originated changes too.
		if contentChanged && notifier != nil {
			notifier.BoardUpdated(b.ID.String(), b.Content, userID.String())
		}

		return &UpdateBoardOutput{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-board",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspaceId}/boards/{id}",
		Summary:     "Delete a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *DeleteBoardInput) (*struct{}, error) {
		userID, caller, err := requireMember(ctx, store, input.WorkspaceID, domain.RoleMember)
		if err != nil {
			return nil, err
		}

		b, err := loadBoard(ctx, store, input.WorkspaceID, input.ID)
		if err != nil {
			return nil, err
		}

		// Creators can delete their own boards; anything else needs admin.
		if b.CreatedBy != userID && !caller.Role.AtLeast(domain.RoleAdmin) {
			return nil, huma.Error403Forbidden("insufficient role")
		}

		if err := store.Boards().Delete(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete board", err)
		}

		return nil, nil
	})
}
