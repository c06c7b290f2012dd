package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/muthuthevar/collabspace/internal/domain"
	"github.com/muthuthevar/collabspace/internal/server/middleware"
)

type CreateWorkspaceInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Workspace name"`
	}
}

type CreateWorkspaceOutput struct {
	Body *domain.Workspace
}

type ListWorkspacesInput struct{}

type ListWorkspacesOutput struct {
	Body []*domain.Workspace
}

type GetWorkspaceInput struct {
	ID uuid.UUID `path:"id" doc:"Workspace ID"`
}

type GetWorkspaceOutput struct {
	Body *domain.Workspace
}

type UpdateWorkspaceInput struct {
	ID   uuid.UUID `path:"id" doc:"Workspace ID"`
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Workspace name"`
	}
}

type UpdateWorkspaceOutput struct {
	Body *domain.Workspace
}

type DeleteWorkspaceInput struct {
	ID uuid.UUID `path:"id" doc:"Workspace ID"`
}

type AddMemberInput struct {
	ID   uuid.UUID `path:"id" doc:"Workspace ID"`
	Body struct {
		UserID uuid.UUID   `json:"user_id" doc:"User to add"`
		Role   domain.Role `json:"role" doc:"Member role"`
	}
}

type AddMemberOutput struct {
	Body *domain.WorkspaceMember
}

type ListMembersInput struct {
	ID uuid.UUID `path:"id" doc:"Workspace ID"`
}

type ListMembersOutput struct {
	Body []*domain.WorkspaceMember
}

type UpdateMemberRoleInput struct {
	ID     uuid.UUID `path:"id" doc:"Workspace ID"`
	UserID uuid.UUID `path:"userId" doc:"Member user ID"`
	Body   struct {
		Role domain.Role `json:"role" doc:"New role"`
	}
}

type UpdateMemberRoleOutput struct {
	Body *domain.WorkspaceMember
}

type RemoveMemberInput struct {
	ID     uuid.UUID `path:"id" doc:"Workspace ID"`
	UserID uuid.UUID `path:"userId" doc:"Member user ID"`
}

// requireMember loads the caller's membership in a workspace and checks it
// against a minimum role. Non-members get 403, not 404, so board and
// workspace IDs do not leak existence either way.
func requireMember(ctx context.Context, store DataStore, workspaceID uuid.UUID, minRole domain.Role) (uuid.UUID, *domain.WorkspaceMember, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, nil, huma.Error401Unauthorized("missing user context")
	}

	m, err := store.Workspaces().GetMember(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, nil, huma.Error403Forbidden("not a workspace member")
		}
		return uuid.Nil, nil, huma.Error500InternalServerError("failed to check membership", err)
	}

	if !m.Role.AtLeast(minRole) {
		return uuid.Nil, nil, huma.Error403Forbidden("insufficient role")
	}

	return userID, m, nil
}

func RegisterWorkspaceRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-workspace",
		Method:      http.MethodPost,
		Path:        "/workspaces",
		Summary:     "Create a workspace",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *CreateWorkspaceInput) (*CreateWorkspaceOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		now := time.Now()
		w := &domain.Workspace{
			ID:        uuid.New(),
			Name:      input.Body.Name,
			OwnerID:   userID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Workspaces().Create(ctx, w); err != nil {
			return nil, huma.Error500InternalServerError("failed to create workspace", err)
		}

		owner := &domain.WorkspaceMember{
			WorkspaceID: w.ID,
			UserID:      userID,
			Role:        domain.RoleOwner,
			JoinedAt:    now,
		}
		if err := store.Workspaces().AddMember(ctx, owner); err != nil {
			return nil, huma.Error500InternalServerError("failed to add owner membership", err)
		}

		return &CreateWorkspaceOutput{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workspaces",
		Method:      http.MethodGet,
		Path:        "/workspaces",
		Summary:     "List workspaces for the current user",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, _ *ListWorkspacesInput) (*ListWorkspacesOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		workspaces, err := store.Workspaces().ListForUser(ctx, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list workspaces", err)
		}

		return &ListWorkspacesOutput{Body: workspaces}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workspace",
		Method:      http.MethodGet,
		Path:        "/workspaces/{id}",
		Summary:     "Get a workspace by ID",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *GetWorkspaceInput) (*GetWorkspaceOutput, error) {
		if _, _, err := requireMember(ctx, store, input.ID, domain.RoleViewer); err != nil {
			return nil, err
		}

		w, err := store.Workspaces().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("workspace not found")
			}
			return nil, huma.Error500InternalServerError("failed to get workspace", err)
		}

		return &GetWorkspaceOutput{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-workspace",
		Method:      http.MethodPut,
		Path:        "/workspaces/{id}",
		Summary:     "Rename a workspace",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *UpdateWorkspaceInput) (*UpdateWorkspaceOutput, error) {
		if _, _, err := requireMember(ctx, store, input.ID, domain.RoleAdmin); err != nil {
			return nil, err
		}

		w, err := store.Workspaces().GetByID(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("workspace not found")
			}
			return nil, huma.Error500InternalServerError("failed to get workspace", err)
		}

		w.Name = input.Body.Name
		w.UpdatedAt = time.Now()

		if err := store.Workspaces().Update(ctx, w); err != nil {
			return nil, huma.Error500InternalServerError("failed to update workspace", err)
		}

		return &UpdateWorkspaceOutput{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-workspace",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{id}",
		Summary:     "Delete a workspace",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *DeleteWorkspaceInput) (*struct{}, error) {
		if _, _, err := requireMember(ctx, store, input.ID, domain.RoleOwner); err != nil {
			return nil, err
		}

		if err := store.Workspaces().Delete(ctx, input.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("workspace not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete workspace", err)
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-workspace-member",
		Method:      http.MethodPost,
		Path:        "/workspaces/{id}/members",
		Summary:     "Add a member to a workspace",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *AddMemberInput) (*AddMemberOutput, error) {
		if _, _, err := requireMember(ctx, store, input.ID, domain.RoleAdmin); err != nil {
			return nil, err
		}

		if !input.Body.Role.Valid() {
			return nil, huma.Error400BadRequest("invalid role")
		}
		if input.Body.Role == domain.RoleOwner {
			return nil, huma.Error400BadRequest("ownership cannot be granted through membership")
		}

		if _, err := store.Users().GetByID(ctx, input.Body.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("user not found")
			}
			return nil, huma.Error500InternalServerError("failed to look up user", err)
		}

		m := &domain.WorkspaceMember{
			WorkspaceID: input.ID,
			UserID:      input.Body.UserID,
			Role:        input.Body.Role,
			JoinedAt:    time.Now(),
		}
		if err := store.Workspaces().AddMember(ctx, m); err != nil {
			return nil, huma.Error500InternalServerError("failed to add member", err)
		}

		return &AddMemberOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workspace-members",
		Method:      http.MethodGet,
		Path:        "/workspaces/{id}/members",
		Summary:     "List workspace members",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *ListMembersInput) (*ListMembersOutput, error) {
		if _, _, err := requireMember(ctx, store, input.ID, domain.RoleViewer); err != nil {
			return nil, err
		}

		members, err := store.Workspaces().ListMembers(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list members", err)
		}

		return &ListMembersOutput{Body: members}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-workspace-member-role",
		Method:      http.MethodPut,
		Path:        "/workspaces/{id}/members/{userId}",
		Summary:     "Change a member's role",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *UpdateMemberRoleInput) (*UpdateMemberRoleOutput, error) {
		if _, _, err := requireMember(ctx, store, input.ID, domain.RoleAdmin); err != nil {
			return nil, err
		}

		if !input.Body.Role.Valid() || input.Body.Role == domain.RoleOwner {
			return nil, huma.Error400BadRequest("invalid role")
		}

		target, err := store.Workspaces().GetMember(ctx, input.ID, input.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("member not found")
			}
			return nil, huma.Error500InternalServerError("failed to look up member", err)
		}
		if target.Role == domain.RoleOwner {
			return nil, huma.Error403Forbidden("the owner's role cannot be changed")
		}

		if err := store.Workspaces().UpdateMemberRole(ctx, input.ID, input.UserID, input.Body.Role); err != nil {
			return nil, huma.Error500InternalServerError("failed to update member role", err)
		}

		target.Role = input.Body.Role
		return &UpdateMemberRoleOutput{Body: target}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-workspace-member",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{id}/members/{userId}",
		Summary:     "Remove a member from a workspace",
		Tags:        []string{"Workspaces"},
	}, func(ctx context.Context, input *RemoveMemberInput) (*struct{}, error) {
		userID, caller, err := requireMember(ctx, store, input.ID, domain.RoleViewer)
		if err != nil {
			return nil, err
		}

		// Members may leave on their own; removing someone else needs admin.
		if input.UserID != userID && !caller.Role.AtLeast(domain.RoleAdmin) {
			return nil, huma.Error403Forbidden("insufficient role")
		}

		target, err := store.Workspaces().GetMember(ctx, input.ID, input.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("member not found")
			}
			return nil, huma.Error500InternalServerError("failed to look up member", err)
		}
		if target.Role == domain.RoleOwner {
			return nil, huma.Error403Forbidden("the owner cannot be removed")
		}

		if err := store.Workspaces().RemoveMember(ctx, input.ID, input.UserID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("member not found")
			}
			return nil, huma.Error500InternalServerError("failed to remove member", err)
		}

		return nil, nil
	})
}
