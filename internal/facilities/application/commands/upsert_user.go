package commands

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
)

// UpsertUserCommand mirrors an identity-provider user into the directory.
// A zero ID creates a new user.
type UpsertUserCommand struct {
	ID    int64
	Name  string
	Email string
	Role  string
}

// UpsertUserHandler handles the UpsertUserCommand.
type UpsertUserHandler struct {
	users domain.UserDirectory
}

// NewUpsertUserHandler creates a new UpsertUserHandler.
func NewUpsertUserHandler(users domain.UserDirectory) *UpsertUserHandler {
	return &UpsertUserHandler{users: users}
}

// Handle executes the UpsertUserCommand.
func (h *UpsertUserHandler) Handle(ctx context.Context, cmd UpsertUserCommand) (*domain.User, error) {
	role, err := domain.ParseRole(cmd.Role)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:    cmd.ID,
		Name:  strings.TrimSpace(cmd.Name),
		Email: strings.ToLower(strings.TrimSpace(cmd.Email)),
		Role:  role,
	}
	if err := h.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
