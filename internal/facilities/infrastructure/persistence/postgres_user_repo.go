package persistence

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
)

// PostgresUserDirectory implements domain.UserDirectory on PostgreSQL.
type PostgresUserDirectory struct {
	conn database.Connection
}

// NewPostgresUserDirectory creates a new PostgresUserDirectory.
func NewPostgresUserDirectory(conn database.Connection) *PostgresUserDirectory {
	return &PostgresUserDirectory{conn: conn}
}

func (r *PostgresUserDirectory) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT id, name, email, role FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Name, &user.Email, &role)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	if user.Role, err = domain.ParseRole(role); err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return &user, nil
}

// Upsert inserts the user, or refreshes name, email and role when the ID exists.
// A zero ID lets the store assign one.
func (r *PostgresUserDirectory) Upsert(ctx context.Context, user *domain.User) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	if user.ID == 0 {
		err := exec.QueryRow(ctx,
			`INSERT INTO users (name, email, role) VALUES ($1, $2, $3) RETURNING id`,
			user.Name, user.Email, string(user.Role),
		).Scan(&user.ID)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	}

	_, err := exec.Exec(ctx, `
		INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role, updated_at = NOW()`,
		user.ID, user.Name, user.Email, string(user.Role))
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", user.ID, err)
	}
	return nil
}
