package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database/sqlite"
)

// SQLiteUserDirectory implements domain.UserDirectory on SQLite.
type SQLiteUserDirectory struct {
	conn database.Connection
	now  func() time.Time
}

// NewSQLiteUserDirectory creates a new SQLiteUserDirectory.
func NewSQLiteUserDirectory(conn database.Connection) *SQLiteUserDirectory {
	return &SQLiteUserDirectory{conn: conn, now: time.Now}
}

func (r *SQLiteUserDirectory) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT id, name, email, role FROM users WHERE id = ?`, id,
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
func (r *SQLiteUserDirectory) Upsert(ctx context.Context, user *domain.User) error {
	now := sqlite.FormatTime(r.now())
	exec := database.ExecutorFromContext(ctx, r.conn)

	if user.ID == 0 {
		res, err := exec.Exec(ctx,
			`INSERT INTO users (name, email, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			user.Name, user.Email, string(user.Role), now, now)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		user.ID = id
		return nil
	}

	_, err := exec.Exec(ctx, `
		INSERT INTO users (id, name, email, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, email = excluded.email, role = excluded.role, updated_at = excluded.updated_at`,
		user.ID, user.Name, user.Email, string(user.Role), now, now)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", user.ID, err)
	}
	return nil
}
