package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database/sqlite"
)

const sqliteRoomColumns = `id, name, category_id, capacity, building, floor, features, status, created_at, updated_at`

// SQLiteRoomRepository implements domain.RoomRepository on SQLite.
type SQLiteRoomRepository struct {
	conn database.Connection
}

// NewSQLiteRoomRepository creates a new SQLiteRoomRepository.
func NewSQLiteRoomRepository(conn database.Connection) *SQLiteRoomRepository {
	return &SQLiteRoomRepository{conn: conn}
}

func (r *SQLiteRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	features, err := encodeFeatures(room.Features())
	if err != nil {
		return err
	}
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO rooms (name, category_id, capacity, building, floor, features, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.Name(), room.CategoryID(), room.Capacity(), room.Building(), room.Floor(), features,
		string(room.Status()), sqlite.FormatTime(room.CreatedAt()), sqlite.FormatTime(room.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	room.AssignID(id)
	return nil
}

func (r *SQLiteRoomRepository) FindByID(ctx context.Context, id int64) (*domain.Room, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+sqliteRoomColumns+` FROM rooms WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("find room %d: %w", id, err)
	}
	rooms, err := scanSQLiteRooms(rows)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, domain.ErrRoomNotFound
	}
	return rooms[0], nil
}

func (r *SQLiteRoomRepository) List(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.CategoryID != 0 {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}

	query := `SELECT ` + sqliteRoomColumns + ` FROM rooms`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return scanSQLiteRooms(rows)
}

func (r *SQLiteRoomRepository) SaveStatus(ctx context.Context, room *domain.Room) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE rooms SET status = ?, updated_at = ? WHERE id = ?`,
		string(room.Status()), sqlite.FormatTime(room.UpdatedAt()), room.ID(),
	)
	if err != nil {
		return fmt.Errorf("save room %d status: %w", room.ID(), err)
	}
	return requireOneRow(res, domain.ErrRoomNotFound)
}

func scanSQLiteRooms(rows database.Rows) ([]*domain.Room, error) {
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		var (
			id                   int64
			details              domain.RoomDetails
			features, status     string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&id, &details.Name, &details.CategoryID, &details.Capacity, &details.Building,
			&details.Floor, &features, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		var err error
		if details.Features, err = decodeFeatures(features); err != nil {
			return nil, fmt.Errorf("room %d features: %w", id, err)
		}
		roomStatus, err := domain.ParseRoomStatus(status)
		if err != nil {
			return nil, fmt.Errorf("room %d: %w", id, err)
		}
		var td timeDecoder
		created, updated := td.decode(createdAt), td.decode(updatedAt)
		if td.err != nil {
			return nil, td.err
		}
		rooms = append(rooms, domain.RehydrateRoom(id, details, roomStatus, created, updated))
	}
	return rooms, rows.Err()
}

func requireOneRow(res database.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
