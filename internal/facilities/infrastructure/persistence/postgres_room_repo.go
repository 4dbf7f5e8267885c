package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
	"github.com/lib/pq"
)

const pgRoomColumns = `id, name, category_id, capacity, building, floor, features, status, created_at, updated_at`

// PostgresRoomRepository implements domain.RoomRepository on PostgreSQL.
type PostgresRoomRepository struct {
	conn database.Connection
}

// NewPostgresRoomRepository creates a new PostgresRoomRepository.
func NewPostgresRoomRepository(conn database.Connection) *PostgresRoomRepository {
	return &PostgresRoomRepository{conn: conn}
}

func (r *PostgresRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	var id int64
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, `
		INSERT INTO rooms (name, category_id, capacity, building, floor, features, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		room.Name(), room.CategoryID(), room.Capacity(), room.Building(), room.Floor(),
		pq.StringArray(nonNilStrings(room.Features())), string(room.Status()), room.CreatedAt(), room.UpdatedAt(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	room.AssignID(id)
	return nil
}

func (r *PostgresRoomRepository) FindByID(ctx context.Context, id int64) (*domain.Room, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+pgRoomColumns+` FROM rooms WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find room %d: %w", id, err)
	}
	rooms, err := scanPgRooms(rows)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, domain.ErrRoomNotFound
	}
	return rooms[0], nil
}

func (r *PostgresRoomRepository) List(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		where = append(where, "category_id = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + pgRoomColumns + ` FROM rooms`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return scanPgRooms(rows)
}

func (r *PostgresRoomRepository) SaveStatus(ctx context.Context, room *domain.Room) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE rooms SET status = $1, updated_at = $2 WHERE id = $3`,
		string(room.Status()), room.UpdatedAt(), room.ID(),
	)
	if err != nil {
		return fmt.Errorf("save room %d status: %w", room.ID(), err)
	}
	return requireOneRow(res, domain.ErrRoomNotFound)
}

func scanPgRooms(rows database.Rows) ([]*domain.Room, error) {
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		var (
			id                   int64
			details              domain.RoomDetails
			features             pq.StringArray
			status               string
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&id, &details.Name, &details.CategoryID, &details.Capacity, &details.Building,
			&details.Floor, &features, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		roomStatus, err := domain.ParseRoomStatus(status)
		if err != nil {
			return nil, fmt.Errorf("room %d: %w", id, err)
		}
		details.Features = []string(features)
		rooms = append(rooms, domain.RehydrateRoom(id, details, roomStatus, createdAt.UTC(), updatedAt.UTC()))
	}
	return rooms, rows.Err()
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
