package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
)

const pgMaintenanceColumns = `id, room_id, description, start_date, end_date, status, created_at, updated_at`

// PostgresMaintenanceRepository implements domain.MaintenanceRepository on PostgreSQL.
type PostgresMaintenanceRepository struct {
	conn database.Connection
}

// NewPostgresMaintenanceRepository creates a new PostgresMaintenanceRepository.
func NewPostgresMaintenanceRepository(conn database.Connection) *PostgresMaintenanceRepository {
	return &PostgresMaintenanceRepository{conn: conn}
}

func (r *PostgresMaintenanceRepository) Create(ctx context.Context, m *domain.Maintenance) error {
	var id int64
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, `
		INSERT INTO maintenance (room_id, description, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		m.RoomID(), m.Description(), m.StartDate(), m.EndDate(), string(m.Status()), m.CreatedAt(), m.UpdatedAt(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert maintenance: %w", err)
	}
	m.AssignID(id)
	return nil
}

func (r *PostgresMaintenanceRepository) FindByID(ctx context.Context, id int64) (*domain.Maintenance, error) {
	records, err := r.query(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find maintenance %d: %w", id, err)
	}
	if len(records) == 0 {
		return nil, domain.ErrMaintenanceNotFound
	}
	return records[0], nil
}

func (r *PostgresMaintenanceRepository) SaveStatus(ctx context.Context, m *domain.Maintenance) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE maintenance SET status = $1, updated_at = $2 WHERE id = $3`,
		string(m.Status()), m.UpdatedAt(), m.ID(),
	)
	if err != nil {
		return fmt.Errorf("save maintenance %d status: %w", m.ID(), err)
	}
	return requireOneRow(res, domain.ErrMaintenanceNotFound)
}

func (r *PostgresMaintenanceRepository) FindInProgressOverlapping(ctx context.Context, roomID int64, window domain.TimeRange) ([]*domain.Maintenance, error) {
	return r.query(ctx, `
		WHERE room_id = $1 AND status = 'in-progress' AND start_date < $2 AND end_date > $3
		ORDER BY start_date, id`,
		roomID, window.End, window.Start)
}

func (r *PostgresMaintenanceRepository) FindInProgressActive(ctx context.Context, roomID int64, at time.Time) ([]*domain.Maintenance, error) {
	return r.query(ctx, `
		WHERE room_id = $1 AND status = 'in-progress' AND start_date <= $2 AND end_date > $2
		ORDER BY start_date, id`,
		roomID, at)
}

func (r *PostgresMaintenanceRepository) ListOpenByRoom(ctx context.Context, roomID int64, from time.Time) ([]*domain.Maintenance, error) {
	return r.query(ctx, `
		WHERE room_id = $1 AND status IN ('scheduled', 'in-progress') AND end_date >= $2
		ORDER BY start_date, id`,
		roomID, from)
}

func (r *PostgresMaintenanceRepository) query(ctx context.Context, clause string, args ...any) ([]*domain.Maintenance, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+pgMaintenanceColumns+` FROM maintenance `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.Maintenance
	for rows.Next() {
		var (
			id, roomID           int64
			description, status  string
			start, end           time.Time
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&id, &roomID, &description, &start, &end, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		maintenanceStatus, err := domain.ParseMaintenanceStatus(status)
		if err != nil {
			return nil, fmt.Errorf("maintenance %d: %w", id, err)
		}
		records = append(records, domain.RehydrateMaintenance(id, roomID, description,
			start.UTC(), end.UTC(), maintenanceStatus, createdAt.UTC(), updatedAt.UTC()))
	}
	return records, rows.Err()
}
