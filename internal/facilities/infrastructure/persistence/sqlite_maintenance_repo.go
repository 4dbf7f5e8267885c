package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database/sqlite"
)

const sqliteMaintenanceColumns = `id, room_id, description, start_date, end_date, status, created_at, updated_at`

// SQLiteMaintenanceRepository implements domain.MaintenanceRepository on SQLite.
type SQLiteMaintenanceRepository struct {
	conn database.Connection
}

// NewSQLiteMaintenanceRepository creates a new SQLiteMaintenanceRepository.
func NewSQLiteMaintenanceRepository(conn database.Connection) *SQLiteMaintenanceRepository {
	return &SQLiteMaintenanceRepository{conn: conn}
}

func (r *SQLiteMaintenanceRepository) Create(ctx context.Context, m *domain.Maintenance) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO maintenance (room_id, description, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RoomID(), m.Description(), sqlite.FormatTime(m.StartDate()), sqlite.FormatTime(m.EndDate()),
		string(m.Status()), sqlite.FormatTime(m.CreatedAt()), sqlite.FormatTime(m.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("insert maintenance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.AssignID(id)
	return nil
}

func (r *SQLiteMaintenanceRepository) FindByID(ctx context.Context, id int64) (*domain.Maintenance, error) {
	records, err := r.query(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("find maintenance %d: %w", id, err)
	}
	if len(records) == 0 {
		return nil, domain.ErrMaintenanceNotFound
	}
	return records[0], nil
}

func (r *SQLiteMaintenanceRepository) SaveStatus(ctx context.Context, m *domain.Maintenance) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE maintenance SET status = ?, updated_at = ? WHERE id = ?`,
		string(m.Status()), sqlite.FormatTime(m.UpdatedAt()), m.ID(),
	)
	if err != nil {
		return fmt.Errorf("save maintenance %d status: %w", m.ID(), err)
	}
	return requireOneRow(res, domain.ErrMaintenanceNotFound)
}

func (r *SQLiteMaintenanceRepository) FindInProgressOverlapping(ctx context.Context, roomID int64, window domain.TimeRange) ([]*domain.Maintenance, error) {
	return r.query(ctx, `
		WHERE room_id = ? AND status = 'in-progress' AND start_date < ? AND end_date > ?
		ORDER BY start_date, id`,
		roomID, sqlite.FormatTime(window.End), sqlite.FormatTime(window.Start))
}

func (r *SQLiteMaintenanceRepository) FindInProgressActive(ctx context.Context, roomID int64, at time.Time) ([]*domain.Maintenance, error) {
	ts := sqlite.FormatTime(at)
	return r.query(ctx, `
		WHERE room_id = ? AND status = 'in-progress' AND start_date <= ? AND end_date > ?
		ORDER BY start_date, id`,
		roomID, ts, ts)
}

func (r *SQLiteMaintenanceRepository) ListOpenByRoom(ctx context.Context, roomID int64, from time.Time) ([]*domain.Maintenance, error) {
	return r.query(ctx, `
		WHERE room_id = ? AND status IN ('scheduled', 'in-progress') AND end_date >= ?
		ORDER BY start_date, id`,
		roomID, sqlite.FormatTime(from))
}

func (r *SQLiteMaintenanceRepository) query(ctx context.Context, clause string, args ...any) ([]*domain.Maintenance, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+sqliteMaintenanceColumns+` FROM maintenance `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.Maintenance
	for rows.Next() {
		var (
			id, roomID                      int64
			description, start, end, status string
			createdAt, updatedAt            string
		)
		if err := rows.Scan(&id, &roomID, &description, &start, &end, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		maintenanceStatus, err := domain.ParseMaintenanceStatus(status)
		if err != nil {
			return nil, fmt.Errorf("maintenance %d: %w", id, err)
		}
		var td timeDecoder
		s, e, c, u := td.decode(start), td.decode(end), td.decode(createdAt), td.decode(updatedAt)
		if td.err != nil {
			return nil, fmt.Errorf("maintenance %d: %w", id, td.err)
		}
		records = append(records, domain.RehydrateMaintenance(id, roomID, description, s, e, maintenanceStatus, c, u))
	}
	return records, rows.Err()
}
