package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database/sqlite"
)

const sqliteBookingColumns = `id, room_id, user_id, start_time, end_time, purpose, status, created_at, updated_at`

// SQLiteBookingRepository implements domain.BookingRepository on SQLite.
type SQLiteBookingRepository struct {
	conn database.Connection
}

// NewSQLiteBookingRepository creates a new SQLiteBookingRepository.
func NewSQLiteBookingRepository(conn database.Connection) *SQLiteBookingRepository {
	return &SQLiteBookingRepository{conn: conn}
}

func (r *SQLiteBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO bookings (room_id, user_id, start_time, end_time, purpose, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.RoomID(), b.UserID(), sqlite.FormatTime(b.StartTime()), sqlite.FormatTime(b.EndTime()),
		b.Purpose(), string(b.Status()), sqlite.FormatTime(b.CreatedAt()), sqlite.FormatTime(b.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.AssignID(id)
	return nil
}

func (r *SQLiteBookingRepository) FindByID(ctx context.Context, id int64) (*domain.Booking, error) {
	bookings, err := r.query(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("find booking %d: %w", id, err)
	}
	if len(bookings) == 0 {
		return nil, domain.ErrBookingNotFound
	}
	return bookings[0], nil
}

func (r *SQLiteBookingRepository) SaveStatus(ctx context.Context, b *domain.Booking) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		string(b.Status()), sqlite.FormatTime(b.UpdatedAt()), b.ID(),
	)
	if err != nil {
		return fmt.Errorf("save booking %d status: %w", b.ID(), err)
	}
	return requireOneRow(res, domain.ErrBookingNotFound)
}

func (r *SQLiteBookingRepository) FindApprovedOverlapping(ctx context.Context, roomID int64, window domain.TimeRange) ([]*domain.Booking, error) {
	return r.query(ctx, `
		WHERE room_id = ? AND status = 'approved' AND start_time < ? AND end_time > ?
		ORDER BY start_time, id`,
		roomID, sqlite.FormatTime(window.End), sqlite.FormatTime(window.Start))
}

func (r *SQLiteBookingRepository) FindApprovedActive(ctx context.Context, roomID int64, at time.Time) ([]*domain.Booking, error) {
	ts := sqlite.FormatTime(at)
	return r.query(ctx, `
		WHERE room_id = ? AND status = 'approved' AND start_time <= ? AND end_time > ?
		ORDER BY start_time, id`,
		roomID, ts, ts)
}

func (r *SQLiteBookingRepository) FindNextApproved(ctx context.Context, roomID int64, at time.Time) (*domain.Booking, error) {
	bookings, err := r.query(ctx, `
		WHERE room_id = ? AND status = 'approved' AND start_time > ?
		ORDER BY start_time, id
		LIMIT 1`,
		roomID, sqlite.FormatTime(at))
	if err != nil || len(bookings) == 0 {
		return nil, err
	}
	return bookings[0], nil
}

func (r *SQLiteBookingRepository) FindApprovedEndedBefore(ctx context.Context, t time.Time) ([]*domain.Booking, error) {
	return r.query(ctx, `WHERE status = 'approved' AND end_time < ? ORDER BY end_time, id`, sqlite.FormatTime(t))
}

func (r *SQLiteBookingRepository) ListUpcomingByRoom(ctx context.Context, roomID int64, from time.Time) ([]*domain.Booking, error) {
	return r.query(ctx, `
		WHERE room_id = ? AND status IN ('pending', 'approved') AND end_time >= ?
		ORDER BY start_time, id`,
		roomID, sqlite.FormatTime(from))
}

func (r *SQLiteBookingRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Booking, error) {
	return r.query(ctx, `WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

func (r *SQLiteBookingRepository) query(ctx context.Context, clause string, args ...any) ([]*domain.Booking, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+sqliteBookingColumns+` FROM bookings `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		var (
			id, roomID, userID          int64
			start, end, purpose, status string
			createdAt, updatedAt        string
		)
		if err := rows.Scan(&id, &roomID, &userID, &start, &end, &purpose, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		bookingStatus, err := domain.ParseBookingStatus(status)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", id, err)
		}
		var td timeDecoder
		s, e, c, u := td.decode(start), td.decode(end), td.decode(createdAt), td.decode(updatedAt)
		if td.err != nil {
			return nil, fmt.Errorf("booking %d: %w", id, td.err)
		}
		bookings = append(bookings, domain.RehydrateBooking(id, roomID, userID, s, e, purpose, bookingStatus, c, u))
	}
	return bookings, rows.Err()
}
