package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
)

const (
	pgBookingColumns = `id, room_id, user_id, start_time, end_time, purpose, status, created_at, updated_at`

	// approvedOverlapConstraint is the EXCLUDE constraint backing the
	// no-double-booking rule for concurrent writers.
	approvedOverlapConstraint = "bookings_no_approved_overlap"
)

// PostgresBookingRepository implements domain.BookingRepository on PostgreSQL.
type PostgresBookingRepository struct {
	conn database.Connection
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository.
func NewPostgresBookingRepository(conn database.Connection) *PostgresBookingRepository {
	return &PostgresBookingRepository{conn: conn}
}

func (r *PostgresBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	var id int64
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx, `
		INSERT INTO bookings (room_id, user_id, start_time, end_time, purpose, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		b.RoomID(), b.UserID(), b.StartTime(), b.EndTime(), b.Purpose(), string(b.Status()), b.CreatedAt(), b.UpdatedAt(),
	).Scan(&id)
	if err != nil {
		return translateBookingWrite(err, "insert booking")
	}
	b.AssignID(id)
	return nil
}

func (r *PostgresBookingRepository) FindByID(ctx context.Context, id int64) (*domain.Booking, error) {
	bookings, err := r.query(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find booking %d: %w", id, err)
	}
	if len(bookings) == 0 {
		return nil, domain.ErrBookingNotFound
	}
	return bookings[0], nil
}

func (r *PostgresBookingRepository) SaveStatus(ctx context.Context, b *domain.Booking) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`,
		string(b.Status()), b.UpdatedAt(), b.ID(),
	)
	if err != nil {
		return translateBookingWrite(err, fmt.Sprintf("save booking %d status", b.ID()))
	}
	return requireOneRow(res, domain.ErrBookingNotFound)
}

func (r *PostgresBookingRepository) FindApprovedOverlapping(ctx context.Context, roomID int64, window domain.TimeRange) ([]*domain.Booking, error) {
	return r.query(ctx, `
		WHERE room_id = $1 AND status = 'approved' AND start_time < $2 AND end_time > $3
		ORDER BY start_time, id`,
		roomID, window.End, window.Start)
}

func (r *PostgresBookingRepository) FindApprovedActive(ctx context.Context, roomID int64, at time.Time) ([]*domain.Booking, error) {
	return r.query(ctx, `
		WHERE room_id = $1 AND status = 'approved' AND start_time <= $2 AND end_time > $2
		ORDER BY start_time, id`,
		roomID, at)
}

func (r *PostgresBookingRepository) FindNextApproved(ctx context.Context, roomID int64, at time.Time) (*domain.Booking, error) {
	bookings, err := r.query(ctx, `
		WHERE room_id = $1 AND status = 'approved' AND start_time > $2
		ORDER BY start_time, id
		LIMIT 1`,
		roomID, at)
	if err != nil || len(bookings) == 0 {
		return nil, err
	}
	return bookings[0], nil
}

func (r *PostgresBookingRepository) FindApprovedEndedBefore(ctx context.Context, t time.Time) ([]*domain.Booking, error) {
	return r.query(ctx, `WHERE status = 'approved' AND end_time < $1 ORDER BY end_time, id`, t)
}

func (r *PostgresBookingRepository) ListUpcomingByRoom(ctx context.Context, roomID int64, from time.Time) ([]*domain.Booking, error) {
	return r.query(ctx, `
		WHERE room_id = $1 AND status IN ('pending', 'approved') AND end_time >= $2
		ORDER BY start_time, id`,
		roomID, from)
}

func (r *PostgresBookingRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Booking, error) {
	return r.query(ctx, `WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

func (r *PostgresBookingRepository) query(ctx context.Context, clause string, args ...any) ([]*domain.Booking, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx,
		`SELECT `+pgBookingColumns+` FROM bookings `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		var (
			id, roomID, userID   int64
			start, end           time.Time
			purpose, status      string
			createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&id, &roomID, &userID, &start, &end, &purpose, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		bookingStatus, err := domain.ParseBookingStatus(status)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", id, err)
		}
		bookings = append(bookings, domain.RehydrateBooking(id, roomID, userID,
			start.UTC(), end.UTC(), purpose, bookingStatus, createdAt.UTC(), updatedAt.UTC()))
	}
	return bookings, rows.Err()
}

// translateBookingWrite maps the overlap constraint to the domain conflict.
func translateBookingWrite(err error, op string) error {
	if database.IsExclusionViolation(err, approvedOverlapConstraint) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrRoomAlreadyBooked, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
