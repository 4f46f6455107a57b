package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, driver_id, vehicle_id, station_id, status, confirmation_code, last_code,
	reserved_battery_id, reservation_expiry, confirmed_by, confirmed_at, completed_at,
	cancelled_at, cancel_reason, created_at, updated_at`

type bookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func scanBooking(row scanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(
		&b.ID,
		&b.DriverID,
		&b.VehicleID,
		&b.StationID,
		&b.Status,
		&b.ConfirmationCode,
		&b.LastCode,
		&b.ReservedBatteryID,
		&b.ReservationExpiry,
		&b.ConfirmedBy,
		&b.ConfirmedAt,
		&b.CompletedAt,
		&b.CancelledAt,
		&b.CancelReason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) queryList(ctx context.Context, query string, args ...any) ([]*domain.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if err := booking.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	_, err := conn(ctx, r.db).Exec(ctx, query,
		booking.ID,
		booking.DriverID,
		booking.VehicleID,
		booking.StationID,
		booking.Status,
		booking.ConfirmationCode,
		booking.LastCode,
		booking.ReservedBatteryID,
		booking.ReservationExpiry,
		booking.ConfirmedBy,
		booking.ConfirmedAt,
		booking.CompletedAt,
		booking.CancelledAt,
		booking.CancelReason,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	return err
}

func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.queryOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *bookingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.queryOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *bookingRepository) GetActiveByCode(ctx context.Context, code string) (*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE confirmation_code = $1 AND status IN ($2, $3)
	`
	return r.queryOne(ctx, query, code, domain.BookingPending, domain.BookingConfirmed)
}

func (r *bookingRepository) GetLatestByLastCode(ctx context.Context, code string) (*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE last_code = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return r.queryOne(ctx, query, code)
}

func (r *bookingRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE confirmation_code = $1 AND status IN ($2, $3)
		)
	`
	var exists bool
	err := conn(ctx, r.db).QueryRow(ctx, query, code, domain.BookingPending, domain.BookingConfirmed).Scan(&exists)
	return exists, err
}

func (r *bookingRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, limit, offset int) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE driver_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryList(ctx, query, driverID, limit, offset)
}

func (r *bookingRepository) ListByStation(ctx context.Context, stationID uuid.UUID, status domain.BookingStatus, limit, offset int) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE station_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	return r.queryList(ctx, query, stationID, string(status), limit, offset)
}

func (r *bookingRepository) Transition(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, confirmation_code = $2, last_code = $3, reserved_battery_id = $4,
			reservation_expiry = $5, confirmed_by = $6, confirmed_at = $7, completed_at = $8,
			cancelled_at = $9, cancel_reason = $10, updated_at = $11
		WHERE id = $12 AND status = $13
	`

	booking.UpdatedAt = time.Now()

	result, err := conn(ctx, r.db).Exec(ctx, query,
		booking.Status,
		booking.ConfirmationCode,
		booking.LastCode,
		booking.ReservedBatteryID,
		booking.ReservationExpiry,
		booking.ConfirmedBy,
		booking.ConfirmedAt,
		booking.CompletedAt,
		booking.CancelledAt,
		booking.CancelReason,
		booking.UpdatedAt,
		booking.ID,
		expected,
	)
	if err != nil {
		// Код занят другим активным бронированием
		if isUniqueViolation(err) {
			return domain.ErrBookingStateChanged
		}
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrBookingStateChanged
	}

	return nil
}
