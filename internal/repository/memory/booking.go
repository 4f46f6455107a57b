package memory

import (
	"context"
	"sort"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/google/uuid"
)

type bookingRepository struct {
	s *Store
}

func (r *bookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if err := booking.Validate(); err != nil {
		return err
	}

	defer r.s.lock(ctx)()

	if booking.ConfirmationCode != nil && r.codeInUse(*booking.ConfirmationCode, uuid.Nil) {
		return domain.ErrBookingStateChanged
	}

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	r.s.bookings[booking.ID] = clone(booking)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	defer r.s.lock(ctx)()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return clone(b), nil
}

// GetByIDForUpdate: внутри транзакции весь Store уже заблокирован
func (r *bookingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *bookingRepository) GetActiveByCode(ctx context.Context, code string) (*domain.Booking, error) {
	defer r.s.lock(ctx)()

	for _, b := range r.s.bookings {
		if b.IsActive() && b.ConfirmationCode != nil && *b.ConfirmationCode == code {
			return clone(b), nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

func (r *bookingRepository) GetLatestByLastCode(ctx context.Context, code string) (*domain.Booking, error) {
	defer r.s.lock(ctx)()

	var latest *domain.Booking
	for _, b := range r.s.bookings {
		if b.LastCode == nil || *b.LastCode != code {
			continue
		}
		if latest == nil || b.UpdatedAt.After(latest.UpdatedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, domain.ErrBookingNotFound
	}
	return clone(latest), nil
}

func (r *bookingRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	defer r.s.lock(ctx)()

	return r.codeInUse(code, uuid.Nil), nil
}

// codeInUse проверяет код среди активных бронирований, кроме except
func (r *bookingRepository) codeInUse(code string, except uuid.UUID) bool {
	for id, b := range r.s.bookings {
		if id == except {
			continue
		}
		if b.IsActive() && b.ConfirmationCode != nil && *b.ConfirmationCode == code {
			return true
		}
	}
	return false
}

func (r *bookingRepository) list(match func(*domain.Booking) bool, limit, offset int) []*domain.Booking {
	var bookings []*domain.Booking
	for _, b := range r.s.bookings {
		if match(b) {
			bookings = append(bookings, clone(b))
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return paginate(bookings, limit, offset)
}

func (r *bookingRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, limit, offset int) ([]*domain.Booking, error) {
	defer r.s.lock(ctx)()

	return r.list(func(b *domain.Booking) bool {
		return b.DriverID == driverID
	}, limit, offset), nil
}

func (r *bookingRepository) ListByStation(ctx context.Context, stationID uuid.UUID, status domain.BookingStatus, limit, offset int) ([]*domain.Booking, error) {
	defer r.s.lock(ctx)()

	return r.list(func(b *domain.Booking) bool {
		return b.StationID == stationID && (status == "" || b.Status == status)
	}, limit, offset), nil
}

func (r *bookingRepository) Transition(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) error {
	defer r.s.lock(ctx)()

	current, ok := r.s.bookings[booking.ID]
	if !ok || current.Status != expected {
		return domain.ErrBookingStateChanged
	}

	// Аналог частичного уникального индекса по активным кодам
	if booking.IsActive() && booking.ConfirmationCode != nil && r.codeInUse(*booking.ConfirmationCode, booking.ID) {
		return domain.ErrBookingStateChanged
	}

	booking.UpdatedAt = time.Now()
	r.s.bookings[booking.ID] = clone(booking)
	return nil
}
