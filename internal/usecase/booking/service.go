package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/infrastructure/notify"
	"github.com/frontandrew/swapstation/internal/pkg/codegen"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/pkg/metrics"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/frontandrew/swapstation/internal/usecase/battery"
	"github.com/frontandrew/swapstation/internal/usecase/subscription"
	"github.com/google/uuid"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Config - параметры бронирования
type Config struct {
	ReservationHorizon time.Duration
	CodeMaxAttempts    int
}

// Service управляет бронированиями обмена
type Service struct {
	tx          repository.Transactor
	bookingRepo repository.BookingRepository
	vehicleRepo repository.VehicleRepository
	batteries   *battery.Service
	ledger      *subscription.Service
	notifier    notify.Notifier
	logger      logger.Logger
	cfg         Config

	now      func() time.Time
	generate func() (string, error)
}

// NewService создает новый экземпляр BookingService
func NewService(
	tx repository.Transactor,
	bookingRepo repository.BookingRepository,
	vehicleRepo repository.VehicleRepository,
	batteries *battery.Service,
	ledger *subscription.Service,
	notifier notify.Notifier,
	logger logger.Logger,
	cfg Config,
) *Service {
	return &Service{
		tx:          tx,
		bookingRepo: bookingRepo,
		vehicleRepo: vehicleRepo,
		batteries:   batteries,
		ledger:      ledger,
		notifier:    notifier,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		generate:    codegen.Generate,
	}
}

// Create создает PENDING бронирование от имени водителя
func (s *Service) Create(ctx context.Context, identity domain.Identity, vehicleID, stationID uuid.UUID) (*domain.Booking, error) {
	if !identity.IsDriver() {
		return nil, domain.ErrForbidden
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.BelongsTo(identity.UserID) {
		return nil, domain.ErrVehicleNotOwned
	}
	if !vehicle.IsActive {
		return nil, domain.ErrVehicleInactive
	}

	booking := &domain.Booking{
		DriverID:  identity.UserID,
		VehicleID: vehicleID,
		StationID: stationID,
		Status:    domain.BookingPending,
	}
	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		metrics.BookingOperationsTotal.WithLabelValues("create", metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	metrics.BookingOperationsTotal.WithLabelValues("create", metrics.ResultOK).Inc()
	s.logger.Info("Booking created", map[string]interface{}{
		"booking_id": booking.ID,
		"driver_id":  booking.DriverID,
		"station_id": booking.StationID,
	})

	return booking, nil
}

// Confirm подтверждает бронирование сотрудником станции.
// В одной транзакции: резерв батареи, выдача кода, списание обмена, перевод в CONFIRMED.
// Любая ошибка откатывает все шаги.
func (s *Service) Confirm(ctx context.Context, identity domain.Identity, bookingID uuid.UUID) (*domain.Booking, error) {
	if !identity.IsStaff() {
		return nil, domain.ErrForbidden
	}

	var confirmed *domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// ШАГ 1: Блокируем бронирование
		booking, err := s.bookingRepo.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != domain.BookingPending {
			return domain.ErrBookingNotPending
		}

		vehicle, err := s.vehicleRepo.GetByID(ctx, booking.VehicleID)
		if err != nil {
			return err
		}

		now := s.now()
		expiry := now.Add(s.cfg.ReservationHorizon)

		// ШАГ 2: Резервируем лучший блок на станции
		unit, err := s.batteries.ReserveForBooking(ctx, booking.StationID, vehicle.BatteryModel, booking.ID, expiry)
		if err != nil {
			return err
		}

		// ШАГ 3: Код, не занятый другим активным бронированием
		code, err := s.uniqueCode(ctx)
		if err != nil {
			return err
		}

		// ШАГ 4: Списываем обмен по подписке
		if _, err := s.ledger.ConsumeOne(ctx, booking.DriverID); err != nil {
			return err
		}

		// ШАГ 5: PENDING -> CONFIRMED
		booking.Confirm(identity.UserID, unit.ID, code, expiry, now)
		if err := s.bookingRepo.Transition(ctx, booking, domain.BookingPending); err != nil {
			return err
		}

		confirmed = booking
		return nil
	})
	if err != nil {
		s.recordFailure("confirm", bookingID, err)
		return nil, err
	}

	metrics.BookingOperationsTotal.WithLabelValues("confirm", metrics.ResultOK).Inc()
	s.logger.Info("Booking confirmed", map[string]interface{}{
		"booking_id": confirmed.ID,
		"battery_id": *confirmed.ReservedBatteryID,
		"staff_id":   identity.UserID,
		"expires_at": *confirmed.ReservationExpiry,
	})

	s.notifier.Notify(ctx, domain.Notification{
		Recipient: confirmed.DriverID.String(),
		Kind:      domain.NotifyBookingConfirmed,
		Payload: map[string]interface{}{
			"booking_id":         confirmed.ID,
			"station_id":         confirmed.StationID,
			"confirmation_code":  *confirmed.ConfirmationCode,
			"reservation_expiry": *confirmed.ReservationExpiry,
		},
	})

	return confirmed, nil
}

// uniqueCode генерирует код, которого нет среди активных бронирований.
// Частичный уникальный индекс в БД страхует от гонки между проверкой и записью.
func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.cfg.CodeMaxAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return "", err
		}

		inUse, err := s.bookingRepo.CodeInUse(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check confirmation code: %w", err)
		}
		if !inUse {
			return code, nil
		}
	}

	s.logger.Error("Confirmation code space exhausted", map[string]interface{}{
		"attempts": s.cfg.CodeMaxAttempts,
	})
	return "", domain.ErrCodeSpaceExhausted
}

// Cancel отменяет PENDING бронирование (владелец, сотрудник или администратор)
func (s *Service) Cancel(ctx context.Context, identity domain.Identity, bookingID uuid.UUID, reason string) (*domain.Booking, error) {
	var cancelled *domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookingRepo.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !identity.CanAct(booking.DriverID) {
			return domain.ErrForbidden
		}
		if booking.Status != domain.BookingPending {
			return domain.ErrBookingNotPending
		}

		if reason == "" {
			reason = domain.CancelReasonDriver
			if identity.IsStaff() {
				reason = domain.CancelReasonStaff
			}
		}

		booking.Cancel(reason, s.now())
		if err := s.bookingRepo.Transition(ctx, booking, domain.BookingPending); err != nil {
			return err
		}

		cancelled = booking
		return nil
	})
	if err != nil {
		s.recordFailure("cancel", bookingID, err)
		return nil, err
	}

	metrics.BookingOperationsTotal.WithLabelValues("cancel", metrics.ResultOK).Inc()
	s.logger.Info("Booking cancelled", map[string]interface{}{
		"booking_id": cancelled.ID,
		"by":         identity.UserID,
		"reason":     cancelled.CancelReason,
	})

	s.notifier.Notify(ctx, domain.Notification{
		Recipient: cancelled.DriverID.String(),
		Kind:      domain.NotifyBookingCancelled,
		Payload: map[string]interface{}{
			"booking_id": cancelled.ID,
			"reason":     cancelled.CancelReason,
		},
	})

	return cancelled, nil
}

// Get возвращает бронирование владельцу или сотруднику
func (s *Service) Get(ctx context.Context, identity domain.Identity, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !identity.CanAct(booking.DriverID) {
		return nil, domain.ErrForbidden
	}
	return booking, nil
}

// ListMine возвращает бронирования текущего водителя
func (s *Service) ListMine(ctx context.Context, identity domain.Identity, limit, offset int) ([]*domain.Booking, error) {
	limit, offset = normalizePage(limit, offset)
	return s.bookingRepo.ListByDriver(ctx, identity.UserID, limit, offset)
}

// ListByStation возвращает бронирования станции (только для сотрудников)
func (s *Service) ListByStation(ctx context.Context, identity domain.Identity, stationID uuid.UUID, status domain.BookingStatus, limit, offset int) ([]*domain.Booking, error) {
	if !identity.IsStaff() {
		return nil, domain.ErrForbidden
	}
	limit, offset = normalizePage(limit, offset)
	return s.bookingRepo.ListByStation(ctx, stationID, status, limit, offset)
}

func (s *Service) recordFailure(operation string, bookingID uuid.UUID, err error) {
	result := metrics.ResultError
	if errors.Is(err, domain.ErrConflict) {
		result = metrics.ResultConflict
	}
	metrics.BookingOperationsTotal.WithLabelValues(operation, result).Inc()

	fields := map[string]interface{}{
		"booking_id": bookingID,
		"error":      err,
	}
	if errors.Is(err, domain.ErrExhausted) {
		s.logger.Error("Booking "+operation+" failed", fields)
		return
	}
	s.logger.Info("Booking "+operation+" rejected", fields)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
