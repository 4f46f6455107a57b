package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/infrastructure/notify"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/pkg/metrics"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/frontandrew/swapstation/internal/usecase/battery"
	"github.com/google/uuid"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service выполняет обмен аккумулятора по коду подтверждения
type Service struct {
	tx          repository.Transactor
	bookingRepo repository.BookingRepository
	batteryRepo repository.BatteryRepository
	swapRepo    repository.SwapTransactionRepository
	batteries   *battery.Service
	notifier    notify.Notifier
	logger      logger.Logger

	now func() time.Time
}

// NewService создает новый экземпляр SwapService
func NewService(
	tx repository.Transactor,
	bookingRepo repository.BookingRepository,
	batteryRepo repository.BatteryRepository,
	swapRepo repository.SwapTransactionRepository,
	batteries *battery.Service,
	notifier notify.Notifier,
	logger logger.Logger,
) *Service {
	return &Service{
		tx:          tx,
		bookingRepo: bookingRepo,
		batteryRepo: batteryRepo,
		swapRepo:    swapRepo,
		batteries:   batteries,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// Redeem выполняет обмен по коду: выдает зарезервированный блок, принимает снятый,
// пишет запись в журнал и завершает бронирование. Все шаги - одна транзакция.
// Обмен по подписке уже списан при подтверждении, здесь баланс не трогается.
func (s *Service) Redeem(ctx context.Context, rawCode string) (*domain.SwapTransaction, error) {
	code, err := domain.NormalizeConfirmationCode(rawCode)
	if err != nil {
		metrics.RedeemAttemptsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	start := s.now()
	var (
		record    *domain.SwapTransaction
		completed *domain.Booking
	)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// ШАГ 1: Бронирование по коду
		booking, err := s.findByCode(ctx, code)
		if err != nil {
			return err
		}

		booking, err = s.bookingRepo.GetByIDForUpdate(ctx, booking.ID)
		if err != nil {
			return err
		}
		if booking.Status != domain.BookingConfirmed {
			return domain.ErrBookingNotConfirmed
		}
		// Просроченный резерв не выдается, даже если проверка истечения еще не прошла
		if booking.ReservationExpired(start) {
			return domain.ErrReservationExpired
		}

		// ШАГ 2: Зарезервированный блок
		incoming, err := s.batteryRepo.GetReservedForBooking(ctx, booking.ID)
		if err != nil {
			return err
		}
		if incoming.StateOfHealth < domain.HealthHardFloor {
			return domain.ErrBatteryUnfit
		}

		// ШАГ 3: Снимки до изменения
		mounted, err := s.batteryRepo.GetMountedOnVehicle(ctx, booking.VehicleID)
		if err != nil {
			return fmt.Errorf("failed to get mounted battery: %w", err)
		}

		out := incoming.Snapshot()
		var in *domain.BatterySnapshot
		if mounted != nil {
			snap := mounted.Snapshot()
			in = &snap
		}

		// ШАГ 4: Снимаем прежний блок на станцию.
		// На автомобиле не может быть двух блоков, поэтому снятие идет до установки.
		if mounted != nil {
			if err := s.batteries.ReleaseToStation(ctx, mounted, booking.StationID); err != nil {
				return err
			}
		}

		// ШАГ 5: Устанавливаем выданный блок
		if err := s.batteries.Mount(ctx, incoming, booking.ID, booking.VehicleID); err != nil {
			return err
		}

		// ШАГ 6: Запись в журнал
		end := s.now()
		record = domain.NewSwapTransaction(booking, out, in, start, end)
		if err := s.swapRepo.Create(ctx, record); err != nil {
			return fmt.Errorf("failed to record swap: %w", err)
		}

		// ШАГ 7: CONFIRMED -> COMPLETED, код освобождается
		booking.Complete(end)
		if err := s.bookingRepo.Transition(ctx, booking, domain.BookingConfirmed); err != nil {
			return err
		}

		completed = booking
		return nil
	})
	if err != nil {
		s.recordFailure(code, err)
		return nil, err
	}

	metrics.RedeemAttemptsTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.SwapsCompletedTotal.Inc()
	s.logger.Info("Swap completed", map[string]interface{}{
		"booking_id":     completed.ID,
		"transaction_id": record.ID,
		"vehicle_id":     record.VehicleID,
		"swap_out":       record.SwapOutBatteryID,
	})

	s.notifier.Notify(ctx, domain.Notification{
		Recipient: completed.DriverID.String(),
		Kind:      domain.NotifySwapCompleted,
		Payload: map[string]interface{}{
			"booking_id":     completed.ID,
			"transaction_id": record.ID,
			"station_id":     record.StationID,
			"battery_id":     record.SwapOutBatteryID,
			"charge_level":   record.SwapOutBatteryChargeLevel,
		},
	})

	return record, nil
}

// findByCode ищет активное бронирование с кодом; если его нет, проверяет,
// не был ли код уже погашен или отменен.
func (s *Service) findByCode(ctx context.Context, code string) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetActiveByCode(ctx, code)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, domain.ErrBookingNotFound) {
		return nil, err
	}

	previous, err := s.bookingRepo.GetLatestByLastCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if previous.IsTerminal() {
		return nil, domain.ErrCodeAlreadyRedeemed
	}
	return nil, domain.ErrBookingNotFound
}

func (s *Service) recordFailure(code string, err error) {
	result := metrics.ResultError
	if errors.Is(err, domain.ErrConflict) {
		result = metrics.ResultConflict
	}
	metrics.RedeemAttemptsTotal.WithLabelValues(result).Inc()

	s.logger.Info("Swap redeem rejected", map[string]interface{}{
		"code":  maskCode(code),
		"error": err,
	})
}

// maskCode оставляет в логе только буквенную часть кода
func maskCode(code string) string {
	if len(code) <= 3 {
		return "***"
	}
	return code[:3] + "***"
}

// History возвращает журнал обменов водителя.
// Водитель видит только свои записи; сотрудник может указать driverID.
func (s *Service) History(ctx context.Context, identity domain.Identity, driverID uuid.UUID, limit, offset int) ([]*domain.SwapTransaction, error) {
	if driverID == uuid.Nil {
		driverID = identity.UserID
	}
	if !identity.CanAct(driverID) {
		return nil, domain.ErrForbidden
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	return s.swapRepo.ListByDriver(ctx, driverID, limit, offset)
}

// GetTransaction возвращает запись журнала владельцу или сотруднику
func (s *Service) GetTransaction(ctx context.Context, identity domain.Identity, id uuid.UUID) (*domain.SwapTransaction, error) {
	record, err := s.swapRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !identity.CanAct(record.DriverID) {
		return nil, domain.ErrForbidden
	}
	return record, nil
}
