package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/infrastructure/notify"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/frontandrew/swapstation/internal/usecase/battery"
	"github.com/frontandrew/swapstation/internal/usecase/subscription"
	"github.com/google/uuid"
)

// Config - параметры фоновых проверок
type Config struct {
	BatchSize           int
	ApprovalWindow      time.Duration
	ExtraPenalty        bool   // повторно списывать обмен при неявке
	OperationsRecipient string // получатель предупреждений о здоровье батарей
}

// Result - итог одного прохода задачи
type Result struct {
	Processed int // записи, состояние которых изменено
	Skipped   int // записи, которые уже изменил кто-то другой
	Failed    int // ошибки, проход продолжился
}

func (r *Result) add(err error) {
	switch {
	case err == nil:
		r.Processed++
	case errors.Is(err, domain.ErrConflict):
		r.Skipped++
	default:
		r.Failed++
	}
}

// Service выполняет периодические проверки состояния.
// Каждая запись обрабатывается в собственной транзакции; ошибка по записи
// логируется с ее ID и не прерывает проход.
type Service struct {
	tx               repository.Transactor
	batteryRepo      repository.BatteryRepository
	bookingRepo      repository.BookingRepository
	registrationRepo repository.RegistrationRepository
	batteries        *battery.Service
	ledger           *subscription.Service
	notifier         notify.Notifier
	logger           logger.Logger
	cfg              Config

	now func() time.Time
}

// NewService создает новый экземпляр ReconcileService
func NewService(
	tx repository.Transactor,
	batteryRepo repository.BatteryRepository,
	bookingRepo repository.BookingRepository,
	registrationRepo repository.RegistrationRepository,
	batteries *battery.Service,
	ledger *subscription.Service,
	notifier notify.Notifier,
	logger logger.Logger,
	cfg Config,
) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &Service{
		tx:               tx,
		batteryRepo:      batteryRepo,
		bookingRepo:      bookingRepo,
		registrationRepo: registrationRepo,
		batteries:        batteries,
		ledger:           ledger,
		notifier:         notifier,
		logger:           logger,
		cfg:              cfg,
		now:              time.Now,
	}
}

// ExpireReservations освобождает блоки с истекшим резервом.
// Подтвержденное бронирование отменяется с причиной no-show, блок возвращается в AVAILABLE.
func (s *Service) ExpireReservations(ctx context.Context) (Result, error) {
	var result Result
	now := s.now()

	units, err := s.batteryRepo.ListExpiredReservations(ctx, now, s.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	for _, unit := range units {
		expired, err := s.expireReservation(ctx, unit, now)
		result.add(err)
		if err != nil {
			s.itemFailed("booking-expiry", "battery_id", unit.ID, err)
			continue
		}

		if expired == nil {
			continue
		}
		s.notifier.Notify(ctx, domain.Notification{
			Recipient: expired.DriverID.String(),
			Kind:      domain.NotifyBookingExpired,
			Payload: map[string]interface{}{
				"booking_id": expired.ID,
				"station_id": expired.StationID,
				"reason":     expired.CancelReason,
			},
		})
	}

	return result, nil
}

// expireReservation возвращает отмененное бронирование или nil,
// если бронирование уже не было подтвержденным
func (s *Service) expireReservation(ctx context.Context, unit *domain.BatteryUnit, now time.Time) (*domain.Booking, error) {
	if unit.ReservedForBooking == nil {
		return nil, domain.ErrBatteryStateChanged
	}
	bookingID := *unit.ReservedForBooking

	var expired *domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookingRepo.GetByIDForUpdate(ctx, bookingID)
		if err != nil && !errors.Is(err, domain.ErrBookingNotFound) {
			return err
		}

		if booking != nil && booking.Status == domain.BookingConfirmed {
			booking.Cancel(domain.CancelReasonNoShow, now)
			if err := s.bookingRepo.Transition(ctx, booking, domain.BookingConfirmed); err != nil {
				return err
			}

			if s.cfg.ExtraPenalty {
				if _, err := s.ledger.ConsumeOne(ctx, booking.DriverID); err != nil && !errors.Is(err, domain.ErrNoActiveCredit) {
					return err
				}
			}
			expired = booking
		}

		return s.batteryRepo.ReleaseReservation(ctx, unit.ID, bookingID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Battery reservation expired", map[string]interface{}{
		"battery_id": unit.ID,
		"booking_id": bookingID,
		"cancelled":  expired != nil,
	})
	return expired, nil
}

// ChargeBatteries начисляет заряд всем заряжающимся блокам
func (s *Service) ChargeBatteries(ctx context.Context) (Result, error) {
	var result Result

	for offset := 0; ; {
		units, err := s.batteryRepo.ListByStatus(ctx, domain.BatteryCharging, s.cfg.BatchSize, offset)
		if err != nil {
			return result, fmt.Errorf("failed to list charging batteries: %w", err)
		}

		left := 0
		for _, unit := range units {
			var outcome battery.ChargeOutcome
			err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
				var err error
				outcome, err = s.batteries.Charge(ctx, unit)
				return err
			})
			result.add(err)
			if err != nil {
				s.itemFailed("auto-charge", "battery_id", unit.ID, err)
				continue
			}

			switch outcome.Status {
			case domain.BatteryCharging:
			case domain.BatteryMaintenance:
				left++
				s.logger.Warn("Charged battery routed to maintenance", map[string]interface{}{
					"battery_id": unit.ID,
					"health":     unit.StateOfHealth,
				})
			default:
				left++
				s.logger.Debug("Battery charged", map[string]interface{}{
					"battery_id": unit.ID,
					"charge":     outcome.Charge,
				})
			}
		}

		if len(units) < s.cfg.BatchSize {
			break
		}
		// Блоки, покинувшие CHARGING, выпадают из выборки, поэтому сдвигаемся только на оставшиеся
		offset += len(units) - left
	}

	return result, nil
}

// CheckHealth классифицирует все блоки по SOH.
// Блоки на станции ниже жесткого порога выводятся в MAINTENANCE; резерв такого блока
// снимается, а подтвержденное бронирование отменяется. Блоки на автомобиле только
// помечаются. О каждом блоке ниже 70 уведомляется служба эксплуатации.
func (s *Service) CheckHealth(ctx context.Context) (Result, error) {
	var result Result
	now := s.now()

	for offset := 0; ; offset += s.cfg.BatchSize {
		units, err := s.batteryRepo.List(ctx, s.cfg.BatchSize, offset)
		if err != nil {
			return result, fmt.Errorf("failed to list batteries: %w", err)
		}

		for _, unit := range units {
			band := domain.ClassifyHealth(unit.StateOfHealth)
			if band == domain.HealthHealthy || band == domain.HealthWarning {
				continue
			}

			forced := false
			if band == domain.HealthMaintenanceRequired {
				switch unit.Status {
				case domain.BatteryAvailable, domain.BatteryCharging, domain.BatteryPending:
					cancelled, err := s.retireUnit(ctx, unit, now)
					result.add(err)
					if err != nil {
						s.itemFailed("health-check", "battery_id", unit.ID, err)
					} else {
						forced = true
					}
					if cancelled != nil {
						s.notifier.Notify(ctx, domain.Notification{
							Recipient: cancelled.DriverID.String(),
							Kind:      domain.NotifyBookingCancelled,
							Payload: map[string]interface{}{
								"booking_id": cancelled.ID,
								"station_id": cancelled.StationID,
								"reason":     cancelled.CancelReason,
							},
						})
					}
				case domain.BatteryMaintenance:
					// уже на обслуживании
				default:
					s.logger.Warn("Battery below hard floor is not at station", map[string]interface{}{
						"battery_id": unit.ID,
						"status":     unit.Status,
						"health":     unit.StateOfHealth,
					})
				}
			}

			s.notifier.Notify(ctx, domain.Notification{
				Recipient: s.cfg.OperationsRecipient,
				Kind:      domain.NotifyBatteryHealthAlert,
				Payload: map[string]interface{}{
					"battery_id":  unit.ID,
					"health":      unit.StateOfHealth,
					"band":        band,
					"status":      unit.Status,
					"maintenance": forced,
				},
			})
		}

		if len(units) < s.cfg.BatchSize {
			break
		}
	}

	return result, nil
}

// retireUnit выводит блок в MAINTENANCE одной транзакцией.
// Для PENDING блока сначала отменяется подтвержденное бронирование и снимается резерв.
// Возвращает отмененное бронирование или nil.
func (s *Service) retireUnit(ctx context.Context, unit *domain.BatteryUnit, now time.Time) (*domain.Booking, error) {
	var cancelled *domain.Booking

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		expected := unit.Status

		if unit.Status == domain.BatteryPending {
			if unit.ReservedForBooking == nil {
				return domain.ErrBatteryStateChanged
			}
			bookingID := *unit.ReservedForBooking

			booking, err := s.bookingRepo.GetByIDForUpdate(ctx, bookingID)
			if err != nil && !errors.Is(err, domain.ErrBookingNotFound) {
				return err
			}
			if booking != nil && booking.Status == domain.BookingConfirmed {
				booking.Cancel(domain.CancelReasonBatteryFailed, now)
				if err := s.bookingRepo.Transition(ctx, booking, domain.BookingConfirmed); err != nil {
					return err
				}
				cancelled = booking
			}

			if err := s.batteryRepo.ReleaseReservation(ctx, unit.ID, bookingID); err != nil {
				return err
			}
			expected = domain.BatteryAvailable
		}

		return s.batteryRepo.ForceMaintenance(ctx, unit.ID, expected)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("Battery forced to maintenance", map[string]interface{}{
		"battery_id": unit.ID,
		"health":     unit.StateOfHealth,
		"cancelled":  cancelled != nil,
	})
	return cancelled, nil
}

// RejectStaleRegistrations отклоняет заявки, ожидающие решения дольше окна
func (s *Service) RejectStaleRegistrations(ctx context.Context) (Result, error) {
	var result Result
	now := s.now()

	regs, err := s.registrationRepo.ListPendingCreatedBefore(ctx, now.Add(-s.cfg.ApprovalWindow), s.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list pending registrations: %w", err)
	}

	for _, reg := range regs {
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.registrationRepo.Reject(ctx, reg.ID, domain.RejectReasonTimeout, now)
		})
		result.add(err)
		if err != nil {
			s.itemFailed("approval-timeout", "registration_id", reg.ID, err)
			continue
		}

		s.logger.Info("Vehicle registration rejected by timeout", map[string]interface{}{
			"registration_id": reg.ID,
			"driver_id":       reg.DriverID,
		})
		s.notifier.Notify(ctx, domain.Notification{
			Recipient: reg.DriverID.String(),
			Kind:      domain.NotifyRegistrationRejected,
			Payload: map[string]interface{}{
				"registration_id": reg.ID,
				"license_plate":   reg.LicensePlate,
				"reason":          domain.RejectReasonTimeout,
			},
		})
	}

	return result, nil
}

// ExpireSubscriptions переводит просроченные подписки в EXPIRED
func (s *Service) ExpireSubscriptions(ctx context.Context) (Result, error) {
	count, err := s.ledger.ExpireOutdated(ctx, s.cfg.BatchSize)
	if err != nil {
		return Result{}, err
	}
	if count > 0 {
		s.logger.Info("Subscription credits expired", map[string]interface{}{
			"count": count,
		})
	}
	return Result{Processed: count}, nil
}

func (s *Service) itemFailed(job, key string, id uuid.UUID, err error) {
	fields := map[string]interface{}{
		"job":   job,
		key:     id,
		"error": err,
	}
	if errors.Is(err, domain.ErrConflict) {
		s.logger.Debug("Item changed concurrently, skipped", fields)
		return
	}
	s.logger.Error("Failed to process item", fields)
}
