package battery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/google/uuid"
)

// Диапазон заряда, с которым блок возвращается на станцию после снятия
const (
	dischargeMin = 10.0
	dischargeMax = 50.0
)

// Service управляет жизненным циклом аккумуляторных блоков
type Service struct {
	batteryRepo        repository.BatteryRepository
	logger             logger.Logger
	fullChargeDuration time.Duration

	now       func() time.Time
	discharge func() float64
}

// NewService создает новый экземпляр BatteryService
func NewService(batteryRepo repository.BatteryRepository, logger logger.Logger, fullChargeDuration time.Duration) *Service {
	return &Service{
		batteryRepo:        batteryRepo,
		logger:             logger,
		fullChargeDuration: fullChargeDuration,
		now:                time.Now,
		discharge:          simulatedDischarge,
	}
}

// simulatedDischarge - остаточный заряд снятого блока, равномерно в [10, 50)
func simulatedDischarge() float64 {
	return dischargeMin + rand.Float64()*(dischargeMax-dischargeMin)
}

// SelectCandidates отбирает блоки, пригодные для резерва под модель model,
// и упорядочивает их: SOH по убыванию, заряд по убыванию, id по возрастанию.
func SelectCandidates(units []*domain.BatteryUnit, model string) []*domain.BatteryUnit {
	var candidates []*domain.BatteryUnit
	for _, unit := range units {
		if unit.IsReservable(model) {
			candidates = append(candidates, unit)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.StateOfHealth != b.StateOfHealth {
			return a.StateOfHealth > b.StateOfHealth
		}
		if a.ChargeLevel != b.ChargeLevel {
			return a.ChargeLevel > b.ChargeLevel
		}
		return a.ID.String() < b.ID.String()
	})

	return candidates
}

// ReserveForBooking резервирует лучший доступный блок на станции.
// Проигранная гонка за блок переходит к следующему кандидату.
func (s *Service) ReserveForBooking(ctx context.Context, stationID uuid.UUID, model string, bookingID uuid.UUID, expiry time.Time) (*domain.BatteryUnit, error) {
	units, err := s.batteryRepo.ListAvailableAtStation(ctx, stationID, model)
	if err != nil {
		return nil, fmt.Errorf("failed to list available batteries: %w", err)
	}

	for _, unit := range SelectCandidates(units, model) {
		err := s.batteryRepo.Reserve(ctx, unit.ID, bookingID, expiry)
		if errors.Is(err, domain.ErrBatteryStateChanged) {
			s.logger.Debug("Battery reserved concurrently, trying next", map[string]interface{}{
				"battery_id": unit.ID,
				"booking_id": bookingID,
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to reserve battery: %w", err)
		}

		unit.Status = domain.BatteryPending
		unit.ReservedForBooking = &bookingID
		unit.ReservationExpiry = &expiry
		return unit, nil
	}

	return nil, domain.ErrNoBatteryAvailable
}

// Mount устанавливает зарезервированный блок на автомобиль
func (s *Service) Mount(ctx context.Context, unit *domain.BatteryUnit, bookingID, vehicleID uuid.UUID) error {
	if err := s.batteryRepo.Mount(ctx, unit.ID, bookingID, vehicleID); err != nil {
		return err
	}

	unit.Status = domain.BatteryInUse
	unit.VehicleID = &vehicleID
	unit.CurrentStationID = nil
	unit.ReservedForBooking = nil
	unit.ReservationExpiry = nil
	unit.UsageCount++
	return nil
}

// ReleaseToStation снимает блок с автомобиля и оставляет на станции:
// CHARGING или MAINTENANCE по SOH, заряд - остаточный после поездки.
func (s *Service) ReleaseToStation(ctx context.Context, unit *domain.BatteryUnit, stationID uuid.UUID) error {
	if unit.VehicleID == nil {
		return domain.ErrBatteryStateChanged
	}

	vehicleID := *unit.VehicleID
	status := domain.RouteAfterRemoval(unit.StateOfHealth)
	charge := s.discharge()
	now := s.now()

	if err := s.batteryRepo.Unmount(ctx, unit.ID, vehicleID, stationID, status, charge, now); err != nil {
		return err
	}

	unit.Status = status
	unit.VehicleID = nil
	unit.CurrentStationID = &stationID
	unit.ChargeLevel = charge
	unit.LastChargedTime = &now

	if status == domain.BatteryMaintenance {
		s.logger.Warn("Released battery routed to maintenance", map[string]interface{}{
			"battery_id": unit.ID,
			"health":     unit.StateOfHealth,
		})
	}
	return nil
}

// ChargeOutcome - результат начисления заряда
type ChargeOutcome struct {
	Charge  float64
	Status  domain.BatteryStatus
	Stamped bool // первый проход: только отметка времени, заряд не начислялся
}

// ApplyCharge начисляет заряд линейно: полная зарядка занимает fullChargeDuration.
// Блок с зарядом >= 95 и SOH >= 70 становится AVAILABLE,
// блок с зарядом 100 и SOH < 70 уходит в MAINTENANCE.
func ApplyCharge(unit *domain.BatteryUnit, now time.Time, fullChargeDuration time.Duration) ChargeOutcome {
	if unit.LastChargedTime == nil {
		return ChargeOutcome{Charge: unit.ChargeLevel, Status: domain.BatteryCharging, Stamped: true}
	}

	elapsed := now.Sub(*unit.LastChargedTime)
	if elapsed < 0 {
		elapsed = 0
	}

	charge := unit.ChargeLevel + float64(elapsed)/float64(fullChargeDuration)*domain.FullCharge
	if charge > domain.FullCharge {
		charge = domain.FullCharge
	}

	status := domain.BatteryCharging
	switch {
	case charge >= domain.MinChargeForSwap && unit.StateOfHealth >= domain.MinHealthForService:
		status = domain.BatteryAvailable
	case charge >= domain.FullCharge && unit.StateOfHealth < domain.MinHealthForService:
		status = domain.BatteryMaintenance
	}

	return ChargeOutcome{Charge: charge, Status: status}
}

// Charge применяет ApplyCharge к заряжающемуся блоку и сохраняет результат
func (s *Service) Charge(ctx context.Context, unit *domain.BatteryUnit) (ChargeOutcome, error) {
	now := s.now()
	outcome := ApplyCharge(unit, now, s.fullChargeDuration)

	if err := s.batteryRepo.ApplyCharge(ctx, unit.ID, outcome.Status, outcome.Charge, now); err != nil {
		return outcome, err
	}

	unit.ChargeLevel = outcome.Charge
	unit.Status = outcome.Status
	unit.LastChargedTime = &now
	return outcome, nil
}

// RestoreFromMaintenance возвращает блок в оборот после обслуживания
func (s *Service) RestoreFromMaintenance(ctx context.Context, identity domain.Identity, batteryID uuid.UUID, newHealth float64) (*domain.BatteryUnit, error) {
	if !identity.IsStaff() {
		return nil, domain.ErrForbidden
	}

	if newHealth < domain.MinHealthForService || newHealth > 100 {
		return nil, domain.ErrInvalidHealth
	}

	unit, err := s.batteryRepo.GetByID(ctx, batteryID)
	if err != nil {
		return nil, err
	}
	if unit.Status != domain.BatteryMaintenance {
		return nil, domain.ErrBatteryNotInMaint
	}

	if err := s.batteryRepo.Restore(ctx, batteryID, newHealth); err != nil {
		if errors.Is(err, domain.ErrBatteryStateChanged) {
			return nil, domain.ErrBatteryNotInMaint
		}
		return nil, fmt.Errorf("failed to restore battery: %w", err)
	}

	s.logger.Info("Battery restored from maintenance", map[string]interface{}{
		"battery_id": batteryID,
		"health":     newHealth,
		"staff_id":   identity.UserID,
	})

	return s.batteryRepo.GetByID(ctx, batteryID)
}

// ListByStation возвращает блоки станции (только для сотрудников)
func (s *Service) ListByStation(ctx context.Context, identity domain.Identity, stationID uuid.UUID) ([]*domain.BatteryUnit, error) {
	if !identity.IsStaff() {
		return nil, domain.ErrForbidden
	}
	return s.batteryRepo.ListByStation(ctx, stationID)
}

// Get возвращает блок по ID (только для сотрудников)
func (s *Service) Get(ctx context.Context, identity domain.Identity, id uuid.UUID) (*domain.BatteryUnit, error) {
	if !identity.IsStaff() {
		return nil, domain.ErrForbidden
	}
	return s.batteryRepo.GetByID(ctx, id)
}
