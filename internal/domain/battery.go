package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatteryStatus - состояние аккумуляторного блока
type BatteryStatus string

const (
	BatteryAvailable   BatteryStatus = "AVAILABLE"   // На станции, готов к выдаче
	BatteryPending     BatteryStatus = "PENDING"     // Зарезервирован под подтвержденное бронирование
	BatteryInUse       BatteryStatus = "IN_USE"      // Установлен на автомобиль
	BatteryCharging    BatteryStatus = "CHARGING"    // На станции, заряжается
	BatteryMaintenance BatteryStatus = "MAINTENANCE" // Выведен из оборота
)

// Пороговые значения заряда и SOH
const (
	MinChargeForSwap     = 95.0 // минимальный заряд для выдачи
	FullCharge           = 100.0
	MinHealthForService  = 70.0 // ниже - только обслуживание
	HealthWarningCeiling = 80.0
	HealthHardFloor      = 50.0 // ниже - принудительно в MAINTENANCE
)

// HealthBand - категория состояния здоровья батареи
type HealthBand string

const (
	HealthHealthy             HealthBand = "HEALTHY"
	HealthWarning             HealthBand = "WARNING"
	HealthCritical            HealthBand = "CRITICAL"
	HealthMaintenanceRequired HealthBand = "MAINTENANCE_REQUIRED"
)

// BatteryUnit - физический аккумулятор.
// Находится либо на станции (CurrentStationID), либо на автомобиле (VehicleID), но не в обоих местах.
// ReservedForBooking заполнен тогда и только тогда, когда Status = PENDING.
type BatteryUnit struct {
	ID                 uuid.UUID     `json:"id"`
	Model              string        `json:"model"`
	CapacityKWh        float64       `json:"capacity_kwh"`
	ChargeLevel        float64       `json:"charge_level"`
	StateOfHealth      float64       `json:"state_of_health"`
	Status             BatteryStatus `json:"status"`
	CurrentStationID   *uuid.UUID    `json:"current_station_id,omitempty"`
	VehicleID          *uuid.UUID    `json:"vehicle_id,omitempty"`
	ReservedForBooking *uuid.UUID    `json:"reserved_for_booking,omitempty"`
	ReservationExpiry  *time.Time    `json:"reservation_expiry,omitempty"`
	LastChargedTime    *time.Time    `json:"last_charged_time,omitempty"`
	UsageCount         int           `json:"usage_count"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// IsReservable проверяет, подходит ли блок для резервирования под модель model
func (b *BatteryUnit) IsReservable(model string) bool {
	return b.Status == BatteryAvailable &&
		b.Model == model &&
		b.ChargeLevel >= MinChargeForSwap &&
		b.StateOfHealth >= MinHealthForService
}

// IsAtStation проверяет, находится ли блок на станции
func (b *BatteryUnit) IsAtStation() bool {
	return b.CurrentStationID != nil && b.VehicleID == nil
}

// IsReservationExpired проверяет, истек ли резерв на момент now
func (b *BatteryUnit) IsReservationExpired(now time.Time) bool {
	return b.Status == BatteryPending && b.ReservationExpiry != nil && b.ReservationExpiry.Before(now)
}

// Snapshot фиксирует модель, заряд и SOH до мутации
func (b *BatteryUnit) Snapshot() BatterySnapshot {
	return BatterySnapshot{
		BatteryID:     b.ID,
		Model:         b.Model,
		ChargeLevel:   b.ChargeLevel,
		StateOfHealth: b.StateOfHealth,
	}
}

// Validate проверяет корректность данных блока
func (b *BatteryUnit) Validate() error {
	if b.Model == "" {
		return ErrInvalidBatteryData
	}
	if b.ChargeLevel < 0 || b.ChargeLevel > FullCharge {
		return ErrInvalidBatteryData
	}
	if b.StateOfHealth < 0 || b.StateOfHealth > 100 {
		return ErrInvalidHealth
	}
	if b.CurrentStationID != nil && b.VehicleID != nil {
		return ErrInvalidBatteryData
	}
	if (b.ReservedForBooking != nil) != (b.Status == BatteryPending) {
		return ErrInvalidBatteryData
	}
	return nil
}

// BatterySnapshot - неизменяемый снимок состояния батареи на момент обмена
type BatterySnapshot struct {
	BatteryID     uuid.UUID `json:"battery_id"`
	Model         string    `json:"model"`
	ChargeLevel   float64   `json:"charge_level"`
	StateOfHealth float64   `json:"state_of_health"`
}

// ClassifyHealth относит значение SOH к одной из категорий
func ClassifyHealth(health float64) HealthBand {
	switch {
	case health >= HealthWarningCeiling:
		return HealthHealthy
	case health >= MinHealthForService:
		return HealthWarning
	case health >= HealthHardFloor:
		return HealthCritical
	default:
		return HealthMaintenanceRequired
	}
}

// RouteAfterRemoval определяет статус блока, снятого с автомобиля
func RouteAfterRemoval(health float64) BatteryStatus {
	if health >= MinHealthForService {
		return BatteryCharging
	}
	return BatteryMaintenance
}
