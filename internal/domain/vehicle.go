package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Vehicle - электромобиль водителя.
// Установленный аккумулятор здесь не хранится: его местоположение известно
// только из BatteryUnit.VehicleID.
type Vehicle struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`      // Водитель-владелец
	LicensePlate string    `json:"license_plate"` // Номер (уникальный, нормализованный)
	BatteryModel string    `json:"battery_model"` // Совместимая модель аккумулятора
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeLicensePlate нормализует номер автомобиля (убирает пробелы, приводит к верхнему регистру)
func NormalizeLicensePlate(plate string) string {
	return strings.ToUpper(strings.ReplaceAll(plate, " ", ""))
}

// BelongsTo проверяет, принадлежит ли автомобиль водителю
func (v *Vehicle) BelongsTo(driverID uuid.UUID) bool {
	return v.OwnerID == driverID
}

// Validate проверяет корректность данных автомобиля
func (v *Vehicle) Validate() error {
	if v.OwnerID == uuid.Nil {
		return ErrInvalidVehicleData
	}
	v.LicensePlate = NormalizeLicensePlate(v.LicensePlate)
	if len(v.LicensePlate) < 5 || len(v.LicensePlate) > 20 {
		return ErrInvalidVehicleData
	}
	if v.BatteryModel == "" {
		return ErrInvalidVehicleData
	}
	return nil
}
