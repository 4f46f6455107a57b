package domain

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus - статус заявки на регистрацию автомобиля
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// RejectReasonTimeout - причина автоматического отказа по таймауту
const RejectReasonTimeout = "approval timeout"

// RejectReasonStaff - причина отказа по умолчанию при ручном решении
const RejectReasonStaff = "rejected by staff"

// VehicleRegistration - заявка водителя на подключение автомобиля к сети станций
type VehicleRegistration struct {
	ID           uuid.UUID          `json:"id"`
	DriverID     uuid.UUID          `json:"driver_id"`
	VehicleID    *uuid.UUID         `json:"vehicle_id,omitempty"`
	LicensePlate string             `json:"license_plate"`
	Status       RegistrationStatus `json:"status"`
	RejectReason string             `json:"reject_reason,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	DecidedAt    *time.Time         `json:"decided_at,omitempty"`
}

// IsStale проверяет, ждет ли заявка решения дольше окна window
func (r *VehicleRegistration) IsStale(now time.Time, window time.Duration) bool {
	return r.Status == RegistrationPending && r.CreatedAt.Before(now.Add(-window))
}

// Validate проверяет и нормализует номер в заявке
func (r *VehicleRegistration) Validate() error {
	if r.DriverID == uuid.Nil {
		return ErrInvalidVehicleData
	}
	r.LicensePlate = NormalizeLicensePlate(r.LicensePlate)
	if len(r.LicensePlate) < 5 || len(r.LicensePlate) > 20 {
		return ErrInvalidVehicleData
	}
	return nil
}
