package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus - статус бронирования обмена
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"   // Создано водителем, ждет сотрудника
	BookingConfirmed BookingStatus = "CONFIRMED" // Батарея зарезервирована, выдан код
	BookingCompleted BookingStatus = "COMPLETED" // Обмен выполнен
	BookingCancelled BookingStatus = "CANCELLED" // Отменено вручную или по истечении резерва
)

// Причины отмены
const (
	CancelReasonNoShow = "no-show"
	CancelReasonDriver = "cancelled by driver"
	CancelReasonStaff  = "cancelled by staff"

	CancelReasonBatteryFailed = "battery-failed"
)

// ConfirmationCodeLength - длина кода: 3 буквы + 3 цифры
const ConfirmationCodeLength = 6

var confirmationCodePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)

// Booking - бронирование обмена аккумулятора.
// ConfirmationCode заполнен только в статусе CONFIRMED; при выходе из него
// код переносится в LastCode, чтобы повторное предъявление распознавалось как конфликт.
type Booking struct {
	ID                uuid.UUID     `json:"id"`
	DriverID          uuid.UUID     `json:"driver_id"`
	VehicleID         uuid.UUID     `json:"vehicle_id"`
	StationID         uuid.UUID     `json:"station_id"`
	Status            BookingStatus `json:"status"`
	ConfirmationCode  *string       `json:"confirmation_code,omitempty"`
	LastCode          *string       `json:"-"`
	ReservedBatteryID *uuid.UUID    `json:"reserved_battery_id,omitempty"`
	ReservationExpiry *time.Time    `json:"reservation_expiry,omitempty"`
	ConfirmedBy       *uuid.UUID    `json:"confirmed_by,omitempty"`
	ConfirmedAt       *time.Time    `json:"confirmed_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	CancelledAt       *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason      string        `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// IsActive - бронирование еще не завершено и не отменено
func (b *Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// IsTerminal - COMPLETED или CANCELLED
func (b *Booking) IsTerminal() bool {
	return !b.IsActive()
}

// Confirm переводит бронирование в CONFIRMED
func (b *Booking) Confirm(staffID, batteryID uuid.UUID, code string, expiry, now time.Time) {
	b.Status = BookingConfirmed
	b.ConfirmationCode = &code
	b.ReservedBatteryID = &batteryID
	b.ReservationExpiry = &expiry
	b.ConfirmedBy = &staffID
	b.ConfirmedAt = &now
	b.UpdatedAt = now
}

// Complete переводит бронирование в COMPLETED и освобождает код
func (b *Booking) Complete(now time.Time) {
	b.Status = BookingCompleted
	b.releaseCode()
	b.CompletedAt = &now
	b.UpdatedAt = now
}

// Cancel переводит бронирование в CANCELLED и освобождает код
func (b *Booking) Cancel(reason string, now time.Time) {
	b.Status = BookingCancelled
	b.releaseCode()
	b.CancelReason = reason
	b.CancelledAt = &now
	b.UpdatedAt = now
}

func (b *Booking) releaseCode() {
	if b.ConfirmationCode != nil {
		code := *b.ConfirmationCode
		b.LastCode = &code
	}
	b.ConfirmationCode = nil
}

// ReservationExpired - резерв подтвержденного бронирования истек к моменту now
func (b *Booking) ReservationExpired(now time.Time) bool {
	return b.ReservationExpiry != nil && !now.Before(*b.ReservationExpiry)
}

// Validate проверяет корректность данных бронирования
func (b *Booking) Validate() error {
	if b.DriverID == uuid.Nil || b.VehicleID == uuid.Nil || b.StationID == uuid.Nil {
		return ErrInvalidBookingData
	}
	if (b.ConfirmationCode != nil) != (b.Status == BookingConfirmed) {
		return ErrInvalidBookingData
	}
	return nil
}

// NormalizeConfirmationCode приводит код к каноническому виду и проверяет формат
func NormalizeConfirmationCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !confirmationCodePattern.MatchString(normalized) {
		return "", ErrInvalidCode
	}
	return normalized, nil
}
