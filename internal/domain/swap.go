package domain

import (
	"time"

	"github.com/google/uuid"
)

// SwapStatus - статус записи об обмене
type SwapStatus string

const (
	SwapCompleted SwapStatus = "COMPLETED"
)

// SwapTransaction - запись в журнале обменов (только добавление).
// SwapOut - выданный и теперь установленный на автомобиль блок,
// SwapIn - снятый с автомобиля блок (может отсутствовать при первой установке).
// Значения заряда и SOH берутся из снимка до мутации и больше не пересчитываются.
type SwapTransaction struct {
	ID        uuid.UUID  `json:"id"`
	DriverID  uuid.UUID  `json:"driver_id"`
	VehicleID uuid.UUID  `json:"vehicle_id"`
	StationID uuid.UUID  `json:"station_id"`
	StaffID   *uuid.UUID `json:"staff_id,omitempty"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`

	SwapOutBatteryID          uuid.UUID `json:"swap_out_battery_id"`
	SwapOutBatteryModel       string    `json:"swap_out_battery_model"`
	SwapOutBatteryChargeLevel float64   `json:"swap_out_battery_charge_level"`
	SwapOutBatteryHealth      float64   `json:"swap_out_battery_health"`

	SwapInBatteryID          *uuid.UUID `json:"swap_in_battery_id,omitempty"`
	SwapInBatteryModel       *string    `json:"swap_in_battery_model,omitempty"`
	SwapInBatteryChargeLevel *float64   `json:"swap_in_battery_charge_level,omitempty"`
	SwapInBatteryHealth      *float64   `json:"swap_in_battery_health,omitempty"`

	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SwapStatus `json:"status"`
}

// NewSwapTransaction собирает запись из снимков, сделанных до изменения батарей
func NewSwapTransaction(booking *Booking, out BatterySnapshot, in *BatterySnapshot, start, end time.Time) *SwapTransaction {
	bookingID := booking.ID
	tx := &SwapTransaction{
		DriverID:                  booking.DriverID,
		VehicleID:                 booking.VehicleID,
		StationID:                 booking.StationID,
		StaffID:                   booking.ConfirmedBy,
		BookingID:                 &bookingID,
		SwapOutBatteryID:          out.BatteryID,
		SwapOutBatteryModel:       out.Model,
		SwapOutBatteryChargeLevel: out.ChargeLevel,
		SwapOutBatteryHealth:      out.StateOfHealth,
		StartTime:                 start,
		EndTime:                   end,
		Status:                    SwapCompleted,
	}

	if in != nil {
		id, model, charge, health := in.BatteryID, in.Model, in.ChargeLevel, in.StateOfHealth
		tx.SwapInBatteryID = &id
		tx.SwapInBatteryModel = &model
		tx.SwapInBatteryChargeLevel = &charge
		tx.SwapInBatteryHealth = &health
	}

	return tx
}
