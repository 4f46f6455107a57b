package domain

import (
	"errors"
	"fmt"
)

// Категории ошибок - по ним delivery слой выбирает HTTP статус.
// Конкретные ошибки ниже оборачивают одну из категорий через %w,
// поэтому errors.Is(err, ErrConflict) работает для всех конфликтов.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrExhausted    = errors.New("retry budget exhausted")
	ErrAccessDenied = errors.New("access denied")
)

func kind(msg string, base error) error {
	return fmt.Errorf("%s: %w", msg, base)
}

// Battery errors
var (
	ErrBatteryNotFound     = kind("battery unit not found", ErrNotFound)
	ErrNoBatteryAvailable  = kind("no battery unit available for reservation", ErrConflict)
	ErrBatteryStateChanged = kind("battery unit state changed concurrently", ErrConflict)
	ErrBatteryNotReserved  = kind("no reserved battery unit for booking", ErrConflict)
	ErrBatteryNotInMaint   = kind("battery unit is not in maintenance", ErrConflict)
	ErrBatteryUnfit        = kind("battery unit is below the health floor", ErrConflict)
	ErrInvalidHealth       = kind("invalid state of health", ErrValidation)
	ErrInvalidBatteryData  = kind("invalid battery unit data", ErrValidation)
)

// Vehicle errors
var (
	ErrVehicleNotFound      = kind("vehicle not found", ErrNotFound)
	ErrVehicleNotOwned      = kind("vehicle does not belong to driver", ErrValidation)
	ErrVehicleAlreadyExists = kind("vehicle with this license plate already exists", ErrConflict)
	ErrVehicleInactive      = kind("vehicle is inactive", ErrValidation)
	ErrInvalidVehicleData   = kind("invalid vehicle data", ErrValidation)
	ErrRegistrationNotFound = kind("vehicle registration not found", ErrNotFound)
	ErrRegistrationDecided  = kind("vehicle registration already decided", ErrConflict)
)

// Booking errors
var (
	ErrBookingNotFound     = kind("booking not found", ErrNotFound)
	ErrBookingNotPending   = kind("booking is not pending", ErrConflict)
	ErrBookingNotConfirmed = kind("booking is not confirmed", ErrConflict)
	ErrBookingStateChanged = kind("booking state changed concurrently", ErrConflict)
	ErrReservationExpired  = kind("battery reservation expired", ErrConflict)
	ErrCodeAlreadyRedeemed = kind("confirmation code already consumed", ErrConflict)
	ErrInvalidCode         = kind("invalid confirmation code", ErrValidation)
	ErrInvalidBookingData  = kind("invalid booking data", ErrValidation)
	ErrCodeSpaceExhausted  = kind("could not generate unique confirmation code", ErrExhausted)
)

// Subscription errors
var (
	ErrNoActiveCredit      = kind("no active subscription credit", ErrConflict)
	ErrCreditAlreadyActive = kind("driver already has an active subscription credit", ErrConflict)
	ErrInvalidCreditData   = kind("invalid subscription credit data", ErrValidation)
	ErrCreditNotFound      = kind("subscription credit not found", ErrNotFound)
)

// Swap transaction errors
var (
	ErrSwapTransactionNotFound = kind("swap transaction not found", ErrNotFound)
)

// Authorization errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = kind("forbidden", ErrAccessDenied)
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidToken = errors.New("invalid token")
)
