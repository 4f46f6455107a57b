package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreditStatus - статус записи о подписке
type CreditStatus string

const (
	CreditActive    CreditStatus = "ACTIVE"
	CreditExpired   CreditStatus = "EXPIRED"
	CreditCancelled CreditStatus = "CANCELLED"
	CreditSuspended CreditStatus = "SUSPENDED"
)

// SubscriptionCredit - остаток обменов водителя по пакету.
// У водителя не больше одной ACTIVE записи; RemainingSwaps = 0 сразу означает EXPIRED.
type SubscriptionCredit struct {
	ID             uuid.UUID    `json:"id"`
	DriverID       uuid.UUID    `json:"driver_id"`
	PackageID      uuid.UUID    `json:"package_id"`
	StartDate      time.Time    `json:"start_date"`
	EndDate        time.Time    `json:"end_date"`
	Status         CreditStatus `json:"status"`
	RemainingSwaps int          `json:"remaining_swaps"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// IsUsable проверяет, можно ли списать обмен в момент now
func (c *SubscriptionCredit) IsUsable(now time.Time) bool {
	return c.Status == CreditActive &&
		c.RemainingSwaps > 0 &&
		!now.Before(c.StartDate) &&
		now.Before(c.EndDate)
}

// Consume списывает один обмен. При нулевом остатке запись истекает.
func (c *SubscriptionCredit) Consume(now time.Time) error {
	if !c.IsUsable(now) {
		return ErrNoActiveCredit
	}
	c.RemainingSwaps--
	if c.RemainingSwaps == 0 {
		c.Status = CreditExpired
	}
	c.UpdatedAt = now
	return nil
}

// Validate проверяет корректность данных
func (c *SubscriptionCredit) Validate() error {
	if c.DriverID == uuid.Nil || c.PackageID == uuid.Nil {
		return ErrInvalidCreditData
	}
	if c.RemainingSwaps <= 0 {
		return ErrInvalidCreditData
	}
	if !c.EndDate.After(c.StartDate) {
		return ErrInvalidCreditData
	}
	return nil
}
