package memory

import (
	"context"
	"sort"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/google/uuid"
)

type batteryRepository struct {
	s *Store
}

func (r *batteryRepository) Create(ctx context.Context, unit *domain.BatteryUnit) error {
	if err := unit.Validate(); err != nil {
		return err
	}

	defer r.s.lock(ctx)()

	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	unit.CreatedAt = time.Now()
	unit.UpdatedAt = unit.CreatedAt

	r.s.batteries[unit.ID] = clone(unit)
	return nil
}

func (r *batteryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatteryUnit, error) {
	defer r.s.lock(ctx)()

	unit, ok := r.s.batteries[id]
	if !ok {
		return nil, domain.ErrBatteryNotFound
	}
	return clone(unit), nil
}

// filter возвращает копии подходящих блоков, отсортированные по id
func (r *batteryRepository) filter(match func(*domain.BatteryUnit) bool) []*domain.BatteryUnit {
	var units []*domain.BatteryUnit
	for _, unit := range r.s.batteries {
		if match(unit) {
			units = append(units, clone(unit))
		}
	}
	sort.Slice(units, func(i, j int) bool {
		return units[i].ID.String() < units[j].ID.String()
	})
	return units
}

func atStation(unit *domain.BatteryUnit, stationID uuid.UUID) bool {
	return unit.CurrentStationID != nil && *unit.CurrentStationID == stationID
}

func (r *batteryRepository) ListByStation(ctx context.Context, stationID uuid.UUID) ([]*domain.BatteryUnit, error) {
	defer r.s.lock(ctx)()

	return r.filter(func(u *domain.BatteryUnit) bool {
		return atStation(u, stationID)
	}), nil
}

func (r *batteryRepository) ListAvailableAtStation(ctx context.Context, stationID uuid.UUID, model string) ([]*domain.BatteryUnit, error) {
	defer r.s.lock(ctx)()

	return r.filter(func(u *domain.BatteryUnit) bool {
		return atStation(u, stationID) && u.Model == model && u.Status == domain.BatteryAvailable
	}), nil
}

func (r *batteryRepository) GetReservedForBooking(ctx context.Context, bookingID uuid.UUID) (*domain.BatteryUnit, error) {
	defer r.s.lock(ctx)()

	units := r.filter(func(u *domain.BatteryUnit) bool {
		return u.Status == domain.BatteryPending && u.ReservedForBooking != nil && *u.ReservedForBooking == bookingID
	})
	if len(units) == 0 {
		return nil, domain.ErrBatteryNotReserved
	}
	return units[0], nil
}

func (r *batteryRepository) GetMountedOnVehicle(ctx context.Context, vehicleID uuid.UUID) (*domain.BatteryUnit, error) {
	defer r.s.lock(ctx)()

	units := r.filter(func(u *domain.BatteryUnit) bool {
		return u.VehicleID != nil && *u.VehicleID == vehicleID
	})
	if len(units) == 0 {
		return nil, nil
	}
	return units[0], nil
}

func (r *batteryRepository) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*domain.BatteryUnit, error) {
	defer r.s.lock(ctx)()

	units := r.filter(func(u *domain.BatteryUnit) bool {
		return u.IsReservationExpired(now)
	})
	return paginate(units, limit, 0), nil
}

func (r *batteryRepository) ListByStatus(ctx context.Context, status domain.BatteryStatus, limit, offset int) ([]*domain.BatteryUnit, error) {
	defer r.s.lock(ctx)()

	units := r.filter(func(u *domain.BatteryUnit) bool {
		return u.Status == status
	})
	return paginate(units, limit, offset), nil
}

func (r *batteryRepository) List(ctx context.Context, limit, offset int) ([]*domain.BatteryUnit, error) {
	defer r.s.lock(ctx)()

	units := r.filter(func(*domain.BatteryUnit) bool { return true })
	return paginate(units, limit, offset), nil
}

// update применяет mutate к копии блока, если cond выполняется
func (r *batteryRepository) update(ctx context.Context, id uuid.UUID, cond func(*domain.BatteryUnit) bool, mutate func(*domain.BatteryUnit)) error {
	defer r.s.lock(ctx)()

	current, ok := r.s.batteries[id]
	if !ok || !cond(current) {
		return domain.ErrBatteryStateChanged
	}

	unit := clone(current)
	mutate(unit)
	unit.UpdatedAt = time.Now()
	r.s.batteries[id] = unit
	return nil
}

func reservedFor(u *domain.BatteryUnit, bookingID uuid.UUID) bool {
	return u.Status == domain.BatteryPending && u.ReservedForBooking != nil && *u.ReservedForBooking == bookingID
}

func (r *batteryRepository) Reserve(ctx context.Context, id, bookingID uuid.UUID, expiry time.Time) error {
	return r.update(ctx, id,
		func(u *domain.BatteryUnit) bool { return u.Status == domain.BatteryAvailable },
		func(u *domain.BatteryUnit) {
			u.Status = domain.BatteryPending
			u.ReservedForBooking = &bookingID
			u.ReservationExpiry = &expiry
		},
	)
}

func (r *batteryRepository) ReleaseReservation(ctx context.Context, id, bookingID uuid.UUID) error {
	return r.update(ctx, id,
		func(u *domain.BatteryUnit) bool { return reservedFor(u, bookingID) },
		func(u *domain.BatteryUnit) {
			u.Status = domain.BatteryAvailable
			u.ReservedForBooking = nil
			u.ReservationExpiry = nil
		},
	)
}

func (r *batteryRepository) Mount(ctx context.Context, id, bookingID, vehicleID uuid.UUID) error {
	return r.update(ctx, id,
		func(u *domain.BatteryUnit) bool { return reservedFor(u, bookingID) },
		func(u *domain.BatteryUnit) {
			u.Status = domain.BatteryInUse
			u.VehicleID = &vehicleID
			u.CurrentStationID = nil
			u.ReservedForBooking = nil
			u.ReservationExpiry = nil
			u.UsageCount++
		},
	)
}

func (r *batteryRepository) Unmount(ctx context.Context, id, vehicleID, stationID uuid.UUID, status domain.BatteryStatus, charge float64, at time.Time) error {
	return r.update(ctx, id,
		func(u *domain.BatteryUnit) bool {
			return u.Status == domain.BatteryInUse && u.VehicleID != nil && *u.VehicleID == vehicleID
		},
		func(u *domain.BatteryUnit) {
			u.Status = status
			u.VehicleID = nil
			u.CurrentStationID = &stationID
			u.ChargeLevel = charge
			u.LastChargedTime = &at
		},
	)
}

func (r *batteryRepository) ApplyCharge(ctx context.Context, id uuid.UUID, status domain.BatteryStatus, charge float64, at time.Time) error {
	return r.update(ctx, id,
		func(u *domain.BatteryUnit) bool { return u.Status == domain.BatteryCharging },
		func(u *domain.BatteryUnit) {
			u.Status = status
			u.ChargeLevel = charge
			u.LastChargedTime = &at
		},
	)
}

func (r *batteryRepository) ForceMaintenance(ctx context.Context, id uuid.UUID, expected domain.BatteryStatus) error {
	return r.update(ctx, id,
		func(u *domain.BatteryUnit) bool { return u.Status == expected },
		func(u *domain.BatteryUnit) {
			u.Status = domain.BatteryMaintenance
		},
	)
}

func (r *batteryRepository) Restore(ctx context.Context, id uuid.UUID, health float64) error {
	return r.update(ctx, id,
		func(u *domain.BatteryUnit) bool { return u.Status == domain.BatteryMaintenance },
		func(u *domain.BatteryUnit) {
			u.Status = domain.BatteryAvailable
			u.StateOfHealth = health
			u.UsageCount = 0
		},
	)
}
