package memory

import (
	"context"
	"sort"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/google/uuid"
)

type vehicleRepository struct {
	s *Store
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	if err := vehicle.Validate(); err != nil {
		return err
	}

	defer r.s.lock(ctx)()

	for _, v := range r.s.vehicles {
		if v.LicensePlate == vehicle.LicensePlate {
			return domain.ErrVehicleAlreadyExists
		}
	}

	if vehicle.ID == uuid.Nil {
		vehicle.ID = uuid.New()
	}
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = vehicle.CreatedAt

	r.s.vehicles[vehicle.ID] = clone(vehicle)
	return nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error) {
	defer r.s.lock(ctx)()

	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, domain.ErrVehicleNotFound
	}
	return clone(v), nil
}

func (r *vehicleRepository) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*domain.Vehicle, error) {
	defer r.s.lock(ctx)()

	var vehicles []*domain.Vehicle
	for _, v := range r.s.vehicles {
		if v.OwnerID == ownerID {
			vehicles = append(vehicles, clone(v))
		}
	}
	sort.Slice(vehicles, func(i, j int) bool {
		return vehicles[i].CreatedAt.After(vehicles[j].CreatedAt)
	})
	return vehicles, nil
}

type registrationRepository struct {
	s *Store
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.VehicleRegistration) error {
	defer r.s.lock(ctx)()

	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	if reg.Status == "" {
		reg.Status = domain.RegistrationPending
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now()
	}
	reg.LicensePlate = domain.NormalizeLicensePlate(reg.LicensePlate)

	r.s.registrations[reg.ID] = clone(reg)
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.VehicleRegistration, error) {
	defer r.s.lock(ctx)()

	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, domain.ErrRegistrationNotFound
	}
	return clone(reg), nil
}

func (r *registrationRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.VehicleRegistration, error) {
	defer r.s.lock(ctx)()

	var regs []*domain.VehicleRegistration
	for _, reg := range r.s.registrations {
		if reg.Status == domain.RegistrationPending && reg.CreatedAt.Before(cutoff) {
			regs = append(regs, clone(reg))
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].CreatedAt.Before(regs[j].CreatedAt)
	})
	return paginate(regs, limit, 0), nil
}

func (r *registrationRepository) Approve(ctx context.Context, id, vehicleID uuid.UUID, at time.Time) error {
	defer r.s.lock(ctx)()

	current, ok := r.s.registrations[id]
	if !ok || current.Status != domain.RegistrationPending {
		return domain.ErrRegistrationDecided
	}

	reg := clone(current)
	reg.Status = domain.RegistrationApproved
	reg.VehicleID = &vehicleID
	reg.DecidedAt = &at
	r.s.registrations[id] = reg
	return nil
}

func (r *registrationRepository) Reject(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	defer r.s.lock(ctx)()

	current, ok := r.s.registrations[id]
	if !ok || current.Status != domain.RegistrationPending {
		return domain.ErrRegistrationDecided
	}

	reg := clone(current)
	reg.Status = domain.RegistrationRejected
	reg.RejectReason = reason
	reg.DecidedAt = &at
	r.s.registrations[id] = reg
	return nil
}
