package vehicle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/google/uuid"
)

// Service ведет подключение автомобилей водителей к сети станций.
// Водитель подает заявку, сотрудник одобряет ее и указывает совместимую модель аккумулятора.
// Заявки без решения отклоняет фоновая проверка.
type Service struct {
	tx               repository.Transactor
	vehicleRepo      repository.VehicleRepository
	registrationRepo repository.RegistrationRepository
	logger           logger.Logger

	now func() time.Time
}

// NewService создает новый экземпляр VehicleService
func NewService(
	tx repository.Transactor,
	vehicleRepo repository.VehicleRepository,
	registrationRepo repository.RegistrationRepository,
	logger logger.Logger,
) *Service {
	return &Service{
		tx:               tx,
		vehicleRepo:      vehicleRepo,
		registrationRepo: registrationRepo,
		logger:           logger,
		now:              time.Now,
	}
}

// Register создает PENDING заявку водителя
func (s *Service) Register(ctx context.Context, identity domain.Identity, licensePlate string) (*domain.VehicleRegistration, error) {
	if !identity.IsDriver() {
		return nil, domain.ErrForbidden
	}

	reg := &domain.VehicleRegistration{
		DriverID:     identity.UserID,
		LicensePlate: licensePlate,
		Status:       domain.RegistrationPending,
		CreatedAt:    s.now(),
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	if err := s.registrationRepo.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	s.logger.Info("Vehicle registration submitted", map[string]interface{}{
		"registration_id": reg.ID,
		"driver_id":       reg.DriverID,
		"license_plate":   reg.LicensePlate,
	})

	return reg, nil
}

// Approve одобряет заявку и создает автомобиль водителя
func (s *Service) Approve(ctx context.Context, identity domain.Identity, registrationID uuid.UUID, batteryModel string) (*domain.Vehicle, error) {
	if !identity.IsStaff() {
		return nil, domain.ErrForbidden
	}

	batteryModel = strings.TrimSpace(batteryModel)
	if batteryModel == "" {
		return nil, domain.ErrInvalidVehicleData
	}

	var vehicle *domain.Vehicle

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		reg, err := s.registrationRepo.GetByID(ctx, registrationID)
		if err != nil {
			return err
		}
		if reg.Status != domain.RegistrationPending {
			return domain.ErrRegistrationDecided
		}

		vehicle = &domain.Vehicle{
			OwnerID:      reg.DriverID,
			LicensePlate: reg.LicensePlate,
			BatteryModel: batteryModel,
			IsActive:     true,
		}
		if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
			return err
		}

		return s.registrationRepo.Approve(ctx, reg.ID, vehicle.ID, s.now())
	})
	if err != nil {
		s.logger.Warn("Vehicle registration approval failed", map[string]interface{}{
			"registration_id": registrationID,
			"error":           err.Error(),
		})
		return nil, err
	}

	s.logger.Info("Vehicle registration approved", map[string]interface{}{
		"registration_id": registrationID,
		"vehicle_id":      vehicle.ID,
		"staff_id":        identity.UserID,
	})

	return vehicle, nil
}

// Reject отклоняет заявку вручную
func (s *Service) Reject(ctx context.Context, identity domain.Identity, registrationID uuid.UUID, reason string) (*domain.VehicleRegistration, error) {
	if !identity.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if reason == "" {
		reason = domain.RejectReasonStaff
	}

	if err := s.registrationRepo.Reject(ctx, registrationID, reason, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("Vehicle registration rejected", map[string]interface{}{
		"registration_id": registrationID,
		"staff_id":        identity.UserID,
	})

	return s.registrationRepo.GetByID(ctx, registrationID)
}

// ListMine возвращает подключенные автомобили водителя
func (s *Service) ListMine(ctx context.Context, identity domain.Identity) ([]*domain.Vehicle, error) {
	return s.vehicleRepo.GetByOwnerID(ctx, identity.UserID)
}
