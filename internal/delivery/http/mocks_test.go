package http

import (
	"context"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Create(ctx context.Context, identity domain.Identity, vehicleID, stationID uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, identity, vehicleID, stationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) Confirm(ctx context.Context, identity domain.Identity, bookingID uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, identity, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, identity domain.Identity, bookingID uuid.UUID, reason string) (*domain.Booking, error) {
	args := m.Called(ctx, identity, bookingID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) Get(ctx context.Context, identity domain.Identity, bookingID uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, identity, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) ListMine(ctx context.Context, identity domain.Identity, limit, offset int) ([]*domain.Booking, error) {
	args := m.Called(ctx, identity, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Booking), args.Error(1)
}

func (m *MockBookingService) ListByStation(ctx context.Context, identity domain.Identity, stationID uuid.UUID, status domain.BookingStatus, limit, offset int) ([]*domain.Booking, error) {
	args := m.Called(ctx, identity, stationID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Booking), args.Error(1)
}

type MockSwapService struct {
	mock.Mock
}

func (m *MockSwapService) Redeem(ctx context.Context, code string) (*domain.SwapTransaction, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SwapTransaction), args.Error(1)
}

func (m *MockSwapService) History(ctx context.Context, identity domain.Identity, driverID uuid.UUID, limit, offset int) ([]*domain.SwapTransaction, error) {
	args := m.Called(ctx, identity, driverID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SwapTransaction), args.Error(1)
}

func (m *MockSwapService) GetTransaction(ctx context.Context, identity domain.Identity, id uuid.UUID) (*domain.SwapTransaction, error) {
	args := m.Called(ctx, identity, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SwapTransaction), args.Error(1)
}

type MockBatteryService struct {
	mock.Mock
}

func (m *MockBatteryService) ListByStation(ctx context.Context, identity domain.Identity, stationID uuid.UUID) ([]*domain.BatteryUnit, error) {
	args := m.Called(ctx, identity, stationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BatteryUnit), args.Error(1)
}

func (m *MockBatteryService) RestoreFromMaintenance(ctx context.Context, identity domain.Identity, batteryID uuid.UUID, newHealth float64) (*domain.BatteryUnit, error) {
	args := m.Called(ctx, identity, batteryID, newHealth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BatteryUnit), args.Error(1)
}

type MockCreditService struct {
	mock.Mock
}

func (m *MockCreditService) GetActive(ctx context.Context, identity domain.Identity, driverID uuid.UUID) (*domain.SubscriptionCredit, error) {
	args := m.Called(ctx, identity, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubscriptionCredit), args.Error(1)
}

type MockVehicleService struct {
	mock.Mock
}

func (m *MockVehicleService) Register(ctx context.Context, identity domain.Identity, licensePlate string) (*domain.VehicleRegistration, error) {
	args := m.Called(ctx, identity, licensePlate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleRegistration), args.Error(1)
}

func (m *MockVehicleService) Approve(ctx context.Context, identity domain.Identity, registrationID uuid.UUID, batteryModel string) (*domain.Vehicle, error) {
	args := m.Called(ctx, identity, registrationID, batteryModel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

func (m *MockVehicleService) Reject(ctx context.Context, identity domain.Identity, registrationID uuid.UUID, reason string) (*domain.VehicleRegistration, error) {
	args := m.Called(ctx, identity, registrationID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleRegistration), args.Error(1)
}

func (m *MockVehicleService) ListMine(ctx context.Context, identity domain.Identity) ([]*domain.Vehicle, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Vehicle), args.Error(1)
}
