package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/repository/memory"
	"github.com/frontandrew/swapstation/internal/usecase/battery"
	"github.com/frontandrew/swapstation/internal/usecase/subscription"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) {
	m.Called(ctx, n)
}

type fixture struct {
	store     *memory.Store
	svc       *Service
	notifier  *MockNotifier
	stationID uuid.UUID
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything).Return().Maybe()

	log := logger.NewNoop()
	svc := NewService(
		store,
		store.Bookings(),
		store.Vehicles(),
		battery.NewService(store.Batteries(), log, 4*time.Hour),
		subscription.NewService(store.Credits(), log),
		notifier,
		log,
		Config{ReservationHorizon: 3 * time.Hour, CodeMaxAttempts: 10},
	)

	now := time.Now()
	svc.now = func() time.Time { return now }

	return &fixture{store: store, svc: svc, notifier: notifier, stationID: uuid.New(), now: now}
}

func (f *fixture) driver(t *testing.T, swaps int) (domain.Identity, *domain.Vehicle) {
	t.Helper()
	ctx := context.Background()

	identity := domain.Identity{UserID: uuid.New(), Role: domain.RoleDriver}
	vehicle := &domain.Vehicle{
		OwnerID:      identity.UserID,
		LicensePlate: "EV" + identity.UserID.String()[:6],
		BatteryModel: "LFP-48",
		IsActive:     true,
	}
	require.NoError(t, f.store.Vehicles().Create(ctx, vehicle))

	if swaps > 0 {
		require.NoError(t, f.store.Credits().Create(ctx, &domain.SubscriptionCredit{
			DriverID:       identity.UserID,
			PackageID:      uuid.New(),
			StartDate:      f.now.Add(-24 * time.Hour),
			EndDate:        f.now.Add(30 * 24 * time.Hour),
			RemainingSwaps: swaps,
		}))
	}
	return identity, vehicle
}

func (f *fixture) battery(t *testing.T, charge, health float64) *domain.BatteryUnit {
	t.Helper()
	stationID := f.stationID
	unit := &domain.BatteryUnit{
		Model:            "LFP-48",
		ChargeLevel:      charge,
		StateOfHealth:    health,
		Status:           domain.BatteryAvailable,
		CurrentStationID: &stationID,
	}
	require.NoError(t, f.store.Batteries().Create(context.Background(), unit))
	return unit
}

var staff = domain.Identity{UserID: uuid.New(), Role: domain.RoleStaff}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, vehicle := f.driver(t, 1)
	_, foreignVehicle := f.driver(t, 1)

	inactive := &domain.Vehicle{OwnerID: owner.UserID, LicensePlate: "INACT01", BatteryModel: "LFP-48"}
	require.NoError(t, f.store.Vehicles().Create(ctx, inactive))

	tests := []struct {
		name      string
		identity  domain.Identity
		vehicleID uuid.UUID
		wantErr   error
	}{
		{name: "успешное создание", identity: owner, vehicleID: vehicle.ID},
		{name: "сотрудник не может бронировать", identity: staff, vehicleID: vehicle.ID, wantErr: domain.ErrAccessDenied},
		{name: "автомобиль не найден", identity: owner, vehicleID: uuid.New(), wantErr: domain.ErrNotFound},
		{name: "чужой автомобиль", identity: owner, vehicleID: foreignVehicle.ID, wantErr: domain.ErrValidation},
		{name: "неактивный автомобиль", identity: owner, vehicleID: inactive.ID, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking, err := f.svc.Create(ctx, tt.identity, tt.vehicleID, f.stationID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.BookingPending, booking.Status)
			assert.Nil(t, booking.ConfirmationCode)
			assert.Nil(t, booking.ReservedBatteryID)
		})
	}
}

func TestService_Confirm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	driver, vehicle := f.driver(t, 5)
	f.battery(t, 96, 80)
	best := f.battery(t, 97, 92)

	booking, err := f.svc.Create(ctx, driver, vehicle.ID, f.stationID)
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, staff, booking.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.BookingConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmationCode)
	assert.Regexp(t, `^[A-Z]{3}[0-9]{3}$`, *confirmed.ConfirmationCode)
	assert.Equal(t, best.ID, *confirmed.ReservedBatteryID)
	assert.Equal(t, f.now.Add(3*time.Hour), *confirmed.ReservationExpiry)
	assert.Equal(t, staff.UserID, *confirmed.ConfirmedBy)

	unit, err := f.store.Batteries().GetByID(ctx, best.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatteryPending, unit.Status)
	assert.Equal(t, booking.ID, *unit.ReservedForBooking)

	credit, err := f.store.Credits().GetActiveByDriver(ctx, driver.UserID)
	require.NoError(t, err)
	assert.Equal(t, 4, credit.RemainingSwaps)

	f.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
		return n.Kind == domain.NotifyBookingConfirmed && n.Recipient == driver.UserID.String()
	}))

	// Повторное подтверждение - конфликт
	_, err = f.svc.Confirm(ctx, staff, booking.ID)
	assert.ErrorIs(t, err, domain.ErrBookingNotPending)
}

func TestService_Confirm_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("водитель не может подтверждать", func(t *testing.T) {
		f := newFixture(t)
		driver, vehicle := f.driver(t, 1)
		f.battery(t, 100, 90)
		booking, err := f.svc.Create(ctx, driver, vehicle.ID, f.stationID)
		require.NoError(t, err)

		_, err = f.svc.Confirm(ctx, driver, booking.ID)
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("бронирование не найдено", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Confirm(ctx, staff, uuid.New())
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	})

	t.Run("нет подходящей батареи", func(t *testing.T) {
		f := newFixture(t)
		driver, vehicle := f.driver(t, 1)
		f.battery(t, 90, 90)
		booking, err := f.svc.Create(ctx, driver, vehicle.ID, f.stationID)
		require.NoError(t, err)

		_, err = f.svc.Confirm(ctx, staff, booking.ID)
		assert.ErrorIs(t, err, domain.ErrNoBatteryAvailable)
	})

	t.Run("нет подписки - все шаги откатываются", func(t *testing.T) {
		f := newFixture(t)
		driver, vehicle := f.driver(t, 0)
		unit := f.battery(t, 100, 90)
		booking, err := f.svc.Create(ctx, driver, vehicle.ID, f.stationID)
		require.NoError(t, err)

		_, err = f.svc.Confirm(ctx, staff, booking.ID)
		assert.ErrorIs(t, err, domain.ErrNoActiveCredit)
		assert.ErrorIs(t, err, domain.ErrConflict)

		stored, err := f.store.Batteries().GetByID(ctx, unit.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BatteryAvailable, stored.Status)
		assert.Nil(t, stored.ReservedForBooking)

		storedBooking, err := f.store.Bookings().GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingPending, storedBooking.Status)
	})

	t.Run("пространство кодов исчерпано", func(t *testing.T) {
		f := newFixture(t)
		first, firstVehicle := f.driver(t, 1)
		second, secondVehicle := f.driver(t, 1)
		f.battery(t, 100, 90)
		f.battery(t, 100, 90)

		attempts := 0
		f.svc.generate = func() (string, error) {
			attempts++
			return "ABC123", nil
		}

		b1, err := f.svc.Create(ctx, first, firstVehicle.ID, f.stationID)
		require.NoError(t, err)
		_, err = f.svc.Confirm(ctx, staff, b1.ID)
		require.NoError(t, err)

		attempts = 0
		b2, err := f.svc.Create(ctx, second, secondVehicle.ID, f.stationID)
		require.NoError(t, err)
		_, err = f.svc.Confirm(ctx, staff, b2.ID)
		assert.ErrorIs(t, err, domain.ErrCodeSpaceExhausted)
		assert.ErrorIs(t, err, domain.ErrExhausted)
		assert.Equal(t, 10, attempts)
	})
}

// Два параллельных подтверждения борются за единственную батарею: ровно одно успешно
func TestService_Confirm_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unit := f.battery(t, 100, 90)

	var bookingIDs []uuid.UUID
	for i := 0; i < 2; i++ {
		driver, vehicle := f.driver(t, 3)
		booking, err := f.svc.Create(ctx, driver, vehicle.ID, f.stationID)
		require.NoError(t, err)
		bookingIDs = append(bookingIDs, booking.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(bookingIDs))
	for i, id := range bookingIDs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.Confirm(ctx, staff, id)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrNoBatteryAvailable)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := f.store.Batteries().GetByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatteryPending, stored.Status)
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, vehicle := f.driver(t, 2)
	stranger, _ := f.driver(t, 0)
	f.battery(t, 100, 90)

	pending, err := f.svc.Create(ctx, owner, vehicle.ID, f.stationID)
	require.NoError(t, err)
	toConfirm, err := f.svc.Create(ctx, owner, vehicle.ID, f.stationID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, staff, toConfirm.ID)
	require.NoError(t, err)

	tests := []struct {
		name       string
		identity   domain.Identity
		bookingID  uuid.UUID
		wantErr    error
		wantReason string
	}{
		{name: "чужой водитель", identity: stranger, bookingID: pending.ID, wantErr: domain.ErrAccessDenied},
		{name: "подтвержденное нельзя отменить", identity: owner, bookingID: toConfirm.ID, wantErr: domain.ErrConflict},
		{name: "владелец отменяет", identity: owner, bookingID: pending.ID, wantReason: domain.CancelReasonDriver},
		{name: "повторная отмена", identity: owner, bookingID: pending.ID, wantErr: domain.ErrBookingNotPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking, err := f.svc.Cancel(ctx, tt.identity, tt.bookingID, "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.BookingCancelled, booking.Status)
			assert.Equal(t, tt.wantReason, booking.CancelReason)
			assert.NotNil(t, booking.CancelledAt)
		})
	}
}

func TestService_GetAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, vehicle := f.driver(t, 1)
	stranger, _ := f.driver(t, 0)

	booking, err := f.svc.Create(ctx, owner, vehicle.ID, f.stationID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, stranger, booking.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	got, err := f.svc.Get(ctx, staff, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	mine, err := f.svc.ListMine(ctx, owner, 0, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.svc.ListByStation(ctx, owner, f.stationID, "", 10, 0)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	byStation, err := f.svc.ListByStation(ctx, staff, f.stationID, domain.BookingPending, 10, 0)
	require.NoError(t, err)
	assert.Len(t, byStation, 1)
}
