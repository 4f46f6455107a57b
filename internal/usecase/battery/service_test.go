package battery

import (
	"context"
	"testing"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/frontandrew/swapstation/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitWith(id string, charge, health float64, status domain.BatteryStatus) *domain.BatteryUnit {
	return &domain.BatteryUnit{
		ID:            uuid.MustParse(id),
		Model:         "LFP-48",
		ChargeLevel:   charge,
		StateOfHealth: health,
		Status:        status,
	}
}

func TestSelectCandidates(t *testing.T) {
	units := []*domain.BatteryUnit{
		unitWith("00000000-0000-0000-0000-000000000001", 96, 85, domain.BatteryAvailable),
		unitWith("00000000-0000-0000-0000-000000000002", 99, 90, domain.BatteryAvailable),
		unitWith("00000000-0000-0000-0000-000000000003", 97, 90, domain.BatteryAvailable),
		unitWith("00000000-0000-0000-0000-000000000004", 97, 90, domain.BatteryAvailable),
		unitWith("00000000-0000-0000-0000-000000000005", 94, 99, domain.BatteryAvailable),   // мало заряда
		unitWith("00000000-0000-0000-0000-000000000006", 100, 69, domain.BatteryAvailable),  // низкий SOH
		unitWith("00000000-0000-0000-0000-000000000007", 100, 100, domain.BatteryCharging),  // не AVAILABLE
	}
	other := unitWith("00000000-0000-0000-0000-000000000008", 100, 100, domain.BatteryAvailable)
	other.Model = "NMC-72"
	units = append(units, other)

	got := SelectCandidates(units, "LFP-48")

	var ids []string
	for _, u := range got {
		ids = append(ids, u.ID.String()[35:])
	}
	assert.Equal(t, []string{"2", "3", "4", "1"}, ids)
}

func TestApplyCharge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	full := 4 * time.Hour
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name       string
		charge     float64
		health     float64
		last       *time.Time
		wantCharge float64
		wantStatus domain.BatteryStatus
		wantStamp  bool
	}{
		{
			name:       "первый проход только ставит отметку",
			charge:     20,
			health:     90,
			last:       nil,
			wantCharge: 20,
			wantStatus: domain.BatteryCharging,
			wantStamp:  true,
		},
		{
			name:       "частичная зарядка",
			charge:     20,
			health:     90,
			last:       ago(time.Hour),
			wantCharge: 45,
			wantStatus: domain.BatteryCharging,
		},
		{
			name:       "заряжен до 95 со здоровым SOH",
			charge:     70,
			health:     90,
			last:       ago(time.Hour),
			wantCharge: 95,
			wantStatus: domain.BatteryAvailable,
		},
		{
			name:       "заряд ограничен сотней",
			charge:     90,
			health:     90,
			last:       ago(10 * time.Hour),
			wantCharge: 100,
			wantStatus: domain.BatteryAvailable,
		},
		{
			name:       "полный заряд с низким SOH уходит в обслуживание",
			charge:     80,
			health:     65,
			last:       ago(2 * time.Hour),
			wantCharge: 100,
			wantStatus: domain.BatteryMaintenance,
		},
		{
			name:       "95 с низким SOH продолжает заряжаться",
			charge:     70,
			health:     65,
			last:       ago(time.Hour),
			wantCharge: 95,
			wantStatus: domain.BatteryCharging,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit := &domain.BatteryUnit{ChargeLevel: tt.charge, StateOfHealth: tt.health, LastChargedTime: tt.last}
			got := ApplyCharge(unit, now, full)

			assert.InDelta(t, tt.wantCharge, got.Charge, 0.0001)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantStamp, got.Stamped)
		})
	}
}

// racingRepository проигрывает резерв первого блока, как будто его забрал параллельный запрос
type racingRepository struct {
	repository.BatteryRepository
	lost uuid.UUID
}

func (r *racingRepository) Reserve(ctx context.Context, id, bookingID uuid.UUID, expiry time.Time) error {
	if id == r.lost {
		return domain.ErrBatteryStateChanged
	}
	return r.BatteryRepository.Reserve(ctx, id, bookingID, expiry)
}

func TestService_ReserveForBooking(t *testing.T) {
	ctx := context.Background()
	stationID := uuid.New()

	seed := func(t *testing.T, store *memory.Store, health float64) *domain.BatteryUnit {
		unit := &domain.BatteryUnit{
			Model:            "LFP-48",
			ChargeLevel:      100,
			StateOfHealth:    health,
			Status:           domain.BatteryAvailable,
			CurrentStationID: &stationID,
		}
		require.NoError(t, store.Batteries().Create(ctx, unit))
		return unit
	}

	t.Run("резервирует лучший блок", func(t *testing.T) {
		store := memory.NewStore()
		seed(t, store, 80)
		best := seed(t, store, 95)

		svc := NewService(store.Batteries(), logger.NewNoop(), 4*time.Hour)
		bookingID := uuid.New()
		unit, err := svc.ReserveForBooking(ctx, stationID, "LFP-48", bookingID, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, best.ID, unit.ID)

		stored, err := store.Batteries().GetByID(ctx, best.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BatteryPending, stored.Status)
		assert.Equal(t, bookingID, *stored.ReservedForBooking)
	})

	t.Run("проигранная гонка переходит к следующему", func(t *testing.T) {
		store := memory.NewStore()
		second := seed(t, store, 80)
		best := seed(t, store, 95)

		repo := &racingRepository{BatteryRepository: store.Batteries(), lost: best.ID}
		svc := NewService(repo, logger.NewNoop(), 4*time.Hour)
		unit, err := svc.ReserveForBooking(ctx, stationID, "LFP-48", uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, second.ID, unit.ID)
	})

	t.Run("нет подходящих блоков", func(t *testing.T) {
		store := memory.NewStore()
		seed(t, store, 60)

		svc := NewService(store.Batteries(), logger.NewNoop(), 4*time.Hour)
		_, err := svc.ReserveForBooking(ctx, stationID, "LFP-48", uuid.New(), time.Now().Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrNoBatteryAvailable)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestService_RestoreFromMaintenance(t *testing.T) {
	ctx := context.Background()
	staff := domain.Identity{UserID: uuid.New(), Role: domain.RoleStaff}
	driver := domain.Identity{UserID: uuid.New(), Role: domain.RoleDriver}

	tests := []struct {
		name     string
		identity domain.Identity
		status   domain.BatteryStatus
		health   float64
		wantErr  error
	}{
		{name: "успешное восстановление", identity: staff, status: domain.BatteryMaintenance, health: 85},
		{name: "водителю запрещено", identity: driver, status: domain.BatteryMaintenance, health: 85, wantErr: domain.ErrAccessDenied},
		{name: "SOH ниже 70", identity: staff, status: domain.BatteryMaintenance, health: 69.9, wantErr: domain.ErrValidation},
		{name: "SOH выше 100", identity: staff, status: domain.BatteryMaintenance, health: 101, wantErr: domain.ErrValidation},
		{name: "блок не на обслуживании", identity: staff, status: domain.BatteryCharging, health: 85, wantErr: domain.ErrBatteryNotInMaint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			stationID := uuid.New()
			unit := &domain.BatteryUnit{
				Model:            "LFP-48",
				ChargeLevel:      100,
				StateOfHealth:    40,
				Status:           tt.status,
				CurrentStationID: &stationID,
				UsageCount:       321,
			}
			require.NoError(t, store.Batteries().Create(ctx, unit))

			svc := NewService(store.Batteries(), logger.NewNoop(), 4*time.Hour)
			got, err := svc.RestoreFromMaintenance(ctx, tt.identity, unit.ID, tt.health)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.BatteryAvailable, got.Status)
			assert.Equal(t, tt.health, got.StateOfHealth)
			assert.Equal(t, 0, got.UsageCount)
		})
	}
}

func TestService_ReleaseToStation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	vehicleID := uuid.New()
	stationID := uuid.New()

	tests := []struct {
		name       string
		health     float64
		wantStatus domain.BatteryStatus
	}{
		{name: "здоровый блок на зарядку", health: 88, wantStatus: domain.BatteryCharging},
		{name: "изношенный блок на обслуживание", health: 55, wantStatus: domain.BatteryMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vid := vehicleID
			unit := &domain.BatteryUnit{
				Model:         "LFP-48",
				ChargeLevel:   20,
				StateOfHealth: tt.health,
				Status:        domain.BatteryInUse,
				VehicleID:     &vid,
			}
			require.NoError(t, store.Batteries().Create(ctx, unit))

			svc := NewService(store.Batteries(), logger.NewNoop(), 4*time.Hour)
			require.NoError(t, svc.ReleaseToStation(ctx, unit, stationID))

			stored, err := store.Batteries().GetByID(ctx, unit.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Nil(t, stored.VehicleID)
			assert.Equal(t, stationID, *stored.CurrentStationID)
			assert.GreaterOrEqual(t, stored.ChargeLevel, 10.0)
			assert.Less(t, stored.ChargeLevel, 50.0)
			assert.NotNil(t, stored.LastChargedTime)
		})
	}
}
