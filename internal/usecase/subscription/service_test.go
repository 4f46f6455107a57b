package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(now time.Time) (*Service, *memory.Store) {
	store := memory.NewStore()
	svc := NewService(store.Credits(), logger.NewNoop())
	svc.now = func() time.Time { return now }
	return svc, store
}

func TestService_Grant(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	driverID := uuid.New()

	tests := []struct {
		name    string
		topUps  []TopUp
		wantErr error
	}{
		{
			name: "новый пакет",
			topUps: []TopUp{
				{DriverID: driverID, PackageID: uuid.New(), Swaps: 10, StartDate: now, EndDate: now.AddDate(0, 1, 0)},
			},
		},
		{
			name: "второй активный пакет",
			topUps: []TopUp{
				{DriverID: driverID, PackageID: uuid.New(), Swaps: 10, StartDate: now, EndDate: now.AddDate(0, 1, 0)},
				{DriverID: driverID, PackageID: uuid.New(), Swaps: 5, StartDate: now, EndDate: now.AddDate(0, 1, 0)},
			},
			wantErr: domain.ErrConflict,
		},
		{
			name: "нулевое количество обменов",
			topUps: []TopUp{
				{DriverID: driverID, PackageID: uuid.New(), Swaps: 0, StartDate: now, EndDate: now.AddDate(0, 1, 0)},
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "конец раньше начала",
			topUps: []TopUp{
				{DriverID: driverID, PackageID: uuid.New(), Swaps: 3, StartDate: now, EndDate: now.Add(-time.Hour)},
			},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(now)

			var err error
			for _, topUp := range tt.topUps {
				_, err = svc.Grant(context.Background(), topUp)
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_ConsumeOne(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	driverID := uuid.New()

	svc, _ := newTestService(now)
	_, err := svc.Grant(ctx, TopUp{DriverID: driverID, PackageID: uuid.New(), Swaps: 2, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)})
	require.NoError(t, err)

	credit, err := svc.ConsumeOne(ctx, driverID)
	require.NoError(t, err)
	assert.Equal(t, 1, credit.RemainingSwaps)
	assert.Equal(t, domain.CreditActive, credit.Status)

	credit, err = svc.ConsumeOne(ctx, driverID)
	require.NoError(t, err)
	assert.Equal(t, 0, credit.RemainingSwaps)
	assert.Equal(t, domain.CreditExpired, credit.Status)

	_, err = svc.ConsumeOne(ctx, driverID)
	assert.ErrorIs(t, err, domain.ErrNoActiveCredit)
}

func TestService_ConsumeOne_OutsideWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	driverID := uuid.New()

	svc, _ := newTestService(now)
	_, err := svc.Grant(ctx, TopUp{DriverID: driverID, PackageID: uuid.New(), Swaps: 5, StartDate: now.Add(time.Hour), EndDate: now.Add(2 * time.Hour)})
	require.NoError(t, err)

	_, err = svc.ConsumeOne(ctx, driverID)
	assert.ErrorIs(t, err, domain.ErrNoActiveCredit)
}

func TestService_ExpireOutdated(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newTestService(now)

	expiredDriver, activeDriver := uuid.New(), uuid.New()
	_, err := svc.Grant(ctx, TopUp{DriverID: expiredDriver, PackageID: uuid.New(), Swaps: 5, StartDate: now.AddDate(0, -1, 0), EndDate: now.Add(-time.Minute)})
	require.NoError(t, err)
	_, err = svc.Grant(ctx, TopUp{DriverID: activeDriver, PackageID: uuid.New(), Swaps: 5, StartDate: now, EndDate: now.AddDate(0, 1, 0)})
	require.NoError(t, err)

	count, err := svc.ExpireOutdated(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.Credits().GetActiveByDriver(ctx, expiredDriver)
	assert.ErrorIs(t, err, domain.ErrCreditNotFound)

	_, err = store.Credits().GetActiveByDriver(ctx, activeDriver)
	assert.NoError(t, err)
}

func TestService_GetActive_Access(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(time.Now())
	driverID := uuid.New()

	_, err := svc.GetActive(ctx, domain.Identity{UserID: uuid.New(), Role: domain.RoleDriver}, driverID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = svc.GetActive(ctx, domain.Identity{UserID: driverID, Role: domain.RoleDriver}, driverID)
	assert.ErrorIs(t, err, domain.ErrCreditNotFound)
}
