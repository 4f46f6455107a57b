package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const batteryColumns = `id, model, capacity_kwh, charge_level, state_of_health, status,
	current_station_id, vehicle_id, reserved_for_booking, reservation_expiry,
	last_charged_time, usage_count, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

type batteryRepository struct {
	db *pgxpool.Pool
}

func NewBatteryRepository(db *pgxpool.Pool) repository.BatteryRepository {
	return &batteryRepository{db: db}
}

func scanBattery(row scanner) (*domain.BatteryUnit, error) {
	unit := &domain.BatteryUnit{}
	err := row.Scan(
		&unit.ID,
		&unit.Model,
		&unit.CapacityKWh,
		&unit.ChargeLevel,
		&unit.StateOfHealth,
		&unit.Status,
		&unit.CurrentStationID,
		&unit.VehicleID,
		&unit.ReservedForBooking,
		&unit.ReservationExpiry,
		&unit.LastChargedTime,
		&unit.UsageCount,
		&unit.CreatedAt,
		&unit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return unit, nil
}

func (r *batteryRepository) queryList(ctx context.Context, query string, args ...any) ([]*domain.BatteryUnit, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []*domain.BatteryUnit
	for rows.Next() {
		unit, err := scanBattery(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	return units, rows.Err()
}

func (r *batteryRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.BatteryUnit, error) {
	unit, err := scanBattery(conn(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBatteryNotFound
		}
		return nil, err
	}
	return unit, nil
}

// exec выполняет условное обновление и превращает 0 затронутых строк в конфликт
func (r *batteryRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrBatteryStateChanged
	}
	return nil
}

func (r *batteryRepository) Create(ctx context.Context, unit *domain.BatteryUnit) error {
	if err := unit.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO battery_units (` + batteryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	if unit.ID == uuid.Nil {
		unit.ID = uuid.New()
	}
	unit.CreatedAt = time.Now()
	unit.UpdatedAt = unit.CreatedAt

	_, err := conn(ctx, r.db).Exec(ctx, query,
		unit.ID,
		unit.Model,
		unit.CapacityKWh,
		unit.ChargeLevel,
		unit.StateOfHealth,
		unit.Status,
		unit.CurrentStationID,
		unit.VehicleID,
		unit.ReservedForBooking,
		unit.ReservationExpiry,
		unit.LastChargedTime,
		unit.UsageCount,
		unit.CreatedAt,
		unit.UpdatedAt,
	)
	return err
}

func (r *batteryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatteryUnit, error) {
	return r.queryOne(ctx, `SELECT `+batteryColumns+` FROM battery_units WHERE id = $1`, id)
}

func (r *batteryRepository) ListByStation(ctx context.Context, stationID uuid.UUID) ([]*domain.BatteryUnit, error) {
	query := `
		SELECT ` + batteryColumns + `
		FROM battery_units
		WHERE current_station_id = $1
		ORDER BY id
	`
	return r.queryList(ctx, query, stationID)
}

func (r *batteryRepository) ListAvailableAtStation(ctx context.Context, stationID uuid.UUID, model string) ([]*domain.BatteryUnit, error) {
	query := `
		SELECT ` + batteryColumns + `
		FROM battery_units
		WHERE current_station_id = $1 AND model = $2 AND status = $3
		ORDER BY state_of_health DESC, charge_level DESC, id
	`
	return r.queryList(ctx, query, stationID, model, domain.BatteryAvailable)
}

func (r *batteryRepository) GetReservedForBooking(ctx context.Context, bookingID uuid.UUID) (*domain.BatteryUnit, error) {
	query := `
		SELECT ` + batteryColumns + `
		FROM battery_units
		WHERE reserved_for_booking = $1 AND status = $2
	`
	unit, err := r.queryOne(ctx, query, bookingID, domain.BatteryPending)
	if errors.Is(err, domain.ErrBatteryNotFound) {
		return nil, domain.ErrBatteryNotReserved
	}
	return unit, err
}

func (r *batteryRepository) GetMountedOnVehicle(ctx context.Context, vehicleID uuid.UUID) (*domain.BatteryUnit, error) {
	unit, err := r.queryOne(ctx, `SELECT `+batteryColumns+` FROM battery_units WHERE vehicle_id = $1`, vehicleID)
	if errors.Is(err, domain.ErrBatteryNotFound) {
		return nil, nil
	}
	return unit, err
}

func (r *batteryRepository) ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*domain.BatteryUnit, error) {
	query := `
		SELECT ` + batteryColumns + `
		FROM battery_units
		WHERE status = $1 AND reservation_expiry < $2
		ORDER BY reservation_expiry
		LIMIT $3
	`
	return r.queryList(ctx, query, domain.BatteryPending, now, limit)
}

func (r *batteryRepository) ListByStatus(ctx context.Context, status domain.BatteryStatus, limit, offset int) ([]*domain.BatteryUnit, error) {
	query := `
		SELECT ` + batteryColumns + `
		FROM battery_units
		WHERE status = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`
	return r.queryList(ctx, query, status, limit, offset)
}

func (r *batteryRepository) List(ctx context.Context, limit, offset int) ([]*domain.BatteryUnit, error) {
	query := `
		SELECT ` + batteryColumns + `
		FROM battery_units
		ORDER BY id
		LIMIT $1 OFFSET $2
	`
	return r.queryList(ctx, query, limit, offset)
}

func (r *batteryRepository) Reserve(ctx context.Context, id, bookingID uuid.UUID, expiry time.Time) error {
	query := `
		UPDATE battery_units
		SET status = $1, reserved_for_booking = $2, reservation_expiry = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	return r.exec(ctx, query, domain.BatteryPending, bookingID, expiry, id, domain.BatteryAvailable)
}

func (r *batteryRepository) ReleaseReservation(ctx context.Context, id, bookingID uuid.UUID) error {
	query := `
		UPDATE battery_units
		SET status = $1, reserved_for_booking = NULL, reservation_expiry = NULL, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND reserved_for_booking = $4
	`
	return r.exec(ctx, query, domain.BatteryAvailable, id, domain.BatteryPending, bookingID)
}

func (r *batteryRepository) Mount(ctx context.Context, id, bookingID, vehicleID uuid.UUID) error {
	query := `
		UPDATE battery_units
		SET status = $1, vehicle_id = $2, current_station_id = NULL,
			reserved_for_booking = NULL, reservation_expiry = NULL,
			usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $3 AND status = $4 AND reserved_for_booking = $5
	`
	return r.exec(ctx, query, domain.BatteryInUse, vehicleID, id, domain.BatteryPending, bookingID)
}

func (r *batteryRepository) Unmount(ctx context.Context, id, vehicleID, stationID uuid.UUID, status domain.BatteryStatus, charge float64, at time.Time) error {
	query := `
		UPDATE battery_units
		SET status = $1, vehicle_id = NULL, current_station_id = $2,
			charge_level = $3, last_charged_time = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6 AND vehicle_id = $7
	`
	return r.exec(ctx, query, status, stationID, charge, at, id, domain.BatteryInUse, vehicleID)
}

func (r *batteryRepository) ApplyCharge(ctx context.Context, id uuid.UUID, status domain.BatteryStatus, charge float64, at time.Time) error {
	query := `
		UPDATE battery_units
		SET status = $1, charge_level = $2, last_charged_time = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	return r.exec(ctx, query, status, charge, at, id, domain.BatteryCharging)
}

func (r *batteryRepository) ForceMaintenance(ctx context.Context, id uuid.UUID, expected domain.BatteryStatus) error {
	query := `
		UPDATE battery_units
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	return r.exec(ctx, query, domain.BatteryMaintenance, id, expected)
}

func (r *batteryRepository) Restore(ctx context.Context, id uuid.UUID, health float64) error {
	query := `
		UPDATE battery_units
		SET status = $1, state_of_health = $2, usage_count = 0, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	return r.exec(ctx, query, domain.BatteryAvailable, health, id, domain.BatteryMaintenance)
}
