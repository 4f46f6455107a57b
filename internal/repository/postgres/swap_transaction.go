package postgres

import (
	"context"
	"errors"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const swapColumns = `id, driver_id, vehicle_id, station_id, staff_id, booking_id,
	swap_out_battery_id, swap_out_battery_model, swap_out_battery_charge_level, swap_out_battery_health,
	swap_in_battery_id, swap_in_battery_model, swap_in_battery_charge_level, swap_in_battery_health,
	start_time, end_time, status`

type swapTransactionRepository struct {
	db *pgxpool.Pool
}

func NewSwapTransactionRepository(db *pgxpool.Pool) repository.SwapTransactionRepository {
	return &swapTransactionRepository{db: db}
}

func scanSwap(row scanner) (*domain.SwapTransaction, error) {
	tx := &domain.SwapTransaction{}
	err := row.Scan(
		&tx.ID,
		&tx.DriverID,
		&tx.VehicleID,
		&tx.StationID,
		&tx.StaffID,
		&tx.BookingID,
		&tx.SwapOutBatteryID,
		&tx.SwapOutBatteryModel,
		&tx.SwapOutBatteryChargeLevel,
		&tx.SwapOutBatteryHealth,
		&tx.SwapInBatteryID,
		&tx.SwapInBatteryModel,
		&tx.SwapInBatteryChargeLevel,
		&tx.SwapInBatteryHealth,
		&tx.StartTime,
		&tx.EndTime,
		&tx.Status,
	)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *swapTransactionRepository) Create(ctx context.Context, tx *domain.SwapTransaction) error {
	query := `
		INSERT INTO swap_transactions (` + swapColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	_, err := conn(ctx, r.db).Exec(ctx, query,
		tx.ID,
		tx.DriverID,
		tx.VehicleID,
		tx.StationID,
		tx.StaffID,
		tx.BookingID,
		tx.SwapOutBatteryID,
		tx.SwapOutBatteryModel,
		tx.SwapOutBatteryChargeLevel,
		tx.SwapOutBatteryHealth,
		tx.SwapInBatteryID,
		tx.SwapInBatteryModel,
		tx.SwapInBatteryChargeLevel,
		tx.SwapInBatteryHealth,
		tx.StartTime,
		tx.EndTime,
		tx.Status,
	)
	return err
}

func (r *swapTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SwapTransaction, error) {
	tx, err := scanSwap(conn(ctx, r.db).QueryRow(ctx, `SELECT `+swapColumns+` FROM swap_transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSwapTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (r *swapTransactionRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, limit, offset int) ([]*domain.SwapTransaction, error) {
	query := `
		SELECT ` + swapColumns + `
		FROM swap_transactions
		WHERE driver_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, driverID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.SwapTransaction
	for rows.Next() {
		tx, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}
