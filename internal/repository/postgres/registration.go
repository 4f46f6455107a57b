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

const registrationColumns = `id, driver_id, vehicle_id, license_plate, status, reject_reason, created_at, decided_at`

type registrationRepository struct {
	db *pgxpool.Pool
}

func NewRegistrationRepository(db *pgxpool.Pool) repository.RegistrationRepository {
	return &registrationRepository{db: db}
}

func scanRegistration(row scanner) (*domain.VehicleRegistration, error) {
	reg := &domain.VehicleRegistration{}
	err := row.Scan(
		&reg.ID,
		&reg.DriverID,
		&reg.VehicleID,
		&reg.LicensePlate,
		&reg.Status,
		&reg.RejectReason,
		&reg.CreatedAt,
		&reg.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.VehicleRegistration) error {
	query := `
		INSERT INTO vehicle_registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

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

	_, err := conn(ctx, r.db).Exec(ctx, query,
		reg.ID,
		reg.DriverID,
		reg.VehicleID,
		reg.LicensePlate,
		reg.Status,
		reg.RejectReason,
		reg.CreatedAt,
		reg.DecidedAt,
	)
	return err
}

func (r *registrationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.VehicleRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM vehicle_registrations WHERE id = $1`

	reg, err := scanRegistration(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.VehicleRegistration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM vehicle_registrations
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, domain.RegistrationPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*domain.VehicleRegistration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}

	return regs, rows.Err()
}

func (r *registrationRepository) Approve(ctx context.Context, id, vehicleID uuid.UUID, at time.Time) error {
	query := `
		UPDATE vehicle_registrations
		SET status = $1, vehicle_id = $2, decided_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := conn(ctx, r.db).Exec(ctx, query, domain.RegistrationApproved, vehicleID, at, id, domain.RegistrationPending)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRegistrationDecided
	}

	return nil
}

func (r *registrationRepository) Reject(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	query := `
		UPDATE vehicle_registrations
		SET status = $1, reject_reason = $2, decided_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := conn(ctx, r.db).Exec(ctx, query, domain.RegistrationRejected, reason, at, id, domain.RegistrationPending)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRegistrationDecided
	}

	return nil
}
