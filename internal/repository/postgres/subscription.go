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

const creditColumns = `id, driver_id, package_id, start_date, end_date, status, remaining_swaps, created_at, updated_at`

type subscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func scanCredit(row scanner) (*domain.SubscriptionCredit, error) {
	c := &domain.SubscriptionCredit{}
	err := row.Scan(
		&c.ID,
		&c.DriverID,
		&c.PackageID,
		&c.StartDate,
		&c.EndDate,
		&c.Status,
		&c.RemainingSwaps,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *subscriptionRepository) Create(ctx context.Context, credit *domain.SubscriptionCredit) error {
	if err := credit.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO subscription_credits (` + creditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if credit.ID == uuid.Nil {
		credit.ID = uuid.New()
	}
	if credit.Status == "" {
		credit.Status = domain.CreditActive
	}
	credit.CreatedAt = time.Now()
	credit.UpdatedAt = credit.CreatedAt

	_, err := conn(ctx, r.db).Exec(ctx, query,
		credit.ID,
		credit.DriverID,
		credit.PackageID,
		credit.StartDate,
		credit.EndDate,
		credit.Status,
		credit.RemainingSwaps,
		credit.CreatedAt,
		credit.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCreditAlreadyActive
		}
		return err
	}

	return nil
}

func (r *subscriptionRepository) GetActiveByDriver(ctx context.Context, driverID uuid.UUID) (*domain.SubscriptionCredit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM subscription_credits
		WHERE driver_id = $1 AND status = $2
	`

	credit, err := scanCredit(conn(ctx, r.db).QueryRow(ctx, query, driverID, domain.CreditActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCreditNotFound
		}
		return nil, err
	}

	return credit, nil
}

func (r *subscriptionRepository) ConsumeOne(ctx context.Context, driverID uuid.UUID, now time.Time) (*domain.SubscriptionCredit, error) {
	// В SET remaining_swaps - значение до обновления
	query := `
		UPDATE subscription_credits
		SET remaining_swaps = remaining_swaps - 1,
			status = CASE WHEN remaining_swaps - 1 = 0 THEN $3 ELSE status END,
			updated_at = $2
		WHERE driver_id = $1
			AND status = $4
			AND remaining_swaps > 0
			AND start_date <= $2
			AND end_date > $2
		RETURNING ` + creditColumns

	credit, err := scanCredit(conn(ctx, r.db).QueryRow(ctx, query,
		driverID, now, domain.CreditExpired, domain.CreditActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveCredit
		}
		return nil, err
	}

	return credit, nil
}

func (r *subscriptionRepository) ExpireOutdated(ctx context.Context, now time.Time, limit int) (int, error) {
	query := `
		UPDATE subscription_credits
		SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM subscription_credits
			WHERE status = $3 AND end_date <= $2
			ORDER BY end_date
			LIMIT $4
		)
	`

	result, err := conn(ctx, r.db).Exec(ctx, query, domain.CreditExpired, now, domain.CreditActive, limit)
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}
