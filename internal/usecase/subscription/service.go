package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/google/uuid"
)

// TopUp - событие пополнения от внешнего сервиса оплаты
type TopUp struct {
	DriverID  uuid.UUID `json:"driver_id"`
	PackageID uuid.UUID `json:"package_id"`
	Swaps     int       `json:"swaps"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Service - журнал остатка обменов по подписке
type Service struct {
	creditRepo repository.SubscriptionRepository
	logger     logger.Logger
	now        func() time.Time
}

// NewService создает новый экземпляр Ledger
func NewService(creditRepo repository.SubscriptionRepository, logger logger.Logger) *Service {
	return &Service{
		creditRepo: creditRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// ConsumeOne списывает один обмен у водителя одной условной операцией.
// Нет пригодной записи - domain.ErrNoActiveCredit (конфликт).
func (s *Service) ConsumeOne(ctx context.Context, driverID uuid.UUID) (*domain.SubscriptionCredit, error) {
	credit, err := s.creditRepo.ConsumeOne(ctx, driverID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveCredit) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to consume credit: %w", err)
	}

	s.logger.Info("Subscription credit consumed", map[string]interface{}{
		"driver_id": driverID,
		"credit_id": credit.ID,
		"remaining": credit.RemainingSwaps,
		"status":    credit.Status,
	})

	return credit, nil
}

// Grant создает новую ACTIVE запись по событию пополнения
func (s *Service) Grant(ctx context.Context, topUp TopUp) (*domain.SubscriptionCredit, error) {
	credit := &domain.SubscriptionCredit{
		DriverID:       topUp.DriverID,
		PackageID:      topUp.PackageID,
		StartDate:      topUp.StartDate,
		EndDate:        topUp.EndDate,
		Status:         domain.CreditActive,
		RemainingSwaps: topUp.Swaps,
	}

	if err := credit.Validate(); err != nil {
		return nil, err
	}

	if err := s.creditRepo.Create(ctx, credit); err != nil {
		if errors.Is(err, domain.ErrCreditAlreadyActive) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create credit: %w", err)
	}

	s.logger.Info("Subscription credit granted", map[string]interface{}{
		"driver_id":  credit.DriverID,
		"credit_id":  credit.ID,
		"package_id": credit.PackageID,
		"swaps":      credit.RemainingSwaps,
	})

	return credit, nil
}

// GetActive возвращает ACTIVE запись водителя
func (s *Service) GetActive(ctx context.Context, identity domain.Identity, driverID uuid.UUID) (*domain.SubscriptionCredit, error) {
	if !identity.CanAct(driverID) {
		return nil, domain.ErrForbidden
	}
	return s.creditRepo.GetActiveByDriver(ctx, driverID)
}

// ExpireOutdated переводит в EXPIRED записи, срок которых закончился
func (s *Service) ExpireOutdated(ctx context.Context, limit int) (int, error) {
	count, err := s.creditRepo.ExpireOutdated(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to expire credits: %w", err)
	}
	return count, nil
}
