package memory

import (
	"context"
	"sort"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/google/uuid"
)

type subscriptionRepository struct {
	s *Store
}

func (r *subscriptionRepository) activeFor(driverID uuid.UUID) *domain.SubscriptionCredit {
	for _, c := range r.s.credits {
		if c.DriverID == driverID && c.Status == domain.CreditActive {
			return c
		}
	}
	return nil
}

func (r *subscriptionRepository) Create(ctx context.Context, credit *domain.SubscriptionCredit) error {
	if err := credit.Validate(); err != nil {
		return err
	}

	defer r.s.lock(ctx)()

	if credit.Status == "" {
		credit.Status = domain.CreditActive
	}
	if credit.Status == domain.CreditActive && r.activeFor(credit.DriverID) != nil {
		return domain.ErrCreditAlreadyActive
	}

	if credit.ID == uuid.Nil {
		credit.ID = uuid.New()
	}
	credit.CreatedAt = time.Now()
	credit.UpdatedAt = credit.CreatedAt

	r.s.credits[credit.ID] = clone(credit)
	return nil
}

func (r *subscriptionRepository) GetActiveByDriver(ctx context.Context, driverID uuid.UUID) (*domain.SubscriptionCredit, error) {
	defer r.s.lock(ctx)()

	c := r.activeFor(driverID)
	if c == nil {
		return nil, domain.ErrCreditNotFound
	}
	return clone(c), nil
}

func (r *subscriptionRepository) ConsumeOne(ctx context.Context, driverID uuid.UUID, now time.Time) (*domain.SubscriptionCredit, error) {
	defer r.s.lock(ctx)()

	current := r.activeFor(driverID)
	if current == nil {
		return nil, domain.ErrNoActiveCredit
	}

	c := clone(current)
	if err := c.Consume(now); err != nil {
		return nil, err
	}
	r.s.credits[c.ID] = c
	return clone(c), nil
}

func (r *subscriptionRepository) ExpireOutdated(ctx context.Context, now time.Time, limit int) (int, error) {
	defer r.s.lock(ctx)()

	var outdated []*domain.SubscriptionCredit
	for _, c := range r.s.credits {
		if c.Status == domain.CreditActive && !c.EndDate.After(now) {
			outdated = append(outdated, c)
		}
	}
	sort.Slice(outdated, func(i, j int) bool {
		return outdated[i].EndDate.Before(outdated[j].EndDate)
	})
	outdated = paginate(outdated, limit, 0)

	for _, current := range outdated {
		c := clone(current)
		c.Status = domain.CreditExpired
		c.UpdatedAt = now
		r.s.credits[c.ID] = c
	}
	return len(outdated), nil
}
