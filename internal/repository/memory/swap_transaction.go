package memory

import (
	"context"
	"sort"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/google/uuid"
)

type swapTransactionRepository struct {
	s *Store
}

func (r *swapTransactionRepository) Create(ctx context.Context, tx *domain.SwapTransaction) error {
	defer r.s.lock(ctx)()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	r.s.swaps[tx.ID] = clone(tx)
	return nil
}

func (r *swapTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SwapTransaction, error) {
	defer r.s.lock(ctx)()

	tx, ok := r.s.swaps[id]
	if !ok {
		return nil, domain.ErrSwapTransactionNotFound
	}
	return clone(tx), nil
}

func (r *swapTransactionRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, limit, offset int) ([]*domain.SwapTransaction, error) {
	defer r.s.lock(ctx)()

	var txs []*domain.SwapTransaction
	for _, tx := range r.s.swaps {
		if tx.DriverID == driverID {
			txs = append(txs, clone(tx))
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].StartTime.After(txs[j].StartTime)
	})
	return paginate(txs, limit, offset), nil
}
