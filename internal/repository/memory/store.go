// Package memory - хранилище в памяти процесса с теми же гарантиями CAS,
// что и PostgreSQL реализация. Используется в тестах и в режиме STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sync"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/google/uuid"
)

type txKey struct{}

// Store хранит все записи под одним мьютексом.
// Транзакция держит мьютекс целиком и при ошибке восстанавливает снимок таблиц.
type Store struct {
	mu sync.Mutex

	batteries     map[uuid.UUID]*domain.BatteryUnit
	vehicles      map[uuid.UUID]*domain.Vehicle
	registrations map[uuid.UUID]*domain.VehicleRegistration
	bookings      map[uuid.UUID]*domain.Booking
	credits       map[uuid.UUID]*domain.SubscriptionCredit
	swaps         map[uuid.UUID]*domain.SwapTransaction
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		batteries:     make(map[uuid.UUID]*domain.BatteryUnit),
		vehicles:      make(map[uuid.UUID]*domain.Vehicle),
		registrations: make(map[uuid.UUID]*domain.VehicleRegistration),
		bookings:      make(map[uuid.UUID]*domain.Booking),
		credits:       make(map[uuid.UUID]*domain.SubscriptionCredit),
		swaps:         make(map[uuid.UUID]*domain.SwapTransaction),
	}
}

// WithinTx реализует repository.Transactor
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// lock берет мьютекс, если вызов идет не из транзакции
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	batteries     map[uuid.UUID]*domain.BatteryUnit
	vehicles      map[uuid.UUID]*domain.Vehicle
	registrations map[uuid.UUID]*domain.VehicleRegistration
	bookings      map[uuid.UUID]*domain.Booking
	credits       map[uuid.UUID]*domain.SubscriptionCredit
	swaps         map[uuid.UUID]*domain.SwapTransaction
}

// Записи никогда не изменяются на месте: каждое обновление кладет в map новый указатель,
// поэтому для снимка достаточно скопировать сами map.
func (s *Store) snapshot() snapshot {
	return snapshot{
		batteries:     copyMap(s.batteries),
		vehicles:      copyMap(s.vehicles),
		registrations: copyMap(s.registrations),
		bookings:      copyMap(s.bookings),
		credits:       copyMap(s.credits),
		swaps:         copyMap(s.swaps),
	}
}

func (s *Store) restore(snap snapshot) {
	s.batteries = snap.batteries
	s.vehicles = snap.vehicles
	s.registrations = snap.registrations
	s.bookings = snap.bookings
	s.credits = snap.credits
	s.swaps = snap.swaps
}

func copyMap[V any](src map[uuid.UUID]*V) map[uuid.UUID]*V {
	dst := make(map[uuid.UUID]*V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func clone[V any](v *V) *V {
	c := *v
	return &c
}

// paginate вырезает страницу из уже отсортированного списка
func paginate[V any](items []*V, limit, offset int) []*V {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Batteries возвращает репозиторий батарей
func (s *Store) Batteries() repository.BatteryRepository { return &batteryRepository{s: s} }

// Vehicles возвращает репозиторий автомобилей
func (s *Store) Vehicles() repository.VehicleRepository { return &vehicleRepository{s: s} }

// Registrations возвращает репозиторий заявок
func (s *Store) Registrations() repository.RegistrationRepository {
	return &registrationRepository{s: s}
}

// Bookings возвращает репозиторий бронирований
func (s *Store) Bookings() repository.BookingRepository { return &bookingRepository{s: s} }

// Credits возвращает репозиторий подписок
func (s *Store) Credits() repository.SubscriptionRepository { return &subscriptionRepository{s: s} }

// Swaps возвращает журнал обменов
func (s *Store) Swaps() repository.SwapTransactionRepository {
	return &swapTransactionRepository{s: s}
}
