package cached

import (
	"context"
	"errors"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

const (
	bookingCodeCachePrefix = "booking:code:"
	bookingCodeCacheTTL    = 3 * time.Hour
)

// Cache - команды Redis, нужные кэшу (реализуется *redis.Client)
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// BookingRepository добавляет кэш "код подтверждения -> ID бронирования".
// Кэш только подсказывает ID: бронирование всегда читается из БД и проверяется,
// поэтому устаревшая запись в Redis (например, после отката транзакции) не влияет на результат.
type BookingRepository struct {
	repository.BookingRepository
	cache  Cache
	logger logger.Logger
}

// NewBookingRepository создает новый кэшируемый booking repository
func NewBookingRepository(repo repository.BookingRepository, cache Cache, logger logger.Logger) *BookingRepository {
	return &BookingRepository{
		BookingRepository: repo,
		cache:             cache,
		logger:            logger,
	}
}

// GetActiveByCode ищет активное бронирование по коду (с кэшированием)
func (r *BookingRepository) GetActiveByCode(ctx context.Context, code string) (*domain.Booking, error) {
	cacheKey := bookingCodeCachePrefix + code

	// 1. Проверяем кэш
	cached, err := r.cache.Get(ctx, cacheKey)
	switch {
	case err == nil:
		if booking := r.verify(ctx, cached, code); booking != nil {
			return booking, nil
		}
		// Кэш устарел
		_ = r.cache.Del(ctx, cacheKey)
	case !errors.Is(err, redisv9.Nil):
		r.logger.Warn("Booking code cache unavailable", map[string]interface{}{
			"error": err,
		})
	}

	// 2. Cache miss - идем в БД
	booking, err := r.BookingRepository.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// 3. Сохраняем ID в кэш, ошибку записи игнорируем
	_ = r.cache.Set(ctx, cacheKey, booking.ID.String(), r.ttl(booking))

	return booking, nil
}

// verify читает бронирование по ID из кэша и проверяет, что код все еще его
func (r *BookingRepository) verify(ctx context.Context, cached, code string) *domain.Booking {
	id, err := uuid.Parse(cached)
	if err != nil {
		return nil
	}

	booking, err := r.BookingRepository.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	if !booking.IsActive() || booking.ConfirmationCode == nil || *booking.ConfirmationCode != code {
		return nil
	}
	return booking
}

// Transition сохраняет бронирование и обновляет кэш кода
func (r *BookingRepository) Transition(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) error {
	if err := r.BookingRepository.Transition(ctx, booking, expected); err != nil {
		return err
	}

	if booking.ConfirmationCode != nil {
		_ = r.cache.Set(ctx, bookingCodeCachePrefix+*booking.ConfirmationCode, booking.ID.String(), r.ttl(booking))
	}

	// Код освобожден - инвалидируем кэш
	if booking.IsTerminal() && booking.LastCode != nil {
		_ = r.cache.Del(ctx, bookingCodeCachePrefix+*booking.LastCode)
	}

	return nil
}

// ttl - кэш живет не дольше резерва
func (r *BookingRepository) ttl(booking *domain.Booking) time.Duration {
	if booking.ReservationExpiry == nil {
		return bookingCodeCacheTTL
	}
	if ttl := time.Until(*booking.ReservationExpiry); ttl > 0 && ttl < bookingCodeCacheTTL {
		return ttl
	}
	return bookingCodeCacheTTL
}
