package repository

import (
	"context"
	"time"

	"github.com/frontandrew/swapstation/internal/domain"
	"github.com/google/uuid"
)

// Transactor выполняет fn внутри одной транзакции.
// Все репозитории, вызванные с переданным ctx, работают в этой транзакции.
// Вложенный вызов присоединяется к внешней транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BatteryRepository определяет методы для работы с аккумуляторными блоками.
// Все переходы состояния - условные обновления (compare-and-set по статусу):
// если строка уже в другом состоянии, возвращается domain.ErrBatteryStateChanged.
type BatteryRepository interface {
	// Create регистрирует новый блок
	Create(ctx context.Context, unit *domain.BatteryUnit) error

	// GetByID возвращает блок по ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BatteryUnit, error)

	// ListByStation возвращает все блоки на станции
	ListByStation(ctx context.Context, stationID uuid.UUID) ([]*domain.BatteryUnit, error)

	// ListAvailableAtStation возвращает AVAILABLE блоки модели model на станции
	ListAvailableAtStation(ctx context.Context, stationID uuid.UUID, model string) ([]*domain.BatteryUnit, error)

	// GetReservedForBooking возвращает PENDING блок, зарезервированный под бронирование
	GetReservedForBooking(ctx context.Context, bookingID uuid.UUID) (*domain.BatteryUnit, error)

	// GetMountedOnVehicle возвращает блок, установленный на автомобиль (nil, nil если его нет)
	GetMountedOnVehicle(ctx context.Context, vehicleID uuid.UUID) (*domain.BatteryUnit, error)

	// ListExpiredReservations возвращает PENDING блоки с истекшим резервом
	ListExpiredReservations(ctx context.Context, now time.Time, limit int) ([]*domain.BatteryUnit, error)

	// ListByStatus возвращает блоки в статусе status
	ListByStatus(ctx context.Context, status domain.BatteryStatus, limit, offset int) ([]*domain.BatteryUnit, error)

	// List возвращает все блоки с пагинацией
	List(ctx context.Context, limit, offset int) ([]*domain.BatteryUnit, error)

	// Reserve: AVAILABLE -> PENDING
	Reserve(ctx context.Context, id, bookingID uuid.UUID, expiry time.Time) error

	// ReleaseReservation: PENDING(bookingID) -> AVAILABLE
	ReleaseReservation(ctx context.Context, id, bookingID uuid.UUID) error

	// Mount: PENDING(bookingID) -> IN_USE на автомобиле vehicleID
	Mount(ctx context.Context, id, bookingID, vehicleID uuid.UUID) error

	// Unmount: IN_USE на vehicleID -> status на станции stationID
	Unmount(ctx context.Context, id, vehicleID, stationID uuid.UUID, status domain.BatteryStatus, charge float64, at time.Time) error

	// ApplyCharge: CHARGING -> status с новым уровнем заряда
	ApplyCharge(ctx context.Context, id uuid.UUID, status domain.BatteryStatus, charge float64, at time.Time) error

	// ForceMaintenance: expected -> MAINTENANCE
	ForceMaintenance(ctx context.Context, id uuid.UUID, expected domain.BatteryStatus) error

	// Restore: MAINTENANCE -> AVAILABLE с новым SOH и обнуленным счетчиком использования
	Restore(ctx context.Context, id uuid.UUID, health float64) error
}

// VehicleRepository определяет методы для работы с автомобилями
type VehicleRepository interface {
	// Create создает новый автомобиль
	Create(ctx context.Context, vehicle *domain.Vehicle) error

	// GetByID возвращает автомобиль по ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vehicle, error)

	// GetByOwnerID возвращает все автомобили водителя
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*domain.Vehicle, error)
}

// RegistrationRepository определяет методы для работы с заявками на регистрацию автомобилей
type RegistrationRepository interface {
	// Create создает заявку
	Create(ctx context.Context, reg *domain.VehicleRegistration) error

	// GetByID возвращает заявку по ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VehicleRegistration, error)

	// ListPendingCreatedBefore возвращает PENDING заявки, созданные раньше cutoff
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.VehicleRegistration, error)

	// Approve: PENDING -> APPROVED с привязкой созданного автомобиля
	Approve(ctx context.Context, id, vehicleID uuid.UUID, at time.Time) error

	// Reject: PENDING -> REJECTED
	Reject(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
}

// BookingRepository определяет методы для работы с бронированиями
type BookingRepository interface {
	// Create создает бронирование
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID возвращает бронирование по ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)

	// GetByIDForUpdate возвращает бронирование и блокирует строку до конца транзакции
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error)

	// GetActiveByCode возвращает PENDING/CONFIRMED бронирование с кодом code
	GetActiveByCode(ctx context.Context, code string) (*domain.Booking, error)

	// GetLatestByLastCode возвращает последнее бронирование, освободившее код code
	GetLatestByLastCode(ctx context.Context, code string) (*domain.Booking, error)

	// CodeInUse проверяет, занят ли код активным бронированием
	CodeInUse(ctx context.Context, code string) (bool, error)

	// ListByDriver возвращает бронирования водителя
	ListByDriver(ctx context.Context, driverID uuid.UUID, limit, offset int) ([]*domain.Booking, error)

	// ListByStation возвращает бронирования станции (status пустой - все статусы)
	ListByStation(ctx context.Context, stationID uuid.UUID, status domain.BookingStatus, limit, offset int) ([]*domain.Booking, error)

	// Transition сохраняет изменяемые поля, если текущий статус равен expected.
	// Иначе возвращает domain.ErrBookingStateChanged.
	Transition(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) error
}

// SubscriptionRepository определяет методы для работы с балансом обменов
type SubscriptionRepository interface {
	// Create создает запись (domain.ErrCreditAlreadyActive при второй ACTIVE записи)
	Create(ctx context.Context, credit *domain.SubscriptionCredit) error

	// GetActiveByDriver возвращает ACTIVE запись водителя
	GetActiveByDriver(ctx context.Context, driverID uuid.UUID) (*domain.SubscriptionCredit, error)

	// ConsumeOne атомарно списывает один обмен.
	// При нулевом остатке запись переводится в EXPIRED той же операцией.
	ConsumeOne(ctx context.Context, driverID uuid.UUID, now time.Time) (*domain.SubscriptionCredit, error)

	// ExpireOutdated переводит ACTIVE записи с истекшим EndDate в EXPIRED
	ExpireOutdated(ctx context.Context, now time.Time, limit int) (int, error)
}

// SwapTransactionRepository - журнал обменов (только добавление)
type SwapTransactionRepository interface {
	// Create добавляет запись
	Create(ctx context.Context, tx *domain.SwapTransaction) error

	// GetByID возвращает запись по ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SwapTransaction, error)

	// ListByDriver возвращает историю обменов водителя
	ListByDriver(ctx context.Context, driverID uuid.UUID, limit, offset int) ([]*domain.SwapTransaction, error)
}
