package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	deliveryHTTP "github.com/frontandrew/swapstation/internal/delivery/http"
	"github.com/frontandrew/swapstation/internal/infrastructure/events"
	"github.com/frontandrew/swapstation/internal/infrastructure/notify"
	"github.com/frontandrew/swapstation/internal/pkg/config"
	"github.com/frontandrew/swapstation/internal/pkg/database"
	"github.com/frontandrew/swapstation/internal/pkg/jwt"
	"github.com/frontandrew/swapstation/internal/pkg/lock"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/pkg/rabbitmq"
	"github.com/frontandrew/swapstation/internal/pkg/redis"
	"github.com/frontandrew/swapstation/internal/repository"
	"github.com/frontandrew/swapstation/internal/repository/cached"
	"github.com/frontandrew/swapstation/internal/repository/memory"
	"github.com/frontandrew/swapstation/internal/repository/postgres"
	"github.com/frontandrew/swapstation/internal/scheduler"
	"github.com/frontandrew/swapstation/internal/usecase/battery"
	"github.com/frontandrew/swapstation/internal/usecase/booking"
	"github.com/frontandrew/swapstation/internal/usecase/reconcile"
	"github.com/frontandrew/swapstation/internal/usecase/subscription"
	"github.com/frontandrew/swapstation/internal/usecase/swap"
	"github.com/frontandrew/swapstation/internal/usecase/vehicle"
	"github.com/frontandrew/swapstation/migrations"
)

// repositories - набор хранилищ, выбранный STORAGE_DRIVER
type repositories struct {
	tx            repository.Transactor
	batteries     repository.BatteryRepository
	vehicles      repository.VehicleRepository
	registrations repository.RegistrationRepository
	bookings      repository.BookingRepository
	credits       repository.SubscriptionRepository
	swaps         repository.SwapTransactionRepository
}

func main() {
	// =========================================================================
	// Загрузка конфигурации
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// =========================================================================
	// Инициализация logger
	// =========================================================================

	log := logger.New(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.Output)
	log.Info("Starting swap station API server", map[string]interface{}{
		"version": "1.0.0",
		"storage": cfg.Database.Driver,
	})

	// Корневой контекст отменяется при остановке: его слушают планировщик и consumer
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// =========================================================================
	// Хранилище: PostgreSQL или память процесса
	// =========================================================================

	var repos repositories

	switch cfg.Database.Driver {
	case "postgres":
		db, err := database.Connect(ctx, &cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer database.Close(db)

		log.Info("Connected to PostgreSQL", map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"database": cfg.Database.Database,
		})

		if cfg.Database.AutoMigrate {
			if err := database.ApplyMigrations(ctx, db, migrations.FS); err != nil {
				log.Fatal("Failed to apply migrations", map[string]interface{}{
					"error": err.Error(),
				})
			}
			log.Info("Database migrations applied")
		}

		repos = repositories{
			tx:            postgres.NewTransactor(db),
			batteries:     postgres.NewBatteryRepository(db),
			vehicles:      postgres.NewVehicleRepository(db),
			registrations: postgres.NewRegistrationRepository(db),
			bookings:      postgres.NewBookingRepository(db),
			credits:       postgres.NewSubscriptionRepository(db),
			swaps:         postgres.NewSwapTransactionRepository(db),
		}

	case "memory":
		store := memory.NewStore()
		repos = repositories{
			tx:            store,
			batteries:     store.Batteries(),
			vehicles:      store.Vehicles(),
			registrations: store.Registrations(),
			bookings:      store.Bookings(),
			credits:       store.Credits(),
			swaps:         store.Swaps(),
		}
		log.Warn("Using in-memory storage, data will be lost on restart")
	}

	// =========================================================================
	// Подключение к Redis (кэш кодов и блокировки задач)
	// =========================================================================

	var locker lock.Locker = lock.NewLocalLocker()

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Redis is not available, running without code cache", map[string]interface{}{
				"error":   err.Error(),
				"address": cfg.Redis.Address(),
			})
		} else {
			defer redisClient.Close()

			repos.bookings = cached.NewBookingRepository(repos.bookings, redisClient, log)
			locker = lock.NewRedisLocker(redisClient)

			log.Info("Connected to Redis", map[string]interface{}{
				"address": cfg.Redis.Address(),
			})
		}
	}

	// =========================================================================
	// Подключение к RabbitMQ (уведомления и пополнения подписок)
	// =========================================================================

	var (
		notifier notify.Notifier = notify.NewLogNotifier(log)
		broker   *rabbitmq.Client
	)

	if cfg.RabbitMQ.URL != "" {
		broker, err = rabbitmq.Dial(cfg.RabbitMQ.URL, 5)
		if err != nil {
			log.Warn("RabbitMQ is not available, notifications go to log", map[string]interface{}{
				"error": err.Error(),
			})
			broker = nil
		} else {
			defer broker.Close()
			notifier = notify.NewBrokerNotifier(broker, cfg.RabbitMQ.NotificationsExchange, log)
			log.Info("Connected to RabbitMQ")
		}
	}

	// =========================================================================
	// Создание JWT token service
	// =========================================================================

	tokenService := jwt.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.AccessExpiry)

	// =========================================================================
	// Создание use case services
	// =========================================================================

	batteryService := battery.NewService(repos.batteries, log, cfg.Battery.FullChargeDuration)
	ledger := subscription.NewService(repos.credits, log)

	bookingService := booking.NewService(
		repos.tx,
		repos.bookings,
		repos.vehicles,
		batteryService,
		ledger,
		notifier,
		log,
		booking.Config{
			ReservationHorizon: cfg.Booking.ReservationHorizon,
			CodeMaxAttempts:    cfg.Booking.CodeMaxAttempts,
		},
	)

	swapService := swap.NewService(
		repos.tx,
		repos.bookings,
		repos.batteries,
		repos.swaps,
		batteryService,
		notifier,
		log,
	)

	vehicleService := vehicle.NewService(repos.tx, repos.vehicles, repos.registrations, log)

	reconcileService := reconcile.NewService(
		repos.tx,
		repos.batteries,
		repos.bookings,
		repos.registrations,
		batteryService,
		ledger,
		notifier,
		log,
		reconcile.Config{
			BatchSize:           cfg.Scheduler.BatchSize,
			ApprovalWindow:      cfg.Scheduler.ApprovalWindow,
			ExtraPenalty:        cfg.Scheduler.ExpiryExtraPenalty,
			OperationsRecipient: cfg.Notify.OperationsRecipient,
		},
	)

	log.Info("Use case services initialized")

	// =========================================================================
	// Фоновые задачи
	// =========================================================================

	var sched *scheduler.Scheduler

	if cfg.Scheduler.Enabled {
		sched = scheduler.New(locker, cfg.Scheduler.LockTTL, log, scheduler.Jobs(reconcileService, scheduler.Intervals{
			BookingExpiry:      cfg.Scheduler.BookingExpiryInterval,
			AutoCharge:         cfg.Scheduler.AutoChargeInterval,
			HealthCheck:        cfg.Scheduler.HealthCheckInterval,
			ApprovalTimeout:    cfg.Scheduler.ApprovalTimeoutInterval,
			SubscriptionExpiry: cfg.Scheduler.SubscriptionExpiryInterval,
		})...)
		sched.Start(ctx)
	}

	consumerDone := make(chan struct{})

	if broker != nil {
		consumer := events.NewTopUpConsumer(ledger, log)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx, broker, cfg.RabbitMQ.TopUpExchange, cfg.RabbitMQ.TopUpQueue); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Credit top-up consumer stopped", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	} else {
		close(consumerDone)
	}

	// =========================================================================
	// Создание HTTP handlers и router
	// =========================================================================

	router := deliveryHTTP.NewRouter(
		deliveryHTTP.NewBookingHandler(bookingService, log),
		deliveryHTTP.NewSwapHandler(swapService, log),
		deliveryHTTP.NewBatteryHandler(batteryService, log),
		deliveryHTTP.NewCreditHandler(ledger, log),
		deliveryHTTP.NewVehicleHandler(vehicleService, log),
		tokenService,
		cfg.CORS,
		log,
	)

	// =========================================================================
	// Создание HTTP сервера
	// =========================================================================

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info("API server listening", map[string]interface{}{
			"address": srv.Addr,
		})
		serverErrors <- srv.ListenAndServe()
	}()

	// =========================================================================
	// Graceful shutdown
	// =========================================================================

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", map[string]interface{}{
			"error": err.Error(),
		})

	case sig := <-shutdown:
		log.Info("Shutdown signal received", map[string]interface{}{
			"signal": sig.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", map[string]interface{}{
				"error": err.Error(),
			})
			_ = srv.Close()
		}
	}

	// Останавливаем фоновые задачи до закрытия соединений
	stop()
	if sched != nil {
		sched.Wait()
	}
	<-consumerDone

	log.Info("Server stopped gracefully")
}
