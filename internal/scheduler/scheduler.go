// Package scheduler запускает периодические проверки состояния.
// Каждая задача работает в своей горутине и никогда не выполняется параллельно сама с собой:
// в процессе это гарантирует атомарный флаг, между экземплярами сервиса - распределенная блокировка.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frontandrew/swapstation/internal/pkg/lock"
	"github.com/frontandrew/swapstation/internal/pkg/logger"
	"github.com/frontandrew/swapstation/internal/pkg/metrics"
	"github.com/frontandrew/swapstation/internal/usecase/reconcile"
)

// Имена задач
const (
	JobBookingExpiry      = "booking-expiry"
	JobAutoCharge         = "auto-charge"
	JobHealthCheck        = "health-check"
	JobApprovalTimeout    = "approval-timeout"
	JobSubscriptionExpiry = "subscription-expiry"
)

// Job - периодическая задача
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (reconcile.Result, error)
}

// Scheduler запускает задачи по таймеру
type Scheduler struct {
	jobs    []Job
	locker  lock.Locker
	lockTTL time.Duration
	logger  logger.Logger

	running map[string]*atomic.Bool
	wg      sync.WaitGroup
}

// New создает планировщик
func New(locker lock.Locker, lockTTL time.Duration, logger logger.Logger, jobs ...Job) *Scheduler {
	running := make(map[string]*atomic.Bool, len(jobs))
	for _, job := range jobs {
		running[job.Name] = new(atomic.Bool)
	}

	return &Scheduler{
		jobs:    jobs,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
		running: running,
	}
}

// Start запускает все задачи. Каждая выполняется сразу и затем по своему интервалу,
// пока не отменен ctx.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Wait ждет завершения всех задач после отмены контекста
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler job started", map[string]interface{}{
		"job":      job.Name,
		"interval": job.Interval.String(),
	})

	s.RunOnce(ctx, job)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler job stopped", map[string]interface{}{
				"job": job.Name,
			})
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce выполняет один проход задачи, если она не выполняется прямо сейчас.
// Возвращает false, если проход пропущен.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) bool {
	guard, ok := s.running[job.Name]
	if !ok {
		guard = new(atomic.Bool)
	}
	if !guard.CompareAndSwap(false, true) {
		metrics.JobRunsTotal.WithLabelValues(job.Name, metrics.ResultSkipped).Inc()
		return false
	}
	defer guard.Store(false)

	release, acquired, err := s.locker.TryLock(ctx, job.Name, s.lockTTL)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(job.Name, metrics.ResultError).Inc()
		s.logger.Error("Failed to acquire job lock", map[string]interface{}{
			"job":   job.Name,
			"error": err,
		})
		return false
	}
	if !acquired {
		metrics.JobRunsTotal.WithLabelValues(job.Name, metrics.ResultSkipped).Inc()
		s.logger.Debug("Job is running elsewhere, skipped", map[string]interface{}{
			"job": job.Name,
		})
		return false
	}
	defer release()

	start := time.Now()
	result, err := job.Run(ctx)
	metrics.JobDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())

	metrics.JobItemsTotal.WithLabelValues(job.Name, "processed").Add(float64(result.Processed))
	metrics.JobItemsTotal.WithLabelValues(job.Name, "skipped").Add(float64(result.Skipped))
	metrics.JobItemsTotal.WithLabelValues(job.Name, "failed").Add(float64(result.Failed))

	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(job.Name, metrics.ResultError).Inc()
		s.logger.Error("Scheduler job failed", map[string]interface{}{
			"job":   job.Name,
			"error": err,
		})
		return true
	}

	metrics.JobRunsTotal.WithLabelValues(job.Name, metrics.ResultOK).Inc()
	if result.Processed > 0 || result.Failed > 0 {
		s.logger.Info("Scheduler job finished", map[string]interface{}{
			"job":       job.Name,
			"processed": result.Processed,
			"skipped":   result.Skipped,
			"failed":    result.Failed,
			"duration":  time.Since(start).String(),
		})
	}
	return true
}

// Jobs собирает стандартный набор задач поверх сервиса проверок
func Jobs(svc *reconcile.Service, intervals Intervals) []Job {
	return []Job{
		{Name: JobBookingExpiry, Interval: intervals.BookingExpiry, Run: svc.ExpireReservations},
		{Name: JobAutoCharge, Interval: intervals.AutoCharge, Run: svc.ChargeBatteries},
		{Name: JobHealthCheck, Interval: intervals.HealthCheck, Run: svc.CheckHealth},
		{Name: JobApprovalTimeout, Interval: intervals.ApprovalTimeout, Run: svc.RejectStaleRegistrations},
		{Name: JobSubscriptionExpiry, Interval: intervals.SubscriptionExpiry, Run: svc.ExpireSubscriptions},
	}
}

// Intervals - периоды запуска задач
type Intervals struct {
	BookingExpiry      time.Duration
	AutoCharge         time.Duration
	HealthCheck        time.Duration
	ApprovalTimeout    time.Duration
	SubscriptionExpiry time.Duration
}
