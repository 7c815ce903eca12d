package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookingagent/internal/booking/hold"
	"bookingagent/internal/booking/waitlist"
	"bookingagent/internal/config"
	"bookingagent/internal/events"
	"bookingagent/internal/notification/outbox"
	"bookingagent/internal/notification/sms"
	"bookingagent/internal/scheduler"
	"bookingagent/internal/tenant"
	"bookingagent/platform/db"
	"bookingagent/platform/logger"
)

// main is the background-worker process's composition root: the
// notification-outbox dispatcher (polls for due rows, enqueues asynq
// tasks), the asynq worker (drains those tasks back onto the event
// bus), the SMS Worker that actually talks to the carrier, and the
// hold/waitlist expiry sweeps — spec.md §5's worker set, split from the
// API process so a slow carrier or a stuck sweep never blocks a
// customer-facing request.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := connectWithRetry(ctx, log, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	tenantRepo := tenant.New(pool)
	outboxRepo := outbox.New(pool)

	carrierClient := sms.NewClient(sms.Config{
		BaseURL:    cfg.CarrierBaseURL,
		AccountSID: cfg.CarrierAccountSID,
		AuthToken:  cfg.CarrierAuthToken,
		FromNumber: cfg.CarrierFromNumber,
	}, log)
	optOutRepo := sms.NewOptOutRepository(pool)

	smsWorker := &sms.Worker{
		Outbox:  outboxRepo,
		Carrier: carrierClient,
		OptOut:  optOutRepo,
		Tenants: tenantRepo,
		Bus:     eventBus,
		Log:     log,
	}
	eventBus.Subscribe(events.NotificationOutboxDue{}.EventName(), smsWorker.AsHandler())

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to start notification outbox dispatcher", "error", err)
		panic("failed to start notification outbox dispatcher: " + err.Error())
	}
	defer dispatcher.Close()

	asynqWorker, err := scheduler.NewWorker(cfg, pool, eventBus, log)
	if err != nil {
		log.Error("failed to start asynq worker", "error", err)
		panic("failed to start asynq worker: " + err.Error())
	}

	// AppointmentConflictSource is nil here: the hold expiry sweep only
	// emits events.HoldExpired / events.SlotOpened, it never checks
	// conflicts against live appointments (that happens at hold-creation
	// time in the API process).
	holdSvc := hold.NewService(hold.New(pool), nil, eventBus, log)
	waitlistSvc := waitlist.NewService(waitlist.New(pool), eventBus, log)

	go dispatcher.Run(ctx)
	go holdSvc.RunExpirySweep(ctx, cfg.HoldCleanupInterval)
	go waitlistSvc.RunExpirySweep(ctx, cfg.HoldCleanupInterval)

	workerDone := make(chan struct{})
	go func() {
		asynqWorker.Run(ctx)
		close(workerDone)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case <-workerDone:
		log.Info("asynq worker stopped")
	}
}

func connectWithRetry(ctx context.Context, log *logger.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	return pool, err
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
