package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingagent/internal/agent/llm"
	"bookingagent/internal/agent/postprocess"
	"bookingagent/internal/agent/router"
	"bookingagent/internal/agent/tooldeps"
	"bookingagent/internal/agent/voice"
	"bookingagent/internal/booking/appointment"
	appointmentrepo "bookingagent/internal/booking/appointment/repository"
	"bookingagent/internal/booking/availability"
	"bookingagent/internal/booking/clock"
	"bookingagent/internal/booking/hold"
	"bookingagent/internal/booking/waitlist"
	"bookingagent/internal/config"
	"bookingagent/internal/email"
	"bookingagent/internal/events"
	apphttp "bookingagent/internal/http"
	httprouter "bookingagent/internal/http/router"
	"bookingagent/internal/identity/otp"
	"bookingagent/internal/notification/outbox"
	"bookingagent/internal/notification/sms"
	"bookingagent/internal/policy"
	"bookingagent/internal/session"
	"bookingagent/internal/tenant"
	"bookingagent/platform/db"
	"bookingagent/platform/logger"
)

// main is the API process's composition root: it wires every domain
// service the Chat Router and its tool-use loop need, then exposes the
// two HTTP surfaces spec.md leaves in scope — the SMS carrier's
// delivery-status webhook and a token-gated staff appointment-visibility
// endpoint. The customer-facing chat transport is a deliberate non-goal
// (spec.md §1); sessions are driven directly through router.Router.Handle
// by whatever channel adapter calls this process in-process or over a
// private RPC, not a public HTTP API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := connectWithRetry(ctx, log, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, cfg, getEnv("MIGRATIONS_DIR", "migrations")); err != nil {
		log.Error("failed to run migrations", "error", err)
		panic("failed to run migrations: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)

	// Tenant store: also the availability Engine's TenantCalendar and the
	// confirmation sender's tenant lookup. tenantSvc wraps the same
	// repository with calendar-secret encryption; no CalendarWriter is
	// wired below (CALENDAR_MODE=mock is the only implemented mode), so
	// DecryptCalendarSecret has no caller yet — it's ready for the real
	// calendar client this composition root doesn't build.
	tenantRepo := tenant.New(pool)
	tenantSvc := tenant.NewService(tenantRepo)
	if key := decodeSecretKey(cfg.SecretEncryptionKey); key != nil {
		tenantSvc.WithSecretEncryptionKey(key)
	}

	sessionSvc := session.NewService(session.New(pool))

	policyRepo := policy.New(pool)
	policyEngine := policy.NewEngine(sms.ActionSendConfirmation)

	clk := clock.System{}
	busyCache := availability.NewBusyRangeCache(cfg.CalendarBusyCacheTTL)
	holdRepo := hold.New(pool)

	// apptConflictRepo is a second, stateless handle onto the same
	// appointments table appointment.NewModule wraps in its own Service —
	// the conflict-check queries (BusyRanges/HasConfirmedOverlap) live on
	// the repository, not the service, so availability/hold read through
	// this handle directly instead of going through Service's mutation API.
	apptConflictRepo := appointmentrepo.New(pool)
	appointmentModule := appointment.NewModule(pool, busyCache, eventBus, nil)
	availabilityEngine := availability.NewEngine(clk, tenantRepo, apptConflictRepo, holdRepo, busyCache)
	holdSvc := hold.NewService(holdRepo, apptConflictRepo, eventBus, log)
	waitlistSvc := waitlist.NewService(waitlist.New(pool), eventBus, log)
	eventBus.Subscribe(events.SlotOpened{}.EventName(), waitlistSvc.AsSlotOpenedHandler())

	smtpSender := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailFromName)
	otpSvc := otp.New(otp.NewRepository(pool), smtpSender)

	outboxRepo := outbox.New(pool)
	carrierClient := sms.NewClient(sms.Config{
		BaseURL:    cfg.CarrierBaseURL,
		AccountSID: cfg.CarrierAccountSID,
		AuthToken:  cfg.CarrierAuthToken,
		FromNumber: cfg.CarrierFromNumber,
	}, log)
	optOutRepo := sms.NewOptOutRepository(pool)
	confirmations := &sms.Confirmations{
		Outbox:       outboxRepo,
		Appointments: appointmentModule.Service,
		Policy:       policyEngine,
		PolicyRules:  policyRepo,
		Carrier:      carrierClient,
	}

	if cfg.FeatureSMS {
		smsWorker := &sms.Worker{
			Outbox:  outboxRepo,
			Carrier: carrierClient,
			OptOut:  optOutRepo,
			Tenants: tenantRepo,
			Bus:     eventBus,
			Log:     log,
		}
		eventBus.Subscribe(events.NotificationOutboxDue{}.EventName(), smsWorker.AsHandler())
	}

	llmModel, err := llm.NewModel(llm.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
	})
	if err != nil {
		log.Error("failed to initialize llm model", "error", err)
		panic("failed to initialize llm model: " + err.Error())
	}
	llmClient := llm.NewClient(llmModel)

	newDeps := func(tenantID, sessionID uuid.UUID) *tooldeps.Dependencies {
		d := tooldeps.New(tenantID, sessionID)
		d.Availability = availabilityEngine
		d.Holds = holdSvc
		d.Appointments = appointmentModule.Service
		d.Waitlist = waitlistSvc
		d.Sessions = sessionSvc
		d.Policy = policyEngine
		d.PolicyRules = policyRepo
		d.Tenants = tenantRepo
		d.Limits = tooldeps.Limits{
			FarDateConfirmDays:   cfg.BookingFarDateConfirmDays,
			MaxAvailabilityDays:  cfg.MaxAvailabilityRangeDays,
			FollowupMaxPerSession: cfg.FollowupMaxPerSession,
			FollowupCooldown:     cfg.FollowupCooldown,
		}
		return d
	}

	postProcessor := postprocess.New(postprocess.Config{})

	platformTenantID, _ := uuid.Parse(cfg.PlatformTenantID)

	chatRouter := &router.Router{
		Clock:       clk,
		Tenants:     tenantRepo,
		Sessions:    sessionSvc,
		OTP:         otpSvc,
		LLM:         llmClient,
		PostProcess: postProcessor,
		Notifier:    confirmations,
		NewDeps:     newDeps,
		Config: router.Config{
			PlatformTenantID:  platformTenantID,
			RequireEmailFirst: cfg.RequireEmailFirst,
		},
	}
	_ = chatRouter // wired in-process by the channel adapter that owns Handle's call site

	if cfg.FeatureVoice {
		voiceMachine := &voice.Machine{
			Clock:    clk,
			Tenants:  tenantRepo,
			Notifier: confirmations,
			NewDeps:  newDeps,
		}
		_ = voiceMachine // likewise driven by the telephony carrier's call-site, not exposed here
		log.Info("voice session machine ready", "feature_voice_web", cfg.FeatureVoiceWeb)
	}

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			appointmentModule,
			smsWebhookModule{handler: &sms.WebhookHandler{
				Outbox:    outboxRepo,
				OptOut:    optOutRepo,
				Bus:       eventBus,
				AuthToken: cfg.CarrierAuthToken,
				Log:       log,
			}},
		},
	}

	engine := httprouter.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// smsWebhookModule adapts sms.WebhookHandler to apphttp.Module: the
// carrier callback authenticates itself (HMAC signature), so it is
// mounted unauthenticated on V1, not behind the staff Admin group.
type smsWebhookModule struct {
	handler *sms.WebhookHandler
}

func (smsWebhookModule) Name() string { return "sms-webhook" }

func (m smsWebhookModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhook/sms/status", m.handler.Handle)
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

func decodeSecretKey(key string) []byte {
	if len(key) != 32 {
		return nil
	}
	return []byte(key)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
