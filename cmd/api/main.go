package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/playdaycuts/booking-api/internal/booking"
	"github.com/playdaycuts/booking-api/internal/confirm"
	"github.com/playdaycuts/booking-api/internal/geo"
	"github.com/playdaycuts/booking-api/internal/http/handlers"
	bookmw "github.com/playdaycuts/booking-api/internal/http/middleware"
	"github.com/playdaycuts/booking-api/internal/platform/mailer"
	"github.com/playdaycuts/booking-api/internal/platform/sms"
	"github.com/playdaycuts/booking-api/internal/repo/postgres"
	"github.com/playdaycuts/booking-api/internal/repo/redisrepo"
	"github.com/playdaycuts/booking-api/internal/schedule"
	"github.com/playdaycuts/booking-api/pkg/config"
	"github.com/playdaycuts/booking-api/pkg/database"
	"github.com/playdaycuts/booking-api/pkg/events"
	"github.com/playdaycuts/booking-api/pkg/logger"
	mw "github.com/playdaycuts/booking-api/pkg/middleware"
)

func main() {
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Init(ctx, pool); err != nil {
		logger.Error("Failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Password != "" {
		redisOpts.Password = cfg.Redis.Password
	}
	redisOpts.DB = cfg.Redis.DB
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Connect to event bus. Without a NATS_URL events are dropped.
	var bus events.EventBus = events.NoopBus{}
	if cfg.NATS.URL != "" {
		natsBus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsBus.Close()
		bus = natsBus
	}

	// Repositories
	appointmentRepo := postgres.NewAppointmentRepo(pool, cfg.Booking.CodeLookback)
	stagingRepo := redisrepo.NewStagingRepo(redisClient, cfg.Booking.StagingTTL)

	// Outbound channels
	var smsChannel sms.Channel = sms.NewTextbeltClient(cfg.SMS.TextbeltKey, cfg.SMS.TextbeltURL)
	if cfg.SMS.TextbeltKey == "" {
		logger.Warn("TEXTBELT_KEY not set, sms channel in dev mode")
		smsChannel = sms.DevChannel{Logf: func(format string, args ...any) {
			logger.Info(fmt.Sprintf(format, args...))
		}}
	}
	templates := sms.Templates{
		BusinessPhone:   cfg.SMS.BusinessPhone,
		BusinessAddress: cfg.SMS.BusinessAddress,
	}

	var mailService mailer.Service
	switch {
	case cfg.Email.DevMode:
		mailService = mailer.DevMailer{Logf: func(format string, args ...any) {
			logger.Info(fmt.Sprintf(format, args...))
		}}
	case cfg.Email.MailerSendKey != "":
		mailService = mailer.NewMailer(cfg.Email.MailerSendKey, "Playday Cuts", cfg.Email.SMTPFrom)
	default:
		mailService = mailer.NewSMTPMailer(
			cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom,
			cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS,
		)
	}
	notifier := mailer.NewNotifier(mailService, cfg.Email.MaintainerTo)

	distance := geo.NewMatrixClient(cfg.Maps.APIKey)
	checker := geo.NewChecker(distance, cfg.Maps.Origin, cfg.Booking.RadiusMiles, cfg.Booking.MinAddressLength)

	issuer := confirm.NewIssuer(appointmentRepo, cfg.Booking.CodeLength, cfg.Booking.CodeTTL)
	slots := schedule.Slots{Saturday: cfg.Booking.SaturdaySlots, Weekday: cfg.Booking.WeekdaySlots}

	sessions := booking.NewSessions(booking.Deps{
		Store:         appointmentRepo,
		Issuer:        issuer,
		SMS:           smsChannel,
		Templates:     templates,
		Mail:          notifier,
		Staging:       stagingRepo,
		Geo:           checker,
		Bus:           bus,
		BusinessPhone: cfg.SMS.BusinessPhone,
	}, time.Hour)

	// Handlers
	appointmentsHandler := handlers.NewAppointmentsHandler(appointmentRepo, cfg.Booking.Retention, smsChannel, templates, cfg.SMS.BusinessPhone)
	availabilityHandler := handlers.NewAvailabilityHandler(appointmentRepo, slots)
	smsHandler := handlers.NewSMSHandler(smsChannel, templates, cfg.SMS.BusinessPhone)
	emailHandler := handlers.NewEmailHandler(notifier)
	mapsHandler := handlers.NewMapsHandler(cfg.Maps.APIKey, cfg.Maps.Origin, checker)
	flowHandler := handlers.NewFlowHandler(sessions)

	submitLimiter := bookmw.NewRateLimiter(pool, bookmw.RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
		KeyFunc:  bookmw.SubmitRateLimitKeyFunc,
		SkipFunc: func(r *http.Request) bool { return r.Method == http.MethodGet },
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("booking-api"))
	r.Use(mw.Logging)
	r.Use(mw.Health)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://playdaycuts.com"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Routes
	r.Route("/api", func(r chi.Router) {
		r.Mount("/appointments", appointmentsHandler.Routes())
		r.Mount("/availability", availabilityHandler.Routes())
		r.Mount("/sms", smsHandler.Routes())
		r.Mount("/email", emailHandler.Routes())
		r.Mount("/maps", mapsHandler.Routes())
		r.With(submitLimiter.Middleware()).Mount("/booking", flowHandler.Routes())
	})

	// Housekeeping: prune old appointments and idle sessions
	stopHousekeeping := make(chan struct{})
	go housekeeping(bus, appointmentRepo, sessions, cfg.Booking.Retention, stopHousekeeping)

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down booking api...")
		close(stopHousekeeping)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Booking api shutdown error", "error", err)
		}
	}()

	logger.Info("Starting booking api", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Booking api error", "error", err)
		os.Exit(1)
	}
}

func housekeeping(bus events.EventBus, repo postgres.AppointmentRepo, sessions *booking.Sessions, retention time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		deleted, err := repo.DeleteOlderThan(ctx, retention)
		if err != nil {
			logger.Error("Prune old appointments", "error", err)
		} else if deleted > 0 {
			logger.Info("Pruned old appointments", "deleted", deleted)
			_ = bus.Publish(ctx, events.AppointmentsPruned, events.AppointmentsPrunedEvent{
				Deleted:  deleted,
				Cutoff:   time.Now().Add(-retention),
				PrunedAt: time.Now(),
			})
		}
		cancel()

		if dropped := sessions.Sweep(); dropped > 0 {
			logger.Info("Swept idle booking sessions", "dropped", dropped)
		}
	}
}
