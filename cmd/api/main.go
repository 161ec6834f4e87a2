package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/libraryconnekto/booking-api/internal/config"
	"github.com/libraryconnekto/booking-api/internal/domain/account"
	"github.com/libraryconnekto/booking-api/internal/domain/booking"
	"github.com/libraryconnekto/booking-api/internal/domain/catalog"
	"github.com/libraryconnekto/booking-api/internal/middleware"
	"github.com/libraryconnekto/booking-api/internal/pkg/database"
	"github.com/libraryconnekto/booking-api/internal/pkg/email"
	"github.com/libraryconnekto/booking-api/internal/pkg/jwt"
	"github.com/libraryconnekto/booking-api/internal/pkg/logger"
	"github.com/libraryconnekto/booking-api/internal/pkg/razorpay"
	"github.com/libraryconnekto/booking-api/internal/pkg/response"
	"github.com/libraryconnekto/booking-api/migrations"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting booking API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.Migrate(context.Background(), db, migrations.FS); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	gateway := razorpay.NewClient(razorpay.Config{
		BaseURL:   cfg.RazorpayBaseURL,
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		Timeout:   cfg.RazorpayTimeout,
	})

	emailService := email.NewService(email.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	})

	catalogRepo := catalog.NewRepository(db)
	catalogHandler := catalog.NewHandler(catalogRepo)

	accountRepo := account.NewRepository(db)
	accountService := account.NewService(accountRepo, emailService)

	checkoutStore := booking.NewCheckoutStore(redisClient, cfg.CheckoutTTL)
	notifier := &emailNotifier{
		sender:      emailService,
		catalog:     catalogRepo,
		frontendURL: cfg.FrontendURL,
		window:      cfg.ApprovalWindow,
	}
	provisioner := &accountProvisioner{
		accounts: accountService,
		catalog:  catalogRepo,
	}

	bookingRepo := booking.NewRepository(db)
	bookingService := booking.NewService(bookingRepo, catalogRepo, gateway, checkoutStore, notifier, provisioner, booking.Config{
		TokenAmountPaise: cfg.TokenAmountPaise,
		Currency:         cfg.Currency,
		ApprovalWindow:   cfg.ApprovalWindow,
	})
	bookingHandler := booking.NewHandler(bookingService)

	sweepWorker := booking.NewWorker(bookingService, cfg.SweepInterval)
	sweepWorker.Start()
	defer sweepWorker.Stop()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/libraries", catalogHandler.Routes())
		r.Mount("/bookings", bookingHandler.Routes(middleware.Auth(jwtService)))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
