package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amazingprincelee/backend-collabogig/internal/config"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/adapter"
	pg "github.com/amazingprincelee/backend-collabogig/internal/infra/db/postgres"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/logging"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/metrics"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/notify"
	pay "github.com/amazingprincelee/backend-collabogig/internal/infra/payment"
	red "github.com/amazingprincelee/backend-collabogig/internal/infra/redis"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/sched"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/web"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/worker"
	"github.com/amazingprincelee/backend-collabogig/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	if err := pg.RunMigrations(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	paymentRepo := pg.NewPostgresPaymentRepo(pool, logger)
	userRepo := pg.NewPostgresUserRepo(pool, logger)
	groupRepo := pg.NewPostgresClassGroupRepo(pool, logger)
	referralRepo := pg.NewPostgresReferralRepo(pool, logger)
	campaignRepo := pg.NewPostgresCampaignRepo(pool, logger)
	txManager := pg.NewTxManager(pool)

	// ---- Gateways ----
	// Providers redirect the payer's browser back to this service, which
	// then forwards to the frontend result page.
	callbackURL := cfg.Server.PublicBaseURL + "/payment/callback"
	gateways := map[model.Provider]adapter.PaymentGateway{}
	if cfg.Payment.Flutterwave.SecretKey != "" {
		flw, err := pay.NewFlutterwaveGateway(
			cfg.Payment.Flutterwave.SecretKey,
			cfg.Payment.Flutterwave.WebhookSecret,
			cfg.Payment.Flutterwave.BaseURL,
			callbackURL,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("flutterwave gateway init failed")
		}
		gateways[model.ProviderFlutterwave] = flw
	}
	if cfg.Payment.Paystack.SecretKey != "" {
		pstk, err := pay.NewPaystackGateway(
			cfg.Payment.Paystack.SecretKey,
			cfg.Payment.Paystack.BaseURL,
			callbackURL,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("paystack gateway init failed")
		}
		gateways[model.ProviderPaystack] = pstk
	}
	canonical, ok := gateways[model.Provider(cfg.Payment.Provider)]
	if !ok {
		logger.Fatal().Str("provider", cfg.Payment.Provider).Msg("canonical provider not configured")
	}

	// ---- Notifications ----
	smsSender := notify.NewTermiiSender(&cfg.SMS)
	dispatcher := notify.NewDispatcher(&cfg.Mail, smsSender, logger)

	// ---- Workers ----
	pool2 := worker.NewPool(cfg.Campaign.Workers)
	pool2.Start(ctx)
	defer pool2.Stop()

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(
		paymentRepo, userRepo, groupRepo, referralRepo, txManager,
		gateways, canonical, dispatcher, locker,
		cfg.Payment.Namespace, cfg.Payment.Currency, logger,
	)
	campaignUC := usecase.NewCampaignUseCase(
		campaignRepo, dispatcher, pool2, locker,
		cfg.Campaign.BatchSize, cfg.Campaign.SendDelay, logger,
	)
	referralUC := usecase.NewReferralUseCase(referralRepo, logger)

	// ---- Background reconciler ----
	reconciler := sched.NewPaymentReconciler(paymentUC, paymentRepo, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go reconciler.Start(ctx)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, 24*time.Hour)
	server := web.NewServer(paymentUC, campaignUC, referralUC, gateways, auth, rateLimiter, pool2,
		cfg.Server.FrontendBaseURL, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(cfg.Server.Port) }()

	// ---- Shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	cancel()
}
