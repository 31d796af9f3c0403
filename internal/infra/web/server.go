package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/adapter"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/metrics"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/redis"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/worker"
	"github.com/amazingprincelee/backend-collabogig/internal/usecase"
)

type Server struct {
	paymentUC       usecase.PaymentUseCase
	campaignUC      usecase.CampaignUseCase
	referralUC      usecase.ReferralUseCase
	gateways        map[model.Provider]adapter.PaymentGateway
	auth            *AuthManager
	limiter         *redis.RateLimiter
	pool            *worker.Pool
	frontendBaseURL string
	log             *zerolog.Logger

	httpServer *http.Server
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	campaignUC usecase.CampaignUseCase,
	referralUC usecase.ReferralUseCase,
	gateways map[model.Provider]adapter.PaymentGateway,
	auth *AuthManager,
	limiter *redis.RateLimiter,
	pool *worker.Pool,
	frontendBaseURL string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		paymentUC:       paymentUC,
		campaignUC:      campaignUC,
		referralUC:      referralUC,
		gateways:        gateways,
		auth:            auth,
		limiter:         limiter,
		pool:            pool,
		frontendBaseURL: frontendBaseURL,
		log:             &l,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/payment", func(r chi.Router) {
		r.With(s.auth.OptionalAuth, s.throttleInitiate).Post("/", s.handleInitiate)
		r.With(s.auth.RequireAuth).Post("/verify", s.handleVerify)
		r.Get("/callback", s.handleCallback)
		r.Post("/webhook/{provider}", s.handleWebhook)
		r.Get("/status/{transactionID}", s.handleStatus)
	})

	r.Route("/campaigns", func(r chi.Router) {
		r.Use(s.auth.RequireAuth)
		r.Post("/", s.handleCampaignCreate)
		r.Post("/{campaignID}/send", s.handleCampaignSend)
		r.Get("/{campaignID}", s.handleCampaignStatus)
	})

	r.With(s.auth.RequireAuth).Post("/referrals", s.handleReferralCreate)

	return r
}

// observe records request counts and latency per route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(route, fmt.Sprintf("%dxx", ww.Status()/100), time.Since(start))
	})
}

// throttleInitiate caps payment initiations per client address.
func (s *Server) throttleInitiate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			ok, err := s.limiter.Allow(r.Context(), redis.InitiateKey(r.RemoteAddr), 10, time.Minute)
			if err != nil {
				s.log.Warn().Err(err).Msg("rate limiter unavailable, letting request through")
			} else if !ok {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(port int) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
