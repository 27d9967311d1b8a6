package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"activation-gateway/internal/domain/ports/adapter"
	redisinfra "activation-gateway/internal/infra/redis"
	"activation-gateway/internal/usecase"
)

// Server wires the HTTP surface: admin code management, redemption,
// verification and the guarded completion endpoint.
type Server struct {
	activation  usecase.ActivationUseCase
	completion  usecase.CompletionUseCase
	credentials adapter.CredentialService
	limiter     *redisinfra.RateLimiter

	adminKey        string
	redeemPerMinute int
	liveRevocation  bool
	requestTimeout  time.Duration
	dev             bool

	log *zerolog.Logger
}

type Options struct {
	AdminKey        string
	RedeemPerMinute int
	LiveRevocation  bool
	RequestTimeout  time.Duration
	Dev             bool
}

func NewServer(
	activation usecase.ActivationUseCase,
	completion usecase.CompletionUseCase,
	credentials adapter.CredentialService,
	limiter *redisinfra.RateLimiter,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	if opts.RedeemPerMinute <= 0 {
		opts.RedeemPerMinute = 10
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	return &Server{
		activation:      activation,
		completion:      completion,
		credentials:     credentials,
		limiter:         limiter,
		adminKey:        opts.AdminKey,
		redeemPerMinute: opts.RedeemPerMinute,
		liveRevocation:  opts.LiveRevocation,
		requestTimeout:  opts.RequestTimeout,
		dev:             opts.Dev,
		log:             logger,
	}
}

// Routes builds the chi router with the full middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Timeout(s.requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Admin surface
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/codes", s.handleCreateCode)
			r.Get("/codes", s.handleListCodes)
			r.Delete("/codes/{code}", s.handleRevokeCode)
		})

		// The code itself is the credential here.
		r.Post("/redeem", s.handleRedeem)

		// Guarded surface
		r.Group(func(r chi.Router) {
			r.Use(s.requireCredential)
			r.Get("/verify", s.handleVerify)
			r.Post("/completions", s.handleCompletion)
		})
	})

	return r
}
