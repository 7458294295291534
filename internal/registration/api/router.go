package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ulule/limiter/v3"
	limitermw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"ms-registration/internal/auth"
	"ms-registration/internal/logger"
	"ms-registration/internal/registration/service"
	"ms-registration/internal/sse"
	"ms-registration/internal/utils"
)

type Handler struct {
	Service *service.Service
	Feed    *sse.RegistrationFeed
	Logger  *logger.Logger
	// KeepAlive is the interval between SSE comments sent to idle streams.
	KeepAlive time.Duration
}

func NewHandler(svc *service.Service, feed *sse.RegistrationFeed, log *logger.Logger) *Handler {
	return &Handler{Service: svc, Feed: feed, Logger: log, KeepAlive: 25 * time.Second}
}

type Options struct {
	AllowedOrigins []string
	// PublicRate is a limiter rate such as "60-M" applied per client IP to public routes.
	PublicRate string
	Verifier   auth.Verifier
	Admins     auth.AdminDirectory
	Health     func(ctx context.Context) error
}

func NewRouter(h *Handler, opts Options) (http.Handler, error) {
	if opts.PublicRate == "" {
		opts.PublicRate = "60-M"
	}
	rate, err := limiter.NewRateFromFormatted(opts.PublicRate)
	if err != nil {
		return nil, fmt.Errorf("invalid public rate %q: %w", opts.PublicRate, err)
	}
	publicLimit := limitermw.NewMiddleware(limiter.New(memory.NewStore(), rate))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.health(opts.Health))

	r.Route("/api/public", func(r chi.Router) {
		r.Use(publicLimit.Handler)

		r.Get("/events", h.ListPublicEvents)
		r.Get("/events/{eventId}", h.GetPublicEvent)
		r.Post("/events/{eventId}/registrations", h.SubmitRegistration)
		r.Post("/registrations/lookup", h.LookupRegistration)
		r.Get("/receipts/{token}", h.DownloadReceipt)
	})
	h.Logger.Info("ROUTER", "Public routes registered under /api/public")

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.Middleware(opts.Verifier, opts.Admins, h.Logger))

		r.Get("/dashboard", h.Dashboard)
		r.Get("/stream", h.StreamAll)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/", h.CreateEvent)
			r.Get("/{eventId}", h.GetEvent)
			r.Put("/{eventId}", h.UpdateEvent)
			r.Delete("/{eventId}", h.DeleteEvent)
			r.Patch("/{eventId}/active", h.SetEventActive)
			r.Get("/{eventId}/days", h.EventDays)
			r.Get("/{eventId}/stream", h.StreamEvent)
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Get("/", h.ListRegistrations)
			r.Post("/status", h.BulkStatus)
			r.Get("/{registrationId}", h.GetRegistration)
			r.Put("/{registrationId}", h.UpdateRegistration)
			r.Patch("/{registrationId}/status", h.UpdateStatus)
		})

		r.Route("/exports", func(r chi.Router) {
			r.Get("/registrations", h.ExportRegistrations)
			r.Get("/events/{eventId}.pdf", h.ExportEvent)
			r.Get("/events/{eventId}/attendance", h.ExportAttendance)
		})
	})
	h.Logger.Info("ROUTER", "Admin routes registered under /api/admin")

	return r, nil
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.Logger.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), time.Since(start).String())
	})
}

func (h *Handler) health(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				h.Logger.Error("HEALTH", err.Error())
				utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("unhealthy", err.Error()))
				return
			}
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
	}
}
