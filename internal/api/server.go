// Package api exposes the HTTP surface: segment, campaign, customer,
// and message-log endpoints over chi. Handlers stay thin — decode,
// delegate to a service, map sentinel errors to status codes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/engage/internal/metrics"
	"github.com/ignite/engage/internal/personalize"
	"github.com/ignite/engage/internal/service/campaign"
	"github.com/ignite/engage/internal/service/customer"
	"github.com/ignite/engage/internal/service/delivery"
	"github.com/ignite/engage/internal/service/segments"
)

// Server is the API server.
type Server struct {
	campaigns *campaign.Service
	segments  *segments.Service
	customers *customer.Service
	logs      delivery.LogStore
	renderer  *personalize.RichRenderer
	stats     *metrics.Metrics

	pollInterval time.Duration
	pollWindow   time.Duration

	handler http.Handler
	server  *http.Server
}

// NewServer wires the services into a routed HTTP handler.
func NewServer(
	campaigns *campaign.Service,
	segs *segments.Service,
	customers *customer.Service,
	logs delivery.LogStore,
	stats *metrics.Metrics,
	allowedOrigins []string,
) *Server {
	s := &Server{
		campaigns: campaigns,
		segments:  segs,
		customers: customers,
		logs:      logs,
		renderer:  personalize.NewRichRenderer(),
		stats:     stats,

		pollInterval: 2 * time.Second,
		pollWindow:   2 * time.Minute,
	}
	s.handler = s.routes(allowedOrigins)
	return s
}

// WithPolling overrides the wait-for-completion polling contract used
// by GET /api/campaigns/{id}?wait=true.
func (s *Server) WithPolling(interval, window time.Duration) *Server {
	s.pollInterval = interval
	s.pollWindow = window
	return s
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Owner-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	if s.stats != nil {
		r.Method(http.MethodGet, "/metrics", s.stats.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(ownerContext)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", s.handleListCustomers)
			r.Post("/", s.handleCreateCustomer)
			r.Get("/{id}", s.handleGetCustomer)
			r.Put("/{id}", s.handleUpdateCustomer)
			r.Delete("/{id}", s.handleDeleteCustomer)
			r.Post("/{id}/visits", s.handleRecordVisit)
		})

		r.Route("/segments", func(r chi.Router) {
			r.Get("/", s.handleListSegments)
			r.Post("/", s.handleCreateSegment)
			r.Post("/preview", s.handlePreviewSegment)
			r.Get("/{id}", s.handleGetSegment)
			r.Put("/{id}", s.handleUpdateSegment)
			r.Delete("/{id}", s.handleDeleteSegment)
			r.Post("/{id}/refresh", s.handleRefreshSegment)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleListCampaigns)
			r.Post("/", s.handleCreateCampaign)
			r.Post("/preview-content", s.handlePreviewContent)
			r.Get("/{id}", s.handleGetCampaign)
			r.Put("/{id}", s.handleUpdateCampaign)
			r.Delete("/{id}", s.handleDeleteCampaign)
			r.Post("/{id}/send", s.handleSendCampaign)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/logs", s.handleListLogs)
			r.Post("/receipt", s.handleDeliveryReceipt)
		})
	})

	return r
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// Sends run synchronously inside the request; allow for large audiences.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
