package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/muster/internal/muster/evacuation"
	"github.com/BrandonDHaskell/muster/internal/muster/service"
	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

type AuditReader interface {
	Recent(ctx context.Context, kind types.AuditKind, limit int) ([]types.AuditEntry, error)
}

type Dependencies struct {
	Logger           *zap.Logger
	Addr             string
	AllowedOrigins   []string
	OccupancyService *service.OccupancyService
	AccessService    *service.AccessService
	StatusService    *service.StatusService
	Evacuations      *evacuation.Processor
	Audit            AuditReader
}

type Server struct {
	httpServer  *http.Server
	logger      *zap.Logger
	occupancy   *service.OccupancyService
	access      *service.AccessService
	status      *service.StatusService
	evacuations *evacuation.Processor
	audit       AuditReader
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}

	s := &Server{
		logger:      d.Logger,
		occupancy:   d.OccupancyService,
		access:      d.AccessService,
		status:      d.StatusService,
		evacuations: d.Evacuations,
		audit:       d.Audit,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/occupancy", s.handleOccupancy)
		r.Post("/evacuations", s.handleEvacuation)
		r.Post("/access", s.handleAccess)
		r.Get("/audit", s.handleAudit)
		r.Get("/status", s.handleStatus)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "endpoint not found", nil)
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
