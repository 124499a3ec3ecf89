package health

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// LedgerService is the health service name that tracks ledger availability.
const LedgerService = "muster.Ledger"

// Probe reports whether the ledger can be read.
type Probe func(ctx context.Context) (ok bool, message string)

type Config struct {
	Addr     string
	Interval time.Duration
}

// Server exposes grpc.health.v1 over its own listener. The overall status
// ("") follows the ledger probe.
type Server struct {
	cfg    Config
	probe  Probe
	logger *zap.Logger

	grpc   *grpc.Server
	health *health.Server

	mu     sync.Mutex
	last   healthpb.HealthCheckResponse_ServingStatus
	cancel context.CancelFunc
	done   chan struct{}
}

func NewServer(cfg Config, probe Probe, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}

	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{
		cfg:    cfg,
		probe:  probe,
		logger: logger,
		grpc:   gs,
		health: hs,
		last:   healthpb.HealthCheckResponse_UNKNOWN,
	}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Refresh runs the probe once and publishes the result.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ok, msg := s.probe(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.mu.Lock()
	changed := status != s.last
	s.mu.Unlock()
	if changed {
		s.logger.Info("health status changed",
			zap.String("status", status.String()),
			zap.String("message", msg))
	}
	s.set(status)
	return status
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(LedgerService, status)
}

// Serve probes immediately, then on every interval, and blocks serving lis
// until Stop.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.Refresh(ctx)
	go func() {
		defer close(done)
		t := time.NewTicker(s.cfg.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Refresh(ctx)
			}
		}
	}()

	s.logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Start listens on the configured address and serves in the foreground.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	s.grpc.GracefulStop()
}
