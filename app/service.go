package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apiaudit "github.com/kilianp07/chargeguard/api/audit"
	apistations "github.com/kilianp07/chargeguard/api/stations"
	"github.com/kilianp07/chargeguard/config"
	"github.com/kilianp07/chargeguard/core/allocator"
	"github.com/kilianp07/chargeguard/core/audit"
	coremetrics "github.com/kilianp07/chargeguard/core/metrics"
	coremon "github.com/kilianp07/chargeguard/core/monitoring"
	"github.com/kilianp07/chargeguard/infra/logger"
	"github.com/kilianp07/chargeguard/infra/metrics"
	inframon "github.com/kilianp07/chargeguard/infra/monitoring"
	"github.com/kilianp07/chargeguard/infra/mqtt"
	"github.com/kilianp07/chargeguard/internal/eventbus"
)

// Service wires the allocator to its observers: metrics, audit trail,
// anomaly reporting, MQTT publishing and the status HTTP server.
type Service struct {
	Allocator *allocator.Allocator

	cfg       *config.Config
	bus       *eventbus.Bus
	sink      coremetrics.MetricsSink
	store     audit.Store
	monitor   coremon.Monitor
	publisher *mqtt.EventPublisher
	log       logger.Logger

	done    []<-chan struct{}
	httpErr chan error
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := audit.NewStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}

	var pub *mqtt.EventPublisher
	if cfg.MQTT.Enabled {
		pub, err = mqtt.NewEventPublisher(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	bus := eventbus.New()
	alloc := allocator.New(cfg.Stations,
		allocator.WithLogger(logger.New("allocator")),
		allocator.WithEventBus(bus),
	)
	return &Service{
		Allocator: alloc,
		cfg:       cfg,
		bus:       bus,
		sink:      sink,
		store:     store,
		monitor:   mon,
		publisher: pub,
		log:       logg,
		httpErr:   make(chan error, 1),
	}, nil
}

// Routes returns the read-only HTTP endpoints mounted next to /metrics.
func (s *Service) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"/api/stations": apistations.NewStationsHandler(s.Allocator),
		"/api/sessions": apistations.NewSessionsHandler(s.Allocator),
		"/api/audit":    apiaudit.NewLogHandler(s.store, s.cfg.API.AuditToken),
	}
}

// Start subscribes every observer to the event bus and launches the HTTP
// server when metrics.http_addr is set. It does not block.
func (s *Service) Start(ctx context.Context) error {
	if s.done != nil {
		return errors.New("service already started")
	}
	s.done = []<-chan struct{}{
		metrics.StartEventCollector(ctx, s.bus, s.sink, s.Allocator, logger.New("metrics")),
		audit.StartRecorder(ctx, s.bus, s.store, logger.New("audit")),
		coremon.StartAnomalyReporter(ctx, s.bus, s.monitor, logger.New("anomaly")),
	}
	if s.publisher != nil {
		s.done = append(s.done, s.publisher.Start(ctx, s.bus))
	}
	if addr := s.cfg.Metrics.HTTPAddr; addr != "" {
		go func() {
			defer coremon.Recover()
			s.httpErr <- metrics.StartPromServer(ctx, addr, s.Routes())
		}()
		s.log.Infof("status server listening on %s", addr)
	}
	occ, total := s.Allocator.Occupancy()
	s.log.Infof("allocator ready: %d/%d stations occupied", occ, total)
	return nil
}

// Wait blocks until ctx is done and the observers have drained, or returns
// early when the HTTP server fails.
func (s *Service) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case err := <-s.httpErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		<-ctx.Done()
	}
	for _, d := range s.done {
		<-d
	}
	return nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Wait(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.publisher != nil {
		s.publisher.Close()
	}
	var errs []error
	if c, ok := s.sink.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.store.Close())
	s.monitor.Flush(2 * time.Second)
	return errors.Join(errs...)
}
