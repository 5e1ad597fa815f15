package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/chargeguard/core/allocator"
	coremetrics "github.com/kilianp07/chargeguard/core/metrics"
)

// PromSink records session events in Prometheus metrics.
type PromSink struct {
	admissions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	occupied   prometheus.Gauge
	stations   prometheus.Gauge
	dropped    prometheus.Counter
}

// NewPromSink registers session metrics on the default Prometheus registerer.
// The HTTP server exposing them is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	admissions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chargeguard_admissions_total",
		Help: "Charge requests by station and outcome (admitted or reject reason)",
	}, []string{"station_id", "outcome"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chargeguard_session_duration_seconds",
		Help:    "Duration of released charging sessions",
		Buckets: prometheus.ExponentialBuckets(60, 2, 10),
	}, []string{"station_id"}))
	if err != nil {
		return nil, err
	}
	occupied, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargeguard_stations_occupied",
		Help: "Number of stations with an active session",
	}))
	if err != nil {
		return nil, err
	}
	stations, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chargeguard_stations_total",
		Help: "Number of configured stations",
	}))
	if err != nil {
		return nil, err
	}
	dropped, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chargeguard_events_dropped_total",
		Help: "Session events the event bus could not deliver to a full subscriber",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{admissions: admissions, duration: duration, occupied: occupied, stations: stations, dropped: dropped}, nil
}

// register returns the already registered collector when an identical one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAdmission increments the admissions counter.
func (s *PromSink) RecordAdmission(ev coremetrics.AdmissionEvent) error {
	s.admissions.WithLabelValues(stationLabel(ev), outcome(ev)).Inc()
	return nil
}

// RecordRelease observes the session duration.
func (s *PromSink) RecordRelease(ev coremetrics.ReleaseEvent) error {
	s.duration.WithLabelValues(ev.StationID).Observe(ev.Duration.Seconds())
	return nil
}

// RecordOccupancy sets the occupancy gauges.
func (s *PromSink) RecordOccupancy(ev coremetrics.OccupancyEvent) error {
	s.occupied.Set(float64(ev.Occupied))
	s.stations.Set(float64(ev.Total))
	return nil
}

// RecordDropped adds undelivered bus events to the dropped counter.
func (s *PromSink) RecordDropped(ev coremetrics.DroppedEvent) error {
	s.dropped.Add(float64(ev.Count))
	return nil
}

// UnknownStation is the station label used when the requested station id was
// never matched against the registry.
const UnknownStation = "unknown"

// stationLabel keeps the station_id label bounded to configured stations:
// ids that were not found, or never looked up because the identity was
// invalid, are reported as UnknownStation.
func stationLabel(ev coremetrics.AdmissionEvent) string {
	switch ev.Reason {
	case allocator.ReasonStationNotFound.String(), allocator.ReasonInvalidIdentity.String():
		return UnknownStation
	}
	return ev.StationID
}

func outcome(ev coremetrics.AdmissionEvent) string {
	if ev.Admitted {
		return "admitted"
	}
	if ev.Reason == "" {
		return "rejected"
	}
	return ev.Reason
}
