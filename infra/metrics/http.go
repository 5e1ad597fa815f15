package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServeMux returns a mux exposing Prometheus metrics on /metrics plus the
// provided extra routes.
func NewServeMux(routes map[string]http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	for pattern, h := range routes {
		mux.Handle(pattern, h)
	}
	return mux
}

// StartPromServer serves NewServeMux(routes) on addr until ctx is canceled.
func StartPromServer(ctx context.Context, addr string, routes map[string]http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: NewServeMux(routes), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
