package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apistations "github.com/kilianp07/chargeguard/api/stations"
	"github.com/kilianp07/chargeguard/config"
	"github.com/kilianp07/chargeguard/core/audit"
	"github.com/kilianp07/chargeguard/core/factory"
	"github.com/kilianp07/chargeguard/core/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Stations: []model.StationConfig{
			{ID: "IST-001", Location: "Istanbul"},
			{ID: "ANK-002", Location: "Ankara"},
		},
		Audit: audit.Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "sessions.log")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestService_AuditTrail(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))
	assert.Error(t, svc.Start(ctx))

	r := svc.Allocator.RequestCharge("RFID-AHMET-12345", "IST-001")
	require.True(t, r.Success)
	clone := svc.Allocator.RequestCharge("RFID-AHMET-12345", "ANK-002")
	require.False(t, clone.Success)
	require.True(t, svc.Allocator.StopCharge(r.Session.ID))

	require.Eventually(t, func() bool {
		recs, err := svc.store.Query(context.Background(), audit.Query{})
		return err == nil && len(recs) == 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, svc.Wait(ctx))
	require.NoError(t, svc.Close())
}

func TestService_AuditsBurstBeforeShutdown(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.Start(ctx))

	const pairs = 30
	for i := 0; i < pairs; i++ {
		r := svc.Allocator.RequestCharge("RFID-BURST", "IST-001")
		require.True(t, r.Success)
		require.True(t, svc.Allocator.StopCharge(r.Session.ID))
	}
	cancel()
	require.NoError(t, svc.Wait(ctx))

	recs, err := svc.store.Query(context.Background(), audit.Query{})
	require.NoError(t, err)
	assert.Len(t, recs, 2*pairs)
	stopped, err := svc.store.Query(context.Background(), audit.Query{Kind: audit.KindStopped})
	require.NoError(t, err)
	assert.Len(t, stopped, pairs)
	require.NoError(t, svc.Close())
}

func TestService_Routes(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	svc.Allocator.RequestCharge("RFID-1", "ANK-002")

	routes := svc.Routes()
	for _, p := range []string{"/api/stations", "/api/sessions", "/api/audit"} {
		require.Contains(t, routes, p)
	}
	rr := httptest.NewRecorder()
	routes["/api/stations"].ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stations", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var out apistations.Overview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Occupied)
	assert.Equal(t, 2, out.Total)
}

func TestNew_InvalidSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "carrier-pigeon"}}
	_, err := New(cfg)
	assert.Error(t, err)
}
