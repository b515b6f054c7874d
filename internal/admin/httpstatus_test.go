package admin

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"revtun/internal/rendezvous"
)

func TestHTTPStatusServesStatusAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPromMetrics(reg, "test-instance")
	metrics.TunnelStarted(8080)

	status := fixedStatus{Ports: []int{8080}, PendingSessions: 1, ControllerConnected: true, SessionsIssued: 3}
	h := NewHTTPStatus(status, NewEventFeed("test-instance"), reg)

	srv := httptest.NewServer(h.mux())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got rendezvous.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, []int{8080}, got.Ports)
	require.Equal(t, 1, got.PendingSessions)
	require.True(t, got.ControllerConnected)
	require.EqualValues(t, 3, got.SessionsIssued)

	metricsResp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, 200, metricsResp.StatusCode)
}
