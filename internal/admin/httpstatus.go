package admin

import (
	"crypto/tls"
	"encoding/json"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"revtun/pkg/certgen"
)

// HTTPStatus serves /status (JSON snapshot), /metrics (Prometheus), and
// /events (the live websocket feed, if set) over TLS using a self-signed
// certificate generated on first use.
type HTTPStatus struct {
	status StatusProvider
	feed   *EventFeed
	reg    *prometheus.Registry
}

// NewHTTPStatus builds an HTTPStatus reporting from status and registered
// against reg for /metrics.
func NewHTTPStatus(status StatusProvider, feed *EventFeed, reg *prometheus.Registry) *HTTPStatus {
	return &HTTPStatus{status: status, feed: feed, reg: reg}
}

func (h *HTTPStatus) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", h.serveStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(h.reg, promhttp.HandlerOpts{}))
	if h.feed != nil {
		mux.Handle("/events", h.feed)
	}
	return mux
}

func (h *HTTPStatus) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.status.Status())
}

// ListenAndServeTLS generates a self-signed certificate at certFile/keyFile
// if one is not already present - covering addr's host as a SAN - then
// serves HTTPS on addr until it errors.
func (h *HTTPStatus) ListenAndServeTLS(addr, certFile, keyFile string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if err := certgen.GenerateCert(certFile, keyFile, host); err != nil {
		return err
	}
	srv := &http.Server{
		Addr:      addr,
		Handler:   h.mux(),
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return srv.ListenAndServeTLS(certFile, keyFile)
}
