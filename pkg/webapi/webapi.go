/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package webapi serves the metrics, health and status endpoints of the
// serve command.
package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Status is the summary of the most recent generation reported on /status.
type Status struct {
	Healthy       bool      `json:"healthy"`
	Fingerprint   string    `json:"fingerprint,omitempty"`
	Members       int       `json:"members"`
	LastGenerated time.Time `json:"lastGenerated,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
}

type WebServerOptions struct {
	Logger        *zap.Logger
	LogLevel      *zap.AtomicLevel
	ListenAddress string

	// MetricsHandler defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

type WebServer struct {
	logger         *zap.Logger
	logLevel       *zap.AtomicLevel
	listenAddress  string
	metricsHandler http.Handler

	lock       sync.Mutex
	status     Status
	httpServer *http.Server
}

func NewWebServer(opts WebServerOptions) *WebServer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	return &WebServer{
		logger:         logger,
		logLevel:       opts.LogLevel,
		listenAddress:  opts.ListenAddress,
		metricsHandler: metricsHandler,
	}
}

// MarkHealthy records a successful generation.
func (w *WebServer) MarkHealthy(fingerprint string, members int) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.status = Status{
		Healthy:       true,
		Fingerprint:   fingerprint,
		Members:       members,
		LastGenerated: time.Now().UTC(),
	}
}

// MarkUnhealthy records a failed generation.  The previous fingerprint is
// kept since the files on disk still reflect it.
func (w *WebServer) MarkUnhealthy(err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.status.Healthy = false
	w.status.LastError = err.Error()
}

func (w *WebServer) Status() Status {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.status
}

func (w *WebServer) handleRoot(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
	_, err := rw.Write([]byte("zkensemble internal webapi"))
	if err != nil {
		w.logger.Debug("failed to write generic root response", zap.Error(err))
	}
}

func (w *WebServer) handleHealth(rw http.ResponseWriter, r *http.Request) {
	if !w.Status().Healthy {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_, _ = rw.Write([]byte("unhealthy"))
		return
	}

	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte("ok"))
}

func (w *WebServer) handleStatus(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(rw).Encode(w.Status())
	if err != nil {
		w.logger.Debug("failed to write status response", zap.Error(err))
	}
}

func (w *WebServer) handleLogLevel(rw http.ResponseWriter, r *http.Request) {
	if w.logLevel == nil {
		rw.WriteHeader(http.StatusNotFound)
		return
	}

	w.logLevel.ServeHTTP(rw, r)
}

// Handler returns the router with cors applied.
func (w *WebServer) Handler() http.Handler {
	r := mux.NewRouter()

	r.Handle("/metrics", w.metricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", w.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", w.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/log-level", w.handleLogLevel).Methods(http.MethodGet, http.MethodPut)
	r.HandleFunc("/", w.handleRoot)

	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet},
	}).Handler(r)
}

func (w *WebServer) ListenAndServe() error {
	w.lock.Lock()
	w.httpServer = &http.Server{
		Handler:      w.Handler(),
		Addr:         w.listenAddress,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	httpServer := w.httpServer
	w.lock.Unlock()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (w *WebServer) Shutdown(ctx context.Context) error {
	w.lock.Lock()
	httpServer := w.httpServer
	w.lock.Unlock()

	if httpServer == nil {
		return nil
	}

	return httpServer.Shutdown(ctx)
}

// Start runs the server in the background, logging if it stops with an
// error.
func (w *WebServer) Start() {
	go func() {
		err := w.ListenAndServe()
		if err != nil {
			w.logger.Error("failed to listen and serve web server", zap.Error(err))
		}
	}()
}
