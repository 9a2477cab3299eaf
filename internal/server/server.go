// Package server exposes the simulator over websocket, with Prometheus
// metrics and a health check alongside.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/riftsim/internal/config"
	"github.com/lawnchairsociety/riftsim/internal/logger"
	"github.com/lawnchairsociety/riftsim/internal/metrics"
	"github.com/lawnchairsociety/riftsim/internal/rift"
)

// Rejection reasons recorded in metrics. Connection limit refusals use
// "conn_" plus the LimitReason.
const (
	rejectRateLimit = "rate_limit"
	rejectOrigin    = "origin"
	rejectMalformed = "malformed"
)

type Server struct {
	cfg         *config.Config
	sim         *rift.Simulator
	metrics     *metrics.Metrics
	connLimiter *ConnLimiter
	rateLimiter *RequestLimiter
	httpServer  *http.Server

	// ctx is cancelled on shutdown so running batches stop between chunks.
	ctx          context.Context
	cancel       context.CancelFunc
	conns        sync.WaitGroup
	shutdownOnce sync.Once
	StartTime    time.Time
}

// NewServer creates a server for the given simulator. A nil Metrics gets a fresh registry.
func NewServer(cfg *config.Config, sim *rift.Simulator, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New("")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:         cfg,
		sim:         sim,
		metrics:     m,
		connLimiter: NewConnLimiter(cfg.Server.Connections),
		rateLimiter: NewRequestLimiter(cfg.Server.RateLimit),
		ctx:         ctx,
		cancel:      cancel,
		StartTime:   time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes: /ws, /metrics and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener and blocks until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	logger.Info("Simulation server listening", "address", listener.Addr().String())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, cancels running batches and waits
// for open connections to close or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cancel()
		s.rateLimiter.Stop()
		err = s.httpServer.Shutdown(ctx)

		done := make(chan struct{})
		go func() {
			s.conns.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}

		logger.Info("Server shutdown complete", "uptime", time.Since(s.StartTime).Round(time.Second).String())
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.connLimiter.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": stats.Active,
		"clients":     stats.Clients,
		"peak":        stats.Peak,
		"refused":     stats.Refused,
		"uptime":      time.Since(s.StartTime).Round(time.Second).String(),
	})
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	// Get the real client IP (supports X-Forwarded-For from reverse proxies)
	clientIP := getRealIP(r)

	// Check connection limits before upgrading
	session, reason := s.connLimiter.Acquire(clientIP)
	if session == nil {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP,
			"limit", string(reason))
		s.metrics.RejectedRequests.WithLabelValues("conn_" + string(reason)).Inc()
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	// Registered before the hijack so Shutdown always waits for this connection.
	s.conns.Add(1)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.Server.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
				s.metrics.RejectedRequests.WithLabelValues(rejectOrigin).Inc()
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		// Release the connection slot since upgrade failed
		session.Release()
		s.conns.Done()
		return
	}

	go s.handleWebSocketConnection(wsConn, session)
}

// handleWebSocketConnection serves requests on one connection until it closes.
func (s *Server) handleWebSocketConnection(wsConn *websocket.Conn, session *Session) {
	clientIP := session.IP()
	s.metrics.ActiveConnections.Inc()
	defer func() {
		s.metrics.ActiveConnections.Dec()
		session.Release()
		wsConn.Close()
		s.conns.Done()
	}()

	if limit := s.cfg.Server.WebSocket.MaxMessageSize; limit > 0 {
		wsConn.SetReadLimit(limit)
	}

	// Unblock the pending read when the server shuts down.
	stop := context.AfterFunc(s.ctx, func() { wsConn.Close() })
	defer stop()

	client := NewWebSocketClient(wsConn)
	logger.Info("Client connected", "remote_addr", client.RemoteAddr(), "client_ip", clientIP)
	defer logger.Info("Client disconnected", "client_ip", clientIP)

	for {
		req, err := client.ReadRequest()
		if err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.metrics.RejectedRequests.WithLabelValues(rejectMalformed).Inc()
				if werr := client.WriteError("malformed request: " + err.Error()); werr != nil {
					return
				}
				continue
			}
			return
		}

		if allowed, wait := s.rateLimiter.Allow(clientIP); !allowed {
			logger.Warning("Simulation request rate limited", "client_ip", clientIP, "retry_in", wait.String())
			s.metrics.RejectedRequests.WithLabelValues(rejectRateLimit).Inc()
			if err := client.WriteError(fmt.Sprintf("too many requests, retry in %s", wait.Round(time.Second))); err != nil {
				return
			}
			continue
		}

		if err := s.serveRequest(client, req, clientIP); err != nil {
			return
		}
	}
}

// serveRequest runs one batch and streams its progress and result. A non-nil
// error means the connection is no longer usable.
func (s *Server) serveRequest(client *WebSocketClient, req Request, clientIP string) error {
	cfg := s.runConfig(req)
	if limit := s.cfg.Server.MaxTrials; limit > 0 && cfg.Trials > limit {
		s.metrics.ObserveBatch(metrics.OutcomeInvalid, 0, 0)
		return client.WriteError(fmt.Sprintf("invalid trial count %d: exceeds server limit of %d", cfg.Trials, limit))
	}

	// A failed progress write cancels the batch.
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	var writeErr error
	progress := func(p rift.Progress) {
		if writeErr != nil {
			return
		}
		if writeErr = client.WriteProgress(p); writeErr != nil {
			cancel()
		}
	}

	start := time.Now()
	res, err := s.sim.Run(ctx, cfg, progress)
	elapsed := time.Since(start)
	if writeErr != nil {
		s.metrics.ObserveBatch(metrics.OutcomeCancelled, 0, elapsed)
		return writeErr
	}

	var cfgErr *rift.ConfigurationError
	switch {
	case err == nil:
		s.metrics.ObserveBatch(metrics.OutcomeOK, res.Trials, elapsed)
		logger.Info("Simulation complete",
			"client_ip", clientIP,
			"speed", res.Speed,
			"sync", res.Sync,
			"trials", res.Trials,
			"seed", res.Seed,
			"elapsed", elapsed.String())
		return client.WriteResult(res)
	case errors.As(err, &cfgErr):
		s.metrics.ObserveBatch(metrics.OutcomeInvalid, 0, elapsed)
		return client.WriteError(cfgErr.Error())
	case errors.Is(err, context.Canceled):
		s.metrics.ObserveBatch(metrics.OutcomeCancelled, 0, elapsed)
		client.WriteError("server shutting down")
		return err
	default:
		s.metrics.ObserveBatch(metrics.OutcomeError, 0, elapsed)
		logger.Error("Simulation failed", "client_ip", clientIP, "error", err)
		return client.WriteError("simulation failed")
	}
}

// runConfig fills request defaults from the server config.
func (s *Server) runConfig(req Request) rift.RunConfig {
	cfg := rift.RunConfig{
		Speed:  req.Speed,
		Sync:   req.Sync,
		Trials: s.cfg.Simulation.Trials,
		Seed:   s.cfg.Simulation.SeedPtr(),
	}
	if req.Trials != nil {
		cfg.Trials = *req.Trials
	}
	if req.Seed != nil {
		cfg.Seed = req.Seed
	}
	return cfg
}

// getRealIP extracts the real client IP from an HTTP request.
// It checks X-Forwarded-For header first (for reverse proxy setups),
// then falls back to the direct remote address.
func getRealIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by reverse proxies like nginx)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first entry is the original client
		ips := strings.Split(xff, ",")
		if clientIP := strings.TrimSpace(ips[0]); clientIP != "" {
			return clientIP
		}
	}

	// Check X-Real-IP header (alternative header used by some proxies)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return extractIP(r.RemoteAddr)
}
