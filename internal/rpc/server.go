package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j-veylop/creditbar/internal/logger"
)

const (
	maxRequestBytes = 1 << 20
	eventWriteLimit = 5 * time.Second
)

// envelope is the body of every /rpc reply.
type envelope struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Server exposes a Handler and a Hub over HTTP.
type Server struct {
	handler Handler
	hub     *Hub
	router  chi.Router
}

// NewServer builds the router.
func NewServer(handler Handler, hub *Hub) *Server {
	s := &Server{handler: handler, hub: hub}

	r := chi.NewRouter()
	r.Use(metricsMiddleware)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/rpc/{method}", s.handleCall)
	r.Get("/events", s.handleEvents)
	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("backend listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeEnvelope(w, envelope{Error: Errorf(KindInvalidArgument, "failed to read request: %v", err)})
		return
	}

	result, err := s.handler.Handle(r.Context(), method, body)
	observeCall(method, err)
	if err != nil {
		writeEnvelope(w, envelope{Error: Normalize(err)})
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		writeEnvelope(w, envelope{Error: Errorf(KindInternal, "failed to encode result: %v", err)})
		return
	}
	writeEnvelope(w, envelope{Result: data})
}

func writeEnvelope(w http.ResponseWriter, env envelope) {
	status := http.StatusOK
	if env.Error != nil {
		status = statusForKind(env.Error.Kind)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Warn("failed to write reply", "error", err)
	}
}

func statusForKind(kind Kind) int {
	switch kind {
	case KindInvalidArgument, KindConfig:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindUnknownMethod:
		return http.StatusNotFound
	case KindNotConfigured:
		return http.StatusPreconditionFailed
	case KindNetwork:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "events unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("failed to accept event stream", "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	events, cancel := s.hub.Subscribe(32)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "backend shutting down")
				return
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, eventWriteLimit)
			err := wsjson.Write(writeCtx, conn, ev)
			writeCancel()
			if err != nil {
				logger.Debug("event stream closed", "error", err)
				return
			}
			eventsPublished.WithLabelValues(ev.Name).Inc()
		}
	}
}
