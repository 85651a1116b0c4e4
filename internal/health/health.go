// Package health содержит health check сервер.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pokerstats/internal/worker"

	"go.uber.org/zap"
)

// checkTimeout ограничивает проверку зависимостей в одном запросе
const checkTimeout = 3 * time.Second

// Pinger проверяет доступность базы данных
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsSource отдает метрики пула импорта
type MetricsSource interface {
	GetMetrics() worker.Metrics
}

// Server представляет health check сервер
type Server struct {
	server *http.Server
	db     Pinger
	pool   MetricsSource
	logger *zap.Logger
}

type response struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Error     string          `json:"error,omitempty"`
	Imports   *worker.Metrics `json:"imports,omitempty"`
}

// NewServer создает новый health check сервер
func NewServer(port string, db Pinger, pool MetricsSource, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	healthServer := &Server{
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		db:     db,
		pool:   pool,
		logger: logger,
	}

	mux.HandleFunc("/health", healthServer.healthHandler)
	mux.HandleFunc("/ready", healthServer.readyHandler)
	mux.HandleFunc("/live", healthServer.liveHandler)

	return healthServer
}

// Handler возвращает HTTP обработчик сервера
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start запускает health check сервер
func (s *Server) Start() error {
	s.logger.Info("Starting health check server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop останавливает health check сервер
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("Stopping health check server")
	return s.server.Shutdown(ctx)
}

// healthHandler отдает состояние базы и очереди импорта
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := response{Status: "healthy"}
	code := http.StatusOK

	if err := s.checkDatabase(r.Context()); err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
		s.logger.Error("Health check failed", zap.Error(err))
	}

	if s.pool != nil {
		metrics := s.pool.GetMetrics()
		resp.Imports = &metrics
	}

	s.write(w, code, resp)
}

// readyHandler сообщает, готов ли бот принимать выгрузки
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	resp := response{Status: "ready"}
	code := http.StatusOK

	if err := s.checkDatabase(r.Context()); err != nil {
		resp.Status = "not ready"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
		s.logger.Error("Readiness check failed", zap.Error(err))
	}

	s.write(w, code, resp)
}

// liveHandler обрабатывает запросы /live
func (s *Server) liveHandler(w http.ResponseWriter, _ *http.Request) {
	s.write(w, http.StatusOK, response{Status: "alive"})
}

func (s *Server) write(w http.ResponseWriter, code int, resp response) {
	resp.Timestamp = time.Now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("Failed to write health response", zap.Error(err))
	}
}

// checkDatabase проверяет подключение к базе данных
func (s *Server) checkDatabase(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
