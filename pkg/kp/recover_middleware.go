package kp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sing3demons/authgateway/internal/config"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/logger"
)

// LoggerMiddleware attaches a fresh request scoped logger to every request.
func LoggerMiddleware(cfg *config.AppConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			csLog := logger.NewLoggerWithConfig(cfg.ServiceName, cfg.Version, &cfg.LoggerConfig)

			tid := r.Header.Get(string(TransactionID))
			if tid == "" {
				tid = uuid.NewString()
			}
			csLog.StartTransaction(tid, r.Header.Get(string(SessionID)))

			next.ServeHTTP(w, r.WithContext(logger.SetLogger(r.Context(), csLog)))
		})
	}
}

// RecoverMiddleware catches panics during request handling and returns 500.
// It tries to log via logger found in request context; if unavailable, it just responds.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}

			if lg := logger.GetLogger(r.Context()); lg != nil {
				lg.Error(logAction.EXCEPTION("panic recovered"), map[string]any{
					"method":   r.Method,
					"path":     r.URL.Path,
					"panic":    err.Error(),
					"duration": time.Since(start).Milliseconds(),
					"stack":    string(debug.Stack()),
				})
				lg.FlushError(http.StatusInternalServerError, "internal_server_error")
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(ErrInternal.Json())
		}()

		next.ServeHTTP(w, r)
	})
}
