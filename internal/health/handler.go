package health

import (
	"context"
	"net/http"
	"sort"

	"github.com/sing3demons/authgateway/internal/keycache"
	"github.com/sing3demons/authgateway/pkg/jwks"
	"github.com/sing3demons/authgateway/pkg/kp"
)

type KeyStatus interface {
	Keys(ctx context.Context) (jwks.Set, error)
	Snapshot() keycache.Snapshot
}

// Check reports a dependency as healthy by returning nil.
type Check func(ctx context.Context) error

type Handler struct {
	service string
	version string
	keys    KeyStatus
	checks  map[string]Check
}

func NewHandler(service, version string, keys KeyStatus, checks map[string]Check) *Handler {
	return &Handler{service: service, version: version, keys: keys, checks: checks}
}

func (h *Handler) Register(app kp.IMicroservice) {
	app.GET("/healthz", h.Healthz)
	app.GET("/auth/keys", h.Keys)
}

func (h *Handler) Healthz(ctx *kp.Ctx) {
	ctx.L("healthz")

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx.Context()); err != nil {
			results[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := map[string]any{
		"status":  status,
		"service": h.service,
		"version": h.version,
		"checks":  results,
	}
	if code != http.StatusOK {
		ctx.JSONError(code, body, nil)
		return
	}
	ctx.JSON(code, body)
}

// Keys reports the cached signing keys, loading them first if the cache
// has never been filled.
func (h *Handler) Keys(ctx *kp.Ctx) {
	ctx.L("key_status")

	snap := h.keys.Snapshot()
	if snap.FetchedAt.IsZero() {
		if _, err := h.keys.Keys(ctx.Context()); err != nil {
			ctx.Error(kp.NewError(http.StatusServiceUnavailable, "keys_unavailable", "signing keys are not available", err))
			return
		}
		snap = h.keys.Snapshot()
	}

	ctx.JSON(http.StatusOK, map[string]any{
		"kids":       snap.KIDs,
		"fetchedAt":  snap.FetchedAt,
		"ageSeconds": int64(snap.Age.Seconds()),
		"expired":    snap.Expired,
		"sequence":   snap.Sequence,
	})
}
