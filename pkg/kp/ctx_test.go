package kp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sing3demons/authgateway/internal/config"
	"github.com/sing3demons/authgateway/pkg/logger"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		ServiceName:  "test",
		Version:      "1.0",
		LoggerConfig: config.LoggerConfig{Rotation: config.DefaultRotationConfig()},
	}
}

func newTestCtx(req *http.Request) (*Ctx, *httptest.ResponseRecorder) {
	cfg := testConfig()
	rec := httptest.NewRecorder()
	return &Ctx{
		Res: rec,
		Req: req,
		Cfg: cfg,
		Log: logger.NewLoggerWithConfig(cfg.ServiceName, cfg.Version, &cfg.LoggerConfig),
	}, rec
}

func TestCtx_Bind_JSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "Valid JSON",
			body: `{"name":"test","age":25}`,
			want: map[string]any{"name": "test", "age": float64(25)},
		},
		{
			name:    "Invalid JSON",
			body:    `{invalid}`,
			wantErr: true,
		},
		{
			name:    "Empty body",
			body:    ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			ctx, _ := newTestCtx(req)

			var result map[string]any
			err := ctx.Bind(&result)

			if (err != nil) != tt.wantErr {
				t.Errorf("Bind() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && result["name"] != tt.want["name"] {
				t.Errorf("got %v, want %v", result, tt.want)
			}
		})
	}
}

func TestCtx_Bind_Form(t *testing.T) {
	formData := url.Values{}
	formData.Set("email", "john@example.com")
	formData.Set("password", "secret")

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(formData.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ctx, _ := newTestCtx(req)

	var result struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.Bind(&result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Email != "john@example.com" || result.Password != "secret" {
		t.Errorf("got %+v", result)
	}
}

func TestCtx_Bind_BodyReusable(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"email":"a@b.io"}`))
	ctx, _ := newTestCtx(req)

	var first, second map[string]any
	if err := ctx.Bind(&first); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Bind(&second); err != nil {
		t.Fatalf("second bind failed: %v", err)
	}
	if second["email"] != "a@b.io" {
		t.Errorf("body not restored: %v", second)
	}
}

func TestCtx_Bind_UnsupportedType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("<a/>"))
	req.Header.Set("Content-Type", "application/xml")
	ctx, _ := newTestCtx(req)

	var result map[string]any
	if err := ctx.Bind(&result); err == nil {
		t.Error("expected error for unsupported content type")
	}
}

func TestCtx_SessionID_Idempotent(t *testing.T) {
	ctx, _ := newTestCtx(httptest.NewRequest(http.MethodGet, "/test", nil))

	if sid1, sid2 := ctx.SessionID(), ctx.SessionID(); sid1 != sid2 {
		t.Errorf("SessionID() not idempotent: %q != %q", sid1, sid2)
	}
}

func TestCtx_TransactionID_FromHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("x-transaction-id", "tid-123")
	ctx, _ := newTestCtx(req)

	if got := ctx.TransactionID(); got != "tid-123" {
		t.Errorf("TransactionID() = %q, want tid-123", got)
	}
	if got := ctx.TransactionID(); got != "tid-123" {
		t.Errorf("TransactionID() not idempotent: %q", got)
	}
}

func TestCtx_Cookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "abc"})
	ctx, _ := newTestCtx(req)

	if got := ctx.Cookie("auth_token"); got != "abc" {
		t.Errorf("Cookie() = %q, want abc", got)
	}
	if got := ctx.Cookie("missing"); got != "" {
		t.Errorf("Cookie() = %q, want empty", got)
	}
}

func TestCtx_Error(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "classified",
			err:        NewError(http.StatusConflict, "username_exists", "user already exists", errors.New("raw")),
			wantStatus: http.StatusConflict,
			wantCode:   "username_exists",
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, rec := newTestCtx(httptest.NewRequest(http.MethodGet, "/test", nil))
			ctx.Error(tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
			if strings.Contains(body["message"], "boom") || strings.Contains(body["message"], "raw") {
				t.Errorf("internal error text leaked: %v", body)
			}
		})
	}
}

func TestMicroservice_RoutesAndRecover(t *testing.T) {
	ms := NewMicroservice(testConfig())
	ms.Use(RecoverMiddleware)
	ms.Use(LoggerMiddleware(testConfig()))

	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	ms.GET("/ok", func(ctx *Ctx) {
		ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}, mw("first"), mw("second"))
	ms.GET("/panic", func(ctx *Ctx) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("middleware order = %v", order)
	}

	rec = httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panic status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "kaboom") {
		t.Errorf("panic text leaked: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ok", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("method mismatch status = %d", rec.Code)
	}
}
