package kp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sing3demons/authgateway/internal/config"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/logger"
)

const MaxBodySize = 1 << 20 // 1 MB

type ContentType string

const (
	ContentTypeJSON ContentType = "application/json"
	ContentTypeForm ContentType = "application/x-www-form-urlencoded"
)

type CtxKey string

const (
	SessionID     CtxKey = "x-session-id"
	TransactionID CtxKey = "x-transaction-id"
)

// headers never written to the detail log in clear text
var inboundMasking = []logger.MaskingRule{
	{Field: "headers.Cookie", Type: logger.MaskingTypeFull},
	{Field: "headers.Authorization", Type: logger.MaskingTypeFull},
}

type Ctx struct {
	Res http.ResponseWriter
	Req *http.Request
	Cfg *config.AppConfig
	Log logger.ILogger
}

func newMuxContext(w http.ResponseWriter, r *http.Request, cfg *config.AppConfig) *Ctx {
	csLog := logger.GetLogger(r.Context())
	if csLog == nil {
		csLog = logger.NewLoggerWithConfig(cfg.ServiceName, cfg.Version, &cfg.LoggerConfig)
		r = r.WithContext(logger.SetLogger(r.Context(), csLog))
	}

	ctx := &Ctx{
		Res: w,
		Req: r,
		Cfg: cfg,
		Log: csLog,
	}
	ctx.TransactionID()
	return ctx
}

// TransactionID returns the request transaction id, taking it from the logger,
// the x-transaction-id header or a new uuid in that order.
func (c *Ctx) TransactionID() string {
	if tid := c.Log.TransactionID(); tid != "" {
		return tid
	}
	tid := strings.TrimSpace(c.Req.Header.Get(string(TransactionID)))
	if tid == "" {
		tid = uuid.NewString()
	}
	c.Log.SetTransactionID(tid)
	return tid
}

func (c *Ctx) SessionID() string {
	if sid := c.Log.SessionID(); sid != "" {
		return sid
	}
	sid := strings.TrimSpace(c.Req.Header.Get(string(SessionID)))
	if sid == "" {
		sid = uuid.NewString()
	}
	c.Log.SetSessionID(sid)
	return sid
}

func (c *Ctx) Context() context.Context {
	if c.Req == nil {
		return context.Background()
	}
	return c.Req.Context()
}

func (c *Ctx) Params(name string) string {
	return c.Req.PathValue(name)
}

func (c *Ctx) Query(name string) string {
	return c.Req.URL.Query().Get(name)
}

func (c *Ctx) Cookie(name string) string {
	ck, err := c.Req.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (c *Ctx) SetCookie(ck *http.Cookie) {
	http.SetCookie(c.Res, ck)
}

func (c *Ctx) Bind(v any) error {
	if c.Req.Method == http.MethodGet || c.Req.Method == http.MethodHead {
		return nil
	}

	contentType := c.Req.Header.Get("Content-Type")
	if contentType == "" {
		contentType = string(ContentTypeJSON)
	}
	baseContentType := strings.TrimSpace(strings.Split(contentType, ";")[0])

	bodyBytes, err := io.ReadAll(io.LimitReader(c.Req.Body, MaxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(bodyBytes)) >= MaxBodySize {
		return fmt.Errorf("request body too large (max %d bytes)", MaxBodySize)
	}

	// restore for later reads (inbound logging binds first)
	c.Req.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	switch ContentType(baseContentType) {
	case ContentTypeJSON:
		if len(bodyBytes) == 0 {
			return fmt.Errorf("empty JSON body")
		}
		if err := json.Unmarshal(bodyBytes, v); err != nil {
			return fmt.Errorf("failed to unmarshal JSON: %w", err)
		}
		return nil
	case ContentTypeForm:
		return parseForm(bodyBytes, v)
	default:
		return fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func parseForm(bodyBytes []byte, v any) error {
	values, err := url.ParseQuery(string(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to parse form data: %w", err)
	}

	flat := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			flat[key] = vals[0]
		}
	}

	if target, ok := v.(*map[string]string); ok {
		*target = flat
		return nil
	}

	jsonData, err := json.Marshal(flat)
	if err != nil {
		return fmt.Errorf("failed to convert form data: %w", err)
	}
	if err := json.Unmarshal(jsonData, v); err != nil {
		return fmt.Errorf("failed to unmarshal form data: %w", err)
	}
	return nil
}

// L names the use case and writes the inbound detail line.
func (c *Ctx) L(useCase string, masking ...logger.MaskingRule) logger.ILogger {
	c.Log.SetUseCase(useCase)
	c.SessionID()

	body := make(map[string]any)
	_ = c.Bind(&body)

	c.Log.Info(logAction.INBOUND(fmt.Sprintf("client %s %s server", c.Req.Method, c.Req.URL.Path)), map[string]any{
		"method":  c.Req.Method,
		"url":     c.Req.URL.String(),
		"headers": c.Headers(),
		"query":   c.QueryString(),
		"body":    body,
		"remote":  c.Req.RemoteAddr,
	}, append(masking, inboundMasking...)...)
	return c.Log
}

func (c *Ctx) Headers() map[string]string {
	headers := make(map[string]string, len(c.Req.Header))
	for key, values := range c.Req.Header {
		headers[key] = strings.Join(values, ", ")
	}
	return headers
}

func (c *Ctx) QueryString() map[string]string {
	queries := make(map[string]string)
	for key, values := range c.Req.URL.Query() {
		if len(values) > 0 {
			queries[key] = values[0]
		}
	}
	return queries
}

func (c *Ctx) JSON(code int, v any, masking ...logger.MaskingRule) {
	c.write(code, v, masking...)
	c.Log.Flush(code, statusMessage(code))
}

func (c *Ctx) JSONError(code int, v any, err error) {
	c.write(code, v)
	if err != nil {
		c.Log.AddMetadata("ErrorCode", err.Error())
	}
	c.Log.FlushError(code, statusMessage(code))
}

// Error renders err as {code, message}; unclassified errors become a 500.
func (c *Ctx) Error(err error) {
	e := AsError(err)
	cause := e.Err
	if cause == nil {
		cause = e
	}
	c.JSONError(e.StatusCode, e.Json(), cause)
}

func (c *Ctx) NoContent(code int) {
	c.Res.Header().Set(string(SessionID), c.Log.SessionID())
	c.Res.WriteHeader(code)
	c.Log.Info(logAction.OUTBOUND("server response to client"), map[string]any{"status": code})
	c.Log.Flush(code, statusMessage(code))
}

func (c *Ctx) write(code int, v any, masking ...logger.MaskingRule) {
	c.Res.Header().Set("Content-Type", "application/json")
	c.Res.Header().Set(string(SessionID), c.Log.SessionID())
	c.Res.WriteHeader(code)
	_ = json.NewEncoder(c.Res).Encode(v)

	c.Log.Info(logAction.OUTBOUND("server response to client"), map[string]any{
		"status":  code,
		"headers": c.Res.Header(),
		"body":    v,
	}, append(masking, logger.MaskingRule{Field: "headers.Set-Cookie", Type: logger.MaskingTypeFull, IsArray: true})...)
}

func statusMessage(code int) string {
	msg := http.StatusText(code)
	if msg == "" {
		return "unknown_status"
	}
	return strings.ToLower(strings.ReplaceAll(msg, " ", "_"))
}
