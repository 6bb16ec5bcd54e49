package keycache

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/logger"
	"github.com/sing3demons/authgateway/pkg/mlog"
)

// Source returns the raw JWKS document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Location() string
}

type HTTPSource struct {
	url    string
	client *resty.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url: url,
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (s *HTTPSource) Location() string {
	return s.url
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	log := mlog.L(ctx)
	log.Debug(logAction.HTTP_REQUEST(http.MethodGet, "fetch signing keys"), map[string]any{"url": s.url})

	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		log.SetDependencyMetadata(logger.DependencyMetadata{
			Dependency: "jwks",
			ResultCode: "error",
			ResultFlag: "fail",
		}).Error(logAction.HTTP_RESPONSE(http.MethodGet, "fetch signing keys"), err.Error())
		return nil, err
	}

	log.SetDependencyMetadata(logger.DependencyMetadata{
		Dependency:   "jwks",
		ResponseTime: resp.Time().Milliseconds(),
		ResultCode:   fmt.Sprint(resp.StatusCode()),
	}).Debug(logAction.HTTP_RESPONSE(http.MethodGet, "fetch signing keys"), map[string]any{
		"status": resp.StatusCode(),
		"bytes":  len(resp.Body()),
	})

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}
