package mlog

import (
	"context"

	"github.com/sing3demons/authgateway/pkg/logger"
)

// L returns the request scoped logger, or a detached default one so callers
// outside a request (startup, background work) can still log.
func L(ctx context.Context) logger.ILogger {
	if l := logger.GetLogger(ctx); l != nil {
		return l
	}
	return logger.NewLogger("", "")
}
