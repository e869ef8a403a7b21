package utils

import (
	"context"

	"github.com/google/uuid"
	"github.com/mmdatafocus/regflow/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyRunMode       = appctx.ContextKeyRunMode
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

// CorrelationIdFromContextOrNew returns the correlation id carried by ctx, or a fresh uuid.
func CorrelationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if cid, ok := GetCorrelationIdFromContext(ctx); ok && cid != "" {
			return cid
		}
	}
	return uuid.NewString()
}

func GetRunModeFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRunMode)
}

func SetRunModeInContext(ctx context.Context, mode string) context.Context {
	return appctx.Set(ctx, ContextKeyRunMode, mode)
}
