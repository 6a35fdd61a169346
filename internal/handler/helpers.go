package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/middleware"
	"github.com/xxxsen/adocstore/internal/pkg/errcode"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
	"github.com/xxxsen/adocstore/internal/pkg/response"
)

func getTenantID(c *gin.Context) int64 {
	id, _ := middleware.TenantID(c)
	return id
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int64("tenant_id", getTenantID(c)),
	)
	switch {
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrInvalid):
		code := errcode.ErrInvalid
		if appErr.FieldOf(err) == "title" {
			code = errcode.ErrMissingTitle
		}
		response.Error(c, http.StatusBadRequest, code, reasonOr(err, "invalid request"))
	case errors.Is(err, appErr.ErrConflict):
		// duplicates are a client error like any other bad upload
		response.Error(c, http.StatusBadRequest, errcode.ErrDuplicateTitle, reasonOr(err, "duplicate title"))
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, reasonOr(err, "not found"))
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request timed out", zap.Error(err))
		response.Error(c, http.StatusGatewayTimeout, errcode.ErrInternal, "request timed out")
	case errors.Is(err, appErr.ErrStorage):
		logger.Error("storage failure", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, errcode.ErrStorage, "internal error")
	default:
		logger.Error("request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}

func reasonOr(err error, fallback string) string {
	if reason := appErr.ReasonOf(err); reason != "" {
		return reason
	}
	return fallback
}
