package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/pkg/errcode"
	appErr "github.com/xxxsen/adocstore/internal/pkg/errors"
	"github.com/xxxsen/adocstore/internal/pkg/response"
	"github.com/xxxsen/adocstore/internal/tenant"
)

const (
	ContextTenantIDKey    = "tenant_id"
	ContextTenantEmailKey = "tenant_email"

	APIKeyQuery  = "apikey"
	APIKeyHeader = "X-API-Key"
)

// APIKeyAuth resolves the caller from the apikey query parameter, falling
// back to the X-API-Key header.
func APIKeyAuth(resolver tenant.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.Query(APIKeyQuery))
		if key == "" {
			key = strings.TrimSpace(c.GetHeader(APIKeyHeader))
		}
		t, err := resolver.ResolveAPIKey(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, appErr.ErrForbidden) {
				response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "invalid api key")
				return
			}
			logutil.GetLogger(c.Request.Context()).Error("resolve api key failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
			return
		}
		c.Set(ContextTenantIDKey, t.ID)
		c.Set(ContextTenantEmailKey, t.Email)
		c.Next()
	}
}

// TenantID returns the id stored by APIKeyAuth.
func TenantID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextTenantIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}
