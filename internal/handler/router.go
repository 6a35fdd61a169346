package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/adocstore/internal/middleware"
	"github.com/xxxsen/adocstore/internal/tenant"
)

type RouterDeps struct {
	Documents *DocumentHandler
	Resolver  tenant.Resolver
	// UploadLimiter runs after authentication on uploads only; nil disables it.
	UploadLimiter gin.HandlerFunc
	Metrics       http.Handler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	authGroup := api.Group("")
	authGroup.Use(middleware.APIKeyAuth(deps.Resolver))
	upload := []gin.HandlerFunc{}
	if deps.UploadLimiter != nil {
		upload = append(upload, deps.UploadLimiter)
	}
	authGroup.POST("/asciidocs", append(upload, deps.Documents.Upload)...)
	authGroup.GET("/asciidocs", deps.Documents.List)
	// titles may contain '/', so the rest of the path is the title
	authGroup.GET("/asciidocs/*title", deps.Documents.Get)
}
