package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/vision-gateway/internal/models"
)

// RequireMultipart rejects uploads that are not multipart/form-data.
func RequireMultipart() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		mediaType, _, err := mime.ParseMediaType(ctx.GetHeader("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, models.APIResponse{
				Success: false,
				Error:   "request must be multipart/form-data",
			})
			return
		}

		ctx.Next()
	}
}

// LimitBody caps the request body at maxBytes.
func LimitBody(maxBytes int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes)
		ctx.Next()
	}
}
