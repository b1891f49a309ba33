package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/infrastructure/telemetry"
)

// Profiling labels CPU and allocation samples of API requests with the
// resource and the HTTP method, e.g. entity=products operation=GET.
// Requests outside /api are not labeled.
func Profiling(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource := resourceFromRoute(c.FullPath())
		if !enabled || resource == "" {
			c.Next()
			return
		}
		telemetry.ProfileOperation(c.Request.Context(), resource, c.Request.Method, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceFromRoute returns the resource segment of an /api route pattern:
// "/api/products/:id" -> "products", "/api/_search/invoices" -> "invoices".
func resourceFromRoute(route string) string {
	rest, ok := strings.CutPrefix(route, "/api/")
	if !ok {
		return ""
	}
	segments := strings.Split(rest, "/")
	for _, s := range segments {
		if s == "" || strings.HasPrefix(s, ":") || strings.HasPrefix(s, "_") {
			continue
		}
		return s
	}
	return ""
}
