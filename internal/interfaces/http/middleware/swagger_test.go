package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/domain/identity"
	"github.com/store/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func swaggerRouter(cfg SwaggerConfig, auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, auth), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})
	return router
}

func docsRequest(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	return req
}

func TestSwaggerProtection_Disabled(t *testing.T) {
	w := serve(swaggerRouter(SwaggerConfig{}, nil), docsRequest(""))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, shared.CodeNotFound, decodeError(t, w).Code)
}

func TestSwaggerProtection_Enabled(t *testing.T) {
	w := serve(swaggerRouter(SwaggerConfig{Enabled: true}, nil), docsRequest(""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "docs", w.Body.String())
}

func TestSwaggerProtection_AllowedIPs(t *testing.T) {
	router := swaggerRouter(SwaggerConfig{
		Enabled:    true,
		AllowedIPs: []string{"127.0.0.1", "10.0.0.0/8", "not-an-ip"},
	}, nil)

	tests := []struct {
		name       string
		remoteAddr string
		want       int
	}{
		{"exact ip", "127.0.0.1:12345", http.StatusOK},
		{"inside cidr", "10.50.100.200:12345", http.StatusOK},
		{"outside", "192.168.1.1:12345", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, docsRequest(tt.remoteAddr))
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Equal(t, shared.CodeForbidden, decodeError(t, w).Code)
			}
		})
	}
}

func TestSwaggerProtection_RequireAuth(t *testing.T) {
	svc := newTestJWTService()
	router := swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true},
		JWTAuthMiddlewareWithConfig(DefaultJWTConfig(svc)))

	w := serve(router, docsRequest(""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, shared.CodeUnauthorized, decodeError(t, w).Code)

	token, _ := issue(t, svc, "user", identity.AuthorityUser)
	w = serve(router, bearer("/swagger/index.html", token))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSwaggerProtection_IPCheckedBeforeAuth(t *testing.T) {
	called := false
	auth := func(c *gin.Context) {
		called = true
		c.Next()
	}
	router := swaggerRouter(SwaggerConfig{Enabled: true, RequireAuth: true, AllowedIPs: []string{"127.0.0.1"}}, auth)

	w := serve(router, docsRequest("192.168.1.1:12345"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, called)

	w = serve(router, docsRequest("127.0.0.1:12345"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestIsIPAllowed(t *testing.T) {
	_, tenNet, _ := net.ParseCIDR("10.0.0.0/8")
	ips := []net.IP{net.ParseIP("192.168.1.1")}
	nets := []*net.IPNet{tenNet}

	assert.True(t, isIPAllowed(net.ParseIP("192.168.1.1"), ips, nets))
	assert.True(t, isIPAllowed(net.ParseIP("10.0.0.5"), ips, nets))
	assert.False(t, isIPAllowed(net.ParseIP("192.168.1.2"), ips, nets))
	assert.False(t, isIPAllowed(net.ParseIP("11.0.0.5"), ips, nets))
	assert.False(t, isIPAllowed(nil, ips, nets))
}
