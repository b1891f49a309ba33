package router

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/store/backend/docs"
	"github.com/store/backend/internal/infrastructure/auth"
	"github.com/store/backend/internal/infrastructure/config"
	"github.com/store/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(swagger middleware.SwaggerConfig) *gin.Engine {
	tokens := auth.NewJWTService(config.JWTConfig{
		Secret: "router-test-secret-at-least-32-chars",
		Issuer: "store-test",
	})
	return NewEngine(EngineConfig{
		JWT:     middleware.DefaultJWTConfig(tokens),
		Swagger: swagger,
	}, Handlers{})
}

func TestNewEngine_ServesAPIDocs(t *testing.T) {
	engine := testEngine(middleware.SwaggerConfig{Enabled: true})

	w := serve(engine, http.MethodGet, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "Store Backend API", doc.Info.Title)
	for path, method := range map[string]string{
		"/api/{entities}":          "post",
		"/api/{entities}/{id}":     "delete",
		"/api/_search/{entities}":  "get",
		"/api/authenticate":        "post",
		"/api/products/{id}/image": "put",
		"/api/admin/reindex":       "post",
		"/health":                  "get",
	} {
		assert.Contains(t, doc.Paths[path], method, path)
	}

	w = serve(engine, http.MethodGet, "/swagger/index.html")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewEngine_APIDocsProtection(t *testing.T) {
	w := serve(testEngine(middleware.SwaggerConfig{}), http.MethodGet, "/swagger/doc.json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(testEngine(middleware.SwaggerConfig{Enabled: true, RequireAuth: true}), http.MethodGet, "/swagger/doc.json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
