package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/handler"
	"github.com/GTDGit/gtd_backoffice/internal/middleware"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

type rejectAll struct{}

func (rejectAll) Authenticate(context.Context, string) (*models.AdminIdentity, error) {
	return nil, utils.ErrInvalidToken
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ok := handler.PingFunc(func(context.Context) error { return nil })
	handlers := &Handlers{
		Health:       handler.NewHealthHandler(ok, nil),
		Auth:         handler.NewAuthHandler(nil),
		Product:      handler.NewProductHandler(nil),
		ProductImage: handler.NewProductImageHandler(nil),
		Employee:     handler.NewEmployeeHandler(nil),
		Sale:         handler.NewSaleHandler(nil),
	}
	router := gin.New()
	require.NotPanics(t, func() {
		setupRoutes(router, handlers, middleware.NewAdminAuthMiddleware(rejectAll{}, nil))
	})
	return router
}

func TestSetupRoutes_ProtectedRequireToken(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/admin/me"},
		{http.MethodGet, "/admin/products"},
		{http.MethodGet, "/admin/products/low-stock"},
		{http.MethodPost, "/admin/products/1/images"},
		{http.MethodDelete, "/admin/products/1/images/multiple"},
		{http.MethodPut, "/admin/products/1/images/2/set-primary"},
		{http.MethodGet, "/admin/employees"},
		{http.MethodPost, "/admin/sales/1/cancel"},
		{http.MethodGet, "/admin/dashboard"},
	}
	for _, p := range paths {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
}

func TestSetupRoutes_PublicEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/check-auth", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
