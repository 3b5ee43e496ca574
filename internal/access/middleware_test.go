package access

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func identityInjector(id Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func TestRequireAnyRole_ServiceBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", identityInjector(Identity{Role: RoleService}), RequireAnyRole(RoleUser), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAnyRole_DeniesUnlistedRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", identityInjector(Identity{UserID: "u", Role: RoleUser}), RequireAnyRole(RoleService), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireAnyRole_MissingIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", RequireAnyRole(RoleUser), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestIdentityCanSee(t *testing.T) {
	owner := Identity{UserID: "u1", Role: RoleUser}
	if !owner.CanSee("u1") {
		t.Fatalf("owner must see own record")
	}
	if owner.CanSee("u2") {
		t.Fatalf("non-owner must not see foreign record")
	}
	if owner.CanSee("") {
		t.Fatalf("ownerless records are service-only")
	}
	if !ServiceIdentity().CanSee("") || !ServiceIdentity().CanSee("u2") {
		t.Fatalf("service identity must see everything")
	}
}
