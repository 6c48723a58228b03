package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ArowuTest/rifa-backend/internal/models"
	"github.com/ArowuTest/rifa-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://rifa.example.com"}))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "https://rifa.example.com", wantStatus: http.StatusOK, wantAllow: "https://rifa.example.com"},
		{name: "unknown origin", method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "https://rifa.example.com", wantStatus: http.StatusNoContent, wantAllow: "https://rifa.example.com"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/ping", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != tt.wantStatus {
			t.Fatalf("%s: expected %d, got %d", tt.name, tt.wantStatus, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
			t.Fatalf("%s: expected allow origin %q, got %q", tt.name, tt.wantAllow, got)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("expected request id echoed, got %q", rec.Header().Get("X-Request-ID"))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	tokens := jwt.NewTokenService("secret", time.Hour, "rifa-test")
	adminID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	adminToken, _ := tokens.Generate(adminID.Hex(), "admin@example.com", string(models.RoleAdmin))
	userToken, _ := tokens.Generate(userID.Hex(), "user@example.com", string(models.RoleUser))
	expired := jwt.NewTokenService("secret", -time.Minute, "rifa-test")
	expiredToken, _ := expired.Generate(userID.Hex(), "user@example.com", string(models.RoleUser))

	router := gin.New()
	router.GET("/me", JWTAuthMiddleware(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, GetActor(c).UserID.Hex())
	})
	router.GET("/admin", JWTAuthMiddleware(tokens), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/optional", OptionalAuth(tokens), func(c *gin.Context) {
		if GetActor(c).Authenticated() {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing header", path: "/me", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/me", header: "Token " + userToken, wantStatus: http.StatusUnauthorized},
		{name: "garbage", path: "/me", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "expired", path: "/me", header: "Bearer " + expiredToken, wantStatus: http.StatusUnauthorized, wantBody: "Token has expired"},
		{name: "valid", path: "/me", header: "Bearer " + userToken, wantStatus: http.StatusOK, wantBody: userID.Hex()},
		{name: "user on admin route", path: "/admin", header: "Bearer " + userToken, wantStatus: http.StatusForbidden},
		{name: "admin on admin route", path: "/admin", header: "Bearer " + adminToken, wantStatus: http.StatusOK},
		{name: "optional anonymous", path: "/optional", wantStatus: http.StatusOK, wantBody: "anonymous"},
		{name: "optional with token", path: "/optional", header: "Bearer " + userToken, wantStatus: http.StatusOK, wantBody: "user"},
		{name: "optional with bad token", path: "/optional", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tt.wantStatus {
			t.Fatalf("%s: expected %d, got %d (%s)", tt.name, tt.wantStatus, rec.Code, rec.Body.String())
		}
		if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
			t.Fatalf("%s: expected body to contain %q, got %q", tt.name, tt.wantBody, rec.Body.String())
		}
	}
}
