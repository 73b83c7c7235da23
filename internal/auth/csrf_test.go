package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCSRFMiddleware_SkipsMatchingBearer(t *testing.T) {
	router := gin.New()
	router.Use(CSRFMiddleware(testSecret, false, "push-token"))
	router.POST("/api/push", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/push", nil)
	req.Header.Set("Authorization", "Bearer push-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for Bearer request, got %d", rr.Code)
	}
}

func TestCSRFMiddleware_RejectsWrongBearer(t *testing.T) {
	reached := false
	router := gin.New()
	router.Use(CSRFMiddleware(testSecret, false, "push-token"))
	router.POST("/api/push", func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/push", nil)
	req.Header.Set("Authorization", "Bearer guess")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for wrong Bearer token, got %d", rr.Code)
	}
	if reached {
		t.Error("Handler should not run after CSRF failure")
	}
}

func TestCSRFMiddleware_AllowsGET(t *testing.T) {
	router := gin.New()
	router.Use(CSRFMiddleware(testSecret, false, ""))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for GET request, got %d", rr.Code)
	}
}

func TestCSRFMiddleware_BlocksPOSTWithoutToken(t *testing.T) {
	router := gin.New()
	router.Use(CSRFMiddleware(testSecret, false, ""))
	router.POST("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for POST without CSRF token, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON error, got %s", ct)
	}
}

func TestCSRFMiddleware_SetsTokenInContext(t *testing.T) {
	var csrfToken string
	router := gin.New()
	router.Use(CSRFMiddleware(testSecret, false, ""))
	router.GET("/test", func(c *gin.Context) {
		csrfToken = GetCSRFToken(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if csrfToken == "" {
		t.Error("Expected CSRF token to be set in context")
	}
}

func TestGetCSRFToken_NoToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if token := GetCSRFToken(c); token != "" {
		t.Errorf("Expected empty token, got %s", token)
	}
}

func TestHasBearer(t *testing.T) {
	testCases := []struct {
		header   string
		apiToken string
		want     bool
	}{
		{"Bearer token", "token", true},
		{"bearer token", "token", true},
		{"BeArEr token", "token", true},
		{"Bearer other", "token", false},
		{"Basic dXNlcjpwYXNz", "token", false},
		{"", "token", false},
		{"Bearer ", "", false},
		{"Bearer token", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.header, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				c.Request.Header.Set("Authorization", tc.header)
			}

			if got := hasBearer(c, tc.apiToken); got != tc.want {
				t.Errorf("hasBearer(%q, %q) = %v, want %v", tc.header, tc.apiToken, got, tc.want)
			}
		})
	}
}
