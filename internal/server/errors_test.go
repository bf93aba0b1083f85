package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/registra/internal/domain"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrAlreadyExists, http.StatusConflict, "conflict"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrInvalidState, http.StatusBadRequest, "invalid_request"},
		{domain.ErrBusinessRuleViolation, http.StatusBadRequest, "invalid_request"},
		{domain.ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		status, payload := mapError(tc.err)
		if status != tc.status {
			t.Errorf("mapError(%v) status = %d, want %d", tc.err, status, tc.status)
		}
		if payload.Type != tc.typ {
			t.Errorf("mapError(%v) type = %q, want %q", tc.err, payload.Type, tc.typ)
		}
	}
}

func TestMapErrorWrapped(t *testing.T) {
	wrapped := fmt.Errorf("removing member: %w", domain.ErrBusinessRuleViolation)

	status, payload := mapError(wrapped)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
	if payload.Message != wrapped.Error() {
		t.Fatalf("message = %q, want the wrapped error text", payload.Message)
	}
}

func TestMapErrorValidation(t *testing.T) {
	err := newValidationError("orgId", "invalid_id", "malformed identifier")

	status, payload := mapError(err)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
	if len(payload.Errors) != 1 || payload.Errors[0].Field != "orgId" {
		t.Fatalf("unexpected validation payload: %+v", payload.Errors)
	}
}

func TestErrorHandlingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	r.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, domain.ErrNotFound)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc", "abc"},
		{"Basic dXNlcg==", ""},
		{"Bearer", ""},
	}

	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(c); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
