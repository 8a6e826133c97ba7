package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	RequestID(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/expenses", nil))

	if seenID == "" {
		t.Error("request ID should be available in the handler context")
	}
	if got := w.Header().Get("X-Request-ID"); got != seenID {
		t.Errorf("X-Request-ID header = %q, want %q", got, seenID)
	}
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestRequestIDFromContextOutsideRequest(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("request ID = %q, want empty", got)
	}
}
