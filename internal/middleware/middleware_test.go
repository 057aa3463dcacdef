package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIdentifier(t *testing.T) {
	var got string
	h := func(trust bool) http.Handler {
		return ClientIdentifier(trust)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetClientIP(r.Context())
		}))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	h(false).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.1.2.3", got)

	h(true).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.7", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	h(true).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "2001:db8::1", got)

	assert.Equal(t, "unknown", GetClientIP(context.Background()))
}

func TestActor(t *testing.T) {
	assert.Equal(t, SystemActor, GetActor(context.Background()))
	assert.Equal(t, "ana@example.com", GetActor(WithActor(context.Background(), "ana@example.com")))
	assert.Equal(t, SystemActor, GetActor(WithActor(context.Background(), "")))
}
