package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealClientIP(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:41000"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "10.0.0.5", RealClientIP(r, false))
	assert.Equal(t, "203.0.113.7", RealClientIP(r, true))

	r.Header.Set("X-Forwarded-For", "garbage")
	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", RealClientIP(r, true))

	r.RemoteAddr = "unix-socket"
	r.Header.Del("X-Real-IP")
	assert.Equal(t, "unix-socket", RealClientIP(r, true))
}
