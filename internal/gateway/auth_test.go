package gateway

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/soyeahso/mrbooky/internal/config"
)

func TestResolveAuth(t *testing.T) {
	auth := ResolveAuth(config.GatewayConfig{APIKeys: []string{" k1 ", "", "k2", "k1"}})
	assert.Equal(t, []string{"k1", "k2"}, auth.Keys)
	assert.True(t, auth.Enabled())

	assert.False(t, ResolveAuth(config.GatewayConfig{}).Enabled())
}

func TestAuthorize(t *testing.T) {
	auth := ResolvedAuth{Keys: []string{"k1", "k2"}}

	tests := []struct {
		name   string
		auth   ResolvedAuth
		key    string
		ok     bool
		method string
		reason string
	}{
		{"open gateway", ResolvedAuth{}, "", true, "none", ""},
		{"first key", auth, "k1", true, "api_key", ""},
		{"second key", auth, "k2", true, "api_key", ""},
		{"missing key", auth, "", false, "", "api key required"},
		{"wrong key", auth, "k3", false, "", "invalid api key"},
		{"prefix of key", auth, "k", false, "", "invalid api key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Authorize(tt.auth, tt.key)
			assert.Equal(t, tt.ok, res.OK)
			assert.Equal(t, tt.method, res.Method)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestCredentialFrom(t *testing.T) {
	req := httptest.NewRequest("POST", "/chat", nil)
	req.Header.Set("X-API-Key", "from-header")
	req.Header.Set("Authorization", "Bearer from-bearer")
	assert.Equal(t, "from-header", credentialFrom(req))

	req = httptest.NewRequest("POST", "/chat", nil)
	req.Header.Set("Authorization", "bearer from-bearer")
	assert.Equal(t, "from-bearer", credentialFrom(req))

	req = httptest.NewRequest("POST", "/chat", nil)
	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, credentialFrom(req))

	req = httptest.NewRequest("POST", "/chat?api_key=q", nil)
	assert.Empty(t, credentialFrom(req), "query keys only count for websocket upgrades")

	req = httptest.NewRequest("GET", "/ws?api_key=q", nil)
	assert.Equal(t, "q", credentialFrom(req))
}

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("secret", "secret"))
	assert.False(t, safeEqual("secret", "secreT"))
	assert.False(t, safeEqual("secret", "secret-longer"))
	assert.True(t, safeEqual("", ""))
}

func TestAuthFailuresBlockAndExpire(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	f := newAuthFailures()
	f.now = func() time.Time { return now }

	for i := 0; i < authFailMax-1; i++ {
		f.record("10.0.0.1:5555")
	}
	assert.False(t, f.blocked("10.0.0.1:6666"))

	f.record("10.0.0.1:7777")
	assert.True(t, f.blocked("10.0.0.1:1"), "failures are tracked per host, not per port")
	assert.False(t, f.blocked("10.0.0.2:1"))

	now = now.Add(authFailWindow + time.Second)
	assert.False(t, f.blocked("10.0.0.1:1"))
	f.sweep()
	assert.Empty(t, f.failures)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "10.0.0.1", hostOf("10.0.0.1:80"))
	assert.Equal(t, "::1", hostOf("[::1]:80"))
	assert.Equal(t, "pipe", hostOf("pipe"))
}
