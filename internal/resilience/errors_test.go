package resilience

import (
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: lookup timed out" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit transient", NewTransientError(errors.New("throttled by liveheats"), 429), true},
		{"transient inside eris wrap", eris.Wrap(NewTransientError(errors.New("truncated body"), 0), "liveheats: decode response"), true},
		{"network timeout", timeoutErr{}, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused wrapped", eris.Wrap(syscall.ECONNREFUSED, "pwa: fetch page"), true},
		{"client-side string match", errors.New("read tcp: connection reset by peer"), true},
		{"dns string match", errors.New("dial tcp: no such host"), true},
		{"graphql error is permanent", errors.New("liveheats: graphql: Division not found"), false},
		{"parse error is permanent", errors.New("pwa: no athlete name on profile 791"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("bad gateway")
	te := NewTransientError(inner, 502)

	assert.ErrorIs(t, te, inner)
	assert.Equal(t, 502, te.StatusCode)
	assert.Equal(t, "bad gateway", te.Error())
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
