package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{name: "forwarded chain keeps first hop", remoteAddr: "10.0.0.1:4321", forwarded: "203.0.113.7, 10.0.0.1", want: "203.0.113.7"},
		{name: "real ip fallback", remoteAddr: "10.0.0.1:4321", realIP: "198.51.100.2", want: "198.51.100.2"},
		{name: "remote addr strips port", remoteAddr: "192.0.2.9:5050", want: "192.0.2.9"},
		{name: "remote addr without port", remoteAddr: "192.0.2.9", want: "192.0.2.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := ClientIP(req); got != tc.want {
				t.Fatalf("ClientIP() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClientIPNilRequest(t *testing.T) {
	if got := ClientIP(nil); got != "" {
		t.Fatalf("expected empty string for nil request, got %q", got)
	}
}
