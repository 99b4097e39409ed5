package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/records/internal/logging"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "no trusted proxies keeps remote",
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "10.0.0.1:1234",
		},
		{
			name:    "trusted cidr uses X-Real-IP",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "1.2.3.4",
		},
		{
			name:    "trusted single ip uses first forwarded entry",
			trusted: []string{"127.0.0.1"},
			remote:  "127.0.0.1:5555",
			headers: map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.2"},
			want:    "5.6.7.8",
		},
		{
			name:    "untrusted peer ignores headers",
			trusted: []string{"10.0.0.0/8"},
			remote:  "192.168.1.1:80",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "192.168.1.1:80",
		},
		{
			name:    "invalid header value is ignored",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.0.0.1:1234",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			want:    "10.0.0.1:1234",
		},
		{
			name:    "invalid trusted entry is skipped",
			trusted: []string{"bogus", " 10.0.0.0/8 "},
			remote:  "10.1.2.3:1",
			headers: map[string]string{"X-Real-IP": "2001:db8::1"},
			want:    "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			require.Equal(t, tt.want, got)
		})
	}
}

func TestLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logging.SetupWriter(&buf, "info", "json")

	h := chimw.RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pot", nil))
	_ = logging.Sync()

	out := buf.String()
	require.True(t, strings.Contains(out, `"msg":"request"`), out)
	require.Contains(t, out, `"status":418`)
	require.Contains(t, out, `"path":"/pot"`)
	require.Contains(t, out, `"bytes":15`)
	require.Contains(t, out, `"request_id"`)
}
