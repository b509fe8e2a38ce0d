package provider

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kursadbilgin/notify-dispatch/internal/config"
)

type recordingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newRecordingServer(t *testing.T, handler http.HandlerFunc) *recordingServer {
	t.Helper()

	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

// closedServerURL returns a URL nothing listens on.
func closedServerURL(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

func resolverFor(values map[string]string) *config.Resolver {
	return config.NewResolver(config.MapSource(values))
}
