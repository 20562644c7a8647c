package http

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ValentinKolb/mkv/rpc/common"
)

// newTestServer starts a http server transport that echoes the collection and the request
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	tr := NewHttpServerTransport().(*httpServerTransport)
	tr.RegisterHandler(func(collection string, req []byte) []byte {
		return []byte(collection + ":" + string(req))
	})
	tr.RegisterMetrics(func(w io.Writer) {
		fmt.Fprintln(w, "mkv_test_total 1")
	})

	srv := httptest.NewServer(tr.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestHttpRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	client := NewHttpClientTransport()
	if err := client.Connect(common.ClientConfig{
		TimeoutSecond: 2,
		Transport:     common.ClientTransportConfig{Endpoints: []string{srv.URL}},
	}); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	resp, err := client.Send("users", []byte("ping"))
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if string(resp) != "users:ping" {
		t.Errorf("Expected 'users:ping', got %q", resp)
	}
}

func TestHttpEndpointWithoutScheme(t *testing.T) {
	srv := newTestServer(t)

	client := NewHttpClientTransport()
	if err := client.Connect(common.ClientConfig{
		Transport: common.ClientTransportConfig{Endpoints: []string{strings.TrimPrefix(srv.URL, "http://")}},
	}); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	if _, err := client.Send("users", []byte("ping")); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestHttpRetriesNextEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// the first endpoint refuses, the retry goes to the second
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	client := NewHttpClientTransport()
	if err := client.Connect(common.ClientConfig{
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{dead.URL, srv.URL},
			RetryCount: 2,
		},
	}); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	for i := 0; i < 4; i++ {
		if _, err := client.Send("users", []byte("ping")); err != nil {
			t.Errorf("Request %d: expected no error, got %v", i, err)
		}
	}
}

func TestHttpErrors(t *testing.T) {
	srv := newTestServer(t)

	client := NewHttpClientTransport()
	if _, err := client.Send("users", nil); err == nil {
		t.Errorf("Expected error for unconnected transport")
	}
	if err := client.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Expected error without endpoints")
	}

	// GET on a collection is not routed
	resp, err := http.Get(srv.URL + "/users")
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", resp.StatusCode)
	}
}

func TestHttpMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "mkv_test_total 1") {
		t.Errorf("Expected metrics in body, got %q", body)
	}
}
