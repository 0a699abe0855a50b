// Package testutil provides testing utilities for the blackhole batch engine.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockResponse defines the behavior for a mock portal endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// PortalRequest records one request the mock portal received.
type PortalRequest struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
}

// MockPortal is a configurable mock blackhole portal for testing. Paths
// without a custom handler answer like the real portal: a banner table plus
// an empty result set.
type MockPortal struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	requests []PortalRequest
}

// NewMockPortal creates a new mock portal server.
func NewMockPortal() *MockPortal {
	mock := &MockPortal{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		mock.mu.Lock()
		mock.requests = append(mock.requests, PortalRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Form:   r.PostForm,
		})
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockPortal) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPortal) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockPortal) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPortal) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockPortal) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetFailureSequence makes a path answer with the given statuses in order,
// then succeed with body for every request after the sequence is exhausted.
func (m *MockPortal) SetFailureSequence(path string, statuses []int, body string) {
	var n atomic.Int32
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		i := int(n.Add(1)) - 1
		if i < len(statuses) {
			w.WriteHeader(statuses[i])
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

// Requests returns a copy of every recorded request.
func (m *MockPortal) Requests() []PortalRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]PortalRequest(nil), m.requests...)
}

// RequestCount returns the number of requests made to the server.
func (m *MockPortal) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// RequestsFor returns the recorded requests for one path.
func (m *MockPortal) RequestsFor(path string) []PortalRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []PortalRequest
	for _, req := range m.requests {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

// defaultHandler answers like the portal's search page with no matches.
func (m *MockPortal) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ResultTable(nil)))
}

// ResultTable renders a portal-style result page: a login banner row, a
// header row and one data row per record. Each record is a cell list in
// ID/IP/status/description order.
func ResultTable(records [][]string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>\n")
	b.WriteString("<tr><td>Logged in as testuser</td></tr>\n")
	b.WriteString("<tr><th>ID</th><th>IP Address</th><th>Status</th><th>Description</th></tr>\n")
	for _, rec := range records {
		b.WriteString("<tr>")
		for _, cell := range rec {
			fmt.Fprintf(&b, "<td>%s</td>", cell)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

// CreatedResponse is the body the portal returns after a successful create.
func CreatedResponse(ip string) string {
	return fmt.Sprintf("<html><body>Blackhole successfully created for %s</body></html>", ip)
}
