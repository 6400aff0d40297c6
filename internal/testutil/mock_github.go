// Package testutil provides a mock GitHub notifications API for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// NotificationsPath is the listing endpoint served by MockGitHub.
const NotificationsPath = "/notifications"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock GitHub API server for testing.
//
// Notification pages registered with SetNotificationPages are served from
// NotificationsPath, chained with Link headers. Every page carries an ETag
// and answers a matching If-None-Match with 304.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	pages    [][]string
	failures map[int]MockResponse

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	RequestedPages    []int
}

// NewMockGitHub creates a new mock GitHub server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		failures: make(map[int]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()

		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		if r.URL.Path == NotificationsPath {
			mock.notificationsHandler(w, r)
			return
		}

		writeResponse(w, NewNotFoundResponse())
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.RequestedPages = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetNotificationPages configures the notification listing. Each argument is
// one page, given as the reasons of its notifications.
func (m *MockGitHub) SetNotificationPages(pages ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = pages
}

// FailPage makes the given 1-based page answer with resp instead of data.
func (m *MockGitHub) FailPage(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGitHub) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockGitHub) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastRequestHeader returns a copy of the last request's headers.
func (m *MockGitHub) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// GetRequestedPages returns the listing pages requested so far, in order.
func (m *MockGitHub) GetRequestedPages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.RequestedPages...)
}

func (m *MockGitHub) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := 1
	if p := query.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeResponse(w, MockResponse{
				StatusCode: http.StatusUnprocessableEntity,
				Body:       `{"message":"Invalid page"}`,
			})
			return
		}
		page = n
	}

	m.mu.Lock()
	m.RequestedPages = append(m.RequestedPages, page)
	failure, failed := m.failures[page]
	pages := m.pages
	m.mu.Unlock()

	if failed {
		writeResponse(w, failure)
		return
	}

	var reasons []string
	if page <= len(pages) {
		reasons = pages[page-1]
	}

	setRateLimitHeaders(w.Header(), 4999)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=60, s-maxage=60")

	if page < len(pages) {
		query.Set("page", strconv.Itoa(page+1))
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?%s>; rel="next", <%s%s?page=%d>; rel="last"`,
			m.server.URL, NotificationsPath, query.Encode(), m.server.URL, NotificationsPath, len(pages)))
	}

	etag := fmt.Sprintf(`W/"page-%d-%d"`, page, len(reasons))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(NotificationsBody(reasons...)))
}

// NotificationsBody renders a JSON notification array with one entry per
// reason.
func NotificationsBody(reasons ...string) string {
	type subject struct {
		Title string `json:"title"`
		Type  string `json:"type"`
	}
	type repository struct {
		FullName string `json:"full_name"`
	}
	type notification struct {
		ID         string     `json:"id"`
		Reason     string     `json:"reason"`
		Unread     bool       `json:"unread"`
		UpdatedAt  string     `json:"updated_at"`
		Subject    subject    `json:"subject"`
		Repository repository `json:"repository"`
	}

	items := make([]notification, 0, len(reasons))
	for i, reason := range reasons {
		items = append(items, notification{
			ID:         strconv.Itoa(i + 1),
			Reason:     reason,
			Unread:     true,
			UpdatedAt:  "2024-01-01T00:00:00Z",
			Subject:    subject{Title: fmt.Sprintf("Notification %d", i+1), Type: "Issue"},
			Repository: repository{FullName: "octocat/hello-world"},
		})
	}

	data, err := json.Marshal(items)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// NewUnauthorizedResponse creates a 401 response as sent for a bad token.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"message":"Bad credentials","documentation_url":"https://docs.github.com/rest"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 403 response for an exhausted rate limit
// window ending at reset.
func NewRateLimitResponse(reset time.Time) MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"API rate limit exceeded","documentation_url":"https://docs.github.com/rest/overview/resources-in-the-rest-api#rate-limiting"}`,
		Headers: map[string]string{
			"Content-Type":          "application/json; charset=utf-8",
			"X-RateLimit-Limit":     "5000",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(reset.Unix(), 10),
		},
	}
}

// NewServerErrorResponse creates a 502 response with a non-JSON body.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       "<html>Bad Gateway</html>",
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}

func setRateLimitHeaders(h http.Header, remaining int) {
	h.Set("X-RateLimit-Limit", "5000")
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
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
}
