package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"testing"
	"time"
)

// apiURL returns the base URL of the api service under test.
func apiURL() string {
	if v := os.Getenv("ITIP_API_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

// webURL returns the base URL of the web service under test.
func webURL() string {
	if v := os.Getenv("ITIP_WEB_URL"); v != "" {
		return v
	}
	return "http://localhost:3000"
}

// uniqueEmail generates a unique email address to avoid test collisions.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@test.example.com", prefix, time.Now().UnixNano(), rand.Intn(100000))
}

// skipIfNotRunning performs a quick health check against a service.
// If the service is unreachable, the test is skipped (not failed).
func skipIfNotRunning(t *testing.T, base string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(base + "/health/live")
	if err != nil {
		t.Skipf("service at %s not reachable (Docker not running?): %v", base, err)
	}
	resp.Body.Close()
}

// postAction sends an action to the api's single endpoint. The action name is
// merged into the JSON body; the token, when present, goes into X-Auth-Token.
func postAction(t *testing.T, token, action string, payload map[string]any) (int, map[string]any) {
	t.Helper()

	body := map[string]any{"action": action}
	for k, v := range payload {
		body[k] = v
	}
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshalling action %s failed: %v", action, err)
	}

	req, err := http.NewRequest(http.MethodPost, apiURL()+"/api/v1/action", bytes.NewReader(jsonBytes))
	if err != nil {
		t.Fatalf("creating request for action %s failed: %v", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Auth-Token", token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("action %s failed: %v", action, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

// newBrowser returns an HTTP client with a cookie jar, mimicking a browser
// session against the web tier.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating cookie jar failed: %v", err)
	}
	return &http.Client{
		Timeout: 10 * time.Second,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// browserGet performs a GET through the browser client and returns the status
// code, Location header (for redirects) and decoded body.
func browserGet(t *testing.T, browser *http.Client, path string) (int, string, map[string]any) {
	t.Helper()
	resp, err := browser.Get(webURL() + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Location"), decodeBody(t, resp.Body)
}

// browserPost performs a JSON POST through the browser client.
func browserPost(t *testing.T, browser *http.Client, path string, body any) (int, string, map[string]any) {
	t.Helper()
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshalling body for %s failed: %v", path, err)
	}
	resp, err := browser.Post(webURL()+path, "application/json", bytes.NewReader(jsonBytes))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Location"), decodeBody(t, resp.Body)
}

// decodeBody reads the response body and attempts to decode it as JSON.
// If the body is empty or not JSON, it returns an empty map.
func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading response body failed: %v", err)
	}
	if len(raw) == 0 {
		return map[string]any{}
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		// Not JSON; return the raw string in a "raw" key for debugging.
		return map[string]any{"raw": string(raw)}
	}
	return result
}

// requireStatus asserts that the HTTP status code matches the expected value.
func requireStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("expected status %d, got %d", want, got)
	}
}

// extractField extracts a value from a nested map using a dot-separated path.
// For example, extractField(data, "data.account.id") navigates
// data["data"]["account"]["id"].
func extractField(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// extractString is a convenience wrapper around extractField that returns a string.
func extractString(t *testing.T, data map[string]any, path string) string {
	t.Helper()
	val := extractField(data, path)
	if val == nil {
		t.Fatalf("expected string at path %q, got nil", path)
	}
	s, ok := val.(string)
	if !ok {
		t.Fatalf("expected string at path %q, got %T: %v", path, val, val)
	}
	return s
}

// extractFloat is a convenience wrapper that returns a float64.
func extractFloat(t *testing.T, data map[string]any, path string) float64 {
	t.Helper()
	val := extractField(data, path)
	if val == nil {
		t.Fatalf("expected number at path %q, got nil", path)
	}
	f, ok := val.(float64)
	if !ok {
		t.Fatalf("expected float64 at path %q, got %T: %v", path, val, val)
	}
	return f
}
