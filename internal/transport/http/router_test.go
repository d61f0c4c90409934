package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sharefun/internal/clock"
	"sharefun/internal/config"
	apphttp "sharefun/internal/transport/http"
)

// ============================================================================
// Test Server
// ============================================================================

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "router-test-secret",
		SessionTTL:        time.Hour,
		MinPasswordLength: 6,
		BcryptCost:        bcrypt.MinCost,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	svcs := apphttp.NewServices(apphttp.MemoryStores(), nil, nil, clock.Real{}, cfg)
	srv := httptest.NewServer(apphttp.NewHandler(svcs, cfg))
	t.Cleanup(srv.Close)
	return srv
}

// ============================================================================
// HTTP Client Helpers
// ============================================================================

type apiClient struct {
	t       *testing.T
	baseURL string
	token   string
}

func newClient(t *testing.T, srv *httptest.Server) *apiClient {
	return &apiClient{t: t, baseURL: srv.URL}
}

func (c *apiClient) withToken(token string) *apiClient {
	return &apiClient{t: c.t, baseURL: c.baseURL, token: token}
}

func (c *apiClient) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp.StatusCode, decoded
}

func (c *apiClient) register(email string) int64 {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/auth/register", map[string]string{
		"email":     email,
		"password":  "pw123456",
		"firstName": "Test",
		"lastName":  "User",
	})
	require.Equal(c.t, http.StatusCreated, status, "register %s: %v", email, body)
	return int64(body["id"].(float64))
}

func (c *apiClient) login(email string) string {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": "pw123456",
	})
	require.Equal(c.t, http.StatusOK, status, "login %s: %v", email, body)
	return body["token"].(string)
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func idsOf(items interface{}) []int64 {
	var ids []int64
	list, _ := items.([]interface{})
	for _, item := range list {
		ids = append(ids, int64(item.(map[string]interface{})["id"].(float64)))
	}
	return ids
}

// ============================================================================
// Tests
// ============================================================================

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testConfig())
	status, body := newClient(t, srv).do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestFriendFeedFlow(t *testing.T) {
	srv := newTestServer(t, testConfig())
	anon := newClient(t, srv)

	aliceID := anon.register("alice@x.com")
	bobID := anon.register("bob@x.com")
	alice := anon.withToken(anon.login("alice@x.com"))
	bob := anon.withToken(anon.login("bob@x.com"))

	status, _ := alice.do(http.MethodPost, fmt.Sprintf("/friends/requests/%d", bobID), nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := bob.do(http.MethodGet, "/friends/requests", nil)
	require.Equal(t, http.StatusOK, status)
	requests := body["requests"].([]interface{})
	require.Len(t, requests, 1)

	status, _ = bob.do(http.MethodPost, fmt.Sprintf("/friends/requests/%d/respond", aliceID), map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, status)

	status, body = alice.do(http.MethodGet, "/friends", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []int64{bobID}, idsOf(body["users"]))

	status, body = bob.do(http.MethodPost, "/posts", map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, status)
	postID := int64(body["id"].(float64))

	status, body = alice.do(http.MethodGet, "/feed", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []int64{postID}, idsOf(body["posts"]))
	assert.Equal(t, false, body["hasMore"])

	status, _ = alice.do(http.MethodPost, "/posts/like", map[string]int64{"postId": postID})
	require.Equal(t, http.StatusOK, status)

	status, body = alice.do(http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{float64(aliceID)}, body["likedBy"])

	status, _ = alice.do(http.MethodPost, "/posts/unlike", map[string]int64{"postId": postID})
	require.Equal(t, http.StatusOK, status)

	status, body = alice.do(http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["likedBy"])

	status, body = alice.do(http.MethodGet, fmt.Sprintf("/users/%d", bobID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "friends", body["friendship"])
	assert.Equal(t, float64(1), body["postCount"])
}

func TestAuthErrors(t *testing.T) {
	srv := newTestServer(t, testConfig())
	anon := newClient(t, srv)
	anon.register("alice@x.com")

	status, body := anon.do(http.MethodPost, "/auth/register", map[string]string{
		"email": "ALICE@x.com", "password": "pw123456", "firstName": "A", "lastName": "B",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = anon.do(http.MethodPost, "/auth/register", map[string]string{
		"email": "weak@x.com", "password": "pw", "firstName": "A", "lastName": "B",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WEAK_CREDENTIAL", errorCode(body))

	status, body = anon.do(http.MethodPost, "/auth/register", map[string]string{
		"email": "empty@x.com", "password": "", "firstName": "A", "lastName": "B",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WEAK_CREDENTIAL", errorCode(body))

	status, body = anon.do(http.MethodPost, "/auth/login", map[string]string{"email": "alice@x.com", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIAL", errorCode(body))

	status, body = anon.do(http.MethodPost, "/auth/login", map[string]string{"email": "nobody@x.com", "password": "pw123456"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIAL", errorCode(body))

	status, _ = anon.do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = anon.withToken("garbage").do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_INVALID", errorCode(body))
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t, testConfig())
	anon := newClient(t, srv)
	anon.register("alice@x.com")
	token := anon.login("alice@x.com")
	alice := anon.withToken(token)

	status, body := alice.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice@x.com", body["email"])

	status, _ = alice.do(http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)

	// Repeating the logout still succeeds
	status, _ = anon.do(http.MethodPost, "/auth/logout", map[string]string{"token": token})
	assert.Equal(t, http.StatusOK, status)

	status, body = alice.do(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_INVALID", errorCode(body))

	status, _ = anon.do(http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTokenHeaderFallback(t *testing.T) {
	srv := newTestServer(t, testConfig())
	anon := newClient(t, srv)
	anon.register("alice@x.com")
	token := anon.login("alice@x.com")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/me", nil)
	require.NoError(t, err)
	req.Header.Set("token", token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForbiddenAndValidation(t *testing.T) {
	srv := newTestServer(t, testConfig())
	anon := newClient(t, srv)
	aliceID := anon.register("alice@x.com")
	anon.register("eve@x.com")
	alice := anon.withToken(anon.login("alice@x.com"))
	eve := anon.withToken(anon.login("eve@x.com"))

	status, body := alice.do(http.MethodPost, "/posts", map[string]string{"content": "mine"})
	require.Equal(t, http.StatusCreated, status)
	postID := int64(body["id"].(float64))

	status, _ = eve.do(http.MethodPost, "/posts/like", map[string]int64{"postId": postID})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = eve.do(http.MethodDelete, fmt.Sprintf("/posts/%d", postID), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = alice.do(http.MethodPost, "/posts/like", map[string]int64{"postId": 999})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = alice.do(http.MethodPost, fmt.Sprintf("/friends/requests/%d", aliceID), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SELF_REQUEST", errorCode(body))

	status, _ = alice.do(http.MethodPost, "/posts", map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = alice.do(http.MethodGet, "/feed?cursor=nonsense", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = alice.do(http.MethodDelete, fmt.Sprintf("/posts/%d", postID), nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = alice.do(http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMediaDisabled(t *testing.T) {
	srv := newTestServer(t, testConfig())
	anon := newClient(t, srv)
	anon.register("alice@x.com")
	alice := anon.withToken(anon.login("alice@x.com"))

	status, body := alice.do(http.MethodPost, "/media/posts/presign", map[string]interface{}{
		"contentType": "image/png", "fileSize": 100,
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "MEDIA_DISABLED", errorCode(body))
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimitRPS = 0.001
	cfg.AuthRateLimitBurst = 2
	srv := newTestServer(t, cfg)
	anon := newClient(t, srv)

	creds := map[string]string{"email": "nobody@x.com", "password": "pw123456"}
	for i := 0; i < 2; i++ {
		status, _ := anon.do(http.MethodPost, "/auth/login", creds)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, body := anon.do(http.MethodPost, "/auth/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", errorCode(body))
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, testConfig())
	newClient(t, srv).do(http.MethodGet, "/health", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `sharefun_http_requests_total{method="GET",route="/health",status="200"}`)
}

func TestCORSPreflight(t *testing.T) {
	const origin = "http://localhost:5173"
	cfg := testConfig()
	cfg.CORSAllowedOrigins = []string{origin}
	srv := newTestServer(t, cfg)

	preflight := func(from string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/feed", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", from)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	// answered before authentication
	resp := preflight(origin)
	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, resp.StatusCode)
	assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers")), "authorization")

	resp = preflight("https://evil.example")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", origin)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))
}
