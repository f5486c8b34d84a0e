package controllers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openStream connects to the event stream of a live test server and returns its lines
func openStream(t *testing.T, env *apiEnv, url string, header http.Header) (<-chan string, *http.Response) {
	t.Helper()
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines, resp
}

func waitForLine(t *testing.T, lines <-chan string, prefix string) string {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed before %q", prefix)
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-timeout:
			t.Fatalf("no line starting with %q", prefix)
		}
	}
}

func TestEventStream(t *testing.T) {
	env := newAPIEnv(t)
	header := http.Header{"Authorization": {"Bearer " + env.token(models.RoleMaintenance)}}

	lines, resp := openStream(t, env, "/api/v1/events", header)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	waitForLine(t, lines, "event: connected")
	require.Eventually(t, func() bool { return env.svc.Hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	env.seedWorkOrder(false)

	waitForLine(t, lines, "event: work_order.changed")
	data := waitForLine(t, lines, "data: ")
	assert.Contains(t, data, `"action":"created"`)

	resp.Body.Close()
	require.Eventually(t, func() bool { return env.svc.Hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond,
		"the client is unregistered once it disconnects")
}

func TestEventStreamAcceptsQueryToken(t *testing.T) {
	env := newAPIEnv(t)

	lines, resp := openStream(t, env, "/api/v1/events?access_token="+env.token(models.RoleUser), nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	waitForLine(t, lines, "event: connected")
}

func TestEventStreamRequiresToken(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/api/v1/events", nil, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
