package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berrythewa/gpsio-bridge/internal/nativemsg/nativemsgtest"
	"github.com/berrythewa/gpsio-bridge/internal/relay"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, b *Bridge, origins ...string) *httptest.Server {
	t.Helper()
	s := NewServer(b, ServerConfig{AllowedOrigins: origins, Version: "1.1.0"})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + Path
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestServerPingExtension(t *testing.T) {
	ts := startServer(t, New(nil, nil), "https://caltopo.com")

	conn, _, err := dial(t, ts, "https://caltopo.com")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"source": "page", "type": "gpsio", "cmd": "ping-extension", "id": 42,
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Reply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "42", string(reply.ID))
	assert.Equal(t, "ok", reply.Response.Status())
	assert.Equal(t, "ping-extension", reply.Response["cmd"])
}

func TestServerRejectsUnknownOrigin(t *testing.T) {
	ts := startServer(t, New(nil, nil), "https://caltopo.com")

	_, resp, err := dial(t, ts, "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServerWildcardOrigin(t *testing.T) {
	ts := startServer(t, New(nil, nil), "*")

	conn, _, err := dial(t, ts, "https://sartopo.com")
	require.NoError(t, err)
	conn.Close()
}

func TestServerOutOfOrderReplies(t *testing.T) {
	// request 1 is held by the host until request 2 has been answered
	release := make(chan struct{})
	host := nativemsgtest.NewHost(func(req map[string]interface{}) [][]byte {
		id := fmt.Sprint(req["id"])
		if id == "1" {
			<-release
		}
		return nativemsgtest.Reply(map[string]interface{}{"status": "ok", "message": "reply-" + id})
	})
	ts := startServer(t, New(relay.New(host, nil, nil), nil))

	conn, _, err := dial(t, ts, "")
	require.NoError(t, err)
	defer conn.Close()

	for _, id := range []int{1, 2} {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"source": "page", "type": "gpsio", "cmd": "import", "id": id,
		}))
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first Reply
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "2", string(first.ID))
	assert.Equal(t, "reply-2", first.Response.Message())

	close(release)
	var second Reply
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "1", string(second.ID))
	assert.Equal(t, "reply-1", second.Response.Message())

	assert.Equal(t, 2, host.Connects())
}

func TestServerConcurrentPages(t *testing.T) {
	host := nativemsgtest.NewHost(func(req map[string]interface{}) [][]byte {
		return nativemsgtest.Reply(map[string]interface{}{"status": "ok", "message": fmt.Sprint(req["id"])})
	})
	ts := startServer(t, New(relay.New(host, nil, nil), nil))

	var wg sync.WaitGroup
	for page := 0; page < 4; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			conn, _, err := dial(t, ts, "")
			if !assert.NoError(t, err) {
				return
			}
			defer conn.Close()

			assert.NoError(t, conn.WriteJSON(map[string]interface{}{
				"source": "page", "type": "gpsio", "cmd": "import", "id": page,
			}))
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			var reply Reply
			if assert.NoError(t, conn.ReadJSON(&reply)) {
				assert.Equal(t, fmt.Sprint(page), string(reply.ID))
				assert.Equal(t, string(reply.ID), reply.Response.Message())
			}
		}(page)
	}
	wg.Wait()
}

func TestServerHealth(t *testing.T) {
	ts := startServer(t, New(nil, nil))

	resp, err := http.Get(ts.URL + healthPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.1.0", body["version"])
}

func TestServerServeStopsOnCancel(t *testing.T) {
	s := NewServer(New(nil, nil), ServerConfig{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
