package server

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apibillme/biller/internal/broadcast"
	"github.com/apibillme/biller/internal/config"
	"github.com/apibillme/biller/internal/domain"
	"github.com/apibillme/biller/internal/store"
	"github.com/apibillme/biller/internal/websocket"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cell, err := store.Open(store.Config{
		Logger:    slog.Default(),
		Directory: t.TempDir(),
	})
	require.NoError(t, err)
	require.NoError(t, cell.Init(domain.RecordKey))
	t.Cleanup(func() { _ = cell.Close() })

	broadcaster := broadcast.NewBroadcaster(clockwork.NewRealClock())
	t.Cleanup(func() { broadcaster.Stop() })

	hub := websocket.NewHub(clockwork.NewRealClock())
	t.Cleanup(func() { hub.Stop() })

	cfg := &config.Config{AppEnv: "test", Port: "0"}
	srv := NewServer(cfg, cell, broadcaster, hub)

	ts := httptest.NewServer(srv.echo)
	t.Cleanup(func() { ts.Close() })

	return srv, ts
}

// readSSEEvent parses one text/event-stream frame from the reader.
func readSSEEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case line == "":
			return name, data
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openEventStream(t *testing.T, ts *httptest.Server) *bufio.Reader {
	t.Helper()
	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	return bufio.NewReader(resp.Body)
}

func postInsert(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/insert", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestInsert_MalformedBody(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInsert(t, ts, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInsert_MissingEvent(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInsert(t, ts, `{"data":{"user":"bob"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInsert_EchoesPayload(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInsert(t, ts, `{"event":"update","data":{"user":"bob"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload domain.Payload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "bob", payload.User)
}

func TestInsert_PersistsRecord(t *testing.T) {
	srv, ts := newTestServer(t)

	resp := postInsert(t, ts, `{"event":"update","data":{"user":"alice"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	value, err := srv.store.Get(domain.RecordKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":"alice"}`, string(value))
}

func TestEvents_SeedCarriesCurrentRecord(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postInsert(t, ts, `{"event":"update","data":{"user":"alice"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stream := openEventStream(t, ts)
	name, data := readSSEEvent(t, stream)
	assert.Equal(t, domain.RecordKey, name)
	assert.JSONEq(t, `{"user":"alice"}`, data)
}

func TestEvents_EmptySeedOnFreshRecord(t *testing.T) {
	_, ts := newTestServer(t)

	stream := openEventStream(t, ts)
	name, data := readSSEEvent(t, stream)
	assert.Equal(t, domain.RecordKey, name)
	assert.Empty(t, data)
}

func TestEvents_InsertScenario(t *testing.T) {
	srv, ts := newTestServer(t)

	// subscriber connected before the insert; reading the seed proves
	// the registration completed before the POST below
	early := openEventStream(t, ts)
	_, seed := readSSEEvent(t, early)
	assert.Empty(t, seed)
	require.True(t, waitForSubscribers(srv, 1))

	resp := postInsert(t, ts, `{"event":"update","data":{"user":"bob"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	name, data := readSSEEvent(t, early)
	assert.Equal(t, "update", name)
	assert.JSONEq(t, `{"user":"bob"}`, data)

	// subscriber connected after the insert sees the new record as seed
	late := openEventStream(t, ts)
	name, data = readSSEEvent(t, late)
	assert.Equal(t, domain.RecordKey, name)
	assert.JSONEq(t, `{"user":"bob"}`, data)
}

func TestEvents_DisconnectRemovesSubscriber(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/events")
	require.NoError(t, err)
	require.True(t, waitForSubscribers(srv, 1))

	_ = resp.Body.Close()

	require.True(t, waitForSubscribers(srv, 0), "subscriber should be removed after disconnect")
}

func TestCORS_Preflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/insert", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "3600", resp.Header.Get("Access-Control-Max-Age"))
}

func waitForSubscribers(srv *Server, expected int) bool {
	for i := 0; i < 100; i++ {
		if srv.broadcaster.Count() == expected {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
