package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eljam3239/flutter-epson/internal/bridge"
	"github.com/eljam3239/flutter-epson/internal/discovery"
)

// staticTransport announces its devices on start.
type staticTransport struct {
	devices []discovery.Announcement
}

func (t *staticTransport) Start(_ context.Context, _ discovery.Filter, l discovery.Listener) error {
	for _, a := range t.devices {
		l.OnDiscovered(a)
	}
	return nil
}

func (t *staticTransport) Stop() error { return nil }

func newTestServer(t *testing.T, window time.Duration) (*Server, *httptest.Server) {
	t.Helper()
	tr := &staticTransport{devices: []discovery.Announcement{
		{IPAddress: "192.168.1.20", DeviceName: "TM-m30III"},
	}}
	d := bridge.NewDispatcher(discovery.NewEngine(tr), bridge.Options{
		Window: window,
		State:  &bridge.ConnectionState{},
	})
	srv, err := New(&Config{Host: "127.0.0.1"}, d)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + DefaultPath
}

func dial(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, wsURL(ts))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestServer_Commands(t *testing.T) {
	_, ts := newTestServer(t, 20*time.Millisecond)
	c := dial(t, ts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tests := []struct {
		method     string
		wantStatus string
		wantResult string
		wantCode   string
	}{
		{"discoverPrinters", "success", `["TCP:192.168.1.20:TM-m30III"]`, ""},
		{"discoverUsbPrinters", "success", `[]`, ""},
		{"isConnected", "success", `false`, ""},
		{"getStatus", "success", `{"isOnline":false,"status":"unknown"}`, ""},
		{"disconnect", "success", `null`, ""},
		{"pairBluetoothDevice", "success", `{"resultCode":-1,"target":null}`, ""},
		{"printReceipt", "error", `null`, bridge.CodeUnimplemented},
		{"selfDestruct", "notImplemented", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp, err := c.Call(ctx, tt.method, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.Status)

			result, err := json.Marshal(resp.Result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantResult, string(result))

			if tt.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				assert.Error(t, resp.Err())
			}
		})
	}
}

func TestServer_ResponsesOutOfOrder(t *testing.T) {
	_, ts := newTestServer(t, 200*time.Millisecond)
	c := dial(t, ts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var scanDone time.Time
	wg.Add(1)
	go func() {
		defer wg.Done()
		resp, err := c.Call(ctx, "discoverPrinters", nil)
		assert.NoError(t, err)
		assert.Equal(t, "success", resp.Status)
		scanDone = time.Now()
	}()

	// Wait until the scan is registered, then check a quick command
	// overtakes it.
	time.Sleep(20 * time.Millisecond)
	resp, err := c.Call(ctx, "discoverPrinters", nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, bridge.CodeBusy, resp.Error.Code)
	quickDone := time.Now()

	wg.Wait()
	assert.True(t, quickDone.Before(scanDone))
}

func TestServer_InvalidEnvelope(t *testing.T) {
	_, ts := newTestServer(t, time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"id": "a",`)))
	var resp Response
	require.NoError(t, ws.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)

	require.NoError(t, ws.WriteJSON(map[string]any{"id": "b"}))
	require.NoError(t, ws.ReadJSON(&resp))
	assert.JSONEq(t, `"b"`, string(resp.ID))
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)

	require.NoError(t, ws.WriteJSON(map[string]any{"id": "c", "method": "isConnected"}))
	require.NoError(t, ws.ReadJSON(&resp))
	assert.JSONEq(t, `"c"`, string(resp.ID))
	assert.Equal(t, false, resp.Result)
}

func TestServer_Health(t *testing.T) {
	srv, ts := newTestServer(t, time.Millisecond)
	srv.dispatcher.State().SetConnected(true)

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	var h Health
	require.NoError(t, json.NewDecoder(res.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.Connected)
	assert.False(t, h.Scanning)

	post, err := http.Post(ts.URL+"/healthz", "application/json", nil)
	require.NoError(t, err)
	post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	d := bridge.NewDispatcher(discovery.NewEngine(&staticTransport{}), bridge.Options{State: &bridge.ConnectionState{}})
	srv, err := New(&Config{Host: "127.0.0.1", Port: 0}, d)
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	url := "ws://" + srv.Addr().String() + DefaultPath
	c, err := Dial(context.Background(), url)
	require.NoError(t, err)

	resp, err := c.Call(context.Background(), "isConnected", nil)
	require.NoError(t, err)
	assert.Equal(t, false, resp.Result)
	assert.Eventually(t, func() bool { return srv.GetActiveConnections() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = c.Call(context.Background(), "isConnected", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, srv.GetActiveConnections())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(&Config{}, nil)
	assert.Error(t, err)

	d := bridge.NewDispatcher(discovery.NewEngine(&staticTransport{}), bridge.Options{})
	_, err = New(&Config{CertPath: "/does/not/exist.pem", KeyPath: "/does/not/exist.key"}, d)
	assert.Error(t, err)

	srv, err := New(&Config{}, d)
	require.NoError(t, err)
	assert.Equal(t, DefaultPath, srv.config.Path)
	assert.Nil(t, srv.Addr())
}

func TestResponse_Err(t *testing.T) {
	assert.NoError(t, (&Response{Status: "success"}).Err())
	assert.ErrorIs(t, (&Response{Status: "notImplemented"}).Err(), ErrNotImplemented)

	err := (&Response{Status: "error", Error: &ErrorBody{Code: "BUSY", Message: "discovery already in progress"}}).Err()
	assert.EqualError(t, err, "BUSY: discovery already in progress")
	assert.Error(t, (&Response{Status: "weird"}).Err())
}
