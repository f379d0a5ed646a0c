package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/chimera-core/internal/device"
	"github.com/nerrad567/chimera-core/internal/infrastructure/config"
	"github.com/nerrad567/chimera-core/internal/infrastructure/logging"
)

const testRegistry = `[
  {
    "id": 1,
    "given_name": "Kitchen Tablet",
    "is_active": true,
    "group": {"id": 1, "name": "Default Group", "is_default": true},
    "blocklist": {"safesearch": true, "gambling": false, "social": false},
    "has_custom_blocklist": false,
    "ai_classification": {"device_category": "tablet"}
  },
  {
    "id": 2,
    "given_name": "Hall Printer",
    "is_active": false,
    "group": {"id": 4, "name": "IoT", "is_default": false},
    "blocklist": {"safesearch": true, "adult": true},
    "has_custom_blocklist": true,
    "ai_classification": {"device_category": "printer"}
  }
]
`

// testAPI bundles a server with the path of its registry document.
type testAPI struct {
	srv  *Server
	path string
}

func newTestAPI(t *testing.T, sec config.SecurityConfig) *testAPI {
	t.Helper()

	path := filepath.Join(t.TempDir(), "devices.json")
	if err := os.WriteFile(path, []byte(testRegistry), 0o644); err != nil {
		t.Fatalf("writing registry: %v", err)
	}
	return newTestAPIAt(t, path, sec)
}

func newTestAPIAt(t *testing.T, path string, sec config.SecurityConfig) *testAPI {
	t.Helper()

	svc := device.NewService(device.NewJSONStore(path), nil)
	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 8000,
			CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: sec,
		Logger:   logging.Discard(),
		Service:  svc,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testAPI{srv: srv, path: path}
}

// do sends a request through the router and returns the recorder.
func (a *testAPI) do(t *testing.T, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	a.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	svc := device.NewService(device.NewJSONStore("unused.json"), nil)

	if _, err := New(Deps{Service: svc}); err == nil {
		t.Error("New() without logger: expected error")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without service: expected error")
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, config.SecurityConfig{})

	rec := api.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v, want status ok and version test", body)
	}
}

func TestHealth_RegistryUnreadable(t *testing.T) {
	api := newTestAPIAt(t, filepath.Join(t.TempDir(), "missing.json"), config.SecurityConfig{})

	rec := api.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "unavailable" {
		t.Errorf("status field = %q, want unavailable", body["status"])
	}
}

type stubCheck struct{ err error }

func (c stubCheck) HealthCheck(context.Context) error { return c.err }

func TestHealth_Components(t *testing.T) {
	tests := []struct {
		name           string
		checks         map[string]HealthChecker
		wantStatus     string
		wantComponents map[string]string
	}{
		{
			name:           "all healthy",
			checks:         map[string]HealthChecker{"mqtt": stubCheck{}, "influxdb": stubCheck{}},
			wantStatus:     "ok",
			wantComponents: map[string]string{"mqtt": "ok", "influxdb": "ok"},
		},
		{
			name:           "broker down",
			checks:         map[string]HealthChecker{"mqtt": stubCheck{err: errors.New("not connected")}, "influxdb": stubCheck{}},
			wantStatus:     "degraded",
			wantComponents: map[string]string{"mqtt": "unavailable", "influxdb": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, config.SecurityConfig{})
			api.srv.checks = tt.checks

			rec := api.do(t, http.MethodGet, "/api/health", "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			body := decodeBody[healthResponse](t, rec)
			if body.Status != tt.wantStatus {
				t.Errorf("status field = %q, want %q", body.Status, tt.wantStatus)
			}
			if len(body.Components) != len(tt.wantComponents) {
				t.Fatalf("components = %v, want %v", body.Components, tt.wantComponents)
			}
			for name, want := range tt.wantComponents {
				if body.Components[name] != want {
					t.Errorf("components[%s] = %q, want %q", name, body.Components[name], want)
				}
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	api := newTestAPI(t, config.SecurityConfig{})

	t.Run("generated", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/health", "", nil)
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID header missing")
		}
	})

	t.Run("preserves client value", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/health", "", http.Header{"X-Request-Id": {"client-123"}})
		if got := rec.Header().Get("X-Request-ID"); got != "client-123" {
			t.Errorf("X-Request-ID = %q, want client-123", got)
		}
	})
}

func TestCORS_Preflight(t *testing.T) {
	api := newTestAPI(t, config.SecurityConfig{})

	rec := api.do(t, http.MethodOptions, "/api/devices/1", "", http.Header{
		"Origin":                        {"http://localhost:3000"},
		"Access-Control-Request-Method": {"PATCH"},
	})
	if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 200 or 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "PATCH" {
		t.Errorf("Access-Control-Allow-Methods = %q, want PATCH", got)
	}
}

func TestNotFoundRoute(t *testing.T) {
	api := newTestAPI(t, config.SecurityConfig{})

	rec := api.do(t, http.MethodGet, "/api/nonexistent", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeBody[Error](t, rec); body.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", body.Code, ErrCodeNotFound)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t, config.SecurityConfig{})

	rec := api.do(t, http.MethodDelete, "/api/devices/1", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t, config.SecurityConfig{})

	if rec := api.do(t, http.MethodPatch, "/api/devices/1", `{"given_name":"Tablet"}`, nil); rec.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d, want 200", rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`chimera_device_changes_total{change="patch"} 1`,
		"chimera_http_requests_total",
		"chimera_http_request_duration_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServer_StartClose(t *testing.T) {
	api := newTestAPI(t, config.SecurityConfig{})
	api.srv.cfg.Port = 0

	if err := api.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := api.srv.Start(context.Background()); err == nil {
		t.Error("second Start: expected error")
	}
	if err := api.srv.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestWebSocket_DeviceUpdated(t *testing.T) {
	api := newTestAPI(t, config.SecurityConfig{})
	ts := httptest.NewServer(api.srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	readMessage := func() WSMessage {
		t.Helper()
		//nolint:errcheck // test deadline
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	sub := `{"type":"subscribe","id":"s1","payload":{"channels":["device.updated"]}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(sub)); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	if msg := readMessage(); msg.Type != WSTypeResponse || msg.ID != "s1" {
		t.Fatalf("subscribe reply = %+v, want response s1", msg)
	}

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/devices/2/actions", strings.NewReader(`{"action":"release"}`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST action: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("POST action status = %d, want 200", res.StatusCode)
	}

	msg := readMessage()
	if msg.Type != WSTypeEvent || msg.EventType != ChannelDeviceUpdated {
		t.Fatalf("event = %+v, want %s event", msg, ChannelDeviceUpdated)
	}
	var change device.Change
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		t.Fatalf("decoding change: %v", err)
	}
	if change.DeviceID != 2 || change.Kind != string(device.ActionRelease) {
		t.Errorf("change = device %d kind %q, want device 2 kind release", change.DeviceID, change.Kind)
	}
	if change.Device.Blocklist["adult"] {
		t.Error("broadcast device still blocks adult after release")
	}
}

func TestWebSocket_RejectsUnknownChannel(t *testing.T) {
	api := newTestAPI(t, config.SecurityConfig{})
	ts := httptest.NewServer(api.srv.Handler())
	defer ts.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{
		"type":    "subscribe",
		"id":      "s1",
		"payload": map[string]any{"channels": []string{"scene.activated"}},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != WSTypeError {
		t.Errorf("reply type = %q, want %q", msg.Type, WSTypeError)
	}
}

func TestHub_BroadcastOnlyToSubscribers(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Discard())

	subscribed := &WSClient{hub: hub, send: make(chan []byte, 1), subscriptions: map[string]struct{}{ChannelDeviceUpdated: {}}}
	other := &WSClient{hub: hub, send: make(chan []byte, 1), subscriptions: map[string]struct{}{}}
	hub.register(subscribed)
	hub.register(other)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d, want 2", got)
	}

	if err := hub.DeviceChanged(context.Background(), device.Change{DeviceID: 7, Kind: device.ChangePatch}); err != nil {
		t.Fatalf("DeviceChanged: %v", err)
	}

	select {
	case data := <-subscribed.send:
		if !strings.Contains(string(data), `"device_id":7`) {
			t.Errorf("event %s does not carry device_id 7", data)
		}
	default:
		t.Error("subscribed client received nothing")
	}
	select {
	case data := <-other.send:
		t.Errorf("unsubscribed client received %s", data)
	default:
	}

	// Closing twice must not panic.
	hub.closeAll()
	subscribed.shutdown()
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() after closeAll = %d, want 0", got)
	}
	if subscribed.deliver(ChannelDeviceUpdated, []byte("x")) {
		t.Error("deliver to closed client reported success")
	}
}
