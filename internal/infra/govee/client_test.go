package govee_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govee-bar/internal/domain"
	"govee-bar/internal/infra/govee"
)

const testKey = "test-api-key"

type envelope struct {
	RequestID string          `json:"requestId"`
	Payload   json.RawMessage `json:"payload"`
}

func decodeEnvelope(t *testing.T, r *http.Request) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
	return env
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(url string) *govee.Client {
	return govee.NewClientWithURL(url, govee.StaticKey(testKey))
}

func TestClient_ListDevices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/router/api/v1/user/devices", r.URL.Path)
		assert.Equal(t, testKey, r.Header.Get("Govee-API-Key"))
		io.WriteString(w, `{"code":200,"message":"ok","data":[
			{"sku":"H6159","device":"AB:CD","type":"devices.types.light","capabilities":[]},
			{"sku":"H5179","device":"11:22","type":"thermometer","deviceName":"Office","extra":true,
			 "capabilities":[{"type":"devices.capabilities.property","instance":"sensorTemperature","parameters":{"dataType":"NUMERIC"}},
			                 {"type":"devices.capabilities.online","instance":"online"}]}]}`)
	}))
	defer server.Close()

	devices, err := newClient(server.URL).ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "H6159", devices[0].SKU)
	assert.Equal(t, "AB:CD", devices[0].ID)
	assert.Equal(t, "light", devices[0].Type)
	assert.Nil(t, devices[0].DisplayName)
	assert.Empty(t, devices[0].Capabilities)

	assert.Equal(t, "thermometer", devices[1].Type)
	require.NotNil(t, devices[1].DisplayName)
	assert.Equal(t, "Office", *devices[1].DisplayName)
	require.Len(t, devices[1].Capabilities, 2)
	require.NotNil(t, devices[1].Capabilities[0].Parameters)
	assert.Equal(t, domain.KindStructured, devices[1].Capabilities[0].Parameters.Kind())
	assert.Nil(t, devices[1].Capabilities[1].Parameters)
}

func TestClient_ListDevices_RemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":429,"message":"rate limited","data":[]}`)
	}))
	defer server.Close()

	_, err := newClient(server.URL).ListDevices(context.Background())
	var remote *govee.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 429, remote.Code)
	assert.Equal(t, "rate limited", remote.Message)
}

func TestClient_ListDevices_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newClient(server.URL).ListDevices(context.Background())
	var rejected *govee.APIRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnauthorized, rejected.StatusCode)
	assert.Equal(t, "invalid api key", rejected.Body)
}

func TestClient_ListDevices_DecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>maintenance</html>`)
	}))
	defer server.Close()

	_, err := newClient(server.URL).ListDevices(context.Background())
	require.ErrorIs(t, err, govee.ErrDecode)
}

func TestClient_KeyErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	tests := []struct {
		name string
		keys govee.KeySource
		want error
	}{
		{name: "nil source", keys: nil, want: govee.ErrMissingAPIKey},
		{name: "empty key", keys: govee.StaticKey(""), want: govee.ErrMissingAPIKey},
		{name: "newline in key", keys: govee.StaticKey("abc\ndef"), want: govee.ErrInvalidAPIKeyFormat},
		{name: "padded key", keys: govee.StaticKey(" abc "), want: govee.ErrInvalidAPIKeyFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := govee.NewClientWithURL(server.URL, tt.keys)
			ctx := context.Background()

			_, err := client.ListDevices(ctx)
			require.ErrorIs(t, err, tt.want)

			_, err = client.GetDeviceState(ctx, "AB:CD", "H6159")
			require.ErrorIs(t, err, tt.want)

			err = client.SendControl(ctx, domain.PowerCommand("AB:CD", "H6159", true))
			require.ErrorIs(t, err, tt.want)

			_, err = client.ListScenes(ctx, domain.SceneKindLight, "AB:CD", "H6159")
			require.ErrorIs(t, err, tt.want)
		})
	}

	assert.Zero(t, calls.Load(), "no request may be sent without a usable key")
}

func TestClient_GetDeviceState(t *testing.T) {
	var sentID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/router/api/v1/device/state", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		env := decodeEnvelope(t, r)
		sentID = env.RequestID
		assert.JSONEq(t, `{"device":"11:22","sku":"H5179"}`, string(env.Payload))

		writeJSON(w, map[string]any{
			"requestId": env.RequestID,
			"code":      200,
			"msg":       "success",
			"payload": map[string]any{
				"sku":    "H5179",
				"device": "11:22",
				"capabilities": []map[string]any{
					{"type": "devices.capabilities.online", "instance": "online", "state": map[string]any{"value": true}},
					{"type": "devices.capabilities.property", "instance": "sensorTemperature", "state": map[string]any{"value": 98.6}},
					{"type": "devices.capabilities.property", "instance": "sensorHumidity", "state": map[string]any{"value": map[string]any{"currentHumidity": 41}}},
				},
			},
		})
	}))
	defer server.Close()

	state, err := newClient(server.URL).GetDeviceState(context.Background(), "11:22", "H5179")
	require.NoError(t, err)
	assert.NotEmpty(t, sentID)
	assert.Equal(t, "11:22", state.DeviceID)
	assert.Equal(t, "H5179", state.SKU)
	require.Len(t, state.Capabilities, 3)

	online, ok := state.Capabilities[0].Value.AsBool()
	require.True(t, ok)
	assert.True(t, online)

	temp, ok := domain.FindByInstance(state.Capabilities, "sensorTemperature")
	require.True(t, ok)
	celsius, ok := temp.Value.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(37), celsius)

	humidity, ok := domain.FindByInstance(state.Capabilities, "sensorHumidity")
	require.True(t, ok)
	var h struct {
		CurrentHumidity int `json:"currentHumidity"`
	}
	require.NoError(t, humidity.Value.Decode(&h))
	assert.Equal(t, 41, h.CurrentHumidity)
}

func TestClient_GetDeviceState_RemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := decodeEnvelope(t, r)
		writeJSON(w, map[string]any{"requestId": env.RequestID, "code": 400, "msg": "device not found", "payload": map[string]any{}})
	}))
	defer server.Close()

	_, err := newClient(server.URL).GetDeviceState(context.Background(), "nope", "H5179")
	var remote *govee.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 400, remote.Code)
	assert.Equal(t, "device not found", remote.Message)
}

func TestClient_GetDeviceState_RequestIDMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"requestId": "someone-else", "code": 200, "msg": "success", "payload": map[string]any{}})
	}))
	defer server.Close()

	_, err := newClient(server.URL).GetDeviceState(context.Background(), "11:22", "H5179")
	require.ErrorIs(t, err, govee.ErrRequestIDMismatch)
}

func TestClient_GetDeviceState_MissingRequestIDAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":200,"msg":"success","payload":{"sku":"H5179","device":"11:22","capabilities":[]}}`)
	}))
	defer server.Close()

	state, err := newClient(server.URL).GetDeviceState(context.Background(), "11:22", "H5179")
	require.NoError(t, err)
	assert.Empty(t, state.Capabilities)
}

func TestClient_RequestIDsAreFresh(t *testing.T) {
	seen := make(map[string]bool)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := decodeEnvelope(t, r)
		assert.False(t, seen[env.RequestID], "request id reused: %s", env.RequestID)
		seen[env.RequestID] = true
		writeJSON(w, map[string]any{"requestId": env.RequestID, "code": 200, "msg": "success", "payload": map[string]any{}})
	}))
	defer server.Close()

	client := newClient(server.URL)
	for i := 0; i < 5; i++ {
		_, err := client.GetDeviceState(context.Background(), "11:22", "H5179")
		require.NoError(t, err)
	}
	assert.Len(t, seen, 5)
}

func TestClient_SendControl(t *testing.T) {
	var received envelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/router/api/v1/device/control", r.URL.Path)
		received = decodeEnvelope(t, r)
		// Body is not inspected on success.
		io.WriteString(w, `{"garbage`)
	}))
	defer server.Close()

	client := govee.NewClientWithURL(server.URL, govee.StaticKey(testKey),
		govee.WithRequestIDFunc(func() string { return "req-1" }))

	err := client.SendControl(context.Background(), domain.PowerCommand("AB:CD", "H6159", true))
	require.NoError(t, err)

	assert.Equal(t, "req-1", received.RequestID)
	assert.JSONEq(t, `{"device":"AB:CD","sku":"H6159","capability":{"type":"devices.capabilities.on_off","instance":"powerSwitch","value":1}}`,
		string(received.Payload))
}

func TestClient_SendControl_Rejected(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusBadGateway} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			io.WriteString(w, `{"code":400,"msg":"Parameter value out of range"}`)
		}))

		err := newClient(server.URL).SendControl(context.Background(), domain.BrightnessCommand("AB:CD", "H6159", 50))
		server.Close()

		var rejected *govee.APIRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, status, rejected.StatusCode)
		assert.Contains(t, rejected.Body, "Parameter value out of range")
	}
}

func TestClient_SendControl_InvalidCommand(t *testing.T) {
	client := govee.NewClientWithURL("http://127.0.0.1:1", govee.StaticKey(testKey))
	err := client.SendControl(context.Background(), domain.ControlCommand{DeviceID: "AB:CD"})
	require.ErrorIs(t, err, domain.ErrInvalidCommand)
}

func scenesHandler(t *testing.T, wantPath string, capabilities string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.Path)
		env := decodeEnvelope(t, r)
		io.WriteString(w, `{"requestId":"`+env.RequestID+`","code":200,"msg":"success","payload":{"sku":"H6159","device":"AB:CD","capabilities":`+capabilities+`}}`)
	}
}

func TestClient_ListScenes(t *testing.T) {
	tests := []struct {
		name     string
		kind     domain.SceneKind
		path     string
		caps     string
		wantLen  int
		wantKind bool
	}{
		{
			name: "light scenes",
			kind: domain.SceneKindLight,
			path: "/router/api/v1/device/scenes",
			caps: `[{"type":"devices.capabilities.dynamic_scene","instance":"lightScene","parameters":{"dataType":"ENUM","options":[
				{"name":"Sunrise","value":{"paramId":4280,"id":3853}},{"name":"Aurora","value":{"paramId":4281,"id":3854}}]}}]`,
			wantLen:  2,
			wantKind: true,
		},
		{
			name: "diy scenes",
			kind: domain.SceneKindDIY,
			path: "/router/api/v1/device/diy-scenes",
			caps: `[{"type":"devices.capabilities.dynamic_scene","instance":"lightScene","parameters":{"dataType":"ENUM","options":[]}},
				{"type":"devices.capabilities.dynamic_scene","instance":"diyScene","parameters":{"dataType":"ENUM","options":[{"name":"Party","value":8216567}]}}]`,
			wantLen:  1,
			wantKind: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(scenesHandler(t, tt.path, tt.caps))
			defer server.Close()

			options, err := newClient(server.URL).ListScenes(context.Background(), tt.kind, "AB:CD", "H6159")
			require.NoError(t, err)
			require.Len(t, options, tt.wantLen)
			assert.Equal(t, tt.wantKind, options[0].Value.IsKeyed())
		})
	}
}

func TestClient_ListScenes_PreservesOptionValue(t *testing.T) {
	server := httptest.NewServer(scenesHandler(t, "/router/api/v1/device/scenes",
		`[{"type":"devices.capabilities.dynamic_scene","instance":"lightScene","parameters":{"dataType":"ENUM","options":[
			{"name":"Sunrise","value":{"paramId":4280,"id":3853,"extra":"x"}}]}}]`))
	defer server.Close()

	options, err := newClient(server.URL).ListScenes(context.Background(), domain.SceneKindLight, "AB:CD", "H6159")
	require.NoError(t, err)
	require.Len(t, options, 1)

	paramID, id, ok := options[0].Value.Keyed()
	require.True(t, ok)
	assert.Equal(t, int64(4280), paramID)
	assert.Equal(t, int64(3853), id)

	cmd := domain.SceneCommand("AB:CD", "H6159", domain.SceneKindLight, options[0])
	raw, ok := cmd.Value.AsRaw()
	require.True(t, ok)
	assert.JSONEq(t, `{"paramId":4280,"id":3853,"extra":"x"}`, string(raw))
}

func TestClient_ListScenes_NotFound(t *testing.T) {
	tests := []struct {
		kind domain.SceneKind
		path string
		caps string
	}{
		{domain.SceneKindLight, "/router/api/v1/device/scenes", `[{"type":"devices.capabilities.dynamic_scene","instance":"diyScene","parameters":{"options":[]}}]`},
		{domain.SceneKindDIY, "/router/api/v1/device/diy-scenes", `[]`},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			server := httptest.NewServer(scenesHandler(t, tt.path, tt.caps))
			defer server.Close()

			_, err := newClient(server.URL).ListScenes(context.Background(), tt.kind, "AB:CD", "H6159")
			require.ErrorIs(t, err, govee.ErrNotFound)
		})
	}
}

func TestClient_ListScenes_RemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":500,"msg":"internal","payload":{}}`)
	}))
	defer server.Close()

	_, err := newClient(server.URL).ListScenes(context.Background(), domain.SceneKindDIY, "AB:CD", "H6159")
	var remote *govee.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 500, remote.Code)
}

func TestClient_ListScenes_InvalidKind(t *testing.T) {
	_, err := newClient("http://127.0.0.1:1").ListScenes(context.Background(), domain.SceneKind("music"), "AB:CD", "H6159")
	require.ErrorIs(t, err, govee.ErrInvalidSceneKind)
}

func TestClient_Cancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newClient(server.URL).ListDevices(ctx)
	require.ErrorIs(t, err, govee.ErrCancelled)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newClient(url).ListDevices(context.Background())
	require.ErrorIs(t, err, govee.ErrNetwork)
}

func TestClient_VerifyAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Govee-API-Key") != "good-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		// Only the HTTP status matters here.
		io.WriteString(w, `{"code":401,"message":"whatever"}`)
	}))
	defer server.Close()

	client := govee.NewClientWithURL(server.URL, nil)

	require.NoError(t, client.VerifyAPIKey(context.Background(), "good-key"))

	var rejected *govee.APIRejectedError
	require.ErrorAs(t, client.VerifyAPIKey(context.Background(), "bad-key"), &rejected)
	assert.Equal(t, http.StatusUnauthorized, rejected.StatusCode)

	require.ErrorIs(t, client.VerifyAPIKey(context.Background(), ""), govee.ErrMissingAPIKey)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	tests := map[string]govee.Option{
		"with timeout":     govee.WithTimeout(50 * time.Millisecond),
		"with http client": govee.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
	}

	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			client := govee.NewClientWithURL(server.URL, govee.StaticKey(testKey), opt)

			start := time.Now()
			_, err := client.GetDeviceState(context.Background(), "AB:CD", "H5179")
			elapsed := time.Since(start)

			require.ErrorIs(t, err, govee.ErrNetwork)
			assert.False(t, errors.Is(err, govee.ErrCancelled))
			assert.Less(t, elapsed, 2*time.Second)
		})
	}
}

func TestClient_ListScenes_SkipsUnrecognizedOptions(t *testing.T) {
	server := httptest.NewServer(scenesHandler(t, "/router/api/v1/device/scenes",
		`[{"type":"devices.capabilities.dynamic_scene","instance":"lightScene","parameters":{"dataType":"ENUM","options":[
			{"name":"Sunrise","value":{"paramId":4280,"id":3853}},
			{"name":"Broken","value":{"id":1}},
			{"name":"Text","value":"abc"},
			{"name":"Party","value":12}]}}]`))
	defer server.Close()

	options, err := newClient(server.URL).ListScenes(context.Background(), domain.SceneKindLight, "AB:CD", "H6159")
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "Sunrise", options[0].Name)
	assert.Equal(t, "Party", options[1].Name)
}

func TestWireSceneParameters_Decode(t *testing.T) {
	var p govee.WireSceneParameters
	require.NoError(t, json.Unmarshal([]byte(`{"dataType":"ENUM","options":[{"name":"A","value":1},{"name":"B","value":null}]}`), &p))
	assert.Equal(t, "ENUM", p.DataType)
	require.Len(t, p.Options, 1)
	assert.Equal(t, 1, p.Skipped)

	var empty govee.WireSceneParameters
	require.NoError(t, json.Unmarshal([]byte(`{"dataType":"ENUM"}`), &empty))
	assert.Nil(t, empty.Options)
	assert.Zero(t, empty.Skipped)
}
