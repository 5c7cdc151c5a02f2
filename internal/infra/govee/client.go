package govee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"govee-bar/internal/domain"
)

const (
	DefaultBaseURL = "https://openapi.api.govee.com"
	DefaultTimeout = 10 * time.Second

	APIKeyHeader = "Govee-API-Key"

	pathDevices    = "/router/api/v1/user/devices"
	pathState      = "/router/api/v1/device/state"
	pathControl    = "/router/api/v1/device/control"
	pathScenes     = "/router/api/v1/device/scenes"
	pathDIYScenes  = "/router/api/v1/device/diy-scenes"
	codeSuccess    = 200
	maxBodyBytes   = 4 << 20
	maxErrorLength = 512
)

// KeySource supplies the API key. It is consulted on every call.
type KeySource interface {
	APIKey() (string, bool)
}

// StaticKey is a fixed API key.
type StaticKey string

func (k StaticKey) APIKey() (string, bool) { return string(k), k != "" }

type Client struct {
	baseURL      string
	keys         KeySource
	httpClient   *http.Client
	newRequestID func() string
	logger       *slog.Logger
}

type Option func(*Client)

// WithTimeout bounds every call, including reading the response body. An
// expired timeout is reported as ErrNetwork; ErrCancelled is reserved for the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) { c.newRequestID = fn }
}

func NewClient(keys KeySource, opts ...Option) *Client {
	return NewClientWithURL(DefaultBaseURL, keys, opts...)
}

func NewClientWithURL(baseURL string, keys KeySource, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		keys:         keys,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		newRequestID: NewRequestID,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListDevices returns every device on the account with its type label
// normalized.
func (c *Client) ListDevices(ctx context.Context) ([]domain.Device, error) {
	key, err := c.apiKey()
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, "list devices", key, http.MethodGet, pathDevices, "", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching devices: %w", err)
	}

	var result DevicesResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("%w: parsing devices: %w", ErrDecode, err)
	}

	if result.Code != nil && *result.Code != codeSuccess {
		return nil, fmt.Errorf("fetching devices: %w", &RemoteError{Code: *result.Code, Message: result.Message})
	}

	devices := make([]domain.Device, 0, len(result.Data))
	for _, d := range result.Data {
		device := d.toDomain()
		device.Type = NormalizeDeviceType(device.Type)
		devices = append(devices, device)
	}

	return devices, nil
}

// GetDeviceState queries live capability state. A sensorTemperature reading
// is converted to Celsius.
func (c *Client) GetDeviceState(ctx context.Context, deviceID, sku string) (*domain.DeviceState, error) {
	payload, err := roundTrip[DeviceRef, StatePayload](ctx, c, "get state", pathState, DeviceRef{Device: deviceID, SKU: sku})
	if err != nil {
		return nil, fmt.Errorf("fetching device state: %w", err)
	}

	state := payload.toDomain()
	if state.DeviceID == "" {
		state.DeviceID = deviceID
	}
	if state.SKU == "" {
		state.SKU = sku
	}
	NormalizeTemperature(state.Capabilities)

	return &state, nil
}

// SendControl applies one capability value. Only the HTTP status is checked.
func (c *Client) SendControl(ctx context.Context, cmd domain.ControlCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	key, err := c.apiKey()
	if err != nil {
		return err
	}

	requestID := c.newRequestID()
	body := RequestEnvelope[ControlPayload]{
		RequestID: requestID,
		Payload:   newControlPayload(cmd),
	}

	if _, err := c.doRequest(ctx, "send control", key, http.MethodPost, pathControl, requestID, body); err != nil {
		return fmt.Errorf("sending control command: %w", err)
	}

	return nil
}

// ListScenes returns the light or DIY scene options of a device.
func (c *Client) ListScenes(ctx context.Context, kind domain.SceneKind, deviceID, sku string) ([]domain.SceneOption, error) {
	var path string
	switch kind {
	case domain.SceneKindLight:
		path = pathScenes
	case domain.SceneKindDIY:
		path = pathDIYScenes
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSceneKind, kind)
	}

	payload, err := roundTrip[DeviceRef, ScenesPayload](ctx, c, "list "+string(kind)+" scenes", path, DeviceRef{Device: deviceID, SKU: sku})
	if err != nil {
		return nil, fmt.Errorf("fetching %s scenes: %w", kind, err)
	}

	if sc, ok := domain.FindByInstance(payload.Capabilities, kind.Instance()); ok && sc.Parameters.Skipped > 0 {
		c.logger.Warn("skipped unrecognized scene options",
			"device", deviceID,
			"sku", sku,
			"instance", sc.Instance,
			"skipped", sc.Parameters.Skipped,
		)
	}

	return ExtractSceneOptions(payload.Capabilities, kind.Instance())
}

// VerifyAPIKey checks a candidate key against the devices endpoint. Any 2xx
// response is accepted.
func (c *Client) VerifyAPIKey(ctx context.Context, key string) error {
	if key == "" {
		return ErrMissingAPIKey
	}
	if _, err := c.doRequest(ctx, "verify key", key, http.MethodGet, pathDevices, "", nil); err != nil {
		return fmt.Errorf("verifying API key: %w", err)
	}
	return nil
}

// ValidateAPIKey reports whether key can be sent as a header value.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrMissingAPIKey
	}
	if !httpguts.ValidHeaderFieldValue(key) || strings.TrimSpace(key) != key {
		return ErrInvalidAPIKeyFormat
	}
	return nil
}

func (c *Client) apiKey() (string, error) {
	if c.keys == nil {
		return "", ErrMissingAPIKey
	}
	key, ok := c.keys.APIKey()
	if !ok || key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// roundTrip posts payload in a fresh request envelope and returns the
// decoded response payload once status, code and request id check out.
func roundTrip[Req, Resp any](ctx context.Context, c *Client, op, path string, payload Req) (Resp, error) {
	var zero Resp

	key, err := c.apiKey()
	if err != nil {
		return zero, err
	}

	requestID := c.newRequestID()
	body := RequestEnvelope[Req]{RequestID: requestID, Payload: payload}

	resp, err := c.doRequest(ctx, op, key, http.MethodPost, path, requestID, body)
	if err != nil {
		return zero, err
	}

	var env ResponseEnvelope[Resp]
	if err := json.Unmarshal(resp, &env); err != nil {
		return zero, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if env.RequestID != "" && env.RequestID != requestID {
		return zero, fmt.Errorf("%w: sent %s, got %s", ErrRequestIDMismatch, requestID, env.RequestID)
	}

	if env.Code != nil && *env.Code != codeSuccess {
		return zero, &RemoteError{Code: *env.Code, Message: env.Msg}
	}

	return env.Payload, nil
}

// doRequest performs exactly one HTTP exchange and returns the body of a 2xx
// response.
func (c *Client) doRequest(ctx context.Context, op, key, method, path, requestID string, body any) ([]byte, error) {
	if err := ValidateAPIKey(key); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set(APIKeyHeader, key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, "sending request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.transportError(ctx, "reading response", err)
	}

	c.logger.Debug("govee request",
		"op", op,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIRejectedError{
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(respBody)), maxErrorLength),
		}
	}

	return respBody, nil
}

func (c *Client) transportError(ctx context.Context, action string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrNetwork, action, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
