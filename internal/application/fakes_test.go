package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"govee-bar/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAPI struct {
	mu sync.Mutex

	devices    []domain.Device
	listErr    error
	states     map[string]*domain.DeviceState
	stateErrs  map[string]error
	scenes     []domain.SceneOption
	verifyErr  error
	controlErr error

	verified []string
	controls []domain.ControlCommand
	stateReq []string
}

func (f *fakeAPI) ListDevices(_ context.Context) ([]domain.Device, error) {
	return f.devices, f.listErr
}

func (f *fakeAPI) GetDeviceState(_ context.Context, deviceID, _ string) (*domain.DeviceState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateReq = append(f.stateReq, deviceID)
	if err := f.stateErrs[deviceID]; err != nil {
		return nil, err
	}
	if s, ok := f.states[deviceID]; ok {
		return s, nil
	}
	return nil, errors.New("no state")
}

func (f *fakeAPI) SendControl(_ context.Context, cmd domain.ControlCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, cmd)
	return f.controlErr
}

func (f *fakeAPI) ListScenes(_ context.Context, _ domain.SceneKind, _, _ string) ([]domain.SceneOption, error) {
	return f.scenes, nil
}

func (f *fakeAPI) VerifyAPIKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, key)
	return f.verifyErr
}

type memStore struct {
	values  map[string]string
	saved   map[string]string
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}, saved: map[string]string{}}
}

func (m *memStore) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *memStore) Set(key, value string) { m.values[key] = value }

func (m *memStore) Save() error {
	if m.saveErr != nil {
		return m.saveErr
	}
	for k, v := range m.values {
		m.saved[k] = v
	}
	return nil
}

type countingPanel struct {
	mu       sync.Mutex
	setups   int
	shows    int
	setupErr error
}

func (p *countingPanel) Setup(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setups++
	return p.setupErr
}

func (p *countingPanel) Show() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shows++
	return nil
}

type recordingSink struct {
	mu        sync.Mutex
	published []domain.DeviceState
	err       error
}

func (r *recordingSink) PublishState(_ context.Context, state domain.DeviceState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.published = append(r.published, state)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}
