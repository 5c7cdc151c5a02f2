package application

import "context"

// Panel is the menubar window the app lives in.
type Panel interface {
	Setup(ctx context.Context) error
	Show() error
}

type NoopPanel struct{}

func (p *NoopPanel) Setup(_ context.Context) error {
	return nil
}

func (p *NoopPanel) Show() error {
	return nil
}
