package storage

import (
	"context"
	"time"
)

// Operation labels used when observing provider calls.
const (
	OpUpload  = "upload"
	OpFolders = "folders"
	OpAssets  = "assets"
)

// Observer captures telemetry for provider calls.
type Observer interface {
	ObserveProvider(op string, d time.Duration, size int64, err error)
}

type instrumented struct {
	next Provider
	obs  Observer
}

// WithObserver wraps p so that every call is reported to obs.
func WithObserver(p Provider, obs Observer) Provider {
	if obs == nil {
		return p
	}
	return &instrumented{next: p, obs: obs}
}

func (i *instrumented) Upload(ctx context.Context, obj Object) (*Asset, error) {
	start := time.Now()
	a, err := i.next.Upload(ctx, obj)
	i.obs.ObserveProvider(OpUpload, time.Since(start), obj.Size, err)
	return a, err
}

func (i *instrumented) Folders(ctx context.Context) ([]string, error) {
	start := time.Now()
	f, err := i.next.Folders(ctx)
	i.obs.ObserveProvider(OpFolders, time.Since(start), 0, err)
	return f, err
}

func (i *instrumented) Assets(ctx context.Context, prefix string, max int) ([]Asset, error) {
	start := time.Now()
	a, err := i.next.Assets(ctx, prefix, max)
	i.obs.ObserveProvider(OpAssets, time.Since(start), 0, err)
	return a, err
}
