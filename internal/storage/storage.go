// Package storage defines the media provider that owns uploaded images.
// Swap implementations by changing the concrete type injected at startup:
// Cloudinary in production, any S3-compatible bucket through MinIO, or the
// in-memory store for local runs and tests.
//
// Folders are not first-class entities. A folder exists as soon as one asset
// is stored under it and is only ever inferred from asset paths.
package storage

import (
	"context"
	"io"
)

// Asset is a single stored image as tracked by the provider.
type Asset struct {
	URL      string
	PublicID string
}

// Object is an image to be stored.
type Object struct {
	Folder      string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Provider is the interface for storing and enumerating images.
//
// Errors returned by a Provider carry the provider's own message unchanged;
// callers relay them to clients verbatim.
type Provider interface {
	// Upload stores obj under obj.Folder and returns the provider-assigned
	// public URL and identifier.
	Upload(ctx context.Context, obj Object) (*Asset, error)
	// Folders lists the names of top-level folders.
	Folders(ctx context.Context) ([]string, error)
	// Assets lists up to max assets whose identifier starts with prefix.
	Assets(ctx context.Context, prefix string, max int) ([]Asset, error)
}
