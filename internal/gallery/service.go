// Package gallery implements the upload gateway: images are stored with the
// media provider under a folder key (a date or box id) and listed back by it.
package gallery

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/boxgallery/service/internal/storage"
	"github.com/boxgallery/service/internal/upload"
)

// MaxImages bounds a single folder listing.
const MaxImages = 200

// Folder is a logical grouping of uploaded images. ID and Date are both the
// folder name.
type Folder struct {
	ID   string `json:"id"   example:"2024-05-01"`
	Date string `json:"date" example:"2024-05-01"`
}

// ImageRecord is one stored image.
type ImageRecord struct {
	URL      string `json:"url"       example:"https://res.cloudinary.com/demo/image/upload/v1/2024-05-01/abc.jpg"`
	PublicID string `json:"public_id" example:"2024-05-01/abc"`
}

// UploadResult describes a stored upload.
type UploadResult struct {
	URL       string
	PublicID  string
	FolderKey string
}

// UploadTracker is notified while an upload holds an admission slot.
type UploadTracker interface {
	UploadStarted()
	UploadFinished()
}

// Option configures a Service.
type Option func(*Service)

// WithAdmissionLimit bounds concurrent provider uploads to n. n <= 0 leaves
// uploads unbounded.
func WithAdmissionLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.gate = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithUploadTracker reports admitted uploads to t.
func WithUploadTracker(t UploadTracker) Option {
	return func(s *Service) {
		s.tracker = t
	}
}

// Service translates gateway operations into provider calls.
type Service struct {
	provider storage.Provider
	gate     *semaphore.Weighted
	tracker  UploadTracker
}

// NewService creates a new gallery Service backed by provider.
func NewService(provider storage.Provider, opts ...Option) *Service {
	s := &Service{provider: provider}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitUpload forwards a staged file to the provider under folderKey.
// The staged file is removed before returning, whatever the outcome.
func (s *Service) SubmitUpload(ctx context.Context, file *upload.File, folderKey string) (*UploadResult, error) {
	if file == nil {
		return nil, &ValidationError{Message: "No file received"}
	}
	logger := zerolog.Ctx(ctx)
	defer func() {
		if err := file.Remove(); err != nil {
			logger.Error().Err(err).Str("path", file.Path).Msg("failed to remove staged upload")
		}
	}()

	folderKey = strings.TrimSpace(folderKey)
	if folderKey == "" {
		return nil, &ValidationError{Message: "No folder key received"}
	}

	if err := s.admit(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	body, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open staged upload: %w", err)
	}
	defer body.Close()

	asset, err := s.provider.Upload(ctx, storage.Object{
		Folder:      folderKey,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Size:        file.Size,
		Body:        body,
	})
	if err != nil {
		return nil, &ProviderError{Op: OpUpload, Err: err}
	}

	logger.Info().Str("folder", folderKey).Str("url", asset.URL).Msg("upload successful")
	return &UploadResult{URL: asset.URL, PublicID: asset.PublicID, FolderKey: folderKey}, nil
}

// ListFolders returns every top-level folder in provider order.
func (s *Service) ListFolders(ctx context.Context) ([]Folder, error) {
	names, err := s.provider.Folders(ctx)
	if err != nil {
		return nil, &ProviderError{Op: OpList, Err: err}
	}

	folders := make([]Folder, 0, len(names))
	for _, n := range names {
		folders = append(folders, Folder{ID: n, Date: n})
	}
	return folders, nil
}

// ListImages returns at most MaxImages images stored under folderKey.
func (s *Service) ListImages(ctx context.Context, folderKey string) ([]ImageRecord, error) {
	folderKey = strings.TrimSpace(folderKey)
	if folderKey == "" {
		return nil, &ValidationError{Message: "No folder key received"}
	}

	assets, err := s.provider.Assets(ctx, folderKey+"/", MaxImages)
	if err != nil {
		return nil, &ProviderError{Op: OpFetch, Err: err}
	}
	if len(assets) > MaxImages {
		assets = assets[:MaxImages]
	}

	images := make([]ImageRecord, 0, len(assets))
	for _, a := range assets {
		images = append(images, ImageRecord{URL: a.URL, PublicID: a.PublicID})
	}
	zerolog.Ctx(ctx).Info().Str("folder", folderKey).Int("count", len(images)).Msg("fetched images")
	return images, nil
}

func (s *Service) admit(ctx context.Context) error {
	if s.gate != nil {
		if err := s.gate.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
	}
	if s.tracker != nil {
		s.tracker.UploadStarted()
	}
	return nil
}

func (s *Service) release() {
	if s.tracker != nil {
		s.tracker.UploadFinished()
	}
	if s.gate != nil {
		s.gate.Release(1)
	}
}
