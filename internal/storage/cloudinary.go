package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// folderPageSize is the largest page the Admin API hands out for folder listings.
const folderPageSize = 500

// CloudinaryStorage implements Provider on top of the Cloudinary Upload and Admin APIs.
type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryStorage builds a client for the given account. No request is
// made until the first operation.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	return &CloudinaryStorage{cld: cld}, nil
}

// Upload sends obj to Cloudinary with obj.Folder as the target folder.
func (s *CloudinaryStorage) Upload(ctx context.Context, obj Object) (*Asset, error) {
	res, err := s.cld.Upload.Upload(ctx, obj.Body, uploader.UploadParams{Folder: obj.Folder})
	if err != nil {
		return nil, err
	}
	if err := resultError(res.Error); err != nil {
		return nil, err
	}
	return &Asset{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

// Folders lists every root folder, following the Admin API cursor.
func (s *CloudinaryStorage) Folders(ctx context.Context) ([]string, error) {
	var (
		names  []string
		cursor string
	)
	for {
		res, err := s.cld.Admin.RootFolders(ctx, admin.RootFoldersParams{
			MaxResults: folderPageSize,
			NextCursor: cursor,
		})
		if err != nil {
			return nil, err
		}
		if err := resultError(res.Error); err != nil {
			return nil, err
		}
		for _, f := range res.Folders {
			names = append(names, f.Name)
		}
		if res.NextCursor == "" {
			return names, nil
		}
		cursor = res.NextCursor
	}
}

// Assets lists uploaded images whose public id starts with prefix. Only the
// first page is requested.
func (s *CloudinaryStorage) Assets(ctx context.Context, prefix string, max int) ([]Asset, error) {
	res, err := s.cld.Admin.Assets(ctx, admin.AssetsParams{
		AssetType:    api.Image,
		DeliveryType: string(api.Upload),
		Prefix:       prefix,
		MaxResults:   max,
	})
	if err != nil {
		return nil, err
	}
	if err := resultError(res.Error); err != nil {
		return nil, err
	}

	assets := make([]Asset, 0, len(res.Assets))
	for _, a := range res.Assets {
		assets = append(assets, Asset{URL: a.SecureURL, PublicID: a.PublicID})
	}
	return assets, nil
}

// resultError turns an error reported inside a Cloudinary response body
// into a Go error with the same message.
func resultError(e api.ErrorResp) error {
	if e.Message == "" {
		return nil
	}
	return errors.New(e.Message)
}
