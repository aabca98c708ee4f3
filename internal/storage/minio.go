package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioStorage implements Provider using a MinIO (or any S3-compatible) backend.
// Objects are keyed "<folder>/<uuid><ext>"; the public id is the key without
// its extension, matching how Cloudinary names assets.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists with a public-read
// policy, and returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Info().Str("bucket", bucket).Msg("storage: created bucket")
	}

	if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &MinioStorage{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload streams obj.Body into the bucket. obj.Size must be the exact byte
// count, or -1 when unknown (MinIO will buffer it).
func (s *MinioStorage) Upload(ctx context.Context, obj Object) (*Asset, error) {
	key := objectKey(obj.Folder, obj.Filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return nil, err
	}
	return &Asset{URL: s.PublicURL(key), PublicID: publicID(key)}, nil
}

// Folders returns the top-level prefixes of the bucket.
func (s *MinioStorage) Folders(ctx context.Context) ([]string, error) {
	var folders []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: false}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			folders = append(folders, strings.TrimSuffix(obj.Key, "/"))
		}
	}
	return folders, nil
}

// Assets lists up to max objects under prefix.
func (s *MinioStorage) Assets(ctx context.Context, prefix string, max int) ([]Asset, error) {
	// Cancelling stops the listing goroutine once enough keys are read.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	assets := make([]Asset, 0)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		assets = append(assets, Asset{URL: s.PublicURL(obj.Key), PublicID: publicID(obj.Key)})
		if len(assets) >= max {
			break
		}
	}
	return assets, nil
}

// PublicURL returns the browser-accessible URL for the given key.
// For local MinIO: "http://localhost:9000/boxes/2024-05-01/<uuid>.jpg"
func (s *MinioStorage) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// objectKey names a new object inside folder, keeping the original extension.
func objectKey(folder, filename string) string {
	name := uuid.NewString() + strings.ToLower(path.Ext(filename))
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func publicID(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
