package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "boxes"

// newTestMinio points a MinioStorage at a fake S3 endpoint. Region is fixed
// so the client never asks the stub for the bucket location.
func newTestMinio(t *testing.T, h http.HandlerFunc) *MinioStorage {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:        credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure:       false,
		Region:       "us-east-1",
		BucketLookup: minio.BucketLookupPath,
	})
	require.NoError(t, err)

	return &MinioStorage{client: client, bucket: testBucket, publicBase: "http://cdn.test/boxes"}
}

func listResult(prefix, delimiter string, keys, commonPrefixes []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><Delimiter>%s</Delimiter>", testBucket, prefix, delimiter)
	fmt.Fprintf(&b, "<KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>", len(keys)+len(commonPrefixes))
	for _, k := range keys {
		fmt.Fprintf(&b, `<Contents><Key>%s</Key><LastModified>2024-01-01T00:00:00.000Z</LastModified><ETag>"d41d8cd98f00b204e9800998ecf8427e"</ETag><Size>3</Size><StorageClass>STANDARD</StorageClass></Contents>`, k)
	}
	for _, p := range commonPrefixes {
		fmt.Fprintf(&b, "<CommonPrefixes><Prefix>%s</Prefix></CommonPrefixes>", p)
	}
	b.WriteString(`</ListBucketResult>`)
	return b.String()
}

func writeXML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestMinioUpload(t *testing.T) {
	var gotPath, gotType string
	s := newTestMinio(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	})

	a, err := s.Upload(context.Background(), Object{
		Folder:      "2024-05-01",
		Filename:    "cat.JPG",
		ContentType: "image/jpeg",
		Size:        3,
		Body:        strings.NewReader("img"),
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotPath, "/boxes/2024-05-01/"), gotPath)
	assert.True(t, strings.HasSuffix(gotPath, ".jpg"), gotPath)
	assert.Equal(t, "image/jpeg", gotType)

	key := strings.TrimPrefix(gotPath, "/boxes/")
	assert.Equal(t, "http://cdn.test/boxes/"+key, a.URL)
	assert.Equal(t, strings.TrimSuffix(key, ".jpg"), a.PublicID)
}

func TestMinioFoldersFromCommonPrefixes(t *testing.T) {
	s := newTestMinio(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/boxes", strings.TrimSuffix(r.URL.Path, "/"))
		assert.Equal(t, "/", r.URL.Query().Get("delimiter"))
		writeXML(w, http.StatusOK, listResult("", "/",
			[]string{"stray.jpg"},
			[]string{"2024-01-01/", "2024-01-02/"},
		))
	})

	folders, err := s.Folders(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2024-01-01", "2024-01-02"}, folders)
}

func TestMinioAssetsSkipsMarkersAndStopsAtMax(t *testing.T) {
	s := newTestMinio(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "box/", r.URL.Query().Get("prefix"))
		writeXML(w, http.StatusOK, listResult("box/", "",
			[]string{"box/", "box/a.jpg", "box/b.png", "box/c.jpg", "box/d.jpg", "box/e.jpg"},
			nil,
		))
	})

	assets, err := s.Assets(context.Background(), "box/", 3)

	require.NoError(t, err)
	assert.Equal(t, []Asset{
		{URL: "http://cdn.test/boxes/box/a.jpg", PublicID: "box/a"},
		{URL: "http://cdn.test/boxes/box/b.png", PublicID: "box/b"},
		{URL: "http://cdn.test/boxes/box/c.jpg", PublicID: "box/c"},
	}, assets)
}

func TestMinioAssetsEmptyFolder(t *testing.T) {
	s := newTestMinio(t, func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, http.StatusOK, listResult("nope/", "", nil, nil))
	})

	assets, err := s.Assets(context.Background(), "nope/", 200)

	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}

func TestMinioListErrorCarriesProviderMessage(t *testing.T) {
	s := newTestMinio(t, func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, http.StatusForbidden, `<?xml version="1.0" encoding="UTF-8"?>`+
			`<Error><Code>AccessDenied</Code><Message>Access Denied.</Message>`+
			`<BucketName>boxes</BucketName><Resource>/boxes/</Resource><RequestId>1</RequestId><HostId>1</HostId></Error>`)
	})

	_, err := s.Folders(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Access Denied.", err.Error())
}
