package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStorage keeps assets in process memory. Nothing survives a restart.
type MemoryStorage struct {
	baseURL string

	mu     sync.RWMutex
	order  []string // public ids in upload order
	assets map[string]Asset
}

// NewMemoryStorage returns an empty store whose URLs start with baseURL.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		assets:  make(map[string]Asset),
	}
}

// Upload drains obj.Body and records a new asset.
func (s *MemoryStorage) Upload(ctx context.Context, obj Object) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := io.Copy(io.Discard, obj.Body); err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}

	id := uuid.NewString()
	if obj.Folder != "" {
		id = obj.Folder + "/" + id
	}
	a := Asset{
		URL:      s.baseURL + "/" + id + strings.ToLower(path.Ext(obj.Filename)),
		PublicID: id,
	}

	s.mu.Lock()
	s.order = append(s.order, id)
	s.assets[id] = a
	s.mu.Unlock()

	return &a, nil
}

// Folders returns the distinct first path segments, sorted.
func (s *MemoryStorage) Folders(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, id := range s.order {
		if i := strings.IndexByte(id, '/'); i > 0 {
			seen[id[:i]] = struct{}{}
		}
	}
	folders := make([]string, 0, len(seen))
	for f := range seen {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders, nil
}

// Assets returns up to max assets under prefix in upload order.
func (s *MemoryStorage) Assets(ctx context.Context, prefix string, max int) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	assets := make([]Asset, 0)
	for _, id := range s.order {
		if len(assets) >= max {
			break
		}
		if strings.HasPrefix(id, prefix) {
			assets = append(assets, s.assets[id])
		}
	}
	return assets, nil
}
