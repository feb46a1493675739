// Package memory provides an in-memory media store for tests and
// development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
)

// Store is an in-memory implementation of the mediagateway.MediaStore interface
type Store struct {
	mu      sync.RWMutex
	folders map[string]mediagateway.Folder
	assets  map[string]struct{}
}

// New creates a new in-memory media store
func New() *Store {
	return &Store{
		folders: make(map[string]mediagateway.Folder),
		assets:  make(map[string]struct{}),
	}
}

// SeedAsset registers an asset so tests can exercise deletion.
func (s *Store) SeedAsset(publicID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[publicID] = struct{}{}
}

// HasAsset reports whether an asset exists.
func (s *Store) HasAsset(publicID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assets[publicID]
	return ok
}

// ListFolders returns all folders sorted by path.
func (s *Store) ListFolders(ctx context.Context) ([]mediagateway.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	folders := make([]mediagateway.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		folders = append(folders, f)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
	return folders, nil
}

// CreateFolder creates a folder at the given path.
func (s *Store) CreateFolder(ctx context.Context, path string) (*mediagateway.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.folders[path]; exists {
		return nil, s.wrap("create_folder", path,
			fmt.Errorf("%w: folder already exists", mediagateway.ErrInvalidPath))
	}

	now := time.Now().UTC()
	folder := mediagateway.Folder{
		Name:      baseName(path),
		Path:      path,
		CreatedAt: &now,
	}
	s.folders[path] = folder
	return &folder, nil
}

// RenameFolder moves a folder and its assets to a new path.
func (s *Store) RenameFolder(ctx context.Context, fromPath, toPath string) (*mediagateway.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folder, exists := s.folders[fromPath]
	if !exists {
		return nil, s.wrap("rename_folder", fromPath,
			fmt.Errorf("%w: folder does not exist", mediagateway.ErrNotFound))
	}
	if _, exists := s.folders[toPath]; exists {
		return nil, s.wrap("rename_folder", toPath,
			fmt.Errorf("%w: destination folder already exists", mediagateway.ErrConflict))
	}

	delete(s.folders, fromPath)
	folder.Name = baseName(toPath)
	folder.Path = toPath
	s.folders[toPath] = folder

	prefix := fromPath + "/"
	for id := range s.assets {
		if strings.HasPrefix(id, prefix) {
			delete(s.assets, id)
			s.assets[toPath+"/"+strings.TrimPrefix(id, prefix)] = struct{}{}
		}
	}
	return &folder, nil
}

// DeleteFolder removes an empty folder.
func (s *Store) DeleteFolder(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.folders[path]; !exists {
		return s.wrap("delete_folder", path,
			fmt.Errorf("%w: folder does not exist", mediagateway.ErrNotFound))
	}

	prefix := path + "/"
	for id := range s.assets {
		if strings.HasPrefix(id, prefix) {
			return s.wrap("delete_folder", path, mediagateway.ErrFolderNotEmpty)
		}
	}

	delete(s.folders, path)
	return nil
}

// DeleteAsset removes a single asset.
func (s *Store) DeleteAsset(ctx context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[assetID]; !exists {
		return s.wrap("delete_asset", assetID,
			fmt.Errorf("%w: asset does not exist", mediagateway.ErrNotFound))
	}
	delete(s.assets, assetID)
	return nil
}

func (s *Store) wrap(op, path string, err error) error {
	return &mediagateway.StoreError{Backend: "memory", Op: op, Path: path, Err: err}
}

func baseName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
