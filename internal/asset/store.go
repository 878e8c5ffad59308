// Package asset stores uploaded images and hands them to the engine as pictures.
package asset

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gridplane/gridplane/internal/engine"
	"github.com/gridplane/gridplane/internal/typeid"
)

var ErrNotFound = errors.New("asset not found")

// Picture is a decoded asset. It satisfies engine.AssetPicture so recorded
// frames refer to it by id, and image.Image so raster targets can paint it.
type Picture struct {
	image.Image
	id string
}

var _ engine.AssetPicture = (*Picture)(nil)

func (p *Picture) AssetID() string { return p.id }

// Store keeps assets as PNG files in a directory and caches decoded images.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Picture
}

// NewStore opens a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Store{dir: dir, cache: make(map[string]*Picture)}, nil
}

func (s *Store) Dir() string { return s.dir }

// Put decodes a PNG or JPEG image from r and saves it as PNG under a new id.
func (s *Store) Put(r io.Reader) (*Picture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	id := typeid.NewAssetID()
	path := s.path(id)
	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create asset file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return nil, fmt.Errorf("encode png: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close asset file: %w", err)
	}

	pic := &Picture{Image: img, id: id}
	s.mu.Lock()
	s.cache[id] = pic
	s.mu.Unlock()
	return pic, nil
}

// Get returns the picture for id, loading it from disk on first use.
func (s *Store) Get(id string) (*Picture, error) {
	if err := typeid.Validate(id, typeid.PrefixAsset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	s.mu.RLock()
	pic, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return pic, nil
	}

	f, err := os.Open(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", id, err)
	}
	pic = &Picture{Image: img, id: id}

	s.mu.Lock()
	s.cache[id] = pic
	s.mu.Unlock()
	return pic, nil
}

// Picture looks id up for the engine. It returns nil for unknown ids.
func (s *Store) Picture(id string) engine.Picture {
	pic, err := s.Get(id)
	if err != nil {
		return nil
	}
	return pic
}

// Delete removes an asset from disk and the cache.
func (s *Store) Delete(id string) error {
	if err := typeid.Validate(id, typeid.PrefixAsset); err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".png")
}
