package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrImageLoad is wrapped by every error caused by a missing, unreadable or
// undecodable image file.
var ErrImageLoad = errors.New("image load failed")

// Load opens and decodes the image at path.
//
// The decoded image is in ingestion (RGB) space. Its concrete type depends on
// the file format (e.g., *image.YCbCr for JPEG, *image.NRGBA for PNG).
//
// # Errors
//
//   - Returns ErrImageLoad if the file does not exist or cannot be read
//   - Returns ErrImageLoad if the bytes are not a supported image format
//   - Returns ErrImageLoad if the image decodes to zero pixels
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrImageLoad, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrImageLoad, path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrImageLoad, path)
	}

	return img, nil
}

// IsImageFile reports whether name carries an extension Load can decode.
// Directory expansion uses it to skip sidecar files such as .txt or .DS_Store.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

// ImageCache provides thread-safe caching of decoded images to avoid
// redundant disk reads when the same leaf photo is inspected repeatedly.
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). Cached images are shared; callers must not mutate them.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// The image is cached using the exact path string provided. Different paths
// to the same file will result in separate cache entries. Errors wrap
// ErrImageLoad and nothing is cached on failure.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}
