package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"sync"
)

// ImageCache keeps decoded frames in memory, keyed by file path, so the
// preview and overlay renderers do not decode the same method output on every
// edit.
//
// ImageCache is safe for concurrent use. Cached images stay in memory until
// Evict is called; a session switching frames should evict the previous
// frame's images.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the decoded image at path, reading it from disk on first use.
// PNG, JPEG and GIF are supported. The path string is the cache key, so a
// relative and an absolute path to the same file are cached twice.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Evict drops the image cached under path. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo describes one method's output image for a frame.
type ImageInfo struct {
	Path          string `json:"path"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"` // from the file extension: png, jpeg, gif or unknown
	HasAlpha      bool   `json:"has_alpha"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo loads path through cache and reports its metadata.
//
// Parameters:
//   - cache: The cache the decoded image is stored in for later renders.
//   - path: File path of one method's output image.
//
// Returns:
//   - *ImageInfo: Path, size, format and colour model of the image.
//   - error: Non-nil if the image cannot be loaded or stat'ed.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch filepath.Ext(path) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	hasAlpha := false
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Path:          path,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult is the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the size of the image at path.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// FrameDimensions returns the shared size of one frame's method outputs.
// Every method's crop uses the same rectangle, so all images of a frame must
// have identical dimensions.
//
// Parameters:
//   - cache: The cache each image is loaded through.
//   - paths: The frame's method outputs, in method order.
//
// Returns:
//   - *DimensionsResult: The size shared by every image.
//   - error: Non-nil if an image fails to load or the sizes differ.
//
// # Errors
//
//   - Returns error if paths is empty
//   - Returns error naming the first image whose size differs from paths[0]
func FrameDimensions(cache *ImageCache, paths []string) (*DimensionsResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("frame has no images")
	}

	first, err := GetDimensions(cache, paths[0])
	if err != nil {
		return nil, err
	}
	for _, p := range paths[1:] {
		dims, err := GetDimensions(cache, p)
		if err != nil {
			return nil, err
		}
		if *dims != *first {
			return nil, fmt.Errorf("image %s is %dx%d, expected %dx%d like %s",
				p, dims.Width, dims.Height, first.Width, first.Height, paths[0])
		}
	}
	return first, nil
}
