package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// UploadsDir is the subdirectory of the static dir holding uploads.
const UploadsDir = "uploads"

// Library writes uploads to disk and records them in a Store.
type Library struct {
	store     *Store
	dir       string
	urlPrefix string
	logger    *zap.Logger
	now       func() time.Time
}

// NewLibrary stores files under staticDir/uploads, served at /uploads/.
func NewLibrary(store *Store, staticDir string, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		store:     store,
		dir:       filepath.Join(staticDir, UploadsDir),
		urlPrefix: "/" + UploadsDir + "/",
		logger:    logger,
		now:       time.Now,
	}
}

// Dir is where uploads are written.
func (l *Library) Dir() string { return l.dir }

func (l *Library) withURL(img Image) Image {
	img.URL = path.Join(l.urlPrefix, img.Filename)
	return img
}

// Upload processes and stores one image. size is the declared upload size.
func (l *Library) Upload(ctx context.Context, src io.Reader, size int64, originalName, uploadedBy string) (Image, error) {
	if size > MaxUploadSize {
		return Image{}, ErrTooLarge
	}
	data, w, h, err := process(io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		return Image{}, err
	}
	filename, err := l.uniqueName(ctx, baseName(originalName))
	if err != nil {
		return Image{}, err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return Image{}, errors.Wrap(err, "media: create uploads dir")
	}
	if err := os.WriteFile(filepath.Join(l.dir, filename), data, 0o644); err != nil {
		return Image{}, errors.Wrap(err, "media: write image")
	}
	img := Image{
		Filename:     filename,
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         int64(len(data)),
		UploadedBy:   uploadedBy,
		UploadedAt:   l.now().UTC(),
	}
	if err := l.store.Save(ctx, img); err != nil {
		os.Remove(filepath.Join(l.dir, filename))
		return Image{}, err
	}
	l.logger.Info("image uploaded", zap.String("filename", filename), zap.Int("width", w), zap.Int("height", h))
	return l.withURL(img), nil
}

// uniqueName appends a counter until the name is free on disk and in the
// store.
func (l *Library) uniqueName(ctx context.Context, base string) (string, error) {
	candidate := base + ".jpg"
	for n := 2; ; n++ {
		_, statErr := os.Stat(filepath.Join(l.dir, candidate))
		taken, err := l.store.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if os.IsNotExist(statErr) && !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, n)
	}
}

// List returns stored images with their public URLs.
func (l *Library) List(ctx context.Context) ([]Image, error) {
	images, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range images {
		images[i] = l.withURL(images[i])
	}
	return images, nil
}

// Delete removes an image from disk and the store.
func (l *Library) Delete(ctx context.Context, filename string) error {
	if !validName(filename) {
		return ErrInvalidName
	}
	if err := l.store.Delete(ctx, filename); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.dir, filename)); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("remove image file", zap.String("filename", filename), zap.Error(err))
	}
	return nil
}
