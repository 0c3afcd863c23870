package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giriprasad013-git/modern-blog/database"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(database.DriverSQLite, filepath.Join(dir, "media.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLibrary(NewStore(db), filepath.Join(dir, "public"), nil)
}

func TestUploadResizesAndStores(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	data := pngBytes(t, 1600, 400)

	img, err := lib.Upload(ctx, bytes.NewReader(data), int64(len(data)), "My Cover Photo.PNG", "editor-1")
	require.NoError(t, err)
	assert.Equal(t, "my-cover-photo.jpg", img.Filename)
	assert.Equal(t, 800, img.Width)
	assert.Equal(t, 200, img.Height)
	assert.Equal(t, "/uploads/my-cover-photo.jpg", img.URL)

	stored, err := os.ReadFile(filepath.Join(lib.Dir(), img.Filename))
	require.NoError(t, err)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 800, cfg.Width)

	again, err := lib.Upload(ctx, bytes.NewReader(data), int64(len(data)), "my cover photo.png", "")
	require.NoError(t, err)
	assert.Equal(t, "my-cover-photo-2.jpg", again.Filename)

	list, err := lib.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUploadKeepsSmallImages(t *testing.T) {
	lib := newTestLibrary(t)
	data := pngBytes(t, 120, 80)
	img, err := lib.Upload(context.Background(), bytes.NewReader(data), int64(len(data)), "../../etc/x.png", "")
	require.NoError(t, err)
	assert.Equal(t, "x.jpg", img.Filename)
	assert.Equal(t, 120, img.Width)
	assert.Equal(t, 80, img.Height)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "img-2041-v2", baseName("IMG_2041.v2.png"))
	assert.Equal(t, "dont-crop", baseName(`C:\photos\Don't Crop.jpeg`))
	assert.Equal(t, "image", baseName("???.png"))
}

func TestUploadRejects(t *testing.T) {
	lib := newTestLibrary(t)
	_, err := lib.Upload(context.Background(), strings.NewReader("not an image"), 12, "a.png", "")
	assert.Equal(t, ErrInvalidImage, err)

	_, err = lib.Upload(context.Background(), strings.NewReader(""), MaxUploadSize+1, "a.png", "")
	assert.Equal(t, ErrTooLarge, err)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	lib := newTestLibrary(t)
	data := pngBytes(t, 10, 10)
	img, err := lib.Upload(ctx, bytes.NewReader(data), int64(len(data)), "dot.png", "")
	require.NoError(t, err)

	assert.Equal(t, ErrInvalidName, lib.Delete(ctx, "../dot.jpg"))
	require.NoError(t, lib.Delete(ctx, img.Filename))
	_, err = os.Stat(filepath.Join(lib.Dir(), img.Filename))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, ErrNotFound, lib.Delete(ctx, img.Filename))
}
