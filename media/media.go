// Package media stores CMS cover images: uploads are decoded, scaled down
// and re-encoded as JPEG under the static uploads directory.
package media

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/Giriprasad013-git/modern-blog/content"
)

const (
	MaxWidth      = 800
	MaxUploadSize = 10 << 20
	jpegQuality   = 80
)

var (
	ErrNotFound     = errors.New("image not found")
	ErrTooLarge     = errors.New("File too large (max 10MB)")
	ErrInvalidImage = errors.New("Invalid image")
	ErrInvalidName  = errors.New("invalid filename")
)

// Image is the metadata of one stored upload.
type Image struct {
	Filename     string    `db:"filename" json:"filename"`
	OriginalName string    `db:"original_name" json:"original_name"`
	Width        int       `db:"width" json:"width"`
	Height       int       `db:"height" json:"height"`
	Size         int64     `db:"size" json:"size"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
	URL          string    `db:"-" json:"url"`
}

// process decodes src, scales it to at most MaxWidth wide and encodes it as
// JPEG.
func process(src io.Reader) ([]byte, int, int, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, 0, 0, ErrInvalidImage
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > MaxWidth {
		newH := h * MaxWidth / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, MaxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img, w, h = dst, MaxWidth, newH
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, errors.Wrap(err, "media: encode jpeg")
	}
	return buf.Bytes(), w, h, nil
}

var nameSeparators = strings.NewReplacer("_", " ", ".", " ")

// baseName turns an uploaded file name into a slug without extension.
func baseName(original string) string {
	name := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if s := content.Slugify(nameSeparators.Replace(name)); s != "" {
		return s
	}
	return "image"
}

// validName reports whether filename is a bare file name we could have
// written.
func validName(filename string) bool {
	return filename != "" &&
		filename == filepath.Base(filename) &&
		!strings.HasPrefix(filename, ".") &&
		strings.HasSuffix(filename, ".jpg")
}
