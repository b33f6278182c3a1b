package renderer

import (
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var dataURIPattern = regexp.MustCompile(`^data:([A-Za-z0-9.+/-]+);base64,(.+)$`)

// Uploader decodes embedded image data URIs into files usable as render
// inputs. Filenames are content-addressed (hash of the decoded bytes), so
// identical uploads land on the same file instead of accumulating copies.
type Uploader struct {
	dir string
	log *slog.Logger
}

// NewUploader creates the upload directory if needed.
func NewUploader(dir string, log *slog.Logger) (*Uploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploader{dir: dir, log: log}, nil
}

// Dir returns the upload directory path.
func (u *Uploader) Dir() string {
	return u.dir
}

// IngestEmbeddedImage stores the image carried in a
// "data:image/<subtype>;base64,<payload>" URI and returns its filename.
func (u *Uploader) IngestEmbeddedImage(dataURI string) (string, error) {
	m := dataURIPattern.FindStringSubmatch(dataURI)
	if m == nil {
		return "", ErrInvalidImageEncoding
	}

	mimeType, payload := m[1], m[2]
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w: mime type %q is not an image", ErrInvalidImageEncoding, mimeType)
	}
	ext := strings.TrimPrefix(mimeType, "image/")
	if ext == "" {
		ext = "png"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImageEncoding, err)
	}

	filename := fmt.Sprintf("uploaded_%x.%s", md5.Sum(data), ext)
	path := filepath.Join(u.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save uploaded image: %w", err)
	}

	u.log.Debug("image ingested",
		slog.String("filename", filename),
		slog.Int("size_bytes", len(data)))
	return filename, nil
}
