package renderer

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"render-orchestrator/internal/platform/logger"
)

func newTestUploader(t *testing.T) *Uploader {
	t.Helper()
	u, err := NewUploader(t.TempDir(), logger.Nop())
	if err != nil {
		t.Fatalf("NewUploader: %v", err)
	}
	return u
}

func dataURI(mime string, payload []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload)
}

func TestUploader_IngestEmbeddedImage(t *testing.T) {
	u := newTestUploader(t)
	payload := []byte("fake png bytes")

	filename, err := u.IngestEmbeddedImage(dataURI("image/png", payload))
	if err != nil {
		t.Fatalf("IngestEmbeddedImage: %v", err)
	}
	if !strings.HasPrefix(filename, "uploaded_") || !strings.HasSuffix(filename, ".png") {
		t.Errorf("unexpected filename %q", filename)
	}

	stored, err := os.ReadFile(filepath.Join(u.Dir(), filename))
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if string(stored) != string(payload) {
		t.Error("stored bytes differ from payload")
	}
}

func TestUploader_content_addressed_idempotence(t *testing.T) {
	u := newTestUploader(t)
	payload := []byte("same bytes every time")

	first, err := u.IngestEmbeddedImage(dataURI("image/png", payload))
	if err != nil {
		t.Fatal(err)
	}
	second, err := u.IngestEmbeddedImage(dataURI("image/png", payload))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("identical payloads should collide onto one file: %q vs %q", first, second)
	}

	entries, err := os.ReadDir(u.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected a single stored file, got %d", len(entries))
	}

	// One changed byte yields a different filename.
	payload[0]++
	third, err := u.IngestEmbeddedImage(dataURI("image/png", payload))
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Error("different payloads must not share a filename")
	}
}

func TestUploader_extension_from_mime(t *testing.T) {
	u := newTestUploader(t)

	filename, err := u.IngestEmbeddedImage(dataURI("image/jpeg", []byte("jpeg bytes")))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(filename, ".jpeg") {
		t.Errorf("expected .jpeg extension, got %q", filename)
	}
}

func TestUploader_rejects_malformed_input(t *testing.T) {
	u := newTestUploader(t)

	cases := map[string]string{
		"empty":           "",
		"no_data_prefix":  "image/png;base64,QUJD",
		"missing_payload": "data:image/png;base64,",
		"not_base64_flag": "data:image/png;hex,41424344",
		"non_image_mime":  dataURI("application/pdf", []byte("pdf")),
		"invalid_base64":  "data:image/png;base64,@@not-base64@@",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := u.IngestEmbeddedImage(input)
			if !errors.Is(err, ErrInvalidImageEncoding) {
				t.Errorf("expected ErrInvalidImageEncoding, got %v", err)
			}
		})
	}
}
