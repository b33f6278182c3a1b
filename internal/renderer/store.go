package renderer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultRetention is the number of artifacts kept per composition and kind
// after pruning.
const DefaultRetention = 10

var timestampSanitizer = strings.NewReplacer(":", "-", ".", "-")

type artifactKey struct {
	id   CompositionID
	kind Kind
}

// Store manages the on-disk directory of rendered artifacts. The directory is
// the source of truth; an in-memory index (compositionId+kind to records,
// newest first) is rebuilt from a scan at startup and maintained on
// write/delete/prune so lookups never re-scan the directory.
type Store struct {
	dir string
	log *slog.Logger

	mu    sync.RWMutex
	index map[artifactKey][]ArtifactRecord
}

// NewStore creates the artifact directory if needed and indexes any files
// already present.
func NewStore(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	s := &Store{dir: dir, log: log, index: make(map[artifactKey][]ArtifactRecord)}
	if err := s.rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the artifact directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) rescan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scan artifact dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = make(map[artifactKey][]ArtifactRecord)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rec, ok := s.statRecord(entry.Name())
		if !ok {
			continue
		}
		key := artifactKey{rec.CompositionID, kindForType(rec.Type)}
		s.index[key] = append(s.index[key], rec)
	}
	for key := range s.index {
		sortNewestFirst(s.index[key])
	}
	return nil
}

// statRecord builds an ArtifactRecord for the named file, or reports false if
// the name does not follow the artifact naming scheme or the file is gone.
func (s *Store) statRecord(name string) (ArtifactRecord, bool) {
	id, kind, ok := parseArtifactName(name)
	if !ok {
		return ArtifactRecord{}, false
	}
	fi, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		return ArtifactRecord{}, false
	}
	return ArtifactRecord{
		CompositionID: id,
		Filename:      name,
		SizeBytes:     fi.Size(),
		CreatedAt:     fi.ModTime(),
		ModifiedAt:    fi.ModTime(),
		Type:          kind.ArtifactType(),
	}, true
}

// parseArtifactName splits "{compositionId}_{timestamp}.{ext}" into its
// composition ID and artifact kind. The separator is required: a file named
// "TitleScreen_..." never matches composition "Title".
func parseArtifactName(name string) (CompositionID, Kind, bool) {
	var kind Kind
	switch {
	case strings.HasSuffix(name, ".mp4"):
		kind = KindComposition
	case strings.HasSuffix(name, ".png"):
		kind = KindStill
	default:
		return "", "", false
	}
	base := strings.TrimSuffix(name, kind.Extension())
	i := strings.LastIndex(base, "_")
	if i <= 0 {
		return "", "", false
	}
	return CompositionID(base[:i]), kind, true
}

func kindForType(artifactType string) Kind {
	if artifactType == "still" {
		return KindStill
	}
	return KindComposition
}

func sortNewestFirst(list []ArtifactRecord) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].ModifiedAt.After(list[j].ModifiedAt)
	})
}

// FindCached returns the most recently modified artifact for the composition
// and kind, if any. Ties in the index are already resolved newest-first.
func (s *Store) FindCached(id CompositionID, kind Kind) (ArtifactRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.index[artifactKey{id, kind}]
	if len(list) == 0 {
		return ArtifactRecord{}, false
	}
	return list[0], true
}

// Allocate reserves a timestamped filename for a new artifact and returns it
// together with the absolute output path. The directory create is idempotent.
// The renderer writes the bytes; the store only owns naming and placement.
func (s *Store) Allocate(id CompositionID, kind Kind) (filename, path string, err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create artifact dir: %w", err)
	}
	filename = artifactFilename(id, kind, time.Now())
	return filename, filepath.Join(s.dir, filename), nil
}

// artifactFilename builds "{compositionId}_{timestamp}.{ext}" with ':' and
// '.' in the ISO timestamp replaced by '-'.
func artifactFilename(id CompositionID, kind Kind, now time.Time) string {
	ts := timestampSanitizer.Replace(now.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	return string(id) + "_" + ts + kind.Extension()
}

// Commit records a freshly rendered file in the index. The file must exist;
// a render that failed before producing output never reaches Commit.
func (s *Store) Commit(filename string) (ArtifactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.statRecord(filename)
	if !ok {
		return ArtifactRecord{}, fmt.Errorf("commit artifact %q: file missing or malformed name", filename)
	}
	key := artifactKey{rec.CompositionID, kindForType(rec.Type)}
	s.index[key] = append(s.index[key], rec)
	sortNewestFirst(s.index[key])
	return rec, nil
}

// List returns every indexed artifact sorted by modification time descending.
func (s *Store) List() []ArtifactRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ArtifactRecord
	for _, list := range s.index {
		out = append(out, list...)
	}
	sortNewestFirst(out)
	return out
}

// Delete removes the named artifact from disk and the index. Filenames with
// path separators are rejected so the endpoint cannot reach outside the
// artifact directory.
func (s *Store) Delete(filename string) error {
	if filename == "" || filename != filepath.Base(filename) {
		return fmt.Errorf("%w: invalid filename %q", ErrValidation, filename)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArtifactNotFound, filename)
		}
		return fmt.Errorf("delete artifact %q: %w", filename, err)
	}

	if id, kind, ok := parseArtifactName(filename); ok {
		key := artifactKey{id, kind}
		list := s.index[key]
		for i, rec := range list {
			if rec.Filename == filename {
				s.index[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Prune deletes all but the keep newest artifacts for the composition and
// kind. Individual deletion failures are logged and skipped; pruning never
// fails the render that triggered it.
func (s *Store) Prune(id CompositionID, kind Kind, keep int) {
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := artifactKey{id, kind}
	list := s.index[key]
	if len(list) <= keep {
		return
	}

	survivors := append([]ArtifactRecord(nil), list[:keep]...)
	for _, rec := range list[keep:] {
		if err := os.Remove(filepath.Join(s.dir, rec.Filename)); err != nil && !os.IsNotExist(err) {
			s.log.Warn("prune: could not delete artifact",
				slog.String("filename", rec.Filename),
				slog.String("error", err.Error()))
			survivors = append(survivors, rec)
			continue
		}
		s.log.Debug("pruned old artifact", slog.String("filename", rec.Filename))
	}
	s.index[key] = survivors
}
