package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StagedScheme prefixes the URIs handed out by Staging.
const StagedScheme = "staged://"

// StagingTTL is how long an attachment stays staged before the sweep drops it.
const StagingTTL = 24 * time.Hour

const stagingSweepInterval = time.Hour

var ErrNotStaged = errors.New("media: attachment is not staged")

type stagedFile struct {
	path     string
	stagedAt time.Time
}

// Staging keeps attachments on local disk between the moment a client picks
// them and the moment the sighting is posted. A staged URI ends with the
// original file name, so IsImage works on it directly. Attachments older than
// StagingTTL are removed by a background sweep started on first Put.
type Staging struct {
	dir string

	mu    sync.Mutex
	files map[string]stagedFile
	once  sync.Once
}

func NewStaging(dir string) (*Staging, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Staging{dir: dir, files: make(map[string]stagedFile)}, nil
}

// Put copies r into the staging area and returns its URI.
func (s *Staging) Put(name string, r io.Reader) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", errors.New("media: attachment has no file name")
	}
	s.once.Do(func() { go s.cleanupLoop() })

	id := uuid.NewString()
	dir := filepath.Join(s.dir, id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.RemoveAll(dir)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.RemoveAll(dir)
		return "", err
	}

	uri := StagedScheme + id + "/" + name
	s.mu.Lock()
	s.files[uri] = stagedFile{path: path, stagedAt: time.Now()}
	s.mu.Unlock()
	return uri, nil
}

// Resolve returns the source behind a staged URI.
func (s *Staging) Resolve(uri string) (Source, error) {
	s.mu.Lock()
	f, ok := s.files[uri]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotStaged, uri)
	}
	return LocalFile(f.path), nil
}

// ResolveAll resolves every URI, failing on the first unknown one.
func (s *Staging) ResolveAll(uris []string) ([]Source, error) {
	out := make([]Source, 0, len(uris))
	for _, uri := range uris {
		src, err := s.Resolve(uri)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// Remove deletes a staged attachment. Unknown URIs are ignored.
func (s *Staging) Remove(uri string) {
	s.mu.Lock()
	f, ok := s.files[uri]
	delete(s.files, uri)
	s.mu.Unlock()
	if ok {
		_ = os.RemoveAll(filepath.Dir(f.path))
	}
}

// sweep removes attachments staged more than StagingTTL before now.
func (s *Staging) sweep(now time.Time) {
	var expired []string
	s.mu.Lock()
	for uri, f := range s.files {
		if now.Sub(f.stagedAt) > StagingTTL {
			expired = append(expired, filepath.Dir(f.path))
			delete(s.files, uri)
		}
	}
	s.mu.Unlock()
	for _, dir := range expired {
		_ = os.RemoveAll(dir)
	}
}

func (s *Staging) cleanupLoop() {
	ticker := time.NewTicker(stagingSweepInterval)
	defer ticker.Stop()
	for now := range ticker.C {
		s.sweep(now)
	}
}
