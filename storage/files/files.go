// Package files stores uploaded content on the filesystem, keyed by
// category. Stored names are sanitized and made unique; callers keep the
// original name for serving.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
)

// Upload categories; each maps to a directory under the uploads root.
const (
	CategoryChat        = "chat"
	CategoryNotes       = "notes"
	CategoryActivities  = "activities"
	CategorySubmissions = "submissions"
	CategorySchedules   = "schedules"
	CategoryAvatars     = "avatars"
)

var (
	ErrFileTooBig   = errors.New("file exceeds the maximum allowed size")
	ErrBadExtension = errors.New("file extension not allowed")
	ErrNotFound     = errors.New("file not found")
)

// allowedExts per category; empty list = any extension.
var allowedExts = map[string][]string{
	CategorySchedules: {".jpg", ".jpeg", ".png", ".xlsx", ".xls"},
	CategoryAvatars:   {".jpg", ".jpeg", ".png"},
	CategoryChat:      {".pdf", ".doc", ".docx", ".jpg", ".jpeg", ".png", ".zip"},
}

type Store struct {
	root string
	conf *core.Config
}

func NewStore(conf *core.Config) (*Store, error) {
	root := conf.Uploads.Root
	if !filepath.IsAbs(root) {
		root = filepath.Join(conf.WorkDir, root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads root")
	}
	return &Store{root: root, conf: conf}, nil
}

// maxSize for the category; schedules carry a tighter cap.
func (s *Store) maxSize(category string) int64 {
	if category == CategorySchedules {
		return s.conf.Uploads.ScheduleMaxSize
	}
	return s.conf.Uploads.MaxSize
}

// validate enforces the category's size cap and extension allow-list.
// Callers map the sentinels to the form field they bound the upload to.
func (s *Store) validate(category, filename string, size int64) error {
	if size > s.maxSize(category) {
		return ErrFileTooBig
	}
	exts, ok := allowedExts[category]
	if !ok {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range exts {
		if ext == allowed {
			return nil
		}
	}
	return ErrBadExtension
}

// Store saves the content under <root>/<category>/ and returns the stored
// (unique, sanitized) filename.
func (s *Store) Store(category, filename string, size int64, content io.Reader) (string, error) {
	if err := s.validate(category, filename, size); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating category dir")
	}

	stored := fmt.Sprintf("%s%s", uuid.New().String(), sanitizeExt(filename))
	f, err := os.OpenFile(filepath.Join(dir, stored), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	defer func() { _ = f.Close() }()

	// the size header is client-supplied; enforce the cap on the bytes too
	n, err := io.Copy(f, io.LimitReader(content, s.maxSize(category)+1))
	if err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	if n > s.maxSize(category) {
		_ = os.Remove(filepath.Join(dir, stored))
		return "", ErrFileTooBig
	}
	return stored, nil
}

// Open returns a reader over a stored file.
func (s *Store) Open(category, stored string) (*os.File, error) {
	path, err := s.Path(category, stored)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, errors.Wrap(err, "opening file")
}

// Path resolves a stored filename, refusing anything that escapes the
// category directory.
func (s *Store) Path(category, stored string) (string, error) {
	if stored != filepath.Base(stored) || stored == "." || stored == ".." {
		return "", ErrNotFound
	}
	return filepath.Join(s.root, category, stored), nil
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	var clean strings.Builder
	for _, r := range ext {
		if r == '.' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			clean.WriteRune(r)
		}
	}
	return clean.String()
}
