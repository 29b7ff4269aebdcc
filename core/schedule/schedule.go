package schedule

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
)

var (
	// errors
	ErrNotFound = errors.New("schedule not found")
	ErrNoActive = errors.New("no active schedule")
)

// FileKind is detected from the uploaded file's extension.
type FileKind string

const (
	KindImage FileKind = "IMAGEM"
	KindExcel FileKind = "EXCEL"
)

// DetectKind maps a filename extension to its schedule kind.
func DetectKind(filename string) (FileKind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return KindImage, nil
	case ".xlsx", ".xls":
		return KindExcel, nil
	}
	return "", core.NewValidationError(nil,
		core.FieldError{Field: "file", Error: "only .jpg, .jpeg, .png, .xlsx and .xls files are accepted"})
}

type (
	Schedule struct {
		ID           string    `json:"id"`
		UploaderID   string    `json:"uploader_id"`
		UploaderName string    `json:"uploader_name,omitempty"`
		File         string    `json:"file"` // stored filename
		FileName     string    `json:"file_name"`
		Kind         FileKind  `json:"kind"`
		Active       bool      `json:"active"`
		ImportedAt   time.Time `json:"imported_at"` // UTC
	}

	Repository interface {
		GetSchedule(ctx context.Context, id string) (Schedule, error)
		GetActiveSchedule(ctx context.Context) (Schedule, error)
		QuerySchedules(ctx context.Context) ([]Schedule, error)
		// CreateSchedule deactivates every other version and inserts the new
		// one as active, in a single transaction.
		CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Upload registers a new schedule version as the single active one.
// Concurrent uploads race; the last insert wins.
func (svc *Service) Upload(ctx context.Context, uploaderID, storedFile, originalName string) (Schedule, error) {
	kind, err := DetectKind(originalName)
	if err != nil {
		return Schedule{}, err
	}
	return svc.repo.CreateSchedule(ctx, Schedule{
		UploaderID: uploaderID,
		File:       storedFile,
		FileName:   originalName,
		Kind:       kind,
		Active:     true,
		ImportedAt: time.Now().UTC(),
	})
}

func (svc *Service) Active(ctx context.Context) (Schedule, error) {
	return svc.repo.GetActiveSchedule(ctx)
}

func (svc *Service) Get(ctx context.Context, id string) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, id)
}

// History lists every uploaded version, newest first.
func (svc *Service) History(ctx context.Context) ([]Schedule, error) {
	scheds, err := svc.repo.QuerySchedules(ctx)
	if scheds == nil {
		scheds = []Schedule{}
	}
	return scheds, err
}
