package subject

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
)

var (
	// errors
	ErrNotFound     = errors.New("subject not found")
	ErrSlugExists   = errors.New("a subject with this name already exists")
	ErrTooManyLinks = errors.New("a subject can have at most 5 external links")
)

// MaxExternalLinks caps the curated reference links per subject.
const MaxExternalLinks = 5

type (
	Subject struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Slug        string    `json:"slug"`
		Description string    `json:"description,omitempty"`
		Icon        string    `json:"icon,omitempty"` // emoji shown next to the name
		IsActive    bool      `json:"is_active"`
		NoteCount   int       `json:"note_count"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}

	// ExternalLink is a teacher-curated reference attached to a subject.
	ExternalLink struct {
		ID        string    `json:"id"`
		SubjectID string    `json:"subject_id"`
		Title     string    `json:"title"`
		URL       string    `json:"url"`
		AddedBy   string    `json:"added_by"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	NewSubject struct {
		Name        string `json:"name" validate:"required,max=100"`
		Description string `json:"description" validate:"max=500"`
		Icon        string `json:"icon" validate:"max=8"`
	}

	UpdateSubject struct {
		Name        string `json:"name" validate:"omitempty,max=100"`
		Description string `json:"description" validate:"max=500"`
		Icon        string `json:"icon" validate:"max=8"`
		IsActive    *bool  `json:"is_active"`
	}

	NewExternalLink struct {
		Title string `json:"title" validate:"required,max=100"`
		URL   string `json:"url" validate:"required,url"`
	}

	Repository interface {
		GetSubject(ctx context.Context, id string) (Subject, error)
		GetSubjectBySlug(ctx context.Context, slug string) (Subject, error)
		QuerySubjects(ctx context.Context) ([]Subject, error)
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		UpdateSubject(ctx context.Context, s Subject) error
		DeleteSubject(ctx context.Context, id string) error

		QueryLinks(ctx context.Context, subjectID string) ([]ExternalLink, error)
		CreateLink(ctx context.Context, link ExternalLink) (ExternalLink, error)
		DeleteLink(ctx context.Context, subjectID, linkID string) error
	}

	Service struct {
		repo Repository
	}
)

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
	ns.Icon = core.CleanString(ns.Icon)
	return validate.Struct(ns)
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Description = core.CleanString(us.Description)
	us.Icon = core.CleanString(us.Icon)
	return validate.Struct(us)
}

func (nl *NewExternalLink) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.URL = core.CleanString(nl.URL)
	return validate.Struct(nl)
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) List(ctx context.Context) ([]Subject, error) {
	subjects, err := svc.repo.QuerySubjects(ctx)
	if subjects == nil {
		subjects = []Subject{}
	}
	return subjects, err
}

func (svc *Service) Get(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Subject, error) {
	return svc.repo.GetSubjectBySlug(ctx, slug)
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	return svc.repo.CreateSubject(ctx, Subject{
		Name:        ns.Name,
		Slug:        core.Slugify(ns.Name),
		Description: ns.Description,
		Icon:        ns.Icon,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	s, err := svc.repo.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if us.Name != "" && us.Name != s.Name {
		s.Name = us.Name
		s.Slug = core.Slugify(us.Name)
	}
	if us.Description != "" {
		s.Description = us.Description
	}
	if us.Icon != "" {
		s.Icon = us.Icon
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	s.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateSubject(ctx, s); err != nil {
		return Subject{}, err
	}
	return s, nil
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}

func (svc *Service) Links(ctx context.Context, subjectID string) ([]ExternalLink, error) {
	links, err := svc.repo.QueryLinks(ctx, subjectID)
	if links == nil {
		links = []ExternalLink{}
	}
	return links, err
}

func (svc *Service) AddLink(ctx context.Context, subjectID, addedBy string, nl NewExternalLink) (ExternalLink, error) {
	if _, err := svc.repo.GetSubject(ctx, subjectID); err != nil {
		return ExternalLink{}, err
	}
	links, err := svc.repo.QueryLinks(ctx, subjectID)
	if err != nil {
		return ExternalLink{}, errors.Wrap(err, "querying links")
	}
	if len(links) >= MaxExternalLinks {
		return ExternalLink{}, ErrTooManyLinks
	}
	return svc.repo.CreateLink(ctx, ExternalLink{
		SubjectID: subjectID,
		Title:     nl.Title,
		URL:       nl.URL,
		AddedBy:   addedBy,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) RemoveLink(ctx context.Context, subjectID, linkID string) error {
	return svc.repo.DeleteLink(ctx, subjectID, linkID)
}
