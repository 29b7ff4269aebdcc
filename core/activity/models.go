package activity

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/GrupoTcc462/StudyMate/core"
)

// Kind tells students what an activity expects of them. Both notice kinds
// never accept submissions.
type Kind string

const (
	KindAssignment   Kind = "ATIVIDADE"
	KindExamNotice   Kind = "AVISO_PROVA"
	KindSimpleNotice Kind = "AVISO_SIMPLES"
)

var Kinds = []Kind{KindAssignment, KindExamNotice, KindSimpleNotice}

func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (k Kind) IsNotice() bool {
	return k == KindExamNotice || k == KindSimpleNotice
}

// SubmissionStatus of a student's submission.
type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "ENVIADA"
	StatusGraded    SubmissionStatus = "CORRIGIDA"
)

type (
	// Audience selects which student years see an activity.
	Audience struct {
		Year1 bool `json:"year1"`
		Year2 bool `json:"year2"`
		Year3 bool `json:"year3"`
		All   bool `json:"all"`
	}

	Activity struct {
		ID          string `json:"id"`
		AuthorID    string `json:"author_id"`
		AuthorName  string `json:"author_name,omitempty"`
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
		Kind        Kind   `json:"kind"`
		Audience

		Deadline         *time.Time `json:"deadline,omitempty"` // UTC
		AllowsSubmission bool       `json:"allows_submission"`
		Attachment       string     `json:"attachment,omitempty"` // stored filename
		AttachmentName   string     `json:"attachment_name,omitempty"`
		Views            int        `json:"views"`

		CreatedAt time.Time `json:"created_at"` // UTC
	}

	// Annotated decorates an activity with per-student state for listings.
	Annotated struct {
		Activity
		Viewed     bool        `json:"viewed"`
		Saved      bool        `json:"saved"`
		Submission *Submission `json:"submission,omitempty"`
	}

	Submission struct {
		ID          string           `json:"id"`
		ActivityID  string           `json:"activity_id"`
		StudentID   string           `json:"student_id"`
		StudentName string           `json:"student_name,omitempty"`
		File        string           `json:"file"` // stored filename
		FileName    string           `json:"file_name,omitempty"`
		Comment     string           `json:"comment,omitempty"`
		Status      SubmissionStatus `json:"status"`
		Grade       *float64         `json:"grade,omitempty"`
		Feedback    string           `json:"feedback,omitempty"`
		SubmittedAt time.Time        `json:"submitted_at"`          // UTC
		GradedAt    *time.Time       `json:"graded_at,omitempty"`   // UTC
	}

	// TeacherSummary aggregates engagement for the teacher panel.
	TeacherSummary struct {
		Activity
		SubmissionCount int `json:"submission_count"`
	}

	NewActivity struct {
		Title       string `json:"title" validate:"required,max=50"`
		Description string `json:"description" validate:"max=1000"`
		Kind        Kind   `json:"kind" validate:"required,activitykind"`
		Audience

		Deadline         *time.Time `json:"deadline"`
		AllowsSubmission bool       `json:"allows_submission"`
		Attachment       string     `json:"-"`
		AttachmentName   string     `json:"-"`
	}

	NewSubmission struct {
		File     string `json:"-" validate:"required"`
		FileName string `json:"-"`
		Comment  string `json:"comment" validate:"max=500"`
	}

	GradeSubmission struct {
		Grade    float64 `json:"grade" validate:"min=0,max=10"`
		Feedback string  `json:"feedback" validate:"max=500"`
	}
)

// HasAudience reports whether at least one year (or all) is targeted.
func (a Audience) HasAudience() bool {
	return a.All || a.Year1 || a.Year2 || a.Year3
}

// Includes reports whether a student of the given year is targeted.
// A zero year (unknown) sees everything, matching pre-targeting behavior.
func (a Audience) Includes(year int) bool {
	if a.All || year == 0 {
		return true
	}
	switch year {
	case 1:
		return a.Year1
	case 2:
		return a.Year2
	case 3:
		return a.Year3
	}
	return false
}

func (na *NewActivity) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)

	if err := validate.Struct(na); err != nil {
		return err
	}
	if !na.HasAudience() {
		return core.NewFieldError("audience", "at least one year must be selected")
	}
	return nil
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Comment = core.CleanString(ns.Comment)
	return validate.Struct(ns)
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}

// StatusFilter narrows student listings.
type StatusFilter string

const (
	FilterOpen      StatusFilter = "open"      // accepts submissions, not yet submitted
	FilterSubmitted StatusFilter = "submitted" // student already submitted
	FilterPending   StatusFilter = "pending"   // deadline ahead, not submitted
)

type QueryFilter struct {
	Kind   Kind         `query:"kind"`
	Status StatusFilter `query:"status"`
}

func (qf *QueryFilter) Clean() error {
	if qf.Kind != "" && !qf.Kind.Valid() {
		return core.NewFieldError("kind", "invalid activity kind")
	}
	switch qf.Status {
	case "", FilterOpen, FilterSubmitted, FilterPending:
	default:
		return core.NewFieldError("status", "invalid status filter")
	}
	return nil
}
