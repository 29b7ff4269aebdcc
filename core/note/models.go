package note

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core"
)

// FileType classifies what a note carries: an uploaded document or an
// external link. TXT notes keep their content in the description.
type FileType string

const (
	TypeDoc  FileType = "DOC"
	TypePDF  FileType = "PDF"
	TypePPT  FileType = "PPT"
	TypeLink FileType = "LINK"
	TypeText FileType = "TXT"
)

var FileTypes = []FileType{TypeDoc, TypePDF, TypePPT, TypeLink, TypeText}

func (ft FileType) Valid() bool {
	for _, t := range FileTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Auto-recommendation engagement thresholds. One-way: crossing any of them
// sets the recommended flag; it is never auto-unset.
const (
	AutoRecommendDownloads = 20
	AutoRecommendLikes     = 40
	AutoRecommendViews     = 50
)

type Note struct {
	ID          string   `json:"id"`
	AuthorID    string   `json:"author_id"`
	AuthorName  string   `json:"author_name,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	FileType    FileType `json:"file_type"`
	File        string   `json:"file,omitempty"` // stored filename
	FileName    string   `json:"file_name,omitempty"`
	Link        string   `json:"link,omitempty"`
	SubjectID   string   `json:"subject_id,omitempty"`
	SubjectName string   `json:"subject_name,omitempty"`

	IsRecommended bool `json:"is_recommended"`
	Views         int  `json:"views"`
	Likes         int  `json:"likes"`
	Downloads     int  `json:"downloads"`

	CreatedAt time.Time `json:"created_at"` // UTC
}

// MeetsAutoRecommendThresholds reports whether engagement alone earns the
// recommended flag.
func (n *Note) MeetsAutoRecommendThresholds() bool {
	return n.Downloads >= AutoRecommendDownloads ||
		n.Likes >= AutoRecommendLikes ||
		n.Views >= AutoRecommendViews
}

type Recommendation struct {
	ID          string    `json:"id"`
	NoteID      string    `json:"note_id"`
	TeacherID   string    `json:"teacher_id"`
	TeacherName string    `json:"teacher_name,omitempty"`
	SubjectID   string    `json:"subject_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type Comment struct {
	ID         string    `json:"id"`
	NoteID     string    `json:"note_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type NewNote struct {
	Title       string   `json:"title" validate:"required,max=150"`
	Description string   `json:"description" validate:"max=800"`
	FileType    FileType `json:"file_type" validate:"required,filetype"`
	File        string   `json:"-"`
	FileName    string   `json:"-"`
	Link        string   `json:"link" validate:"omitempty,url"`
	SubjectID   string   `json:"subject_id"`
	// Teachers may mark their own note recommended at creation time.
	IsRecommended bool `json:"is_recommended"`
}

func (nn *NewNote) Validate(validate *validator.Validate) error {
	nn.Title = core.CleanString(nn.Title)
	nn.Description = core.CleanString(nn.Description)
	nn.Link = core.CleanString(nn.Link)

	if err := validate.Struct(nn); err != nil {
		return err
	}
	switch nn.FileType {
	case TypeLink:
		if nn.Link == "" {
			return core.NewFieldError("link", "link is required for LINK notes")
		}
	case TypeText:
		if nn.Description == "" {
			return core.NewFieldError("description", "description is required for TXT notes")
		}
	default:
		if nn.File == "" {
			return core.NewFieldError("file", "a file is required for this note type")
		}
	}
	return nil
}

type NewComment struct {
	Text string `json:"text" validate:"required,max=400"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Text = core.CleanString(nc.Text)
	return validate.Struct(nc)
}

type Ordering string

const (
	OrderRecent    Ordering = "recent"
	OrderLikes     Ordering = "likes"
	OrderViews     Ordering = "views"
	OrderDownloads Ordering = "downloads"
)

type QueryFilter struct {
	SubjectSlug     string   `query:"subject"`
	FileType        FileType `query:"file_type"`
	RecommendedOnly bool     `query:"recommended"`
	Order           Ordering `query:"order"`
	Page            int      `query:"page"`
	PageSize        int      `query:"page_size"`
}

const defaultPageSize = 12

func (qf *QueryFilter) Clean() error {
	qf.SubjectSlug = core.CleanString(qf.SubjectSlug, true /* lower */)
	if qf.FileType != "" && !qf.FileType.Valid() {
		return core.NewValidationError(errors.New("invalid file type"))
	}
	if qf.Order == "" {
		qf.Order = OrderRecent
	}
	if qf.Page < 1 {
		qf.Page = 1
	}
	if qf.PageSize < 1 || qf.PageSize > 50 {
		qf.PageSize = defaultPageSize
	}
	return nil
}
