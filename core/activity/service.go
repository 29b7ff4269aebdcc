package activity

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/GrupoTcc462/StudyMate/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("activity not found")
	ErrSubmissionMissing = errors.New("submission not found")
	ErrNoSubmissions     = errors.New("this activity does not accept submissions")
	ErrDeadlinePassed    = errors.New("the submission deadline has passed")
	ErrAlreadySubmitted  = errors.New("you already submitted this activity")
	ErrNotAuthor         = errors.New("only the author can manage this activity")
	ErrNoDeadline        = errors.New("this activity has no deadline")
)

// NowFunc returns the current time; tests may swap it out.
var NowFunc = time.Now

type (
	Repository interface {
		GetActivity(ctx context.Context, id string) (Activity, error)
		QueryActivities(ctx context.Context, filter QueryFilter, year int) ([]Activity, error)
		QueryActivitiesByAuthor(ctx context.Context, authorID string) ([]TeacherSummary, error)
		CreateActivity(ctx context.Context, a Activity) (Activity, error)
		DeleteActivity(ctx context.Context, id string) error

		// InsertActivityView records one view per (activity, student);
		// reports whether the row was created.
		InsertActivityView(ctx context.Context, activityID, studentID string, at time.Time) (bool, error)
		IncrementViews(ctx context.Context, activityID string) (int, error)
		QueryViewedIDs(ctx context.Context, studentID string) (map[string]bool, error)

		GetSubmission(ctx context.Context, activityID, studentID string) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		QuerySubmissions(ctx context.Context, activityID string) ([]Submission, error)
		QuerySubmissionsByStudent(ctx context.Context, studentID string) (map[string]Submission, error)
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		UpdateSubmissionGrade(ctx context.Context, s Submission) error

		// InsertSave / DeleteSave toggle a bookmark and report whether
		// anything changed.
		InsertSave(ctx context.Context, activityID, studentID string, at time.Time) (bool, error)
		DeleteSave(ctx context.Context, activityID, studentID string) (bool, error)
		QuerySavedIDs(ctx context.Context, studentID string) (map[string]bool, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, author user.User, na NewActivity) (Activity, error) {
	a := Activity{
		AuthorID:    author.ID,
		AuthorName:  author.Name,
		Title:       na.Title,
		Description: na.Description,
		Kind:        na.Kind,
		Audience:    na.Audience,

		Deadline:         na.Deadline,
		AllowsSubmission: na.AllowsSubmission,
		Attachment:       na.Attachment,
		AttachmentName:   na.AttachmentName,
		CreatedAt:        NowFunc().UTC(),
	}
	// Notices never accept submissions, whatever the caller sent.
	if a.Kind.IsNotice() {
		a.AllowsSubmission = false
	}
	return svc.repo.CreateActivity(ctx, a)
}

func (svc *Service) Get(ctx context.Context, id string) (Activity, error) {
	return svc.repo.GetActivity(ctx, id)
}

// ListForStudent returns the activities visible to the student, annotated
// with their view, submission and bookmark state, filtered per the query.
func (svc *Service) ListForStudent(ctx context.Context, student user.User, filter QueryFilter) ([]Annotated, error) {
	if err := filter.Clean(); err != nil {
		return nil, err
	}
	acts, err := svc.repo.QueryActivities(ctx, filter, student.Year)
	if err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	viewed, err := svc.repo.QueryViewedIDs(ctx, student.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying views")
	}
	saved, err := svc.repo.QuerySavedIDs(ctx, student.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying saves")
	}
	subs, err := svc.repo.QuerySubmissionsByStudent(ctx, student.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	now := NowFunc().UTC()
	annotated := make([]Annotated, 0, len(acts))
	for _, a := range acts {
		ann := Annotated{Activity: a, Viewed: viewed[a.ID], Saved: saved[a.ID]}
		if sub, ok := subs[a.ID]; ok {
			s := sub
			ann.Submission = &s
		}
		if !matchesStatus(ann, filter.Status, now) {
			continue
		}
		annotated = append(annotated, ann)
	}
	return annotated, nil
}

func matchesStatus(ann Annotated, status StatusFilter, now time.Time) bool {
	switch status {
	case FilterOpen:
		return ann.AllowsSubmission && ann.Submission == nil &&
			(ann.Deadline == nil || ann.Deadline.After(now))
	case FilterSubmitted:
		return ann.Submission != nil
	case FilterPending:
		return ann.AllowsSubmission && ann.Submission == nil &&
			ann.Deadline != nil && ann.Deadline.After(now)
	}
	return true
}

// RecordView counts one view per student. Returns the current view count.
func (svc *Service) RecordView(ctx context.Context, activityID, studentID string) (int, error) {
	a, err := svc.repo.GetActivity(ctx, activityID)
	if err != nil {
		return 0, err
	}
	created, err := svc.repo.InsertActivityView(ctx, activityID, studentID, NowFunc().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "recording view")
	}
	if !created {
		return a.Views, nil
	}
	return svc.repo.IncrementViews(ctx, activityID)
}

// Submit hands in the student's work. One submission per student; rejected
// after the deadline or when the activity takes no submissions.
func (svc *Service) Submit(ctx context.Context, activityID string, student user.User, ns NewSubmission) (Submission, error) {
	a, err := svc.repo.GetActivity(ctx, activityID)
	if err != nil {
		return Submission{}, err
	}
	if !a.AllowsSubmission {
		return Submission{}, ErrNoSubmissions
	}
	now := NowFunc().UTC()
	if a.Deadline != nil && now.After(*a.Deadline) {
		return Submission{}, ErrDeadlinePassed
	}
	if _, err = svc.repo.GetSubmission(ctx, activityID, student.ID); err == nil {
		return Submission{}, ErrAlreadySubmitted
	} else if !errors.Is(err, ErrSubmissionMissing) {
		return Submission{}, err
	}

	return svc.repo.CreateSubmission(ctx, Submission{
		ActivityID:  activityID,
		StudentID:   student.ID,
		StudentName: student.Name,
		File:        ns.File,
		FileName:    ns.FileName,
		Comment:     ns.Comment,
		Status:      StatusSubmitted,
		SubmittedAt: now,
	})
}

// Grade records the teacher's mark and feedback on a submission.
func (svc *Service) Grade(ctx context.Context, submissionID string, teacher user.User, gs GradeSubmission) (Submission, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	a, err := svc.repo.GetActivity(ctx, sub.ActivityID)
	if err != nil {
		return Submission{}, err
	}
	if a.AuthorID != teacher.ID && !teacher.IsAdmin() {
		return Submission{}, ErrNotAuthor
	}

	now := NowFunc().UTC()
	sub.Grade = &gs.Grade
	sub.Feedback = gs.Feedback
	sub.Status = StatusGraded
	sub.GradedAt = &now
	if err = svc.repo.UpdateSubmissionGrade(ctx, sub); err != nil {
		return Submission{}, errors.Wrap(err, "updating grade")
	}
	return sub, nil
}

// ToggleSave bookmarks the activity for the student, or removes the bookmark.
func (svc *Service) ToggleSave(ctx context.Context, activityID, studentID string) (saved bool, err error) {
	if _, err = svc.repo.GetActivity(ctx, activityID); err != nil {
		return false, err
	}
	created, err := svc.repo.InsertSave(ctx, activityID, studentID, NowFunc().UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting save")
	}
	if created {
		return true, nil
	}
	if _, err = svc.repo.DeleteSave(ctx, activityID, studentID); err != nil {
		return false, errors.Wrap(err, "deleting save")
	}
	return false, nil
}

// TeacherPanel lists the teacher's own activities with engagement totals.
func (svc *Service) TeacherPanel(ctx context.Context, teacherID string) ([]TeacherSummary, error) {
	sums, err := svc.repo.QueryActivitiesByAuthor(ctx, teacherID)
	if sums == nil {
		sums = []TeacherSummary{}
	}
	return sums, err
}

func (svc *Service) Submissions(ctx context.Context, activityID string, teacher user.User) ([]Submission, error) {
	a, err := svc.repo.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if a.AuthorID != teacher.ID && !teacher.IsAdmin() {
		return nil, ErrNotAuthor
	}
	subs, err := svc.repo.QuerySubmissions(ctx, activityID)
	if subs == nil {
		subs = []Submission{}
	}
	return subs, err
}

// GetSubmission returns a submission for its owning student, the
// activity's author, or an admin.
func (svc *Service) GetSubmission(ctx context.Context, submissionID string, viewer user.User) (Submission, error) {
	sub, err := svc.repo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return Submission{}, err
	}
	if sub.StudentID == viewer.ID || viewer.IsAdmin() {
		return sub, nil
	}
	a, err := svc.repo.GetActivity(ctx, sub.ActivityID)
	if err != nil {
		return Submission{}, err
	}
	if a.AuthorID != viewer.ID {
		return Submission{}, ErrNotAuthor
	}
	return sub, nil
}

func (svc *Service) Delete(ctx context.Context, activityID string, actor user.User) error {
	a, err := svc.repo.GetActivity(ctx, activityID)
	if err != nil {
		return err
	}
	if a.AuthorID != actor.ID && !actor.IsAdmin() {
		return ErrNotAuthor
	}
	return svc.repo.DeleteActivity(ctx, activityID)
}
