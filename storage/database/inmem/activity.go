package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/GrupoTcc462/StudyMate/core/activity"
)

type activityRepository struct {
	db *DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) GetActivity(_ context.Context, id string) (activity.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.activities[id]; ok {
		return *a, nil
	}
	return activity.Activity{}, activity.ErrNotFound
}

func (repo *activityRepository) QueryActivities(_ context.Context, filter activity.QueryFilter, year int) ([]activity.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var acts []activity.Activity
	for _, a := range repo.db.activities {
		if filter.Kind != "" && a.Kind != filter.Kind {
			continue
		}
		if !a.Includes(year) {
			continue
		}
		acts = append(acts, *a)
	}
	sort.Slice(acts, func(i, j int) bool { return acts[i].CreatedAt.After(acts[j].CreatedAt) })
	return acts, nil
}

func (repo *activityRepository) QueryActivitiesByAuthor(_ context.Context, authorID string) ([]activity.TeacherSummary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var sums []activity.TeacherSummary
	for _, a := range repo.db.activities {
		if a.AuthorID != authorID {
			continue
		}
		sum := activity.TeacherSummary{Activity: *a}
		for _, s := range repo.db.activitySubmissions {
			if s.ActivityID == a.ID {
				sum.SubmissionCount++
			}
		}
		sums = append(sums, sum)
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].CreatedAt.After(sums[j].CreatedAt) })
	return sums, nil
}

func (repo *activityRepository) CreateActivity(_ context.Context, a activity.Activity) (activity.Activity, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = newID()
	if author, ok := repo.db.users[a.AuthorID]; ok {
		a.AuthorName = author.Name
	}
	repo.db.activities[a.ID] = &a
	return a, nil
}

func (repo *activityRepository) DeleteActivity(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.activities[id]; !ok {
		return activity.ErrNotFound
	}
	delete(repo.db.activities, id)
	for sid, s := range repo.db.activitySubmissions {
		if s.ActivityID == id {
			delete(repo.db.activitySubmissions, sid)
		}
	}
	return nil
}

func (repo *activityRepository) InsertActivityView(_ context.Context, activityID, studentID string, _ time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pair{activityID, studentID}
	if repo.db.activityViews[key] {
		return false, nil
	}
	repo.db.activityViews[key] = true
	return true, nil
}

func (repo *activityRepository) IncrementViews(_ context.Context, activityID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.activities[activityID]
	if !ok {
		return 0, activity.ErrNotFound
	}
	a.Views++
	return a.Views, nil
}

func (repo *activityRepository) QueryViewedIDs(_ context.Context, studentID string) (map[string]bool, error) {
	return repo.pairSet(repo.db.activityViews, studentID), nil
}

func (repo *activityRepository) pairSet(table map[pair]bool, studentID string) map[string]bool {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	set := make(map[string]bool)
	for key := range table {
		if key.b == studentID {
			set[key.a] = true
		}
	}
	return set
}

func (repo *activityRepository) GetSubmission(_ context.Context, activityID, studentID string) (activity.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.activitySubmissions {
		if s.ActivityID == activityID && s.StudentID == studentID {
			return *s, nil
		}
	}
	return activity.Submission{}, activity.ErrSubmissionMissing
}

func (repo *activityRepository) GetSubmissionByID(_ context.Context, id string) (activity.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.activitySubmissions[id]; ok {
		return *s, nil
	}
	return activity.Submission{}, activity.ErrSubmissionMissing
}

func (repo *activityRepository) QuerySubmissions(_ context.Context, activityID string) ([]activity.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var subs []activity.Submission
	for _, s := range repo.db.activitySubmissions {
		if s.ActivityID == activityID {
			subs = append(subs, *s)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *activityRepository) QuerySubmissionsByStudent(_ context.Context, studentID string) (map[string]activity.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subs := make(map[string]activity.Submission)
	for _, s := range repo.db.activitySubmissions {
		if s.StudentID == studentID {
			subs[s.ActivityID] = *s
		}
	}
	return subs, nil
}

func (repo *activityRepository) CreateSubmission(_ context.Context, s activity.Submission) (activity.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.activitySubmissions {
		if existing.ActivityID == s.ActivityID && existing.StudentID == s.StudentID {
			return activity.Submission{}, activity.ErrAlreadySubmitted
		}
	}
	s.ID = newID()
	repo.db.activitySubmissions[s.ID] = &s
	return s, nil
}

func (repo *activityRepository) UpdateSubmissionGrade(_ context.Context, s activity.Submission) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.activitySubmissions[s.ID]; !ok {
		return activity.ErrSubmissionMissing
	}
	repo.db.activitySubmissions[s.ID] = &s
	return nil
}

func (repo *activityRepository) InsertSave(_ context.Context, activityID, studentID string, _ time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pair{activityID, studentID}
	if repo.db.activitySaves[key] {
		return false, nil
	}
	repo.db.activitySaves[key] = true
	return true, nil
}

func (repo *activityRepository) DeleteSave(_ context.Context, activityID, studentID string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pair{activityID, studentID}
	if !repo.db.activitySaves[key] {
		return false, nil
	}
	delete(repo.db.activitySaves, key)
	return true, nil
}

func (repo *activityRepository) QuerySavedIDs(_ context.Context, studentID string) (map[string]bool, error) {
	return repo.pairSet(repo.db.activitySaves, studentID), nil
}
