package inmemdb

import (
	"context"
	"sort"

	"github.com/GrupoTcc462/StudyMate/core/profile"
	"github.com/GrupoTcc462/StudyMate/core/schedule"
	"github.com/GrupoTcc462/StudyMate/core/stats"
	"github.com/GrupoTcc462/StudyMate/core/subject"
)

// subject

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) GetSubject(_ context.Context, id string) (subject.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return *s, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) GetSubjectBySlug(_ context.Context, slug string) (subject.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.subjects {
		if s.Slug == slug {
			return *s, nil
		}
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) QuerySubjects(_ context.Context) ([]subject.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]subject.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		sub := *s
		for _, n := range repo.db.notes {
			if n.SubjectID == s.ID {
				sub.NoteCount++
			}
		}
		subjects = append(subjects, sub)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *subjectRepository) CreateSubject(_ context.Context, s subject.Subject) (subject.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.subjects {
		if existing.Slug == s.Slug {
			return subject.Subject{}, subject.ErrSlugExists
		}
	}
	s.ID = newID()
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *subjectRepository) UpdateSubject(_ context.Context, s subject.Subject) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects[s.ID]; !ok {
		return subject.ErrNotFound
	}
	for _, existing := range repo.db.subjects {
		if existing.ID != s.ID && existing.Slug == s.Slug {
			return subject.ErrSlugExists
		}
	}
	repo.db.subjects[s.ID] = &s
	return nil
}

func (repo *subjectRepository) DeleteSubject(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return subject.ErrNotFound
	}
	delete(repo.db.subjects, id)
	return nil
}

func (repo *subjectRepository) QueryLinks(_ context.Context, subjectID string) ([]subject.ExternalLink, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var links []subject.ExternalLink
	for _, l := range repo.db.subjectLinks {
		if l.SubjectID == subjectID {
			links = append(links, *l)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].CreatedAt.Before(links[j].CreatedAt) })
	return links, nil
}

func (repo *subjectRepository) CreateLink(_ context.Context, link subject.ExternalLink) (subject.ExternalLink, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	link.ID = newID()
	repo.db.subjectLinks[link.ID] = &link
	return link, nil
}

func (repo *subjectRepository) DeleteLink(_ context.Context, subjectID, linkID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if l, ok := repo.db.subjectLinks[linkID]; ok && l.SubjectID == subjectID {
		delete(repo.db.subjectLinks, linkID)
		return nil
	}
	return subject.ErrNotFound
}

// schedule

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) GetSchedule(_ context.Context, id string) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.schedules[id]; ok {
		return *s, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) GetActiveSchedule(_ context.Context) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.schedules {
		if s.Active {
			return *s, nil
		}
	}
	return schedule.Schedule{}, schedule.ErrNoActive
}

func (repo *scheduleRepository) QuerySchedules(_ context.Context) ([]schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	scheds := make([]schedule.Schedule, 0, len(repo.db.schedules))
	for _, s := range repo.db.schedules {
		scheds = append(scheds, *s)
	}
	sort.Slice(scheds, func(i, j int) bool { return scheds[i].ImportedAt.After(scheds[j].ImportedAt) })
	return scheds, nil
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.schedules {
		existing.Active = false
	}
	s.ID = newID()
	repo.db.schedules[s.ID] = &s
	return s, nil
}

// profile

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) GetProfile(_ context.Context, userID string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.profiles[userID]; ok {
		return *p, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) UpsertProfile(_ context.Context, p profile.Profile) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.profiles[p.UserID] = &p
	return nil
}

// stats

type statsRepository struct {
	db *DB
}

var _ stats.Repository = (*statsRepository)(nil)

func NewStatsRepository(db *DB) *statsRepository {
	return &statsRepository{db: db}
}

func (repo *statsRepository) CountSubjects(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.subjects), nil
}

func (repo *statsRepository) CountNotes(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.notes), nil
}
