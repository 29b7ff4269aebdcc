// Package inmemdb provides map-backed repositories for tests and local
// development without PostgreSQL.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/GrupoTcc462/StudyMate/core/activity"
	"github.com/GrupoTcc462/StudyMate/core/chat"
	"github.com/GrupoTcc462/StudyMate/core/note"
	"github.com/GrupoTcc462/StudyMate/core/profile"
	"github.com/GrupoTcc462/StudyMate/core/schedule"
	"github.com/GrupoTcc462/StudyMate/core/subject"
	"github.com/GrupoTcc462/StudyMate/core/user"
)

type pair struct{ a, b string }

type DB struct {
	mutex sync.RWMutex

	users    map[string]*user.User
	profiles map[string]*profile.Profile

	chats             map[string]*chat.Chat
	messages          map[string]*chat.Message
	messageDeletions  map[pair]bool // (messageID, viewerID)

	subjects     map[string]*subject.Subject
	subjectLinks map[string]*subject.ExternalLink

	notes               map[string]*note.Note
	noteViews           map[pair]bool // (noteID, userID)
	noteLikes           map[pair]bool
	noteRecommendations map[pair]*note.Recommendation // (noteID, teacherID)
	noteComments        map[string]*note.Comment

	activities          map[string]*activity.Activity
	activityViews       map[pair]bool // (activityID, studentID)
	activitySaves       map[pair]bool
	activitySubmissions map[string]*activity.Submission

	schedules map[string]*schedule.Schedule
}

func NewDB() *DB {
	return &DB{
		users:    make(map[string]*user.User),
		profiles: make(map[string]*profile.Profile),

		chats:            make(map[string]*chat.Chat),
		messages:         make(map[string]*chat.Message),
		messageDeletions: make(map[pair]bool),

		subjects:     make(map[string]*subject.Subject),
		subjectLinks: make(map[string]*subject.ExternalLink),

		notes:               make(map[string]*note.Note),
		noteViews:           make(map[pair]bool),
		noteLikes:           make(map[pair]bool),
		noteRecommendations: make(map[pair]*note.Recommendation),
		noteComments:        make(map[string]*note.Comment),

		activities:          make(map[string]*activity.Activity),
		activityViews:       make(map[pair]bool),
		activitySaves:       make(map[pair]bool),
		activitySubmissions: make(map[string]*activity.Submission),

		schedules: make(map[string]*schedule.Schedule),
	}
}

func newID() string { return uuid.New().String() }
