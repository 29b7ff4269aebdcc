package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/GrupoTcc462/StudyMate/apps/api/echo"
	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/activity"
	"github.com/GrupoTcc462/StudyMate/core/chat"
	"github.com/GrupoTcc462/StudyMate/core/note"
	"github.com/GrupoTcc462/StudyMate/core/profile"
	"github.com/GrupoTcc462/StudyMate/core/schedule"
	"github.com/GrupoTcc462/StudyMate/core/stats"
	"github.com/GrupoTcc462/StudyMate/core/subject"
	"github.com/GrupoTcc462/StudyMate/core/user"
	emailsvc "github.com/GrupoTcc462/StudyMate/services/email"
	logsvc "github.com/GrupoTcc462/StudyMate/services/logger"
	"github.com/GrupoTcc462/StudyMate/storage/database"
	sqlxrepos "github.com/GrupoTcc462/StudyMate/storage/database/sqlx"
	"github.com/GrupoTcc462/StudyMate/storage/files"
	"github.com/GrupoTcc462/StudyMate/storage/session"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile), conf)
	logger.Enable(!(conf.Debug || conf.TestMode))

	if err := run(conf, logger); err != nil {
		logger.Fatal("api: fatal", err)
	}
}

func run(conf *core.Config, logger core.Logger) error {
	// validation
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	note.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// database
	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	xdb := sqlx.NewDb(db, conf.Database.Engine)

	// sessions: redis when reachable, in-memory otherwise (dev only)
	var sessions core.SessionStore
	if store, err := session.NewRedisStore(conf); err == nil {
		sessions = store
		defer func() { _ = store.Close() }()
	} else if conf.Debug {
		logger.Warn("api: redis unavailable, using in-memory sessions", err)
		sessions = session.NewInmemStore()
	} else {
		return err
	}

	fileStore, err := files.NewStore(conf)
	if err != nil {
		return err
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// services
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(xdb), mailSvc, sessions, conf)
	chatSvc := chat.NewService(sqlxrepos.NewChatRepository(xdb), sessions)
	noteSvc := note.NewService(sqlxrepos.NewNoteRepository(xdb))
	subjectSvc := subject.NewService(sqlxrepos.NewSubjectRepository(xdb))
	activitySvc := activity.NewService(sqlxrepos.NewActivityRepository(xdb))
	scheduleSvc := schedule.NewService(sqlxrepos.NewScheduleRepository(xdb))
	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(xdb), usrSvc, conf)
	statsSvc := stats.NewService(sqlxrepos.NewStatsRepository(xdb), sessions)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:     conf.Server.Addr,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Files:       fileStore,
		Shutdown:    shutdown,
		UserSvc:     usrSvc,
		ChatSvc:     chatSvc,
		NoteSvc:     noteSvc,
		SubjectSvc:  subjectSvc,
		ActivitySvc: activitySvc,
		ScheduleSvc: scheduleSvc,
		ProfileSvc:  profileSvc,
		StatsSvc:    statsSvc,
	})

	go app.Start()
	logger.Info("api: listening on " + conf.Server.Addr)

	<-shutdown
	logger.Info("api: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	return app.Stop(ctx)
}
