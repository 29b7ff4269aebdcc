package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/GrupoTcc462/StudyMate/core"
	"github.com/GrupoTcc462/StudyMate/core/activity"
	"github.com/GrupoTcc462/StudyMate/core/chat"
	"github.com/GrupoTcc462/StudyMate/core/note"
	"github.com/GrupoTcc462/StudyMate/core/profile"
	"github.com/GrupoTcc462/StudyMate/core/schedule"
	"github.com/GrupoTcc462/StudyMate/core/stats"
	"github.com/GrupoTcc462/StudyMate/core/subject"
	"github.com/GrupoTcc462/StudyMate/core/user"
	"github.com/GrupoTcc462/StudyMate/storage/files"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Files      *files.Store
		Shutdown   chan os.Signal

		UserSvc     user.ServiceInterface
		ChatSvc     *chat.Service
		NoteSvc     *note.Service
		SubjectSvc  *subject.Service
		ActivitySvc *activity.Service
		ScheduleSvc *schedule.Service
		ProfileSvc  *profile.Service
		StatsSvc    *stats.Service
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	appJWTConfig.SigningKey = []byte(core.Conf.SecretKey)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(api, jwt, s.opts)
	registerChatAPI(api, jwt, s.opts)
	registerNoteAPI(api, jwt, s.opts)
	registerSubjectAPI(api, jwt, s.opts)
	registerActivityAPI(api, jwt, s.opts)
	registerScheduleAPI(api, jwt, s.opts)
	registerProfileAPI(api, jwt, s.opts)
	registerStatsAPI(api, jwt, s.opts)
}

// signalShutdown asks main to bring the server down gracefully.
func (s *server) signalShutdown() {
	if s.opts.Shutdown != nil {
		s.opts.Shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.app.Logger.Fatal(err)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Bem-vindo ao StudyMate!")
}
