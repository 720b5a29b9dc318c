package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/user"
)

type (
	ServerDeps struct {
		Addr           string
		DisableReqLogs bool

		Logger        core.Logger
		UserSvc       *user.Service
		CourseSvc     *course.Service
		CourseworkSvc *coursework.Service
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.deps.UserSvc)
	registerCourseAPI(v1, jwt, s.deps.CourseSvc)
	registerCourseworkAPI(v1, jwt, s.deps.CourseworkSvc)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		s.errs <- s.app.Start(s.deps.Addr)
	}()
}

func (s *server) Errors() <-chan error { return s.errs }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// signalShutdown fakes a SIGTERM whenever an unrecoverable error is caught.
func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}
