package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/tactic"
	"github.com/trezcool/coachboard/core/user"
	"github.com/trezcool/coachboard/services/render"
)

const (
	apiPrefix = "/v1"
	mediaPath = "/media"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
		SignalShutdown func()

		UserSvc   *user.Service
		TacticSvc *tactic.Service
		Exporter  *rendersvc.PDFExporter

		// MediaDir is served under /media when set (fs object storage).
		MediaDir string
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		auth *Auth
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		auth: NewAuth(opts.Conf),
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if s.opts.MediaDir != "" {
		s.app.Static(mediaPath, s.opts.MediaDir)
	}

	v1 := s.app.Group(apiPrefix)
	registerUserAPI(v1, s.auth, s.opts.UserSvc, s.opts.Validate)
	registerTacticAPI(v1, s.auth, s.opts.TacticSvc, s.opts.Exporter)
	registerEditorAPI(v1, s.auth, s.opts.TacticSvc, s.opts.Logger, s.opts.Translator, conf.FrontendBaseURL)
}

func (s *server) Start() error {
	err := s.app.Start(s.opts.Conf.Server.Address)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}
