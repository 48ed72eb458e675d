package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/coachboard/apps/api/echo"
	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/canvas"
	"github.com/trezcool/coachboard/core/tactic"
	"github.com/trezcool/coachboard/core/user"
	logsvc "github.com/trezcool/coachboard/services/logger"
	rendersvc "github.com/trezcool/coachboard/services/render"
	storagesvc "github.com/trezcool/coachboard/services/storage"
	"github.com/trezcool/coachboard/storage/database"
	inmemdb "github.com/trezcool/coachboard/storage/database/inmem"
	sqlxrepos "github.com/trezcool/coachboard/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Repositories are backed by Postgres, or kept in memory when conf.Database.InMemory is set.
	Repositories struct {
		dig.Out
		Users   user.Repository
		Tactics tactic.Repository
	}

	// Shutdown receives the signals that stop the API.
	Shutdown chan os.Signal

	ServerParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Storage    core.ObjectStorage
		UserSvc    *user.Service
		TacticSvc  *tactic.Service
		Exporter   *rendersvc.PDFExporter
		Shutdown   Shutdown
	}
)

func newLogger(conf *core.Config) *logsvc.RollbarLogger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB is nil when running without Postgres.
func newDB(conf *core.Config, loggerParam DBLoggerParam) core.DB {
	if conf.Database.InMemory {
		loggerParam.Logger.Warn("running with in-memory repositories: data is lost on exit")
		return nil
	}

	setUp := func() (core.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newRepositories(db core.DB) Repositories {
	if db == nil {
		mem := inmemdb.Open()
		return Repositories{
			Users:   inmemdb.NewUserRepository(mem),
			Tactics: inmemdb.NewTacticRepository(mem),
		}
	}
	return Repositories{
		Users:   sqlxrepos.NewUserRepository(db),
		Tactics: sqlxrepos.NewTacticRepository(db),
	}
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	canvas.InitValidators(validate, translator)
	tactic.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func newStorage(conf *core.Config) (core.ObjectStorage, error) {
	return storagesvc.New(context.Background(), conf)
}

func newExporter(conf *core.Config) *rendersvc.PDFExporter {
	return rendersvc.NewPDFExporter(conf.FrontendBaseURL)
}

func newShutdown() Shutdown {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newServer(p ServerParams) echoapi.Server {
	opts := &echoapi.Options{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		TacticSvc:  p.TacticSvc,
		Exporter:   p.Exporter,
		SignalShutdown: func() {
			select {
			case p.Shutdown <- syscall.SIGTERM:
			default: // already shutting down
			}
		},
	}
	if fs, ok := p.Storage.(*storagesvc.FileSystemStorage); ok {
		opts.MediaDir = fs.Dir()
	}
	return echoapi.NewServer(opts)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(func(l *logsvc.RollbarLogger) core.Logger { return l }))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newValidator))
	must(c.Provide(newStorage))
	must(c.Provide(rendersvc.NewRasterizer, dig.As(new(tactic.Rasterizer))))
	must(c.Provide(newExporter))
	must(c.Provide(user.NewService))
	must(c.Provide(tactic.NewService))
	must(c.Provide(newShutdown))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
