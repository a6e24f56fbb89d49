package tests

import (
	"os"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/sgescola/sge/apps/api/echo"
	"github.com/sgescola/sge/core"
	"github.com/sgescola/sge/core/auth"
	"github.com/sgescola/sge/core/cache"
	"github.com/sgescola/sge/core/enrollment"
	"github.com/sgescola/sge/core/user"
	emailsvc "github.com/sgescola/sge/services/email"
	inmemdb "github.com/sgescola/sge/storage/database/inmem"
)

var (
	app        echoapi.Server
	usrRepo    user.Repository
	enrolSvc   enrollment.Service
	statsCache *cache.Store
	sessions   *auth.SessionStore

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	user.Init(conf)

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	enrolRepo := inmemdb.NewEnrollmentRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(usrRepo, mailSvc)
	enrolSvc = enrollment.NewService(enrolRepo, mailSvc)

	logger := newStdLogger()
	statsCache = cache.NewStore(logger)
	sessions = auth.NewSessionStore(conf.Server.JWTRefreshExpirationDelta)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		EnrolSvc:       enrolSvc,
		Cache:          statsCache,
		Sessions:       sessions,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	os.Exit(m.Run())
}
