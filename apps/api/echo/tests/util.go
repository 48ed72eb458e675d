package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/coachboard/apps/api/echo"
	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/tactic"
	"github.com/trezcool/coachboard/core/user"
	"github.com/trezcool/coachboard/services/render"
	"github.com/trezcool/coachboard/storage/database/inmem"
	"github.com/trezcool/coachboard/tests"
)

const frontendURL = "http://front.test"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app        Server
	auth       *Auth
	usrRepo    user.Repository
	tacticRepo tactic.Repository
	storage    *testutil.MemoryStorage
	logger     *testutil.Logger
}

func testConfig() *core.Config {
	return &core.Config{
		AppName:         "Coachboard",
		Env:             "TEST",
		TestMode:        true,
		SecretKey:       "test-secret",
		FrontendBaseURL: frontendURL,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
	}
}

func setup(t *testing.T) *env {
	conf := testConfig()

	// set up DB & repos
	db := inmemdb.Open()
	e := &env{
		auth:       NewAuth(conf),
		usrRepo:    inmemdb.NewUserRepository(db),
		tacticRepo: inmemdb.NewTacticRepository(db),
		storage:    testutil.NewMemoryStorage(),
		logger:     &testutil.Logger{},
	}

	// set up services
	validate, translator := testutil.NewValidator()
	usrSvc := user.NewService(e.usrRepo, validate)
	tacticSvc := tactic.NewService(e.tacticRepo, e.storage, rendersvc.NewRasterizer(), validate, e.logger)

	// set up server
	e.app = NewServer(&Options{
		Conf:           conf,
		Logger:         e.logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		TacticSvc:      tacticSvc,
		Exporter:       rendersvc.NewPDFExporter(frontendURL),
	})
	return e
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (e *env) getToken(t *testing.T, usr user.User, origIat ...int64) string {
	token, err := e.auth.GenerateToken(e.auth.GetUserClaims(usr, origIat...))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (e *env) serve(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	e.app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
