package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/flowtaskhq/flowtask/apps/api/echo"
	"github.com/flowtaskhq/flowtask/core"
	"github.com/flowtaskhq/flowtask/core/project"
	"github.com/flowtaskhq/flowtask/core/task"
	"github.com/flowtaskhq/flowtask/core/user"
	emailsvc "github.com/flowtaskhq/flowtask/services/email"
	"github.com/flowtaskhq/flowtask/services/events"
	inmemdb "github.com/flowtaskhq/flowtask/storage/database/inmem"
)

var (
	errMissingToken    = httpErr{Error: "missing or malformed jwt"}
	errNotAuthorized   = httpErr{Error: "user not authenticated"}
	errPermDenied      = httpErr{Error: "permission denied"}
	errNotFound        = httpErr{Error: "not found"}
	errTaskNotFound    = httpErr{Error: "task not found"}
	errProjectNotFound = httpErr{Error: "project not found"}
)

type fixture struct {
	server   *echoapi.Server
	conf     *core.Config
	usrRepo  user.Repository
	projRepo project.Repository
	taskRepo task.Repository
}

// testLogger drops everything; the API under test never hits a real backend.
type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

func newTestConfig() *core.Config {
	return &core.Config{
		TestMode:  true,
		Env:       "TEST",
		AppName:   "FlowTask",
		SecretKey: "n0ts0s3cr3t",
		Server: core.ServerConfig{
			AccessTokenExpiration: 30 * time.Minute,
			RefreshExpiration:     7 * 24 * time.Hour,
		},
	}
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	f := &fixture{
		conf:     newTestConfig(),
		usrRepo:  inmemdb.NewUserRepository(db),
		projRepo: inmemdb.NewProjectRepository(db),
		taskRepo: inmemdb.NewTaskRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock(f.conf)
	usrSvc := user.NewService(f.usrRepo, mailSvc, f.conf)
	projSvc := project.NewService(f.projRepo, f.usrRepo)
	taskSvc := task.NewService(f.taskRepo, f.projRepo, events.NopPublisher{}, testLogger{})

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	task.InitValidators(validate, translator)

	f.server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:       f.conf,
		Logger:     testLogger{},
		UserSvc:    usrSvc,
		ProjectSvc: projSvc,
		TaskSvc:    taskSvc,
		Validate:   validate,
		Translator: translator,
	})
	return f
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
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

func (f *fixture) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	pair, err := echoapi.GenerateTokenPair(usr, f.conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return pair.Access
}

func (f *fixture) getRefreshToken(t *testing.T, usr user.User) string {
	t.Helper()
	pair, err := echoapi.GenerateTokenPair(usr, f.conf)
	if err != nil {
		t.Fatalf("getRefreshToken() failed: %v", err)
	}
	return pair.Refresh
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
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
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
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

func (f *fixture) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			f.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
