package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/exam"
	"github.com/trezcool/darasa/core/homework"
	"github.com/trezcool/darasa/core/idcard"
	"github.com/trezcool/darasa/core/roster"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/storage/database/inmem"
	"github.com/trezcool/darasa/tests"
)

var (
	usrRepo    user.Repository
	rosterRepo roster.Repository
	attRepo    attendance.Repository
	mailSvc    *emailsvc.ConsoleServiceMock

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

// setup returns a Server backed by a fresh in-memory database.
func setup(t *testing.T) *Server {
	t.Helper()

	conf := *core.Conf
	conf.TestMode = true
	conf.Debug = false
	conf.Attendance = core.AttendanceConfig{Source: "database", DefaultLimit: 10, MaxLimit: 50}

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	rosterRepo = inmemdb.NewRosterRepository(db)
	attRepo = inmemdb.NewAttendanceRepository(db)

	// set up services
	logger := testutil.NewLogger()
	mailSvc = emailsvc.NewConsoleServiceMock(logger)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc)

	rosterSvc := roster.NewService(rosterRepo, usrSvc)

	app := NewServer(ServerDeps{
		Conf:           &conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		AttendanceSvc:  attendance.NewService(attRepo, conf.Location(), conf.Attendance),
		RosterSvc:      rosterSvc,
		HomeworkSvc:    homework.NewService(inmemdb.NewHomeworkRepository(db)),
		ExamSvc:        exam.NewService(inmemdb.NewExamRepository(db), usrSvc, rosterSvc),
		IDCardSvc:      idcard.NewService(inmemdb.NewIDCardRepository(db)),
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = app.Close() })
	return app
}

// enroll puts the students in class straight through the repository.
func enroll(t *testing.T, classID string, students ...user.User) {
	t.Helper()
	for _, st := range students {
		if err := rosterRepo.Enroll(context.Background(), classID, st.ID); err != nil {
			t.Fatalf("enroll() failed: %v", err)
		}
	}
}

// markAttendance stores a record straight into the repository.
func markAttendance(t *testing.T, rec attendance.Record) attendance.Record {
	t.Helper()
	rec, err := attRepo.SaveAttendance(context.Background(), rec)
	if err != nil {
		t.Fatalf("markAttendance() failed: %v", err)
	}
	return rec
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

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarshal(%s) failed: %v", rec.Body.String(), err)
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
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
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

// runTests serves every test case with app.
func runTests(t *testing.T, app *Server, tests []httpTest) {
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
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
