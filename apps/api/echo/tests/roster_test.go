package tests

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/roster"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/tests"
)

func Test_rosterApi_create(t *testing.T) {
	app := setup(t)

	school := testutil.CreateSchool(t, rosterRepo)
	inst := []string{school.Institute.ID}
	sysadmin := testutil.CreateUser(t, usrRepo, "Root", "root", user.RoleSystemAdmin)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", user.RoleInstituteAdmin, testutil.UserOpts{InstituteIDs: inst})
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", user.RoleTeacher, testutil.UserOpts{InstituteIDs: inst})
	student := testutil.CreateUser(t, usrRepo, "Amani", "amani", user.RoleStudent)
	adminToken := getToken(t, admin)

	base := "/v1/institutes/" + school.Institute.ID
	classPath := base + "/classes/" + school.Class.ID

	runTests(t, app, []httpTest{
		{
			name: "institutes are created by system admins", method: http.MethodPost, path: "/v1/institutes", token: adminToken,
			body: marchallObj(t, roster.NewInstitute{Name: "Institut Maria"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "institute name required", method: http.MethodPost, path: "/v1/institutes", token: getToken(t, sysadmin),
			body: marchallObj(t, roster.NewInstitute{Name: "  "}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "name is a required field"}),
		},
		{
			name: "institute created", method: http.MethodPost, path: "/v1/institutes", token: getToken(t, sysadmin),
			body: marchallObj(t, roster.NewInstitute{Name: "Institut Maria"}), wantCode: http.StatusCreated,
		},
		{
			name: "classes are created by admins", method: http.MethodPost, path: base + "/classes", token: getToken(t, teacher),
			body: marchallObj(t, roster.NewClass{Name: "6B", Grade: 6}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "class created", method: http.MethodPost, path: base + "/classes", token: adminToken,
			body: marchallObj(t, roster.NewClass{Name: "6B", Grade: 6}), wantCode: http.StatusCreated,
		},
		{
			name: "subject code format", method: http.MethodPost, path: base + "/subjects", token: adminToken,
			body: marchallObj(t, roster.NewSubject{Code: "PHY SIC", Name: "Physics"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "subject created", method: http.MethodPost, path: base + "/subjects", token: adminToken,
			body: marchallObj(t, roster.NewSubject{Code: "PHY", Name: "Physics"}), wantCode: http.StatusCreated,
		},
		{
			name: "unknown subject", method: http.MethodPost, path: classPath + "/subjects", token: adminToken,
			body: marchallObj(t, map[string]string{"subject_id": uuid.New().String()}), wantCode: http.StatusNotFound,
		},
		{
			name: "enroll a non student", method: http.MethodPost, path: classPath + "/students", token: adminToken,
			body:     marchallObj(t, map[string]string{"student_id": teacher.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"student_id": "the user is not a student"}),
		},
		{
			name: "enrolled", method: http.MethodPost, path: classPath + "/students", token: adminToken,
			body:     marchallObj(t, map[string]string{"student_id": student.ID}),
			wantCode: http.StatusCreated, wantData: marchallList(t, roster.Student{ID: student.ID, Name: student.Name, Username: student.Username, ClassID: school.Class.ID}),
		},
	})

	req, rec := newAuthRequest(http.MethodGet, base+"/classes", adminToken)
	app.ServeHTTP(rec, req)
	var classes []roster.Class
	unmarshal(t, rec, &classes)
	if assert.Len(t, classes, 2) {
		assert.Equal(t, "6A", classes[0].Name)
		assert.Equal(t, "6B", classes[1].Name)
	}
}

func Test_rosterApi_read(t *testing.T) {
	app := setup(t)

	school := testutil.CreateSchool(t, rosterRepo)
	inst := []string{school.Institute.ID}
	marker := testutil.CreateUser(t, usrRepo, "Marker", "marker", user.RoleAttendanceMarker, testutil.UserOpts{InstituteIDs: inst})
	outsider := testutil.CreateUser(t, usrRepo, "Outsider", "outsider", user.RoleTeacher, testutil.UserOpts{InstituteIDs: []string{uuid.New().String()}})
	student := testutil.CreateUser(t, usrRepo, "Amani", "amani", user.RoleStudent)
	parent := testutil.CreateUser(t, usrRepo, "Mama", "mama", user.RoleParent, testutil.UserOpts{ChildIDs: []string{student.ID}})

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", user.RoleInstituteAdmin, testutil.UserOpts{InstituteIDs: inst})
	req, rec := newAuthRequest(http.MethodPost, "/v1/institutes/"+school.Institute.ID+"/classes/"+school.Class.ID+"/students",
		getToken(t, admin), marchallObj(t, map[string]string{"student_id": student.ID}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	base := "/v1/institutes/" + school.Institute.ID
	classPath := base + "/classes/" + school.Class.ID
	enrolled := roster.Student{ID: student.ID, Name: student.Name, Username: student.Username, ClassID: school.Class.ID}

	runTests(t, app, []httpTest{
		{name: "staff only", path: base + "/classes", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "members only", path: base + "/classes", token: getToken(t, outsider), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "classes", path: base + "/classes", token: getToken(t, marker), wantData: marchallList(t, school.Class)},
		{
			name: "class subjects", path: classPath + "/subjects", token: getToken(t, marker),
			wantData: marchallList(t, roster.ClassSubject{Subject: school.Subject, ClassID: school.Class.ID}),
		},
		{name: "unknown class", path: base + "/classes/" + uuid.New().String() + "/subjects", token: getToken(t, marker), wantCode: http.StatusNotFound},
		{name: "students", path: classPath + "/students", token: getToken(t, marker), wantData: marchallList(t, enrolled)},
		{name: "children", path: "/v1/parents/me/children", token: getToken(t, parent), wantData: marchallList(t, enrolled)},
		{name: "parents only", path: "/v1/parents/me/children", token: getToken(t, marker), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	})
}

func Test_rosterApi_teacher(t *testing.T) {
	app := setup(t)

	school := testutil.CreateSchool(t, rosterRepo)
	inst := []string{school.Institute.ID}
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", user.RoleInstituteAdmin, testutil.UserOpts{InstituteIDs: inst})
	teacher := testutil.CreateUser(t, usrRepo, "Mwalimu", "mwalimu", user.RoleTeacher, testutil.UserOpts{InstituteIDs: inst})
	marker := testutil.CreateUser(t, usrRepo, "Marker", "marker", user.RoleAttendanceMarker, testutil.UserOpts{InstituteIDs: inst})
	adminToken := getToken(t, admin)

	path := "/v1/institutes/" + school.Institute.ID + "/classes/" + school.Class.ID + "/subjects/" + school.Subject.ID + "/teacher"
	assign := func(id string) []byte { return marchallObj(t, roster.TeacherAssignment{TeacherID: id}) }
	unassigned := roster.ClassSubject{Subject: school.Subject, ClassID: school.Class.ID}
	assigned := unassigned
	assigned.TeacherID, assigned.TeacherName = teacher.ID, teacher.Name

	runTests(t, app, []httpTest{
		{
			name: "admins only", method: http.MethodPut, path: path, token: getToken(t, teacher), body: assign(teacher.ID),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "not a teacher", method: http.MethodPut, path: path, token: adminToken, body: assign(marker.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"teacher_id": "the user is not a teacher of this institute"}),
		},
		{
			name: "unknown subject", method: http.MethodPut, token: adminToken, body: assign(teacher.ID),
			path:     "/v1/institutes/" + school.Institute.ID + "/classes/" + school.Class.ID + "/subjects/" + uuid.New().String() + "/teacher",
			wantCode: http.StatusNotFound,
		},
		{name: "assigned", method: http.MethodPut, path: path, token: adminToken, body: assign(teacher.ID), wantData: marchallObj(t, assigned)},
		{name: "unassigned", method: http.MethodDelete, path: path, token: adminToken, wantData: marchallObj(t, unassigned)},
		{name: "unassign is idempotent", method: http.MethodDelete, path: path, token: adminToken, wantData: marchallObj(t, unassigned)},
	})
}
