package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/tests"
)

func Test_userApi_create(t *testing.T) {
	app := setup(t)

	instID := uuid.New().String()
	otherInstID := uuid.New().String()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", user.RoleInstituteAdmin, testutil.UserOpts{InstituteIDs: []string{instID}})
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", user.RoleTeacher, testutil.UserOpts{InstituteIDs: []string{instID}})
	adminToken := getToken(t, admin)

	newUser := func(name, uname, email string, role user.Role, instIDs ...string) []byte {
		return marchallObj(t, map[string]interface{}{
			"name":             name,
			"username":         uname,
			"email":            email,
			"role":             role,
			"institute_ids":    instIDs,
			"password":         testutil.Password,
			"password_confirm": testutil.Password,
		})
	}

	runTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", method: http.MethodPost, path: "/v1/users", token: getToken(t, teacher),
			body: newUser("Bob", "bobby", "", user.RoleTeacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "invalid role", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body: newUser("Bob", "bobby", "", "janitor"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "username taken", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body:     newUser("Bob", "TEACHER", "", user.RoleTeacher),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "role above own", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body:     newUser("Bob", "bobby", "", user.RoleSystemAdmin),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "not enough rights to set this role"}),
		},
		{
			name: "foreign institute", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body:     newUser("Bob", "bobby", "", user.RoleTeacher, otherInstID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"institute_ids": "not enough rights to set this role"}),
		},
		{
			name: "created", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body: newUser(" Bob Marley ", "Bobby", "bob@test.cd", user.RoleTeacher), wantCode: http.StatusCreated,
		},
	})

	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: "bobby"})
	if err != nil {
		t.Fatalf("GetUser(): %v", err)
	}
	assert.Equal(t, "Bob Marley", usr.Name)
	assert.Equal(t, user.RoleTeacher, usr.Role)
	assert.True(t, usr.FirstLogin)
	assert.Equal(t, []string{instID}, usr.InstituteIDs)

	sent := mailSvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "welcome", sent[0].TemplateName)
		assert.Equal(t, "bob@test.cd", sent[0].To[0].Address)
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", user.RoleSystemAdmin)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", user.RoleTeacher)
	student := testutil.CreateUser(t, usrRepo, "Hero User", "hero", user.RoleStudent)
	parent := testutil.CreateUser(t, usrRepo, "Mama", "mama", user.RoleParent, testutil.UserOpts{ChildIDs: []string{student.ID}})
	adminToken := getToken(t, admin)

	runTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", path: "/v1/users", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "all", path: "/v1/users", token: adminToken, wantData: marchallList(t, admin, teacher, student, parent)},
		{name: "search", path: "/v1/users?search=USER", token: adminToken, wantData: marchallList(t, student)},
		{name: "search (unknown)", path: "/v1/users?search=lol", token: adminToken, wantData: marchallList(t)},
		{name: "roles", path: "/v1/users?role=teacher&role=parent", token: adminToken, wantData: marchallList(t, teacher, parent)},
		{name: "role list", path: "/v1/users/roles", token: adminToken, wantData: marchallObj(t, user.Roles)},
	})
}

func Test_userApi_detail(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", user.RoleInstituteAdmin)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", user.RoleTeacher)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", user.RoleStudent)
	sysadmin := testutil.CreateUser(t, usrRepo, "Root", "root", user.RoleSystemAdmin)
	adminToken := getToken(t, admin)

	runTests(t, app, []httpTest{
		{name: "self", path: "/v1/users/" + student.ID, token: getToken(t, student), wantData: marchallObj(t, student)},
		{
			name: "other user hidden", path: "/v1/users/" + teacher.ID, token: getToken(t, student),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "admin sees all", path: "/v1/users/" + teacher.ID, token: adminToken, wantData: marchallObj(t, teacher)},
		{name: "unknown", path: "/v1/users/" + uuid.New().String(), token: adminToken, wantCode: http.StatusNotFound},
		{
			name: "non admin cannot change role", method: http.MethodPut, path: "/v1/users/" + student.ID, token: getToken(t, student),
			body: marchallObj(t, map[string]string{"role": "teacher"}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "cannot delete higher role", method: http.MethodDelete, path: "/v1/users/" + sysadmin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "deleted", method: http.MethodDelete, path: "/v1/users/" + student.ID, token: adminToken, wantCode: http.StatusNoContent},
	})

	t.Run("self rename", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+teacher.ID, getToken(t, teacher), marchallObj(t, map[string]string{"name": "Mwalimu"}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got user.User
		unmarshal(t, rec, &got)
		assert.Equal(t, "Mwalimu", got.Name)
		assert.Equal(t, teacher.Username, got.Username)
	})

	_, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
	assert.Equal(t, core.ErrNotFound, err)
}
