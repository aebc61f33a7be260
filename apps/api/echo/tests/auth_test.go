package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Hero", "hero", user.RoleStudent, testutil.UserOpts{Email: "hero@test.cd"})
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog", user.RoleStudent, testutil.UserOpts{Inactive: true})

	login := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "username & password required", body: login("", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "username is a required field", "password": "password is a required field"}),
		},
		{name: "unknown user", body: login("nobody", testutil.Password), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "wrong password", body: login("hero", "wrong"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "inactive user", body: login("ndog", testutil.Password), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "by username", body: login("  HERO ", testutil.Password), wantCode: http.StatusOK},
		{name: "by email", body: login("hero@test.cd", testutil.Password), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			assert.Equal(t, http.StatusOK, rec.Code)
			var resp echoapi.LoginResponse
			unmarshal(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
			assert.False(t, resp.FirstLogin)
		})
	}

	t.Run("sets last login", func(t *testing.T) {
		usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: "hero"})
		assert.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})
}

func Test_userApi_firstLogin(t *testing.T) {
	app := setup(t)

	fresh := testutil.CreateUser(t, usrRepo, "Fresh Parent", "fresh", user.RoleParent, testutil.UserOpts{FirstLogin: true})
	veteran := testutil.CreateUser(t, usrRepo, "Old Parent", "veteran", user.RoleParent)
	token := getToken(t, fresh)
	newPwd := "N3w-Secr3t!pass"

	// login tells the client to run the setup
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", marchallObj(t, echoapi.LoginRequest{Username: "fresh", Password: testutil.Password}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp echoapi.LoginResponse
	unmarshal(t, rec, &resp)
	assert.True(t, resp.FirstLogin)

	runTests(t, app, []httpTest{
		{name: "me is reachable", path: "/v1/auth/me", token: token},
		{
			name: "other endpoints are blocked", path: "/v1/parents/me/children", token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "first login setup required"}),
		},
		{
			name: "password policy applies", method: http.MethodPost, path: "/v1/auth/first-login", token: token,
			body:     marchallObj(t, user.FirstLoginSetup{Password: "12345678", PasswordConfirm: "12345678"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password cannot be entirely numeric"}),
		},
		{
			name: "passwords must match", method: http.MethodPost, path: "/v1/auth/first-login", token: token,
			body:     marchallObj(t, user.FirstLoginSetup{Password: newPwd, PasswordConfirm: newPwd + "x"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "setup completed", method: http.MethodPost, path: "/v1/auth/first-login", token: token,
			body: marchallObj(t, user.FirstLoginSetup{Name: "Mama Fresh", Password: newPwd, PasswordConfirm: newPwd}),
		},
		{name: "children are now reachable", path: "/v1/parents/me/children", token: token, wantData: marchallList(t)},
		{
			name: "setup runs once", method: http.MethodPost, path: "/v1/auth/first-login", token: getToken(t, veteran),
			body:     marchallObj(t, user.FirstLoginSetup{Password: newPwd, PasswordConfirm: newPwd}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "first login setup already completed"}),
		},
	})

	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: fresh.ID})
	assert.NoError(t, err)
	assert.False(t, usr.FirstLogin)
	assert.Equal(t, "Mama Fresh", usr.Name)
	assert.NoError(t, usr.CheckPassword(newPwd))
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", user.RoleTeacher)
	ghost := user.User{ID: "4f2c4a9e-6a2b-4a43-9b0c-1f2d3e4f5a6b", Role: user.RoleTeacher}

	runTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/auth/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unknown user", path: "/v1/auth/me", token: getToken(t, ghost), wantCode: http.StatusUnauthorized},
		{name: "me", path: "/v1/auth/me", token: getToken(t, teacher), wantData: marchallObj(t, teacher)},
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", user.RoleStudent, testutil.UserOpts{Inactive: true})
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", user.RoleStudent)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   student.ID,
			Audience:  "Dashboard",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Role:         student.Role,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			assert.Equal(t, http.StatusOK, rec.Code)
			var resp echoapi.LoginResponse
			unmarshal(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", user.RoleStudent, testutil.UserOpts{Email: "hero@test.cd"})
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog", user.RoleStudent, testutil.UserOpts{Email: "ndog@test.cd", Inactive: true})

	success := marchallObj(t, echoapi.SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
	reset := func(email string) []byte { return marchallObj(t, echoapi.PasswordResetRequest{Email: email}) }

	runTests(t, app, []httpTest{
		{
			name: "invalid email", method: http.MethodPost, path: "/v1/auth/password-reset", body: reset("lol"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{name: "unknown email", method: http.MethodPost, path: "/v1/auth/password-reset", body: reset("nobody@test.cd"), wantData: success},
		{name: "inactive user", method: http.MethodPost, path: "/v1/auth/password-reset", body: reset("ndog@test.cd"), wantData: success},
		{name: "known email", method: http.MethodPost, path: "/v1/auth/password-reset", body: reset("HERO@test.cd"), wantData: success},
	})

	assert.Eventually(t, func() bool { return len(mailSvc.SentMessages()) == 1 }, time.Second, 10*time.Millisecond)
	sent := mailSvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "hero@test.cd", sent[0].To[0].Address)
		assert.Equal(t, "password_reset", sent[0].TemplateName)
	}

	token, err := user.MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}
	newPwd := "N3w-Secr3t!pass"
	confirm := func(uid, token string) []byte {
		return marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd})
	}

	runTests(t, app, []httpTest{
		{
			name: "invalid uid", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm("lol", token),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"uid": "invalid value"}),
		},
		{
			name: "invalid token", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm(user.EncodeUID(usr), "lol-token"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"token": "invalid value"}),
		},
		{
			name: "password reset", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm(user.EncodeUID(usr), token),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "token used up", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: confirm(user.EncodeUID(usr), token),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"token": "invalid value"}),
		},
	})
}
