package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/sgescola/sge/apps/api/echo"
	"github.com/sgescola/sge/core/auth"
	testutil "github.com/sgescola/sge/tests"
)

func Test_userApi_login(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Login User", "loginusr", "login@test.test", "s3cret", true)

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong password",
			body:     marshallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "nope"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown user",
			body:     marshallObj(t, echoapi.LoginRequest{Username: "ghost", Password: "s3cret"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "ok",
			body:     marshallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "s3cret"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_userApi_login_deactivated(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Gone User", "goneusr", "gone@test.test", "s3cret", false)

	req, rec := newRequest(http.MethodPost, "/v1/users/login",
		marshallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "s3cret"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func Test_userApi_query_requiresPermission(t *testing.T) {
	aluno := testutil.CreateUser(t, usrRepo, "Aluno", "alunousr", "aluno@test.test", "pwd", true,
		testutil.UserOpts{Papel: "Aluno"})
	admin := testutil.CreateUser(t, usrRepo, "Admin", "adminusr", "admin@test.test", "pwd", true,
		testutil.UserOpts{Papel: "Admin"})

	tests := []httpTest{
		{name: "anonymous", wantCode: http.StatusUnauthorized},
		{name: "aluno denied", token: getToken(t, aluno), wantCode: http.StatusForbidden},
		{name: "admin allowed", token: getToken(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			app.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func Test_userApi_myPermissions(t *testing.T) {
	// cargo_nome matches the Secretaria role patterns
	secretaria := testutil.CreateUser(t, usrRepo, "Sec", "secusr", "sec@test.test", "pwd", true,
		testutil.UserOpts{CargoNome: "Secretária Geral"})
	blocked := testutil.CreateUser(t, usrRepo, "Blocked", "blockedusr", "blocked@test.test", "pwd", true,
		testutil.UserOpts{Permissoes: []string{auth.NoAccess}, Papel: "Admin"})
	super := testutil.CreateUser(t, usrRepo, "Root", "rootusr", "root@test.test", "pwd", true,
		testutil.UserOpts{IsSuperuser: true})

	get := func(t *testing.T, token string) echoapi.MyPermissionsResponse {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/me/permissions", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp echoapi.MyPermissionsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	t.Run("secretaria via cargo_nome", func(t *testing.T) {
		resp := get(t, getToken(t, secretaria))
		assert.Contains(t, resp.Permissions, auth.PermViewMatriculas)
		assert.NotContains(t, resp.Permissions, auth.PermManageUsuarios)
	})
	t.Run("explicit NO_ACCESS denies everything", func(t *testing.T) {
		resp := get(t, getToken(t, blocked))
		assert.Empty(t, resp.Permissions)
	})
	t.Run("superuser holds the whole catalog", func(t *testing.T) {
		resp := get(t, getToken(t, super))
		assert.True(t, resp.IsSuperuser)
		assert.ElementsMatch(t, auth.Catalog(), resp.Permissions)
	})
}

func Test_userApi_tokenRefresh_sessionRevoked(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Refresher", "refreshusr", "refresh@test.test", "s3cret", true,
		testutil.UserOpts{Papel: "Admin"})

	// sign in through the API so a session is registered
	req, rec := newRequest(http.MethodPost, "/v1/users/login",
		marshallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "s3cret"}))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/token-refresh", login.Token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// logout revokes the session; the still-valid JWT can no longer refresh
	req, rec = newAuthRequest(http.MethodPost, "/v1/users/logout", login.Token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/token-refresh", login.Token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func Test_userApi_anonymousGetsMissingToken(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/v1/users/me")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp httpErr
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, errMissingToken, resp)
}

func Test_userApi_create_requiresSuperuserForPermissions(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Gestor", "gestorusr", "gestor@test.test", "pwd", true,
		testutil.UserOpts{Papel: "Admin"})

	body := marshallObj(t, map[string]interface{}{
		"name":             "Novo",
		"username":         "novousr",
		"email":            "novo@test.test",
		"password":         "pwd123",
		"password_confirm": "pwd123",
		"permissoes":       []string{auth.PermViewDashboard},
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}
