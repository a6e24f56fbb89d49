package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgescola/sge/core/enrollment"
	testutil "github.com/sgescola/sge/tests"
)

type statsPayload struct {
	Data struct {
		AnoLetivo       int `json:"ano_letivo"`
		TotalInscritos  int `json:"total_inscritos"`
		TotalMatriculas int `json:"total_matriculas"`
	} `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
}

func getStats(t *testing.T, token, path string) statsPayload {
	t.Helper()
	req, rec := newAuthRequest(http.MethodGet, path, token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp statsPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func Test_dashboardApi_requiresPermission(t *testing.T) {
	blocked := testutil.CreateUser(t, usrRepo, "NoDash", "nodashusr", "nodash@test.test", "pwd", true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/stats", getToken(t, blocked))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}

func Test_dashboardApi_statsCachedAndInvalidated(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Dash Admin", "dashadmin", "dashadmin@test.test", "pwd", true,
		testutil.UserOpts{Papel: "Admin"})
	token := getToken(t, admin)

	_, err := enrolSvc.CreateCandidate(enrollment.NewCandidate{
		Nome: "Ana Bela", Curso: "Informática", Classe: "10ª", AnoLetivo: 2031,
	})
	require.NoError(t, err)

	// first read populates the cache
	first := getStats(t, token, "/v1/dashboard/stats?ano_letivo=2031")
	assert.Equal(t, 2031, first.Data.AnoLetivo)
	assert.Equal(t, 1, first.Data.TotalInscritos)
	assert.False(t, first.UpdatedAt.IsZero())

	// a write through the API invalidates the aggregates
	body := marshallObj(t, enrollment.NewCandidate{
		Nome: "Beto Campos", Curso: "Informática", Classe: "10ª", AnoLetivo: 2031,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/inscritos", token, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// next read refetches
	second := getStats(t, token, "/v1/dashboard/stats?ano_letivo=2031")
	assert.Equal(t, 2, second.Data.TotalInscritos)
}

func Test_dashboardApi_forcedRefresh(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Dash Forcer", "dashforcer", "dashforcer@test.test", "pwd", true,
		testutil.UserOpts{Papel: "Admin"})
	token := getToken(t, admin)

	_, err := enrolSvc.CreateCandidate(enrollment.NewCandidate{
		Nome: "Carla Dias", Curso: "Contabilidade", Classe: "11ª", AnoLetivo: 2032,
	})
	require.NoError(t, err)

	first := getStats(t, token, "/v1/dashboard/stats?ano_letivo=2032")
	assert.Equal(t, 1, first.Data.TotalInscritos)

	// a direct service write bypasses the API invalidation
	_, err = enrolSvc.CreateCandidate(enrollment.NewCandidate{
		Nome: "Dino Elias", Curso: "Contabilidade", Classe: "11ª", AnoLetivo: 2032,
	})
	require.NoError(t, err)

	// ?refresh=1 forces a foreground refetch
	forced := getStats(t, token, "/v1/dashboard/stats?ano_letivo=2032&refresh=1")
	assert.Equal(t, 2, forced.Data.TotalInscritos)
	assert.False(t, forced.Loading)
}

func Test_enrollmentApi_fullFlow(t *testing.T) {
	admin := testutil.CreateUser(t, usrRepo, "Flow Admin", "flowadmin", "flowadmin@test.test", "pwd", true,
		testutil.UserOpts{Papel: "Admin"})
	token := getToken(t, admin)

	// register candidate
	body := marshallObj(t, enrollment.NewCandidate{
		Nome: "Eva Faria", Curso: "Informática", Classe: "10ª", AnoLetivo: 2033,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/inscritos", token, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cand enrollment.Candidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cand))

	// enrolling before admission fails
	body = marshallObj(t, enrollment.NewEnrollment{CandidateID: cand.ID})
	req, rec = newAuthRequest(http.MethodPost, "/v1/matriculas", token, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// admit
	body = marshallObj(t, enrollment.UpdateCandidate{Status: enrollment.CandidateAdmitido})
	req, rec = newAuthRequest(http.MethodPut, "/v1/inscritos/"+cand.ID, token, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// enroll
	body = marshallObj(t, enrollment.NewEnrollment{CandidateID: cand.ID})
	req, rec = newAuthRequest(http.MethodPost, "/v1/matriculas", token, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var enr enrollment.Enrollment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
	assert.Equal(t, enrollment.MatriculaPendente, enr.Status)

	// open a turma and assign
	body = marshallObj(t, enrollment.NewTurma{
		Nome: "10A", Curso: "Informática", Classe: "10ª", AnoLetivo: 2033, Capacidade: 30,
	})
	req, rec = newAuthRequest(http.MethodPost, "/v1/turmas", token, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var turma enrollment.Turma
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turma))

	req, rec = newAuthRequest(http.MethodPost, "/v1/matriculas/"+enr.ID+"/turma/"+turma.ID, token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// confirm
	req, rec = newAuthRequest(http.MethodPost, "/v1/matriculas/"+enr.ID+"/confirm", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
	assert.Equal(t, enrollment.MatriculaConfirmada, enr.Status)

	// unknown matrícula 404s
	req, rec = newAuthRequest(http.MethodPost, "/v1/matriculas/nope/confirm", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func Test_enrollmentApi_viewOnlyPermission(t *testing.T) {
	// cargo matches the Secretaria patterns: can view and manage matrículas
	// but cannot manage turmas
	sec := testutil.CreateUser(t, usrRepo, "Sec2", "secdois", "secdois@test.test", "pwd", true,
		testutil.UserOpts{Cargo: "secretaria académica"})
	token := getToken(t, sec)

	req, rec := newAuthRequest(http.MethodGet, "/v1/matriculas", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := marshallObj(t, enrollment.NewTurma{
		Nome: "X", Curso: "C", Classe: "10ª", AnoLetivo: 2033, Capacidade: 10,
	})
	req, rec = newAuthRequest(http.MethodPost, "/v1/turmas", token, body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
}
