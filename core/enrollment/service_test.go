package enrollment_test

import (
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgescola/sge/core"
	"github.com/sgescola/sge/core/enrollment"
	emailsvc "github.com/sgescola/sge/services/email"
	inmemdb "github.com/sgescola/sge/storage/database/inmem"
)

func TestMain(m *testing.M) {
	core.NewConfig()
	core.Conf.TestMode = true
	os.Exit(m.Run())
}

func newService(t *testing.T) (enrollment.Service, enrollment.Repository) {
	t.Helper()
	repo := inmemdb.NewEnrollmentRepository(inmemdb.NewDB())
	return enrollment.NewService(repo, emailsvc.NewConsoleServiceMock()), repo
}

func createCandidate(t *testing.T, svc enrollment.Service, nome, curso string, ano int) enrollment.Candidate {
	t.Helper()
	cand, err := svc.CreateCandidate(enrollment.NewCandidate{
		Nome:      nome,
		Curso:     curso,
		Classe:    "10ª",
		AnoLetivo: ano,
	})
	require.NoError(t, err)
	return cand
}

func admit(t *testing.T, svc enrollment.Service, cand enrollment.Candidate) enrollment.Candidate {
	t.Helper()
	cand, err := svc.UpdateCandidate(cand.ID, enrollment.UpdateCandidate{Status: enrollment.CandidateAdmitido})
	require.NoError(t, err)
	return cand
}

func Test_newCandidate_validation(t *testing.T) {
	validate := validator.New()

	nc := enrollment.NewCandidate{Nome: " Ana  Bela ", Curso: "Informática", Classe: "10ª", AnoLetivo: 2026}
	require.NoError(t, nc.Validate(validate))
	assert.Equal(t, "Ana Bela", nc.Nome)

	nc = enrollment.NewCandidate{Curso: "Informática", Classe: "10ª", AnoLetivo: 2026}
	assert.Error(t, nc.Validate(validate))

	nc = enrollment.NewCandidate{Nome: "Ana", Curso: "Informática", Classe: "10ª", AnoLetivo: 2026, EncarregadoEmail: "nope"}
	assert.Error(t, nc.Validate(validate))
}

func Test_createCandidate_startsPendente(t *testing.T) {
	svc, _ := newService(t)

	cand := createCandidate(t, svc, "Ana Bela", "Informática", 2026)
	assert.NotEmpty(t, cand.ID)
	assert.Equal(t, enrollment.CandidatePendente, cand.Status)

	got, err := svc.GetCandidate(cand.ID)
	require.NoError(t, err)
	assert.Equal(t, cand.ID, got.ID)
}

func Test_createCandidate_badBirthDate(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateCandidate(enrollment.NewCandidate{
		Nome:           "Ana",
		Curso:          "Informática",
		Classe:         "10ª",
		AnoLetivo:      2026,
		DataNascimento: "31-12-2010",
	})
	require.Error(t, err)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func Test_enroll_requiresAdmission(t *testing.T) {
	svc, _ := newService(t)
	cand := createCandidate(t, svc, "Ana Bela", "Informática", 2026)

	_, err := svc.Enroll(enrollment.NewEnrollment{CandidateID: cand.ID})
	require.Error(t, err)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func Test_enroll_marksCandidateMatriculado(t *testing.T) {
	svc, _ := newService(t)
	cand := admit(t, svc, createCandidate(t, svc, "Ana Bela", "Informática", 2026))

	enr, err := svc.Enroll(enrollment.NewEnrollment{CandidateID: cand.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, enr.Numero)
	assert.Equal(t, enrollment.MatriculaPendente, enr.Status)
	assert.Equal(t, cand.Nome, enr.Nome)

	cand, err = svc.GetCandidate(cand.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.CandidateMatriculado, cand.Status)

	// numbers are per school year
	other := admit(t, svc, createCandidate(t, svc, "Beto Campos", "Informática", 2026))
	enr2, err := svc.Enroll(enrollment.NewEnrollment{CandidateID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, enr2.Numero)
}

func Test_enroll_rejectsDuplicate(t *testing.T) {
	svc, _ := newService(t)
	cand := admit(t, svc, createCandidate(t, svc, "Ana Bela", "Informática", 2026))

	_, err := svc.Enroll(enrollment.NewEnrollment{CandidateID: cand.ID})
	require.NoError(t, err)

	// re-admit and retry
	cand, err = svc.UpdateCandidate(cand.ID, enrollment.UpdateCandidate{Status: enrollment.CandidateAdmitido})
	require.NoError(t, err)
	_, err = svc.Enroll(enrollment.NewEnrollment{CandidateID: cand.ID})
	require.Error(t, err)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func Test_confirmEnrollment_isIdempotent(t *testing.T) {
	svc, _ := newService(t)
	cand := admit(t, svc, createCandidate(t, svc, "Ana Bela", "Informática", 2026))
	enr, err := svc.Enroll(enrollment.NewEnrollment{CandidateID: cand.ID})
	require.NoError(t, err)

	enr, err = svc.ConfirmEnrollment(enr.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.MatriculaConfirmada, enr.Status)
	assert.False(t, enr.ConfirmedAt.IsZero())

	confirmedAt := enr.ConfirmedAt
	enr, err = svc.ConfirmEnrollment(enr.ID)
	require.NoError(t, err)
	assert.Equal(t, confirmedAt, enr.ConfirmedAt)
}

func Test_cancelEnrollment_freesTurmaSeat(t *testing.T) {
	svc, _ := newService(t)
	cand := admit(t, svc, createCandidate(t, svc, "Ana Bela", "Informática", 2026))
	enr, err := svc.Enroll(enrollment.NewEnrollment{CandidateID: cand.ID})
	require.NoError(t, err)

	turma, err := svc.CreateTurma(enrollment.NewTurma{
		Nome: "10A", Curso: "Informática", Classe: "10ª", AnoLetivo: 2026, Capacidade: 1,
	})
	require.NoError(t, err)

	enr, err = svc.AssignTurma(enr.ID, turma.ID)
	require.NoError(t, err)
	assert.Equal(t, turma.ID, enr.TurmaID)

	enr, err = svc.CancelEnrollment(enr.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.MatriculaAnulada, enr.Status)
	assert.Empty(t, enr.TurmaID)

	turmas, err := svc.QueryTurmas(2026)
	require.NoError(t, err)
	require.Len(t, turmas, 1)
	assert.Equal(t, 0, turmas[0].Ocupacao)
}

func Test_assignTurma_respectsCapacity(t *testing.T) {
	svc, _ := newService(t)

	turma, err := svc.CreateTurma(enrollment.NewTurma{
		Nome: "10A", Curso: "Informática", Classe: "10ª", AnoLetivo: 2026, Capacidade: 1,
	})
	require.NoError(t, err)

	first := admit(t, svc, createCandidate(t, svc, "Ana Bela", "Informática", 2026))
	enr1, err := svc.Enroll(enrollment.NewEnrollment{CandidateID: first.ID})
	require.NoError(t, err)
	enr1, err = svc.AssignTurma(enr1.ID, turma.ID)
	require.NoError(t, err)

	second := admit(t, svc, createCandidate(t, svc, "Beto Campos", "Informática", 2026))
	enr2, err := svc.Enroll(enrollment.NewEnrollment{CandidateID: second.ID})
	require.NoError(t, err)
	_, err = svc.AssignTurma(enr2.ID, turma.ID)
	require.Error(t, err)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	// re-assigning the seated matrícula is not a capacity violation
	_, err = svc.AssignTurma(enr1.ID, turma.ID)
	assert.NoError(t, err)
}

func Test_dashboardStats_aggregates(t *testing.T) {
	svc, _ := newService(t)

	c1 := admit(t, svc, createCandidate(t, svc, "Ana Bela", "Informática", 2026))
	c2 := admit(t, svc, createCandidate(t, svc, "Beto Campos", "Contabilidade", 2026))
	createCandidate(t, svc, "Carla Dias", "Informática", 2026) // stays pendente
	createCandidate(t, svc, "Dino Elias", "Informática", 2025) // other year

	enr1, err := svc.Enroll(enrollment.NewEnrollment{CandidateID: c1.ID})
	require.NoError(t, err)
	_, err = svc.Enroll(enrollment.NewEnrollment{CandidateID: c2.ID})
	require.NoError(t, err)
	_, err = svc.ConfirmEnrollment(enr1.ID)
	require.NoError(t, err)

	stats, err := svc.DashboardStats(2026)
	require.NoError(t, err)
	assert.Equal(t, 2026, stats.AnoLetivo)
	assert.Equal(t, 3, stats.TotalInscritos)
	assert.Equal(t, 1, stats.InscritosPendentes)
	assert.Equal(t, 2, stats.TotalMatriculas)
	assert.Equal(t, 1, stats.MatriculasConfirmadas)
	assert.Equal(t, 1, stats.MatriculasPendentes)
	assert.False(t, stats.GeneratedAt.IsZero())

	require.Len(t, stats.PorCurso, 2)
	assert.Equal(t, "Contabilidade", stats.PorCurso[0].Curso)
	assert.Equal(t, 1, stats.PorCurso[0].Matriculas)
	assert.Equal(t, "Informática", stats.PorCurso[1].Curso)
	assert.Equal(t, 2, stats.PorCurso[1].Inscritos)
}
