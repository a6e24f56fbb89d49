package enrollment

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sgescola/sge/core"
)

var (
	// errors
	ErrCandidateNotFound    = errors.New("inscrito not found")
	ErrEnrollmentNotFound   = errors.New("matrícula not found")
	ErrTurmaNotFound        = errors.New("turma not found")
	ErrTurmaFull            = errors.New("turma has no free seats")
	ErrAlreadyEnrolled      = errors.New("inscrito already has a matrícula")
	ErrCandidateNotAdmitted = errors.New("inscrito has not been admitted")
)

type (
	Repository interface {
		CreateCandidate(cand Candidate) (Candidate, error)
		GetCandidateByID(id string) (Candidate, error)
		// FilterCandidates applies AND operation on available CandidateFilter fields.
		// CandidateFilter.Search does a case-insensitive match on Candidate.Nome.
		FilterCandidates(filter CandidateFilter) ([]Candidate, error)
		UpdateCandidate(cand Candidate) (Candidate, error)
		DeleteCandidatesByID(ids ...string) error

		CreateEnrollment(enr Enrollment) (Enrollment, error)
		GetEnrollmentByID(id string) (Enrollment, error)
		GetEnrollmentByCandidateID(candID string) (Enrollment, error)
		FilterEnrollments(filter EnrollmentFilter) ([]Enrollment, error)
		UpdateEnrollment(enr Enrollment) (Enrollment, error)
		// NextEnrollmentNumber hands out the next matrícula number for a school year.
		NextEnrollmentNumber(anoLetivo int) (int, error)

		CreateTurma(turma Turma) (Turma, error)
		GetTurmaByID(id string) (Turma, error)
		QueryTurmas(anoLetivo int) ([]Turma, error)
		CountTurmaSeats(turmaID string) (int, error)

		GetDashboardStats(anoLetivo int) (DashboardStats, error)
	}

	Service interface {
		CreateCandidate(nc NewCandidate) (Candidate, error)
		GetCandidate(id string) (Candidate, error)
		FilterCandidates(filter CandidateFilter) ([]Candidate, error)
		UpdateCandidate(id string, uc UpdateCandidate) (Candidate, error)
		DeleteCandidates(ids ...string) error

		Enroll(ne NewEnrollment) (Enrollment, error)
		GetEnrollment(id string) (Enrollment, error)
		FilterEnrollments(filter EnrollmentFilter) ([]Enrollment, error)
		ConfirmEnrollment(id string) (Enrollment, error)
		CancelEnrollment(id string) (Enrollment, error)
		AssignTurma(enrollmentID, turmaID string) (Enrollment, error)

		CreateTurma(nt NewTurma) (Turma, error)
		QueryTurmas(anoLetivo int) ([]Turma, error)

		DashboardStats(anoLetivo int) (DashboardStats, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func (svc *service) CreateCandidate(nc NewCandidate) (Candidate, error) {
	now := time.Now().UTC()
	cand := Candidate{
		ID:                  uuid.New().String(),
		Nome:                nc.Nome,
		Genero:              nc.Genero,
		Curso:               nc.Curso,
		Classe:              nc.Classe,
		AnoLetivo:           nc.AnoLetivo,
		Status:              CandidatePendente,
		EncarregadoNome:     nc.EncarregadoNome,
		EncarregadoEmail:    nc.EncarregadoEmail,
		EncarregadoTelefone: nc.EncarregadoTelefone,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if nc.DataNascimento != "" {
		dob, err := time.Parse("2006-01-02", nc.DataNascimento)
		if err != nil {
			return Candidate{}, core.NewValidationError(err, core.FieldError{
				Field: "data_nascimento", Error: "expected YYYY-MM-DD",
			})
		}
		cand.DataNascimento = dob
	}
	return svc.repo.CreateCandidate(cand)
}

func (svc *service) GetCandidate(id string) (Candidate, error) {
	return svc.repo.GetCandidateByID(id)
}

func (svc *service) FilterCandidates(filter CandidateFilter) ([]Candidate, error) {
	filter.Clean()
	return svc.repo.FilterCandidates(filter)
}

func (svc *service) UpdateCandidate(id string, uc UpdateCandidate) (Candidate, error) {
	cand, err := svc.repo.GetCandidateByID(id)
	if err != nil {
		return Candidate{}, err
	}

	if uc.Nome != "" {
		cand.Nome = uc.Nome
	}
	if uc.Curso != "" {
		cand.Curso = uc.Curso
	}
	if uc.Classe != "" {
		cand.Classe = uc.Classe
	}
	if uc.Status != "" {
		cand.Status = uc.Status
	}
	if uc.EncarregadoNome != "" {
		cand.EncarregadoNome = uc.EncarregadoNome
	}
	if uc.EncarregadoEmail != "" {
		cand.EncarregadoEmail = uc.EncarregadoEmail
	}
	if uc.EncarregadoTelefone != "" {
		cand.EncarregadoTelefone = uc.EncarregadoTelefone
	}
	cand.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCandidate(cand)
}

func (svc *service) DeleteCandidates(ids ...string) error {
	return svc.repo.DeleteCandidatesByID(ids...)
}

// Enroll turns an admitted candidate into a pending matrícula and marks the
// candidate matriculado.
func (svc *service) Enroll(ne NewEnrollment) (Enrollment, error) {
	cand, err := svc.repo.GetCandidateByID(ne.CandidateID)
	if err != nil {
		return Enrollment{}, err
	}
	if cand.Status != CandidateAdmitido {
		return Enrollment{}, core.NewValidationError(ErrCandidateNotAdmitted)
	}
	if _, err = svc.repo.GetEnrollmentByCandidateID(cand.ID); err == nil {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
	} else if errors.Cause(err) != ErrEnrollmentNotFound {
		return Enrollment{}, err
	}

	num, err := svc.repo.NextEnrollmentNumber(cand.AnoLetivo)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "allocating matrícula number")
	}

	now := time.Now().UTC()
	enr := Enrollment{
		ID:          uuid.New().String(),
		Numero:      num,
		CandidateID: cand.ID,
		Nome:        cand.Nome,
		Curso:       cand.Curso,
		Classe:      cand.Classe,
		AnoLetivo:   cand.AnoLetivo,
		Status:      MatriculaPendente,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	enr, err = svc.repo.CreateEnrollment(enr)
	if err != nil {
		return Enrollment{}, err
	}

	cand.Status = CandidateMatriculado
	cand.UpdatedAt = now
	if _, err = svc.repo.UpdateCandidate(cand); err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *service) GetEnrollment(id string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(id)
}

func (svc *service) FilterEnrollments(filter EnrollmentFilter) ([]Enrollment, error) {
	filter.Clean()
	return svc.repo.FilterEnrollments(filter)
}

func (svc *service) ConfirmEnrollment(id string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(id)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.Status == MatriculaConfirmada {
		return enr, nil
	}

	now := time.Now().UTC()
	enr.Status = MatriculaConfirmada
	enr.ConfirmedAt = now
	enr.UpdatedAt = now
	enr, err = svc.repo.UpdateEnrollment(enr)
	if err != nil {
		return Enrollment{}, err
	}

	if cand, err := svc.repo.GetCandidateByID(enr.CandidateID); err == nil && cand.EncarregadoEmail != "" {
		svc.sendConfirmationMail(enr, cand)
	}
	return enr, nil
}

func (svc *service) CancelEnrollment(id string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(id)
	if err != nil {
		return Enrollment{}, err
	}
	enr.Status = MatriculaAnulada
	enr.TurmaID = ""
	enr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEnrollment(enr)
}

// AssignTurma places a matrícula in a turma, refusing when the turma is at
// capacity.
func (svc *service) AssignTurma(enrollmentID, turmaID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	turma, err := svc.repo.GetTurmaByID(turmaID)
	if err != nil {
		return Enrollment{}, err
	}

	taken, err := svc.repo.CountTurmaSeats(turma.ID)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.TurmaID != turma.ID && taken >= turma.Capacidade {
		return Enrollment{}, core.NewValidationError(ErrTurmaFull)
	}

	enr.TurmaID = turma.ID
	enr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEnrollment(enr)
}

func (svc *service) CreateTurma(nt NewTurma) (Turma, error) {
	turma := Turma{
		ID:         uuid.New().String(),
		Nome:       nt.Nome,
		Curso:      nt.Curso,
		Classe:     nt.Classe,
		AnoLetivo:  nt.AnoLetivo,
		Sala:       nt.Sala,
		Capacidade: nt.Capacidade,
		CreatedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateTurma(turma)
}

func (svc *service) QueryTurmas(anoLetivo int) ([]Turma, error) {
	return svc.repo.QueryTurmas(anoLetivo)
}

func (svc *service) DashboardStats(anoLetivo int) (DashboardStats, error) {
	stats, err := svc.repo.GetDashboardStats(anoLetivo)
	if err != nil {
		return DashboardStats{}, err
	}
	stats.AnoLetivo = anoLetivo
	stats.GeneratedAt = time.Now().UTC()
	return stats, nil
}

func (svc *service) sendConfirmationMail(enr Enrollment, cand Candidate) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cand.EncarregadoNome, Address: cand.EncarregadoEmail}},
		Subject:      "Matrícula confirmada",
		TemplateName: "matricula-confirmada",
		TemplateData: struct {
			EncarregadoNome string
			AlunoNome       string
			Numero          int
			Curso           string
			Classe          string
			AnoLetivo       int
		}{cand.EncarregadoNome, enr.Nome, enr.Numero, enr.Curso, enr.Classe, enr.AnoLetivo},
	})
}
