package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sgescola/sge/core"
)

// Candidate statuses
const (
	CandidatePendente    = "pendente"
	CandidateAdmitido    = "admitido"
	CandidateRejeitado   = "rejeitado"
	CandidateMatriculado = "matriculado"
)

// Enrollment statuses
const (
	MatriculaPendente   = "pendente"
	MatriculaConfirmada = "confirmada"
	MatriculaAnulada    = "anulada"
)

// Candidate is an inscrito: an admission-intake record that may later be
// turned into a matrícula.
type Candidate struct {
	ID                  string    `json:"id"`
	Nome                string    `json:"nome"`
	Genero              string    `json:"genero"`
	DataNascimento      time.Time `json:"data_nascimento"`
	Curso               string    `json:"curso"`
	Classe              string    `json:"classe"`
	AnoLetivo           int       `json:"ano_letivo"`
	Status              string    `json:"status"`
	EncarregadoNome     string    `json:"encarregado_nome"`
	EncarregadoEmail    string    `json:"encarregado_email"`
	EncarregadoTelefone string    `json:"encarregado_telefone"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
}

// Enrollment is a matrícula created from an admitted candidate.
type Enrollment struct {
	ID          string    `json:"id"`
	Numero      int       `json:"numero"`
	CandidateID string    `json:"inscrito_id"`
	Nome        string    `json:"nome"`
	Curso       string    `json:"curso"`
	Classe      string    `json:"classe"`
	AnoLetivo   int       `json:"ano_letivo"`
	TurmaID     string    `json:"turma_id,omitempty"`
	Status      string    `json:"status"`
	ConfirmedAt time.Time `json:"confirmed_at"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Turma is a class group with a room and a seat capacity.
type Turma struct {
	ID         string    `json:"id"`
	Nome       string    `json:"nome"`
	Curso      string    `json:"curso"`
	Classe     string    `json:"classe"`
	AnoLetivo  int       `json:"ano_letivo"`
	Sala       string    `json:"sala"`
	Capacidade int       `json:"capacidade"`
	Ocupacao   int       `json:"ocupacao"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// CursoStats is one per-course line of the dashboard aggregates.
type CursoStats struct {
	Curso      string `json:"curso"`
	Inscritos  int    `json:"inscritos"`
	Matriculas int    `json:"matriculas"`
}

// DashboardStats is the aggregate payload served through the fetch cache.
type DashboardStats struct {
	AnoLetivo             int          `json:"ano_letivo"`
	TotalInscritos        int          `json:"total_inscritos"`
	InscritosPendentes    int          `json:"inscritos_pendentes"`
	TotalMatriculas       int          `json:"total_matriculas"`
	MatriculasConfirmadas int          `json:"matriculas_confirmadas"`
	MatriculasPendentes   int          `json:"matriculas_pendentes"`
	PorCurso              []CursoStats `json:"por_curso"`
	GeneratedAt           time.Time    `json:"generated_at"`
}

// NewCandidate contains information needed to register an inscrito.
type NewCandidate struct {
	Nome                string `json:"nome" validate:"required"`
	Genero              string `json:"genero" validate:"omitempty,oneof=M F"`
	DataNascimento      string `json:"data_nascimento" validate:"omitempty"`
	Curso               string `json:"curso" validate:"required"`
	Classe              string `json:"classe" validate:"required"`
	AnoLetivo           int    `json:"ano_letivo" validate:"required,min=2000"`
	EncarregadoNome     string `json:"encarregado_nome"`
	EncarregadoEmail    string `json:"encarregado_email" validate:"omitempty,email"`
	EncarregadoTelefone string `json:"encarregado_telefone"`
}

func (nc *NewCandidate) Validate(validate *validator.Validate) error {
	nc.Nome = core.CleanString(nc.Nome)
	nc.Curso = core.CleanString(nc.Curso)
	nc.Classe = core.CleanString(nc.Classe)
	nc.EncarregadoNome = core.CleanString(nc.EncarregadoNome)
	nc.EncarregadoEmail = core.CleanString(nc.EncarregadoEmail, true /* lower */)
	return validate.Struct(nc)
}

// UpdateCandidate defines what may be modified on an existing inscrito.
type UpdateCandidate struct {
	Nome                string `json:"nome"`
	Curso               string `json:"curso"`
	Classe              string `json:"classe"`
	Status              string `json:"status" validate:"omitempty,oneof=pendente admitido rejeitado matriculado"`
	EncarregadoNome     string `json:"encarregado_nome"`
	EncarregadoEmail    string `json:"encarregado_email" validate:"omitempty,email"`
	EncarregadoTelefone string `json:"encarregado_telefone"`
}

func (uc *UpdateCandidate) Validate(validate *validator.Validate) error {
	uc.Nome = core.CleanString(uc.Nome)
	uc.Curso = core.CleanString(uc.Curso)
	uc.Classe = core.CleanString(uc.Classe)
	uc.EncarregadoEmail = core.CleanString(uc.EncarregadoEmail, true /* lower */)
	return validate.Struct(uc)
}

// NewEnrollment contains information needed to create a matrícula from an
// admitted candidate.
type NewEnrollment struct {
	CandidateID string `json:"inscrito_id" validate:"required"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.CandidateID = core.CleanString(ne.CandidateID)
	return validate.Struct(ne)
}

// NewTurma contains information needed to open a turma.
type NewTurma struct {
	Nome       string `json:"nome" validate:"required"`
	Curso      string `json:"curso" validate:"required"`
	Classe     string `json:"classe" validate:"required"`
	AnoLetivo  int    `json:"ano_letivo" validate:"required,min=2000"`
	Sala       string `json:"sala"`
	Capacidade int    `json:"capacidade" validate:"required,min=1"`
}

func (nt *NewTurma) Validate(validate *validator.Validate) error {
	nt.Nome = core.CleanString(nt.Nome)
	nt.Curso = core.CleanString(nt.Curso)
	nt.Classe = core.CleanString(nt.Classe)
	nt.Sala = core.CleanString(nt.Sala)
	return validate.Struct(nt)
}

// CandidateFilter narrows candidate queries; fields AND together.
type CandidateFilter struct {
	Search    string `query:"search"`
	Curso     string `query:"curso"`
	Status    string `query:"status"`
	AnoLetivo int    `query:"ano_letivo"`
}

func (cf *CandidateFilter) Clean() {
	cf.Search = core.CleanString(cf.Search)
	cf.Curso = core.CleanString(cf.Curso)
	cf.Status = core.CleanString(cf.Status, true /* lower */)
}

// EnrollmentFilter narrows matrícula queries; fields AND together.
type EnrollmentFilter struct {
	Search    string `query:"search"`
	Curso     string `query:"curso"`
	Status    string `query:"status"`
	AnoLetivo int    `query:"ano_letivo"`
	TurmaID   string `query:"turma_id"`
}

func (ef *EnrollmentFilter) Clean() {
	ef.Search = core.CleanString(ef.Search)
	ef.Curso = core.CleanString(ef.Curso)
	ef.Status = core.CleanString(ef.Status, true /* lower */)
	ef.TurmaID = core.CleanString(ef.TurmaID)
}
