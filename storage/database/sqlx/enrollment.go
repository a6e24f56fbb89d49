package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sgescola/sge/core/enrollment"
)

const (
	candidateCols = `id, nome, genero, data_nascimento, curso, classe, ano_letivo, status,
encarregado_nome, encarregado_email, encarregado_telefone, created_at, updated_at`

	enrollmentCols = `id, numero, inscrito_id, nome, curso, classe, ano_letivo, turma_id, status,
confirmed_at, created_at, updated_at`

	turmaCols = `id, nome, curso, classe, ano_letivo, sala, capacidade, created_at`
)

type dbCandidate struct {
	ID                  string      `db:"id"`
	Nome                string      `db:"nome"`
	Genero              null.String `db:"genero"`
	DataNascimento      null.Time   `db:"data_nascimento"`
	Curso               string      `db:"curso"`
	Classe              string      `db:"classe"`
	AnoLetivo           int         `db:"ano_letivo"`
	Status              string      `db:"status"`
	EncarregadoNome     null.String `db:"encarregado_nome"`
	EncarregadoEmail    null.String `db:"encarregado_email"`
	EncarregadoTelefone null.String `db:"encarregado_telefone"`
	CreatedAt           null.Time   `db:"created_at"`
	UpdatedAt           null.Time   `db:"updated_at"`
}

type dbEnrollment struct {
	ID          string      `db:"id"`
	Numero      int         `db:"numero"`
	CandidateID string      `db:"inscrito_id"`
	Nome        string      `db:"nome"`
	Curso       string      `db:"curso"`
	Classe      string      `db:"classe"`
	AnoLetivo   int         `db:"ano_letivo"`
	TurmaID     null.String `db:"turma_id"`
	Status      string      `db:"status"`
	ConfirmedAt null.Time   `db:"confirmed_at"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

type dbTurma struct {
	ID         string      `db:"id"`
	Nome       string      `db:"nome"`
	Curso      string      `db:"curso"`
	Classe     string      `db:"classe"`
	AnoLetivo  int         `db:"ano_letivo"`
	Sala       null.String `db:"sala"`
	Capacidade int         `db:"capacidade"`
	Ocupacao   int         `db:"ocupacao"`
	CreatedAt  null.Time   `db:"created_at"`
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) candRow(cand enrollment.Candidate) dbCandidate {
	return dbCandidate{
		ID:                  cand.ID,
		Nome:                cand.Nome,
		Genero:              null.NewString(cand.Genero, cand.Genero != ""),
		DataNascimento:      null.NewTime(cand.DataNascimento, !cand.DataNascimento.IsZero()),
		Curso:               cand.Curso,
		Classe:              cand.Classe,
		AnoLetivo:           cand.AnoLetivo,
		Status:              cand.Status,
		EncarregadoNome:     null.NewString(cand.EncarregadoNome, cand.EncarregadoNome != ""),
		EncarregadoEmail:    null.NewString(cand.EncarregadoEmail, cand.EncarregadoEmail != ""),
		EncarregadoTelefone: null.NewString(cand.EncarregadoTelefone, cand.EncarregadoTelefone != ""),
		CreatedAt:           null.NewTime(cand.CreatedAt.UTC(), !cand.CreatedAt.IsZero()),
		UpdatedAt:           null.NewTime(cand.UpdatedAt.UTC(), !cand.UpdatedAt.IsZero()),
	}
}

func (repo enrollmentRepository) candUnrow(row dbCandidate) enrollment.Candidate {
	return enrollment.Candidate{
		ID:                  row.ID,
		Nome:                row.Nome,
		Genero:              row.Genero.String,
		DataNascimento:      row.DataNascimento.Time,
		Curso:               row.Curso,
		Classe:              row.Classe,
		AnoLetivo:           row.AnoLetivo,
		Status:              row.Status,
		EncarregadoNome:     row.EncarregadoNome.String,
		EncarregadoEmail:    row.EncarregadoEmail.String,
		EncarregadoTelefone: row.EncarregadoTelefone.String,
		CreatedAt:           row.CreatedAt.Time,
		UpdatedAt:           row.UpdatedAt.Time,
	}
}

func (repo enrollmentRepository) enrRow(enr enrollment.Enrollment) dbEnrollment {
	return dbEnrollment{
		ID:          enr.ID,
		Numero:      enr.Numero,
		CandidateID: enr.CandidateID,
		Nome:        enr.Nome,
		Curso:       enr.Curso,
		Classe:      enr.Classe,
		AnoLetivo:   enr.AnoLetivo,
		TurmaID:     null.NewString(enr.TurmaID, enr.TurmaID != ""),
		Status:      enr.Status,
		ConfirmedAt: null.NewTime(enr.ConfirmedAt.UTC(), !enr.ConfirmedAt.IsZero()),
		CreatedAt:   null.NewTime(enr.CreatedAt.UTC(), !enr.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(enr.UpdatedAt.UTC(), !enr.UpdatedAt.IsZero()),
	}
}

func (repo enrollmentRepository) enrUnrow(row dbEnrollment) enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:          row.ID,
		Numero:      row.Numero,
		CandidateID: row.CandidateID,
		Nome:        row.Nome,
		Curso:       row.Curso,
		Classe:      row.Classe,
		AnoLetivo:   row.AnoLetivo,
		TurmaID:     row.TurmaID.String,
		Status:      row.Status,
		ConfirmedAt: row.ConfirmedAt.Time,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo enrollmentRepository) turmaUnrow(row dbTurma) enrollment.Turma {
	return enrollment.Turma{
		ID:         row.ID,
		Nome:       row.Nome,
		Curso:      row.Curso,
		Classe:     row.Classe,
		AnoLetivo:  row.AnoLetivo,
		Sala:       row.Sala.String,
		Capacidade: row.Capacidade,
		Ocupacao:   row.Ocupacao,
		CreatedAt:  row.CreatedAt.Time,
	}
}

func (repo enrollmentRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo enrollmentRepository) CreateCandidate(cand enrollment.Candidate) (enrollment.Candidate, error) {
	q := `INSERT INTO inscrito (` + candidateCols + `) VALUES (
:id, :nome, :genero, :data_nascimento, :curso, :classe, :ano_letivo, :status,
:encarregado_nome, :encarregado_email, :encarregado_telefone, :created_at, :updated_at)`
	if _, err := repo.db.NamedExec(q, repo.candRow(cand)); err != nil {
		return enrollment.Candidate{}, errors.Wrap(err, "inserting inscrito")
	}
	return cand, nil
}

func (repo enrollmentRepository) GetCandidateByID(id string) (enrollment.Candidate, error) {
	var row dbCandidate
	q := `SELECT ` + candidateCols + ` FROM inscrito WHERE id = $1`
	if err := repo.db.Get(&row, q, id); err != nil {
		return enrollment.Candidate{}, repo.trapNoRowsErr(err, enrollment.ErrCandidateNotFound, "getting inscrito")
	}
	return repo.candUnrow(row), nil
}

func (repo enrollmentRepository) FilterCandidates(filter enrollment.CandidateFilter) ([]enrollment.Candidate, error) {
	conds := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		conds = append(conds, `nome ILIKE `+arg("%"+filter.Search+"%"))
	}
	if filter.Curso != "" {
		conds = append(conds, `curso = `+arg(filter.Curso))
	}
	if filter.Status != "" {
		conds = append(conds, `status = `+arg(filter.Status))
	}
	if filter.AnoLetivo != 0 {
		conds = append(conds, `ano_letivo = `+arg(filter.AnoLetivo))
	}

	q := `SELECT ` + candidateCols + ` FROM inscrito`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC`

	var rows []dbCandidate
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering inscritos")
	}
	cands := make([]enrollment.Candidate, 0, len(rows))
	for _, row := range rows {
		cands = append(cands, repo.candUnrow(row))
	}
	return cands, nil
}

func (repo enrollmentRepository) UpdateCandidate(cand enrollment.Candidate) (enrollment.Candidate, error) {
	q := `UPDATE inscrito SET
nome = :nome, genero = :genero, data_nascimento = :data_nascimento, curso = :curso, classe = :classe,
ano_letivo = :ano_letivo, status = :status, encarregado_nome = :encarregado_nome,
encarregado_email = :encarregado_email, encarregado_telefone = :encarregado_telefone, updated_at = :updated_at
WHERE id = :id`
	if _, err := repo.db.NamedExec(q, repo.candRow(cand)); err != nil {
		return enrollment.Candidate{}, errors.Wrap(err, "updating inscrito")
	}
	return cand, nil
}

func (repo enrollmentRepository) DeleteCandidatesByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.Exec(`DELETE FROM inscrito WHERE id = ANY($1)`, pq.StringArray(ids)); err != nil {
		return errors.Wrap(err, "deleting inscritos")
	}
	return nil
}

func (repo enrollmentRepository) CreateEnrollment(enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	q := `INSERT INTO matricula (` + enrollmentCols + `) VALUES (
:id, :numero, :inscrito_id, :nome, :curso, :classe, :ano_letivo, :turma_id, :status,
:confirmed_at, :created_at, :updated_at)`
	if _, err := repo.db.NamedExec(q, repo.enrRow(enr)); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting matrícula")
	}
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollmentByID(id string) (enrollment.Enrollment, error) {
	var row dbEnrollment
	q := `SELECT ` + enrollmentCols + ` FROM matricula WHERE id = $1`
	if err := repo.db.Get(&row, q, id); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, enrollment.ErrEnrollmentNotFound, "getting matrícula")
	}
	return repo.enrUnrow(row), nil
}

func (repo enrollmentRepository) GetEnrollmentByCandidateID(candID string) (enrollment.Enrollment, error) {
	var row dbEnrollment
	q := `SELECT ` + enrollmentCols + ` FROM matricula WHERE inscrito_id = $1`
	if err := repo.db.Get(&row, q, candID); err != nil {
		return enrollment.Enrollment{}, repo.trapNoRowsErr(err, enrollment.ErrEnrollmentNotFound, "getting matrícula")
	}
	return repo.enrUnrow(row), nil
}

func (repo enrollmentRepository) FilterEnrollments(filter enrollment.EnrollmentFilter) ([]enrollment.Enrollment, error) {
	conds := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		conds = append(conds, `nome ILIKE `+arg("%"+filter.Search+"%"))
	}
	if filter.Curso != "" {
		conds = append(conds, `curso = `+arg(filter.Curso))
	}
	if filter.Status != "" {
		conds = append(conds, `status = `+arg(filter.Status))
	}
	if filter.AnoLetivo != 0 {
		conds = append(conds, `ano_letivo = `+arg(filter.AnoLetivo))
	}
	if filter.TurmaID != "" {
		conds = append(conds, `turma_id = `+arg(filter.TurmaID))
	}

	q := `SELECT ` + enrollmentCols + ` FROM matricula`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY numero ASC`

	var rows []dbEnrollment
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering matrículas")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, repo.enrUnrow(row))
	}
	return enrs, nil
}

func (repo enrollmentRepository) UpdateEnrollment(enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	q := `UPDATE matricula SET
nome = :nome, curso = :curso, classe = :classe, ano_letivo = :ano_letivo, turma_id = :turma_id,
status = :status, confirmed_at = :confirmed_at, updated_at = :updated_at
WHERE id = :id`
	if _, err := repo.db.NamedExec(q, repo.enrRow(enr)); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating matrícula")
	}
	return enr, nil
}

func (repo enrollmentRepository) NextEnrollmentNumber(anoLetivo int) (int, error) {
	var num int
	q := `SELECT COALESCE(MAX(numero), 0) + 1 FROM matricula WHERE ano_letivo = $1`
	if err := repo.db.Get(&num, q, anoLetivo); err != nil {
		return 0, errors.Wrap(err, "allocating matrícula number")
	}
	return num, nil
}

func (repo enrollmentRepository) CreateTurma(turma enrollment.Turma) (enrollment.Turma, error) {
	q := `INSERT INTO turma (` + turmaCols + `) VALUES (
:id, :nome, :curso, :classe, :ano_letivo, :sala, :capacidade, :created_at)`
	row := dbTurma{
		ID:         turma.ID,
		Nome:       turma.Nome,
		Curso:      turma.Curso,
		Classe:     turma.Classe,
		AnoLetivo:  turma.AnoLetivo,
		Sala:       null.NewString(turma.Sala, turma.Sala != ""),
		Capacidade: turma.Capacidade,
		CreatedAt:  null.NewTime(turma.CreatedAt.UTC(), !turma.CreatedAt.IsZero()),
	}
	if _, err := repo.db.NamedExec(q, row); err != nil {
		return enrollment.Turma{}, errors.Wrap(err, "inserting turma")
	}
	return turma, nil
}

func (repo enrollmentRepository) GetTurmaByID(id string) (enrollment.Turma, error) {
	var row dbTurma
	q := `SELECT ` + turmaCols + `, 0 AS ocupacao FROM turma WHERE id = $1`
	if err := repo.db.Get(&row, q, id); err != nil {
		return enrollment.Turma{}, repo.trapNoRowsErr(err, enrollment.ErrTurmaNotFound, "getting turma")
	}
	return repo.turmaUnrow(row), nil
}

func (repo enrollmentRepository) QueryTurmas(anoLetivo int) ([]enrollment.Turma, error) {
	q := `SELECT t.id, t.nome, t.curso, t.classe, t.ano_letivo, t.sala, t.capacidade, t.created_at,
COUNT(m.id) AS ocupacao
FROM turma t
LEFT JOIN matricula m ON m.turma_id = t.id AND m.status != 'anulada'`
	args := make([]interface{}, 0, 1)
	if anoLetivo != 0 {
		q += ` WHERE t.ano_letivo = $1`
		args = append(args, anoLetivo)
	}
	q += ` GROUP BY t.id ORDER BY t.nome ASC`

	var rows []dbTurma
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying turmas")
	}
	turmas := make([]enrollment.Turma, 0, len(rows))
	for _, row := range rows {
		turmas = append(turmas, repo.turmaUnrow(row))
	}
	return turmas, nil
}

func (repo enrollmentRepository) CountTurmaSeats(turmaID string) (int, error) {
	var taken int
	q := `SELECT COUNT(*) FROM matricula WHERE turma_id = $1 AND status != 'anulada'`
	if err := repo.db.Get(&taken, q, turmaID); err != nil {
		return 0, errors.Wrap(err, "counting turma seats")
	}
	return taken, nil
}

func (repo enrollmentRepository) GetDashboardStats(anoLetivo int) (enrollment.DashboardStats, error) {
	var stats enrollment.DashboardStats

	counts := struct {
		TotalInscritos        int `db:"total_inscritos"`
		InscritosPendentes    int `db:"inscritos_pendentes"`
		TotalMatriculas       int `db:"total_matriculas"`
		MatriculasConfirmadas int `db:"matriculas_confirmadas"`
		MatriculasPendentes   int `db:"matriculas_pendentes"`
	}{}
	q := `SELECT
(SELECT COUNT(*) FROM inscrito WHERE ano_letivo = $1)                             AS total_inscritos,
(SELECT COUNT(*) FROM inscrito WHERE ano_letivo = $1 AND status = 'pendente')     AS inscritos_pendentes,
(SELECT COUNT(*) FROM matricula WHERE ano_letivo = $1)                            AS total_matriculas,
(SELECT COUNT(*) FROM matricula WHERE ano_letivo = $1 AND status = 'confirmada')  AS matriculas_confirmadas,
(SELECT COUNT(*) FROM matricula WHERE ano_letivo = $1 AND status = 'pendente')    AS matriculas_pendentes`
	if err := repo.db.Get(&counts, q, anoLetivo); err != nil {
		return stats, errors.Wrap(err, "aggregating dashboard counts")
	}
	stats.TotalInscritos = counts.TotalInscritos
	stats.InscritosPendentes = counts.InscritosPendentes
	stats.TotalMatriculas = counts.TotalMatriculas
	stats.MatriculasConfirmadas = counts.MatriculasConfirmadas
	stats.MatriculasPendentes = counts.MatriculasPendentes

	var perCurso []struct {
		Curso      string `db:"curso"`
		Inscritos  int    `db:"inscritos"`
		Matriculas int    `db:"matriculas"`
	}
	q = `SELECT i.curso,
COUNT(DISTINCT i.id) AS inscritos,
COUNT(DISTINCT m.id) AS matriculas
FROM inscrito i
LEFT JOIN matricula m ON m.inscrito_id = i.id
WHERE i.ano_letivo = $1
GROUP BY i.curso
ORDER BY i.curso ASC`
	if err := repo.db.Select(&perCurso, q, anoLetivo); err != nil {
		return stats, errors.Wrap(err, "aggregating per-curso counts")
	}
	for _, row := range perCurso {
		stats.PorCurso = append(stats.PorCurso, enrollment.CursoStats{
			Curso:      row.Curso,
			Inscritos:  row.Inscritos,
			Matriculas: row.Matriculas,
		})
	}
	return stats, nil
}
